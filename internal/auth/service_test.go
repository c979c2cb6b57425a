package auth

import (
	"strings"
	"testing"
	"time"

	"nexo/backend/internal/auth/jwt"
	"nexo/backend/internal/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *Service {
	store := memory.NewStore()
	tokens := jwt.NewManager(strings.Repeat("a", 32), "test", 15*time.Minute, 7*24*time.Hour)
	return NewService(store, tokens)
}

func TestAuthService_Register(t *testing.T) {
	service := newTestService()

	// Test successful registration
	response, err := service.Register(RegisterInput{
		Email:    "test@example.com",
		Password: "Password123!",
		Name:     "Test User",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, response.User.ID)
	assert.Equal(t, "test@example.com", response.User.Email)
	assert.Equal(t, "Test User", response.User.Name)
	assert.True(t, response.User.IsActive)
	assert.NotEmpty(t, response.AccessToken)
	assert.NotEmpty(t, response.RefreshToken)
	assert.Equal(t, "Bearer", response.TokenType)
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	service := newTestService()

	_, err := service.Register(RegisterInput{
		Email:    "test@example.com",
		Password: "Password123!",
	})
	require.NoError(t, err)

	// Same email again, different casing
	_, err = service.Register(RegisterInput{
		Email:    "Test@Example.com",
		Password: "Password123!",
	})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestAuthService_Register_Validation(t *testing.T) {
	service := newTestService()

	_, err := service.Register(RegisterInput{Email: "not-an-email", Password: "Password123!"})
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = service.Register(RegisterInput{Email: "test@example.com", Password: "short"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "at least 8 characters")
}

func TestAuthService_Login(t *testing.T) {
	service := newTestService()

	_, err := service.Register(RegisterInput{
		Email:    "test@example.com",
		Password: "Password123!",
	})
	require.NoError(t, err)

	// Successful login
	response, err := service.Login(LoginInput{
		Email:    "test@example.com",
		Password: "Password123!",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, response.AccessToken)

	// Wrong password
	_, err = service.Login(LoginInput{
		Email:    "test@example.com",
		Password: "WrongPassword",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Unknown email
	_, err = service.Login(LoginInput{
		Email:    "missing@example.com",
		Password: "Password123!",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_Login_InactiveUser(t *testing.T) {
	service := newTestService()

	response, err := service.Register(RegisterInput{
		Email:    "test@example.com",
		Password: "Password123!",
	})
	require.NoError(t, err)

	user := response.User
	user.IsActive = false
	require.NoError(t, service.userRepo.UpdateUser(user))

	_, err = service.Login(LoginInput{
		Email:    "test@example.com",
		Password: "Password123!",
	})
	assert.ErrorIs(t, err, ErrUserInactive)
}

func TestAuthService_Refresh(t *testing.T) {
	service := newTestService()

	response, err := service.Register(RegisterInput{
		Email:    "test@example.com",
		Password: "Password123!",
	})
	require.NoError(t, err)

	refreshed, err := service.Refresh(response.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.Equal(t, response.User.ID, refreshed.User.ID)

	_, err = service.Refresh("not-a-token")
	assert.Error(t, err)
}

func TestAuthService_ChangePassword(t *testing.T) {
	service := newTestService()

	response, err := service.Register(RegisterInput{
		Email:    "test@example.com",
		Password: "Password123!",
	})
	require.NoError(t, err)

	userID := response.User.ID

	// Wrong old password
	err = service.ChangePassword(userID, "WrongOld", "NewPassword123!")
	assert.Error(t, err)

	// Successful change
	err = service.ChangePassword(userID, "Password123!", "NewPassword123!")
	require.NoError(t, err)

	// Old password no longer works
	_, err = service.Login(LoginInput{Email: "test@example.com", Password: "Password123!"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = service.Login(LoginInput{Email: "test@example.com", Password: "NewPassword123!"})
	assert.NoError(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("Password123!")
	require.NoError(t, err)
	assert.NotEqual(t, "Password123!", hash)

	assert.True(t, CheckPassword("Password123!", hash))
	assert.False(t, CheckPassword("other", hash))
}

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("user@example.com"))
	assert.True(t, ValidateEmail("user.name+tag@sub.example.co"))
	assert.False(t, ValidateEmail("user@"))
	assert.False(t, ValidateEmail("example.com"))
	assert.False(t, ValidateEmail(""))
}
