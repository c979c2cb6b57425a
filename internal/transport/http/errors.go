package httptransport

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"nexo/backend/internal/service"
	"nexo/backend/internal/storage"
)

// 通用错误消息
const (
	MsgInvalidRequest = "invalid request body"
	MsgInvalidID      = "invalid id parameter"
	MsgAuthRequired   = "authentication required"
	MsgInternalError  = "internal server error, please try again later"
)

// errorStatus 业务错误到HTTP状态码的映射
//
// 未列出的错误一律按500处理，消息统一为 MsgInternalError，
// 存储层的原始错误文本不出网。
var errorStatus = map[error]int{
	// 输入校验错误
	service.ErrKeyNameRequired:      http.StatusBadRequest,
	service.ErrScopeNotGrantable:    http.StatusBadRequest,
	service.ErrItemNameRequired:     http.StatusBadRequest,
	service.ErrItemTypeInvalid:      http.StatusBadRequest,
	service.ErrPriorityInvalid:      http.StatusBadRequest,
	service.ErrUnsafeContent:        http.StatusBadRequest,
	service.ErrEventTitleRequired:   http.StatusBadRequest,
	service.ErrEventDateInvalid:     http.StatusBadRequest,
	service.ErrExpenseAmountInvalid: http.StatusBadRequest,
	service.ErrExpenseDescRequired:  http.StatusBadRequest,
	service.ErrSplitAmountMismatch:  http.StatusBadRequest,
	service.ErrSplitUserRequired:    http.StatusBadRequest,
	service.ErrChoreTitleRequired:   http.StatusBadRequest,
	service.ErrChoreFrequencyBad:    http.StatusBadRequest,
	service.ErrOrgNameRequired:      http.StatusBadRequest,
	service.ErrOrgSlugInvalid:       http.StatusBadRequest,

	// 资源状态冲突
	service.ErrKeyLimitReached:      http.StatusConflict,
	service.ErrChoreAlreadyComplete: http.StatusConflict,
	service.ErrLastAdmin:            http.StatusConflict,
	service.ErrSelfDelete:           http.StatusConflict,
	storage.ErrSlugExists:           http.StatusConflict,
	storage.ErrMemberExists:         http.StatusConflict,

	// 权限不足
	service.ErrNotOrgAdmin: http.StatusForbidden,

	// 不存在（或不可见，二者对外无差别）
	service.ErrKeyNotFound:     http.StatusNotFound,
	storage.ErrItemNotFound:    http.StatusNotFound,
	storage.ErrEventNotFound:   http.StatusNotFound,
	storage.ErrExpenseNotFound: http.StatusNotFound,
	storage.ErrSplitNotFound:   http.StatusNotFound,
	storage.ErrChoreNotFound:   http.StatusNotFound,
	storage.ErrOrgNotFound:     http.StatusNotFound,
	storage.ErrMemberNotFound:  http.StatusNotFound,
	storage.ErrUserNotFound:    http.StatusNotFound,
}

// RespondError 把业务错误翻译成信封响应
func RespondError(c *gin.Context, err error) {
	for sentinel, status := range errorStatus {
		if errors.Is(err, sentinel) {
			c.JSON(status, Response{
				Success: false,
				Error:   sentinel.Error(),
			})
			return
		}
	}

	// 哈希冲突：概率极低，提示重试
	if errors.Is(err, service.ErrKeyConflict) {
		InternalError(c, service.ErrKeyConflict.Error())
		return
	}

	InternalError(c, MsgInternalError)
}
