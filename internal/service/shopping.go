package service

import (
	"errors"
	"strings"
	"time"

	"nexo/backend/internal/domain"
	"nexo/backend/internal/storage"
)

var (
	ErrItemNameRequired = errors.New("item name is required")
	ErrItemTypeInvalid  = errors.New("item type invalid")
	ErrPriorityInvalid  = errors.New("priority out of range")
)

// maxListLimit 列表查询的条数上限
const maxListLimit = 500

// ShoppingService 购物清单业务逻辑服务
type ShoppingService struct {
	repo storage.ShoppingRepository
}

// NewShoppingService 创建购物清单服务
func NewShoppingService(repo storage.ShoppingRepository) *ShoppingService {
	return &ShoppingService{repo: repo}
}

// CreateItemInput 新增购物项的输入参数
type CreateItemInput struct {
	Name     string
	Quantity int
	Unit     *string
	Type     *domain.ItemType
	Category *string
	Priority *int
	Price    *float64
	Currency *string
	URL      *string
	Notes    *string
}

// CreateItem 新增购物项
//
// 缺省值：数量1、分类other、优先级3、币种EUR。
func (s *ShoppingService) CreateItem(identity *domain.Identity, input CreateItemInput) (*domain.ShoppingItem, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrItemNameRequired
	}
	if err := checkContent(&name, input.Notes, input.Category); err != nil {
		return nil, err
	}

	itemType := domain.DefaultItemType
	if input.Type != nil {
		if !domain.ValidItemType(*input.Type) {
			return nil, ErrItemTypeInvalid
		}
		itemType = *input.Type
	}

	priority := domain.DefaultPriority
	if input.Priority != nil {
		if *input.Priority < domain.MinPriority || *input.Priority > domain.MaxPriority {
			return nil, ErrPriorityInvalid
		}
		priority = *input.Priority
	}

	quantity := input.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	currency := domain.DefaultCurrency
	if input.Currency != nil && *input.Currency != "" {
		currency = strings.ToUpper(*input.Currency)
	}

	item := &domain.ShoppingItem{
		Name:      name,
		Quantity:  quantity,
		Unit:      input.Unit,
		Type:      itemType,
		Category:  input.Category,
		Priority:  priority,
		Price:     input.Price,
		Currency:  currency,
		URL:       input.URL,
		Notes:     input.Notes,
		CreatedBy: identity.UserID,
		OrgID:     identity.OrgID,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.SaveShoppingItem(item); err != nil {
		return nil, err
	}
	return item, nil
}

// ListItems 按条件列出当前身份可见的购物项
func (s *ShoppingService) ListItems(identity *domain.Identity, filter domain.ShoppingFilter) ([]domain.ShoppingItem, error) {
	if filter.Type != nil && !domain.ValidItemType(*filter.Type) {
		return nil, ErrItemTypeInvalid
	}

	limit := filter.Limit
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	// 可见性在取回后过滤，条数限制留到最后套用
	filter.Limit = 0

	items, err := s.repo.ListShoppingItems(filter)
	if err != nil {
		return nil, err
	}

	visible := make([]domain.ShoppingItem, 0, len(items))
	for _, item := range items {
		if canAccess(identity, item.OrgID, item.CreatedBy) {
			visible = append(visible, item)
			if len(visible) >= limit {
				break
			}
		}
	}
	return visible, nil
}

// GetItem 获取单个购物项
//
// 不可见的条目与不存在无差别，都返回未找到。
func (s *ShoppingService) GetItem(identity *domain.Identity, id uint) (*domain.ShoppingItem, error) {
	item, err := s.repo.GetShoppingItem(id)
	if err != nil {
		return nil, err
	}
	if !canAccess(identity, item.OrgID, item.CreatedBy) {
		return nil, storage.ErrItemNotFound
	}
	return item, nil
}

// UpdateItemInput 更新购物项的输入参数
//
// 全部字段可选，nil 表示不修改。
type UpdateItemInput struct {
	Name     *string
	Quantity *int
	Unit     *string
	Type     *domain.ItemType
	Category *string
	Priority *int
	Price    *float64
	Currency *string
	URL      *string
	Notes    *string
}

// UpdateItem 更新购物项字段
func (s *ShoppingService) UpdateItem(identity *domain.Identity, id uint, input UpdateItemInput) (*domain.ShoppingItem, error) {
	item, err := s.GetItem(identity, id)
	if err != nil {
		return nil, err
	}

	if err := checkContent(input.Name, input.Notes, input.Category); err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrItemNameRequired
		}
		item.Name = name
	}
	if input.Quantity != nil && *input.Quantity > 0 {
		item.Quantity = *input.Quantity
	}
	if input.Unit != nil {
		item.Unit = input.Unit
	}
	if input.Type != nil {
		if !domain.ValidItemType(*input.Type) {
			return nil, ErrItemTypeInvalid
		}
		item.Type = *input.Type
	}
	if input.Category != nil {
		item.Category = input.Category
	}
	if input.Priority != nil {
		if *input.Priority < domain.MinPriority || *input.Priority > domain.MaxPriority {
			return nil, ErrPriorityInvalid
		}
		item.Priority = *input.Priority
	}
	if input.Price != nil {
		item.Price = input.Price
	}
	if input.Currency != nil && *input.Currency != "" {
		item.Currency = strings.ToUpper(*input.Currency)
	}
	if input.URL != nil {
		item.URL = input.URL
	}
	if input.Notes != nil {
		item.Notes = input.Notes
	}

	if err := s.repo.UpdateShoppingItem(item); err != nil {
		return nil, err
	}
	return item, nil
}

// ToggleItem 切换购物项的勾选状态
//
// 勾选时记录操作者和时间，取消勾选时清空两者。
func (s *ShoppingService) ToggleItem(identity *domain.Identity, id uint) (*domain.ShoppingItem, error) {
	item, err := s.GetItem(identity, id)
	if err != nil {
		return nil, err
	}

	if item.IsChecked {
		item.IsChecked = false
		item.CheckedBy = nil
		item.CheckedAt = nil
	} else {
		now := time.Now().UTC()
		item.IsChecked = true
		item.CheckedBy = &identity.UserID
		item.CheckedAt = &now
	}

	if err := s.repo.UpdateShoppingItem(item); err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteItem 删除购物项
func (s *ShoppingService) DeleteItem(identity *domain.Identity, id uint) error {
	if _, err := s.GetItem(identity, id); err != nil {
		return err
	}
	return s.repo.DeleteShoppingItem(id)
}

// ClearChecked 清空当前身份可见的已勾选购物项，返回删除数量
func (s *ShoppingService) ClearChecked(identity *domain.Identity) (int, error) {
	checked := true
	items, err := s.ListItems(identity, domain.ShoppingFilter{Checked: &checked})
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, item := range items {
		if err := s.repo.DeleteShoppingItem(item.ID); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}
