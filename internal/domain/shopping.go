package domain

import "time"

// ItemType 购物项分类
type ItemType string

const (
	ItemTypeFood        ItemType = "food"
	ItemTypeKitchen     ItemType = "kitchen"
	ItemTypeBathroom    ItemType = "bathroom"
	ItemTypeCleaning    ItemType = "cleaning"
	ItemTypeClothing    ItemType = "clothing"
	ItemTypeElectronics ItemType = "electronics"
	ItemTypeHome        ItemType = "home"
	ItemTypeOther       ItemType = "other"
)

// ItemTypes 全部合法的购物项分类
var ItemTypes = []ItemType{
	ItemTypeFood,
	ItemTypeKitchen,
	ItemTypeBathroom,
	ItemTypeCleaning,
	ItemTypeClothing,
	ItemTypeElectronics,
	ItemTypeHome,
	ItemTypeOther,
}

// ValidItemType 判断分类是否合法
func ValidItemType(t ItemType) bool {
	for _, it := range ItemTypes {
		if it == t {
			return true
		}
	}
	return false
}

// 购物项默认值
const (
	DefaultItemType = ItemTypeOther
	DefaultPriority = 3 // 1=紧急 4=低
	DefaultCurrency = "EUR"
	MinPriority     = 1
	MaxPriority     = 4
)

// ShoppingItem 购物清单项
type ShoppingItem struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	Name      string     `json:"name" gorm:"type:varchar(255);not null"`
	Quantity  int        `json:"quantity" gorm:"default:1"`
	Unit      *string    `json:"unit,omitempty" gorm:"type:varchar(30)"`
	Type      ItemType   `json:"type" gorm:"type:varchar(20);index;default:'other'"`
	Category  *string    `json:"category,omitempty" gorm:"type:varchar(100)"`
	Priority  int        `json:"priority" gorm:"default:3"`
	Price     *float64   `json:"price,omitempty"`
	Currency  string     `json:"currency" gorm:"type:varchar(3);default:'EUR'"`
	URL       *string    `json:"url,omitempty" gorm:"type:varchar(500)"`
	Notes     *string    `json:"notes,omitempty" gorm:"type:text"`
	IsChecked bool       `json:"isChecked" gorm:"index;default:false"`
	CheckedBy *string    `json:"checkedBy,omitempty" gorm:"type:varchar(36)"`
	CheckedAt *time.Time `json:"checkedAt,omitempty"`
	CreatedBy string     `json:"createdBy" gorm:"type:varchar(36);not null"`
	OrgID     *string    `json:"orgId,omitempty" gorm:"type:varchar(36);index"`
	CreatedAt time.Time  `json:"createdAt"`
}

// ShoppingFilter 购物清单查询条件
type ShoppingFilter struct {
	Type    *ItemType // 按分类过滤
	Checked *bool     // 按勾选状态过滤
	Limit   int       // 返回条数上限
}
