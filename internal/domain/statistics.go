package domain

// SystemStatistics 系统统计信息
type SystemStatistics struct {
	TotalUsers     int              `json:"totalUsers"`
	ActiveUsers    int              `json:"activeUsers"`
	TotalAPIKeys   int              `json:"totalApiKeys"`
	ActiveAPIKeys  int              `json:"activeApiKeys"`
	ShoppingItems  int              `json:"shoppingItems"`
	UncheckedItems int              `json:"uncheckedItems"`
	Events         int              `json:"events"`
	Expenses       int              `json:"expenses"`
	PendingChores  int              `json:"pendingChores"`
	ItemsByType    map[ItemType]int `json:"itemsByType"`
}
