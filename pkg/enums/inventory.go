package enums

// HistoryType classifies an inventory history entry.
type HistoryType string

const (
	HistoryTypeIncrease HistoryType = "increase"
	HistoryTypeDecrease HistoryType = "decrease"
	HistoryTypeUpdate   HistoryType = "update"
)

var historyTypes = lower("history type", HistoryTypeIncrease, HistoryTypeDecrease, HistoryTypeUpdate)

func (h HistoryType) String() string { return string(h) }
func (h HistoryType) IsValid() bool  { return historyTypes.has(h) }

func ParseHistoryType(raw string) (HistoryType, error) { return historyTypes.parse(raw) }

// HistoryTypeForDelta picks increase or decrease by the sign of delta.
func HistoryTypeForDelta(delta int) HistoryType {
	if delta < 0 {
		return HistoryTypeDecrease
	}
	return HistoryTypeIncrease
}

// InventoryStatus is derived from quantity and threshold, never stored
// independently.
type InventoryStatus string

const (
	InventoryStatusInStock  InventoryStatus = "in_stock"
	InventoryStatusLowStock InventoryStatus = "low_stock"
)

var inventoryStatuses = lower("inventory status", InventoryStatusInStock, InventoryStatusLowStock)

func (i InventoryStatus) String() string { return string(i) }
func (i InventoryStatus) IsValid() bool  { return inventoryStatuses.has(i) }

func ParseInventoryStatus(raw string) (InventoryStatus, error) { return inventoryStatuses.parse(raw) }

// InventoryStatusFor is low stock at or below the threshold.
func InventoryStatusFor(quantity, threshold int) InventoryStatus {
	if quantity <= threshold {
		return InventoryStatusLowStock
	}
	return InventoryStatusInStock
}
