package notification

// Message kinds carried on the shared notification queue.
const (
	KindOrderConfirmation = "order.confirmation"
	KindLowStock          = "stock.low"
)

// OrderConfirmation is produced once per successful stock deduction.
// It has no identity beyond its payload; consumers must tolerate
// duplicate deliveries.
type OrderConfirmation struct {
	ToEmail  string `json:"toEmail"`
	UserName string `json:"userName"`
	SKUCode  string `json:"skuCode"`
	Quantity int    `json:"quantity"`
}

// LowStockAlert is emitted when a deduction leaves a SKU strictly below
// its reorder level.
type LowStockAlert struct {
	SKUCode           string `json:"skuCode"`
	QuantityAvailable int    `json:"quantityAvailable"`
	ReorderLevel      int    `json:"reorderLevel"`
	ItemName          string `json:"itemName"`
	Email             string `json:"email"`
}
