package types

// OrderMetadata is the immutable pricing/delivery snapshot stamped on an order
// at commit time.
type OrderMetadata struct {
	UsedPoints      int64   `json:"usedPoints"`
	UnitPrice       string  `json:"unitPrice"`
	DeliveryMethod  string  `json:"deliveryMethod"`
	DeliveryAddress string  `json:"deliveryAddress"`
	CopayInr        *string `json:"copayInr,omitempty"`
	PaymentID       *string `json:"paymentId,omitempty"`
}

// BulkBuyItem is one frozen line of a bulk buy request. Values are copied from
// the live product at submission and never refreshed.
type BulkBuyItem struct {
	ProductID     string  `json:"productId"`
	Name          string  `json:"name"`
	SKU           string  `json:"sku"`
	SelectedColor *string `json:"selectedColor,omitempty"`
	SelectedSize  *string `json:"selectedSize,omitempty"`
	Quantity      int     `json:"quantity"`
	UnitPrice     string  `json:"unitPrice"`
	LineTotal     string  `json:"lineTotal"`
}
