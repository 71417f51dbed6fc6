package upstream

// Product mirrors the retail backend's public product payload. Price is a
// pointer because price-on-request items ship without one.
type Product struct {
	SKU             string   `json:"sku"`
	Name            string   `json:"name"`
	Description     *string  `json:"description"`
	Category        *string  `json:"category"`
	Subcategory     *string  `json:"subcategory"`
	StockType       string   `json:"stock_type"`
	Price           *float64 `json:"price"`
	Qty             int      `json:"qty"`
	Tags            []string `json:"tags"`
	PrimaryImage    *string  `json:"primary_image"`
	RelatedProducts []string `json:"related_products"`
}

// ProductQuery narrows the public product listing.
type ProductQuery struct {
	Search   string
	Category string
	Limit    int
}

type OrderItem struct {
	SKU   string  `json:"sku"`
	Qty   int     `json:"qty"`
	Price float64 `json:"price"`
}

// OrderRequest is the combined customer + line payload the backend expects
// at checkout.
type OrderRequest struct {
	CustomerName  string      `json:"customer_name"`
	CustomerPhone string      `json:"customer_phone"`
	Items         []OrderItem `json:"items"`
}

type Order struct {
	ID          string      `json:"_id"`
	TotalAmount float64     `json:"total_amount"`
	Status      string      `json:"status"`
	Items       []OrderItem `json:"items"`
}

type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type SignupParams struct {
	Name     string
	Phone    string
	Password string
	Email    string
}

type LoginParams struct {
	Phone    string
	Password string
}

// PaymentOrder is the gateway descriptor issued by the backend before the
// hosted widget opens.
type PaymentOrder struct {
	OrderID  string  `json:"order_id"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	KeyID    string  `json:"key_id"`
}

// VerifyParams carries the provider identifiers returned by the widget's
// success callback, plus the amount the buyer saw.
type VerifyParams struct {
	ProviderOrderID   string
	ProviderPaymentID string
	ProviderSignature string
	TotalAmount       float64
}

type VerifyResult struct {
	OK      bool   `json:"ok"`
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}
