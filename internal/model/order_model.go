package model

import "time"

// Order status values
const (
	OrderProcessing = "processing"
	OrderShipped    = "shipped"
	OrderDelivered  = "delivered"
	OrderCancelled  = "cancelled"
)

// Order payment status values
const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

func ValidOrderStatus(s string) bool {
	switch s {
	case OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// OrderItem is a frozen snapshot of a cart line taken at order creation.
type OrderItem struct {
	OrderItemID     int64   `json:"orderitemid"`
	ProductID       int64   `json:"productid"`
	Variant         Variant `json:"variant"`
	Quantity        int     `json:"quantity"`
	PriceAtPurchase float64 `json:"priceatpurchase"`
	Name            string  `json:"name"`
}

type Order struct {
	OrderID         int64       `json:"orderid"`
	UserID          int64       `json:"userid"`
	Items           []OrderItem `json:"items"`
	TotalAmount     float64     `json:"totalamount"`
	ShippingAddress Address     `json:"shippingaddress"`
	PaymentStatus   string      `json:"paymentstatus"`
	OrderStatus     string      `json:"orderstatus"`
	PaymentMethod   string      `json:"paymentmethod"`
	PaidAt          *time.Time  `json:"paidat,omitempty"`
	DeliveredAt     *time.Time  `json:"deliveredat,omitempty"`
	CreatedAt       *time.Time  `json:"created_at,omitempty"`
	UpdatedAt       *time.Time  `json:"updated_at,omitempty"`
}

func (o *Order) TotalItems() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

// QuantityByProduct sums line quantities per product, so variant lines of
// one product count against the same stock.
func (o *Order) QuantityByProduct() map[int64]int {
	out := make(map[int64]int, len(o.Items))
	for _, it := range o.Items {
		out[it.ProductID] += it.Quantity
	}
	return out
}

// OrderStats aggregates a user's orders
type OrderStats struct {
	TotalOrders   int64   `json:"totalorders"`
	TotalSpent    float64 `json:"totalspent"`
	AvgOrderValue float64 `json:"avgordervalue"`
}
