package model

import "time"

// CartItem is one line of a cart. PriceAtAdd is refreshed on every repeat add.
type CartItem struct {
	CartItemID  int64   `json:"cartitemid"`
	ProductID   int64   `json:"productid"`
	ProductName string  `json:"productname,omitempty"`
	Variant     Variant `json:"variant"`
	Quantity    int     `json:"quantity"`
	PriceAtAdd  float64 `json:"priceatadd"`
}

type Cart struct {
	CartID    int64      `json:"cartid"`
	UserID    int64      `json:"userid"`
	Items     []CartItem `json:"items"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// FindItem returns the index of the line for productID+variant, or -1.
func (c *Cart) FindItem(productID int64, v Variant) int {
	for i, it := range c.Items {
		if it.ProductID == productID && it.Variant.Matches(v) {
			return i
		}
	}
	return -1
}

func (c *Cart) ItemByID(itemID int64) int {
	for i, it := range c.Items {
		if it.CartItemID == itemID {
			return i
		}
	}
	return -1
}

// CartResponse is what GET /cart returns
type CartResponse struct {
	*Cart
	TotalValue float64 `json:"totalvalue"`
	TotalItems int     `json:"totalitems"`
}

func NewCartResponse(c *Cart) *CartResponse {
	resp := &CartResponse{Cart: c}
	if c.Items == nil {
		c.Items = []CartItem{}
	}
	for _, it := range c.Items {
		resp.TotalValue += it.PriceAtAdd * float64(it.Quantity)
		resp.TotalItems += it.Quantity
	}
	return resp
}
