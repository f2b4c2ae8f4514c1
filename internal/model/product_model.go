package model

import "time"

// Variant identifies a purchasable flavour of a product. Cart and order lines
// only carry Color and Size.
type Variant struct {
	Color string `json:"color,omitempty"`
	Size  string `json:"size,omitempty"`
	SKU   string `json:"sku,omitempty"`
}

// Matches compares the line-identifying part of two variants.
func (v Variant) Matches(o Variant) bool {
	return v.Color == o.Color && v.Size == o.Size
}

type Product struct {
	ProductID       int64      `json:"productid"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	CategoryID      int64      `json:"categoryid"`
	CategoryName    string     `json:"categoryname,omitempty"`
	Price           float64    `json:"price"`
	DiscountPrice   *float64   `json:"discountprice,omitempty"`
	Images          []string   `json:"images"`
	Specs           []string   `json:"specs"`
	RatingsAverage  float64    `json:"ratingsaverage"`
	RatingsQuantity int        `json:"ratingsquantity"`
	StockQuantity   int        `json:"stockquantity"`
	Variants        []Variant  `json:"variants"`
	CreatedAt       *time.Time `json:"created_at,omitempty"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

// FinalPrice is the effective price: the discount price when it is set and
// below the list price, otherwise the list price.
func (p *Product) FinalPrice() float64 {
	if p.DiscountPrice != nil && *p.DiscountPrice < p.Price {
		return *p.DiscountPrice
	}
	return p.Price
}
