package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the catalogue view of a product consumed by the order workflow.
type Product struct {
	ID            int64               `json:"id" db:"id"`
	Name          string              `json:"name" db:"name"`
	Image         string              `json:"image,omitempty" db:"image"`
	SpecName      string              `json:"specName,omitempty" db:"spec_name"`
	UnitName      string              `json:"unitName,omitempty" db:"unit_name"`
	SalePrice     decimal.Decimal     `json:"salePrice" db:"sale_price"`
	DiscountPrice decimal.NullDecimal `json:"discountPrice" db:"discount_price"`
	StockQuantity int                 `json:"stockQuantity" db:"stock_quantity"`
}

// EffectivePrice is the discount price when one is set, otherwise the sale price.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.DiscountPrice.Valid && p.DiscountPrice.Decimal.IsPositive() {
		return p.DiscountPrice.Decimal
	}
	return p.SalePrice
}

// CartLine is a product selection in a user's cart.
type CartLine struct {
	ID        int64 `json:"id" db:"id"`
	UserID    int64 `json:"userId" db:"user_id"`
	ProductID int64 `json:"productId" db:"product_id"`
	Quantity  int   `json:"quantity" db:"quantity"`
}

// StockLevel is the available quantity of one product.
type StockLevel struct {
	ProductID int64     `json:"productId" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// RestockRequest names the restock feeds to apply.
type RestockRequest struct {
	Feeds []string `json:"feeds"`
}

// RestockResult summarises an applied restock.
type RestockResult struct {
	Feeds    int           `json:"feeds"`
	Products int           `json:"products"`
	Units    int           `json:"units"`
	Released map[int64]int `json:"released"`
}
