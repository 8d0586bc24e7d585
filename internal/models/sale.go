package models

import "time"

type Sale struct {
	TaxID         string
	CustomerID    int64
	CustomerName  string
	BirthDate     time.Time
	Phone         string
	StoreID       string
	SellerID      string
	ProductCode   string
	ProductName   string
	Quantity      int
	UnitAmount    float64
	SaleDate      time.Time
	PurchaseDate  time.Time
	PaymentMethod string
	Errors        []string
	CreatedAt     *time.Time
}
