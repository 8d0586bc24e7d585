package models

type Store struct {
	ID        string
	Name      string
	Finalized bool
}

type Seller struct {
	ID   string
	Name string
}

// MaxSellersPerStore is the assignment cap; reaching it finalizes the store.
const MaxSellersPerStore = 2

type Assignment struct {
	StoreID  string `json:"codigo_loja"`
	SellerID string `json:"codigo_vendedor"`
}
