package models

import "time"

type DuplicateAuditEntry struct {
	ID        string    `json:"id" bson:"_id"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
	TaxID     string    `json:"cpf" bson:"cpf"`
	StoreID   string    `json:"codigo_loja" bson:"codigo_loja"`
	SellerID  string    `json:"codigo_vendedor" bson:"codigo_vendedor"`
	RunID     string    `json:"run_id,omitempty" bson:"run_id,omitempty"`
}
