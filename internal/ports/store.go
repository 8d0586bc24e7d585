package ports

import (
	"context"

	"sales_import/internal/models"
)

// Tx is the primitive row access available inside one store transaction.
// Implementations do not enforce business rules; the constraint engine does.
// InsertSale must report a tax id collision caught by a storage-level unique
// index as models.ErrDuplicateTaxIdentifier.
type Tx interface {
	GetStore(ctx context.Context, id string) (models.Store, bool, error)
	UpsertStore(ctx context.Context, s models.Store) error
	SetStoreFinalized(ctx context.Context, id string, finalized bool) error
	ListStores(ctx context.Context) ([]models.Store, error)

	GetSeller(ctx context.Context, id string) (models.Seller, bool, error)
	UpsertSeller(ctx context.Context, s models.Seller) error

	// ListAssignments returns the pairs of one store, or of every store when
	// storeID is empty.
	ListAssignments(ctx context.Context, storeID string) ([]models.Assignment, error)
	InsertAssignment(ctx context.Context, a models.Assignment) error
	DeleteAssignment(ctx context.Context, a models.Assignment) (bool, error)

	TaxIDExists(ctx context.Context, taxID string) (bool, error)
	InsertSale(ctx context.Context, s models.Sale) error
	CountSales(ctx context.Context) (int64, error)
}

// TxRunner executes fn inside a single committed transaction. Keys name the
// logical resources the closure checks and writes ("store:L001", "tax:123");
// the backend must serialize concurrent transactions sharing a key.
// An error returned by fn rolls the transaction back.
type TxRunner interface {
	WithTx(ctx context.Context, keys []string, fn func(ctx context.Context, tx Tx) error) error
	Close() error
}
