// Package dedup rejects sales whose tax id is already booked and keeps an
// append-only trail of every rejection.
package dedup

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"sales_import/internal/metrics"
	"sales_import/internal/models"
	"sales_import/internal/ports"
)

type Outcome int

const (
	Inserted Outcome = iota
	RejectedDuplicate
	RejectedOther
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case RejectedDuplicate:
		return "duplicate"
	default:
		return "rejected"
	}
}

type SaleRecorder interface {
	RecordSale(ctx context.Context, sale models.Sale) (models.Sale, error)
}

type Guard struct {
	store SaleRecorder
	sink  ports.AuditSink
	now   func() time.Time
	log   *log.Logger
}

func NewGuard(store SaleRecorder, sink ports.AuditSink, logger *log.Logger) *Guard {
	if logger == nil {
		logger = log.Default()
	}
	return &Guard{
		store: store,
		sink:  sink,
		now:   time.Now,
		log:   logger,
	}
}

// Insert books sale. A duplicate tax id is not an error: it yields
// RejectedDuplicate after exactly one audit entry has been appended. Any
// other refusal yields RejectedOther with the reason.
func (g *Guard) Insert(ctx context.Context, sale models.Sale) (Outcome, error) {
	_, err := g.store.RecordSale(ctx, sale)
	switch {
	case err == nil:
		metrics.ObserveSale(Inserted.String())
		return Inserted, nil

	case errors.Is(err, models.ErrDuplicateTaxIdentifier):
		metrics.ObserveSale(RejectedDuplicate.String())
		entry := models.DuplicateAuditEntry{
			ID:        uuid.NewString(),
			Timestamp: g.now().UTC(),
			TaxID:     sale.TaxID,
			StoreID:   sale.StoreID,
			SellerID:  sale.SellerID,
			RunID:     ports.RunID(ctx),
		}
		if g.sink == nil {
			return RejectedDuplicate, nil
		}
		if err := g.sink.Append(ctx, entry); err != nil {
			g.log.Printf("[GUARD] audit append failed cpf=%s store=%s: %v", sale.TaxID, sale.StoreID, err)
			return RejectedDuplicate, fmt.Errorf("append duplicate audit: %w", err)
		}
		return RejectedDuplicate, nil

	default:
		metrics.ObserveSale(RejectedOther.String())
		return RejectedOther, err
	}
}
