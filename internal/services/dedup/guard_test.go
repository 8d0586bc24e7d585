package dedup

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales_import/internal/models"
	"sales_import/internal/ports"
	"sales_import/internal/repository/memory"
	"sales_import/internal/services/constraints"
)

var quiet = log.New(io.Discard, "", 0)

type recordingSink struct {
	entries []models.DuplicateAuditEntry
	err     error
}

func (s *recordingSink) Append(_ context.Context, e models.DuplicateAuditEntry) error {
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, e)
	return nil
}

func newEngine(t *testing.T) *constraints.Engine {
	t.Helper()
	ctx := context.Background()
	e := constraints.NewEngine(memory.New(), constraints.Options{Logger: quiet})
	for _, s := range []string{"L001", "L002"} {
		require.NoError(t, e.CreateStore(ctx, s, ""))
	}
	for _, s := range []string{"V001", "V003"} {
		require.NoError(t, e.CreateSeller(ctx, s, ""))
	}
	require.NoError(t, e.Assign(ctx, "L001", "V001", false))
	require.NoError(t, e.Assign(ctx, "L002", "V003", false))
	return e
}

func TestGuard_DuplicateIsAuditedOnce(t *testing.T) {
	sink := &recordingSink{}
	g := NewGuard(newEngine(t), sink, quiet)
	g.now = func() time.Time { return time.Date(2025, 9, 25, 10, 0, 0, 0, time.UTC) }

	ctx := context.WithValue(context.Background(), ports.CtxRunID, "run-1")

	out, err := g.Insert(ctx, models.Sale{TaxID: "11111111111", StoreID: "L001", SellerID: "V001"})
	require.NoError(t, err)
	assert.Equal(t, Inserted, out)
	assert.Empty(t, sink.entries)

	out, err = g.Insert(ctx, models.Sale{TaxID: "11111111111", StoreID: "L002", SellerID: "V003"})
	require.NoError(t, err)
	assert.Equal(t, RejectedDuplicate, out)

	require.Len(t, sink.entries, 1)
	got := sink.entries[0]
	assert.Equal(t, "11111111111", got.TaxID)
	assert.Equal(t, "L002", got.StoreID)
	assert.Equal(t, "V003", got.SellerID)
	assert.Equal(t, "run-1", got.RunID)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "2025-09-25", got.Timestamp.Format("2006-01-02"))
}

func TestGuard_OtherRejections(t *testing.T) {
	sink := &recordingSink{}
	g := NewGuard(newEngine(t), sink, quiet)

	out, err := g.Insert(context.Background(), models.Sale{TaxID: "22222222222", StoreID: "L001", SellerID: "V003"})
	assert.Equal(t, RejectedOther, out)
	assert.ErrorIs(t, err, models.ErrSellerNotAssigned)
	assert.Empty(t, sink.entries)
}

func TestGuard_AuditFailureStillRejects(t *testing.T) {
	sink := &recordingSink{err: errors.New("disk full")}
	g := NewGuard(newEngine(t), sink, quiet)
	ctx := context.Background()

	_, err := g.Insert(ctx, models.Sale{TaxID: "33333333333", StoreID: "L001", SellerID: "V001"})
	require.NoError(t, err)

	out, err := g.Insert(ctx, models.Sale{TaxID: "33333333333", StoreID: "L001", SellerID: "V001"})
	assert.Equal(t, RejectedDuplicate, out)
	assert.ErrorContains(t, err, "disk full")
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "inserted", Inserted.String())
	assert.Equal(t, "duplicate", RejectedDuplicate.String())
	assert.Equal(t, "rejected", RejectedOther.String())
}
