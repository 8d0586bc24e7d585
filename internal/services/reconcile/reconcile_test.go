package reconcile

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales_import/internal/models"
	"sales_import/internal/repository/memory"
	"sales_import/internal/services/constraints"
)

var quiet = log.New(io.Discard, "", 0)

func row(store, storeName, seller, sellerName string) map[string]string {
	return map[string]string{
		models.ColStoreID:    store,
		models.ColStoreName:  storeName,
		models.ColSellerID:   seller,
		models.ColSellerName: sellerName,
	}
}

func TestReconcile_UpsertsAndAssigns(t *testing.T) {
	ctx := context.Background()
	e := constraints.NewEngine(memory.New(), constraints.Options{Logger: quiet})
	r := New(e, quiet)

	res, err := r.Reconcile(ctx, []map[string]string{
		row("L001", "Loja  Centro", "V001", "Ana"),
		row("L001", "Loja Centro", "V001", "Ana"),
		row("L001", "", "V002", "Bruno"),
		row("L001", "", "V003", "Carla"),
		row("L002", "Loja Norte", "V003", ""),
		row("", "", "V004", "Davi"),
	})
	require.NoError(t, err)
	assert.Equal(t, Result{Stores: 2, Sellers: 4, Pairs: 4, Assigned: 3, Warnings: 1}, res)

	st, ok, err := e.GetStore(ctx, "L001")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Loja Centro", st.Name)
	assert.True(t, st.Finalized)

	pairs, err := e.ListAssignments(ctx, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []models.Assignment{
		{StoreID: "L001", SellerID: "V001"},
		{StoreID: "L001", SellerID: "V002"},
		{StoreID: "L002", SellerID: "V003"},
	}, pairs)

	_, ok, err = e.GetSeller(ctx, "V004")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReconcile_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	e := constraints.NewEngine(memory.New(), constraints.Options{Logger: quiet})
	r := New(e, quiet)
	rows := []map[string]string{row("L001", "Loja", "V001", "Ana"), row("L001", "Loja", "V002", "Bia")}

	_, err := r.Reconcile(ctx, rows)
	require.NoError(t, err)
	res, err := r.Reconcile(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Assigned)
	assert.Zero(t, res.Warnings)
}

func TestNormalizeName(t *testing.T) {
	// "e" followed by a combining acute accent composes to a single rune
	assert.Equal(t, "Jos\u00e9 da Silva", NormalizeName("  Jose\u0301   da\tSilva "))
	assert.Equal(t, "", NormalizeName("   "))
}
