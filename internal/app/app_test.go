package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales_import/internal/adapters/auditsink"
	"sales_import/internal/config"
	"sales_import/internal/models"
	"sales_import/internal/services/constraints"
)

func testConfig(t *testing.T, backend string) *config.Config {
	dir := t.TempDir()
	return &config.Config{Settings: config.Settings{
		StoreBackend: backend,
		SQLitePath:   filepath.Join(dir, "sales.db"),
		ChunkSize:    10,
		SampleSize:   5,
		Workers:      1,
		SellerPolicy: "reject",
		ReportsDir:   filepath.Join(dir, "reports"),
		DuplicateLog: filepath.Join(dir, "dup.jsonl"),
		DuplicateCSV: filepath.Join(dir, "dup.csv"),
	}}
}

func TestNew_MemoryBackend(t *testing.T) {
	a, err := New(context.Background(), testConfig(t, ""))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.Equal(t, "memory", a.Backend)
	assert.Equal(t, constraints.PolicyReject, a.Engine.Policy())
	assert.Nil(t, a.Runs)
	assert.IsType(t, &auditsink.File{}, a.Audit)
	assert.Equal(t, 10, a.Ingestor.ChunkSize())
}

func TestNew_RejectsUnknownPolicy(t *testing.T) {
	cfg := testConfig(t, "memory")
	cfg.SellerPolicy = "random"
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNew_RejectsUnknownBackend(t *testing.T) {
	_, err := New(context.Background(), testConfig(t, "oracle"))
	assert.Error(t, err)
}

func TestNew_SQLiteEndToEnd(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, "sqlite")
	a, err := New(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	row := func(cpf, seller string) map[string]string {
		return map[string]string{
			models.ColTaxID:     cpf,
			models.ColStoreID:   "L001",
			models.ColStoreName: "Loja Centro",
			models.ColSellerID:  seller,
			models.ColSaleDate:  "15/01/2025",
			models.ColPhone:     "11987654321",
		}
	}
	rep, err := a.Ingestor.Ingest(ctx, []map[string]string{
		row("11111111111", "V001"),
		row("22222222222", "V002"),
		row("11111111111", "V002"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Summary.Inserted)
	assert.Equal(t, 1, rep.Summary.RejectedDuplicate)

	entries, err := a.Audit.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "11111111111", entries[0].TaxID)

	st, ok, err := a.Engine.GetStore(ctx, "L001")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, st.Finalized)

	_, err = os.Stat(cfg.DuplicateCSV)
	assert.NoError(t, err)
	assert.NotNil(t, a.Importer)
}
