package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales_import/internal/app"
	"sales_import/internal/config"
)

type harness struct {
	t   *testing.T
	dir string
	app *app.App
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{Settings: config.Settings{
		StoreBackend: "memory",
		ChunkSize:    50,
		SellerPolicy: "reject",
		DuplicateLog: filepath.Join(dir, "dup.jsonl"),
		DuplicateCSV: filepath.Join(dir, "dup.csv"),
	}}
	a, err := app.New(context.Background(), cfg)
	require.NoError(t, err)
	return &harness{t: t, dir: dir, app: a}
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	return runWith(func(context.Context) (*app.App, error) { return h.app, nil }, args...)
}

func runWith(open Opener, args ...string) (string, error) {
	cmd := NewRootCommand(open)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func (h *harness) seed() {
	h.t.Helper()
	ctx := context.Background()
	for _, s := range []string{"L001", "L002"} {
		require.NoError(h.t, h.app.Engine.CreateStore(ctx, s, "Loja "+s))
	}
	for _, s := range []string{"V001", "V002", "V003"} {
		require.NoError(h.t, h.app.Engine.CreateSeller(ctx, s, "Vendedor "+s))
	}
	require.NoError(h.t, h.app.Engine.Assign(ctx, "L001", "V001", false))
	require.NoError(h.t, h.app.Engine.Assign(ctx, "L001", "V002", false))
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand(nil)
	commands := []string{
		"lock", "unlock", "assign", "unassign", "reassign", "bulk-assign", "repair-finalized",
		"list-mappings", "export-mappings", "import-mappings", "ingest", "duplicates-summary",
	}
	for _, name := range commands {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestInvalidFormat(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("--format", "yaml", "list-mappings")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestLockNeedsConfirmation(t *testing.T) {
	h := newHarness(t)
	h.seed()

	out, err := h.run("unlock", "L001")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E007")

	out, err = h.run("unlock", "L001", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "store L001 unlocked")

	_, err = h.run("lock", "L001", "-y")
	require.NoError(t, err)
	st, _, err := h.app.Engine.GetStore(context.Background(), "L001")
	require.NoError(t, err)
	assert.True(t, st.Finalized)
}

func TestUnlockForceConfirms(t *testing.T) {
	h := newHarness(t)
	h.seed()
	_, err := h.run("unlock", "L001", "--force")
	require.NoError(t, err)
}

func TestAssignLimitJSON(t *testing.T) {
	h := newHarness(t)
	h.seed()

	out, err := h.run("--format", "json", "assign", "L001", "V003")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeLimit, resp.Error.Code)
}

func TestReassign(t *testing.T) {
	h := newHarness(t)
	h.seed()

	_, err := h.run("reassign", "L001", "V002", "V003")
	require.Error(t, err)

	out, err := h.run("reassign", "L001", "V002", "V003", "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "V002 replaced by V003")

	out, err = h.run("list-mappings", "L001")
	require.NoError(t, err)
	assert.Equal(t, "L001\tV001\nL001\tV003\n", out)
}

func TestBulkAssignPartialFailure(t *testing.T) {
	h := newHarness(t)
	h.seed()

	out, err := h.run("bulk-assign", "V003", "L001", "L002", "L003")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "assigned 2 of 3 stores")
	assert.Contains(t, out, "L001")

	_, err = h.run("bulk-assign", "V999", "L002")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestExportImportMappings(t *testing.T) {
	h := newHarness(t)
	h.seed()
	target := filepath.Join(h.dir, "out", "mapeamento.xlsx")

	out, err := h.run("export-mappings", "--out", target)
	require.NoError(t, err)
	assert.Contains(t, out, target)

	other := newHarness(t)
	out, err = other.run("--format", "json", "import-mappings", target)
	require.NoError(t, err)
	var resp struct {
		Data struct {
			Assigned int `json:"assigned"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 2, resp.Data.Assigned)
}

func TestIngestAndDuplicatesSummary(t *testing.T) {
	h := newHarness(t)
	src := filepath.Join(h.dir, "vendas.csv")
	require.NoError(t, os.WriteFile(src, []byte(
		"cpf,codigo_loja,codigo_vendedor,data_venda\n"+
			"11111111111,L001,V001,15/01/2025\n"+
			"11111111111,L001,V001,16/01/2025\n"+
			"22222222222,L001,V001,16/01/2025\n"), 0o644))

	out, err := h.run("ingest", src, "--run-id", "run-cli")
	require.NoError(t, err)
	assert.Contains(t, out, "run run-cli: 3 records, 2 inserted, 1 duplicates, 0 rejected")

	out, err = h.run("duplicates-summary")
	require.NoError(t, err)
	assert.Contains(t, out, "date,total_duplicates,top_cpfs,top_lojas")
	assert.Contains(t, out, ",1,11111111111:1,L001:1")

	target := filepath.Join(h.dir, "resumo_duplicados.csv")
	_, err = h.run("duplicates-summary", "--out", target)
	require.NoError(t, err)
	_, err = os.Stat(target)
	assert.NoError(t, err)
}

func TestIngestMissingFile(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("ingest", filepath.Join(h.dir, "nope.csv"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRepairFinalizedNothingToDo(t *testing.T) {
	h := newHarness(t)
	h.seed()
	out, err := h.run("repair-finalized")
	require.NoError(t, err)
	assert.Equal(t, "nothing to repair\n", out)
}

func TestSetupFailure(t *testing.T) {
	cmd := NewRootCommand(func(context.Context) (*app.App, error) { return nil, assert.AnError })
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"list-mappings"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

// sqliteOpener builds a new app for every command over one database file,
// the way the admin binary runs.
func sqliteOpener(t *testing.T) Opener {
	t.Helper()
	dir := t.TempDir()
	return func(ctx context.Context) (*app.App, error) {
		cfg := &config.Config{Settings: config.Settings{
			StoreBackend: "sqlite",
			SQLitePath:   filepath.Join(dir, "data", "sales.db"),
			ChunkSize:    50,
			SellerPolicy: "reject",
			DuplicateLog: filepath.Join(dir, "dup.jsonl"),
			DuplicateCSV: filepath.Join(dir, "dup.csv"),
		}}
		if err := RequireDurable(cfg.StoreBackend); err != nil {
			return nil, err
		}
		return app.New(ctx, cfg)
	}
}

func TestCommandsPersistAcrossInvocations(t *testing.T) {
	open := sqliteOpener(t)
	src := filepath.Join(t.TempDir(), "mappings.csv")
	require.NoError(t, os.WriteFile(src, []byte("codigo_loja,codigo_vendedor\nL001,V001\nL001,V002\n"), 0o644))

	_, err := runWith(open, "import-mappings", src)
	require.NoError(t, err)

	out, err := runWith(open, "list-mappings")
	require.NoError(t, err)
	assert.Equal(t, "L001\tV001\nL001\tV002\n", out)

	out, err = runWith(open, "unassign", "L001", "V001")
	require.Error(t, err)
	assert.Contains(t, out, "E002")

	_, err = runWith(open, "unlock", "L001", "--yes")
	require.NoError(t, err)

	// the unlock has to survive the next process reopening the database
	_, err = runWith(open, "unassign", "L001", "V001")
	require.NoError(t, err)

	out, err = runWith(open, "list-mappings", "L001")
	require.NoError(t, err)
	assert.Equal(t, "L001\tV002\n", out)

	_, err = runWith(open, "lock", "L001", "--yes")
	require.NoError(t, err)
	out, err = runWith(open, "unassign", "L001", "V002")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E002")
}

func TestRequireDurable(t *testing.T) {
	assert.ErrorIs(t, RequireDurable("memory"), ErrVolatileBackend)
	assert.ErrorIs(t, RequireDurable(" Memory "), ErrVolatileBackend)
	assert.ErrorIs(t, RequireDurable(""), ErrVolatileBackend)
	assert.NoError(t, RequireDurable("sqlite"))
	assert.NoError(t, RequireDurable("postgres"))

	_, err := runWith(func(context.Context) (*app.App, error) {
		return nil, RequireDurable("memory")
	}, "list-mappings")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
