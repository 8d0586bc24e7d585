package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales_import/internal/app"
	"sales_import/internal/config"
	"sales_import/internal/handlers"
	"sales_import/internal/transport/auth"
)

const salesCSV = "cpf,codigo_loja,nome_loja,codigo_vendedor,nome_vendedor,data_venda,telefone\n" +
	"111.111.111-11,L001,Loja Centro,V001,Ana,15/01/2025,11987654321\n" +
	"22222222222,L001,Loja Centro,V002,Bruno,15/01/2025,11987654321\n" +
	"11111111111,L001,Loja Centro,V002,Bruno,16/01/2025,11987654321\n"

type fixture struct {
	dir string
	app *app.App
	h   *handlers.Handlers
	srv *httptest.Server
}

func newFixture(t *testing.T, tokens []string) fixture {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{Settings: config.Settings{
		StoreBackend: "memory",
		ChunkSize:    2,
		SellerPolicy: "reject",
		ReportsDir:   filepath.Join(dir, "reports"),
		UploadsDir:   filepath.Join(dir, "uploads"),
		DuplicateLog: filepath.Join(dir, "dup.jsonl"),
		DuplicateCSV: filepath.Join(dir, "dup.csv"),
	}}
	a, err := app.New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	h := handlers.New(a)
	var checker auth.TokenChecker
	if len(tokens) > 0 {
		checker = auth.NewStaticTokens(tokens)
	}
	srv := httptest.NewServer(NewServer("0", h, checker).Handler())
	t.Cleanup(srv.Close)
	return fixture{dir: dir, app: a, h: h, srv: srv}
}

func postJSON(t *testing.T, url string, body any, token string) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(b))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func getWithToken(t *testing.T, url, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestReadEndpoints_RequireToken(t *testing.T) {
	f := newFixture(t, []string{"ops:s3cret"})

	cases := []struct {
		path   string
		authed int
	}{
		{"/mappings", http.StatusOK},
		{"/mappings?format=xlsx", http.StatusOK},
		{"/runs", http.StatusNotImplemented},
		{"/runs/run-1", http.StatusNotImplemented},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			resp := getWithToken(t, f.srv.URL+tc.path, "")
			resp.Body.Close()
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

			resp = getWithToken(t, f.srv.URL+tc.path, "wrong")
			resp.Body.Close()
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

			resp = getWithToken(t, f.srv.URL+tc.path, "s3cret")
			resp.Body.Close()
			assert.Equal(t, tc.authed, resp.StatusCode)
		})
	}

	for _, path := range []string{"/health", "/metrics"} {
		resp := getWithToken(t, f.srv.URL+path, "")
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)
	resp, err := http.Get(f.srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "memory", body["backend"])
}

func TestImportThenMappings(t *testing.T) {
	f := newFixture(t, nil)
	src := filepath.Join(f.dir, "vendas.csv")
	require.NoError(t, os.WriteFile(src, []byte(salesCSV), 0o644))

	resp := postJSON(t, f.srv.URL+"/import", map[string]any{"file_path": src, "import_record_id": "run-7"}, "")
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	f.h.Wait()

	n, err := f.app.Engine.CountSales(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	entries, err := f.app.Audit.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "run-7", entries[0].RunID)

	reports, err := filepath.Glob(filepath.Join(f.dir, "reports", "resumo_qualidade_*.csv"))
	require.NoError(t, err)
	assert.Len(t, reports, 1)

	mresp, err := http.Get(f.srv.URL + "/mappings")
	require.NoError(t, err)
	defer mresp.Body.Close()
	assert.Equal(t, http.StatusOK, mresp.StatusCode)
	assert.Equal(t, "text/csv", mresp.Header.Get("Content-Type"))
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(mresp.Body)
	assert.Equal(t, "codigo_loja,codigo_vendedor\nL001,V001\nL001,V002\n", buf.String())
}

func TestImport_Validation(t *testing.T) {
	f := newFixture(t, nil)

	resp := postJSON(t, f.srv.URL+"/import", map[string]any{"file_path": " "}, "")
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	get, err := http.Get(f.srv.URL + "/import")
	require.NoError(t, err)
	get.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, get.StatusCode)
}

func TestImport_RequiresToken(t *testing.T) {
	f := newFixture(t, []string{"ops:s3cret"})
	src := filepath.Join(f.dir, "vendas.csv")
	require.NoError(t, os.WriteFile(src, []byte(salesCSV), 0o644))

	resp := postJSON(t, f.srv.URL+"/import", map[string]any{"file_path": src}, "")
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = postJSON(t, f.srv.URL+"/import", map[string]any{"file_path": src}, "s3cret")
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	f.h.Wait()

	// health stays open
	h, err := http.Get(f.srv.URL + "/health")
	require.NoError(t, err)
	h.Body.Close()
	assert.Equal(t, http.StatusOK, h.StatusCode)
}

func TestUpload_StoresLocallyAndImports(t *testing.T) {
	f := newFixture(t, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "vendas.csv")
	require.NoError(t, err)
	_, _ = fw.Write([]byte(salesCSV))
	require.NoError(t, mw.Close())

	resp, err := http.Post(f.srv.URL+"/upload", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	f.h.Wait()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	path, _ := out["path"].(string)
	assert.True(t, strings.HasPrefix(path, filepath.Join(f.dir, "uploads", "imports")))
	assert.Equal(t, true, out["started"])

	n, err := f.app.Engine.CountSales(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestRuns_NeedMongo(t *testing.T) {
	f := newFixture(t, nil)
	resp, err := http.Get(f.srv.URL + "/runs/abc")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, nil)
	resp, err := http.Get(f.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
