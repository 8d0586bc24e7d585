package handlers

import (
	"fmt"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"sales_import/internal/services/assignments"
	"sales_import/internal/services/importer"
)

// Upload accepts multipart/form-data with a `file` field, stores it in S3
// (or the local uploads dir) and starts an import of it unless start=false.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	// CORS preflight support for simple usage from frontend apps
	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if r.Method != http.MethodPost {
		h.JSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "use POST"})
		return
	}

	if err := r.ParseMultipartForm(128 << 20); err != nil {
		h.Logger.Printf("[UPLOAD][ERR] parse multipart: %v", err)
		h.JSON(w, http.StatusBadRequest, map[string]any{"error": "bad multipart: " + err.Error()})
		return
	}

	f, fh, err := r.FormFile("file")
	if err != nil {
		h.Logger.Printf("[UPLOAD][ERR] missing file: %v", err)
		h.JSON(w, http.StatusBadRequest, map[string]any{"error": "file is required"})
		return
	}
	defer f.Close()

	body, err := io.ReadAll(f)
	if err != nil {
		h.JSON(w, http.StatusBadRequest, map[string]any{"error": "read file: " + err.Error()})
		return
	}

	fname := path.Base(filepath.ToSlash(fh.Filename))
	key := fmt.Sprintf("imports/%d-%s", time.Now().UnixNano(), fname)

	target := filepath.Join(h.App.Config.UploadsDir, filepath.FromSlash(key))
	if s3c := h.App.Config.S3; s3c != nil {
		target = s3c.URL(key)
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = assignments.ContentType(assignments.FormatFor(fname))
	}
	loc, err := h.App.Writer.Write(r.Context(), target, contentType, body)
	if err != nil {
		h.Logger.Printf("[UPLOAD][ERR] store: %v", err)
		h.JSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to store file: " + err.Error()})
		return
	}

	id := uuid.NewString()
	resp := map[string]any{"id": id, "path": loc, "size_bytes": len(body), "started": false}

	if r.FormValue("start") != "false" {
		h.startImport(importer.Request{FilePath: loc, ImportRecordID: id}, h.ImportTimeout)
		resp["started"] = true
	}

	// add CORS header so browser clients can read the response
	w.Header().Set("Access-Control-Allow-Origin", "*")
	h.JSON(w, http.StatusCreated, resp)
}
