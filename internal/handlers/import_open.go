package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"sales_import/internal/services/importer"
)

type importRequest struct {
	FilePath       string `json:"file_path"`
	BatchSize      int    `json:"batch_size"`
	TimeoutMin     int    `json:"timeout_minutes,omitempty"`
	ImportRecordID string `json:"import_record_id"`
}

func (h *Handlers) Import(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.JSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "use POST"})
		return
	}

	var req importRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(&req); err != nil {
		h.Logger.Printf("[IMPORT][REQ][ERR] bad JSON: %v", err)
		h.JSON(w, http.StatusBadRequest, map[string]string{"error": "bad JSON: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.FilePath) == "" {
		h.Logger.Printf("[IMPORT][REQ][ERR] file_path is required")
		h.JSON(w, http.StatusBadRequest, map[string]string{"error": "file_path is required"})
		return
	}
	if req.BatchSize <= 0 {
		req.BatchSize = h.App.Ingestor.ChunkSize()
	}
	if req.ImportRecordID == "" {
		req.ImportRecordID = uuid.NewString()
	}

	timeout := h.ImportTimeout
	if req.TimeoutMin > 0 {
		timeout = time.Duration(req.TimeoutMin) * time.Minute
	}
	h.startImport(importer.Request{
		FilePath:       req.FilePath,
		BatchSize:      req.BatchSize,
		ImportRecordID: req.ImportRecordID,
	}, timeout)

	h.JSON(w, http.StatusAccepted, map[string]any{
		"status":           "started",
		"file_path":        req.FilePath,
		"batch_size":       req.BatchSize,
		"import_record_id": req.ImportRecordID,
	})
}

// startImport runs one import in the background, detached from the request.
func (h *Handlers) startImport(req importer.Request, timeout time.Duration) {
	h.running.Add(1)
	go func() {
		defer h.running.Done()
		start := time.Now()

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		res, err := h.App.Importer.Import(ctx, req)
		if err != nil {
			h.Logger.Printf("[IMPORT][ERR][BG] path=%q run=%s err=%v took=%s",
				req.FilePath, req.ImportRecordID, err, time.Since(start))
			return
		}

		s := res.Report.Summary
		h.Logger.Printf("[IMPORT][OK][BG] run=%s src=%s fmt=%s rows=%d inserted=%d duplicates=%d rejected=%d reports=%v took=%s",
			req.ImportRecordID, res.Source, res.Format, res.RowsRead, s.Inserted, s.RejectedDuplicate, s.RejectedOther,
			res.ReportFiles, time.Since(start))
	}()
}
