package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"sales_import/internal/repository/imports"
)

// Runs lists import runs, or returns one with GET /runs/{id}. Needs Mongo.
func (h *Handlers) Runs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.JSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "use GET"})
		return
	}
	m := h.App.Config.Mongo
	if m == nil {
		h.JSON(w, http.StatusNotImplemented, map[string]string{"error": "run records need MONGO_ENABLED=true"})
		return
	}

	if id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/runs"), "/"); id != "" {
		rec, err := imports.FindImportRecordByID(r.Context(), m, id)
		if err != nil {
			h.JSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		h.JSON(w, http.StatusOK, rec)
		return
	}

	limit, _ := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)
	skip, _ := strconv.ParseInt(r.URL.Query().Get("skip"), 10, 64)
	if limit <= 0 {
		limit = 50
	}
	recs, total, err := imports.ListImportRecords(r.Context(), m, nil, limit, skip)
	if err != nil {
		h.JSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	h.JSON(w, http.StatusOK, map[string]any{"items": recs, "total": total})
}
