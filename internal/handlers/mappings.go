package handlers

import (
	"bytes"
	"net/http"
	"strings"

	"sales_import/internal/services/assignments"
)

// Mappings exports the store/seller pairs as CSV (default) or XLSX.
func (h *Handlers) Mappings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.JSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "use GET"})
		return
	}

	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = assignments.FormatCSV
	}
	if format != assignments.FormatCSV && format != assignments.FormatXLSX {
		h.JSON(w, http.StatusBadRequest, map[string]string{"error": "format must be csv or xlsx"})
		return
	}

	var buf bytes.Buffer
	if err := h.App.Assignments.WriteMappings(r.Context(), &buf, format); err != nil {
		h.Logger.Printf("[MAPPINGS][ERR] export: %v", err)
		h.JSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	w.Header().Set("Content-Type", assignments.ContentType(format))
	w.Header().Set("Content-Disposition", `attachment; filename="mapeamento_lojas_vendedores.`+format+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
