package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"sales_import/internal/app"
)

type Handlers struct {
	App *app.App

	// ImportTimeout bounds a background import unless the request sets one.
	ImportTimeout time.Duration

	Logger *log.Logger

	running sync.WaitGroup
}

func New(a *app.App) *Handlers {
	return &Handlers{
		App:           a,
		ImportTimeout: 15 * time.Minute,
		Logger:        log.Default(),
	}
}

// Wait blocks until every background import started by these handlers has
// finished.
func (h *Handlers) Wait() {
	h.running.Wait()
}

func (h *Handlers) JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
