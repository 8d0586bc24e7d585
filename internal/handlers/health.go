package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"
)

type healthResp struct {
	OK      bool     `json:"ok"`
	Backend string   `json:"backend"`
	Errors  []string `json:"errors,omitempty"`
}

func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp := healthResp{OK: true, Backend: h.App.Backend}

	if _, err := h.App.Engine.ListStores(ctx); err != nil {
		resp.Errors = append(resp.Errors, "store: "+err.Error())
	}
	if err := h.App.Config.CheckConnections(ctx); err != nil {
		var joined interface{ Unwrap() []error }
		if errors.As(err, &joined) {
			for _, e := range joined.Unwrap() {
				resp.Errors = append(resp.Errors, e.Error())
			}
		} else {
			resp.Errors = append(resp.Errors, err.Error())
		}
	}

	code := http.StatusOK
	if len(resp.Errors) > 0 {
		resp.OK = false
		code = http.StatusInternalServerError
	}
	h.JSON(w, code, resp)
}
