package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sales_import/internal/handlers"
	"sales_import/internal/transport/auth"
)

type Server struct {
	httpServer *http.Server
	handlers   *handlers.Handlers
}

// NewServer routes the handlers. When checker is non-nil everything except
// /health and /metrics requires a bearer token.
func NewServer(port string, h *handlers.Handlers, checker auth.TokenChecker) *Server {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())

	if h != nil {
		protect := func(f http.HandlerFunc) http.Handler { return f }
		if checker != nil {
			mw := auth.BearerMiddleware(checker)
			protect = func(f http.HandlerFunc) http.Handler { return mw(f) }
		}

		mux.HandleFunc("/health", h.Health)
		mux.Handle("/mappings", protect(h.Mappings))
		mux.Handle("/runs", protect(h.Runs))
		mux.Handle("/runs/", protect(h.Runs))
		mux.Handle("/import", protect(h.Import))
		mux.Handle("/upload", protect(h.Upload))
	}

	return &Server{
		handlers: h,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%s", port),
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := s.httpServer.Shutdown(shCtx)
		if s.handlers != nil {
			log.Printf("[SERVER] waiting for background imports")
			s.handlers.Wait()
		}
		return err
	case err := <-errCh:
		return err
	}
}
