package healthcheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type status struct {
	Status string `json:"status"`
	Mode   string `json:"mode"`
}

// NormalizeListen turns a bare port ("8080") into a listen address.
func NormalizeListen(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, ":") {
		return ":" + raw
	}
	return raw
}

// NewRouter serves GET /health.
func NewRouter(mode string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(status{Status: "ok", Mode: mode})
	})
	return r
}

// StartServer binds listen and serves the health router in the background.
// The caller owns Shutdown.
func StartServer(ctx context.Context, logger *slog.Logger, listen, mode string) (*http.Server, error) {
	listen = NormalizeListen(listen)
	if listen == "" {
		return nil, fmt.Errorf("health listen address is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return nil, err
	}
	srv := &http.Server{
		Handler:           NewRouter(mode),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("health_server_error", "addr", ln.Addr().String(), "error", err.Error())
		}
	}()
	logger.Info("health_server_start", "addr", ln.Addr().String(), "mode", mode)
	return srv, nil
}
