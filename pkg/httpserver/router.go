// Package httpserver mounts the MCP streamable HTTP transport and the
// operational endpoints on a chi router.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/wilhg/xmcp/pkg/errmodel"
	"github.com/wilhg/xmcp/pkg/observability"
)

// Params are the collaborators of the router.
type Params struct {
	Logger  *slog.Logger
	MCP     http.Handler
	Status  StatusFunc
	Metrics *observability.Metrics
	// Origins allowed by CORS. Empty allows any origin.
	Origins []string
	// RatePerMinute caps requests per client IP. Zero disables the cap.
	RatePerMinute int
}

// NewRouter builds the HTTP handler.
func NewRouter(p Params) http.Handler {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	origins := p.Origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"mcp-session-id", "mcp-protocol-version"},
		MaxAge:         300,
	}))
	if p.Metrics != nil {
		r.Use(p.Metrics.Middleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		if p.Status == nil {
			errmodel.WriteHTTP(w, r, errmodel.Configuration("status is not configured", nil))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(p.Status(r.Context())); err != nil {
			logger.Error("encode status", slog.Any("err", err))
		}
	})
	r.Handle("/metrics", p.Metrics.Handler())

	if p.MCP != nil {
		r.Group(func(r chi.Router) {
			if p.RatePerMinute > 0 {
				r.Use(httprate.Limit(p.RatePerMinute, time.Minute,
					httprate.WithKeyFuncs(httprate.KeyByIP),
					httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
						errmodel.WriteHTTP(w, r, errmodel.RateLimited("http", time.Minute))
					}),
				))
			}
			r.Use(Credentials(logger))
			h := otelhttp.NewHandler(p.MCP, "mcp")
			r.Handle("/mcp", h)
			r.Handle("/mcp/*", h)
		})
	}
	return r
}

// Serve runs the handler on addr until ctx ends, then shuts down gracefully.
func Serve(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	}
}
