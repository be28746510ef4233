// Package api exposes the market and chat operations over JSON HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mercato/mercato/internal/auth"
	"github.com/mercato/mercato/internal/chat"
	"github.com/mercato/mercato/internal/config"
	"github.com/mercato/mercato/internal/market"
	"github.com/mercato/mercato/internal/observability"
	"github.com/mercato/mercato/internal/schema"
)

type ReadinessCheck func(ctx context.Context) error

// ChatService is the pipeline surface the chat endpoint needs.
type ChatService interface {
	Ask(ctx context.Context, question string) (*chat.Answer, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	AuthMiddleware    func(http.Handler) http.Handler
	DependencyTimeout time.Duration
	Market            market.Repository
	Chat              ChatService
	ChatTimeout       time.Duration
	Card              *schema.Card
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	protected := http.NewServeMux()
	protected.HandleFunc("POST /v1/clubs", func(w http.ResponseWriter, r *http.Request) {
		handleCreateClub(deps, w, r)
	})
	protected.HandleFunc("GET /v1/clubs", func(w http.ResponseWriter, r *http.Request) {
		handleListClubs(deps, w, r)
	})
	protected.HandleFunc("GET /v1/clubs/{id}", func(w http.ResponseWriter, r *http.Request) {
		handleGetClub(deps, w, r)
	})
	protected.HandleFunc("POST /v1/players", func(w http.ResponseWriter, r *http.Request) {
		handleCreatePlayer(deps, w, r)
	})
	protected.HandleFunc("GET /v1/players", func(w http.ResponseWriter, r *http.Request) {
		handleListPlayers(deps, w, r)
	})
	protected.HandleFunc("GET /v1/players/{id}", func(w http.ResponseWriter, r *http.Request) {
		handleGetPlayer(deps, w, r)
	})
	protected.HandleFunc("POST /v1/transfers", func(w http.ResponseWriter, r *http.Request) {
		handleExecuteTransfer(deps, w, r)
	})
	protected.HandleFunc("GET /v1/transfers", func(w http.ResponseWriter, r *http.Request) {
		handleListTransfers(deps, w, r)
	})
	protected.HandleFunc("GET /v1/schema", func(w http.ResponseWriter, r *http.Request) {
		handleSchema(deps, w, r)
	})
	protected.HandleFunc("POST /v1/chat", func(w http.ResponseWriter, r *http.Request) {
		handleChat(deps, w, r)
	})

	var protectedHandler http.Handler = protected
	if cfg.Auth.Required {
		if deps.AuthMiddleware == nil {
			if deps.Logger != nil {
				deps.Logger.Error("auth required but auth middleware missing")
			}
			protectedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(r.Context(), w, http.StatusInternalServerError, "AUTH_MIDDLEWARE_MISSING", "auth middleware is required by configuration", false, nil)
			})
		} else {
			protectedHandler = deps.AuthMiddleware(protectedHandler)
		}
	}
	mux.Handle("POST /v1/clubs", protectedHandler)
	mux.Handle("GET /v1/clubs", protectedHandler)
	mux.Handle("GET /v1/clubs/{id}", protectedHandler)
	mux.Handle("POST /v1/players", protectedHandler)
	mux.Handle("GET /v1/players", protectedHandler)
	mux.Handle("GET /v1/players/{id}", protectedHandler)
	mux.Handle("POST /v1/transfers", protectedHandler)
	mux.Handle("GET /v1/transfers", protectedHandler)
	mux.Handle("GET /v1/schema", protectedHandler)
	mux.Handle("POST /v1/chat", protectedHandler)

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func requireRole(r *http.Request, role string) error {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return nil
	}
	if identity.HasRole(role) {
		return nil
	}
	return fmt.Errorf("missing required role %q", role)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("path id must be a positive integer")
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
