// Package http exposes the JSON API: auth, entry CRUD, aggregation and
// analysis endpoints, CSV export and the BI embedding stub.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/cors"

	"fintrack/internal/config"
	"fintrack/internal/services"
	"fintrack/internal/store"
)

type Server struct {
	http.Server
	entries  store.EntryStore
	analysis *services.AnalysisService
	export   *services.ExportService
	users    *services.UserService

	powerBIEmbedURL   string
	powerBIEmbedToken string

	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server listening on cfg.Port.
func NewServer(cfg config.Config, entries store.EntryStore, analysis *services.AnalysisService, export *services.ExportService, users *services.UserService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr: ":" + cfg.Port,
		},
		entries:           entries,
		analysis:          analysis,
		export:            export,
		users:             users,
		powerBIEmbedURL:   cfg.PowerBIEmbedURL,
		powerBIEmbedToken: cfg.PowerBIEmbedToken,
		rateLimiter:       newRateLimiter(),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /auth/signup", s.wrap(s.handleSignup))
	mux.HandleFunc("POST /auth/login", s.wrap(s.handleLogin))
	mux.HandleFunc("GET /auth/me", s.wrap(s.authed(s.handleMe)))

	mux.HandleFunc("GET /data", s.wrap(s.authed(s.handleListEntries)))
	mux.HandleFunc("POST /data", s.wrap(s.authed(s.handleCreateEntry)))
	mux.HandleFunc("GET /data/{id}", s.wrap(s.authed(s.handleGetEntry)))
	mux.HandleFunc("PUT /data/{id}", s.wrap(s.authed(s.handleUpdateEntry)))
	mux.HandleFunc("DELETE /data/{id}", s.wrap(s.authed(s.handleDeleteEntry)))

	mux.HandleFunc("GET /aggregate", s.wrap(s.authed(s.handleAggregate)))
	mux.HandleFunc("POST /ai/analyze", s.wrap(s.authed(s.handleRunAnalysis)))
	mux.HandleFunc("GET /ai/get-latest", s.wrap(s.authed(s.handleGetLatest)))
	mux.HandleFunc("POST /ai-extended/detailed", s.wrap(s.authed(s.handleDetailedAnalyze)))
	mux.HandleFunc("GET /powerbi/dataset", s.wrap(s.authed(s.handlePowerBIDataset)))
	mux.HandleFunc("GET /export/csv", s.wrap(s.authed(s.handleExportCSV)))

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})
	s.Handler = c.Handler(mux)

	return s
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// wrap is the outer middleware on every route: request ID, request
// logging, rate limiting on mutating methods, security headers.
func (s *Server) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		if isMutating(r.Method) && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", clientIP)
	}
}

// authed resolves the bearer token to an owner ID before the handler
// runs; no store is touched on an invalid credential.
func (s *Server) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")
		owner, err := s.users.VerifyToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), ownerKey, owner)))
	}
}

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	ownerKey     contextKey = "owner_id"
)

// owner returns the authenticated owner ID set by authed.
func owner(r *http.Request) string {
	v, _ := r.Context().Value(ownerKey).(string)
	return v
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
