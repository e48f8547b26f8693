package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/alfonsoemoreno/predicacion-tracker/internal/auth"
	"github.com/alfonsoemoreno/predicacion-tracker/internal/cache"
	applog "github.com/alfonsoemoreno/predicacion-tracker/internal/log"
	"github.com/alfonsoemoreno/predicacion-tracker/internal/services"
)

type Server struct {
	http.Server
	activities  *services.ActivityService
	ledger      *services.ReportLedger
	rateLimiter *rateLimiter
	apiLogger   *applog.Logger
	httpLog     *applog.StructuredLogger

	// Report chains are read far more often than they change; every
	// mutating report handler invalidates the affected year.
	reportCache  *cache.ReportCache
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, authCfg auth.Config, activities *services.ActivityService, ledger *services.ReportLedger) *Server {
	mux := http.NewServeMux()
	apiLogger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentHTTP,
	})

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		activities:   activities,
		ledger:       ledger,
		rateLimiter:  newRateLimiter(),
		apiLogger:    apiLogger,
		httpLog:      applog.NewStructuredLogger(apiLogger),
		reportCache:  cache.NewReportCache(100, 5*time.Minute),
		cacheManager: cache.NewManager(),
	}

	s.cacheManager.Register(s.reportCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	authMW := auth.NewMiddleware(authCfg, nil)
	api := http.NewServeMux()
	api.HandleFunc("GET /api/activities", s.handleListActivities)
	api.HandleFunc("POST /api/activities", s.handleCreateActivity)
	api.HandleFunc("PUT /api/activities/{id}", s.handleUpdateActivity)
	api.HandleFunc("DELETE /api/activities/{id}", s.handleDeleteActivity)
	api.HandleFunc("GET /api/contacts", s.handleListContacts)
	api.HandleFunc("POST /api/contacts", s.handleCreateContact)
	api.HandleFunc("GET /api/reports", s.handleListReports)
	api.HandleFunc("GET /api/reports/summary", s.handleReportSummary)
	api.HandleFunc("POST /api/reports/generate", s.handleGenerateReport)
	api.HandleFunc("POST /api/reports/{id}/unlock", s.handleUnlockReport)
	api.HandleFunc("POST /api/reports/recalc", s.handleRecalcReports)
	api.HandleFunc("PUT /api/reports/{id}/comments", s.handleUpdateComments)
	withRequestID := applog.RequestIDMiddleware(func(*http.Request) string { return generateRequestID() })
	mux.Handle("/api/", applog.Middleware(apiLogger)(withRequestID(s.withRequestLogging(authMW.Wrap(api)))))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.cacheManager != nil {
			s.cacheManager.Stop()
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withRequestLogging adds rate limiting and request logging around the API.
func (s *Server) withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		ctx := r.Context()
		s.httpLog.LogHTTPStart(ctx, r, clientIP)

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			applog.FromContext(ctx).WarnContext(ctx, "Rate limit exceeded",
				"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		s.httpLog.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
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
