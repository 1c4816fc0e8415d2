// Package http serves the analysis results as a JSON API. Reports are
// rebuilt from the transaction source on demand and cached briefly so a
// dashboard polling several endpoints shares one computation.
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

	"finsight/internal/analysis"
	"finsight/internal/cache"
	"finsight/internal/source"
)

const snapshotKey = "report"

type Server struct {
	http.Server

	transactions source.TransactionSource
	contracts    source.ContractSource
	workflows    source.WorkflowCountSource

	analysisCfg analysis.Config
	terms       analysis.TermTable

	rateLimiter  *rateLimiter
	reportCache  *cache.LRUCache[analysis.Report]
	shutdownOnce sync.Once
}

// NewServer configures routes, returning a ready-to-run server.
func NewServer(addr string, txs source.TransactionSource, contracts source.ContractSource, workflows source.WorkflowCountSource, cfg analysis.Config, cacheTTL time.Duration) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		transactions: txs,
		contracts:    contracts,
		workflows:    workflows,
		analysisCfg:  cfg,
		terms:        analysis.DefaultTermTable(),
		rateLimiter:  newRateLimiter(),
		reportCache:  cache.NewLRUCache[analysis.Report](1, cacheTTL),
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("GET /api/alerts", s.withAPIMiddleware(s.handleAlerts))
	mux.HandleFunc("GET /api/patterns", s.withAPIMiddleware(s.handlePatterns))
	mux.HandleFunc("GET /api/correlation", s.withAPIMiddleware(s.handleCorrelation))
	mux.HandleFunc("GET /api/reimbursement", s.withAPIMiddleware(s.handleReimbursement))
	mux.HandleFunc("GET /api/workflows/{id}", s.withAPIMiddleware(s.handleWorkflow))

	return s
}

// Shutdown stops the server and its background cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// snapshot returns the cached analysis report, rebuilding it from the
// transaction source when the cache is cold.
func (s *Server) snapshot(ctx context.Context) (analysis.Report, error) {
	if report, found := s.reportCache.Get(snapshotKey); found {
		slog.DebugContext(ctx, "Report cache hit")
		return report, nil
	}

	cctx, cancel := context.WithTimeout(ctx, 7*time.Second)
	defer cancel()

	txs, err := s.transactions.ListTransactions(cctx)
	if err != nil {
		return analysis.Report{}, fmt.Errorf("list transactions: %w", err)
	}

	report := analysis.BuildReport(txs, s.analysisCfg)
	s.reportCache.Set(snapshotKey, report)
	slog.DebugContext(ctx, "Report rebuilt",
		"transactions", len(txs),
		"groups", len(report.Groups),
		"alerts", len(report.Alerts))
	return report, nil
}

// withAPIMiddleware adds rate limiting, request ids and request logging.
func (s *Server) withAPIMiddleware(next http.HandlerFunc) http.HandlerFunc {
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

		if !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Request-ID", requestID)

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

type contextKey string

const requestIDKey contextKey = "request_id"

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

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
