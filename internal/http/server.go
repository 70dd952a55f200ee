// Package http exposes the ledger over a JSON API.
package http

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/services"
)

// Ledger is the application surface the handlers drive.
type Ledger interface {
	CreateTransaction(ctx context.Context, req services.CreateTransactionRequest) (core.Transaction, error)
	ListTransactions(ctx context.Context) ([]core.Transaction, core.Balance, error)
	Balance(ctx context.Context) (core.Balance, error)
	Import(ctx context.Context, path string) (*services.ImportReport, error)
}

// UploadStore keeps uploaded CSV files until they are imported.
type UploadStore interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	Remove(ctx context.Context, path string) error
}

// ImportQueue hands an uploaded file to a background worker.
type ImportQueue interface {
	EnqueueImport(ctx context.Context, path, fileName string) (*amqp.ImportRequestMessage, error)
}

// Options configures optional server collaborators.
type Options struct {
	MaxUploadBytes int64
	// Queue enables ?async=true imports when set.
	Queue ImportQueue
	// Ready backs /readyz; nil means always ready.
	Ready  func(ctx context.Context) error
	Logger *applog.Logger
	// RequestsPerMinute limits writes per client IP; zero disables the limit.
	RequestsPerMinute int
}

type Server struct {
	http.Server
	ledger      Ledger
	uploads     UploadStore
	queue       ImportQueue
	ready       func(ctx context.Context) error
	maxUpload   int64
	logger      *applog.Logger
	rateLimiter *rateLimiter

	shutdownOnce sync.Once
}

const defaultMaxUpload = 10 << 20

func NewServer(addr string, ledger Ledger, uploads UploadStore, opts Options) *Server {
	mux := http.NewServeMux()

	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		ledger:    ledger,
		uploads:   uploads,
		queue:     opts.Queue,
		ready:     opts.Ready,
		maxUpload: maxUpload,
		logger:    logger.WithComponent(applog.ComponentHTTP),
	}
	if opts.RequestsPerMinute > 0 {
		s.rateLimiter = newRateLimiter(opts.RequestsPerMinute)
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/transactions", s.handleTransactions)
	mux.HandleFunc("/transactions/import", s.handleImport)
	mux.HandleFunc("/balance", s.handleBalance)

	s.Handler = s.withRequestLogging(s.withRateLimit(withSecurityHeaders(mux)))
	return s
}

// Shutdown stops the rate limiter and drains in-flight requests.
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

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", "error", err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
