// Package server exposes the snippet-execution service over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	coderun "github.com/qiskit-studio/coderun"
	"github.com/qiskit-studio/coderun/rewrite"
	"github.com/qiskit-studio/coderun/sandbox"
)

const defaultMaxConcurrent = 4

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets a structured logger. If not set, no logs are emitted.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// WithHistory enables best-effort audit recording of completed runs.
func WithHistory(h coderun.History) Option {
	return func(g *Gateway) { g.history = h }
}

// WithDocumentStore enables the /search endpoint over ingested documents.
func WithDocumentStore(d coderun.DocumentStore) Option {
	return func(g *Gateway) { g.docs = d }
}

// WithTimeout sets the wall-clock budget per execution. Default: 30m.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.timeout = d }
}

// WithMaxConcurrent bounds simultaneous executions. Waiters queue until a
// slot frees or the client disconnects. Default: 4.
func WithMaxConcurrent(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.maxConcurrent = n
		}
	}
}

// WithRewriteHook installs a callback invoked once per request with the
// rewrite rule kind that fired.
func WithRewriteHook(fn func(ctx context.Context, kind string)) Option {
	return func(g *Gateway) { g.onRewrite = fn }
}

// Gateway handles snippet-execution requests: validate, rewrite, execute,
// respond. Every well-formed request gets a 200 with the outcome rendered
// as text; only malformed requests get error statuses.
type Gateway struct {
	mode     coderun.Mode
	rewriter *rewrite.Rewriter
	runner   sandbox.Runner

	history coderun.History
	docs    coderun.DocumentStore

	timeout       time.Duration
	maxConcurrent int
	sem           chan struct{}

	onRewrite func(ctx context.Context, kind string)
	logger    *slog.Logger
}

// New creates a Gateway.
func New(mode coderun.Mode, rw *rewrite.Rewriter, runner sandbox.Runner, opts ...Option) *Gateway {
	g := &Gateway{
		mode:          mode,
		rewriter:      rw,
		runner:        runner,
		timeout:       30 * time.Minute,
		maxConcurrent: defaultMaxConcurrent,
		logger:        slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(g)
	}
	g.sem = make(chan struct{}, g.maxConcurrent)
	return g
}

// Handler returns the service's HTTP handler with CORS and panic recovery
// applied.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/run", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		g.handleRun(w, r)
	})
	mux.HandleFunc("/health", g.handleHealth)
	mux.HandleFunc("/history", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		g.handleHistory(w, r)
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		g.handleSearch(w, r)
	})
	return g.withCORS(g.withRecover(mux))
}

// withRecover turns handler panics into 500s instead of crashing the
// process.
func (g *Gateway) withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				g.logger.Error("server: handler panic",
					"path", r.URL.Path, "panic", rec, "stack", string(debug.Stack()))
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// withCORS allows any origin. The service sits behind a browser frontend
// and carries no cookies or ambient credentials.
func (g *Gateway) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
