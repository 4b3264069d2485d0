// Command coderun is the snippet-execution service behind the notebook
// frontend.
//
// It receives Python code via HTTP, rewrites the quantum backend
// configuration for the process mode and any caller-supplied credential,
// executes the result in a sandbox, and returns the captured output.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	coderun "github.com/qiskit-studio/coderun"
	"github.com/qiskit-studio/coderun/internal/config"
	"github.com/qiskit-studio/coderun/observer"
	"github.com/qiskit-studio/coderun/rewrite"
	"github.com/qiskit-studio/coderun/sandbox"
	"github.com/qiskit-studio/coderun/server"
	"github.com/qiskit-studio/coderun/store/postgres"
	"github.com/qiskit-studio/coderun/store/sqlite"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmsgprefix)
	log.SetPrefix("[coderun] ")

	var (
		port       = flag.Int("port", 0, "listen port (overrides config)")
		localMode  = flag.Bool("local", false, "run without a credential against the local simulator")
		cloudMode  = flag.Bool("cloud", false, "pass credential-less code through to remote backends")
		configPath = flag.String("config", "", "path to TOML config file")
	)
	flag.Parse()

	cfg := config.Load(*configPath)
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *localMode && *cloudMode {
		log.Fatal("--local and --cloud are mutually exclusive")
	}
	if *localMode {
		cfg.Server.Mode = "local"
	}
	if *cloudMode {
		cfg.Server.Mode = "cloud"
	}

	mode := coderun.ModeLocal
	if cfg.Server.Mode == "cloud" {
		mode = coderun.ModeCloud
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Observability
	var inst *observer.Instruments
	if cfg.Observer.Enabled {
		var shutdown func(context.Context) error
		var err error
		inst, shutdown, err = observer.Init(ctx)
		if err != nil {
			log.Fatalf("observer init: %v", err)
		}
		defer func() {
			shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := shutdown(shutCtx); err != nil {
				log.Printf("observer shutdown: %v", err)
			}
		}()
		log.Println("observer enabled")
	}

	// Sandbox backend
	var runner sandbox.Runner
	switch cfg.Sandbox.Backend {
	case "docker":
		dr, err := sandbox.NewDockerRunner(
			sandbox.WithTimeout(cfg.Sandbox.Timeout()),
			sandbox.WithMaxOutput(cfg.Sandbox.MaxOutputBytes),
			sandbox.WithImage(cfg.Sandbox.Image),
			sandbox.WithLogger(logger),
		)
		if err != nil {
			log.Fatalf("docker runner: %v", err)
		}
		defer dr.Close()
		runner = dr
	case "subprocess", "":
		runner = sandbox.NewSubprocessRunner(
			sandbox.WithTimeout(cfg.Sandbox.Timeout()),
			sandbox.WithMaxOutput(cfg.Sandbox.MaxOutputBytes),
			sandbox.WithPythonBin(cfg.Sandbox.PythonBin),
			sandbox.WithWorkspace(cfg.Sandbox.Workspace),
			sandbox.WithLogger(logger),
		)
	default:
		log.Fatalf("unknown sandbox backend %q", cfg.Sandbox.Backend)
	}
	if inst != nil {
		runner = observer.WrapRunner(runner, inst)
	}

	// Audit history and document search
	var history coderun.History
	var docs coderun.DocumentStore
	switch cfg.History.Driver {
	case "sqlite":
		st := sqlite.New(cfg.History.Path, sqlite.WithLogger(logger))
		if err := st.Init(ctx); err != nil {
			log.Fatalf("sqlite init: %v", err)
		}
		history = st
		docs = st
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.History.DSN)
		if err != nil {
			log.Fatalf("postgres pool: %v", err)
		}
		defer pool.Close()
		h := postgres.New(pool)
		if err := h.Init(ctx); err != nil {
			log.Fatalf("postgres init: %v", err)
		}
		history = h
	case "":
		// disabled
	default:
		log.Fatalf("unknown history driver %q", cfg.History.Driver)
	}
	if history != nil {
		defer history.Close()
	}

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithTimeout(cfg.Sandbox.Timeout()),
		server.WithMaxConcurrent(cfg.Server.MaxConcurrent),
	}
	if history != nil {
		opts = append(opts, server.WithHistory(history))
	}
	if docs != nil {
		opts = append(opts, server.WithDocumentStore(docs))
	}
	if inst != nil {
		opts = append(opts, server.WithRewriteHook(inst.RecordRewrite))
	}

	gateway := server.New(mode, rewrite.New(mode, rewrite.WithLogger(logger)), runner, opts...)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      gateway.Handler(),
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: cfg.Sandbox.Timeout() + time.Minute,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		log.Printf("listening on %s (mode=%s, sandbox=%s)", srv.Addr, mode, cfg.Sandbox.Backend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down...")

	shutCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	log.Println("stopped")
}
