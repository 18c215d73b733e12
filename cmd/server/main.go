// Package main runs the token launch platform as a standalone service:
// the launchpad engine over durable stores, a websocket trade feed,
// and health/metrics/status endpoints. The trade API surface itself is
// host-specific and stays out; this binary exposes the operational
// endpoints and the feed.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"token-launch-lab/internal/graduation"
	"token-launch-lab/internal/graduation/stub"
	"token-launch-lab/internal/launchpad"
	"token-launch-lab/internal/observability"
	"token-launch-lab/internal/storage"
	chstore "token-launch-lab/internal/storage/clickhouse"
	"token-launch-lab/internal/storage/memory"
	"token-launch-lab/internal/storage/migrations"
	pgstore "token-launch-lab/internal/storage/postgres"
	"token-launch-lab/internal/stream"
)

// stores holds the storage implementations behind the service.
type stores struct {
	states      storage.TokenStateStore
	trades      storage.TradeStore
	graduations storage.GraduationRecordStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string for the trade history (optional)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	httpAddr := flag.String("http-addr", ":8080", "HTTP address for health/metrics/status/ws")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory, logger)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	hub := stream.NewHub(nil, logger)
	defer hub.Close()

	// The external venue is an opaque collaborator; until a real DEX
	// adapter is configured the in-memory stub records migrations.
	var venue graduation.Venue = stub.New()
	logger.Printf("Using in-memory graduation venue")

	service := launchpad.New(launchpad.DefaultLaunchConfig(), launchpad.Deps{
		States:      st.states,
		Trades:      st.trades,
		Graduations: st.graduations,
		Venue:       venue,
		Hub:         hub,
		Logger:      logger,
	})

	server := newHTTPServer(*httpAddr, service, hub, logger)
	go func() {
		logger.Printf("Starting HTTP server on %s", *httpAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Printf("Received signal %v, shutting down...", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("HTTP shutdown error: %v", err)
	}
}

// createStores wires memory or durable storage. With a ClickHouse DSN
// the trade history lives there for analytics-friendly reads; token
// state always needs the Postgres CAS semantics.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool, logger *log.Logger) (*stores, func(), error) {
	if useMemory {
		logger.Printf("Using in-memory storage")
		return &stores{
			states:      memory.NewTokenStateStore(),
			trades:      memory.NewTradeStore(),
			graduations: memory.NewGraduationRecordStore(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	logger.Printf("Connected to PostgreSQL")

	st := &stores{
		states:      pgstore.NewTokenStateStore(pool),
		trades:      pgstore.NewTradeStore(pool),
		graduations: pgstore.NewGraduationRecordStore(pool),
	}
	cleanup := func() { pool.Close() }

	if clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Printf("Connected to ClickHouse, trade history served from it")
		st.trades = chstore.NewTradeStore(conn)
		cleanup = func() {
			conn.Close()
			pool.Close()
		}
	}

	return st, cleanup, nil
}

// StatusResponse is the JSON response for the /status endpoint.
type StatusResponse struct {
	Status    string `json:"status"`
	Uptime    string `json:"uptime"`
	Tokens    int    `json:"tokens"`
	Graduated int    `json:"graduated"`
}

func newHTTPServer(addr string, service *launchpad.Service, hub *stream.Hub, logger *log.Logger) *http.Server {
	started := time.Now()
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	// Live trade feed
	mux.HandleFunc("/ws", hub.ServeWS)

	// Status endpoint
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		tokens, err := service.ListTokens(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		graduated := 0
		for _, t := range tokens {
			if t.GraduatedAt != nil {
				graduated++
			}
		}
		resp := StatusResponse{
			Status:    "ok",
			Uptime:    time.Since(started).Round(time.Second).String(),
			Tokens:    len(tokens),
			Graduated: graduated,
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Printf("Encode status: %v", err)
		}
	})

	return &http.Server{Addr: addr, Handler: mux}
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
