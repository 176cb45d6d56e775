// Command zencode-server starts the ZenCode chat backend.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/JesseOrSomething/ZenCode/internal/llm"
	"github.com/JesseOrSomething/ZenCode/internal/migrate"
	"github.com/JesseOrSomething/ZenCode/internal/model"
	"github.com/JesseOrSomething/ZenCode/internal/payment"
	"github.com/JesseOrSomething/ZenCode/internal/repository"
	"github.com/JesseOrSomething/ZenCode/internal/repository/postgres"
	httpserver "github.com/JesseOrSomething/ZenCode/internal/server/http"
	"github.com/JesseOrSomething/ZenCode/internal/service"
	"github.com/JesseOrSomething/ZenCode/internal/session"
	filestore "github.com/JesseOrSomething/ZenCode/internal/storage/file"
	redisstore "github.com/JesseOrSomething/ZenCode/internal/storage/redis"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

const systemPrompt = "You are ChatGPT 5-mini, a fast and cost-efficient AI language model developed by OpenAI. When asked about your identity, identify yourself as ChatGPT 5-mini. Otherwise, respond normally to user questions without mentioning your model name unless specifically asked."

// main parses configuration, restores persisted state, and starts the HTTP
// server with graceful shutdown.
func main() {
	// Flags
	addr := flag.String("addr", ":3000", "listen address")
	storage := flag.String("storage", "file", "user storage backend: file or postgres")
	dataDir := flag.String("data-dir", "./data", "directory for file storage")
	dsn := flag.String("dsn", "", "PostgreSQL DSN (storage=postgres)")
	redisAddr := flag.String("redis-addr", "", "Redis address for session snapshots (optional)")
	freeLimit := flag.Int("free-limit", 3, "daily question limit on the free plan")
	windowCap := flag.Int("window-cap", 20, "max turns retained per conversation")
	flushEvery := flag.Duration("flush-every", 30*time.Second, "snapshot persistence interval")
	accessTTL := flag.Duration("access-ttl", 24*time.Hour, "access token TTL")
	llmModel := flag.String("llm-model", "gpt-4-0613", "chat completion model")
	llmBaseURL := flag.String("llm-base-url", "", "OpenAI-compatible base URL (empty for default)")
	mockPayments := flag.Bool("mock-payments", false, "use the in-memory payment provider")
	successURL := flag.String("success-url", "http://localhost:3000/payment-success", "checkout success redirect")
	cancelURL := flag.String("cancel-url", "http://localhost:3000/payment-cancel", "checkout cancel redirect")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", *addr),
		zap.String("storage", *storage),
	)

	jwtKey := os.Getenv("JWT_SECRET")
	if jwtKey == "" {
		logger.Fatal("missing JWT_SECRET")
	}
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		logger.Fatal("missing OPENAI_API_KEY")
	}

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage
	var (
		users repository.UserRepository
		snaps repository.SnapshotStore
	)
	switch *storage {
	case "file":
		store, err := filestore.New(*dataDir)
		if err != nil {
			logger.Fatal("file store", zap.Error(err))
		}
		users, snaps = store, store
	case "postgres":
		if *dsn == "" {
			logger.Fatal("missing PostgreSQL DSN (--dsn)")
		}
		if err := migrate.Up(ctx, *dsn); err != nil {
			logger.Fatal("migrate up", zap.Error(err))
		}
		db, err := postgres.New(ctx, *dsn)
		if err != nil {
			logger.Fatal("postgres.New", zap.Error(err))
		}
		defer db.Close()
		users = postgres.NewUserRepo(db)
		snaps = postgres.NewSnapshotRepo(db)
	default:
		logger.Fatal("unknown storage backend", zap.String("storage", *storage))
	}
	if *redisAddr != "" {
		rs := redisstore.New(redis.NewClient(&redis.Options{Addr: *redisAddr}))
		defer func() { _ = rs.Close() }()
		snaps = rs
	}

	// Session state
	ledger := session.NewLedger(session.NewClock())
	windows := session.NewWindows(*windowCap)
	gate := session.NewGate(ledger, windows, *freeLimit)

	snap, err := snaps.LoadAll(ctx)
	if err != nil {
		logger.Fatal("load snapshot", zap.Error(err))
	}
	ledger.Restore(snap.Usage)
	windows.Restore(snap.Conversations)

	// Payments
	var provider payment.Provider
	if *mockPayments {
		provider = payment.NewMock()
	} else {
		stripeKey := os.Getenv("STRIPE_SECRET_KEY")
		if stripeKey == "" {
			logger.Fatal("missing STRIPE_SECRET_KEY (or pass --mock-payments)")
		}
		provider = payment.NewStripe(stripeKey)
	}

	// Services
	authSvc := service.NewAuthService(users, []byte(jwtKey), *accessTTL)
	chatSvc := service.NewChatService(gate, users, llm.NewOpenAI(apiKey, *llmBaseURL, *llmModel), systemPrompt)
	subsSvc := service.NewSubscriptionService(users, provider, ledger, service.Plans(*freeLimit), *successURL, *cancelURL)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           httpserver.New(authSvc, chatSvc, subsSvc, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	flush := func(ctx context.Context) {
		err := snaps.SaveAll(ctx, &model.Snapshot{
			Usage:         ledger.Export(),
			Conversations: windows.Export(),
		})
		if err != nil {
			logger.Error("save snapshot", zap.Error(err))
		}
	}

	// Periodic persistence
	go func() {
		t := time.NewTicker(*flushEvery)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				flush(ctx)
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", *addr))
		errCh <- srv.ListenAndServe()
	}()

	// Wait for stop
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
		flush(shutdownCtx)
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}
