package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/ayush/finance-advisor/internal/account"
	"github.com/ayush/finance-advisor/internal/advisor"
	"github.com/ayush/finance-advisor/internal/auth"
	"github.com/ayush/finance-advisor/internal/chat"
	"github.com/ayush/finance-advisor/internal/config"
	"github.com/ayush/finance-advisor/internal/goals"
	"github.com/ayush/finance-advisor/internal/health"
	"github.com/ayush/finance-advisor/internal/middleware"
	"github.com/ayush/finance-advisor/internal/store"
)

func main() {
	// ── Config ───────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// ── Logger ───────────────────────────────────────────────
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Server.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()

	// ── MongoDB ──────────────────────────────────────────────
	// The first request (or the index pass below) dials; a failure here is retried later.
	mongoCache := store.NewConnCache(store.MongoDialer(cfg.Mongo.URI), store.CloseMongo, cfg.Mongo.ConnectTimeout, logger)
	db := store.NewMongo(mongoCache, cfg.Mongo.Database)
	if err := store.EnsureIndexes(ctx, db, logger); err != nil {
		logger.Warn("could not ensure indexes", slog.String("error", err.Error()))
	}

	users := store.NewUserStore(db)
	chats := store.NewChatStore(db)
	adviceStore := store.NewAdviceStore(db)
	goalStore := store.NewGoalStore(db)

	// ── Redis ────────────────────────────────────────────────
	var (
		rdb     *redis.Client
		revoked auth.RevocationList = auth.NoopRevocationList{}
	)
	if cfg.Redis.Addr != "" {
		rdb, err = store.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password)
		if err != nil {
			logger.Error("redis connect", slog.String("error", err.Error()))
			os.Exit(1)
		}
		revoked = auth.NewRedisRevocationList(rdb)
	} else {
		logger.Warn("REDIS_ADDR not set, logout will not revoke tokens")
	}

	// ── MinIO ────────────────────────────────────────────────
	var archive chat.Archiver
	if cfg.Minio.Endpoint != "" {
		transcripts, err := store.NewTranscriptArchive(
			ctx, cfg.Minio.Endpoint, cfg.Minio.AccessKey,
			cfg.Minio.SecretKey, cfg.Minio.Bucket, cfg.Minio.UseSSL,
		)
		if err != nil {
			logger.Error("minio connect", slog.String("error", err.Error()))
			os.Exit(1)
		}
		archive = transcripts
	}

	// ── Auth ─────────────────────────────────────────────────
	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		logger.Error("token service", slog.String("error", err.Error()))
		os.Exit(1)
	}
	passwords := auth.NewPasswordService()

	// ── AI client ────────────────────────────────────────────
	aiClient := advisor.NewClient(advisor.ClientConfig{
		BaseURL:     cfg.Anthropic.BaseURL,
		APIKey:      cfg.Anthropic.APIKey,
		Model:       cfg.Anthropic.Model,
		MaxTokens:   cfg.Anthropic.MaxTokens,
		Temperature: cfg.Anthropic.Temperature,
		Timeout:     cfg.Anthropic.Timeout,
	})

	// ── Services ─────────────────────────────────────────────
	accounts := account.NewService(users, passwords, tokens, revoked, logger)
	advice := advisor.NewService(users, adviceStore, aiClient, logger)
	conversations := chat.NewManager(chats, aiClient, archive, logger)
	goalService := goals.NewService(goalStore, users, advice)

	// ── Handlers ─────────────────────────────────────────────
	accountHandler := account.NewHandler(accounts, logger)
	chatHandler := chat.NewHandler(conversations, users, logger)
	adviceHandler := advisor.NewHandler(advice, logger)
	goalHandler := goals.NewHandler(goalService, logger)
	healthHandler := health.NewHandler(db, logger)

	// ── Router ───────────────────────────────────────────────
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(middleware.CORS(cfg.Server.CORSOrigins))
	r.Use(middleware.Authenticate(tokens, revoked, logger))

	r.Get("/health", healthHandler.Live)
	r.Get("/health/db", healthHandler.Database)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", accountHandler.Register)
		r.Post("/login", accountHandler.Login)
		r.Post("/logout", accountHandler.Logout)
		r.Get("/me", accountHandler.Me)
	})
	r.Put("/onboarding/complete", accountHandler.CompleteOnboarding)
	r.Put("/users/financial-info", accountHandler.UpdateFinancialInfo)

	r.Route("/chat", func(r chi.Router) {
		r.Post("/", chatHandler.Send)
		r.Get("/", chatHandler.History)
		r.Delete("/", chatHandler.Reset)
	})

	r.Route("/financial-advice", func(r chi.Router) {
		r.Post("/", adviceHandler.Advise)
		r.Get("/", adviceHandler.History)
	})

	r.Route("/goals", func(r chi.Router) {
		r.Get("/", goalHandler.List)
		r.Post("/", goalHandler.Create)
		r.Put("/{id}", goalHandler.Update)
		r.Delete("/{id}", goalHandler.Delete)
		r.Post("/{id}/strategy", goalHandler.Strategy)
	})

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		logger.Error("server shutdown", slog.String("error", err.Error()))
	}
	if err := mongoCache.Release(shutCtx); err != nil {
		logger.Error("mongo disconnect", slog.String("error", err.Error()))
	}
	if rdb != nil {
		_ = rdb.Close()
	}
}
