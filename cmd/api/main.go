package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/starclip/starclip-api/internal/config"
	"github.com/starclip/starclip-api/internal/domain/admin"
	"github.com/starclip/starclip-api/internal/domain/affiliate"
	"github.com/starclip/starclip-api/internal/domain/audit"
	"github.com/starclip/starclip-api/internal/domain/earning"
	"github.com/starclip/starclip-api/internal/domain/feed"
	"github.com/starclip/starclip-api/internal/domain/wallet"
	"github.com/starclip/starclip-api/internal/domain/withdrawal"
	"github.com/starclip/starclip-api/internal/middleware"
	"github.com/starclip/starclip-api/internal/pkg/database"
	"github.com/starclip/starclip-api/internal/pkg/gateway"
	"github.com/starclip/starclip-api/internal/pkg/jwt"
	pkgresponse "github.com/starclip/starclip-api/internal/pkg/response"
)

func main() {
	cfg := config.Load()
	setupLogger(cfg)

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting StarClip API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redis)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)

	var paymentGateway gateway.PaymentGateway
	if cfg.GatewayBaseURL != "" {
		paymentGateway = gateway.NewClient(gateway.Config{
			BaseURL: cfg.GatewayBaseURL,
			APIKey:  cfg.GatewayAPIKey,
			Timeout: time.Duration(cfg.GatewayTimeoutSeconds) * time.Second,
		})
	} else {
		log.Warn().Msg("Gateway URL not configured, using in-memory stub")
		paymentGateway = gateway.NewStub()
	}

	notifier := feed.NewNotifier(redis)

	// ---------- Stores ----------
	auditRepo := audit.NewRepository(db)
	walletStore := wallet.NewPostgresStore(db)
	earningStore := earning.NewPostgresStore(db)
	withdrawalStore := withdrawal.NewPostgresStore(db, walletStore)
	affiliateStore := affiliate.NewPostgresStore(db)

	// ---------- Services ----------
	walletService := wallet.NewService(walletStore, paymentGateway, notifier, cfg.Currency)
	earningService := earning.NewService(earningStore, walletService, cfg.PlatformFeeRate, cfg.DisputeWindowHours, cfg.PlatformAccountID)
	payoutDispatcher := withdrawal.NewDispatcher(paymentGateway, 30*time.Second)
	withdrawalService := withdrawal.NewService(withdrawalStore, walletService, payoutDispatcher, cfg.MinWithdrawAmount)
	affiliateService := affiliate.NewService(affiliateStore, paymentGateway)

	clearer := earning.NewClearer(earningService)
	go clearer.Start(context.Background())
	defer clearer.Stop()

	// ---------- Handlers ----------
	walletHandler := wallet.NewHandler(walletService)
	earningHandler := earning.NewHandler(earningService)
	withdrawalHandler := withdrawal.NewHandler(withdrawalService)
	affiliateHandler := affiliate.NewHandler(affiliateService)
	adminHandler := admin.NewHandler(walletService, auditRepo)
	feedHandler := feed.NewHandler(notifier, cfg.AllowedOrigins)

	authMiddleware := middleware.Auth(jwtService)

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	// WebSocket endpoint (before Compress)
	r.Get("/ws/ledger", func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token != "" {
			r.Header.Set("Authorization", "Bearer "+token)
		}
		authMiddleware(http.HandlerFunc(feedHandler.Stream)).ServeHTTP(w, r)
	})

	r.Group(func(r chi.Router) {
		r.Use(chimw.Compress(5))
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/wallet", walletHandler.Routes(authMiddleware))
		r.Mount("/earnings", earningHandler.Routes(authMiddleware))
		r.Mount("/withdrawals", withdrawalHandler.Routes(authMiddleware))
		r.Mount("/affiliate", affiliateHandler.Routes(authMiddleware))
	})

	r.Mount("/webhooks", walletHandler.WebhookRoutes())

	// Service-to-service request lifecycle and referral events.
	r.Route("/internal", func(r chi.Router) {
		r.Mount("/requests", earningHandler.InternalRoutes())
		r.Mount("/referrals", affiliateHandler.InternalRoutes())
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(middleware.RequireAdmin())

		r.Mount("/", adminHandler.Routes())
		r.Mount("/withdrawals", withdrawalHandler.AdminRoutes())
		r.Mount("/affiliate", affiliateHandler.AdminRoutes())
		r.Route("/earnings", func(r chi.Router) {
			r.Post("/{id}/refund", earningHandler.Refund)
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		})
	}
}
