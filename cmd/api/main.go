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
	"github.com/rs/zerolog/log"

	"github.com/lunapredict/luna-api/internal/config"
	"github.com/lunapredict/luna-api/internal/domain/analysis"
	"github.com/lunapredict/luna-api/internal/domain/auth"
	"github.com/lunapredict/luna-api/internal/domain/credit"
	"github.com/lunapredict/luna-api/internal/domain/payment"
	"github.com/lunapredict/luna-api/internal/domain/user"
	"github.com/lunapredict/luna-api/internal/middleware"
	"github.com/lunapredict/luna-api/internal/pkg/database"
	"github.com/lunapredict/luna-api/internal/pkg/evmrpc"
	"github.com/lunapredict/luna-api/internal/pkg/helius"
	"github.com/lunapredict/luna-api/internal/pkg/imaging"
	"github.com/lunapredict/luna-api/internal/pkg/jwt"
	"github.com/lunapredict/luna-api/internal/pkg/logger"
	"github.com/lunapredict/luna-api/internal/pkg/openrouter"
	pkgresponse "github.com/lunapredict/luna-api/internal/pkg/response"
	"github.com/lunapredict/luna-api/internal/pkg/worldid"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting Luna Predict API")

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

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)

	// ---------- Chain and model clients ----------
	heliusClient := helius.NewClient(cfg.HeliusBaseURL, cfg.HeliusAPIKey, 10*time.Second)
	evmClient := evmrpc.NewClient(map[string]string{
		evmrpc.NetworkWorldChain: cfg.WorldChainRPCURL,
		evmrpc.NetworkOptimism:   cfg.OptimismRPCURL,
	})
	defer evmClient.Close()
	inferenceClient := openrouter.NewClient(cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey, cfg.OpenRouterModel, cfg.InferenceTimeout)
	worldIDClient := worldid.NewClient(cfg.WorldIDBaseURL, cfg.WorldIDAppID, cfg.WorldIDAction, 10*time.Second)
	processor := imaging.NewProcessor(imaging.DefaultConfig())

	// ---------- Repositories ----------
	userRepo := user.NewRepository(db)
	worldIDRepo := auth.NewWorldIDRepository(db)
	creditRepo := credit.NewRepository(db)
	paymentRepo := payment.NewRepository(db, creditRepo)
	analysisRepo := analysis.NewRepository(db)

	// ---------- Services ----------
	creditService := credit.NewService(creditRepo)
	authService := auth.NewService(userRepo, jwtService, redis, creditService, worldIDClient, worldIDRepo)
	paymentService := payment.NewService(paymentRepo, heliusClient, evmClient, payment.Config{
		SolReceiver:    cfg.ReceiverWallet,
		SolAmount:      cfg.AnalysisCostSOL,
		SolCredits:     int64(cfg.SolanaCredits),
		WldReceiver:    cfg.WorldcoinReceiver,
		WldToken:       cfg.WLDTokenAddress,
		WldAmount:      cfg.WorldcoinCostWLD,
		WldCredits:     int64(cfg.WorldcoinCredits),
		DefaultNetwork: evmrpc.NetworkWorldChain,
		StrictVerify:   cfg.WLDStrictVerify,
		Window:         cfg.PaymentWindow,
	})
	analysisService := analysis.NewService(analysisRepo, creditService, inferenceClient, processor)

	// ---------- Handlers ----------
	authHandler := auth.NewHandler(authService)
	creditHandler := credit.NewHandler(creditService)
	paymentHandler := payment.NewHandler(paymentService)
	analysisHandler := analysis.NewHandler(analysisService)

	authMiddleware := middleware.Auth(jwtService)

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))
	r.Use(chimw.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]any{
			"status":               "ok",
			"version":              "1.0.0",
			"inference_configured": cfg.OpenRouterAPIKey != "",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/auth", authHandler.Routes(authMiddleware))
		r.Mount("/credits", creditHandler.Routes(authMiddleware))
		r.Mount("/payment", paymentHandler.Routes(authMiddleware))
		r.Mount("/analyze", analysisHandler.Routes(authMiddleware))
		r.Mount("/predictions", analysisHandler.PredictionRoutes(authMiddleware))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
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
