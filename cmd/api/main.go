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

	"github.com/skillswap/skillswap-api/internal/config"
	"github.com/skillswap/skillswap-api/internal/db"
	"github.com/skillswap/skillswap-api/internal/domain/bounty"
	"github.com/skillswap/skillswap-api/internal/domain/ledger"
	"github.com/skillswap/skillswap-api/internal/domain/liveclass"
	"github.com/skillswap/skillswap-api/internal/domain/session"
	"github.com/skillswap/skillswap-api/internal/domain/skill"
	"github.com/skillswap/skillswap-api/internal/domain/user"
	"github.com/skillswap/skillswap-api/internal/middleware"
	"github.com/skillswap/skillswap-api/internal/pkg/database"
	"github.com/skillswap/skillswap-api/internal/pkg/events"
	"github.com/skillswap/skillswap-api/internal/pkg/jwt"
	"github.com/skillswap/skillswap-api/internal/pkg/logger"
	pkgresponse "github.com/skillswap/skillswap-api/internal/pkg/response"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.Env)

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting SkillSwap API")

	pg, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(pg)

	rdb, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(rdb)

	if err := db.RunMigrations(context.Background(), pg); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)
	publisher := events.NewPublisher(rdb)

	// ---------- Repositories ----------
	userRepo := user.NewRepository(pg)
	skillRepo := skill.NewRepository(pg)
	sessionRepo := session.NewRepository(pg)
	bountyRepo := bounty.NewRepository(pg)
	classRepo := liveclass.NewRepository(pg)

	// ---------- Services ----------
	ledgerService := ledger.NewService(pg, publisher)
	sessionService := session.NewService(sessionRepo, ledgerService, userRepo, skillRepo, publisher, cfg.ReservationTTL)
	bountyService := bounty.NewService(bountyRepo, sessionRepo, ledgerService, userRepo, skillRepo, publisher)
	classService := liveclass.NewService(classRepo, ledgerService, skillRepo, publisher)

	sweeper := ledger.NewSweeper(ledgerService, cfg.SweepInterval)
	sweeper.Start()
	defer sweeper.Stop()

	// ---------- Handlers ----------
	ledgerHandler := ledger.NewHandler(ledgerService, sweeper)
	sessionHandler := session.NewHandler(sessionService)
	bountyHandler := bounty.NewHandler(bountyService)
	classHandler := liveclass.NewHandler(classService)

	authMiddleware := middleware.Auth(jwtService)
	adminMiddleware := middleware.RequireAdmin()

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))
	r.Use(chimw.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/ledger", ledgerHandler.Routes(authMiddleware))
		r.Mount("/sessions", sessionHandler.Routes(authMiddleware))
		r.Mount("/bounties", bountyHandler.Routes(authMiddleware))
		r.Mount("/classes", classHandler.Routes(authMiddleware))
		r.Mount("/admin", ledgerHandler.AdminRoutes(authMiddleware, adminMiddleware))
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
