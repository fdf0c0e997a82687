package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/darts-league/config"
	"github.com/Dosada05/darts-league/db"
	"github.com/Dosada05/darts-league/handlers"
	"github.com/Dosada05/darts-league/live"
	"github.com/Dosada05/darts-league/repositories"
	api "github.com/Dosada05/darts-league/routes"
	"github.com/Dosada05/darts-league/services"
	"github.com/Dosada05/darts-league/storage"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
)

// Частота фоновой проверки непосчитанных турниров.
const recalcSweepInterval = 60 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	// Хранилище медиа опционально: без него приложение работает, но
	// загрузка логотипов и фото вернёт ошибку.
	var uploader storage.FileUploader
	if cfg.StorageConfigured() {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("file storage is not configured, media uploads disabled")
	}

	wsHub := live.NewHub()
	go wsHub.Run()
	logger.Info("WebSocket hub started")

	// Репозитории
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	playerRepo := repositories.NewPostgresPlayerRepository(dbConn)
	leagueRepo := repositories.NewPostgresLeagueRepository(dbConn)
	memberRepo := repositories.NewPostgresLeagueMemberRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	resultRepo := repositories.NewPostgresResultRepository(dbConn)
	leaderboardRepo := repositories.NewPostgresLeaderboardRepository(dbConn)
	mergeRepo := repositories.NewPostgresMergeRepository(dbConn)
	logger.Info("repositories initialized")

	// Сервисы
	authService := services.NewAuthService(userRepo)
	playerService := services.NewPlayerService(playerRepo, mergeRepo, uploader, logger)
	tournamentService := services.NewTournamentService(tournamentRepo, matchRepo)
	scoringService := services.NewScoringService(
		leagueRepo,
		tournamentRepo,
		resultRepo,
		leaderboardRepo,
		tournamentService,
		wsHub,
		logger,
	)
	leagueService := services.NewLeagueService(
		leagueRepo,
		memberRepo,
		tournamentRepo,
		leaderboardRepo,
		playerService,
		uploader,
		logger,
	)
	logger.Info("services initialized")

	// Фоновая подборка: завершённые турниры, привязанные к лигам, но ещё
	// не посчитанные, подтягиваются в таблицы без ручного запуска.
	go func() {
		ticker := time.NewTicker(recalcSweepInterval)
		defer ticker.Stop()
		logger.Info("recalculation sweep started", slog.Duration("interval", recalcSweepInterval))

		for range ticker.C {
			leagues, err := leagueService.ListLeagues(context.Background())
			if err != nil {
				logger.Error("sweep: failed to list leagues", slog.Any("error", err))
				continue
			}
			for _, league := range leagues {
				report, err := scoringService.RecalculateAllResults(context.Background(), league.ID, false)
				if err != nil {
					logger.Error("sweep: recalculation failed",
						slog.String("league_id", league.ID), slog.Any("error", err))
					continue
				}
				if report.Calculated == 0 {
					continue
				}
				if _, err := scoringService.UpdateLeaderboardCache(context.Background(), league.ID); err != nil {
					logger.Error("sweep: leaderboard cache update failed",
						slog.String("league_id", league.ID), slog.Any("error", err))
				}
			}
		}
	}()

	// HTTP-обработчики
	authHandler := handlers.NewAuthHandler(authService, cfg.JWTSecretKey)
	leagueHandler := handlers.NewLeagueHandler(leagueService, scoringService)
	playerHandler := handlers.NewPlayerHandler(playerService)
	tournamentHandler := handlers.NewTournamentHandler(tournamentService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub)
	logger.Info("HTTP handlers initialized")

	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		cfg.JWTSecretKey,
		authHandler,
		leagueHandler,
		playerHandler,
		tournamentHandler,
		webSocketHandler,
	)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if err := server.Close(); err != nil {
				logger.Error("forced shutdown failed", slog.Any("error", err))
			}
		}
		logger.Info("server stopped")
	}
}
