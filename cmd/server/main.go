package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"ironworks/gym-app/internal/api"
	"ironworks/gym-app/internal/cache"
	"ironworks/gym-app/internal/config"
	"ironworks/gym-app/internal/logger"
	"ironworks/gym-app/internal/repository"
	"ironworks/gym-app/internal/repository/memory"
	"ironworks/gym-app/internal/repository/mongo"
	"ironworks/gym-app/internal/service"
	"ironworks/gym-app/internal/storage"

	"go.uber.org/zap"
)

// repositories is the set of stores selected by database.driver.
type repositories struct {
	users          repository.UserRepository
	attendance     repository.AttendanceRepository
	challenges     repository.ChallengeRepository
	participations repository.ParticipationRepository
	exports        repository.ExportRepository
	close          func()
}

// @title Gym Attendance & Challenges API
// @version 1.0
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}

	// --- Logging ---
	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("FATAL: Could not initialize logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	loc, err := cfg.Attendance.Location()
	if err != nil {
		zl.Fatal("invalid attendance timezone", zap.String("timezone", cfg.Attendance.Timezone), zap.Error(err))
	}

	// --- Repositories ---
	repos, err := openRepositories(cfg.Database, zl)
	if err != nil {
		zl.Fatal("could not open database", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	defer repos.close()

	// --- Storage & Cache ---
	fileStorage, err := storage.NewS3Storage(cfg.S3, zl)
	if err != nil {
		zl.Fatal("failed to initialize S3 storage", zap.Error(err))
	}

	var appCache cache.Cache = cache.Noop{}
	if cfg.Redis.Address != "" {
		redisClient, err := cache.NewRedisClient(cfg.Redis)
		if err != nil {
			// The cache is an optimization; run without it.
			zl.Warn("redis unavailable, challenge cache disabled", zap.String("address", cfg.Redis.Address), zap.Error(err))
		} else {
			defer func() { _ = redisClient.Close() }()
			appCache = cache.NewRedisCache(redisClient, cfg.Redis.TTL)
			zl.Info("redis cache enabled", zap.String("address", cfg.Redis.Address))
		}
	}

	// --- Services ---
	authService := service.NewAuthService(repos.users, cfg.JWT.Secret, cfg.JWT.Expiration)
	attendanceService := service.NewAttendanceService(repos.attendance, loc, nil)
	exportService := service.NewExportService(repos.attendance, repos.users, repos.exports, fileStorage, zl.Named("export"), nil)
	challengeService := service.NewChallengeService(repos.challenges, repos.participations, appCache, zl.Named("challenges"), nil)
	leaderboardService := service.NewLeaderboardService(repos.challenges, repos.participations, appCache, cfg.Challenges.LeaderboardSize, zl.Named("leaderboard"), nil)
	participationService := service.NewParticipationService(repos.challenges, repos.participations, leaderboardService, zl.Named("participation"), nil)
	scheduler := service.NewStatsScheduler(repos.challenges, leaderboardService, cfg.Challenges.StatsInterval, zl.Named("scheduler"))

	// --- Background stats sweep ---
	bgCtx, stopBackground := context.WithCancel(context.Background())
	var bg sync.WaitGroup
	bg.Add(1)
	go func() {
		defer bg.Done()
		scheduler.Run(bgCtx)
	}()

	// --- HTTP ---
	router := api.NewRouter(cfg, loc, api.Services{
		Auth:          authService,
		Attendance:    attendanceService,
		Export:        exportService,
		Challenges:    challengeService,
		Participation: participationService,
		Leaderboard:   leaderboardService,
		Sweeper:       scheduler,
	}, zl.Named("http"))

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		zl.Info("server starting", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("ListenAndServe failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zl.Info("shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(ctxShutdown); err != nil {
		zl.Error("server forced to shutdown", zap.Error(err))
	}

	stopBackground()
	bg.Wait()
	zl.Info("server exiting")
}

func openRepositories(cfg config.DatabaseConfig, zl *zap.Logger) (*repositories, error) {
	if cfg.Driver == "memory" {
		zl.Warn("using in-memory storage, data is lost on restart")
		return &repositories{
			users:          memory.NewUserRepository(),
			attendance:     memory.NewAttendanceRepository(),
			challenges:     memory.NewChallengeRepository(),
			participations: memory.NewParticipationRepository(),
			exports:        memory.NewExportRepository(),
			close:          func() {},
		}, nil
	}

	client, err := mongo.ConnectDB(cfg.URI)
	if err != nil {
		return nil, err
	}
	db := client.Database(cfg.Name)
	zl.Info("database connection established", zap.String("database", cfg.Name))

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := mongo.EnsureIndexes(ctx, db); err != nil {
		_ = mongo.DisconnectDB(client)
		return nil, err
	}
	zl.Info("database indexes ensured")

	return &repositories{
		users:          mongo.NewMongoUserRepository(db),
		attendance:     mongo.NewMongoAttendanceRepository(db),
		challenges:     mongo.NewMongoChallengeRepository(db),
		participations: mongo.NewMongoParticipationRepository(db),
		exports:        mongo.NewMongoExportRepository(db),
		close: func() {
			if err := mongo.DisconnectDB(client); err != nil {
				zl.Error("failed to disconnect MongoDB", zap.Error(err))
			}
		},
	}, nil
}
