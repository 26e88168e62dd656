package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/mroshb/friend_calendar/internal/cache"
	"github.com/mroshb/friend_calendar/internal/config"
	"github.com/mroshb/friend_calendar/internal/database"
	"github.com/mroshb/friend_calendar/internal/handlers"
	"github.com/mroshb/friend_calendar/internal/metrics"
	"github.com/mroshb/friend_calendar/internal/middleware"
	"github.com/mroshb/friend_calendar/internal/repositories"
	"github.com/mroshb/friend_calendar/internal/security"
	"github.com/mroshb/friend_calendar/internal/services"
	"github.com/mroshb/friend_calendar/pkg/logger"
	"github.com/mroshb/friend_calendar/telegram"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	logger.Init()
	defer logger.Sync()

	logger.Info("Starting calendar server...")

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load config", err)
	}

	if cfg.AppEnv == "production" {
		if err := cfg.ValidateProductionSecurity(); err != nil {
			logger.Fatal("Production security validation failed", err)
		}
		logger.Info("Production security validation passed")
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	var principals services.PrincipalCache
	if cfg.RedisAddr != "" {
		client, err := cache.Connect(context.Background(), cfg.RedisAddr)
		if err != nil {
			logger.Warn("Redis unavailable, principal cache disabled", "addr", cfg.RedisAddr, "error", err)
		} else {
			defer client.Close()
			principals = cache.NewRedisPrincipalCache(client, cache.DefaultPrincipalTTL)
		}
	}

	var notifier services.Notifier
	if cfg.BotToken != "" {
		api, err := telegram.NewBotAPI(cfg.BotToken, cfg.AppEnv == "development")
		if err != nil {
			logger.Warn("Telegram unavailable, notifications disabled", "error", err)
		} else {
			tg := telegram.NewNotifier(api)
			defer tg.Close()
			notifier = tg
		}
	}

	m := metrics.New()
	settings := services.SettingsFromConfig(cfg)

	userRepo := repositories.NewUserRepository(db)
	friendRepo := repositories.NewFriendRepository(db)
	calendarRepo := repositories.NewCalendarRepository(db)
	eventRepo := repositories.NewEventRepository(db)
	scoreRepo := repositories.NewScoreRepository(db)

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerUser, cfg.RateLimitPerIP, time.Minute)
	defer limiter.Stop()

	h := handlers.NewHandlerManager(
		services.NewAuthService(userRepo, security.NewTokenIssuer(cfg.JWTSecret, cfg.GetTokenTTL()), principals),
		services.NewFriendService(friendRepo, userRepo, notifier, m),
		services.NewCalendarService(calendarRepo, eventRepo, friendRepo, userRepo, notifier, m),
		services.NewEventService(eventRepo, calendarRepo, friendRepo, settings),
		services.NewGamificationService(scoreRepo, eventRepo, calendarRepo, userRepo, friendRepo, nil, settings, m),
		m,
		limiter,
	)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           handlers.NewRouter(h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", err)
		}
	}()
	logger.Info("Server started", "env", cfg.AppEnv, "port", cfg.AppPort)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Forced shutdown", "error", err)
	}
	logger.Info("Server stopped")
}
