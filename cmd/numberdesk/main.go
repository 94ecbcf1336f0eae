package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brandotp/numberdesk/internal/auth"
	"github.com/brandotp/numberdesk/internal/catalog"
	"github.com/brandotp/numberdesk/internal/config"
	"github.com/brandotp/numberdesk/internal/events"
	"github.com/brandotp/numberdesk/internal/facade"
	"github.com/brandotp/numberdesk/internal/gateway"
	"github.com/brandotp/numberdesk/internal/history"
	"github.com/brandotp/numberdesk/internal/logging"
	"github.com/brandotp/numberdesk/internal/presenter"
	"github.com/brandotp/numberdesk/internal/session"
	"github.com/brandotp/numberdesk/internal/wallet"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/streadway/amqp"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	var tokens auth.Store
	if cfg.TokenPath != "" {
		tokens = auth.NewFileStore(cfg.TokenPath)
	} else {
		tokens = auth.NewMemoryStore()
	}

	client := gateway.NewClient(cfg.MarketplaceURL, tokens, logger)

	metrics := session.NewMetrics()
	controller := session.NewController(client, session.Config{
		PollInterval: cfg.PollInterval,
		SmsTimeout:   cfg.SmsTimeout,
	}, metrics, logger)
	defer controller.Close()

	controller.AddPresenter(presenter.NewConsole(logger))

	hist := history.NewLog()
	controller.AddPresenter(hist)

	// Optional Redis catalog cache.
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Warnf("Redis unavailable, catalog cache disabled: %v", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}
	cat := catalog.New(client, redisClient, cfg.CatalogTTL, logger)

	// Optional RabbitMQ event mirror.
	if cfg.RabbitURI != "" {
		rabbitConn, err := amqp.Dial(cfg.RabbitURI)
		if err != nil {
			logger.Warnf("RabbitMQ unavailable, event publishing disabled: %v", err)
		} else {
			defer rabbitConn.Close()

			rabbitChannel, err := rabbitConn.Channel()
			if err != nil {
				logger.Fatalf("Failed to open RabbitMQ channel: %v", err)
			}
			defer rabbitChannel.Close()

			publisher, err := events.NewPublisher(rabbitChannel, logger)
			if err != nil {
				logger.Fatalf("Failed to declare event exchange: %v", err)
			}
			controller.AddPresenter(publisher)
		}
	}

	// Optional Telegram notifications.
	tgCfg, err := presenter.LoadTelegramConfig()
	if err != nil {
		logger.Warnf("Telegram config invalid, notifications disabled: %v", err)
	} else if tgCfg.Enabled() {
		tg, err := presenter.NewTelegram(tgCfg, logger)
		if err != nil {
			logger.Warnf("Telegram bot init failed, notifications disabled: %v", err)
		} else {
			controller.AddPresenter(tg)
		}
	}

	walletSvc := wallet.NewService(client, logger)
	handler := facade.NewHandler(controller, cat, walletSvc, hist, client, tokens, logger)

	gin.SetMode(gin.ReleaseMode)
	httpServer := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: handler.Router(),
	}

	go func() {
		logger.Infof("Starting HTTP server on port %s", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	// Warm the balance display if a token is already stored.
	if tokens.Token() != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		controller.RefreshBalance(ctx)
		cancel()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Errorf("HTTP server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}
