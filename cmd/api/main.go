package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/aniladanir/whatsapp-messenger-service/internal/cache"
	redisCache "github.com/aniladanir/whatsapp-messenger-service/internal/cache/redis"
	"github.com/aniladanir/whatsapp-messenger-service/internal/domain"
	httpHandler "github.com/aniladanir/whatsapp-messenger-service/internal/handler/http"
	"github.com/aniladanir/whatsapp-messenger-service/internal/logging"
	"github.com/aniladanir/whatsapp-messenger-service/internal/metrics"
	"github.com/aniladanir/whatsapp-messenger-service/internal/persistant/postgresql"
	messageLogRepo "github.com/aniladanir/whatsapp-messenger-service/internal/repository/messagelog"
	"github.com/aniladanir/whatsapp-messenger-service/internal/service"
	"github.com/aniladanir/whatsapp-messenger-service/internal/whatsapp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"
)

var (
	envFile = flag.String("env", ".env", "dotenv file path")
)

func main() {
	// create root context
	appCtx, appCtxCancel := context.WithCancel(context.Background())
	defer appCtxCancel()

	// listen for terminate signal
	notifyCtx, stop := signal.NotifyContext(appCtx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// parse flags
	flag.Parse()

	// parse config
	config, err := ReadConfig(*envFile)
	if err != nil {
		log.Fatalf("failed to read config: %v", err)
	}

	// setup logger
	logger := logging.New(os.Stdout, config.AppName, config.LogLevel, config.LogFormat)
	slog.SetDefault(logger)

	// the messaging client validates credentials before anything else is touched
	waClient, err := whatsapp.NewClient(whatsapp.Config{
		BaseURL:       config.WhatsAppAPIURL,
		PhoneNumberID: config.WhatsAppPhoneNumberID,
		AccessToken:   config.WhatsAppAccessToken,
		Timeout:       config.WhatsAppTimeout,
	}, logger.With(slog.String("component", "whatsappClient")))
	if err != nil {
		log.Fatalf("failed to initiate whatsapp client: %v", err)
	}

	// initialize external dependencies
	db, rCache, err := initExternalDependencies(notifyCtx, config)
	if err != nil {
		log.Fatalf("failed to initialize external dependencies: %v", err)
	}

	// metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(registry)

	// init message log repository
	var receiptCache cache.Cache
	if rCache != nil {
		receiptCache = rCache
	}
	msgRepo := messageLogRepo.NewMessageLogRepository(db, receiptCache, config.RedisTTL)

	// init message sender service
	msgSender, err := service.NewMessageSenderService(
		msgRepo,
		waClient,
		logger.With(slog.String("component", "messageSender")),
	)
	if err != nil {
		log.Fatalf("failed to initiate message sender service: %v", err)
	}

	// init http handler
	httpHandler := httpHandler.NewHttpHandler(
		fmt.Sprintf(":%d", config.HttpPort),
		msgSender,
		httpHandler.Options{
			AppName:     config.AppName,
			Environment: config.Environment,
			MessageBody: config.MessageBody,
			Gatherer:    registry,
		},
	)

	logger.Info("application starting",
		"port", config.HttpPort,
		"environment", config.Environment,
		"receiptCache", rCache != nil,
	)

	wg := sync.WaitGroup{}
	// run http handler
	wg.Go(func() {
		if err := httpHandler.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server encountered with an error and closed", "error", err.Error())
		}
		// cancel app context if http handler fails
		appCtxCancel()
	})

	// graceful shutdown
	wg.Go(func() {
		<-notifyCtx.Done()
		logger.Info("application shutting down...")

		shutDownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()

		if err := httpHandler.Shutdown(shutDownCtx); err != nil {
			logger.Error("failed to shutdown http server", "error", err.Error())
		}
		if rCache != nil {
			_ = rCache.Close()
		}
		if err := postgresql.Close(db); err != nil {
			logger.Error("failed to close database", "error", err.Error())
		}
	})

	wg.Wait()
	os.Exit(0)
}

func initExternalDependencies(ctx context.Context, config *Config) (db *gorm.DB, rCache *redisCache.RedisCache, err error) {
	// initialize database
	db, err = postgresql.Initialize(ctx, config.DatabaseURL, config.DbConnectAttempts, []any{&domain.MessageLog{}})
	if err != nil {
		return
	}

	// initialize cache
	if config.RedisAddr != "" {
		rCache, err = redisCache.NewRedisCache(ctx, config.RedisAddr, config.DbConnectAttempts)
	}

	return
}
