package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"riskmonitor/internal/alerting"
	"riskmonitor/internal/api"
	"riskmonitor/internal/config"
	"riskmonitor/internal/datasource"
	"riskmonitor/internal/monitor"
	"riskmonitor/internal/repository"
	"riskmonitor/internal/risk"
	"riskmonitor/internal/service"
	"riskmonitor/internal/websocket"
	"riskmonitor/pkg/utils"

	_ "github.com/lib/pq"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	logger, err := utils.InitLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	// Инициализация базы данных
	db, err := initDatabase(cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("connected to database", zap.String("dsn", cfg.Database.DSNWithoutPassword()))

	// Инициализация репозиториев
	assessmentRepo := repository.NewAssessmentRepository(db)
	configRepo := repository.NewConfigRepository(db)
	thresholdRepo := repository.NewThresholdRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	channelRepo := repository.NewChannelRepository(db)

	// Факторные движки и агрегатор
	registry := risk.NewRegistry(
		risk.NewLiquidityEngine(),
		risk.NewVolatilityEngine(),
		risk.NewProtocolEngine(),
		risk.NewMEVEngine(),
		risk.NewCrossChainEngine(),
		risk.NewImpermanentLossEngine(),
	)
	resolver := risk.NewResolver(configRepo, logger)
	aggregator := risk.NewAggregator(registry, resolver, risk.AggregatorConfig{
		EngineTimeout:   cfg.Monitor.EngineTimeout,
		ConfidenceFloor: 0.1,
		AssessmentTTL:   cfg.Monitor.AssessmentTTL,
		SnapshotMaxAge:  cfg.Monitor.SnapshotMaxAge,
	}, logger)

	// Клиенты внешних источников данных
	httpClient := datasource.NewHTTPClient(datasource.HTTPClientConfig{
		ConnectTimeout:      3 * time.Second,
		TotalTimeout:        cfg.Sources.RequestTimeout,
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	})
	indexerClient := datasource.NewIndexerClient(cfg.Sources.IndexerURL, httpClient)
	priceClient := datasource.NewPriceFeedClient(cfg.Sources.PriceFeedURL, httpClient)
	protocolClient := datasource.NewProtocolClient(cfg.Sources.ProtocolURL, httpClient)
	collector := datasource.NewCollector(indexerClient, priceClient, protocolClient,
		datasource.DefaultCollectorConfig(), logger)

	// WebSocket hub
	hub := websocket.NewHub(logger)
	go hub.Run()
	defer hub.Stop()

	// Доставка алертов: вебхуки с retry + рассылка по WebSocket
	dispatcher := alerting.NewWebhookDispatcher(channelRepo, alertRepo, alerting.DispatcherConfig{
		QueueSize:       cfg.Alerting.DispatchQueueSize,
		Workers:         cfg.Alerting.DispatchWorkers,
		MaxRetries:      cfg.Alerting.MaxRetries,
		RetryBackoff:    cfg.Alerting.RetryBackoff,
		DeliveryTimeout: cfg.Alerting.DeliveryTimeout,
		RatePerSec:      cfg.Alerting.DeliveryRatePerSec,
		EncryptionKey:   cfg.Security.EncryptionKey,
		DefaultSecret:   cfg.Security.WebhookSecret,
	}, logger)
	dispatcher.Start()
	defer dispatcher.Stop()

	// Жизненный цикл алертов
	evaluator := alerting.NewEvaluator(thresholdRepo, logger)
	manager := alerting.NewManager(alertRepo,
		alerting.NewFanoutDispatcher(dispatcher, hub),
		cfg.Alerting.Cooldown, logger)
	pipeline := alerting.NewPipeline(evaluator, manager)

	// Планировщик пересчета: оценки после записи уходят в WebSocket
	scheduler := monitor.NewScheduler(
		collector,
		aggregator,
		monitor.NewBroadcastingStore(assessmentRepo, hub),
		pipeline,
		monitor.SchedulerConfig{
			Interval:       cfg.Monitor.AssessmentInterval,
			Shards:         cfg.Monitor.WorkerShards,
			QueueSize:      cfg.Monitor.QueueSize,
			ProcessTimeout: cfg.Monitor.EngineTimeout*6 + cfg.Sources.RequestTimeout,
		},
		logger,
	)

	// Независимый цикл health-проверок источников
	healthMonitor := monitor.NewHealthMonitor(
		[]monitor.Checker{indexerClient, priceClient, protocolClient},
		cfg.Monitor.HealthCheckInterval,
		cfg.Sources.RequestTimeout,
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := scheduler.Run(ctx); err != nil && err != context.Canceled {
			logger.Error("scheduler stopped", zap.Error(err))
		}
	}()
	go func() {
		if err := healthMonitor.Run(ctx); err != nil && err != context.Canceled {
			logger.Error("health monitor stopped", zap.Error(err))
		}
	}()

	// Инициализация сервисов
	riskService := service.NewRiskService(assessmentRepo, scheduler, logger)
	thresholdService := service.NewThresholdService(thresholdRepo, assessmentRepo)
	configService := service.NewConfigService(configRepo, thresholdRepo, logger)
	alertService := service.NewAlertService(alertRepo, manager)
	channelService := service.NewChannelService(channelRepo, cfg.Security.EncryptionKey)

	// Настройка зависимостей для API
	deps := &api.Dependencies{
		RiskService:      riskService,
		ThresholdService: thresholdService,
		ConfigService:    configService,
		AlertService:     alertService,
		ChannelService:   channelService,
		Health:           healthMonitor,
		Hub:              hub,
		Logger:           logger,
	}

	// Настройка HTTP роутера
	router := api.SetupRoutes(deps)

	// HTTP сервер
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Запуск сервера в отдельной горутине
	go func() {
		logger.Info("starting server", zap.String("addr", server.Addr))
		if cfg.Server.UseHTTPS {
			if err := server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile); err != nil && err != http.ErrServerClosed {
				logger.Fatal("server failed", zap.Error(err))
			}
		} else {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Fatal("server failed", zap.Error(err))
			}
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	// Останавливаем фоновые циклы; диспетчер и hub закрываются в defer,
	// диспетчер перед выходом дожидается доставки оставшихся уведомлений
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}

// initDatabase создает подключение к базе данных
func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Настройка пула соединений
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Проверка подключения
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
