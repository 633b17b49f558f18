package api

import (
	"net/http"
	"net/http/pprof"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"riskmonitor/internal/api/handlers"
	"riskmonitor/internal/api/middleware"
	"riskmonitor/internal/service"
	"riskmonitor/internal/websocket"
)

// Dependencies содержит все зависимости для API handlers
type Dependencies struct {
	RiskService      service.RiskServiceInterface
	ThresholdService service.ThresholdServiceInterface
	ConfigService    service.ConfigServiceInterface
	AlertService     service.AlertServiceInterface
	ChannelService   service.ChannelServiceInterface
	Health           handlers.HealthReporter
	Hub              *websocket.Hub
	Logger           *zap.Logger
}

// SetupRoutes настраивает все HTTP маршруты приложения
//
// Назначение:
// Центральное место для определения всех API endpoints.
// Регистрирует handlers для каждого маршрута.
// Применяет middleware к группам маршрутов.
// Организует версионирование API (v1).
//
// Структура маршрутов:
//
// /api/v1/
//
//	├── /risk/{entity_type}/{entity_id}
//	│   ├── GET / - текущая оценка риска
//	│   ├── GET /history - история изменений оценки
//	│   ├── GET /explanation - объяснение оценки
//	│   ├── POST /monitor - постановка на мониторинг
//	│   └── DELETE /monitor - снятие с мониторинга
//	├── /thresholds/
//	│   ├── GET / - пороги пользователя
//	│   ├── POST / - создать порог
//	│   ├── PATCH /{id} - обновить порог
//	│   └── DELETE /{id} - удалить порог
//	├── /configs/
//	│   ├── GET / - профили риска пользователя
//	│   ├── GET /active - активный профиль
//	│   ├── POST / - создать профиль
//	│   ├── POST /template - создать из шаблона
//	│   ├── PATCH /{id} - обновить профиль
//	│   ├── POST /{id}/activate - активировать профиль
//	│   └── DELETE /{id} - удалить профиль
//	├── /alerts/
//	│   ├── GET / - алерты пользователя
//	│   ├── GET /{id} - один алерт
//	│   ├── POST /{id}/resolve - разрешить вручную
//	│   └── GET /{id}/deliveries - журнал доставки
//	└── /channels/
//	    ├── GET / - каналы доставки
//	    ├── POST / - создать канал
//	    ├── PATCH /{id} - обновить канал
//	    └── DELETE /{id} - удалить канал
//
// /ws/stream - WebSocket для real-time оценок и алертов
// /health - состояние сервиса и источников данных
// /metrics - Prometheus метрики
// /debug/pprof - профилирование (закрыто DebugAuth)
//
// Middleware применяется в следующем порядке:
// 1. Recovery (для всех маршрутов)
// 2. RequestID (для всех маршрутов)
// 3. Logging (для всех маршрутов)
// 4. CORS (для всех маршрутов)
func SetupRoutes(deps *Dependencies) *mux.Router {
	logger := zap.NewNop()
	if deps != nil && deps.Logger != nil {
		logger = deps.Logger
	}

	router := mux.NewRouter()

	// Глобальные middleware (применяются ко всем маршрутам)
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logging(logger))
	router.Use(middleware.CORS)

	// Создание handlers с внедрением зависимостей
	var riskHandler *handlers.RiskHandler
	if deps != nil && deps.RiskService != nil {
		riskHandler = handlers.NewRiskHandler(deps.RiskService)
	}

	var thresholdHandler *handlers.ThresholdHandler
	if deps != nil && deps.ThresholdService != nil {
		thresholdHandler = handlers.NewThresholdHandler(deps.ThresholdService)
	}

	var configHandler *handlers.ConfigHandler
	if deps != nil && deps.ConfigService != nil {
		configHandler = handlers.NewConfigHandler(deps.ConfigService)
	}

	var alertHandler *handlers.AlertHandler
	if deps != nil && deps.AlertService != nil {
		alertHandler = handlers.NewAlertHandler(deps.AlertService)
	}

	var channelHandler *handlers.ChannelHandler
	if deps != nil && deps.ChannelService != nil {
		channelHandler = handlers.NewChannelHandler(deps.ChannelService)
	}

	// API v1 routes
	api := router.PathPrefix("/api/v1").Subrouter()

	// Risk routes
	if riskHandler != nil {
		api.HandleFunc("/risk/{entity_type}/{entity_id}", riskHandler.GetAssessment).Methods("GET")
		api.HandleFunc("/risk/{entity_type}/{entity_id}/history", riskHandler.GetHistory).Methods("GET")
		api.HandleFunc("/risk/{entity_type}/{entity_id}/explanation", riskHandler.ExplainAssessment).Methods("GET")
		api.HandleFunc("/risk/{entity_type}/{entity_id}/monitor", riskHandler.RequestAssessment).Methods("POST")
		api.HandleFunc("/risk/{entity_type}/{entity_id}/monitor", riskHandler.StopMonitoring).Methods("DELETE")
	}

	// Threshold routes
	if thresholdHandler != nil {
		api.HandleFunc("/thresholds", thresholdHandler.GetThresholds).Methods("GET")
		api.HandleFunc("/thresholds", thresholdHandler.CreateThreshold).Methods("POST")
		api.HandleFunc("/thresholds/{id}", thresholdHandler.UpdateThreshold).Methods("PATCH")
		api.HandleFunc("/thresholds/{id}", thresholdHandler.DeleteThreshold).Methods("DELETE")
	}

	// Config routes
	if configHandler != nil {
		api.HandleFunc("/configs", configHandler.GetConfigs).Methods("GET")
		api.HandleFunc("/configs/active", configHandler.GetActiveConfig).Methods("GET")
		api.HandleFunc("/configs", configHandler.CreateConfig).Methods("POST")
		api.HandleFunc("/configs/template", configHandler.CreateFromTemplate).Methods("POST")
		api.HandleFunc("/configs/{id}", configHandler.UpdateConfig).Methods("PATCH")
		api.HandleFunc("/configs/{id}/activate", configHandler.ActivateConfig).Methods("POST")
		api.HandleFunc("/configs/{id}", configHandler.DeleteConfig).Methods("DELETE")
	}

	// Alert routes
	if alertHandler != nil {
		api.HandleFunc("/alerts", alertHandler.GetAlerts).Methods("GET")
		api.HandleFunc("/alerts/{id}", alertHandler.GetAlert).Methods("GET")
		api.HandleFunc("/alerts/{id}/resolve", alertHandler.ResolveAlert).Methods("POST")
		api.HandleFunc("/alerts/{id}/deliveries", alertHandler.GetDeliveryAttempts).Methods("GET")
	}

	// Channel routes
	if channelHandler != nil {
		api.HandleFunc("/channels", channelHandler.GetChannels).Methods("GET")
		api.HandleFunc("/channels", channelHandler.CreateChannel).Methods("POST")
		api.HandleFunc("/channels/{id}", channelHandler.UpdateChannel).Methods("PATCH")
		api.HandleFunc("/channels/{id}", channelHandler.DeleteChannel).Methods("DELETE")
	}

	// WebSocket route
	if deps != nil && deps.Hub != nil {
		hub := deps.Hub
		router.HandleFunc("/ws/stream", func(w http.ResponseWriter, r *http.Request) {
			websocket.ServeWS(hub, w, r)
		})
	}

	// Health check endpoint
	if deps != nil && deps.Health != nil {
		healthHandler := handlers.NewHealthHandler(deps.Health)
		router.HandleFunc("/health", healthHandler.GetHealth).Methods("GET")
	} else {
		router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		}).Methods("GET")
	}

	// Prometheus метрики
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Debug endpoints (закрыты Basic Auth)
	debug := router.PathPrefix("/debug/pprof").Subrouter()
	debug.Use(middleware.DebugAuth)
	debug.HandleFunc("/", pprof.Index)
	debug.HandleFunc("/cmdline", pprof.Cmdline)
	debug.HandleFunc("/profile", pprof.Profile)
	debug.HandleFunc("/symbol", pprof.Symbol)
	debug.HandleFunc("/trace", pprof.Trace)
	debug.PathPrefix("/").Handler(http.DefaultServeMux)

	return router
}
