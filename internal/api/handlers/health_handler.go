package handlers

import (
	"net/http"
	"time"

	"riskmonitor/internal/monitor"
)

// HealthReporter отдает состояние внешних источников данных.
// Реализуется monitor.HealthMonitor.
type HealthReporter interface {
	Snapshot() []monitor.SourceStatus
	AllHealthy() bool
}

// HealthHandler отвечает за health check сервиса
//
// Endpoints:
// - GET /health - состояние сервиса и источников данных
//
// Назначение:
// Отдает агрегированный статус для балансировщика и дашборда.
// Сервис остается доступным при недоступных источниках: статус
// degraded означает, что оценки считаются по частичным данным.
type HealthHandler struct {
	health HealthReporter
}

// NewHealthHandler создает новый HealthHandler с внедрением зависимости
func NewHealthHandler(health HealthReporter) *HealthHandler {
	return &HealthHandler{
		health: health,
	}
}

// HealthResponse представляет ответ health check
type HealthResponse struct {
	Status    string                 `json:"status"` // ok | degraded
	Sources   []monitor.SourceStatus `json:"sources"`
	Timestamp time.Time              `json:"timestamp"`
}

// GetHealth возвращает состояние сервиса
//
// GET /health
//
// HTTP коды:
// - 200 OK: всегда, пока процесс жив; деградация отражается в status
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if !h.health.AllHealthy() {
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    status,
		Sources:   h.health.Snapshot(),
		Timestamp: time.Now().UTC(),
	})
}
