package monitor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ============================================================
// HealthMonitor - независимый цикл проверки источников данных
// ============================================================
// Крутится отдельно от планировщика: недоступный источник виден
// в /health и в метриках до того, как деградируют оценки.

// Checker - проверка доступности одного источника
type Checker interface {
	Name() string
	Healthy(ctx context.Context) error
}

// SourceStatus - последний известный статус источника
type SourceStatus struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	LatencyMs float64   `json:"latency_ms"`
	CheckedAt time.Time `json:"checked_at"`
}

type HealthMonitor struct {
	checkers []Checker
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger

	mu       sync.RWMutex
	statuses map[string]SourceStatus
}

// NewHealthMonitor создает монитор источников
func NewHealthMonitor(checkers []Checker, interval, timeout time.Duration, logger *zap.Logger) *HealthMonitor {
	return &HealthMonitor{
		checkers: checkers,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
		statuses: make(map[string]SourceStatus),
	}
}

// Run запускает цикл проверок. Блокирует до отмены контекста.
func (h *HealthMonitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.CheckNow(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			h.CheckNow(ctx)
		}
	}
}

// CheckNow проверяет все источники параллельно
func (h *HealthMonitor) CheckNow(ctx context.Context) {
	var wg sync.WaitGroup
	for _, checker := range h.checkers {
		wg.Add(1)
		go func(c Checker) {
			defer wg.Done()
			h.check(ctx, c)
		}(checker)
	}
	wg.Wait()
}

func (h *HealthMonitor) check(ctx context.Context, c Checker) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	err := c.Healthy(ctx)
	latencyMs := float64(time.Since(start).Microseconds()) / 1000

	status := SourceStatus{
		Name:      c.Name(),
		Healthy:   err == nil,
		LatencyMs: latencyMs,
		CheckedAt: time.Now().UTC(),
	}
	if err != nil {
		status.Error = err.Error()
		h.logger.Warn("data source unhealthy",
			zap.String("source", c.Name()),
			zap.Error(err))
	}

	UpdateSourceStatus(c.Name(), status.Healthy, latencyMs)

	h.mu.Lock()
	h.statuses[c.Name()] = status
	h.mu.Unlock()
}

// Snapshot возвращает статусы всех источников
func (h *HealthMonitor) Snapshot() []SourceStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	statuses := make([]SourceStatus, 0, len(h.checkers))
	for _, c := range h.checkers {
		if s, ok := h.statuses[c.Name()]; ok {
			statuses = append(statuses, s)
		} else {
			statuses = append(statuses, SourceStatus{Name: c.Name()})
		}
	}
	return statuses
}

// AllHealthy сообщает, доступны ли все источники
func (h *HealthMonitor) AllHealthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.statuses) < len(h.checkers) {
		return false
	}
	for _, s := range h.statuses {
		if !s.Healthy {
			return false
		}
	}
	return true
}
