package alerting

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"riskmonitor/internal/models"
	"riskmonitor/internal/repository"
	"riskmonitor/pkg/utils"
)

// manager.go - жизненный цикл алертов
//
// Назначение:
// Создание, повторное срабатывание и разрешение алертов по
// результатам проверки порогов.
//
// Машина состояний порог×сущность:
// - нет открытого алерта + нарушение → создать алерт, отправить
// - открытый алерт + нарушение внутри cooldown → fire_count++, без отправки
// - открытый алерт + нарушение после cooldown → fire_count++, повторная отправка
// - открытый алерт + нарушение ушло → авторазрешение (resolved_by=system)
// - ручное разрешение пользователем возможно в любой момент
//
// Ключ дедупликации (user, entity, threshold): открытый алерт на
// ключ существует не более одного.

// AlertStore - хранилище алертов
type AlertStore interface {
	Create(a *models.Alert) error
	GetOpen(userAddress, entityType, entityID string, thresholdID uuid.UUID) (*models.Alert, error)
	GetByID(id uuid.UUID) (*models.Alert, error)
	IncrementFireCount(id uuid.UUID, currentValue float64) error
	RecordRefire(id uuid.UUID, currentValue float64, severity string, firedAt time.Time) error
	Resolve(id uuid.UUID, resolvedBy string) error
}

// Dispatcher - асинхронная доставка уведомлений.
// Enqueue не блокирует: при переполненной очереди возвращает false.
type Dispatcher interface {
	Enqueue(alert *models.Alert, eventType string, metrics map[string]float64) bool
}

type Manager struct {
	alerts     AlertStore
	dispatcher Dispatcher
	cooldown   time.Duration
	logger     *zap.Logger

	// Переопределяется в тестах
	now func() time.Time
}

func NewManager(alerts AlertStore, dispatcher Dispatcher, cooldown time.Duration, logger *zap.Logger) *Manager {
	return &Manager{
		alerts:     alerts,
		dispatcher: dispatcher,
		cooldown:   cooldown,
		logger:     logger,
		now:        time.Now,
	}
}

// Apply применяет результат проверки порога к состоянию алертов
func (m *Manager) Apply(outcome Outcome, a *models.RiskAssessment) error {
	th := outcome.Threshold

	existing, err := m.alerts.GetOpen(th.UserAddress, a.EntityType, a.EntityID, th.ID)
	if err != nil && !errors.Is(err, repository.ErrAlertNotFound) {
		return err
	}
	hasOpen := err == nil

	if !outcome.Breached {
		if !hasOpen {
			return nil
		}
		// Нарушение ушло: эпизод закрывается системой
		if err := m.alerts.Resolve(existing.ID, "system"); err != nil {
			return err
		}
		m.logger.Info("alert auto-resolved",
			zap.String("alert_id", existing.ID.String()),
			zap.String("entity_id", a.EntityID),
			zap.String("metric", th.Metric))
		m.dispatch(existing, models.EventAlertResolved, a)
		return nil
	}

	if !hasOpen {
		alert := m.buildAlert(outcome, a)
		if err := m.alerts.Create(alert); err != nil {
			// Гонка двух тиков по одному ключу: открытый алерт уже есть
			if errors.Is(err, repository.ErrAlertExists) {
				return nil
			}
			return err
		}
		m.logger.Info("alert created",
			zap.String("alert_id", alert.ID.String()),
			zap.String("entity_id", a.EntityID),
			zap.String("metric", th.Metric),
			zap.String("severity", alert.Severity),
			zap.Float64("current_value", outcome.Current))
		m.dispatch(alert, models.EventAlertCreated, a)
		return nil
	}

	// Продолжающееся нарушение: счетчик растет на каждом тике,
	// повторная отправка только после cooldown
	now := m.now()
	if utils.WithinWindow(existing.LastFiredAt, now, m.cooldown) {
		return m.alerts.IncrementFireCount(existing.ID, outcome.Current)
	}

	severity := models.SeverityForBreach(th.Metric, outcome.Current)
	if err := m.alerts.RecordRefire(existing.ID, outcome.Current, severity, now); err != nil {
		return err
	}

	existing.CurrentValue = outcome.Current
	existing.Severity = severity
	existing.LastFiredAt = now
	m.logger.Info("alert re-fired",
		zap.String("alert_id", existing.ID.String()),
		zap.String("entity_id", a.EntityID),
		zap.Int("fire_count", existing.FireCount+1))
	m.dispatch(existing, models.EventAlertRefired, a)
	return nil
}

// ResolveByUser разрешает алерт вручную
func (m *Manager) ResolveByUser(alertID uuid.UUID) error {
	if err := m.alerts.Resolve(alertID, "user"); err != nil {
		return err
	}
	m.logger.Info("alert resolved by user", zap.String("alert_id", alertID.String()))
	return nil
}

func (m *Manager) dispatch(alert *models.Alert, eventType string, a *models.RiskAssessment) {
	if m.dispatcher == nil {
		return
	}
	if !m.dispatcher.Enqueue(alert, eventType, models.RiskMetricsMap(a)) {
		m.logger.Warn("dispatch queue full, notification dropped",
			zap.String("alert_id", alert.ID.String()),
			zap.String("event_type", eventType))
	}
}

func (m *Manager) buildAlert(outcome Outcome, a *models.RiskAssessment) *models.Alert {
	th := outcome.Threshold
	return &models.Alert{
		UserAddress:    th.UserAddress,
		EntityType:     a.EntityType,
		EntityID:       a.EntityID,
		ThresholdID:    th.ID,
		Metric:         th.Metric,
		Severity:       models.SeverityForBreach(th.Metric, outcome.Current),
		Title:          titleForMetric(th.Metric),
		Message:        breachMessage(outcome),
		CurrentValue:   outcome.Current,
		ThresholdValue: th.ThresholdValue,
	}
}

func titleForMetric(metric string) string {
	words := strings.Split(metric, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		if w == "mev" || w == "tvl" {
			words[i] = strings.ToUpper(w)
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ") + " Alert"
}

func breachMessage(outcome Outcome) string {
	op := map[string]string{
		models.OpGreaterThan:        "exceeds",
		models.OpGreaterThanOrEqual: "reaches",
		models.OpLessThan:           "falls below",
		models.OpLessThanOrEqual:    "drops to",
	}[outcome.Threshold.Operator]

	return fmt.Sprintf("%s %.2f%% %s threshold %.2f%%",
		outcome.Threshold.Metric,
		outcome.Current*100,
		op,
		outcome.Threshold.ThresholdValue*100)
}
