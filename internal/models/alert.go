package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы доставки алерта
const (
	DeliveryPending = "pending"
	DeliverySent    = "sent"
	DeliveryFailed  = "failed"
)

// Alert - сработавший порог.
//
// Открытый алерт уникален по (user_address, entity, threshold_id):
// повторное нарушение того же порога в пределах cooldown инкрементирует
// fire_count, а не создает новую запись.
type Alert struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	UserAddress    string     `json:"user_address" db:"user_address"`
	EntityType     string     `json:"entity_type" db:"entity_type"`
	EntityID       string     `json:"entity_id" db:"entity_id"`
	ThresholdID    uuid.UUID  `json:"threshold_id" db:"threshold_id"`
	Metric         string     `json:"metric" db:"metric"`
	Severity       string     `json:"severity" db:"severity"`
	Title          string     `json:"title" db:"title"`
	Message        string     `json:"message" db:"message"`
	CurrentValue   float64    `json:"current_value" db:"current_value"`
	ThresholdValue float64    `json:"threshold_value" db:"threshold_value"`
	FireCount      int        `json:"fire_count" db:"fire_count"`
	LastFiredAt    time.Time  `json:"last_fired_at" db:"last_fired_at"`
	DeliveryStatus string     `json:"delivery_status" db:"delivery_status"`
	IsResolved     bool       `json:"is_resolved" db:"is_resolved"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
	ResolvedBy     string     `json:"resolved_by,omitempty" db:"resolved_by"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// SeverityForBreach возвращает severity алерта по метрике и величине
// нарушения. Банды подобраны по метрике: одинаковое значение IL и
// overall risk означает разный уровень опасности.
func SeverityForBreach(metric string, current float64) string {
	switch metric {
	case MetricImpermanentLoss:
		switch {
		case current > 0.20:
			return SeverityCritical
		case current > 0.10:
			return SeverityHigh
		default:
			return SeverityMedium
		}
	case MetricTVLDrop:
		switch {
		case current > 0.50:
			return SeverityCritical
		case current > 0.30:
			return SeverityHigh
		default:
			return SeverityMedium
		}
	case MetricLiquidityRisk:
		switch {
		case current > 0.80:
			return SeverityCritical
		case current > 0.60:
			return SeverityHigh
		default:
			return SeverityMedium
		}
	case MetricOverallRisk:
		switch {
		case current > 0.85:
			return SeverityCritical
		case current > 0.70:
			return SeverityHigh
		default:
			return SeverityMedium
		}
	default:
		return SeverityMedium
	}
}

// AlertFilter - фильтры выборки алертов
type AlertFilter struct {
	UserAddress string
	EntityID    string
	Severity    string
	Resolved    *bool
	Limit       int
	Offset      int
}

// Normalize приводит лимиты фильтра к допустимым значениям
func (f *AlertFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 200 {
		f.Limit = 200
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// DeliveryAttempt - одна попытка доставки алерта в канал
type DeliveryAttempt struct {
	ID           uuid.UUID `json:"id" db:"id"`
	AlertID      uuid.UUID `json:"alert_id" db:"alert_id"`
	Channel      string    `json:"channel" db:"channel"`
	Attempt      int       `json:"attempt" db:"attempt"`
	Success      bool      `json:"success" db:"success"`
	ResponseCode int       `json:"response_code" db:"response_code"`
	Error        string    `json:"error,omitempty" db:"error"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
