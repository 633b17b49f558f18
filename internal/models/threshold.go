package models

import (
	"time"

	"github.com/google/uuid"
)

// Метрики, на которые вешаются пороги
const (
	MetricImpermanentLoss = "impermanent_loss"
	MetricTVLDrop         = "tvl_drop"
	MetricLiquidityRisk   = "liquidity_risk"
	MetricVolatilityRisk  = "volatility_risk"
	MetricProtocolRisk    = "protocol_risk"
	MetricMEVRisk         = "mev_risk"
	MetricCrossChainRisk  = "cross_chain_risk"
	MetricOverallRisk     = "overall_risk"
)

// Операторы сравнения порога
const (
	OpGreaterThan        = "greater_than"
	OpLessThan           = "less_than"
	OpGreaterThanOrEqual = "greater_than_or_equal"
	OpLessThanOrEqual    = "less_than_or_equal"
)

// ValidMetric проверяет имя метрики
func ValidMetric(m string) bool {
	switch m {
	case MetricImpermanentLoss, MetricTVLDrop, MetricLiquidityRisk, MetricVolatilityRisk,
		MetricProtocolRisk, MetricMEVRisk, MetricCrossChainRisk, MetricOverallRisk:
		return true
	}
	return false
}

// ValidOperator проверяет оператор сравнения
func ValidOperator(op string) bool {
	switch op {
	case OpGreaterThan, OpLessThan, OpGreaterThanOrEqual, OpLessThanOrEqual:
		return true
	}
	return false
}

// AlertThreshold - пользовательский порог на метрику риска.
//
// EntityID == nil означает глобальный порог: он применяется ко всем
// сущностям пользователя. Порог с EntityID имеет приоритет над
// глобальным для той же метрики.
type AlertThreshold struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	UserAddress    string     `json:"user_address" db:"user_address"`
	EntityType     string     `json:"entity_type" db:"entity_type"`
	EntityID       *string    `json:"entity_id,omitempty" db:"entity_id"`
	Metric         string     `json:"metric" db:"metric"`
	Operator       string     `json:"operator" db:"operator"`
	ThresholdValue float64    `json:"threshold_value" db:"threshold_value"`
	IsEnabled      bool       `json:"is_enabled" db:"is_enabled"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// IsExceeded проверяет, нарушает ли текущее значение порог.
// Выключенный порог не срабатывает никогда.
func (t *AlertThreshold) IsExceeded(current float64) bool {
	if !t.IsEnabled {
		return false
	}
	switch t.Operator {
	case OpGreaterThan:
		return current > t.ThresholdValue
	case OpLessThan:
		return current < t.ThresholdValue
	case OpGreaterThanOrEqual:
		return current >= t.ThresholdValue
	case OpLessThanOrEqual:
		return current <= t.ThresholdValue
	}
	return false
}

// DefaultThresholds возвращает стартовый набор порогов,
// засеиваемый при активации профиля пользователя.
func DefaultThresholds(userAddress string) []*AlertThreshold {
	now := time.Now().UTC()
	mk := func(metric string, value float64) *AlertThreshold {
		return &AlertThreshold{
			ID:             uuid.New(),
			UserAddress:    userAddress,
			EntityType:     EntityPosition,
			Metric:         metric,
			Operator:       OpGreaterThan,
			ThresholdValue: value,
			IsEnabled:      true,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
	}
	return []*AlertThreshold{
		mk(MetricImpermanentLoss, 0.05),
		mk(MetricTVLDrop, 0.50),
		mk(MetricOverallRisk, 0.70),
		mk(MetricLiquidityRisk, 0.60),
		mk(MetricMEVRisk, 0.80),
	}
}
