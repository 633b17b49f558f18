package models

import (
	"time"

	"github.com/google/uuid"
)

// notification.go - каналы доставки и события вебхуков
//
// Назначение:
// Конфигурация каналов уведомлений пользователя и формат событий,
// отправляемых получателям при срабатывании и разрешении алертов.

// Виды каналов доставки
const (
	ChannelWebhook     = "webhook"
	ChannelEmail       = "email"
	ChannelChatWebhook = "chat_webhook"
)

// Типы событий вебхука
const (
	EventAlertCreated  = "alert.created"
	EventAlertRefired  = "alert.refired"
	EventAlertResolved = "alert.resolved"
)

// ValidChannelKind проверяет вид канала
func ValidChannelKind(kind string) bool {
	switch kind {
	case ChannelWebhook, ChannelEmail, ChannelChatWebhook:
		return true
	}
	return false
}

// NotificationChannel - один канал доставки алертов пользователя.
//
// Secret хранится зашифрованным AES-GCM и используется для HMAC-подписи
// тела вебхука. Пустой секрет означает подпись глобальным секретом
// сервиса.
type NotificationChannel struct {
	ID              uuid.UUID `json:"id" db:"id"`
	UserAddress     string    `json:"user_address" db:"user_address"`
	Kind            string    `json:"kind" db:"kind"`
	Target          string    `json:"target" db:"target"` // URL вебхука или адрес почты
	SecretEncrypted string    `json:"-" db:"secret_encrypted"`
	IsEnabled       bool      `json:"is_enabled" db:"is_enabled"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// WebhookEvent - тело вебхука.
//
// Signature - HMAC-SHA256 от канонического JSON тела с пустым полем
// signature. Порядок полей фиксирован структурой, получатель
// проверяет подпись до разбора.
type WebhookEvent struct {
	EventType      string             `json:"event_type"`
	EventID        uuid.UUID          `json:"event_id"`
	Timestamp      time.Time          `json:"timestamp"`
	EntityID       string             `json:"entity_id"`
	RiskMetrics    map[string]float64 `json:"risk_metrics"`
	ThresholdType  string             `json:"threshold_type"`
	ThresholdValue float64            `json:"threshold_value"`
	Signature      string             `json:"signature,omitempty"`
}

// RiskMetricsMap собирает метрики оценки в плоскую карту для
// тела вебхука и сравнения порогов
func RiskMetricsMap(a *RiskAssessment) map[string]float64 {
	metrics := map[string]float64{
		MetricOverallRisk: a.OverallScore,
	}
	factorMetric := map[string]string{
		FactorLiquidity:       MetricLiquidityRisk,
		FactorVolatility:      MetricVolatilityRisk,
		FactorProtocol:        MetricProtocolRisk,
		FactorMEV:             MetricMEVRisk,
		FactorCrossChain:      MetricCrossChainRisk,
		FactorImpermanentLoss: MetricImpermanentLoss,
		MetricTVLDrop:         MetricTVLDrop,
	}
	for factor, metric := range factorMetric {
		if fs, ok := a.Factors[factor]; ok {
			metrics[metric] = fs.Score
		}
	}
	return metrics
}
