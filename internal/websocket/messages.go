package websocket

import (
	"time"

	"riskmonitor/internal/models"
)

// MessageType определяет тип WebSocket сообщения
type MessageType string

// Типы WebSocket сообщений
const (
	// MessageTypeAssessmentUpdate - новая оценка риска сущности
	// Отправляется после каждого пересчета (плановый тик, on_demand, ttl)
	MessageTypeAssessmentUpdate MessageType = "assessmentUpdate"

	// MessageTypeAlert - событие жизненного цикла алерта
	// Отправляется при создании, повторном срабатывании и разрешении
	MessageTypeAlert MessageType = "alert"

	// MessageTypeSourceStatus - изменение состояния источника данных
	// Отправляется health-монитором при смене доступности источника
	MessageTypeSourceStatus MessageType = "sourceStatus"
)

// BaseMessage - базовая структура для всех WebSocket сообщений
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

// AssessmentUpdateMessage - сообщение о новой оценке риска
//
// Содержит композитный скор, severity и разложение по факторам.
// Frontend использует его для live-обновления карточки сущности
// без polling истории.
type AssessmentUpdateMessage struct {
	BaseMessage
	EntityType string                `json:"entity_type"`
	EntityID   string                `json:"entity_id"`
	Data       *AssessmentUpdateData `json:"data"`
}

// AssessmentUpdateData - данные обновления оценки
type AssessmentUpdateData struct {
	// Композитный скор [0,1]
	OverallScore float64 `json:"overall_score"`

	// Уровень риска (low, medium, high, critical)
	Severity string `json:"severity"`

	// Агрегированная уверенность [0,1]
	Confidence float64 `json:"confidence"`

	// Разложение по факторам
	Factors map[string]models.FactorScore `json:"factors,omitempty"`

	// Признак деградированной оценки (часть факторов выпала)
	Degraded bool `json:"degraded"`

	// Факторы, не вошедшие в расчет
	MissingFactors []string `json:"missing_factors,omitempty"`

	// Время расчета оценки
	AssessedAt time.Time `json:"assessed_at"`
}

// AlertMessage - сообщение о событии алерта
//
// Event различает стадии жизненного цикла:
// - alert.created: порог нарушен впервые
// - alert.refired: повторное нарушение после cooldown
// - alert.resolved: метрика вернулась в норму или закрыто вручную
type AlertMessage struct {
	BaseMessage
	Event string     `json:"event"`
	Data  *AlertData `json:"data"`
}

// AlertData - данные алерта
type AlertData struct {
	// ID алерта в БД
	ID string `json:"id"`

	// Владелец порога
	UserAddress string `json:"user_address"`

	// Сущность, на которой сработал порог
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`

	// Нарушенная метрика и ее значения
	Metric         string  `json:"metric"`
	CurrentValue   float64 `json:"current_value"`
	ThresholdValue float64 `json:"threshold_value"`

	// Уровень важности (medium, high, critical)
	Severity string `json:"severity"`

	// Заголовок и текст для отображения
	Title   string `json:"title"`
	Message string `json:"message"`

	// Количество срабатываний открытого алерта
	FireCount int `json:"fire_count"`

	// Время последнего срабатывания
	LastFiredAt time.Time `json:"last_fired_at"`
}

// SourceStatusMessage - сообщение о состоянии источника данных
type SourceStatusMessage struct {
	BaseMessage
	Source  string `json:"source"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// ============ Фабричные функции для создания сообщений ============

// NewAssessmentUpdateMessage создает сообщение обновления оценки
func NewAssessmentUpdateMessage(a *models.RiskAssessment) *AssessmentUpdateMessage {
	return &AssessmentUpdateMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeAssessmentUpdate,
			Timestamp: time.Now().UTC(),
		},
		EntityType: a.EntityType,
		EntityID:   a.EntityID,
		Data: &AssessmentUpdateData{
			OverallScore:   a.OverallScore,
			Severity:       a.Severity,
			Confidence:     a.Confidence,
			Factors:        a.Factors,
			Degraded:       a.Degraded,
			MissingFactors: a.MissingFactors,
			AssessedAt:     a.CreatedAt,
		},
	}
}

// NewAlertMessage создает сообщение события алерта
func NewAlertMessage(alert *models.Alert, eventType string) *AlertMessage {
	return &AlertMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeAlert,
			Timestamp: time.Now().UTC(),
		},
		Event: eventType,
		Data: &AlertData{
			ID:             alert.ID.String(),
			UserAddress:    alert.UserAddress,
			EntityType:     alert.EntityType,
			EntityID:       alert.EntityID,
			Metric:         alert.Metric,
			CurrentValue:   alert.CurrentValue,
			ThresholdValue: alert.ThresholdValue,
			Severity:       alert.Severity,
			Title:          alert.Title,
			Message:        alert.Message,
			FireCount:      alert.FireCount,
			LastFiredAt:    alert.LastFiredAt,
		},
	}
}

// NewSourceStatusMessage создает сообщение о состоянии источника
func NewSourceStatusMessage(source string, healthy bool, errText string) *SourceStatusMessage {
	return &SourceStatusMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeSourceStatus,
			Timestamp: time.Now().UTC(),
		},
		Source:  source,
		Healthy: healthy,
		Error:   errText,
	}
}
