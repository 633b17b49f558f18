package service

import (
	"github.com/google/uuid"

	"riskmonitor/internal/explain"
	"riskmonitor/internal/models"
	"riskmonitor/internal/repository"
)

// AssessmentRepositoryInterface определяет интерфейс репозитория оценок
type AssessmentRepositoryInterface interface {
	GetActive(entityType, entityID string) (*models.RiskAssessment, error)
	GetByID(id uuid.UUID) (*models.RiskAssessment, error)
	GetHistory(entityType, entityID string, filter models.AssessmentFilter) ([]*models.AssessmentHistory, error)
	TrackEntity(entityType, entityID, userAddress string) error
	UntrackEntity(entityType, entityID, userAddress string) error
}

// ThresholdRepositoryInterface определяет интерфейс репозитория порогов
type ThresholdRepositoryInterface interface {
	Create(t *models.AlertThreshold) error
	CreateBatch(thresholds []*models.AlertThreshold) error
	Update(t *models.AlertThreshold) error
	Delete(id uuid.UUID, userAddress string) error
	GetByID(id uuid.UUID) (*models.AlertThreshold, error)
	ListByUser(userAddress string) ([]*models.AlertThreshold, error)
}

// ConfigRepositoryInterface определяет интерфейс репозитория профилей риска
type ConfigRepositoryInterface interface {
	Create(c *models.RiskConfig) error
	Update(c *models.RiskConfig) error
	Activate(id uuid.UUID, userAddress string) error
	GetActive(userAddress string) (*models.RiskConfig, error)
	GetByID(id uuid.UUID) (*models.RiskConfig, error)
	ListByUser(userAddress string) ([]*models.RiskConfig, error)
	Delete(id uuid.UUID, userAddress string) error
}

// AlertRepositoryInterface определяет интерфейс репозитория алертов
type AlertRepositoryInterface interface {
	GetByID(id uuid.UUID) (*models.Alert, error)
	List(filter models.AlertFilter) ([]*models.Alert, error)
	ListDeliveryAttempts(alertID uuid.UUID) ([]*models.DeliveryAttempt, error)
}

// ChannelRepositoryInterface определяет интерфейс репозитория каналов доставки
type ChannelRepositoryInterface interface {
	Create(ch *models.NotificationChannel) error
	Update(ch *models.NotificationChannel) error
	Delete(id uuid.UUID, userAddress string) error
	ListByUser(userAddress string) ([]*models.NotificationChannel, error)
}

// Проверяем, что реальные репозитории реализуют интерфейсы
var _ AssessmentRepositoryInterface = (*repository.AssessmentRepository)(nil)
var _ ThresholdRepositoryInterface = (*repository.ThresholdRepository)(nil)
var _ ConfigRepositoryInterface = (*repository.ConfigRepository)(nil)
var _ AlertRepositoryInterface = (*repository.AlertRepository)(nil)
var _ ChannelRepositoryInterface = (*repository.ChannelRepository)(nil)

// AssessmentTrigger ставит сущность в очередь внепланового пересчета.
// Реализуется планировщиком мониторинга.
type AssessmentTrigger interface {
	Enqueue(entityType, entityID, userAddress, reason string) bool
}

// AlertLifecycle - операции жизненного цикла алертов, доступные
// пользователю. Реализуется менеджером алертов.
type AlertLifecycle interface {
	ResolveByUser(alertID uuid.UUID) error
}

// ============ Интерфейсы сервисов для Dependency Injection ============

// RiskServiceInterface определяет интерфейс сервиса оценок риска
type RiskServiceInterface interface {
	GetAssessment(entityType, entityID string) (*models.RiskAssessment, error)
	GetHistory(entityType, entityID string, filter models.AssessmentFilter) ([]*models.AssessmentHistory, error)
	ExplainAssessment(entityType, entityID string) (*explain.Explanation, error)
	RequestAssessment(entityType, entityID, userAddress string) error
	StopMonitoring(entityType, entityID, userAddress string) error
}

// ThresholdServiceInterface определяет интерфейс сервиса порогов
type ThresholdServiceInterface interface {
	CreateThreshold(t *models.AlertThreshold) error
	UpdateThreshold(t *models.AlertThreshold) error
	DeleteThreshold(id uuid.UUID, userAddress string) error
	GetThresholds(userAddress string) ([]*models.AlertThreshold, error)
}

// ConfigServiceInterface определяет интерфейс сервиса профилей риска
type ConfigServiceInterface interface {
	CreateConfig(c *models.RiskConfig) error
	CreateFromTemplate(userAddress, tolerance string) (*models.RiskConfig, error)
	UpdateConfig(c *models.RiskConfig) error
	ActivateConfig(id uuid.UUID, userAddress string) error
	GetActiveConfig(userAddress string) (*models.RiskConfig, error)
	GetConfigs(userAddress string) ([]*models.RiskConfig, error)
	DeleteConfig(id uuid.UUID, userAddress string) error
}

// AlertServiceInterface определяет интерфейс сервиса алертов
type AlertServiceInterface interface {
	GetAlerts(filter models.AlertFilter) ([]*models.Alert, error)
	GetAlert(id uuid.UUID, userAddress string) (*models.Alert, error)
	ResolveAlert(id uuid.UUID, userAddress string) error
	GetDeliveryAttempts(alertID uuid.UUID, userAddress string) ([]*models.DeliveryAttempt, error)
}

// ChannelServiceInterface определяет интерфейс сервиса каналов доставки
type ChannelServiceInterface interface {
	CreateChannel(ch *models.NotificationChannel, secret string) error
	UpdateChannel(ch *models.NotificationChannel, secret string) error
	DeleteChannel(id uuid.UUID, userAddress string) error
	GetChannels(userAddress string) ([]*models.NotificationChannel, error)
}

// Проверяем, что реальные сервисы реализуют интерфейсы
var _ RiskServiceInterface = (*RiskService)(nil)
var _ ThresholdServiceInterface = (*ThresholdService)(nil)
var _ ConfigServiceInterface = (*ConfigService)(nil)
var _ AlertServiceInterface = (*AlertService)(nil)
var _ ChannelServiceInterface = (*ChannelService)(nil)
