package service

import (
	"errors"

	"github.com/google/uuid"

	"riskmonitor/internal/models"
	"riskmonitor/pkg/utils"
)

var (
	ErrInvalidMetric       = errors.New("invalid threshold metric")
	ErrInvalidOperator     = errors.New("invalid threshold operator")
	ErrThresholdValueRange = errors.New("threshold value out of range for metric")
	ErrNotOwner            = errors.New("resource belongs to another user")
	ErrUserAddressEmpty    = errors.New("user address must not be empty")
)

// ThresholdService предоставляет бизнес-логику управления порогами.
//
// Отвечает за:
// - Валидацию метрики, оператора и диапазона значения
// - Автоматическую постановку сущности на мониторинг при создании
//   порога на конкретную сущность
// - Проверку владения при изменении и удалении
type ThresholdService struct {
	thresholds  ThresholdRepositoryInterface
	assessments AssessmentRepositoryInterface
}

// NewThresholdService создает новый экземпляр ThresholdService
func NewThresholdService(thresholds ThresholdRepositoryInterface, assessments AssessmentRepositoryInterface) *ThresholdService {
	return &ThresholdService{
		thresholds:  thresholds,
		assessments: assessments,
	}
}

// CreateThreshold создает порог.
//
// Порог на конкретную сущность ставит ее на мониторинг: без
// периодического пересчета порогу не на чем срабатывать.
func (s *ThresholdService) CreateThreshold(t *models.AlertThreshold) error {
	if err := s.validate(t); err != nil {
		return err
	}

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.IsEnabled = true

	if err := s.thresholds.Create(t); err != nil {
		return err
	}

	if t.EntityID != nil && *t.EntityID != "" {
		if err := s.assessments.TrackEntity(t.EntityType, *t.EntityID, t.UserAddress); err != nil {
			// Порог уже создан, мониторинг подхватится при следующем
			// обращении; ошибку наверх не поднимаем
			return nil
		}
	}
	return nil
}

// UpdateThreshold обновляет порог с проверкой владения
func (s *ThresholdService) UpdateThreshold(t *models.AlertThreshold) error {
	if err := s.validate(t); err != nil {
		return err
	}

	existing, err := s.thresholds.GetByID(t.ID)
	if err != nil {
		return err
	}
	if existing.UserAddress != t.UserAddress {
		return ErrNotOwner
	}

	return s.thresholds.Update(t)
}

// DeleteThreshold удаляет порог пользователя
func (s *ThresholdService) DeleteThreshold(id uuid.UUID, userAddress string) error {
	if userAddress == "" {
		return ErrUserAddressEmpty
	}
	return s.thresholds.Delete(id, userAddress)
}

// GetThresholds возвращает все пороги пользователя
func (s *ThresholdService) GetThresholds(userAddress string) ([]*models.AlertThreshold, error) {
	if userAddress == "" {
		return nil, ErrUserAddressEmpty
	}

	thresholds, err := s.thresholds.ListByUser(userAddress)
	if err != nil {
		return nil, err
	}
	if thresholds == nil {
		thresholds = []*models.AlertThreshold{}
	}
	return thresholds, nil
}

// validate проверяет порог перед записью
func (s *ThresholdService) validate(t *models.AlertThreshold) error {
	if t.UserAddress == "" {
		return ErrUserAddressEmpty
	}
	if !models.ValidEntityType(t.EntityType) {
		return ErrInvalidEntityType
	}
	if !models.ValidMetric(t.Metric) {
		return ErrInvalidMetric
	}
	if !models.ValidOperator(t.Operator) {
		return ErrInvalidOperator
	}
	if t.EntityID != nil && *t.EntityID == "" {
		return ErrEntityIDEmpty
	}
	return validateThresholdValue(t.Metric, t.ThresholdValue)
}

// validateThresholdValue проверяет диапазон значения по метрике.
// Все метрики нормализованы в [0,1]; impermanent loss в теории может
// стремиться к 1, но пороги выше 0.5 бессмысленны и почти наверняка
// ошибка ввода.
func validateThresholdValue(metric string, value float64) error {
	if err := utils.ValidateScore(value); err != nil {
		return ErrThresholdValueRange
	}
	if metric == models.MetricImpermanentLoss && value > 0.5 {
		return ErrThresholdValueRange
	}
	return nil
}
