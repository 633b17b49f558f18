package service

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"riskmonitor/internal/explain"
	"riskmonitor/internal/models"
	"riskmonitor/internal/repository"
)

var (
	ErrInvalidEntityType  = errors.New("invalid entity type")
	ErrEntityIDEmpty      = errors.New("entity id must not be empty")
	ErrAssessmentNotFound = errors.New("assessment not found")
)

// RiskService предоставляет доступ к оценкам риска.
//
// Отвечает за:
// - Выдачу активной оценки сущности
// - Историю изменений оценки
// - Объяснение оценки (ранжирование факторов, рекомендации)
// - Постановку сущностей на мониторинг и внеплановый пересчет
//
// Истекшая оценка отдается как есть, но сущность сразу ставится в
// очередь пересчета: читатель не ждет движков.
type RiskService struct {
	assessments AssessmentRepositoryInterface
	trigger     AssessmentTrigger
	explainer   *explain.Generator
	logger      *zap.Logger
}

// NewRiskService создает новый экземпляр RiskService
func NewRiskService(assessments AssessmentRepositoryInterface, trigger AssessmentTrigger, logger *zap.Logger) *RiskService {
	return &RiskService{
		assessments: assessments,
		trigger:     trigger,
		explainer:   explain.NewGenerator(),
		logger:      logger,
	}
}

// GetAssessment возвращает активную оценку сущности.
//
// Если оценка истекла по TTL, сущность ставится в очередь пересчета,
// а устаревшая оценка возвращается немедленно.
func (s *RiskService) GetAssessment(entityType, entityID string) (*models.RiskAssessment, error) {
	if err := validateEntity(entityType, entityID); err != nil {
		return nil, err
	}

	a, err := s.assessments.GetActive(entityType, entityID)
	if err != nil {
		if errors.Is(err, repository.ErrAssessmentNotFound) {
			return nil, ErrAssessmentNotFound
		}
		return nil, err
	}

	if a.Expired(time.Now().UTC()) {
		if s.trigger != nil {
			s.trigger.Enqueue(entityType, entityID, a.UserAddress, "ttl_expired")
		}
		s.logger.Debug("serving expired assessment, reassessment queued",
			zap.String("entity_type", entityType),
			zap.String("entity_id", entityID))
	}

	return a, nil
}

// GetHistory возвращает историю изменений оценки сущности
func (s *RiskService) GetHistory(entityType, entityID string, filter models.AssessmentFilter) ([]*models.AssessmentHistory, error) {
	if err := validateEntity(entityType, entityID); err != nil {
		return nil, err
	}
	filter.Normalize()

	history, err := s.assessments.GetHistory(entityType, entityID, filter)
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []*models.AssessmentHistory{}
	}
	return history, nil
}

// ExplainAssessment строит объяснение активной оценки
func (s *RiskService) ExplainAssessment(entityType, entityID string) (*explain.Explanation, error) {
	a, err := s.GetAssessment(entityType, entityID)
	if err != nil {
		return nil, err
	}
	return s.explainer.Explain(a), nil
}

// RequestAssessment ставит сущность на мониторинг и запускает
// первую оценку вне расписания
func (s *RiskService) RequestAssessment(entityType, entityID, userAddress string) error {
	if err := validateEntity(entityType, entityID); err != nil {
		return err
	}

	if err := s.assessments.TrackEntity(entityType, entityID, userAddress); err != nil {
		return err
	}

	if s.trigger != nil {
		s.trigger.Enqueue(entityType, entityID, userAddress, "on_demand")
	}
	return nil
}

// StopMonitoring снимает регистрацию пользователя с сущности.
// Пока у сущности остаются другие подписчики, пересчеты продолжаются.
func (s *RiskService) StopMonitoring(entityType, entityID, userAddress string) error {
	if err := validateEntity(entityType, entityID); err != nil {
		return err
	}
	if userAddress == "" {
		return ErrUserAddressEmpty
	}
	return s.assessments.UntrackEntity(entityType, entityID, userAddress)
}

func validateEntity(entityType, entityID string) error {
	if !models.ValidEntityType(entityType) {
		return ErrInvalidEntityType
	}
	if entityID == "" {
		return ErrEntityIDEmpty
	}
	return nil
}
