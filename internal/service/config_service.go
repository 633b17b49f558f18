package service

import (
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"riskmonitor/internal/models"
)

var ErrProfileNameEmpty = errors.New("profile name must not be empty")

// ConfigService предоставляет бизнес-логику управления профилями риска.
//
// Отвечает за:
// - Создание профилей с fail-closed валидацией весов
// - Создание профилей из шаблонов толерантности
// - Активацию (ровно один активный профиль на пользователя)
// - Засев стартовых порогов при первой активации
type ConfigService struct {
	configs    ConfigRepositoryInterface
	thresholds ThresholdRepositoryInterface
	logger     *zap.Logger
}

// NewConfigService создает новый экземпляр ConfigService
func NewConfigService(configs ConfigRepositoryInterface, thresholds ThresholdRepositoryInterface, logger *zap.Logger) *ConfigService {
	return &ConfigService{
		configs:    configs,
		thresholds: thresholds,
		logger:     logger,
	}
}

// CreateConfig создает профиль. Невалидные веса отклоняются до
// записи: авто-нормализация запрещена.
func (s *ConfigService) CreateConfig(c *models.RiskConfig) error {
	if c.UserAddress == "" {
		return ErrUserAddressEmpty
	}
	if c.ProfileName == "" {
		return ErrProfileNameEmpty
	}
	if err := c.Validate(); err != nil {
		return err
	}

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return s.configs.Create(c)
}

// CreateFromTemplate создает профиль из шаблона толерантности
func (s *ConfigService) CreateFromTemplate(userAddress, tolerance string) (*models.RiskConfig, error) {
	if userAddress == "" {
		return nil, ErrUserAddressEmpty
	}

	c, err := models.DefaultConfigForTolerance(tolerance)
	if err != nil {
		return nil, err
	}
	c.UserAddress = userAddress
	c.IsActive = false

	if err := s.configs.Create(c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateConfig обновляет профиль с проверкой владения и валидацией
func (s *ConfigService) UpdateConfig(c *models.RiskConfig) error {
	if c.UserAddress == "" {
		return ErrUserAddressEmpty
	}
	if c.ProfileName == "" {
		return ErrProfileNameEmpty
	}
	if err := c.Validate(); err != nil {
		return err
	}

	existing, err := s.configs.GetByID(c.ID)
	if err != nil {
		return err
	}
	if existing.UserAddress != c.UserAddress {
		return ErrNotOwner
	}

	return s.configs.Update(c)
}

// ActivateConfig делает профиль активным. Предыдущий активный профиль
// деактивируется в той же транзакции репозитория.
//
// При первой активации пользователю засеивается стартовый набор
// порогов, чтобы алерты работали без ручной настройки.
func (s *ConfigService) ActivateConfig(id uuid.UUID, userAddress string) error {
	if userAddress == "" {
		return ErrUserAddressEmpty
	}

	if err := s.configs.Activate(id, userAddress); err != nil {
		return err
	}

	existing, err := s.thresholds.ListByUser(userAddress)
	if err != nil {
		s.logger.Warn("failed to check existing thresholds after activation",
			zap.String("user_address", userAddress),
			zap.Error(err))
		return nil
	}
	if len(existing) > 0 {
		return nil
	}

	if err := s.thresholds.CreateBatch(models.DefaultThresholds(userAddress)); err != nil {
		s.logger.Warn("failed to seed default thresholds",
			zap.String("user_address", userAddress),
			zap.Error(err))
	}
	return nil
}

// GetActiveConfig возвращает активный профиль пользователя
func (s *ConfigService) GetActiveConfig(userAddress string) (*models.RiskConfig, error) {
	if userAddress == "" {
		return nil, ErrUserAddressEmpty
	}
	return s.configs.GetActive(userAddress)
}

// GetConfigs возвращает все профили пользователя
func (s *ConfigService) GetConfigs(userAddress string) ([]*models.RiskConfig, error) {
	if userAddress == "" {
		return nil, ErrUserAddressEmpty
	}

	configs, err := s.configs.ListByUser(userAddress)
	if err != nil {
		return nil, err
	}
	if configs == nil {
		configs = []*models.RiskConfig{}
	}
	return configs, nil
}

// DeleteConfig удаляет профиль пользователя
func (s *ConfigService) DeleteConfig(id uuid.UUID, userAddress string) error {
	if userAddress == "" {
		return ErrUserAddressEmpty
	}
	return s.configs.Delete(id, userAddress)
}
