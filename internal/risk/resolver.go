package risk

import (
	"errors"

	"go.uber.org/zap"

	"riskmonitor/internal/models"
	"riskmonitor/internal/repository"
)

// resolver.go - разрешение профиля риска
//
// Порядок разрешения:
// 1. активный пользовательский профиль
// 2. встроенный шаблон уровня толерантности этого профиля
// 3. глобальный дефолт (moderate)
//
// Fail-closed: профиль с невалидными весами отбрасывается с
// предупреждением, авто-нормализация пользовательских данных
// запрещена. Resolve всегда возвращает валидный профиль.

// ConfigSource - источник активных профилей пользователей
type ConfigSource interface {
	GetActive(userAddress string) (*models.RiskConfig, error)
}

type Resolver struct {
	configs ConfigSource
	logger  *zap.Logger
}

func NewResolver(configs ConfigSource, logger *zap.Logger) *Resolver {
	return &Resolver{configs: configs, logger: logger}
}

// Resolve возвращает профиль для пользователя
func (r *Resolver) Resolve(userAddress string) *models.RiskConfig {
	if userAddress == "" {
		return r.defaultConfig()
	}

	cfg, err := r.configs.GetActive(userAddress)
	if err != nil {
		if !errors.Is(err, repository.ErrConfigNotFound) {
			r.logger.Warn("config lookup failed, using default profile",
				zap.String("user_address", userAddress),
				zap.Error(err))
		}
		return r.defaultConfig()
	}

	if err := cfg.Validate(); err != nil {
		r.logger.Warn("configuration integrity violation, profile rejected",
			zap.String("user_address", userAddress),
			zap.String("profile_name", cfg.ProfileName),
			zap.Error(err))
		return r.templateFor(cfg.ToleranceLevel)
	}

	return cfg
}

// templateFor возвращает шаблон уровня толерантности,
// для неизвестного уровня - глобальный дефолт
func (r *Resolver) templateFor(tolerance string) *models.RiskConfig {
	cfg, err := models.DefaultConfigForTolerance(tolerance)
	if err != nil {
		return r.defaultConfig()
	}
	return cfg
}

func (r *Resolver) defaultConfig() *models.RiskConfig {
	cfg, _ := models.DefaultConfigForTolerance(models.ToleranceModerate)
	return cfg
}
