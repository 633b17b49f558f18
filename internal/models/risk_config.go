package models

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Уровни толерантности к риску
const (
	ToleranceConservative = "conservative"
	ToleranceModerate     = "moderate"
	ToleranceAggressive   = "aggressive"
	ToleranceCustom       = "custom"
)

// Допустимое отклонение суммы весов от 1.0
const WeightSumTolerance = 0.01

var (
	ErrWeightSum          = errors.New("risk weights must sum to 1.0")
	ErrWeightOutOfRange   = errors.New("risk weight must be in [0,1]")
	ErrUnknownTolerance   = errors.New("unknown risk tolerance level")
	ErrThresholdOutOfBand = errors.New("threshold value out of allowed range")
)

// WeightSet - веса пяти взвешиваемых факторов. Сумма обязана быть
// 1.0 ± 0.01; профиль с невалидными весами никогда не применяется
// (fail-closed, авто-нормализация запрещена).
type WeightSet struct {
	Liquidity  float64 `json:"liquidity" db:"liquidity_risk_weight"`
	Volatility float64 `json:"volatility" db:"volatility_risk_weight"`
	Protocol   float64 `json:"protocol" db:"protocol_risk_weight"`
	MEV        float64 `json:"mev" db:"mev_risk_weight"`
	CrossChain float64 `json:"cross_chain" db:"cross_chain_risk_weight"`
}

// Validate проверяет диапазоны и сумму весов
func (w WeightSet) Validate() error {
	for name, v := range w.AsMap() {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %s=%v", ErrWeightOutOfRange, name, v)
		}
	}
	sum := w.Liquidity + w.Volatility + w.Protocol + w.MEV + w.CrossChain
	if math.Abs(sum-1.0) > WeightSumTolerance {
		return fmt.Errorf("%w: got %.4f", ErrWeightSum, sum)
	}
	return nil
}

// AsMap возвращает веса по именам факторов
func (w WeightSet) AsMap() map[string]float64 {
	return map[string]float64{
		FactorLiquidity:  w.Liquidity,
		FactorVolatility: w.Volatility,
		FactorProtocol:   w.Protocol,
		FactorMEV:        w.MEV,
		FactorCrossChain: w.CrossChain,
	}
}

// FactorParams - пороговые параметры факторных движков.
// Хранятся в профиле, передаются движкам при расчете.
type FactorParams struct {
	// Ликвидность
	MinTVLThreshold    float64 `json:"min_tvl_threshold" db:"min_tvl_threshold"`
	MaxSlippage        float64 `json:"max_slippage_tolerance" db:"max_slippage_tolerance"`
	ThinPoolThreshold  float64 `json:"thin_pool_threshold" db:"thin_pool_threshold"`
	TVLDropThreshold   float64 `json:"tvl_drop_threshold" db:"tvl_drop_threshold"`

	// Волатильность
	VolatilityLookbackDays  int     `json:"volatility_lookback_days" db:"volatility_lookback_days"`
	HighVolatilityThreshold float64 `json:"high_volatility_threshold" db:"high_volatility_threshold"`
	CorrelationThreshold    float64 `json:"correlation_threshold" db:"correlation_threshold"`

	// Протокол
	MinAuditScore        float64 `json:"min_audit_score" db:"min_audit_score"`
	MaxExploitTolerance  int     `json:"max_exploit_tolerance" db:"max_exploit_tolerance"`
	GovernanceRiskWeight float64 `json:"governance_risk_weight" db:"governance_risk_weight"`

	// MEV
	SandwichAttackThreshold  float64 `json:"sandwich_attack_threshold" db:"sandwich_attack_threshold"`
	FrontrunThreshold        float64 `json:"frontrun_threshold" db:"frontrun_threshold"`
	OracleDeviationThreshold float64 `json:"oracle_deviation_threshold" db:"oracle_deviation_threshold"`

	// Кросс-чейн
	BridgeRiskTolerance       float64 `json:"bridge_risk_tolerance" db:"bridge_risk_tolerance"`
	FragmentationThreshold    float64 `json:"liquidity_fragmentation_threshold" db:"liquidity_fragmentation_threshold"`
	GovernanceDivergenceLimit float64 `json:"governance_divergence_threshold" db:"governance_divergence_threshold"`
}

// RiskConfig - именованный профиль риска пользователя.
//
// У пользователя не более одного активного профиля; активация нового
// деактивирует предыдущий в одной транзакции.
type RiskConfig struct {
	ID                   uuid.UUID    `json:"id" db:"id"`
	UserAddress          string       `json:"user_address" db:"user_address"`
	ProfileName          string       `json:"profile_name" db:"profile_name"`
	IsActive             bool         `json:"is_active" db:"is_active"`
	ToleranceLevel       string       `json:"risk_tolerance_level" db:"risk_tolerance_level"`
	Weights              WeightSet    `json:"weights"`
	Params               FactorParams `json:"params"`
	OverallRiskThreshold float64      `json:"overall_risk_threshold" db:"overall_risk_threshold"`
	CreatedAt            time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at" db:"updated_at"`
}

// Validate проверяет профиль целиком
func (c *RiskConfig) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	if c.OverallRiskThreshold < 0 || c.OverallRiskThreshold > 1 {
		return fmt.Errorf("%w: overall_risk_threshold=%v", ErrThresholdOutOfBand, c.OverallRiskThreshold)
	}
	switch c.ToleranceLevel {
	case ToleranceConservative, ToleranceModerate, ToleranceAggressive, ToleranceCustom:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTolerance, c.ToleranceLevel)
	}
	return nil
}

// DefaultConfigForTolerance возвращает шаблон профиля для уровня
// толерантности. custom наследует значения moderate, пользователь
// переопределяет их при создании.
func DefaultConfigForTolerance(tolerance string) (*RiskConfig, error) {
	now := time.Now().UTC()
	base := RiskConfig{
		ID:             uuid.New(),
		IsActive:       true,
		ToleranceLevel: tolerance,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	switch tolerance {
	case ToleranceConservative:
		base.ProfileName = "Conservative"
		base.Weights = WeightSet{Liquidity: 0.30, Volatility: 0.25, Protocol: 0.20, MEV: 0.15, CrossChain: 0.10}
		base.Params = FactorParams{
			MinTVLThreshold:    10_000_000,
			MaxSlippage:        0.01,
			ThinPoolThreshold:  0.8,
			TVLDropThreshold:   0.20,

			VolatilityLookbackDays:  30,
			HighVolatilityThreshold: 0.15,
			CorrelationThreshold:    0.7,

			MinAuditScore:        0.8,
			MaxExploitTolerance:  0,
			GovernanceRiskWeight: 0.4,

			SandwichAttackThreshold:  0.005,
			FrontrunThreshold:        0.01,
			OracleDeviationThreshold: 0.02,

			BridgeRiskTolerance:       0.1,
			FragmentationThreshold:    0.3,
			GovernanceDivergenceLimit: 0.2,
		}
		base.OverallRiskThreshold = 0.3
	case ToleranceModerate, ToleranceCustom:
		if tolerance == ToleranceCustom {
			base.ProfileName = "Custom"
		} else {
			base.ProfileName = "Moderate"
		}
		base.Weights = WeightSet{Liquidity: 0.25, Volatility: 0.20, Protocol: 0.20, MEV: 0.20, CrossChain: 0.15}
		base.Params = FactorParams{
			MinTVLThreshold:    1_000_000,
			MaxSlippage:        0.03,
			ThinPoolThreshold:  0.6,
			TVLDropThreshold:   0.40,

			VolatilityLookbackDays:  14,
			HighVolatilityThreshold: 0.30,
			CorrelationThreshold:    0.5,

			MinAuditScore:        0.6,
			MaxExploitTolerance:  1,
			GovernanceRiskWeight: 0.3,

			SandwichAttackThreshold:  0.02,
			FrontrunThreshold:        0.03,
			OracleDeviationThreshold: 0.05,

			BridgeRiskTolerance:       0.3,
			FragmentationThreshold:    0.5,
			GovernanceDivergenceLimit: 0.4,
		}
		base.OverallRiskThreshold = 0.6
	case ToleranceAggressive:
		base.ProfileName = "Aggressive"
		base.Weights = WeightSet{Liquidity: 0.15, Volatility: 0.15, Protocol: 0.15, MEV: 0.25, CrossChain: 0.30}
		base.Params = FactorParams{
			MinTVLThreshold:    100_000,
			MaxSlippage:        0.10,
			ThinPoolThreshold:  0.3,
			TVLDropThreshold:   0.70,

			VolatilityLookbackDays:  7,
			HighVolatilityThreshold: 0.60,
			CorrelationThreshold:    0.2,

			MinAuditScore:        0.3,
			MaxExploitTolerance:  3,
			GovernanceRiskWeight: 0.1,

			SandwichAttackThreshold:  0.10,
			FrontrunThreshold:        0.15,
			OracleDeviationThreshold: 0.20,

			BridgeRiskTolerance:       0.7,
			FragmentationThreshold:    0.8,
			GovernanceDivergenceLimit: 0.7,
		}
		base.OverallRiskThreshold = 0.9
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTolerance, tolerance)
	}

	return &base, nil
}
