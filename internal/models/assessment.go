package models

import (
	"time"

	"github.com/google/uuid"
)

// Типы сущностей, для которых рассчитывается риск
const (
	EntityPosition  = "position"
	EntityProtocol  = "protocol"
	EntityUser      = "user"
	EntityPortfolio = "portfolio"
	EntityPool      = "pool"
	EntityToken     = "token"
)

// Уровни серьезности риска
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Имена риск-факторов
const (
	FactorLiquidity       = "liquidity"
	FactorVolatility      = "volatility"
	FactorProtocol        = "protocol"
	FactorMEV             = "mev"
	FactorCrossChain      = "cross_chain"
	FactorImpermanentLoss = "impermanent_loss"
)

// WeightedFactors - факторы, участвующие в композитном скоре.
// Impermanent loss рассчитывается и сохраняется, но не взвешивается:
// он используется как самостоятельная метрика для порогов.
var WeightedFactors = []string{
	FactorLiquidity,
	FactorVolatility,
	FactorProtocol,
	FactorMEV,
	FactorCrossChain,
}

// Границы severity-диапазонов композитного скора.
// CriticalBoundary может быть переопределена overall_risk_threshold
// из активного профиля пользователя.
const (
	SeverityBoundaryMedium   = 0.30
	SeverityBoundaryHigh     = 0.60
	SeverityBoundaryCritical = 0.80
)

// SeverityForScore возвращает severity для композитного скора.
//
// Банды фиксированные и монотонные:
// - score <  0.30 → low
// - score <  0.60 → medium
// - score <  criticalBoundary → high
// - иначе → critical
//
// criticalBoundary <= 0 означает дефолтную границу 0.80.
func SeverityForScore(score, criticalBoundary float64) string {
	if criticalBoundary <= 0 {
		criticalBoundary = SeverityBoundaryCritical
	}
	switch {
	case score < SeverityBoundaryMedium:
		return SeverityLow
	case score < SeverityBoundaryHigh:
		return SeverityMedium
	case score < criticalBoundary:
		return SeverityHigh
	default:
		return SeverityCritical
	}
}

// ValidEntityType проверяет, является ли тип сущности допустимым
func ValidEntityType(t string) bool {
	switch t {
	case EntityPosition, EntityProtocol, EntityUser, EntityPortfolio, EntityPool, EntityToken:
		return true
	}
	return false
}

// FactorScore - результат одного риск-фактора внутри сохраненной оценки
type FactorScore struct {
	Score      float64 `json:"score"`      // нормализованный скор [0,1]
	Confidence float64 `json:"confidence"` // уверенность [0,1]
	Weight     float64 `json:"weight"`     // вес фактора после разрешения профиля (0 для невзвешенных)
	Degraded   bool    `json:"degraded,omitempty"`
}

// RiskAssessment - одна композитная оценка риска для пары (entity_type, entity_id)
//
// Оценки append-only: пересчет создает новую запись, предыдущая
// деактивируется (is_active=false) и остается для аудита.
// В любой момент на сущность существует ровно одна активная запись.
type RiskAssessment struct {
	ID           uuid.UUID              `json:"id" db:"id"`
	EntityType   string                 `json:"entity_type" db:"entity_type"`
	EntityID     string                 `json:"entity_id" db:"entity_id"`
	UserAddress  string                 `json:"user_address,omitempty" db:"user_address"`
	OverallScore float64                `json:"overall_score" db:"overall_score"`
	Severity     string                 `json:"severity" db:"severity"`
	Confidence   float64                `json:"confidence" db:"confidence"`
	Factors      map[string]FactorScore `json:"factors" db:"factors"` // JSONB в БД
	Degraded     bool                   `json:"degraded" db:"degraded"`
	// Факторы, выпавшие из расчета (timeout, недоступный источник данных)
	MissingFactors []string   `json:"missing_factors,omitempty" db:"missing_factors"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	IsActive       bool       `json:"is_active" db:"is_active"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// FactorValue возвращает скор фактора и признак его наличия
func (a *RiskAssessment) FactorValue(factor string) (float64, bool) {
	fs, ok := a.Factors[factor]
	if !ok {
		return 0, false
	}
	return fs.Score, true
}

// Expired проверяет, истекла ли оценка
func (a *RiskAssessment) Expired(now time.Time) bool {
	return a.ExpiresAt != nil && now.After(*a.ExpiresAt)
}

// AssessmentHistory - запись об изменении оценки сущности.
//
// Создается атомарно вместе с новой оценкой и фиксирует дельту
// скора/severity и причину пересчета.
type AssessmentHistory struct {
	ID               uuid.UUID `json:"id" db:"id"`
	AssessmentID     uuid.UUID `json:"assessment_id" db:"assessment_id"`
	EntityType       string    `json:"entity_type" db:"entity_type"`
	EntityID         string    `json:"entity_id" db:"entity_id"`
	PreviousScore    float64   `json:"previous_score" db:"previous_score"`
	NewScore         float64   `json:"new_score" db:"new_score"`
	PreviousSeverity string    `json:"previous_severity" db:"previous_severity"`
	NewSeverity      string    `json:"new_severity" db:"new_severity"`
	ChangeReason     string    `json:"change_reason" db:"change_reason"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// AssessmentFilter - фильтры для выборки истории оценок
type AssessmentFilter struct {
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// Normalize приводит лимиты фильтра к допустимым значениям
func (f *AssessmentFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = 100
	}
	if f.Limit > 500 {
		f.Limit = 500
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}
