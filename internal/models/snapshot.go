package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// snapshot.go - входные данные факторных движков
//
// Назначение:
// Снимки состояния сущности, собранные коллекторами из внешних
// источников (on-chain индексер, прайс-фид, агрегатор событий
// протоколов). Движки работают только со снимками и никогда не
// ходят во внешние API напрямую.

// EntitySnapshot - состояние сущности на момент расчета
type EntitySnapshot struct {
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Chain      string    `json:"chain"`
	ObservedAt time.Time `json:"observed_at"`

	// Ликвидность пула
	TVLUSD        decimal.Decimal `json:"tvl_usd"`
	TVL24hAgoUSD  decimal.Decimal `json:"tvl_24h_ago_usd"`
	Volume24hUSD  decimal.Decimal `json:"volume_24h_usd"`
	DepthUSD      decimal.Decimal `json:"depth_usd"`       // глубина в пределах 2% от mid
	TopHolderShare float64        `json:"top_holder_share"` // доля крупнейшего LP [0,1]

	// Позиция (для entity_type=position)
	PositionValueUSD decimal.Decimal `json:"position_value_usd"`
	EntryPriceRatio  float64         `json:"entry_price_ratio"`   // p_a/p_b на входе
	CurrentPriceRatio float64        `json:"current_price_ratio"` // p_a/p_b сейчас

	// История цен для волатильности, от старых к новым
	PriceHistory []PricePoint `json:"price_history,omitempty"`

	// Протокол
	Protocol *ProtocolInfo `json:"protocol,omitempty"`

	// MEV-активность в пуле
	MEV *MEVActivity `json:"mev,omitempty"`

	// Кросс-чейн экспозиция
	Bridges []BridgeInfo `json:"bridges,omitempty"`
}

// PricePoint - одна точка истории цен
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
}

// ProtocolInfo - метаданные протокола для протокольного риска
type ProtocolInfo struct {
	Name             string    `json:"name"`
	AuditScore       float64   `json:"audit_score"` // [0,1], 0 = не аудирован
	ExploitCount     int       `json:"exploit_count"`
	LastExploitAt    *time.Time `json:"last_exploit_at,omitempty"`
	AgeDays          int       `json:"age_days"`
	GovernanceRisk   float64   `json:"governance_risk"`   // [0,1]
	AdminKeyMultisig bool      `json:"admin_key_multisig"`
}

// MEVActivity - наблюдаемая MEV-активность вокруг пула
type MEVActivity struct {
	SandwichRate    float64 `json:"sandwich_rate"`    // доля сэндвич-атак в сделках [0,1]
	FrontrunRate    float64 `json:"frontrun_rate"`    // доля фронтранов [0,1]
	OracleDeviation float64 `json:"oracle_deviation"` // отклонение оракула от spot [0,1]
}

// BridgeInfo - один мост, через который фрагментирована ликвидность
type BridgeInfo struct {
	Name           string  `json:"name"`
	Chain          string  `json:"chain"`
	RiskScore      float64 `json:"risk_score"` // [0,1]
	LiquidityShare float64 `json:"liquidity_share"`
	GovernanceLag  float64 `json:"governance_lag"` // расхождение governance-состояний [0,1]
}

// TVLDropRatio возвращает относительное падение TVL за 24ч в [0,1].
// Рост TVL дает 0.
func (s *EntitySnapshot) TVLDropRatio() float64 {
	if s.TVL24hAgoUSD.IsZero() {
		return 0
	}
	drop := s.TVL24hAgoUSD.Sub(s.TVLUSD).Div(s.TVL24hAgoUSD)
	f, _ := drop.Float64()
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// Stale проверяет, старше ли снимок maxAge
func (s *EntitySnapshot) Stale(now time.Time, maxAge time.Duration) bool {
	return now.Sub(s.ObservedAt) > maxAge
}
