package explain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"riskmonitor/internal/models"
)

// generator.go - объяснение оценки риска
//
// Назначение:
// Чистое read-side преобразование сохраненной оценки в структурное
// объяснение: ранжирование факторов по вкладу (вес × скор),
// шаблонные описания и рекомендации. Состояние не изменяется.

// RankedFactor - один фактор в порядке убывания вклада
type RankedFactor struct {
	Factor       string  `json:"factor"`
	Score        float64 `json:"score"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"` // вес × скор
	Confidence   float64 `json:"confidence"`
	Summary      string  `json:"summary"`
}

// Recommendation - рекомендация по снижению риска
type Recommendation struct {
	Priority    string `json:"priority"` // high, medium, low
	Category    string `json:"category"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// MarketContext - сводка состояния оценки
type MarketContext struct {
	Severity        string   `json:"severity"`
	OverallScore    float64  `json:"overall_score"`
	Confidence      float64  `json:"confidence"`
	Degraded        bool     `json:"degraded"`
	MissingFactors  []string `json:"missing_factors,omitempty"`
	ImpermanentLoss float64  `json:"impermanent_loss"`
	TVLDrop24h      float64  `json:"tvl_drop_24h"`
}

// Explanation - полное объяснение оценки
type Explanation struct {
	EntityType      string           `json:"entity_type"`
	EntityID        string           `json:"entity_id"`
	AssessedAt      time.Time        `json:"assessed_at"`
	Summary         string           `json:"summary"`
	RankedFactors   []RankedFactor   `json:"ranked_factors"`
	Recommendations []Recommendation `json:"recommendations"`
	MarketContext   MarketContext    `json:"market_context"`
}

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Explain строит объяснение по сохраненной оценке
func (g *Generator) Explain(a *models.RiskAssessment) *Explanation {
	ranked := rankFactors(a)

	il, _ := a.FactorValue(models.FactorImpermanentLoss)
	tvlDrop, _ := a.FactorValue(models.MetricTVLDrop)

	return &Explanation{
		EntityType:      a.EntityType,
		EntityID:        a.EntityID,
		AssessedAt:      a.CreatedAt,
		Summary:         buildSummary(a, ranked),
		RankedFactors:   ranked,
		Recommendations: buildRecommendations(a, ranked),
		MarketContext: MarketContext{
			Severity:        a.Severity,
			OverallScore:    a.OverallScore,
			Confidence:      a.Confidence,
			Degraded:        a.Degraded,
			MissingFactors:  a.MissingFactors,
			ImpermanentLoss: il,
			TVLDrop24h:      tvlDrop,
		},
	}
}

// rankFactors сортирует взвешенные факторы по убыванию вклада
func rankFactors(a *models.RiskAssessment) []RankedFactor {
	var ranked []RankedFactor
	for _, name := range models.WeightedFactors {
		fs, ok := a.Factors[name]
		if !ok {
			continue
		}
		ranked = append(ranked, RankedFactor{
			Factor:       name,
			Score:        fs.Score,
			Weight:       fs.Weight,
			Contribution: fs.Weight * fs.Score,
			Confidence:   fs.Confidence,
			Summary:      factorSummary(name, fs.Score),
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Contribution != ranked[j].Contribution {
			return ranked[i].Contribution > ranked[j].Contribution
		}
		return ranked[i].Factor < ranked[j].Factor
	})
	return ranked
}

func buildSummary(a *models.RiskAssessment, ranked []RankedFactor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Overall risk is %s (%.0f%%)", a.Severity, a.OverallScore*100)

	if len(ranked) > 0 {
		top := ranked[0]
		fmt.Fprintf(&b, ", driven primarily by %s risk at %.0f%%",
			strings.ReplaceAll(top.Factor, "_", " "), top.Score*100)
	}
	if a.Degraded {
		fmt.Fprintf(&b, ". Assessment is degraded: %s data was unavailable",
			strings.Join(a.MissingFactors, ", "))
	}
	b.WriteString(".")
	return b.String()
}

func buildRecommendations(a *models.RiskAssessment, ranked []RankedFactor) []Recommendation {
	var recs []Recommendation
	for _, rf := range ranked {
		rec, ok := factorRecommendation(rf.Factor, rf.Score)
		if !ok {
			continue
		}
		recs = append(recs, rec)
	}

	if il, ok := a.FactorValue(models.FactorImpermanentLoss); ok && il >= 0.05 {
		recs = append(recs, Recommendation{
			Priority: priorityForScore(il / 0.20),
			Category: models.FactorImpermanentLoss,
			Title:    "Impermanent loss is eroding the position",
			Description: fmt.Sprintf(
				"Current impermanent loss is %.1f%% versus holding. Consider rebalancing or exiting if price divergence continues.",
				il*100),
		})
	}

	if a.Degraded {
		recs = append(recs, Recommendation{
			Priority: "low",
			Category: "data",
			Title:    "Risk data is incomplete",
			Description: fmt.Sprintf(
				"Factors %s were unavailable during the last recalculation; the composite score relies on renormalized weights.",
				strings.Join(a.MissingFactors, ", ")),
		})
	}

	return recs
}

func factorSummary(factor string, score float64) string {
	level := "low"
	switch {
	case score >= 0.7:
		level = "elevated"
	case score >= 0.4:
		level = "moderate"
	}

	switch factor {
	case models.FactorLiquidity:
		return fmt.Sprintf("Pool liquidity risk is %s: exit costs and depth drive %.0f%% of maximum.", level, score*100)
	case models.FactorVolatility:
		return fmt.Sprintf("Price volatility is %s at %.0f%% of the profile tolerance.", level, score*100)
	case models.FactorProtocol:
		return fmt.Sprintf("Protocol risk is %s based on audits, exploit history and governance.", level)
	case models.FactorMEV:
		return fmt.Sprintf("MEV exposure is %s: sandwich and frontrun activity at %.0f%% of maximum.", level, score*100)
	case models.FactorCrossChain:
		return fmt.Sprintf("Cross-chain exposure is %s across bridges.", level)
	}
	return fmt.Sprintf("%s risk at %.0f%%.", factor, score*100)
}

func factorRecommendation(factor string, score float64) (Recommendation, bool) {
	if score < 0.4 {
		return Recommendation{}, false
	}
	priority := priorityForScore(score)

	switch factor {
	case models.FactorLiquidity:
		return Recommendation{
			Priority: priority,
			Category: factor,
			Title:    "Reduce exposure to thin liquidity",
			Description: "Pool depth is insufficient for a clean exit at current position size. " +
				"Consider splitting the position or moving part of it into a deeper pool.",
		}, true
	case models.FactorVolatility:
		return Recommendation{
			Priority: priority,
			Category: factor,
			Title:    "Pair volatility exceeds profile tolerance",
			Description: "Recent price swings raise both impermanent loss and liquidation risk. " +
				"A more correlated pair or a wider range would reduce sensitivity.",
		}, true
	case models.FactorProtocol:
		return Recommendation{
			Priority: priority,
			Category: factor,
			Title:    "Protocol fundamentals are weak",
			Description: "Audit coverage, exploit history or governance raise counterparty risk. " +
				"Limit the share of the portfolio allocated to this protocol.",
		}, true
	case models.FactorMEV:
		return Recommendation{
			Priority: priority,
			Category: factor,
			Title:    "High MEV activity around the pool",
			Description: "Sandwich and frontrun rates are elevated. Use private transaction relays " +
				"and tighter slippage limits for entries and exits.",
		}, true
	case models.FactorCrossChain:
		return Recommendation{
			Priority: priority,
			Category: factor,
			Title:    "Bridge exposure concentrates risk",
			Description: "A significant share of liquidity depends on bridges with elevated risk scores. " +
				"Prefer natively-issued assets where possible.",
		}, true
	}
	return Recommendation{}, false
}

func priorityForScore(score float64) string {
	switch {
	case score >= 0.7:
		return "high"
	case score >= 0.4:
		return "medium"
	}
	return "low"
}
