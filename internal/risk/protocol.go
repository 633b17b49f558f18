package risk

import (
	"context"

	"riskmonitor/internal/models"
	"riskmonitor/pkg/utils"
)

// protocol.go - движок протокольного риска
//
// Компоненты скора:
// - дефицит audit score против min_audit_score профиля
// - эксплойты сверх max_exploit_tolerance
// - governance-риск, взвешенный параметром профиля
// - молодость протокола
// - admin key без мультисига

// Возраст, после которого протокол считается зрелым
const matureProtocolAgeDays = 365

type ProtocolEngine struct{}

func NewProtocolEngine() *ProtocolEngine {
	return &ProtocolEngine{}
}

func (e *ProtocolEngine) Factor() string {
	return models.FactorProtocol
}

func (e *ProtocolEngine) Compute(ctx context.Context, snap *models.EntitySnapshot, params models.FactorParams) (FactorResult, error) {
	if err := ctx.Err(); err != nil {
		return FactorResult{}, err
	}

	p := snap.Protocol
	if p == nil {
		return FactorResult{
			Factor:     models.FactorProtocol,
			Score:      neutralScore,
			Confidence: lowConfidence,
		}, nil
	}

	auditScore := utils.InverseRatioScore(p.AuditScore, params.MinAuditScore)
	// Толерантность 0 означает, что любой эксплойт дает максимум риска
	exploitScore := utils.RatioScore(float64(p.ExploitCount), float64(params.MaxExploitTolerance+1))
	ageScore := utils.InverseRatioScore(float64(p.AgeDays), matureProtocolAgeDays)

	adminScore := 0.0
	if !p.AdminKeyMultisig {
		adminScore = 1.0
	}

	score := utils.WeightedAverage(
		[]float64{auditScore, exploitScore, p.GovernanceRisk, ageScore, adminScore},
		[]float64{0.30, 0.25, params.GovernanceRiskWeight, 0.10, 0.10},
	)

	confidence := 0.95
	if p.AuditScore == 0 {
		// Неаудированный протокол и протокол без данных об аудите
		// в снимке неразличимы
		confidence = 0.6
	}

	return FactorResult{
		Factor:     models.FactorProtocol,
		Score:      utils.Clamp01(score),
		Confidence: confidence,
		Evidence: map[string]float64{
			"audit_score":     p.AuditScore,
			"audit_component": auditScore,
			"exploit_count":   float64(p.ExploitCount),
			"exploit_component": exploitScore,
			"governance_risk": p.GovernanceRisk,
			"age_days":        float64(p.AgeDays),
			"admin_component": adminScore,
		},
	}, nil
}
