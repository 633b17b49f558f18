package risk

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"riskmonitor/internal/models"
	"riskmonitor/pkg/utils"
)

// aggregator.go - композитная оценка риска
//
// Назначение:
// Агрегатор запускает факторные движки параллельно, взвешивает их
// скоры по разрешенному профилю и собирает RiskAssessment.
//
// Отказоустойчивость:
// - каждый движок работает под собственным таймаутом
// - упавший или не успевший движок выпадает из расчета, веса
//   оставшихся перенормируются пропорционально
// - оценка при этом помечается degraded с перечнем выпавших факторов
//
// Уверенность композита - минимум уверенностей участвовавших
// факторов, умноженный на долю присутствующего веса и ограниченный
// снизу полом: один очень слабый фактор ограничивает доверие ко
// всей оценке.

var ErrAllEnginesFailed = errors.New("all weighted factor engines failed")

// AggregatorConfig - параметры агрегатора
type AggregatorConfig struct {
	// Таймаут одного факторного движка
	EngineTimeout time.Duration

	// Нижняя граница уверенности композита
	ConfidenceFloor float64

	// Время жизни оценки; 0 - без истечения
	AssessmentTTL time.Duration

	// Возраст снимка, после которого уверенность режется вдвое
	SnapshotMaxAge time.Duration
}

// DefaultAggregatorConfig возвращает конфигурацию по умолчанию
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		EngineTimeout:   3 * time.Second,
		ConfidenceFloor: 0.1,
		AssessmentTTL:   5 * time.Minute,
		SnapshotMaxAge:  2 * time.Minute,
	}
}

type Aggregator struct {
	registry *Registry
	resolver *Resolver
	config   AggregatorConfig
	logger   *zap.Logger
}

func NewAggregator(registry *Registry, resolver *Resolver, config AggregatorConfig, logger *zap.Logger) *Aggregator {
	if config.ConfidenceFloor <= 0 {
		config.ConfidenceFloor = 0.1
	}
	return &Aggregator{
		registry: registry,
		resolver: resolver,
		config:   config,
		logger:   logger,
	}
}

type engineOutcome struct {
	factor string
	result FactorResult
	err    error
}

// Aggregate считает композитную оценку риска сущности по снимку
func (a *Aggregator) Aggregate(ctx context.Context, userAddress string, snap *models.EntitySnapshot) (*models.RiskAssessment, error) {
	cfg := a.resolver.Resolve(userAddress)
	weights := cfg.Weights.AsMap()

	outcomes := a.runEngines(ctx, snap, cfg.Params)

	factors := make(map[string]models.FactorScore)
	var missing []string
	degraded := false

	var scores, factorWeights, confidences []float64
	for _, o := range outcomes {
		weight, weighted := weights[o.factor]

		if o.err != nil {
			a.logger.Warn("factor engine failed",
				zap.String("entity_type", snap.EntityType),
				zap.String("entity_id", snap.EntityID),
				zap.String("factor", o.factor),
				zap.Error(o.err))
			missing = append(missing, o.factor)
			if weighted {
				degraded = true
			}
			continue
		}

		factorWeight := 0.0
		if weighted {
			factorWeight = weight
			scores = append(scores, o.result.Score)
			factorWeights = append(factorWeights, weight)
			confidences = append(confidences, o.result.Confidence)
		}
		factors[o.factor] = models.FactorScore{
			Score:      o.result.Score,
			Confidence: o.result.Confidence,
			Weight:     factorWeight,
			Degraded:   o.result.Confidence <= a.config.ConfidenceFloor,
		}
	}

	if len(scores) == 0 {
		return nil, ErrAllEnginesFailed
	}

	// Падение TVL сохраняется невзвешенной метрикой: пороги
	// metric=tvl_drop оцениваются по последней оценке без
	// повторного обращения к снимку
	factors[models.MetricTVLDrop] = models.FactorScore{
		Score:      snap.TVLDropRatio(),
		Confidence: 1,
	}

	// WeightedAverage делит на сумму присутствующих весов, что и
	// есть пропорциональная перенормировка при выпавших факторах
	composite := utils.Clamp01(utils.WeightedAverage(scores, factorWeights))

	confidence := a.compositeConfidence(confidences, factorWeights, snap)

	// Профиль может поднять границу critical выше дефолтной
	criticalBoundary := 0.0
	if cfg.OverallRiskThreshold > models.SeverityBoundaryHigh {
		criticalBoundary = cfg.OverallRiskThreshold
	}
	severity := models.SeverityForScore(composite, criticalBoundary)

	assessment := &models.RiskAssessment{
		EntityType:     snap.EntityType,
		EntityID:       snap.EntityID,
		UserAddress:    userAddress,
		OverallScore:   composite,
		Severity:       severity,
		Confidence:     confidence,
		Factors:        factors,
		Degraded:       degraded,
		MissingFactors: missing,
	}
	if a.config.AssessmentTTL > 0 {
		expires := time.Now().UTC().Add(a.config.AssessmentTTL)
		assessment.ExpiresAt = &expires
	}

	a.logger.Debug("assessment computed",
		zap.String("entity_type", snap.EntityType),
		zap.String("entity_id", snap.EntityID),
		zap.Float64("overall_score", composite),
		zap.String("severity", severity),
		zap.Float64("confidence", confidence),
		zap.Bool("degraded", degraded))

	return assessment, nil
}

// runEngines запускает все движки параллельно, каждый под своим
// таймаутом. Медленный движок не задерживает остальных дольше
// engine_timeout.
func (a *Aggregator) runEngines(ctx context.Context, snap *models.EntitySnapshot, params models.FactorParams) []engineOutcome {
	engines := a.registry.All()
	outcomes := make([]engineOutcome, len(engines))

	var wg sync.WaitGroup
	for i, e := range engines {
		wg.Add(1)
		go func(i int, e Engine) {
			defer wg.Done()
			result, err := a.runEngine(ctx, e, snap, params)
			outcomes[i] = engineOutcome{factor: e.Factor(), result: result, err: err}
		}(i, e)
	}
	wg.Wait()

	return outcomes
}

func (a *Aggregator) runEngine(ctx context.Context, e Engine, snap *models.EntitySnapshot, params models.FactorParams) (FactorResult, error) {
	ctx, cancel := context.WithTimeout(ctx, a.config.EngineTimeout)
	defer cancel()

	type outcome struct {
		result FactorResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := e.Compute(ctx, snap, params)
		done <- outcome{result, err}
	}()

	select {
	case o := <-done:
		return o.result, o.err
	case <-ctx.Done():
		return FactorResult{}, ctx.Err()
	}
}

// compositeConfidence - минимум уверенностей присутствующих
// факторов, масштабированный долей присутствующего веса.
// Устаревший снимок дополнительно режет уверенность вдвое.
func (a *Aggregator) compositeConfidence(confidences, factorWeights []float64, snap *models.EntitySnapshot) float64 {
	confidence := 1.0
	for _, c := range confidences {
		confidence = utils.Min(confidence, c)
	}

	var presentWeight float64
	for _, w := range factorWeights {
		presentWeight += w
	}
	confidence *= utils.Clamp01(presentWeight)

	if a.config.SnapshotMaxAge > 0 && snap.Stale(time.Now(), a.config.SnapshotMaxAge) {
		confidence *= 0.5
	}

	return utils.Clamp(confidence, a.config.ConfidenceFloor, 1)
}
