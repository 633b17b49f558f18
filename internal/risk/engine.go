package risk

import (
	"context"
	"errors"

	"riskmonitor/internal/models"
)

// engine.go - контракт факторных движков
//
// Назначение:
// Каждый движок считает один риск-фактор по снимку сущности и
// параметрам активного профиля. Движки независимы: падение или
// таймаут одного не прерывает остальные, агрегатор перенормирует
// веса по оставшимся.
//
// Движки работают только с данными снимка. Отсутствующие входные
// данные дают нейтральный скор с низкой уверенностью, а не ошибку.

var (
	// ErrNoData - у снимка нет данных, без которых фактор
	// не имеет смысла даже как нейтральный
	ErrNoData = errors.New("insufficient snapshot data for factor")
)

// Нейтральные значения при отсутствии входных данных
const (
	neutralScore  = 0.5
	lowConfidence = 0.1
)

// FactorResult - результат расчета одного фактора
type FactorResult struct {
	Factor     string             `json:"factor"`
	Score      float64            `json:"score"`      // [0,1]
	Confidence float64            `json:"confidence"` // [0,1]
	// Числовые свидетельства расчета для объяснений и отладки
	Evidence map[string]float64 `json:"evidence,omitempty"`
}

// Engine - факторный движок
type Engine interface {
	// Factor возвращает имя фактора (models.Factor*)
	Factor() string

	// Compute считает скор фактора по снимку.
	// Контекст отменяется агрегатором по таймауту движка.
	Compute(ctx context.Context, snap *models.EntitySnapshot, params models.FactorParams) (FactorResult, error)
}

// Registry - реестр движков по имени фактора.
// Порядок регистрации сохраняется для детерминированных обходов.
type Registry struct {
	engines map[string]Engine
	order   []string
}

// NewRegistry создает реестр из переданных движков
func NewRegistry(engines ...Engine) *Registry {
	r := &Registry{engines: make(map[string]Engine)}
	for _, e := range engines {
		r.Register(e)
	}
	return r
}

// DefaultRegistry возвращает реестр со всеми шестью движками
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewLiquidityEngine(),
		NewVolatilityEngine(),
		NewProtocolEngine(),
		NewMEVEngine(),
		NewCrossChainEngine(),
		NewImpermanentLossEngine(),
	)
}

// Register добавляет движок. Повторная регистрация фактора
// заменяет движок, не дублируя порядок.
func (r *Registry) Register(e Engine) {
	name := e.Factor()
	if _, exists := r.engines[name]; !exists {
		r.order = append(r.order, name)
	}
	r.engines[name] = e
}

// Get возвращает движок по имени фактора
func (r *Registry) Get(factor string) (Engine, bool) {
	e, ok := r.engines[factor]
	return e, ok
}

// All возвращает движки в порядке регистрации
func (r *Registry) All() []Engine {
	result := make([]Engine, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.engines[name])
	}
	return result
}
