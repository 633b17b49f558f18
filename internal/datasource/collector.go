package datasource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"riskmonitor/internal/models"
	"riskmonitor/pkg/ratelimit"
	"riskmonitor/pkg/retry"
)

// ============================================================
// Snapshot Collector
// ============================================================
// Назначение: собрать единый снимок сущности из трех источников.
// Состояние пула или позиции обязательно, остальные секции
// опциональны: при их отказе снимок возвращается неполным и
// движки деградируют сами.

// SnapshotProvider отдает снимок сущности для оценки
type SnapshotProvider interface {
	Collect(ctx context.Context, entityType, entityID string) (*models.EntitySnapshot, error)
}

// HealthChecker - проверка доступности одного источника
type HealthChecker interface {
	Name() string
	Healthy(ctx context.Context) error
}

// CollectorConfig - настройки коллектора
type CollectorConfig struct {
	LookbackDays int     // глубина истории цен, покрывает любой профиль
	RatePerSec   float64 // общий rate limit на запросы к источникам
	MaxRetries   int     // попыток на обязательный запрос
	RetryDelay   time.Duration
}

// DefaultCollectorConfig возвращает конфигурацию по умолчанию
func DefaultCollectorConfig() CollectorConfig {
	return CollectorConfig{
		LookbackDays: 30,
		RatePerSec:   50,
		MaxRetries:   2,
		RetryDelay:   200 * time.Millisecond,
	}
}

// Collector собирает снимки из индексера, прайс-фида и реестра протоколов
type Collector struct {
	indexer   *IndexerClient
	prices    *PriceFeedClient
	protocols *ProtocolClient
	config    CollectorConfig
	limiter   *ratelimit.RateLimiter
	retryCfg  retry.Config
	logger    *zap.Logger
	now       func() time.Time
}

// NewCollector создает коллектор снимков
func NewCollector(indexer *IndexerClient, prices *PriceFeedClient, protocols *ProtocolClient, config CollectorConfig, logger *zap.Logger) *Collector {
	retryCfg := retry.NetworkConfig()
	retryCfg.MaxRetries = config.MaxRetries
	retryCfg.InitialDelay = config.RetryDelay

	return &Collector{
		indexer:   indexer,
		prices:    prices,
		protocols: protocols,
		config:    config,
		limiter:   ratelimit.NewRateLimiter(config.RatePerSec, config.RatePerSec*2),
		retryCfg:  retryCfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Checkers возвращает health-проверки всех источников
func (c *Collector) Checkers() []HealthChecker {
	return []HealthChecker{c.indexer, c.prices, c.protocols}
}

// Collect возвращает снимок сущности
func (c *Collector) Collect(ctx context.Context, entityType, entityID string) (*models.EntitySnapshot, error) {
	switch entityType {
	case models.EntityPool:
		return c.collectPool(ctx, entityID)
	case models.EntityPosition:
		return c.collectPosition(ctx, entityID)
	default:
		return nil, fmt.Errorf("unsupported entity type for collection: %s", entityType)
	}
}

func (c *Collector) collectPool(ctx context.Context, poolID string) (*models.EntitySnapshot, error) {
	pool, err := c.fetchPoolState(ctx, poolID)
	if err != nil {
		return nil, fmt.Errorf("collect pool %s: %w", poolID, err)
	}

	snap := &models.EntitySnapshot{
		EntityType:     models.EntityPool,
		EntityID:       poolID,
		Chain:          pool.Chain,
		ObservedAt:     c.now().UTC(),
		TVLUSD:         pool.TVLUSD,
		TVL24hAgoUSD:   pool.TVL24hAgoUSD,
		Volume24hUSD:   pool.Volume24hUSD,
		DepthUSD:       pool.DepthUSD,
		TopHolderShare: pool.TopHolderShare,
	}

	c.enrich(ctx, snap, poolID, pool.Protocol, pool.TokenA, pool.TokenB)
	return snap, nil
}

func (c *Collector) collectPosition(ctx context.Context, positionID string) (*models.EntitySnapshot, error) {
	position, err := c.fetchPositionState(ctx, positionID)
	if err != nil {
		return nil, fmt.Errorf("collect position %s: %w", positionID, err)
	}

	snap := &models.EntitySnapshot{
		EntityType:       models.EntityPosition,
		EntityID:         positionID,
		Chain:            position.Chain,
		ObservedAt:       c.now().UTC(),
		PositionValueUSD: position.AmountUSD,
		EntryPriceRatio:  position.EntryPriceRatio,
	}

	// Состояние пула позиции опционально: без него движок
	// ликвидности отработает с пониженной уверенностью
	if pool, err := c.fetchPoolState(ctx, position.PoolID); err != nil {
		c.logger.Warn("pool state unavailable for position",
			zap.String("position_id", positionID),
			zap.String("pool_id", position.PoolID),
			zap.Error(err))
	} else {
		snap.TVLUSD = pool.TVLUSD
		snap.TVL24hAgoUSD = pool.TVL24hAgoUSD
		snap.Volume24hUSD = pool.Volume24hUSD
		snap.DepthUSD = pool.DepthUSD
		snap.TopHolderShare = pool.TopHolderShare
	}

	c.enrich(ctx, snap, position.PoolID, position.Protocol, position.TokenA, position.TokenB)
	return snap, nil
}

// enrich дотягивает опциональные секции снимка параллельно.
// Отказ любой из них не валит сбор целиком.
func (c *Collector) enrich(ctx context.Context, snap *models.EntitySnapshot, poolID, protocol, tokenA, tokenB string) {
	var wg sync.WaitGroup
	var mu sync.Mutex

	section := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				c.logger.Warn("snapshot section unavailable",
					zap.String("section", name),
					zap.String("entity_type", snap.EntityType),
					zap.String("entity_id", snap.EntityID),
					zap.Error(err))
			}
		}()
	}

	if tokenA != "" && tokenB != "" {
		section("price_history", func() error {
			history, err := c.prices.GetHistory(ctx, tokenA, tokenB, c.config.LookbackDays)
			if err != nil {
				return err
			}
			mu.Lock()
			snap.PriceHistory = history
			mu.Unlock()
			return nil
		})
		section("price_ratio", func() error {
			ratio, err := c.prices.GetRatio(ctx, tokenA, tokenB)
			if err != nil {
				return err
			}
			mu.Lock()
			snap.CurrentPriceRatio = ratio
			mu.Unlock()
			return nil
		})
	}

	if protocol != "" {
		section("protocol", func() error {
			info, err := c.protocols.GetProtocolInfo(ctx, protocol)
			if err != nil {
				return err
			}
			mu.Lock()
			snap.Protocol = info
			mu.Unlock()
			return nil
		})
	}

	if poolID != "" {
		section("mev", func() error {
			activity, err := c.protocols.GetMEVActivity(ctx, poolID)
			if err != nil {
				return err
			}
			mu.Lock()
			snap.MEV = activity
			mu.Unlock()
			return nil
		})
		section("bridges", func() error {
			bridges, err := c.protocols.GetBridges(ctx, poolID)
			if err != nil {
				return err
			}
			mu.Lock()
			snap.Bridges = bridges
			mu.Unlock()
			return nil
		})
	}

	wg.Wait()
}

// fetchPoolState запрашивает состояние пула с retry
func (c *Collector) fetchPoolState(ctx context.Context, poolID string) (*PoolState, error) {
	var state *PoolState
	err := retry.Do(ctx, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return retry.Permanent(err)
		}
		var err error
		state, err = c.indexer.GetPoolState(ctx, poolID)
		return err
	}, c.retryCfg)
	return state, err
}

// fetchPositionState запрашивает состояние позиции с retry
func (c *Collector) fetchPositionState(ctx context.Context, positionID string) (*PositionState, error) {
	var state *PositionState
	err := retry.Do(ctx, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return retry.Permanent(err)
		}
		var err error
		state, err = c.indexer.GetPositionState(ctx, positionID)
		return err
	}, c.retryCfg)
	return state, err
}
