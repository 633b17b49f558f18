package monitor

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"riskmonitor/internal/models"
	"riskmonitor/internal/repository"
)

// ============================================================
// Scheduler - планировщик периодического пересчета рисков
// ============================================================
// Назначение:
// Каждый тик обходит отслеживаемые сущности и распределяет их по
// шардированным воркерам. Шардирование детерминировано по ключу
// сущности, на шард приходится один воркер: все оценки одной
// сущности выполняются последовательно, без гонок по записи.
//
// Дедупликация: сущность, уже стоящая в очереди или в работе,
// повторно не ставится. Медленный тик не накапливает дубликаты.

// SnapshotProvider отдает снимок сущности
type SnapshotProvider interface {
	Collect(ctx context.Context, entityType, entityID string) (*models.EntitySnapshot, error)
}

// Assessor собирает композитную оценку по снимку
type Assessor interface {
	Aggregate(ctx context.Context, userAddress string, snap *models.EntitySnapshot) (*models.RiskAssessment, error)
}

// AssessmentStore - хранилище оценок и реестр сущностей
type AssessmentStore interface {
	Save(a *models.RiskAssessment, changeReason string) error
	ListTracked() ([]repository.MonitoredEntity, error)
}

// AlertSink прогоняет готовую оценку через пороги
type AlertSink interface {
	Process(userAddress string, a *models.RiskAssessment) error
}

// SchedulerConfig - параметры планировщика
type SchedulerConfig struct {
	Interval       time.Duration // период обхода всех сущностей
	Shards         int           // количество шардов (1 воркер на шард)
	QueueSize      int           // размер очереди на шард
	ProcessTimeout time.Duration // таймаут полной оценки одной сущности
}

// DefaultSchedulerConfig возвращает конфигурацию по умолчанию
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:       30 * time.Second,
		Shards:         8,
		QueueSize:      256,
		ProcessTimeout: 15 * time.Second,
	}
}

// job - одно задание на пересчет. Сущность оценивается один раз,
// пороги проверяются для каждого подписанного пользователя.
type job struct {
	entityType string
	entityID   string
	users      []string
	reason     string
}

type Scheduler struct {
	provider SnapshotProvider
	assessor Assessor
	store    AssessmentStore
	alerts   AlertSink
	config   SchedulerConfig
	logger   *zap.Logger

	shards []chan job

	// Сущности в очереди или в работе, ключ entityType|entityID
	inflight   map[string]struct{}
	inflightMu sync.Mutex

	wg sync.WaitGroup
}

// NewScheduler создает планировщик
func NewScheduler(provider SnapshotProvider, assessor Assessor, store AssessmentStore, alerts AlertSink, config SchedulerConfig, logger *zap.Logger) *Scheduler {
	if config.Shards < 1 {
		config.Shards = 1
	}
	if config.QueueSize < 1 {
		config.QueueSize = 1
	}

	shards := make([]chan job, config.Shards)
	for i := range shards {
		shards[i] = make(chan job, config.QueueSize)
	}

	return &Scheduler{
		provider: provider,
		assessor: assessor,
		store:    store,
		alerts:   alerts,
		config:   config,
		logger:   logger,
		shards:   shards,
		inflight: make(map[string]struct{}),
	}
}

// Run запускает воркеры и цикл обхода. Блокирует до отмены контекста,
// затем дожидается завершения текущих заданий.
func (s *Scheduler) Run(ctx context.Context) error {
	for i := range s.shards {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	// Первый обход сразу, не дожидаясь тика
	s.Sweep()

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return ctx.Err()
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep ставит все отслеживаемые сущности в очередь пересчета.
// Регистрации группируются по сущности: общий пул оценивается один
// раз за обход независимо от числа подписчиков.
func (s *Scheduler) Sweep() {
	entities, err := s.store.ListTracked()
	if err != nil {
		s.logger.Error("failed to list monitored entities", zap.Error(err))
		return
	}

	type entityKey struct {
		entityType string
		entityID   string
	}
	order := make([]entityKey, 0, len(entities))
	users := make(map[entityKey][]string)
	for _, e := range entities {
		k := entityKey{e.EntityType, e.EntityID}
		if _, seen := users[k]; !seen {
			order = append(order, k)
		}
		users[k] = append(users[k], e.UserAddress)
	}

	TrackedEntities.Set(float64(len(order)))

	for _, k := range order {
		s.enqueue(job{
			entityType: k.entityType,
			entityID:   k.entityID,
			users:      users[k],
			reason:     "scheduled_reassessment",
		})
	}
}

// Enqueue ставит сущность в очередь внепланового пересчета.
// Возвращает false, если сущность уже в работе или очередь шарда
// заполнена.
func (s *Scheduler) Enqueue(entityType, entityID, userAddress, reason string) bool {
	return s.enqueue(job{
		entityType: entityType,
		entityID:   entityID,
		users:      []string{userAddress},
		reason:     reason,
	})
}

func (s *Scheduler) enqueue(j job) bool {
	key := j.entityType + "|" + j.entityID

	s.inflightMu.Lock()
	if _, busy := s.inflight[key]; busy {
		s.inflightMu.Unlock()
		return false
	}
	s.inflight[key] = struct{}{}
	s.inflightMu.Unlock()

	shardIdx := s.shardFor(key)

	select {
	case s.shards[shardIdx] <- j:
		ShardQueueDepth.WithLabelValues(strconv.Itoa(shardIdx)).Set(float64(len(s.shards[shardIdx])))
		return true
	default:
		s.release(key)
		RecordQueueDrop(strconv.Itoa(shardIdx))
		s.logger.Warn("shard queue full, assessment dropped",
			zap.Int("shard", shardIdx),
			zap.String("entity_type", j.entityType),
			zap.String("entity_id", j.entityID))
		return false
	}
}

// shardFor детерминированно выбирает шард по ключу сущности
func (s *Scheduler) shardFor(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(s.shards)))
}

func (s *Scheduler) release(key string) {
	s.inflightMu.Lock()
	delete(s.inflight, key)
	s.inflightMu.Unlock()
}

// worker последовательно обрабатывает задания одного шарда
func (s *Scheduler) worker(ctx context.Context, shardIdx int) {
	defer s.wg.Done()
	shard := s.shards[shardIdx]

	for {
		select {
		case <-ctx.Done():
			return
		case j := <-shard:
			s.process(ctx, j)
			s.release(j.entityType + "|" + j.entityID)
			ShardQueueDepth.WithLabelValues(strconv.Itoa(shardIdx)).Set(float64(len(shard)))
		}
	}
}

// process выполняет полный цикл оценки одной сущности:
// снимок, агрегация, запись, пороги
func (s *Scheduler) process(ctx context.Context, j job) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.config.ProcessTimeout)
	defer cancel()

	if len(j.users) == 0 {
		return
	}

	snap, err := s.provider.Collect(ctx, j.entityType, j.entityID)
	if err != nil {
		RecordAssessment(j.entityType, "collect_error", time.Since(start).Seconds())
		s.logger.Warn("snapshot collection failed",
			zap.String("entity_type", j.entityType),
			zap.String("entity_id", j.entityID),
			zap.Error(err))
		return
	}

	// Композит считается по профилю первого подписчика; пороги
	// дальше проверяются для каждого
	assessment, err := s.assessor.Aggregate(ctx, j.users[0], snap)
	if err != nil {
		RecordAssessment(j.entityType, "aggregate_error", time.Since(start).Seconds())
		s.logger.Error("risk aggregation failed",
			zap.String("entity_type", j.entityType),
			zap.String("entity_id", j.entityID),
			zap.Error(err))
		return
	}

	// Оценка без записи не существует: при сбое записи пороги не
	// проверяются, сущность пересчитается на следующем тике
	if err := s.store.Save(assessment, j.reason); err != nil {
		RecordAssessment(j.entityType, "save_error", time.Since(start).Seconds())
		s.logger.Error("assessment persistence failed",
			zap.String("entity_type", j.entityType),
			zap.String("entity_id", j.entityID),
			zap.Error(err))
		return
	}

	RecordCompositeScore(j.entityType, assessment.Severity, assessment.OverallScore, assessment.Degraded)

	// Сбой проверки у одного пользователя не лишает алертов остальных
	failed := false
	for _, user := range j.users {
		if err := s.alerts.Process(user, assessment); err != nil {
			failed = true
			s.logger.Error("threshold evaluation failed",
				zap.String("entity_type", j.entityType),
				zap.String("entity_id", j.entityID),
				zap.String("user_address", user),
				zap.Error(err))
		}
	}
	if failed {
		RecordAssessment(j.entityType, "alert_error", time.Since(start).Seconds())
		return
	}

	RecordAssessment(j.entityType, "ok", time.Since(start).Seconds())
}
