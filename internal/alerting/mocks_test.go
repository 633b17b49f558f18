package alerting

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"riskmonitor/internal/models"
	"riskmonitor/internal/repository"
)

// ============================================================
// Hand-written mocks
// ============================================================

type stubThresholds struct {
	thresholds []*models.AlertThreshold
	err        error
}

func (s *stubThresholds) ListForEntity(userAddress, entityType, entityID string) ([]*models.AlertThreshold, error) {
	return s.thresholds, s.err
}

// memAlertStore - хранилище алертов в памяти с семантикой репозитория
type memAlertStore struct {
	now func() time.Time

	open       map[string]*models.Alert
	created    []*models.Alert
	increments int
	refires    int
	resolvedBy []string

	createErr error
}

func newMemAlertStore(now func() time.Time) *memAlertStore {
	return &memAlertStore{now: now, open: make(map[string]*models.Alert)}
}

func alertKey(userAddress, entityType, entityID string, thresholdID uuid.UUID) string {
	return fmt.Sprintf("%s|%s|%s|%s", userAddress, entityType, entityID, thresholdID)
}

func (s *memAlertStore) Create(a *models.Alert) error {
	if s.createErr != nil {
		return s.createErr
	}
	key := alertKey(a.UserAddress, a.EntityType, a.EntityID, a.ThresholdID)
	if _, exists := s.open[key]; exists {
		return repository.ErrAlertExists
	}
	a.ID = uuid.New()
	a.FireCount = 1
	a.LastFiredAt = s.now()
	a.DeliveryStatus = models.DeliveryPending
	a.CreatedAt = s.now()
	s.open[key] = a
	s.created = append(s.created, a)
	return nil
}

func (s *memAlertStore) GetOpen(userAddress, entityType, entityID string, thresholdID uuid.UUID) (*models.Alert, error) {
	a, ok := s.open[alertKey(userAddress, entityType, entityID, thresholdID)]
	if !ok {
		return nil, repository.ErrAlertNotFound
	}
	return a, nil
}

func (s *memAlertStore) GetByID(id uuid.UUID) (*models.Alert, error) {
	for _, a := range s.open {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, repository.ErrAlertNotFound
}

func (s *memAlertStore) IncrementFireCount(id uuid.UUID, currentValue float64) error {
	a, err := s.GetByID(id)
	if err != nil {
		return err
	}
	a.FireCount++
	a.CurrentValue = currentValue
	s.increments++
	return nil
}

func (s *memAlertStore) RecordRefire(id uuid.UUID, currentValue float64, severity string, firedAt time.Time) error {
	a, err := s.GetByID(id)
	if err != nil {
		return err
	}
	a.FireCount++
	a.CurrentValue = currentValue
	a.Severity = severity
	a.LastFiredAt = firedAt
	s.refires++
	return nil
}

func (s *memAlertStore) Resolve(id uuid.UUID, resolvedBy string) error {
	for key, a := range s.open {
		if a.ID == id {
			a.IsResolved = true
			resolvedAt := s.now()
			a.ResolvedAt = &resolvedAt
			a.ResolvedBy = resolvedBy
			delete(s.open, key)
			s.resolvedBy = append(s.resolvedBy, resolvedBy)
			return nil
		}
	}
	return repository.ErrAlertNotFound
}

type stubDispatcher struct {
	events []string
	full   bool
}

func (s *stubDispatcher) Enqueue(alert *models.Alert, eventType string, metrics map[string]float64) bool {
	if s.full {
		return false
	}
	s.events = append(s.events, eventType)
	return true
}

type stubChannels struct {
	channels []*models.NotificationChannel
	err      error
}

func (s *stubChannels) ListEnabled(userAddress string) ([]*models.NotificationChannel, error) {
	return s.channels, s.err
}

// memDeliveryStore - журнал доставки в памяти, безопасный для
// конкурентных воркеров диспетчера
type memDeliveryStore struct {
	mu       sync.Mutex
	statuses map[uuid.UUID]string
	attempts []*models.DeliveryAttempt
}

func newMemDeliveryStore() *memDeliveryStore {
	return &memDeliveryStore{statuses: make(map[uuid.UUID]string)}
}

func (s *memDeliveryStore) SetDeliveryStatus(id uuid.UUID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[id] = status
	return nil
}

func (s *memDeliveryStore) RecordDeliveryAttempt(att *models.DeliveryAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, att)
	return nil
}

func (s *memDeliveryStore) status(id uuid.UUID) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statuses[id]
}

func (s *memDeliveryStore) attemptCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attempts)
}
