package service

import (
	"time"

	"github.com/google/uuid"

	"riskmonitor/internal/models"
	"riskmonitor/internal/repository"
)

// ============ Mock AssessmentRepository ============

type MockAssessmentRepository struct {
	assessments map[string]*models.RiskAssessment // entity_type|entity_id
	history     []*models.AssessmentHistory
	tracked     map[string]string // entity_type|entity_id -> user
	getErr      error
	historyErr  error
	trackErr    error
	lastFilter  models.AssessmentFilter
}

func NewMockAssessmentRepository() *MockAssessmentRepository {
	return &MockAssessmentRepository{
		assessments: make(map[string]*models.RiskAssessment),
		tracked:     make(map[string]string),
	}
}

func (m *MockAssessmentRepository) GetActive(entityType, entityID string) (*models.RiskAssessment, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if a, ok := m.assessments[entityType+"|"+entityID]; ok {
		return a, nil
	}
	return nil, repository.ErrAssessmentNotFound
}

func (m *MockAssessmentRepository) GetByID(id uuid.UUID) (*models.RiskAssessment, error) {
	for _, a := range m.assessments {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, repository.ErrAssessmentNotFound
}

func (m *MockAssessmentRepository) GetHistory(entityType, entityID string, filter models.AssessmentFilter) ([]*models.AssessmentHistory, error) {
	m.lastFilter = filter
	if m.historyErr != nil {
		return nil, m.historyErr
	}
	return m.history, nil
}

func (m *MockAssessmentRepository) TrackEntity(entityType, entityID, userAddress string) error {
	if m.trackErr != nil {
		return m.trackErr
	}
	m.tracked[entityType+"|"+entityID] = userAddress
	return nil
}

func (m *MockAssessmentRepository) UntrackEntity(entityType, entityID, userAddress string) error {
	if m.tracked[entityType+"|"+entityID] == userAddress {
		delete(m.tracked, entityType+"|"+entityID)
	}
	return nil
}

// ============ Mock ThresholdRepository ============

type MockThresholdRepository struct {
	thresholds map[uuid.UUID]*models.AlertThreshold
	createErr  error
	listErr    error
	batches    int
}

func NewMockThresholdRepository() *MockThresholdRepository {
	return &MockThresholdRepository{thresholds: make(map[uuid.UUID]*models.AlertThreshold)}
}

func (m *MockThresholdRepository) Create(t *models.AlertThreshold) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.thresholds[t.ID] = t
	return nil
}

func (m *MockThresholdRepository) CreateBatch(thresholds []*models.AlertThreshold) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.batches++
	for _, t := range thresholds {
		m.thresholds[t.ID] = t
	}
	return nil
}

func (m *MockThresholdRepository) Update(t *models.AlertThreshold) error {
	if _, ok := m.thresholds[t.ID]; !ok {
		return repository.ErrThresholdNotFound
	}
	m.thresholds[t.ID] = t
	return nil
}

func (m *MockThresholdRepository) Delete(id uuid.UUID, userAddress string) error {
	t, ok := m.thresholds[id]
	if !ok || t.UserAddress != userAddress {
		return repository.ErrThresholdNotFound
	}
	delete(m.thresholds, id)
	return nil
}

func (m *MockThresholdRepository) GetByID(id uuid.UUID) (*models.AlertThreshold, error) {
	if t, ok := m.thresholds[id]; ok {
		return t, nil
	}
	return nil, repository.ErrThresholdNotFound
}

func (m *MockThresholdRepository) ListByUser(userAddress string) ([]*models.AlertThreshold, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var result []*models.AlertThreshold
	for _, t := range m.thresholds {
		if t.UserAddress == userAddress {
			result = append(result, t)
		}
	}
	return result, nil
}

// ============ Mock ConfigRepository ============

type MockConfigRepository struct {
	configs   map[uuid.UUID]*models.RiskConfig
	createErr error
}

func NewMockConfigRepository() *MockConfigRepository {
	return &MockConfigRepository{configs: make(map[uuid.UUID]*models.RiskConfig)}
}

func (m *MockConfigRepository) Create(c *models.RiskConfig) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.configs[c.ID] = c
	return nil
}

func (m *MockConfigRepository) Update(c *models.RiskConfig) error {
	if _, ok := m.configs[c.ID]; !ok {
		return repository.ErrConfigNotFound
	}
	m.configs[c.ID] = c
	return nil
}

func (m *MockConfigRepository) Activate(id uuid.UUID, userAddress string) error {
	target, ok := m.configs[id]
	if !ok || target.UserAddress != userAddress {
		return repository.ErrConfigNotFound
	}
	for _, c := range m.configs {
		if c.UserAddress == userAddress {
			c.IsActive = false
		}
	}
	target.IsActive = true
	return nil
}

func (m *MockConfigRepository) GetActive(userAddress string) (*models.RiskConfig, error) {
	for _, c := range m.configs {
		if c.UserAddress == userAddress && c.IsActive {
			return c, nil
		}
	}
	return nil, repository.ErrConfigNotFound
}

func (m *MockConfigRepository) GetByID(id uuid.UUID) (*models.RiskConfig, error) {
	if c, ok := m.configs[id]; ok {
		return c, nil
	}
	return nil, repository.ErrConfigNotFound
}

func (m *MockConfigRepository) ListByUser(userAddress string) ([]*models.RiskConfig, error) {
	var result []*models.RiskConfig
	for _, c := range m.configs {
		if c.UserAddress == userAddress {
			result = append(result, c)
		}
	}
	return result, nil
}

func (m *MockConfigRepository) Delete(id uuid.UUID, userAddress string) error {
	c, ok := m.configs[id]
	if !ok || c.UserAddress != userAddress {
		return repository.ErrConfigNotFound
	}
	delete(m.configs, id)
	return nil
}

// ============ Mock AlertRepository ============

type MockAlertRepository struct {
	alerts   map[uuid.UUID]*models.Alert
	attempts map[uuid.UUID][]*models.DeliveryAttempt
	listErr  error
}

func NewMockAlertRepository() *MockAlertRepository {
	return &MockAlertRepository{
		alerts:   make(map[uuid.UUID]*models.Alert),
		attempts: make(map[uuid.UUID][]*models.DeliveryAttempt),
	}
}

func (m *MockAlertRepository) GetByID(id uuid.UUID) (*models.Alert, error) {
	if a, ok := m.alerts[id]; ok {
		return a, nil
	}
	return nil, repository.ErrAlertNotFound
}

func (m *MockAlertRepository) List(filter models.AlertFilter) ([]*models.Alert, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var result []*models.Alert
	for _, a := range m.alerts {
		if a.UserAddress == filter.UserAddress {
			result = append(result, a)
		}
	}
	return result, nil
}

func (m *MockAlertRepository) ListDeliveryAttempts(alertID uuid.UUID) ([]*models.DeliveryAttempt, error) {
	return m.attempts[alertID], nil
}

// ============ Mock ChannelRepository ============

type MockChannelRepository struct {
	channels  map[uuid.UUID]*models.NotificationChannel
	createErr error
}

func NewMockChannelRepository() *MockChannelRepository {
	return &MockChannelRepository{channels: make(map[uuid.UUID]*models.NotificationChannel)}
}

func (m *MockChannelRepository) Create(ch *models.NotificationChannel) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.channels[ch.ID] = ch
	return nil
}

func (m *MockChannelRepository) Update(ch *models.NotificationChannel) error {
	if _, ok := m.channels[ch.ID]; !ok {
		return repository.ErrChannelNotFound
	}
	m.channels[ch.ID] = ch
	return nil
}

func (m *MockChannelRepository) Delete(id uuid.UUID, userAddress string) error {
	ch, ok := m.channels[id]
	if !ok || ch.UserAddress != userAddress {
		return repository.ErrChannelNotFound
	}
	delete(m.channels, id)
	return nil
}

func (m *MockChannelRepository) ListByUser(userAddress string) ([]*models.NotificationChannel, error) {
	var result []*models.NotificationChannel
	for _, ch := range m.channels {
		if ch.UserAddress == userAddress {
			result = append(result, ch)
		}
	}
	return result, nil
}

// ============ Mock планировщика и жизненного цикла алертов ============

type MockTrigger struct {
	queued []string // entity_type|entity_id|reason
	full   bool
}

func (m *MockTrigger) Enqueue(entityType, entityID, userAddress, reason string) bool {
	if m.full {
		return false
	}
	m.queued = append(m.queued, entityType+"|"+entityID+"|"+reason)
	return true
}

type MockLifecycle struct {
	resolved   []uuid.UUID
	resolveErr error
}

func (m *MockLifecycle) ResolveByUser(alertID uuid.UUID) error {
	if m.resolveErr != nil {
		return m.resolveErr
	}
	m.resolved = append(m.resolved, alertID)
	return nil
}

// ============ Вспомогательные конструкторы ============

func expiredAssessment(entityType, entityID string) *models.RiskAssessment {
	past := time.Now().UTC().Add(-time.Minute)
	return &models.RiskAssessment{
		ID:           uuid.New(),
		EntityType:   entityType,
		EntityID:     entityID,
		UserAddress:  "0xabc",
		OverallScore: 0.42,
		Severity:     models.SeverityMedium,
		Confidence:   0.9,
		ExpiresAt:    &past,
		IsActive:     true,
	}
}

func freshAssessment(entityType, entityID string) *models.RiskAssessment {
	future := time.Now().UTC().Add(time.Hour)
	a := expiredAssessment(entityType, entityID)
	a.ExpiresAt = &future
	a.Factors = map[string]models.FactorScore{
		models.FactorLiquidity:  {Score: 0.6, Confidence: 0.9, Weight: 0.5},
		models.FactorVolatility: {Score: 0.3, Confidence: 0.9, Weight: 0.5},
	}
	return a
}
