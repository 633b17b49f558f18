package handlers

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"riskmonitor/internal/explain"
	"riskmonitor/internal/models"
	"riskmonitor/internal/monitor"
	"riskmonitor/internal/repository"
	"riskmonitor/internal/service"
)

// ErrMockDatabase - ошибка, имитирующая сбой хранилища
var ErrMockDatabase = errors.New("mock database error")

// ============ Mock Risk Service ============

// MockRiskService мок для RiskServiceInterface
type MockRiskService struct {
	assessments map[string]*models.RiskAssessment
	histories   map[string][]*models.AssessmentHistory
	tracked     map[string]string
	getErr      error
	requestErr  error
	mu          sync.RWMutex
}

// NewMockRiskService создает новый мок сервиса оценок
func NewMockRiskService() *MockRiskService {
	return &MockRiskService{
		assessments: make(map[string]*models.RiskAssessment),
		histories:   make(map[string][]*models.AssessmentHistory),
		tracked:     make(map[string]string),
	}
}

func entityKey(entityType, entityID string) string {
	return entityType + "|" + entityID
}

func (m *MockRiskService) AddAssessment(a *models.RiskAssessment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assessments[entityKey(a.EntityType, a.EntityID)] = a
}

func (m *MockRiskService) validate(entityType, entityID string) error {
	if !models.ValidEntityType(entityType) {
		return service.ErrInvalidEntityType
	}
	if entityID == "" {
		return service.ErrEntityIDEmpty
	}
	return nil
}

func (m *MockRiskService) GetAssessment(entityType, entityID string) (*models.RiskAssessment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.getErr != nil {
		return nil, m.getErr
	}
	if err := m.validate(entityType, entityID); err != nil {
		return nil, err
	}

	a, ok := m.assessments[entityKey(entityType, entityID)]
	if !ok {
		return nil, service.ErrAssessmentNotFound
	}
	return a, nil
}

func (m *MockRiskService) GetHistory(entityType, entityID string, filter models.AssessmentFilter) ([]*models.AssessmentHistory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.getErr != nil {
		return nil, m.getErr
	}
	if err := m.validate(entityType, entityID); err != nil {
		return nil, err
	}

	filter.Normalize()
	history := m.histories[entityKey(entityType, entityID)]
	if len(history) > filter.Limit {
		history = history[:filter.Limit]
	}
	if history == nil {
		history = []*models.AssessmentHistory{}
	}
	return history, nil
}

func (m *MockRiskService) ExplainAssessment(entityType, entityID string) (*explain.Explanation, error) {
	a, err := m.GetAssessment(entityType, entityID)
	if err != nil {
		return nil, err
	}
	return explain.NewGenerator().Explain(a), nil
}

func (m *MockRiskService) RequestAssessment(entityType, entityID, userAddress string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.requestErr != nil {
		return m.requestErr
	}
	if err := m.validate(entityType, entityID); err != nil {
		return err
	}
	if userAddress == "" {
		return service.ErrUserAddressEmpty
	}

	m.tracked[entityKey(entityType, entityID)] = userAddress
	return nil
}

func (m *MockRiskService) StopMonitoring(entityType, entityID, userAddress string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.validate(entityType, entityID); err != nil {
		return err
	}
	if userAddress == "" {
		return service.ErrUserAddressEmpty
	}
	if m.tracked[entityKey(entityType, entityID)] == userAddress {
		delete(m.tracked, entityKey(entityType, entityID))
	}
	return nil
}

// ============ Mock Threshold Service ============

// MockThresholdService мок для ThresholdServiceInterface
type MockThresholdService struct {
	thresholds map[uuid.UUID]*models.AlertThreshold
	createErr  error
	listErr    error
	mu         sync.RWMutex
}

// NewMockThresholdService создает новый мок сервиса порогов
func NewMockThresholdService() *MockThresholdService {
	return &MockThresholdService{
		thresholds: make(map[uuid.UUID]*models.AlertThreshold),
	}
}

func (m *MockThresholdService) CreateThreshold(t *models.AlertThreshold) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return m.createErr
	}
	if t.UserAddress == "" {
		return service.ErrUserAddressEmpty
	}
	if !models.ValidMetric(t.Metric) {
		return service.ErrInvalidMetric
	}

	t.ID = uuid.New()
	t.IsEnabled = true
	m.thresholds[t.ID] = t
	return nil
}

func (m *MockThresholdService) UpdateThreshold(t *models.AlertThreshold) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.thresholds[t.ID]
	if !ok {
		return repository.ErrThresholdNotFound
	}
	if stored.UserAddress != t.UserAddress {
		return service.ErrNotOwner
	}
	m.thresholds[t.ID] = t
	return nil
}

func (m *MockThresholdService) DeleteThreshold(id uuid.UUID, userAddress string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.thresholds[id]
	if !ok {
		return repository.ErrThresholdNotFound
	}
	if stored.UserAddress != userAddress {
		return service.ErrNotOwner
	}
	delete(m.thresholds, id)
	return nil
}

func (m *MockThresholdService) GetThresholds(userAddress string) ([]*models.AlertThreshold, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.listErr != nil {
		return nil, m.listErr
	}
	if userAddress == "" {
		return nil, service.ErrUserAddressEmpty
	}

	result := []*models.AlertThreshold{}
	for _, t := range m.thresholds {
		if t.UserAddress == userAddress {
			result = append(result, t)
		}
	}
	return result, nil
}

// ============ Mock Config Service ============

// MockConfigService мок для ConfigServiceInterface
type MockConfigService struct {
	configs   map[uuid.UUID]*models.RiskConfig
	createErr error
	mu        sync.RWMutex
}

// NewMockConfigService создает новый мок сервиса профилей
func NewMockConfigService() *MockConfigService {
	return &MockConfigService{
		configs: make(map[uuid.UUID]*models.RiskConfig),
	}
}

func (m *MockConfigService) CreateConfig(c *models.RiskConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return m.createErr
	}
	if err := c.Validate(); err != nil {
		return err
	}

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	m.configs[c.ID] = c
	return nil
}

func (m *MockConfigService) CreateFromTemplate(userAddress, tolerance string) (*models.RiskConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := models.DefaultConfigForTolerance(tolerance)
	if err != nil {
		return nil, err
	}
	c.UserAddress = userAddress
	c.IsActive = false
	m.configs[c.ID] = c
	return c, nil
}

func (m *MockConfigService) UpdateConfig(c *models.RiskConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.configs[c.ID]
	if !ok {
		return repository.ErrConfigNotFound
	}
	if stored.UserAddress != c.UserAddress {
		return service.ErrNotOwner
	}
	if err := c.Validate(); err != nil {
		return err
	}
	m.configs[c.ID] = c
	return nil
}

func (m *MockConfigService) ActivateConfig(id uuid.UUID, userAddress string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.configs[id]
	if !ok || stored.UserAddress != userAddress {
		return repository.ErrConfigNotFound
	}
	for _, c := range m.configs {
		if c.UserAddress == userAddress {
			c.IsActive = false
		}
	}
	stored.IsActive = true
	return nil
}

func (m *MockConfigService) GetActiveConfig(userAddress string) (*models.RiskConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.configs {
		if c.UserAddress == userAddress && c.IsActive {
			return c, nil
		}
	}
	return nil, repository.ErrConfigNotFound
}

func (m *MockConfigService) GetConfigs(userAddress string) ([]*models.RiskConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []*models.RiskConfig{}
	for _, c := range m.configs {
		if c.UserAddress == userAddress {
			result = append(result, c)
		}
	}
	return result, nil
}

func (m *MockConfigService) DeleteConfig(id uuid.UUID, userAddress string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.configs[id]
	if !ok || stored.UserAddress != userAddress {
		return repository.ErrConfigNotFound
	}
	delete(m.configs, id)
	return nil
}

// ============ Mock Alert Service ============

// MockAlertService мок для AlertServiceInterface
type MockAlertService struct {
	alerts   map[uuid.UUID]*models.Alert
	attempts map[uuid.UUID][]*models.DeliveryAttempt
	listErr  error
	mu       sync.RWMutex
}

// NewMockAlertService создает новый мок сервиса алертов
func NewMockAlertService() *MockAlertService {
	return &MockAlertService{
		alerts:   make(map[uuid.UUID]*models.Alert),
		attempts: make(map[uuid.UUID][]*models.DeliveryAttempt),
	}
}

func (m *MockAlertService) AddAlert(a *models.Alert) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts[a.ID] = a
}

func (m *MockAlertService) GetAlerts(filter models.AlertFilter) ([]*models.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.listErr != nil {
		return nil, m.listErr
	}
	if filter.UserAddress == "" {
		return nil, service.ErrUserAddressEmpty
	}

	filter.Normalize()
	result := []*models.Alert{}
	for _, a := range m.alerts {
		if a.UserAddress != filter.UserAddress {
			continue
		}
		if filter.Severity != "" && a.Severity != filter.Severity {
			continue
		}
		if filter.Resolved != nil && a.IsResolved != *filter.Resolved {
			continue
		}
		result = append(result, a)
	}
	if len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (m *MockAlertService) GetAlert(id uuid.UUID, userAddress string) (*models.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.alerts[id]
	if !ok {
		return nil, repository.ErrAlertNotFound
	}
	if a.UserAddress != userAddress {
		return nil, service.ErrNotOwner
	}
	return a, nil
}

func (m *MockAlertService) ResolveAlert(id uuid.UUID, userAddress string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.alerts[id]
	if !ok {
		return repository.ErrAlertNotFound
	}
	if a.UserAddress != userAddress {
		return service.ErrNotOwner
	}

	now := time.Now().UTC()
	a.IsResolved = true
	a.ResolvedAt = &now
	a.ResolvedBy = "user"
	return nil
}

func (m *MockAlertService) GetDeliveryAttempts(alertID uuid.UUID, userAddress string) ([]*models.DeliveryAttempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.alerts[alertID]
	if !ok {
		return nil, repository.ErrAlertNotFound
	}
	if a.UserAddress != userAddress {
		return nil, service.ErrNotOwner
	}

	attempts := m.attempts[alertID]
	if attempts == nil {
		attempts = []*models.DeliveryAttempt{}
	}
	return attempts, nil
}

// ============ Mock Channel Service ============

// MockChannelService мок для ChannelServiceInterface
type MockChannelService struct {
	channels  map[uuid.UUID]*models.NotificationChannel
	createErr error
	mu        sync.RWMutex
}

// NewMockChannelService создает новый мок сервиса каналов
func NewMockChannelService() *MockChannelService {
	return &MockChannelService{
		channels: make(map[uuid.UUID]*models.NotificationChannel),
	}
}

func (m *MockChannelService) CreateChannel(ch *models.NotificationChannel, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return m.createErr
	}
	if ch.UserAddress == "" {
		return service.ErrUserAddressEmpty
	}
	if !models.ValidChannelKind(ch.Kind) {
		return service.ErrInvalidChannelKind
	}
	if secret != "" && len(secret) < 16 {
		return service.ErrSecretTooShort
	}

	ch.ID = uuid.New()
	ch.IsEnabled = true
	if secret != "" {
		ch.SecretEncrypted = "encrypted:" + secret
	}
	m.channels[ch.ID] = ch
	return nil
}

func (m *MockChannelService) UpdateChannel(ch *models.NotificationChannel, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.channels[ch.ID]
	if !ok {
		return repository.ErrChannelNotFound
	}
	if stored.UserAddress != ch.UserAddress {
		return service.ErrNotOwner
	}
	if secret == "" {
		ch.SecretEncrypted = stored.SecretEncrypted
	} else {
		ch.SecretEncrypted = "encrypted:" + secret
	}
	m.channels[ch.ID] = ch
	return nil
}

func (m *MockChannelService) DeleteChannel(id uuid.UUID, userAddress string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.channels[id]
	if !ok {
		return repository.ErrChannelNotFound
	}
	if stored.UserAddress != userAddress {
		return service.ErrNotOwner
	}
	delete(m.channels, id)
	return nil
}

func (m *MockChannelService) GetChannels(userAddress string) ([]*models.NotificationChannel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []*models.NotificationChannel{}
	for _, ch := range m.channels {
		if ch.UserAddress == userAddress {
			result = append(result, ch)
		}
	}
	return result, nil
}

// ============ Mock Health Reporter ============

// MockHealthReporter мок для HealthReporter
type MockHealthReporter struct {
	statuses []monitor.SourceStatus
	healthy  bool
}

func (m *MockHealthReporter) Snapshot() []monitor.SourceStatus {
	return m.statuses
}

func (m *MockHealthReporter) AllHealthy() bool {
	return m.healthy
}
