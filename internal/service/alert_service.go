package service

import (
	"github.com/google/uuid"

	"riskmonitor/internal/models"
)

// AlertService предоставляет пользовательские операции над алертами.
//
// Создание и повторные срабатывания алертов принадлежат менеджеру
// жизненного цикла (internal/alerting); сервис покрывает чтение и
// ручное разрешение с проверкой владения.
type AlertService struct {
	alerts    AlertRepositoryInterface
	lifecycle AlertLifecycle
}

// NewAlertService создает новый экземпляр AlertService
func NewAlertService(alerts AlertRepositoryInterface, lifecycle AlertLifecycle) *AlertService {
	return &AlertService{
		alerts:    alerts,
		lifecycle: lifecycle,
	}
}

// GetAlerts возвращает алерты по фильтру
func (s *AlertService) GetAlerts(filter models.AlertFilter) ([]*models.Alert, error) {
	if filter.UserAddress == "" {
		return nil, ErrUserAddressEmpty
	}
	filter.Normalize()

	alerts, err := s.alerts.List(filter)
	if err != nil {
		return nil, err
	}
	if alerts == nil {
		alerts = []*models.Alert{}
	}
	return alerts, nil
}

// GetAlert возвращает алерт с проверкой владения
func (s *AlertService) GetAlert(id uuid.UUID, userAddress string) (*models.Alert, error) {
	if userAddress == "" {
		return nil, ErrUserAddressEmpty
	}

	alert, err := s.alerts.GetByID(id)
	if err != nil {
		return nil, err
	}
	if alert.UserAddress != userAddress {
		return nil, ErrNotOwner
	}
	return alert, nil
}

// ResolveAlert вручную разрешает алерт пользователя.
// Уведомление alert.resolved уходит по каналам доставки.
func (s *AlertService) ResolveAlert(id uuid.UUID, userAddress string) error {
	if _, err := s.GetAlert(id, userAddress); err != nil {
		return err
	}
	return s.lifecycle.ResolveByUser(id)
}

// GetDeliveryAttempts возвращает журнал доставки алерта
func (s *AlertService) GetDeliveryAttempts(alertID uuid.UUID, userAddress string) ([]*models.DeliveryAttempt, error) {
	if _, err := s.GetAlert(alertID, userAddress); err != nil {
		return nil, err
	}

	attempts, err := s.alerts.ListDeliveryAttempts(alertID)
	if err != nil {
		return nil, err
	}
	if attempts == nil {
		attempts = []*models.DeliveryAttempt{}
	}
	return attempts, nil
}
