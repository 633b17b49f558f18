package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"riskmonitor/internal/models"
)

// Ошибки репозитория алертов
var (
	ErrAlertNotFound = errors.New("alert not found")
	ErrAlertExists   = errors.New("open alert already exists for this threshold")
)

// AlertRepository - работа с таблицами alerts и alert_delivery_attempts
type AlertRepository struct {
	db *sql.DB
}

// NewAlertRepository создает новый экземпляр репозитория
func NewAlertRepository(db *sql.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

const alertColumns = `
	id, user_address, entity_type, entity_id, threshold_id, metric, severity,
	title, message, current_value, threshold_value, fire_count, last_fired_at,
	delivery_status, is_resolved, resolved_at, resolved_by, created_at`

// Create сохраняет новый алерт
func (r *AlertRepository) Create(a *models.Alert) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.LastFiredAt.IsZero() {
		a.LastFiredAt = now
	}
	if a.FireCount == 0 {
		a.FireCount = 1
	}
	if a.DeliveryStatus == "" {
		a.DeliveryStatus = models.DeliveryPending
	}

	query := `
		INSERT INTO alerts (` + alertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	_, err := r.db.Exec(query,
		a.ID, a.UserAddress, a.EntityType, a.EntityID, a.ThresholdID, a.Metric,
		a.Severity, a.Title, a.Message, a.CurrentValue, a.ThresholdValue,
		a.FireCount, a.LastFiredAt, a.DeliveryStatus, a.IsResolved,
		a.ResolvedAt, a.ResolvedBy, a.CreatedAt,
	)
	// Частичный уникальный индекс на открытые алерты по ключу
	// (user, entity, threshold)
	if isUniqueViolation(err) {
		return ErrAlertExists
	}
	return err
}

// GetOpen возвращает открытый алерт по ключу дедупликации
// (user, entity, threshold). Открытый алерт на ключ один.
func (r *AlertRepository) GetOpen(userAddress, entityType, entityID string, thresholdID uuid.UUID) (*models.Alert, error) {
	query := `SELECT ` + alertColumns + `
		FROM alerts
		WHERE user_address = $1 AND entity_type = $2 AND entity_id = $3
		  AND threshold_id = $4 AND is_resolved = false`

	return r.scanOne(r.db.QueryRow(query, userAddress, entityType, entityID, thresholdID))
}

// GetByID возвращает алерт по идентификатору
func (r *AlertRepository) GetByID(id uuid.UUID) (*models.Alert, error) {
	query := `SELECT ` + alertColumns + `
		FROM alerts
		WHERE id = $1`

	return r.scanOne(r.db.QueryRow(query, id))
}

// IncrementFireCount увеличивает счетчик срабатываний без сдвига
// last_fired_at: отметка cooldown двигается только реальной отправкой
func (r *AlertRepository) IncrementFireCount(id uuid.UUID, currentValue float64) error {
	query := `
		UPDATE alerts
		SET fire_count = fire_count + 1, current_value = $2
		WHERE id = $1 AND is_resolved = false`

	result, err := r.db.Exec(query, id, currentValue)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrAlertNotFound
	}

	return nil
}

// RecordRefire инкрементирует счетчик срабатываний открытого алерта
// и обновляет текущее значение метрики
func (r *AlertRepository) RecordRefire(id uuid.UUID, currentValue float64, severity string, firedAt time.Time) error {
	query := `
		UPDATE alerts
		SET fire_count = fire_count + 1, current_value = $2, severity = $3, last_fired_at = $4
		WHERE id = $1 AND is_resolved = false`

	result, err := r.db.Exec(query, id, currentValue, severity, firedAt)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrAlertNotFound
	}

	return nil
}

// Resolve помечает алерт разрешенным.
// resolvedBy: "user" для ручного разрешения, "system" для
// авторазрешения при возврате метрики в норму.
func (r *AlertRepository) Resolve(id uuid.UUID, resolvedBy string) error {
	query := `
		UPDATE alerts
		SET is_resolved = true, resolved_at = $2, resolved_by = $3
		WHERE id = $1 AND is_resolved = false`

	result, err := r.db.Exec(query, id, time.Now().UTC(), resolvedBy)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrAlertNotFound
	}

	return nil
}

// SetDeliveryStatus обновляет статус доставки алерта
func (r *AlertRepository) SetDeliveryStatus(id uuid.UUID, status string) error {
	result, err := r.db.Exec(
		`UPDATE alerts SET delivery_status = $2 WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrAlertNotFound
	}

	return nil
}

// List возвращает алерты по фильтру, новые первыми
func (r *AlertRepository) List(filter models.AlertFilter) ([]*models.Alert, error) {
	filter.Normalize()

	query := `SELECT ` + alertColumns + ` FROM alerts WHERE 1=1`
	var args []interface{}

	if filter.UserAddress != "" {
		args = append(args, filter.UserAddress)
		query += fmt.Sprintf(" AND user_address = $%d", len(args))
	}
	if filter.EntityID != "" {
		args = append(args, filter.EntityID)
		query += fmt.Sprintf(" AND entity_id = $%d", len(args))
	}
	if filter.Severity != "" {
		args = append(args, filter.Severity)
		query += fmt.Sprintf(" AND severity = $%d", len(args))
	}
	if filter.Resolved != nil {
		args = append(args, *filter.Resolved)
		query += fmt.Sprintf(" AND is_resolved = $%d", len(args))
	}

	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY last_fired_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []*models.Alert
	for rows.Next() {
		a := &models.Alert{}
		err := rows.Scan(
			&a.ID, &a.UserAddress, &a.EntityType, &a.EntityID, &a.ThresholdID,
			&a.Metric, &a.Severity, &a.Title, &a.Message, &a.CurrentValue,
			&a.ThresholdValue, &a.FireCount, &a.LastFiredAt, &a.DeliveryStatus,
			&a.IsResolved, &a.ResolvedAt, &a.ResolvedBy, &a.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}

	return alerts, rows.Err()
}

// RecordDeliveryAttempt сохраняет попытку доставки
func (r *AlertRepository) RecordDeliveryAttempt(att *models.DeliveryAttempt) error {
	if att.ID == uuid.Nil {
		att.ID = uuid.New()
	}
	if att.CreatedAt.IsZero() {
		att.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO alert_delivery_attempts
			(id, alert_id, channel, attempt, success, response_code, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(query,
		att.ID, att.AlertID, att.Channel, att.Attempt, att.Success,
		att.ResponseCode, att.Error, att.CreatedAt,
	)
	return err
}

// ListDeliveryAttempts возвращает попытки доставки алерта по порядку
func (r *AlertRepository) ListDeliveryAttempts(alertID uuid.UUID) ([]*models.DeliveryAttempt, error) {
	query := `
		SELECT id, alert_id, channel, attempt, success, response_code, error, created_at
		FROM alert_delivery_attempts
		WHERE alert_id = $1
		ORDER BY created_at`

	rows, err := r.db.Query(query, alertID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []*models.DeliveryAttempt
	for rows.Next() {
		att := &models.DeliveryAttempt{}
		err := rows.Scan(
			&att.ID, &att.AlertID, &att.Channel, &att.Attempt, &att.Success,
			&att.ResponseCode, &att.Error, &att.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, att)
	}

	return attempts, rows.Err()
}

func (r *AlertRepository) scanOne(row *sql.Row) (*models.Alert, error) {
	a := &models.Alert{}
	err := row.Scan(
		&a.ID, &a.UserAddress, &a.EntityType, &a.EntityID, &a.ThresholdID,
		&a.Metric, &a.Severity, &a.Title, &a.Message, &a.CurrentValue,
		&a.ThresholdValue, &a.FireCount, &a.LastFiredAt, &a.DeliveryStatus,
		&a.IsResolved, &a.ResolvedAt, &a.ResolvedBy, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		return nil, err
	}

	return a, nil
}
