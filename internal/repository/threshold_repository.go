package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"riskmonitor/internal/models"
)

// Ошибки репозитория порогов
var (
	ErrThresholdNotFound = errors.New("alert threshold not found")
	ErrThresholdExists   = errors.New("threshold already exists for this metric and scope")
)

// ThresholdRepository - работа с таблицей alert_thresholds
type ThresholdRepository struct {
	db *sql.DB
}

// NewThresholdRepository создает новый экземпляр репозитория
func NewThresholdRepository(db *sql.DB) *ThresholdRepository {
	return &ThresholdRepository{db: db}
}

const thresholdColumns = `
	id, user_address, entity_type, entity_id, metric, operator,
	threshold_value, is_enabled, created_at, updated_at`

// Create сохраняет новый порог.
// Уникальность (user, entity scope, metric) обеспечивается индексом;
// нарушение транслируется в ErrThresholdExists.
func (r *ThresholdRepository) Create(t *models.AlertThreshold) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	query := `
		INSERT INTO alert_thresholds (` + thresholdColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.Exec(query,
		t.ID, t.UserAddress, t.EntityType, t.EntityID, t.Metric, t.Operator,
		t.ThresholdValue, t.IsEnabled, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrThresholdExists
		}
		return err
	}

	return nil
}

// CreateBatch сохраняет набор порогов в одной транзакции.
// Используется для засеивания дефолтов при активации профиля:
// уже существующие пороги пропускаются.
func (r *ThresholdRepository) CreateBatch(thresholds []*models.AlertThreshold) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO alert_thresholds (` + thresholdColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT DO NOTHING`

	for _, t := range thresholds {
		if t.ID == uuid.Nil {
			t.ID = uuid.New()
		}
		now := time.Now().UTC()
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		t.UpdatedAt = now

		_, err := tx.Exec(query,
			t.ID, t.UserAddress, t.EntityType, t.EntityID, t.Metric, t.Operator,
			t.ThresholdValue, t.IsEnabled, t.CreatedAt, t.UpdatedAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Update обновляет значение, оператор и статус порога
func (r *ThresholdRepository) Update(t *models.AlertThreshold) error {
	t.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE alert_thresholds
		SET threshold_value = $2, operator = $3, is_enabled = $4, updated_at = $5
		WHERE id = $1`

	result, err := r.db.Exec(query, t.ID, t.ThresholdValue, t.Operator, t.IsEnabled, t.UpdatedAt)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrThresholdNotFound
	}

	return nil
}

// Delete удаляет порог пользователя
func (r *ThresholdRepository) Delete(id uuid.UUID, userAddress string) error {
	result, err := r.db.Exec(
		`DELETE FROM alert_thresholds WHERE id = $1 AND user_address = $2`,
		id, userAddress,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrThresholdNotFound
	}

	return nil
}

// GetByID возвращает порог по идентификатору
func (r *ThresholdRepository) GetByID(id uuid.UUID) (*models.AlertThreshold, error) {
	query := `SELECT ` + thresholdColumns + `
		FROM alert_thresholds
		WHERE id = $1`

	t := &models.AlertThreshold{}
	err := r.db.QueryRow(query, id).Scan(
		&t.ID, &t.UserAddress, &t.EntityType, &t.EntityID, &t.Metric,
		&t.Operator, &t.ThresholdValue, &t.IsEnabled, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrThresholdNotFound
		}
		return nil, err
	}

	return t, nil
}

// ListByUser возвращает все пороги пользователя
func (r *ThresholdRepository) ListByUser(userAddress string) ([]*models.AlertThreshold, error) {
	query := `SELECT ` + thresholdColumns + `
		FROM alert_thresholds
		WHERE user_address = $1
		ORDER BY created_at`

	return r.list(query, userAddress)
}

// ListForEntity возвращает включенные пороги, применимые к сущности:
// пороги с её entity_id плюс глобальные (entity_id IS NULL).
// Специфичные пороги идут первыми и перекрывают глобальные по метрике.
func (r *ThresholdRepository) ListForEntity(userAddress, entityType, entityID string) ([]*models.AlertThreshold, error) {
	query := `SELECT ` + thresholdColumns + `
		FROM alert_thresholds
		WHERE user_address = $1 AND entity_type = $2
		  AND (entity_id = $3 OR entity_id IS NULL)
		  AND is_enabled = true
		ORDER BY entity_id NULLS LAST`

	return r.list(query, userAddress, entityType, entityID)
}

func (r *ThresholdRepository) list(query string, args ...interface{}) ([]*models.AlertThreshold, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var thresholds []*models.AlertThreshold
	for rows.Next() {
		t := &models.AlertThreshold{}
		err := rows.Scan(
			&t.ID, &t.UserAddress, &t.EntityType, &t.EntityID, &t.Metric,
			&t.Operator, &t.ThresholdValue, &t.IsEnabled, &t.CreatedAt, &t.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		thresholds = append(thresholds, t)
	}

	return thresholds, rows.Err()
}
