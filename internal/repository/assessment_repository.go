package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"riskmonitor/internal/models"
)

// Ошибки репозитория оценок
var (
	ErrAssessmentNotFound = errors.New("assessment not found")
)

// AssessmentRepository - работа с таблицами risk_assessments,
// risk_assessment_history и monitored_entities
type AssessmentRepository struct {
	db *sql.DB
}

// NewAssessmentRepository создает новый экземпляр репозитория
func NewAssessmentRepository(db *sql.DB) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

// Save атомарно сохраняет новую оценку: деактивирует предыдущую
// активную запись сущности, вставляет новую и пишет запись истории.
// Вся последовательность выполняется в одной транзакции, поэтому
// инвариант "ровно одна активная оценка на сущность" не нарушается
// даже при конкурентных пересчетах.
func (r *AssessmentRepository) Save(a *models.RiskAssessment, changeReason string) error {
	factorsJSON, err := json.Marshal(a.Factors)
	if err != nil {
		return fmt.Errorf("marshal factors: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Читаем предыдущую активную оценку для записи истории
	var prevScore float64
	var prevSeverity string
	err = tx.QueryRow(`
		SELECT overall_score, severity
		FROM risk_assessments
		WHERE entity_type = $1 AND entity_id = $2 AND is_active = true`,
		a.EntityType, a.EntityID,
	).Scan(&prevScore, &prevSeverity)
	hasPrevious := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	// Деактивируем предыдущую запись
	if hasPrevious {
		_, err = tx.Exec(`
			UPDATE risk_assessments
			SET is_active = false
			WHERE entity_type = $1 AND entity_id = $2 AND is_active = true`,
			a.EntityType, a.EntityID,
		)
		if err != nil {
			return err
		}
	}

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	a.IsActive = true

	_, err = tx.Exec(`
		INSERT INTO risk_assessments
			(id, entity_type, entity_id, user_address, overall_score, severity,
			 confidence, factors, degraded, missing_factors, expires_at, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		a.ID, a.EntityType, a.EntityID, a.UserAddress, a.OverallScore, a.Severity,
		a.Confidence, factorsJSON, a.Degraded, pq.Array(a.MissingFactors),
		a.ExpiresAt, a.IsActive, a.CreatedAt,
	)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		INSERT INTO risk_assessment_history
			(id, assessment_id, entity_type, entity_id, previous_score, new_score,
			 previous_severity, new_severity, change_reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		uuid.New(), a.ID, a.EntityType, a.EntityID, prevScore, a.OverallScore,
		prevSeverity, a.Severity, changeReason, a.CreatedAt,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// GetActive возвращает активную оценку сущности
func (r *AssessmentRepository) GetActive(entityType, entityID string) (*models.RiskAssessment, error) {
	query := `
		SELECT id, entity_type, entity_id, user_address, overall_score, severity,
		       confidence, factors, degraded, missing_factors, expires_at, is_active, created_at
		FROM risk_assessments
		WHERE entity_type = $1 AND entity_id = $2 AND is_active = true`

	return r.scanOne(r.db.QueryRow(query, entityType, entityID))
}

// GetByID возвращает оценку по идентификатору
func (r *AssessmentRepository) GetByID(id uuid.UUID) (*models.RiskAssessment, error) {
	query := `
		SELECT id, entity_type, entity_id, user_address, overall_score, severity,
		       confidence, factors, degraded, missing_factors, expires_at, is_active, created_at
		FROM risk_assessments
		WHERE id = $1`

	return r.scanOne(r.db.QueryRow(query, id))
}

// GetHistory возвращает записи истории оценок сущности,
// новые первыми, с фильтрацией по времени и пагинацией
func (r *AssessmentRepository) GetHistory(entityType, entityID string, filter models.AssessmentFilter) ([]*models.AssessmentHistory, error) {
	filter.Normalize()

	query := `
		SELECT id, assessment_id, entity_type, entity_id, previous_score, new_score,
		       previous_severity, new_severity, change_reason, created_at
		FROM risk_assessment_history
		WHERE entity_type = $1 AND entity_id = $2`
	args := []interface{}{entityType, entityID}

	if filter.From != nil {
		args = append(args, *filter.From)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}

	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []*models.AssessmentHistory
	for rows.Next() {
		h := &models.AssessmentHistory{}
		err := rows.Scan(
			&h.ID, &h.AssessmentID, &h.EntityType, &h.EntityID,
			&h.PreviousScore, &h.NewScore, &h.PreviousSeverity, &h.NewSeverity,
			&h.ChangeReason, &h.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		history = append(history, h)
	}

	return history, rows.Err()
}

// TrackEntity регистрирует сущность для периодического пересчета.
// Каждый пользователь регистрируется отдельно: общий пул или токен
// отслеживается всеми, кто на него подписан. Повторная регистрация
// идемпотентна.
func (r *AssessmentRepository) TrackEntity(entityType, entityID, userAddress string) error {
	query := `
		INSERT INTO monitored_entities (entity_type, entity_id, user_address, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (entity_type, entity_id, user_address) DO NOTHING`

	_, err := r.db.Exec(query, entityType, entityID, userAddress, time.Now().UTC())
	return err
}

// UntrackEntity снимает регистрацию одного пользователя.
// Регистрации остальных пользователей сущности не затрагиваются.
func (r *AssessmentRepository) UntrackEntity(entityType, entityID, userAddress string) error {
	_, err := r.db.Exec(
		`DELETE FROM monitored_entities
		 WHERE entity_type = $1 AND entity_id = $2 AND user_address = $3`,
		entityType, entityID, userAddress,
	)
	return err
}

// MonitoredEntity - одна регистрация сущности под мониторингом.
// Сущность с несколькими подписчиками дает несколько записей.
type MonitoredEntity struct {
	EntityType  string
	EntityID    string
	UserAddress string
}

// ListTracked возвращает все регистрации, сгруппированные по сущности
func (r *AssessmentRepository) ListTracked() ([]MonitoredEntity, error) {
	rows, err := r.db.Query(`
		SELECT entity_type, entity_id, user_address
		FROM monitored_entities
		ORDER BY entity_type, entity_id, created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []MonitoredEntity
	for rows.Next() {
		var e MonitoredEntity
		if err := rows.Scan(&e.EntityType, &e.EntityID, &e.UserAddress); err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}

	return entities, rows.Err()
}

// scanOne сканирует одну строку оценки
func (r *AssessmentRepository) scanOne(row *sql.Row) (*models.RiskAssessment, error) {
	a := &models.RiskAssessment{}
	var factorsJSON []byte
	var missing pq.StringArray

	err := row.Scan(
		&a.ID, &a.EntityType, &a.EntityID, &a.UserAddress, &a.OverallScore,
		&a.Severity, &a.Confidence, &factorsJSON, &a.Degraded, &missing,
		&a.ExpiresAt, &a.IsActive, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAssessmentNotFound
		}
		return nil, err
	}

	if len(factorsJSON) > 0 {
		if err := json.Unmarshal(factorsJSON, &a.Factors); err != nil {
			return nil, err
		}
	}
	a.MissingFactors = []string(missing)

	return a, nil
}
