package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"riskmonitor/internal/models"
)

// ============================================================
// AssessmentRepository Tests
// ============================================================

func TestNewAssessmentRepository(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	repo := NewAssessmentRepository(db)
	if repo == nil {
		t.Fatal("NewAssessmentRepository returned nil")
	}
	if repo.db != db {
		t.Error("db not set correctly")
	}
}

func assessmentColumnsList() []string {
	return []string{
		"id", "entity_type", "entity_id", "user_address", "overall_score",
		"severity", "confidence", "factors", "degraded", "missing_factors",
		"expires_at", "is_active", "created_at",
	}
}

func TestAssessmentRepositorySave(t *testing.T) {
	t.Run("first assessment for entity", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		mock.ExpectBegin()
		// Предыдущей активной оценки нет
		mock.ExpectQuery(`SELECT overall_score, severity FROM risk_assessments`).
			WithArgs(models.EntityPosition, "pos-1").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectExec(`INSERT INTO risk_assessments`).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(`INSERT INTO risk_assessment_history`).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		repo := NewAssessmentRepository(db)
		a := &models.RiskAssessment{
			EntityType:   models.EntityPosition,
			EntityID:     "pos-1",
			OverallScore: 0.575,
			Severity:     models.SeverityMedium,
			Confidence:   0.9,
			Factors: map[string]models.FactorScore{
				models.FactorLiquidity: {Score: 0.8, Confidence: 0.9, Weight: 0.25},
			},
		}

		if err := repo.Save(a, "scheduled recalculation"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a.ID == uuid.Nil {
			t.Error("Save must assign an id")
		}
		if !a.IsActive {
			t.Error("saved assessment must be active")
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})

	t.Run("supersedes previous active assessment", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT overall_score, severity FROM risk_assessments`).
			WithArgs(models.EntityPool, "pool-9").
			WillReturnRows(sqlmock.NewRows([]string{"overall_score", "severity"}).
				AddRow(0.40, models.SeverityMedium))
		mock.ExpectExec(`UPDATE risk_assessments`).
			WithArgs(models.EntityPool, "pool-9").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO risk_assessments`).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(`INSERT INTO risk_assessment_history`).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		repo := NewAssessmentRepository(db)
		a := &models.RiskAssessment{
			EntityType:   models.EntityPool,
			EntityID:     "pool-9",
			OverallScore: 0.72,
			Severity:     models.SeverityHigh,
			Confidence:   0.85,
		}

		if err := repo.Save(a, "tvl drop detected"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})

	t.Run("rolls back on insert failure", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT overall_score, severity FROM risk_assessments`).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectExec(`INSERT INTO risk_assessments`).
			WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		repo := NewAssessmentRepository(db)
		a := &models.RiskAssessment{EntityType: models.EntityPosition, EntityID: "pos-2"}

		if err := repo.Save(a, "recalc"); err == nil {
			t.Error("expected error, got nil")
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})
}

func TestAssessmentRepositoryGetActive(t *testing.T) {
	now := time.Now()
	id := uuid.New()
	factorsJSON, _ := json.Marshal(map[string]models.FactorScore{
		models.FactorLiquidity: {Score: 0.8, Confidence: 0.9, Weight: 0.25},
		models.FactorMEV:       {Score: 0.9, Confidence: 0.7, Weight: 0.15},
	})

	t.Run("success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		rows := sqlmock.NewRows(assessmentColumnsList()).
			AddRow(id, models.EntityPosition, "pos-1", "0xabc", 0.575,
				models.SeverityMedium, 0.9, factorsJSON, false, "{}",
				nil, true, now)
		mock.ExpectQuery(`SELECT .+ FROM risk_assessments`).
			WithArgs(models.EntityPosition, "pos-1").
			WillReturnRows(rows)

		repo := NewAssessmentRepository(db)
		a, err := repo.GetActive(models.EntityPosition, "pos-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if a.ID != id {
			t.Errorf("id mismatch: got %v", a.ID)
		}
		if a.OverallScore != 0.575 {
			t.Errorf("overall score: expected 0.575, got %v", a.OverallScore)
		}
		if len(a.Factors) != 2 {
			t.Errorf("expected 2 factors, got %d", len(a.Factors))
		}
		if a.Factors[models.FactorMEV].Weight != 0.15 {
			t.Errorf("mev weight: expected 0.15, got %v", a.Factors[models.FactorMEV].Weight)
		}
	})

	t.Run("not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		mock.ExpectQuery(`SELECT .+ FROM risk_assessments`).
			WillReturnError(sql.ErrNoRows)

		repo := NewAssessmentRepository(db)
		_, err = repo.GetActive(models.EntityPosition, "missing")
		if !errors.Is(err, ErrAssessmentNotFound) {
			t.Errorf("expected ErrAssessmentNotFound, got %v", err)
		}
	})
}

func TestAssessmentRepositoryGetHistory(t *testing.T) {
	now := time.Now()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{
		"id", "assessment_id", "entity_type", "entity_id", "previous_score",
		"new_score", "previous_severity", "new_severity", "change_reason", "created_at",
	}).
		AddRow(uuid.New(), uuid.New(), models.EntityPosition, "pos-1", 0.40, 0.72,
			models.SeverityMedium, models.SeverityHigh, "tvl drop", now).
		AddRow(uuid.New(), uuid.New(), models.EntityPosition, "pos-1", 0.0, 0.40,
			"", models.SeverityMedium, "initial assessment", now.Add(-time.Hour))
	mock.ExpectQuery(`SELECT .+ FROM risk_assessment_history`).
		WithArgs(models.EntityPosition, "pos-1", 100, 0).
		WillReturnRows(rows)

	repo := NewAssessmentRepository(db)
	history, err := repo.GetHistory(models.EntityPosition, "pos-1", models.AssessmentFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(history) != 2 {
		t.Fatalf("expected 2 records, got %d", len(history))
	}
	if history[0].NewSeverity != models.SeverityHigh {
		t.Errorf("first record severity: expected high, got %s", history[0].NewSeverity)
	}
}

func TestAssessmentRepositoryListTracked(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"entity_type", "entity_id", "user_address"}).
		AddRow(models.EntityPool, "pool-1", "0xabc").
		AddRow(models.EntityPosition, "pos-1", "0xdef")
	mock.ExpectQuery(`SELECT entity_type, entity_id, user_address\s+FROM monitored_entities`).
		WillReturnRows(rows)

	repo := NewAssessmentRepository(db)
	entities, err := repo.ListTracked()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(entities) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(entities))
	}
	if entities[0].EntityType != models.EntityPool {
		t.Errorf("first entity type: expected pool, got %s", entities[0].EntityType)
	}
}

func TestAssessmentRepositoryTrackEntity(t *testing.T) {
	t.Run("registration is per user", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		// Второй подписчик той же сущности не вытесняет первого
		mock.ExpectExec(`ON CONFLICT \(entity_type, entity_id, user_address\) DO NOTHING`).
			WithArgs(models.EntityPool, "pool-1", "0xabc", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`ON CONFLICT \(entity_type, entity_id, user_address\) DO NOTHING`).
			WithArgs(models.EntityPool, "pool-1", "0xdef", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		repo := NewAssessmentRepository(db)
		if err := repo.TrackEntity(models.EntityPool, "pool-1", "0xabc"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := repo.TrackEntity(models.EntityPool, "pool-1", "0xdef"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})

	t.Run("untrack removes only the callers registration", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		mock.ExpectExec(`DELETE FROM monitored_entities`).
			WithArgs(models.EntityPool, "pool-1", "0xabc").
			WillReturnResult(sqlmock.NewResult(0, 1))

		repo := NewAssessmentRepository(db)
		if err := repo.UntrackEntity(models.EntityPool, "pool-1", "0xabc"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})
}
