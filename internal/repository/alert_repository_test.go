package repository

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"riskmonitor/internal/models"
)

// ============================================================
// AlertRepository Tests
// ============================================================

func alertColumnsList() []string {
	return []string{
		"id", "user_address", "entity_type", "entity_id", "threshold_id",
		"metric", "severity", "title", "message", "current_value",
		"threshold_value", "fire_count", "last_fired_at", "delivery_status",
		"is_resolved", "resolved_at", "resolved_by", "created_at",
	}
}

func TestAlertRepositoryCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`INSERT INTO alerts`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	repo := NewAlertRepository(db)
	a := &models.Alert{
		UserAddress:    "0xabc",
		EntityType:     models.EntityPosition,
		EntityID:       "pos-1",
		ThresholdID:    uuid.New(),
		Metric:         models.MetricOverallRisk,
		Severity:       models.SeverityHigh,
		Title:          "Overall Risk Alert",
		CurrentValue:   0.72,
		ThresholdValue: 0.50,
	}

	if err := repo.Create(a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.FireCount != 1 {
		t.Errorf("fire_count: expected 1, got %d", a.FireCount)
	}
	if a.DeliveryStatus != models.DeliveryPending {
		t.Errorf("delivery_status: expected pending, got %s", a.DeliveryStatus)
	}
	if a.LastFiredAt.IsZero() {
		t.Error("last_fired_at must be set")
	}
}

func TestAlertRepositoryGetOpen(t *testing.T) {
	now := time.Now()
	alertID := uuid.New()
	thresholdID := uuid.New()

	t.Run("open alert exists", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		rows := sqlmock.NewRows(alertColumnsList()).
			AddRow(alertID, "0xabc", models.EntityPosition, "pos-1", thresholdID,
				models.MetricOverallRisk, models.SeverityHigh, "Overall Risk Alert",
				"risk 72% exceeds 50%", 0.72, 0.50, 2, now, models.DeliverySent,
				false, nil, "", now)
		mock.ExpectQuery(`SELECT .+ FROM alerts`).
			WithArgs("0xabc", models.EntityPosition, "pos-1", thresholdID).
			WillReturnRows(rows)

		repo := NewAlertRepository(db)
		a, err := repo.GetOpen("0xabc", models.EntityPosition, "pos-1", thresholdID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a.ID != alertID {
			t.Errorf("id mismatch: got %v", a.ID)
		}
		if a.FireCount != 2 {
			t.Errorf("fire_count: expected 2, got %d", a.FireCount)
		}
	})

	t.Run("no open alert", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		mock.ExpectQuery(`SELECT .+ FROM alerts`).
			WillReturnError(sql.ErrNoRows)

		repo := NewAlertRepository(db)
		_, err = repo.GetOpen("0xabc", models.EntityPosition, "pos-1", thresholdID)
		if !errors.Is(err, ErrAlertNotFound) {
			t.Errorf("expected ErrAlertNotFound, got %v", err)
		}
	})
}

func TestAlertRepositoryRecordRefire(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		mock.ExpectExec(`UPDATE alerts`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		repo := NewAlertRepository(db)
		if err := repo.RecordRefire(uuid.New(), 0.80, models.SeverityHigh, time.Now()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("already resolved", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		mock.ExpectExec(`UPDATE alerts`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		repo := NewAlertRepository(db)
		err = repo.RecordRefire(uuid.New(), 0.80, models.SeverityHigh, time.Now())
		if !errors.Is(err, ErrAlertNotFound) {
			t.Errorf("expected ErrAlertNotFound, got %v", err)
		}
	})
}

func TestAlertRepositoryResolve(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	id := uuid.New()
	mock.ExpectExec(`UPDATE alerts`).
		WithArgs(id, sqlmock.AnyArg(), "user").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewAlertRepository(db)
	if err := repo.Resolve(id, "user"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestAlertRepositoryList(t *testing.T) {
	now := time.Now()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	resolved := false
	rows := sqlmock.NewRows(alertColumnsList()).
		AddRow(uuid.New(), "0xabc", models.EntityPosition, "pos-1", uuid.New(),
			models.MetricMEVRisk, models.SeverityCritical, "MEV Risk Alert",
			"mev 85%", 0.85, 0.80, 1, now, models.DeliveryPending,
			false, nil, "", now)
	mock.ExpectQuery(`SELECT .+ FROM alerts`).
		WithArgs("0xabc", models.SeverityCritical, false, 50, 0).
		WillReturnRows(rows)

	repo := NewAlertRepository(db)
	alerts, err := repo.List(models.AlertFilter{
		UserAddress: "0xabc",
		Severity:    models.SeverityCritical,
		Resolved:    &resolved,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	if alerts[0].Metric != models.MetricMEVRisk {
		t.Errorf("metric: expected mev_risk, got %s", alerts[0].Metric)
	}
}

func TestAlertRepositoryRecordDeliveryAttempt(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`INSERT INTO alert_delivery_attempts`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	repo := NewAlertRepository(db)
	att := &models.DeliveryAttempt{
		AlertID:      uuid.New(),
		Channel:      "webhook",
		Attempt:      1,
		Success:      false,
		ResponseCode: 502,
		Error:        "bad gateway",
	}

	if err := repo.RecordDeliveryAttempt(att); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if att.ID == uuid.Nil {
		t.Error("RecordDeliveryAttempt must assign an id")
	}
}
