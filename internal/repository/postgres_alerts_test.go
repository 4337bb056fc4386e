package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"shopguard-backend/internal/domain"
)

func testTime(t *testing.T) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, "2026-08-30T12:00:00Z")
	require.NoError(t, err)
	return ts
}

func setupMockAlertsDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresAlertsRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgresAlertsRepository(db)
}

var alertTestColumns = []string{
	"alert_id", "camera_id", "location_id", "alert_type", "severity",
	"track_id", "class_name", "confidence", "bbox", "snapshot",
	"description", "alert_status", "reviewed_by", "reviewed_at", "created_at",
}

func TestCreateAlert_Success(t *testing.T) {
	db, mock, repo := setupMockAlertsDB(t)
	defer db.Close()

	locationID := uuid.New().String()

	mock.ExpectExec(`INSERT INTO cv_alerts`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	alert := &domain.Alert{
		LocationID: locationID,
		AlertType:  "non_scan",
		Severity:   domain.SeverityHigh,
		ClassName:  "person",
		Confidence: 0.92,
	}
	id, err := repo.CreateAlert(context.Background(), alert)

	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, domain.AlertStatusOpen, alert.AlertStatus)
	assert.False(t, alert.CreatedAt.IsZero())

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAlert_MissingLocation(t *testing.T) {
	db, _, repo := setupMockAlertsDB(t)
	defer db.Close()

	_, err := repo.CreateAlert(context.Background(), &domain.Alert{AlertType: "non_scan"})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "location_id is required")
}

func TestGetAlert_Success(t *testing.T) {
	db, mock, repo := setupMockAlertsDB(t)
	defer db.Close()

	alertID := uuid.New().String()
	cameraID := uuid.New().String()
	locationID := uuid.New().String()
	createdAt := testTime(t)

	rows := sqlmock.NewRows(alertTestColumns).AddRow(
		alertID, cameraID, locationID, "non_scan", "high",
		int64(42), "person", 0.92, []byte(`{"x1":1,"y1":2,"x2":3,"y2":4}`), nil,
		"item passed exit zone without scan", "open", nil, nil, createdAt,
	)

	mock.ExpectQuery(`SELECT`).
		WithArgs(alertID).
		WillReturnRows(rows)

	alert, err := repo.GetAlert(context.Background(), alertID)

	require.NoError(t, err)
	assert.Equal(t, alertID, alert.AlertID)
	require.NotNil(t, alert.CameraID)
	assert.Equal(t, cameraID, *alert.CameraID)
	assert.Equal(t, "non_scan", alert.AlertType)
	assert.Equal(t, "high", alert.Severity)
	require.NotNil(t, alert.TrackID)
	assert.Equal(t, int64(42), *alert.TrackID)
	assert.Equal(t, "open", alert.AlertStatus)
	assert.Nil(t, alert.ReviewedBy)
	assert.Nil(t, alert.ReviewedAt)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAlert_NotFound(t *testing.T) {
	db, mock, repo := setupMockAlertsDB(t)
	defer db.Close()

	alertID := uuid.New().String()

	mock.ExpectQuery(`SELECT`).
		WithArgs(alertID).
		WillReturnError(sql.ErrNoRows)

	alert, err := repo.GetAlert(context.Background(), alertID)

	assert.Nil(t, alert)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListAlerts_WithFilters(t *testing.T) {
	db, mock, repo := setupMockAlertsDB(t)
	defer db.Close()

	locationID := uuid.New().String()
	status := "open"
	createdAt := testTime(t)

	mock.ExpectQuery(`SELECT COUNT`).
		WithArgs(locationID, status).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	rows := sqlmock.NewRows(alertTestColumns).AddRow(
		uuid.New().String(), nil, locationID, "non_scan", "medium",
		nil, "bottle", 0.61, nil, nil,
		"", "open", nil, nil, createdAt,
	)
	mock.ExpectQuery(`SELECT`).
		WithArgs(locationID, status, 20, 0).
		WillReturnRows(rows)

	alerts, total, err := repo.ListAlerts(context.Background(), AlertFilters{
		LocationID: &locationID,
		Status:     &status,
	}, 20, 0)

	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, alerts, 1)
	assert.Nil(t, alerts[0].CameraID)
	assert.Equal(t, "medium", alerts[0].Severity)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAlert_ReturnsPreviousStatus(t *testing.T) {
	db, mock, repo := setupMockAlertsDB(t)
	defer db.Close()

	alertID := uuid.New().String()
	locationID := uuid.New().String()
	reviewer := uuid.New().String()
	createdAt := testTime(t)
	reviewedAt := createdAt.Add(time.Hour)

	cols := append([]string{"old_status"}, alertTestColumns...)
	rows := sqlmock.NewRows(cols).AddRow(
		"open",
		alertID, nil, locationID, "non_scan", "high",
		nil, "person", 0.92, nil, nil,
		"", "resolved", reviewer, reviewedAt, createdAt,
	)

	// 自连接把 alert_status 等列引入两次，SET 右侧必须是 cv_alerts. 前缀的限定引用，
	// 否则 postgres 以 42702（列引用有歧义）拒绝整条语句
	status := domain.AlertStatusResolved
	mock.ExpectQuery(`UPDATE cv_alerts\s+SET alert_status = COALESCE\(\$2, cv_alerts\.alert_status\),\s+reviewed_by  = COALESCE\(\$3::uuid, cv_alerts\.reviewed_by\),\s+reviewed_at  = COALESCE\(\$4, cv_alerts\.reviewed_at\)\s+FROM cv_alerts old`).
		WithArgs(alertID, status, reviewer, sqlmock.AnyArg()).
		WillReturnRows(rows)

	prev, alert, err := repo.UpdateAlert(context.Background(), alertID, AlertUpdate{
		Status:     &status,
		ReviewedBy: &reviewer,
		ReviewedAt: &reviewedAt,
	})

	require.NoError(t, err)
	assert.Equal(t, "open", prev)
	assert.Equal(t, "resolved", alert.AlertStatus)
	require.NotNil(t, alert.ReviewedBy)
	assert.Equal(t, reviewer, *alert.ReviewedBy)
	require.NotNil(t, alert.ReviewedAt)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAlert_NotFound(t *testing.T) {
	db, mock, repo := setupMockAlertsDB(t)
	defer db.Close()

	alertID := uuid.New().String()
	status := domain.AlertStatusReviewed

	mock.ExpectQuery(`UPDATE cv_alerts`).
		WillReturnError(sql.ErrNoRows)

	_, _, err := repo.UpdateAlert(context.Background(), alertID, AlertUpdate{Status: &status})

	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}
