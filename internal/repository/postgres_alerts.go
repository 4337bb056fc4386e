package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"shopguard-backend/internal/domain"
)

// PostgresAlertsRepository 报警Repository实现
type PostgresAlertsRepository struct {
	db *sql.DB
}

// NewPostgresAlertsRepository 创建报警Repository
func NewPostgresAlertsRepository(db *sql.DB) *PostgresAlertsRepository {
	return &PostgresAlertsRepository{db: db}
}

// 确保实现了接口
var _ AlertsRepo = (*PostgresAlertsRepository)(nil)

const alertColumns = `
			alert_id::text,
			camera_id::text,
			location_id::text,
			alert_type,
			severity,
			track_id,
			class_name,
			confidence,
			bbox,
			snapshot,
			description,
			alert_status,
			reviewed_by::text,
			reviewed_at,
			created_at`

// CreateAlert 写入一条报警记录（status 固定为 open）
// 业务规则：location_id 必填（camera_id 可空）
func (r *PostgresAlertsRepository) CreateAlert(ctx context.Context, a *domain.Alert) (string, error) {
	if a.LocationID == "" {
		return "", fmt.Errorf("location_id is required")
	}
	if a.AlertID == "" {
		a.AlertID = uuid.NewString()
	}
	if a.AlertStatus == "" {
		a.AlertStatus = domain.AlertStatusOpen
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO cv_alerts (
			alert_id, camera_id, location_id, alert_type, severity,
			track_id, class_name, confidence, bbox, snapshot,
			description, alert_status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	bbox := a.BBox
	if len(bbox) == 0 {
		bbox = nil
	}

	_, err := r.db.ExecContext(ctx, query,
		a.AlertID,
		a.CameraID,
		a.LocationID,
		a.AlertType,
		a.Severity,
		a.TrackID,
		a.ClassName,
		a.Confidence,
		bbox,
		a.Snapshot,
		a.Description,
		a.AlertStatus,
		a.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create alert: %w", err)
	}

	return a.AlertID, nil
}

// GetAlert 按ID获取报警
func (r *PostgresAlertsRepository) GetAlert(ctx context.Context, alertID string) (*domain.Alert, error) {
	if alertID == "" {
		return nil, fmt.Errorf("alert_id is required")
	}

	query := `SELECT ` + alertColumns + ` FROM cv_alerts WHERE alert_id = $1`

	row := r.db.QueryRowContext(ctx, query, alertID)
	alert, err := scanAlert(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("alert %s: %w", alertID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return alert, nil
}

// buildWhereClause 构建 WHERE 子句（用于 ListAlerts 和计数查询）
func (r *PostgresAlertsRepository) buildWhereClause(filters AlertFilters, args *[]interface{}, argN *int) []string {
	var where []string

	if filters.LocationID != nil {
		where = append(where, fmt.Sprintf("location_id = $%d", *argN))
		*args = append(*args, *filters.LocationID)
		*argN++
	}
	if filters.Status != nil {
		where = append(where, fmt.Sprintf("alert_status = $%d", *argN))
		*args = append(*args, *filters.Status)
		*argN++
	}
	if filters.AlertType != nil {
		where = append(where, fmt.Sprintf("alert_type = $%d", *argN))
		*args = append(*args, *filters.AlertType)
		*argN++
	}
	if filters.StartTime != nil {
		where = append(where, fmt.Sprintf("created_at >= $%d", *argN))
		*args = append(*args, *filters.StartTime)
		*argN++
	}
	if filters.EndTime != nil {
		where = append(where, fmt.Sprintf("created_at <= $%d", *argN))
		*args = append(*args, *filters.EndTime)
		*argN++
	}

	return where
}

// ListAlerts 分页查询报警（created_at 倒序），返回 (列表, 总数)
func (r *PostgresAlertsRepository) ListAlerts(ctx context.Context, filters AlertFilters, limit, offset int) ([]*domain.Alert, int, error) {
	var args []interface{}
	argN := 1
	where := r.buildWhereClause(filters, &args, &argN)

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	// 先查总数
	var total int
	countQuery := `SELECT COUNT(*) FROM cv_alerts` + whereSQL
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count alerts: %w", err)
	}

	query := `SELECT ` + alertColumns + ` FROM cv_alerts` + whereSQL +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argN, argN+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*domain.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate alerts: %w", err)
	}

	return alerts, total, nil
}

// UpdateAlert 应用生命周期更新并返回更新前的状态
// 通过自连接 UPDATE ... RETURNING old.alert_status 一条语句拿到旧状态，
// 避免读-改-写竞态导致统计重复累加
func (r *PostgresAlertsRepository) UpdateAlert(ctx context.Context, alertID string, upd AlertUpdate) (string, *domain.Alert, error) {
	if alertID == "" {
		return "", nil, fmt.Errorf("alert_id is required")
	}

	// SET 右侧必须带表前缀：alert_status 等列在目标表和 old 别名里都存在，
	// 不加前缀 postgres 会报 42702 column reference is ambiguous
	query := `
		UPDATE cv_alerts
		SET alert_status = COALESCE($2, cv_alerts.alert_status),
		    reviewed_by  = COALESCE($3::uuid, cv_alerts.reviewed_by),
		    reviewed_at  = COALESCE($4, cv_alerts.reviewed_at)
		FROM cv_alerts old
		WHERE cv_alerts.alert_id = old.alert_id
		  AND cv_alerts.alert_id = $1
		RETURNING old.alert_status, ` + qualifiedAlertColumns("cv_alerts")

	row := r.db.QueryRowContext(ctx, query, alertID, upd.Status, upd.ReviewedBy, upd.ReviewedAt)

	var prevStatus string
	alert, err := scanAlertWithPrefix(row, &prevStatus)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil, fmt.Errorf("alert %s: %w", alertID, ErrNotFound)
		}
		return "", nil, fmt.Errorf("failed to update alert: %w", err)
	}

	return prevStatus, alert, nil
}

// qualifiedAlertColumns 带表前缀的列清单（用于自连接 RETURNING）
func qualifiedAlertColumns(prefix string) string {
	cols := strings.Split(alertColumns, ",")
	for i, c := range cols {
		cols[i] = prefix + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

// rowScanner database/sql 的 Row 和 Rows 共有的 Scan 形态
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAlert(row rowScanner) (*domain.Alert, error) {
	return scanAlertWithPrefix(row)
}

// scanAlertWithPrefix 扫描报警行；extra 中的列在报警列之前（如 RETURNING old.alert_status）
func scanAlertWithPrefix(row rowScanner, extra ...interface{}) (*domain.Alert, error) {
	var a domain.Alert
	var cameraID, reviewedBy, snapshot sql.NullString
	var trackID sql.NullInt64
	var bbox []byte
	var reviewedAt sql.NullTime

	dest := append(extra,
		&a.AlertID,
		&cameraID,
		&a.LocationID,
		&a.AlertType,
		&a.Severity,
		&trackID,
		&a.ClassName,
		&a.Confidence,
		&bbox,
		&snapshot,
		&a.Description,
		&a.AlertStatus,
		&reviewedBy,
		&reviewedAt,
		&a.CreatedAt,
	)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	// 处理可空字段
	if cameraID.Valid {
		a.CameraID = &cameraID.String
	}
	if trackID.Valid {
		a.TrackID = &trackID.Int64
	}
	if len(bbox) > 0 {
		a.BBox = bbox
	}
	if snapshot.Valid {
		a.Snapshot = &snapshot.String
	}
	if reviewedBy.Valid {
		a.ReviewedBy = &reviewedBy.String
	}
	if reviewedAt.Valid {
		a.ReviewedAt = &reviewedAt.Time
	}

	return &a, nil
}
