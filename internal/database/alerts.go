package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrAlertSuppressed is returned by InsertAlert when another alert for the
// same rule already exists inside the dedup window.
var ErrAlertSuppressed = errors.New("alert suppressed by dedup window")

// MostRecentAlert returns the newest alert for a rule created at or after
// since, or nil if there is none
func (db *DB) MostRecentAlert(ctx context.Context, ruleID int64, since time.Time) (*Alert, error) {
	query := `
		SELECT id, rule_id, city, message, severity, value, is_read, created_at
		FROM alerts
		WHERE rule_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	var a Alert
	err := db.QueryRowContext(ctx, query, ruleID, since).Scan(
		&a.ID, &a.RuleID, &a.City, &a.Message, &a.Severity,
		&a.Value, &a.IsRead, &a.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &a, nil
}

// InsertAlert stores a new alert, but only if no alert for the same rule was
// created at or after dedupSince. The check and the insert run as one
// statement so the suppression invariant holds even with concurrent writers
// in separate processes. Returns ErrAlertSuppressed when the insert is
// skipped.
func (db *DB) InsertAlert(ctx context.Context, a *Alert, dedupSince time.Time) error {
	query := `
		INSERT INTO alerts (rule_id, city, message, severity, value, is_read, created_at)
		SELECT $1, $2, $3, $4, $5, false, $6
		WHERE NOT EXISTS (
			SELECT 1 FROM alerts WHERE rule_id = $1 AND created_at >= $7
		)
		RETURNING id, created_at
	`

	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	err := db.QueryRowContext(
		ctx,
		query,
		a.RuleID,
		a.City,
		a.Message,
		a.Severity,
		a.Value,
		a.CreatedAt,
		dedupSince,
	).Scan(&a.ID, &a.CreatedAt)

	if err == sql.ErrNoRows {
		return ErrAlertSuppressed
	}
	return err
}

// ListAlerts returns alerts newest first, optionally filtered by city and
// read state
func (db *DB) ListAlerts(ctx context.Context, city string, unreadOnly bool, limit int) ([]*Alert, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, rule_id, city, message, severity, value, is_read, created_at
		FROM alerts
		WHERE ($1 = '' OR city = $1)
		  AND (NOT $2 OR is_read = false)
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := db.QueryContext(ctx, query, city, unreadOnly, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []*Alert
	for rows.Next() {
		var a Alert
		if err := rows.Scan(
			&a.ID, &a.RuleID, &a.City, &a.Message, &a.Severity,
			&a.Value, &a.IsRead, &a.CreatedAt,
		); err != nil {
			return nil, err
		}
		alerts = append(alerts, &a)
	}

	return alerts, rows.Err()
}

// MarkAlertRead flips is_read on an alert. Returns false if the alert does
// not exist.
func (db *DB) MarkAlertRead(ctx context.Context, id int64) (bool, error) {
	result, err := db.ExecContext(ctx, `UPDATE alerts SET is_read = true WHERE id = $1`, id)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	return affected > 0, err
}
