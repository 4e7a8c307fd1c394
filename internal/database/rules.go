package database

import (
	"context"
	"database/sql"
)

// ActiveRulesForCity returns all active rules for a city. Rules come back in
// id order so evaluation is deterministic for a fixed rule set.
func (db *DB) ActiveRulesForCity(ctx context.Context, city string) ([]*AlertRule, error) {
	query := `
		SELECT id, name, city, condition_type, operator, threshold, is_active, created_at
		FROM alert_rules
		WHERE city = $1 AND is_active = true
		ORDER BY id
	`

	rows, err := db.QueryContext(ctx, query, city)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRules(rows)
}

// ListRules returns all rules, optionally filtered by city
func (db *DB) ListRules(ctx context.Context, city string) ([]*AlertRule, error) {
	query := `
		SELECT id, name, city, condition_type, operator, threshold, is_active, created_at
		FROM alert_rules
		WHERE ($1 = '' OR city = $1)
		ORDER BY id
	`

	rows, err := db.QueryContext(ctx, query, city)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRules(rows)
}

// GetRule retrieves a rule by id, or nil if it does not exist
func (db *DB) GetRule(ctx context.Context, id int64) (*AlertRule, error) {
	query := `
		SELECT id, name, city, condition_type, operator, threshold, is_active, created_at
		FROM alert_rules
		WHERE id = $1
	`

	var r AlertRule
	err := db.QueryRowContext(ctx, query, id).Scan(
		&r.ID, &r.Name, &r.City, &r.ConditionType, &r.Operator,
		&r.Threshold, &r.IsActive, &r.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &r, nil
}

// InsertRule stores a new rule and assigns its id and created_at
func (db *DB) InsertRule(ctx context.Context, r *AlertRule) error {
	query := `
		INSERT INTO alert_rules (name, city, condition_type, operator, threshold, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	return db.QueryRowContext(
		ctx,
		query,
		r.Name,
		r.City,
		r.ConditionType,
		r.Operator,
		r.Threshold,
		r.IsActive,
	).Scan(&r.ID, &r.CreatedAt)
}

// UpdateRule updates an existing rule. Returns false if the rule does not exist.
func (db *DB) UpdateRule(ctx context.Context, r *AlertRule) (bool, error) {
	query := `
		UPDATE alert_rules
		SET name = $1, city = $2, condition_type = $3, operator = $4, threshold = $5, is_active = $6
		WHERE id = $7
	`

	result, err := db.ExecContext(ctx, query, r.Name, r.City, r.ConditionType, r.Operator, r.Threshold, r.IsActive, r.ID)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	return affected > 0, err
}

// SetRuleActive toggles a rule on or off. Returns false if the rule does not exist.
func (db *DB) SetRuleActive(ctx context.Context, id int64, active bool) (bool, error) {
	result, err := db.ExecContext(ctx, `UPDATE alert_rules SET is_active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	return affected > 0, err
}

// DeleteRule removes a rule and its alerts. Returns false if the rule does not exist.
func (db *DB) DeleteRule(ctx context.Context, id int64) (bool, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM alert_rules WHERE id = $1`, id)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	return affected > 0, err
}

func scanRules(rows *sql.Rows) ([]*AlertRule, error) {
	var rules []*AlertRule
	for rows.Next() {
		var r AlertRule
		if err := rows.Scan(
			&r.ID, &r.Name, &r.City, &r.ConditionType, &r.Operator,
			&r.Threshold, &r.IsActive, &r.CreatedAt,
		); err != nil {
			return nil, err
		}
		rules = append(rules, &r)
	}
	return rules, rows.Err()
}
