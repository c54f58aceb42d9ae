// Package storage handles database connections, schema migrations, and
// widget-configuration persistence using SQLite.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dhiksjf/serverstat-hub/internal/models"
	_ "modernc.org/sqlite" // Driver sqlite
)

// Repository manages the SQLite database connection.
type Repository struct {
	db *sql.DB
}

// New initializes a new SQLite connection, sets connection pool parameters,
// and runs migrations.
func New(dbPath string) (*Repository, error) {
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(1 * time.Hour)

	if err := db.Ping(); err != nil {
		return nil, err
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

const configColumns = `
	config_id, server_host, server_port, enabled_fields,
	theme, accent_color, background_color, text_color, font_family,
	refresh_interval, dark_mode, border_radius, border_style,
	shadow_intensity, animation_speed, layout, created_at`

// SaveConfig inserts a new widget configuration. The ConfigID must already
// be assigned; duplicates are rejected by the primary key.
func (r *Repository) SaveConfig(cfg models.WidgetConfig) error {
	fields, err := json.Marshal(cfg.EnabledFields)
	if err != nil {
		return fmt.Errorf("failed to encode enabled fields: %w", err)
	}

	query := `INSERT INTO widget_configs (` + configColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.Exec(query,
		cfg.ConfigID, cfg.ServerHost, cfg.ServerPort, string(fields),
		cfg.Theme, cfg.AccentColor, cfg.BackgroundColor, cfg.TextColor, cfg.FontFamily,
		cfg.RefreshInterval, cfg.DarkMode, cfg.BorderRadius, cfg.BorderStyle,
		cfg.ShadowIntensity, cfg.AnimationSpeed, cfg.Layout, cfg.CreatedAt,
	)

	return err
}

// GetConfig retrieves a widget configuration by its ID.
// It returns (nil, nil) when the ID is unknown.
func (r *Repository) GetConfig(configID string) (*models.WidgetConfig, error) {
	row := r.db.QueryRow(
		`SELECT `+configColumns+` FROM widget_configs WHERE config_id = ?`, configID)

	cfg, err := scanConfig(row)
	if err == sql.ErrNoRows {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// ListConfigs retrieves up to limit configurations, newest first.
// A non-positive limit returns everything.
func (r *Repository) ListConfigs(limit int) ([]models.WidgetConfig, error) {
	query := `SELECT ` + configColumns + ` FROM widget_configs ORDER BY created_at DESC`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var configs []models.WidgetConfig
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			continue
		}
		configs = append(configs, *cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return configs, nil
}

// DeleteConfig removes a configuration and reports whether it existed.
func (r *Repository) DeleteConfig(configID string) (bool, error) {
	res, err := r.db.Exec(`DELETE FROM widget_configs WHERE config_id = ?`, configID)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

// CountConfigs returns the number of stored configurations.
func (r *Repository) CountConfigs() (int64, error) {
	var n int64
	err := r.db.QueryRow(`SELECT COUNT(*) FROM widget_configs`).Scan(&n)
	return n, err
}

// rowScanner covers both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanConfig(row rowScanner) (*models.WidgetConfig, error) {
	var cfg models.WidgetConfig
	var fields string

	err := row.Scan(
		&cfg.ConfigID, &cfg.ServerHost, &cfg.ServerPort, &fields,
		&cfg.Theme, &cfg.AccentColor, &cfg.BackgroundColor, &cfg.TextColor, &cfg.FontFamily,
		&cfg.RefreshInterval, &cfg.DarkMode, &cfg.BorderRadius, &cfg.BorderStyle,
		&cfg.ShadowIntensity, &cfg.AnimationSpeed, &cfg.Layout, &cfg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(fields), &cfg.EnabledFields); err != nil {
		return nil, fmt.Errorf("failed to decode enabled fields for %s: %w", cfg.ConfigID, err)
	}

	return &cfg, nil
}
