package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/benwaldman33/gold-drop-production-tracker/internal/models"
)

// SettingRepository defines the interface for system setting database operations.
type SettingRepository interface {
	GetAll() ([]models.SystemSetting, error)
	GetByKey(key string) (*models.SystemSetting, error)
	Upsert(executor SQLExecutor, key, value string) error
}

type settingRepository struct {
	db *sql.DB
}

// NewSettingRepository creates a new instance of SettingRepository.
func NewSettingRepository(db *sql.DB) SettingRepository {
	return &settingRepository{db: db}
}

const settingColumns = `id, setting_key, setting_value, description, created_at, updated_at`

func scanSetting(s scanner, setting *models.SystemSetting) error {
	return s.Scan(
		&setting.ID, &setting.SettingKey, &setting.SettingValue, &setting.Description,
		&setting.CreatedAt, &setting.UpdatedAt,
	)
}

func (r *settingRepository) GetAll() ([]models.SystemSetting, error) {
	query := `SELECT ` + settingColumns + ` FROM system_settings ORDER BY setting_key ASC`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("%w: getting settings: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	settings := []models.SystemSetting{}
	for rows.Next() {
		var setting models.SystemSetting
		if err := scanSetting(rows, &setting); err != nil {
			return nil, fmt.Errorf("%w: scanning setting: %v", ErrDatabaseError, err)
		}
		settings = append(settings, setting)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating settings: %v", ErrDatabaseError, err)
	}
	return settings, nil
}

func (r *settingRepository) GetByKey(key string) (*models.SystemSetting, error) {
	query := `SELECT ` + settingColumns + ` FROM system_settings WHERE setting_key = $1`
	var setting models.SystemSetting
	err := scanSetting(r.db.QueryRow(query, key), &setting)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("%w: getting setting %q: %v", ErrDatabaseError, key, err)
	}
	return &setting, nil
}

func (r *settingRepository) Upsert(executor SQLExecutor, key, value string) error {
	query := `INSERT INTO system_settings (setting_key, setting_value, created_at, updated_at)
	          VALUES ($1, $2, $3, $3)
	          ON CONFLICT (setting_key)
	          DO UPDATE SET setting_value = EXCLUDED.setting_value, updated_at = EXCLUDED.updated_at`
	if _, err := executor.Exec(query, key, value, time.Now()); err != nil {
		return fmt.Errorf("%w: upserting setting %q: %v", ErrDatabaseError, key, err)
	}
	return nil
}
