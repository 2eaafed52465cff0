package services

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/benwaldman33/gold-drop-production-tracker/internal/models"
	"github.com/benwaldman33/gold-drop-production-tracker/internal/repositories"
)

// Seeded setting defaults. Typed getters fall back to these so a missing row
// never breaks a calculation.
var settingDefaults = map[string]string{
	models.SettingPotencyRate:            "1.50",
	models.SettingNumReactors:            "2",
	models.SettingReactorCapacity:        "100",
	models.SettingRunsPerDay:             "5",
	models.SettingOperatingDays:          "7",
	models.SettingDailyThroughputTarget:  "500",
	models.SettingWeeklyThroughputTarget: "3500",
	models.SettingExcludeUnpricedBatches: "0",
	models.SettingCostAllocationMethod:   models.AllocationPerGramUniform,
	models.SettingCostAllocationThcaPct:  "50",
}

// UpdateSettingsRequest DTO. Only keys present in the map are touched.
type UpdateSettingsRequest struct {
	Values map[string]string `json:"values" binding:"required"`
}

// UpdateKpiTargetRequest DTO
type UpdateKpiTargetRequest struct {
	TargetValue     float64 `json:"target_value"`
	GreenThreshold  float64 `json:"green_threshold"`
	YellowThreshold float64 `json:"yellow_threshold"`
}

// --- SettingsService Interface ---
type SettingsService interface {
	GetAllSettings() ([]models.SystemSetting, error)
	GetString(key string) (string, error)
	GetFloat(key string, fallback float64) (float64, error)
	GetBool(key string) (bool, error)
	UpdateSettings(req UpdateSettingsRequest, actorID *int64) error
	LoadCostingConfig() (CostingConfig, error)
	GetKpiTargets() ([]models.KpiTarget, error)
	UpdateKpiTarget(kpiName string, req UpdateKpiTargetRequest, actorID *int64) (*models.KpiTarget, error)
}

type settingsService struct {
	settingRepo repositories.SettingRepository
	kpiRepo     repositories.KpiTargetRepository
	auditRepo   repositories.AuditRepository
	db          *sql.DB
}

// NewSettingsService creates a new instance of SettingsService.
func NewSettingsService(settingRepo repositories.SettingRepository, kpiRepo repositories.KpiTargetRepository, auditRepo repositories.AuditRepository, db *sql.DB) SettingsService {
	return &settingsService{settingRepo: settingRepo, kpiRepo: kpiRepo, auditRepo: auditRepo, db: db}
}

func (s *settingsService) GetAllSettings() ([]models.SystemSetting, error) {
	return s.settingRepo.GetAll()
}

func (s *settingsService) GetString(key string) (string, error) {
	setting, err := s.settingRepo.GetByKey(key)
	if err == repositories.ErrNotFound {
		return settingDefaults[key], nil
	} else if err != nil {
		return "", err
	}
	if setting.SettingValue == nil || strings.TrimSpace(*setting.SettingValue) == "" {
		return settingDefaults[key], nil
	}
	return strings.TrimSpace(*setting.SettingValue), nil
}

func (s *settingsService) GetFloat(key string, fallback float64) (float64, error) {
	raw, err := s.GetString(key)
	if err != nil {
		return 0, err
	}
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback, nil
	}
	return value, nil
}

func (s *settingsService) GetBool(key string) (bool, error) {
	raw, err := s.GetString(key)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "on":
		return true, nil
	default:
		return false, nil
	}
}

// validateSettingValue guards the keys the calculation engines depend on.
func validateSettingValue(key, value string) (string, error) {
	switch key {
	case models.SettingCostAllocationMethod:
		switch value {
		case models.AllocationPerGramUniform, models.AllocationSplit5050, models.AllocationCustomSplit:
			return value, nil
		default:
			return "", validationErrorf("invalid cost allocation method %q", value)
		}
	case models.SettingCostAllocationThcaPct:
		pct, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return "", validationErrorf("cost allocation percent must be numeric, got %q", value)
		}
		if pct < 0 {
			pct = 0
		} else if pct > 100 {
			pct = 100
		}
		return strconv.FormatFloat(pct, 'f', -1, 64), nil
	case models.SettingExcludeUnpricedBatches:
		switch strings.ToLower(value) {
		case "1", "true", "yes", "on":
			return "1", nil
		default:
			return "0", nil
		}
	default:
		return value, nil
	}
}

func (s *settingsService) UpdateSettings(req UpdateSettingsRequest, actorID *int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting settings transaction: %w", err)
	}
	defer tx.Rollback()

	for key, value := range req.Values {
		normalized, err := validateSettingValue(key, strings.TrimSpace(value))
		if err != nil {
			return err
		}
		if err := s.settingRepo.Upsert(tx, key, normalized); err != nil {
			return err
		}
	}

	event := &models.AuditEvent{
		UserID:     actorID,
		Action:     models.AuditActionUpdate,
		EntityType: "settings",
	}
	if err := s.auditRepo.Record(tx, event); err != nil {
		return err
	}
	return tx.Commit()
}

// LoadCostingConfig snapshots the settings the cost engine reads, so one
// calculation never straddles a concurrent settings edit.
func (s *settingsService) LoadCostingConfig() (CostingConfig, error) {
	method, err := s.GetString(models.SettingCostAllocationMethod)
	if err != nil {
		return CostingConfig{}, err
	}
	switch method {
	case models.AllocationPerGramUniform, models.AllocationSplit5050, models.AllocationCustomSplit:
	default:
		method = models.AllocationPerGramUniform
	}
	thcaPct, err := s.GetFloat(models.SettingCostAllocationThcaPct, 50)
	if err != nil {
		return CostingConfig{}, err
	}
	potencyRate, err := s.GetFloat(models.SettingPotencyRate, 1.50)
	if err != nil {
		return CostingConfig{}, err
	}
	excludeUnpriced, err := s.GetBool(models.SettingExcludeUnpricedBatches)
	if err != nil {
		return CostingConfig{}, err
	}
	return CostingConfig{
		AllocationMethod: method,
		ThcaPct:          thcaPct,
		PotencyRate:      potencyRate,
		ExcludeUnpriced:  excludeUnpriced,
	}, nil
}

func (s *settingsService) GetKpiTargets() ([]models.KpiTarget, error) {
	return s.kpiRepo.GetAll()
}

func (s *settingsService) UpdateKpiTarget(kpiName string, req UpdateKpiTargetRequest, actorID *int64) (*models.KpiTarget, error) {
	target, err := s.kpiRepo.GetByName(kpiName)
	if err != nil {
		return nil, err
	}
	target.TargetValue = req.TargetValue
	target.GreenThreshold = req.GreenThreshold
	target.YellowThreshold = req.YellowThreshold
	target.UpdatedBy = actorID
	target.EffectiveDate = nil // repository stamps the update time

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting KPI transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.kpiRepo.Update(tx, target); err != nil {
		return nil, err
	}
	event := &models.AuditEvent{
		UserID:     actorID,
		Action:     models.AuditActionUpdate,
		EntityType: "kpi_target",
		EntityID:   target.ID,
	}
	if err := s.auditRepo.Record(tx, event); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return target, nil
}
