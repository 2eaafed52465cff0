package services

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/benwaldman33/gold-drop-production-tracker/internal/models"
	"github.com/benwaldman33/gold-drop-production-tracker/internal/repositories"
)

// SaveCostEntryRequest DTO. TotalCost may be given directly or derived from
// unit cost times quantity.
type SaveCostEntryRequest struct {
	CostType  string    `json:"cost_type" binding:"required"`
	Name      string    `json:"name" binding:"required"`
	UnitCost  *float64  `json:"unit_cost"`
	Unit      *string   `json:"unit"`
	Quantity  *float64  `json:"quantity"`
	TotalCost *float64  `json:"total_cost"`
	StartDate time.Time `json:"start_date" binding:"required"`
	EndDate   time.Time `json:"end_date" binding:"required"`
	Notes     *string   `json:"notes"`
}

// --- CostService Interface ---
type CostService interface {
	CreateCostEntry(req SaveCostEntryRequest, actorID *int64) (*models.CostEntry, error)
	GetCostEntry(entryID int64) (*models.CostEntry, error)
	GetCostEntries(costType string) ([]models.CostEntry, error)
	UpdateCostEntry(entryID int64, req SaveCostEntryRequest, actorID *int64) (*models.CostEntry, error)
	DeleteCostEntry(entryID int64, actorID *int64) error
}

type costService struct {
	costRepo  repositories.CostEntryRepository
	auditRepo repositories.AuditRepository
	db        *sql.DB
}

// NewCostService creates a new instance of CostService.
func NewCostService(costRepo repositories.CostEntryRepository, auditRepo repositories.AuditRepository, db *sql.DB) CostService {
	return &costService{costRepo: costRepo, auditRepo: auditRepo, db: db}
}

func validCostType(costType string) bool {
	for _, t := range models.ValidCostTypes {
		if t == costType {
			return true
		}
	}
	return false
}

func (req *SaveCostEntryRequest) apply(entry *models.CostEntry) error {
	if !validCostType(req.CostType) {
		return validationErrorf("invalid cost type %q", req.CostType)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return validationErrorf("cost entry name is required")
	}
	if req.EndDate.Before(req.StartDate) {
		return validationErrorf("end date cannot precede start date")
	}

	total := 0.0
	switch {
	case req.TotalCost != nil:
		total = *req.TotalCost
	case req.UnitCost != nil && req.Quantity != nil:
		total = *req.UnitCost * *req.Quantity
	}
	if total < 0 {
		return validationErrorf("total cost cannot be negative")
	}

	entry.CostType = req.CostType
	entry.Name = name
	entry.UnitCost = req.UnitCost
	entry.Unit = req.Unit
	entry.Quantity = req.Quantity
	entry.TotalCost = total
	entry.StartDate = req.StartDate
	entry.EndDate = req.EndDate
	entry.Notes = req.Notes
	return nil
}

func (s *costService) CreateCostEntry(req SaveCostEntryRequest, actorID *int64) (*models.CostEntry, error) {
	entry := &models.CostEntry{CreatedBy: actorID}
	if err := req.apply(entry); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting cost entry transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.costRepo.Create(tx, entry); err != nil {
		return nil, err
	}
	event := &models.AuditEvent{
		UserID:     actorID,
		Action:     models.AuditActionCreate,
		EntityType: "cost_entry",
		EntityID:   entry.ID,
	}
	if err := s.auditRepo.Record(tx, event); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *costService) GetCostEntry(entryID int64) (*models.CostEntry, error) {
	return s.costRepo.GetByID(entryID)
}

func (s *costService) GetCostEntries(costType string) ([]models.CostEntry, error) {
	if costType != "" && !validCostType(costType) {
		return nil, validationErrorf("invalid cost type %q", costType)
	}
	return s.costRepo.GetAll(costType)
}

func (s *costService) UpdateCostEntry(entryID int64, req SaveCostEntryRequest, actorID *int64) (*models.CostEntry, error) {
	entry, err := s.costRepo.GetByID(entryID)
	if err != nil {
		return nil, err
	}
	if err := req.apply(entry); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting cost entry transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.costRepo.Update(tx, entry); err != nil {
		return nil, err
	}
	event := &models.AuditEvent{
		UserID:     actorID,
		Action:     models.AuditActionUpdate,
		EntityType: "cost_entry",
		EntityID:   entry.ID,
	}
	if err := s.auditRepo.Record(tx, event); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *costService) DeleteCostEntry(entryID int64, actorID *int64) error {
	if _, err := s.costRepo.GetByID(entryID); err != nil {
		return err
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting cost entry transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.costRepo.Delete(tx, entryID); err != nil {
		return err
	}
	event := &models.AuditEvent{
		UserID:     actorID,
		Action:     models.AuditActionDelete,
		EntityType: "cost_entry",
		EntityID:   entryID,
	}
	if err := s.auditRepo.Record(tx, event); err != nil {
		return err
	}
	return tx.Commit()
}
