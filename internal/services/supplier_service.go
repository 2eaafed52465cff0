package services

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/benwaldman33/gold-drop-production-tracker/internal/models"
	"github.com/benwaldman33/gold-drop-production-tracker/internal/repositories"
)

// SaveSupplierRequest DTO
type SaveSupplierRequest struct {
	Name         string  `json:"name" binding:"required"`
	ContactName  *string `json:"contact_name"`
	ContactPhone *string `json:"contact_phone"`
	ContactEmail *string `json:"contact_email"`
	Location     *string `json:"location"`
	Notes        *string `json:"notes"`
	IsActive     *bool   `json:"is_active"`
}

// --- SupplierService Interface ---
type SupplierService interface {
	CreateSupplier(req SaveSupplierRequest, actorID *int64) (*models.Supplier, error)
	GetSupplier(supplierID int64) (*models.Supplier, error)
	GetSuppliers(activeOnly bool) ([]models.Supplier, error)
	UpdateSupplier(supplierID int64, req SaveSupplierRequest, actorID *int64) (*models.Supplier, error)
	DeactivateSupplier(supplierID int64, actorID *int64) error
}

type supplierService struct {
	supplierRepo repositories.SupplierRepository
	auditRepo    repositories.AuditRepository
	db           *sql.DB
}

// NewSupplierService creates a new instance of SupplierService.
func NewSupplierService(supplierRepo repositories.SupplierRepository, auditRepo repositories.AuditRepository, db *sql.DB) SupplierService {
	return &supplierService{supplierRepo: supplierRepo, auditRepo: auditRepo, db: db}
}

func (req *SaveSupplierRequest) apply(supplier *models.Supplier) error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return validationErrorf("supplier name is required")
	}
	supplier.Name = name
	supplier.ContactName = req.ContactName
	supplier.ContactPhone = req.ContactPhone
	supplier.ContactEmail = req.ContactEmail
	supplier.Location = req.Location
	supplier.Notes = req.Notes
	if req.IsActive != nil {
		supplier.IsActive = *req.IsActive
	}
	return nil
}

func (s *supplierService) CreateSupplier(req SaveSupplierRequest, actorID *int64) (*models.Supplier, error) {
	supplier := &models.Supplier{IsActive: true}
	if err := req.apply(supplier); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting supplier transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.supplierRepo.Create(tx, supplier); err != nil {
		return nil, err
	}
	event := &models.AuditEvent{
		UserID:     actorID,
		Action:     models.AuditActionCreate,
		EntityType: "supplier",
		EntityID:   supplier.ID,
	}
	if err := s.auditRepo.Record(tx, event); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return supplier, nil
}

func (s *supplierService) GetSupplier(supplierID int64) (*models.Supplier, error) {
	return s.supplierRepo.GetByID(supplierID)
}

func (s *supplierService) GetSuppliers(activeOnly bool) ([]models.Supplier, error) {
	return s.supplierRepo.GetAll(activeOnly)
}

func (s *supplierService) UpdateSupplier(supplierID int64, req SaveSupplierRequest, actorID *int64) (*models.Supplier, error) {
	supplier, err := s.supplierRepo.GetByID(supplierID)
	if err != nil {
		return nil, err
	}
	if err := req.apply(supplier); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting supplier transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.supplierRepo.Update(tx, supplier); err != nil {
		return nil, err
	}
	event := &models.AuditEvent{
		UserID:     actorID,
		Action:     models.AuditActionUpdate,
		EntityType: "supplier",
		EntityID:   supplier.ID,
	}
	if err := s.auditRepo.Record(tx, event); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return supplier, nil
}

// DeactivateSupplier soft-deactivates; purchases keep their supplier ref.
func (s *supplierService) DeactivateSupplier(supplierID int64, actorID *int64) error {
	supplier, err := s.supplierRepo.GetByID(supplierID)
	if err != nil {
		return err
	}
	supplier.IsActive = false

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting supplier transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.supplierRepo.Update(tx, supplier); err != nil {
		return err
	}
	event := &models.AuditEvent{
		UserID:     actorID,
		Action:     models.AuditActionDeactivate,
		EntityType: "supplier",
		EntityID:   supplier.ID,
	}
	if err := s.auditRepo.Record(tx, event); err != nil {
		return err
	}
	return tx.Commit()
}
