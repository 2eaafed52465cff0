package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/benwaldman33/gold-drop-production-tracker/internal/models"
	"github.com/benwaldman33/gold-drop-production-tracker/internal/repositories"
)

// stageToPurchaseStatus maps every pipeline stage onto a purchase status.
// Total over ValidPipelineStages.
var stageToPurchaseStatus = map[string]string{
	models.PipelineStageDeclared:  models.PurchaseStatusDeclared,
	models.PipelineStageTesting:   models.PurchaseStatusInTesting,
	models.PipelineStageCommitted: models.PurchaseStatusCommitted,
	models.PipelineStageDelivered: models.PurchaseStatusDelivered,
	models.PipelineStageCancelled: models.PurchaseStatusCancelled,
}

// --- Data Transfer Objects (DTOs) ---

// SaveAvailabilityRequest carries a pipeline record's fields for create and
// update.
type SaveAvailabilityRequest struct {
	SupplierID            int64      `json:"supplier_id" binding:"required"`
	AvailabilityDate      time.Time  `json:"availability_date" binding:"required"`
	StrainName            *string    `json:"strain_name"`
	Stage                 string     `json:"stage"`
	DeclaredWeightLbs     float64    `json:"declared_weight_lbs"`
	DeclaredPricePerLb    *float64   `json:"declared_price_per_lb"`
	EstimatedPotencyPct   *float64   `json:"estimated_potency_pct"`
	TestingTiming         string     `json:"testing_timing"`
	TestingStatus         string     `json:"testing_status"`
	TestingDate           *time.Time `json:"testing_date"`
	TestedPotencyPct      *float64   `json:"tested_potency_pct"`
	CommittedOn           *time.Time `json:"committed_on"`
	CommittedDeliveryDate *time.Time `json:"committed_delivery_date"`
	CommittedWeightLbs    *float64   `json:"committed_weight_lbs"`
	CommittedPricePerLb   *float64   `json:"committed_price_per_lb"`
	Notes                 *string    `json:"notes"`
}

// --- PipelineService Interface ---
type PipelineService interface {
	CreateAvailability(req SaveAvailabilityRequest, actorID *int64) (*models.PipelineAvailability, error)
	GetAvailability(availabilityID int64) (*models.PipelineAvailability, error)
	GetAvailabilities(stage string) ([]models.PipelineAvailability, error)
	UpdateAvailability(availabilityID int64, req SaveAvailabilityRequest, actorID *int64) (*models.PipelineAvailability, error)
	DeleteAvailability(availabilityID int64, actorID *int64) error
}

type pipelineService struct {
	pipelineRepo repositories.PipelineRepository
	purchaseRepo repositories.PurchaseRepository
	supplierRepo repositories.SupplierRepository
	auditRepo    repositories.AuditRepository
	db           *sql.DB
}

// NewPipelineService creates a new instance of PipelineService.
func NewPipelineService(pipelineRepo repositories.PipelineRepository, purchaseRepo repositories.PurchaseRepository, supplierRepo repositories.SupplierRepository, auditRepo repositories.AuditRepository, db *sql.DB) PipelineService {
	return &pipelineService{
		pipelineRepo: pipelineRepo,
		purchaseRepo: purchaseRepo,
		supplierRepo: supplierRepo,
		auditRepo:    auditRepo,
		db:           db,
	}
}

func validateAvailabilityRequest(req *SaveAvailabilityRequest) error {
	switch req.Stage {
	case "":
		req.Stage = models.PipelineStageDeclared
	case models.PipelineStageDeclared, models.PipelineStageTesting, models.PipelineStageCommitted,
		models.PipelineStageDelivered, models.PipelineStageCancelled:
	default:
		return validationErrorf("invalid stage %q", req.Stage)
	}
	switch req.TestingTiming {
	case "":
		req.TestingTiming = models.TestingTimingBeforeDelivery
	case models.TestingTimingBeforeDelivery, models.TestingTimingAfterDelivery:
	default:
		return validationErrorf("invalid testing timing %q", req.TestingTiming)
	}
	switch req.TestingStatus {
	case "":
		req.TestingStatus = models.TestingStatusPending
	case models.TestingStatusPending, models.TestingStatusCompleted, models.TestingStatusNotNeeded:
	default:
		return validationErrorf("invalid testing status %q", req.TestingStatus)
	}
	if req.DeclaredWeightLbs < 0 {
		return validationErrorf("declared weight cannot be negative")
	}
	if req.CommittedWeightLbs != nil && *req.CommittedWeightLbs < 0 {
		return validationErrorf("committed weight cannot be negative")
	}
	for _, p := range []struct {
		name  string
		value *float64
	}{
		{"declared price per lb", req.DeclaredPricePerLb},
		{"committed price per lb", req.CommittedPricePerLb},
	} {
		if p.value != nil && *p.value < 0 {
			return validationErrorf("%s cannot be negative", p.name)
		}
	}
	for _, p := range []struct {
		name  string
		value *float64
	}{
		{"estimated potency", req.EstimatedPotencyPct},
		{"tested potency", req.TestedPotencyPct},
	} {
		if p.value != nil && (*p.value < 0 || *p.value > 100) {
			return validationErrorf("%s must be between 0 and 100", p.name)
		}
	}
	return nil
}

func (req *SaveAvailabilityRequest) apply(b *models.PipelineAvailability) {
	b.SupplierID = req.SupplierID
	b.AvailabilityDate = req.AvailabilityDate
	b.StrainName = req.StrainName
	b.Stage = req.Stage
	b.DeclaredWeightLbs = req.DeclaredWeightLbs
	b.DeclaredPricePerLb = req.DeclaredPricePerLb
	b.EstimatedPotencyPct = req.EstimatedPotencyPct
	b.TestingTiming = req.TestingTiming
	b.TestingStatus = req.TestingStatus
	b.TestingDate = req.TestingDate
	b.TestedPotencyPct = req.TestedPotencyPct
	b.CommittedOn = req.CommittedOn
	b.CommittedDeliveryDate = req.CommittedDeliveryDate
	b.CommittedWeightLbs = req.CommittedWeightLbs
	b.CommittedPricePerLb = req.CommittedPricePerLb
	b.Notes = req.Notes
}

func (s *pipelineService) CreateAvailability(req SaveAvailabilityRequest, actorID *int64) (*models.PipelineAvailability, error) {
	return s.save(nil, req, actorID)
}

func (s *pipelineService) UpdateAvailability(availabilityID int64, req SaveAvailabilityRequest, actorID *int64) (*models.PipelineAvailability, error) {
	existing, err := s.pipelineRepo.GetByID(availabilityID)
	if err != nil {
		return nil, err
	}
	return s.save(existing, req, actorID)
}

// save runs the field update and the purchase synchronization as one
// transaction. A failed sync rejects the whole save.
func (s *pipelineService) save(existing *models.PipelineAvailability, req SaveAvailabilityRequest, actorID *int64) (*models.PipelineAvailability, error) {
	if err := validateAvailabilityRequest(&req); err != nil {
		return nil, err
	}
	supplier, err := s.supplierRepo.GetByID(req.SupplierID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, validationErrorf("supplier %d does not exist", req.SupplierID)
	} else if err != nil {
		return nil, err
	}

	b := existing
	action := models.AuditActionUpdate
	if b == nil {
		b = &models.PipelineAvailability{}
		action = models.AuditActionCreate
	}
	req.apply(b)

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting pipeline transaction: %w", err)
	}
	defer tx.Rollback()

	if existing == nil {
		if _, err := s.pipelineRepo.Create(tx, b); err != nil {
			return nil, err
		}
	}
	if err := s.syncPurchaseFromPipeline(tx, b, supplier, actorID); err != nil {
		return nil, err
	}
	if err := s.pipelineRepo.Update(tx, b); err != nil {
		return nil, err
	}

	event := &models.AuditEvent{
		UserID:     actorID,
		Action:     action,
		EntityType: "biomass_availability",
		EntityID:   b.ID,
	}
	if err := s.auditRepo.Record(tx, event); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing pipeline transaction: %w", err)
	}
	return b, nil
}

// syncPurchaseFromPipeline creates a linked purchase once the record reaches
// committed/delivered, and on every save pushes the pipeline's fields onto
// an already linked purchase. Pipeline fields always win for the synchronized
// set. Single hop only; the purchase side is written directly, never via its
// own save pipeline.
func (s *pipelineService) syncPurchaseFromPipeline(tx *sql.Tx, b *models.PipelineAvailability, supplier *models.Supplier, actorID *int64) error {
	var purchase *models.Purchase
	if b.PurchaseID != nil {
		existing, err := s.purchaseRepo.GetByID(*b.PurchaseID)
		if errors.Is(err, repositories.ErrNotFound) {
			return consistencyErrorf("pipeline record %d links purchase %d which no longer exists", b.ID, *b.PurchaseID)
		} else if err != nil {
			return err
		}
		purchase = existing
	}

	purchaseWasNew := false
	if purchase == nil {
		if b.Stage != models.PipelineStageCommitted && b.Stage != models.PipelineStageDelivered {
			return nil
		}
		if b.CommittedOrDeclaredWeight() <= 0 {
			return validationErrorf("cannot create a purchase from pipeline record %d without a usable weight", b.ID)
		}
		notes := fmt.Sprintf("Created from biomass pipeline (%d)", b.ID)
		purchase = &models.Purchase{Notes: &notes}
		purchaseWasNew = true
	}

	purchase.SupplierID = b.SupplierID
	purchase.PurchaseDate = b.CommittedOrAvailabilityDate()
	purchase.DeliveryDate = b.CommittedDeliveryDate
	purchase.Status = stageToPurchaseStatus[b.Stage]
	purchase.StatedWeightLbs = b.CommittedOrDeclaredWeight()
	purchase.StatedPotencyPct = b.EstimatedPotencyPct
	purchase.TestedPotencyPct = b.TestedPotencyPct
	purchase.PricePerLb = b.CommittedOrDeclaredPrice()

	weight := purchase.EffectiveWeightLbs()
	if weight > 0 && purchase.PricePerLb != nil {
		total := weight * *purchase.PricePerLb
		purchase.TotalCost = &total
	}

	if purchaseWasNew {
		if _, err := s.purchaseRepo.Create(tx, purchase); err != nil {
			return err
		}
		b.PurchaseID = &purchase.ID
	}
	if purchase.BatchID == nil || *purchase.BatchID == "" {
		batchID, err := GenerateBatchID(supplier.Name, purchase.EffectiveDate(), weight, s.purchaseRepo.BatchIDExists, purchase.ID)
		if err != nil {
			return err
		}
		purchase.BatchID = &batchID
	}
	if err := s.purchaseRepo.Update(tx, purchase); err != nil {
		return err
	}

	action := models.AuditActionUpdate
	if purchaseWasNew {
		action = models.AuditActionCreate
	}
	details := fmt.Sprintf(`{"source":"biomass_pipeline","biomass_id":%d,"stage":%q,"status":%q}`, b.ID, b.Stage, purchase.Status)
	event := &models.AuditEvent{
		UserID:     actorID,
		Action:     action,
		EntityType: "purchase",
		EntityID:   purchase.ID,
		Details:    &details,
	}
	return s.auditRepo.Record(tx, event)
}

func (s *pipelineService) GetAvailability(availabilityID int64) (*models.PipelineAvailability, error) {
	return s.pipelineRepo.GetByID(availabilityID)
}

func (s *pipelineService) GetAvailabilities(stage string) ([]models.PipelineAvailability, error) {
	var stageFilter *string
	if stage != "" {
		if _, ok := stageToPurchaseStatus[stage]; !ok {
			return nil, validationErrorf("invalid stage %q", stage)
		}
		stageFilter = &stage
	}
	return s.pipelineRepo.GetAll(stageFilter)
}

func (s *pipelineService) DeleteAvailability(availabilityID int64, actorID *int64) error {
	if _, err := s.pipelineRepo.GetByID(availabilityID); err != nil {
		return err
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting pipeline transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.pipelineRepo.Delete(tx, availabilityID); err != nil {
		return err
	}
	event := &models.AuditEvent{
		UserID:     actorID,
		Action:     models.AuditActionDelete,
		EntityType: "biomass_availability",
		EntityID:   availabilityID,
	}
	if err := s.auditRepo.Record(tx, event); err != nil {
		return err
	}
	return tx.Commit()
}
