package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benwaldman33/gold-drop-production-tracker/internal/models"
	"github.com/benwaldman33/gold-drop-production-tracker/internal/repositories"
)

// purchaseStatusToStage maps every purchase status back onto a pipeline
// stage for the purchase-driven sync direction. Total over
// ValidPurchaseStatuses.
var purchaseStatusToStage = map[string]string{
	models.PurchaseStatusDeclared:   models.PipelineStageDeclared,
	models.PurchaseStatusInTesting:  models.PipelineStageTesting,
	models.PurchaseStatusAvailable:  models.PipelineStageTesting,
	models.PurchaseStatusCommitted:  models.PipelineStageCommitted,
	models.PurchaseStatusOrdered:    models.PipelineStageCommitted,
	models.PurchaseStatusInTransit:  models.PipelineStageCommitted,
	models.PurchaseStatusDelivered:  models.PipelineStageDelivered,
	models.PurchaseStatusProcessing: models.PipelineStageDelivered,
	models.PurchaseStatusComplete:   models.PipelineStageDelivered,
	models.PurchaseStatusCancelled:  models.PipelineStageCancelled,
}

// --- Data Transfer Objects (DTOs) ---

// LotRequest is one strain line on a purchase.
type LotRequest struct {
	StrainName string  `json:"strain_name" binding:"required"`
	WeightLbs  float64 `json:"weight_lbs" binding:"required"`
}

// SavePurchaseRequest carries a purchase's fields for create and update.
// BatchID, when supplied, bypasses generation but is still checked for
// uniqueness. Lots are only honored on create; use AddLot afterwards.
type SavePurchaseRequest struct {
	SupplierID       int64        `json:"supplier_id" binding:"required"`
	PurchaseDate     time.Time    `json:"purchase_date" binding:"required"`
	DeliveryDate     *time.Time   `json:"delivery_date"`
	Status           string       `json:"status"`
	StatedWeightLbs  float64      `json:"stated_weight_lbs"`
	ActualWeightLbs  *float64     `json:"actual_weight_lbs"`
	StatedPotencyPct *float64     `json:"stated_potency_pct"`
	TestedPotencyPct *float64     `json:"tested_potency_pct"`
	PricePerLb       *float64     `json:"price_per_lb"`
	BatchID          *string      `json:"batch_id"`
	HarvestDate      *time.Time   `json:"harvest_date"`
	CleanOrDirty     *string      `json:"clean_or_dirty"`
	IndoorOutdoor    *string      `json:"indoor_outdoor"`
	Notes            *string      `json:"notes"`
	Lots             []LotRequest `json:"lots"`
}

// --- PurchaseService Interface ---
type PurchaseService interface {
	CreatePurchase(req SavePurchaseRequest, actorID *int64) (*models.Purchase, error)
	GetPurchase(purchaseID int64) (*models.Purchase, error)
	GetPurchases(status string, page, pageSize int) ([]models.Purchase, int, error)
	UpdatePurchase(purchaseID int64, req SavePurchaseRequest, actorID *int64) (*models.Purchase, error)
	AddLot(purchaseID int64, req LotRequest, actorID *int64) (*models.Lot, error)
	UpdateLot(lotID int64, req LotRequest, actorID *int64) (*models.Lot, error)
	GetAvailableLots() ([]models.Lot, error)
	GetOnHandLots() ([]models.Lot, error)
}

type purchaseService struct {
	purchaseRepo repositories.PurchaseRepository
	lotRepo      repositories.LotRepository
	supplierRepo repositories.SupplierRepository
	pipelineRepo repositories.PipelineRepository
	auditRepo    repositories.AuditRepository
	settingsSvc  SettingsService
	db           *sql.DB
}

// NewPurchaseService creates a new instance of PurchaseService.
func NewPurchaseService(purchaseRepo repositories.PurchaseRepository, lotRepo repositories.LotRepository, supplierRepo repositories.SupplierRepository, pipelineRepo repositories.PipelineRepository, auditRepo repositories.AuditRepository, settingsSvc SettingsService, db *sql.DB) PurchaseService {
	return &purchaseService{
		purchaseRepo: purchaseRepo,
		lotRepo:      lotRepo,
		supplierRepo: supplierRepo,
		pipelineRepo: pipelineRepo,
		auditRepo:    auditRepo,
		settingsSvc:  settingsSvc,
		db:           db,
	}
}

func validPurchaseStatus(status string) bool {
	_, ok := purchaseStatusToStage[status]
	return ok
}

func validatePurchaseRequest(req *SavePurchaseRequest) error {
	if req.Status == "" {
		req.Status = models.PurchaseStatusOrdered
	}
	if !validPurchaseStatus(req.Status) {
		return validationErrorf("invalid purchase status %q", req.Status)
	}
	if req.StatedWeightLbs < 0 {
		return validationErrorf("stated weight cannot be negative")
	}
	if req.ActualWeightLbs != nil && *req.ActualWeightLbs < 0 {
		return validationErrorf("actual weight cannot be negative")
	}
	if req.PricePerLb != nil && *req.PricePerLb < 0 {
		return validationErrorf("price per lb cannot be negative")
	}
	for _, p := range []struct {
		name  string
		value *float64
	}{
		{"stated potency", req.StatedPotencyPct},
		{"tested potency", req.TestedPotencyPct},
	} {
		if p.value != nil && (*p.value < 0 || *p.value > 100) {
			return validationErrorf("%s must be between 0 and 100", p.name)
		}
	}
	for _, lot := range req.Lots {
		if strings.TrimSpace(lot.StrainName) == "" {
			return validationErrorf("lot strain name is required")
		}
		if lot.WeightLbs <= 0 {
			return validationErrorf("lot weight for %s must be positive", lot.StrainName)
		}
	}
	return nil
}

func (req *SavePurchaseRequest) apply(p *models.Purchase) {
	p.SupplierID = req.SupplierID
	p.PurchaseDate = req.PurchaseDate
	p.DeliveryDate = req.DeliveryDate
	p.Status = req.Status
	p.StatedWeightLbs = req.StatedWeightLbs
	p.ActualWeightLbs = req.ActualWeightLbs
	p.StatedPotencyPct = req.StatedPotencyPct
	p.TestedPotencyPct = req.TestedPotencyPct
	p.PricePerLb = req.PricePerLb
	p.HarvestDate = req.HarvestDate
	p.CleanOrDirty = req.CleanOrDirty
	p.IndoorOutdoor = req.IndoorOutdoor
	p.Notes = req.Notes
}

// derivePurchase fills price (from potency when absent), total cost and
// true-up, all under the given potency rate.
func derivePurchase(p *models.Purchase, potencyRate float64) {
	if p.StatedPotencyPct != nil && *p.StatedPotencyPct > 0 && p.PricePerLb == nil {
		price := potencyRate * *p.StatedPotencyPct
		p.PricePerLb = &price
	}

	weight := p.EffectiveWeightLbs()
	if weight > 0 && p.PricePerLb != nil {
		total := weight * *p.PricePerLb
		p.TotalCost = &total
	}

	if p.TestedPotencyPct != nil && p.StatedPotencyPct != nil && p.ActualWeightLbs != nil && *p.ActualWeightLbs > 0 {
		trueUp := (*p.TestedPotencyPct - *p.StatedPotencyPct) * potencyRate * *p.ActualWeightLbs
		p.TrueUpAmount = &trueUp
		if p.TrueUpStatus == nil {
			pending := "pending"
			p.TrueUpStatus = &pending
		}
	}
}

func (s *purchaseService) CreatePurchase(req SavePurchaseRequest, actorID *int64) (*models.Purchase, error) {
	return s.save(nil, req, actorID)
}

func (s *purchaseService) UpdatePurchase(purchaseID int64, req SavePurchaseRequest, actorID *int64) (*models.Purchase, error) {
	existing, err := s.purchaseRepo.GetByID(purchaseID)
	if err != nil {
		return nil, err
	}
	return s.save(existing, req, actorID)
}

func (s *purchaseService) save(existing *models.Purchase, req SavePurchaseRequest, actorID *int64) (*models.Purchase, error) {
	if err := validatePurchaseRequest(&req); err != nil {
		return nil, err
	}
	supplier, err := s.supplierRepo.GetByID(req.SupplierID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, validationErrorf("supplier %d does not exist", req.SupplierID)
	} else if err != nil {
		return nil, err
	}
	potencyRate, err := s.settingsSvc.GetFloat(models.SettingPotencyRate, 1.50)
	if err != nil {
		return nil, err
	}

	p := existing
	action := models.AuditActionUpdate
	if p == nil {
		p = &models.Purchase{}
		action = models.AuditActionCreate
	}
	req.apply(p)
	derivePurchase(p, potencyRate)

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting purchase transaction: %w", err)
	}
	defer tx.Rollback()

	if existing == nil {
		if _, err := s.purchaseRepo.Create(tx, p); err != nil {
			return nil, err
		}
	}

	if err := s.assignBatchID(p, req.BatchID, supplier.Name); err != nil {
		return nil, err
	}
	if err := s.purchaseRepo.Update(tx, p); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, validationErrorf("batch ID %q already exists", derefString(p.BatchID))
		}
		return nil, err
	}

	if err := s.syncPipelineFromPurchase(tx, p, actorID); err != nil {
		return nil, err
	}

	if existing == nil {
		for _, lotReq := range req.Lots {
			lot := models.Lot{
				PurchaseID:         p.ID,
				StrainName:         strings.TrimSpace(lotReq.StrainName),
				WeightLbs:          lotReq.WeightLbs,
				RemainingWeightLbs: lotReq.WeightLbs,
			}
			if _, err := s.lotRepo.Create(tx, &lot); err != nil {
				return nil, err
			}
			p.Lots = append(p.Lots, lot)
		}
	}

	event := &models.AuditEvent{
		UserID:     actorID,
		Action:     action,
		EntityType: "purchase",
		EntityID:   p.ID,
	}
	if err := s.auditRepo.Record(tx, event); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing purchase transaction: %w", err)
	}
	p.SupplierName = &supplier.Name
	return p, nil
}

// assignBatchID keeps an existing identifier, validates a user-supplied one,
// or generates a fresh unique one.
func (s *purchaseService) assignBatchID(p *models.Purchase, requested *string, supplierName string) error {
	if requested != nil && strings.TrimSpace(*requested) != "" {
		candidate := strings.ToUpper(strings.TrimSpace(*requested))
		if len(candidate) > batchIDMaxLength {
			return validationErrorf("batch ID exceeds %d characters", batchIDMaxLength)
		}
		taken, err := s.purchaseRepo.BatchIDExists(candidate, p.ID)
		if err != nil {
			return err
		}
		if taken {
			return validationErrorf("batch ID %q already exists", candidate)
		}
		p.BatchID = &candidate
		return nil
	}
	if p.BatchID != nil && *p.BatchID != "" {
		return nil
	}
	batchID, err := GenerateBatchID(supplierName, p.EffectiveDate(), p.EffectiveWeightLbs(), s.purchaseRepo.BatchIDExists, p.ID)
	if err != nil {
		return err
	}
	p.BatchID = &batchID
	return nil
}

// syncPipelineFromPurchase maps the purchase's status back onto a linked
// pipeline record's stage and committed fields. Single hop; the pipeline's
// own save path is never re-entered.
func (s *purchaseService) syncPipelineFromPurchase(tx *sql.Tx, p *models.Purchase, actorID *int64) error {
	linked, err := s.pipelineRepo.FindByPurchaseID(p.ID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil
	} else if err != nil {
		return err
	}

	linked.Stage = purchaseStatusToStage[p.Status]
	purchaseDate := p.PurchaseDate
	linked.CommittedOn = &purchaseDate
	linked.CommittedDeliveryDate = p.DeliveryDate
	weight := p.EffectiveWeightLbs()
	linked.CommittedWeightLbs = &weight
	linked.CommittedPricePerLb = p.PricePerLb

	if err := s.pipelineRepo.Update(tx, linked); err != nil {
		return err
	}
	details := fmt.Sprintf(`{"source":"purchase","purchase_id":%d,"status":%q,"stage":%q}`, p.ID, p.Status, linked.Stage)
	event := &models.AuditEvent{
		UserID:     actorID,
		Action:     models.AuditActionUpdate,
		EntityType: "biomass_availability",
		EntityID:   linked.ID,
		Details:    &details,
	}
	return s.auditRepo.Record(tx, event)
}

func (s *purchaseService) GetPurchase(purchaseID int64) (*models.Purchase, error) {
	p, err := s.purchaseRepo.GetByID(purchaseID)
	if err != nil {
		return nil, err
	}
	lots, err := s.lotRepo.GetByPurchase(purchaseID)
	if err != nil {
		return nil, err
	}
	p.Lots = lots
	return p, nil
}

func (s *purchaseService) GetPurchases(status string, page, pageSize int) ([]models.Purchase, int, error) {
	var statusFilter *string
	if status != "" {
		if !validPurchaseStatus(status) {
			return nil, 0, validationErrorf("invalid purchase status %q", status)
		}
		statusFilter = &status
	}
	return s.purchaseRepo.GetAll(statusFilter, page, pageSize)
}

func (s *purchaseService) AddLot(purchaseID int64, req LotRequest, actorID *int64) (*models.Lot, error) {
	if strings.TrimSpace(req.StrainName) == "" {
		return nil, validationErrorf("lot strain name is required")
	}
	if req.WeightLbs <= 0 {
		return nil, validationErrorf("lot weight must be positive")
	}
	if _, err := s.purchaseRepo.GetByID(purchaseID); err != nil {
		return nil, err
	}

	lot := models.Lot{
		PurchaseID:         purchaseID,
		StrainName:         strings.TrimSpace(req.StrainName),
		WeightLbs:          req.WeightLbs,
		RemainingWeightLbs: req.WeightLbs,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting lot transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.lotRepo.Create(tx, &lot); err != nil {
		return nil, err
	}
	event := &models.AuditEvent{
		UserID:     actorID,
		Action:     models.AuditActionCreate,
		EntityType: "purchase_lot",
		EntityID:   lot.ID,
	}
	if err := s.auditRepo.Record(tx, event); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &lot, nil
}

// UpdateLot edits a lot's strain and total weight, shifting the remaining
// weight by the same delta so consumed weight is preserved.
func (s *purchaseService) UpdateLot(lotID int64, req LotRequest, actorID *int64) (*models.Lot, error) {
	if strings.TrimSpace(req.StrainName) == "" {
		return nil, validationErrorf("lot strain name is required")
	}
	if req.WeightLbs <= 0 {
		return nil, validationErrorf("lot weight must be positive")
	}
	lot, err := s.lotRepo.GetByID(lotID)
	if err != nil {
		return nil, err
	}

	consumed := lot.WeightLbs - lot.RemainingWeightLbs
	if req.WeightLbs < consumed {
		return nil, validationErrorf("lot weight %.2f is below the %.2f lbs already consumed", req.WeightLbs, consumed)
	}
	lot.StrainName = strings.TrimSpace(req.StrainName)
	lot.WeightLbs = req.WeightLbs
	lot.RemainingWeightLbs = req.WeightLbs - consumed

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting lot transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.lotRepo.Update(tx, lot); err != nil {
		return nil, err
	}
	event := &models.AuditEvent{
		UserID:     actorID,
		Action:     models.AuditActionUpdate,
		EntityType: "purchase_lot",
		EntityID:   lot.ID,
	}
	if err := s.auditRepo.Record(tx, event); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return lot, nil
}

func (s *purchaseService) GetAvailableLots() ([]models.Lot, error) {
	return s.lotRepo.GetAvailable()
}

func (s *purchaseService) GetOnHandLots() ([]models.Lot, error) {
	return s.lotRepo.GetOnHand(models.OnHandPurchaseStatuses)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
