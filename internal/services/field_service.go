package services

import (
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benwaldman33/gold-drop-production-tracker/internal/models"
	"github.com/benwaldman33/gold-drop-production-tracker/internal/repositories"
)

const (
	fieldTokenDefaultDays = 30
	fieldTokenMaxDays     = 365
)

// --- Data Transfer Objects (DTOs) ---

// CreateFieldTokenRequest carries the parameters for minting a field access
// token. ExpiresDays is clamped to 1..365; zero means the 30-day default.
type CreateFieldTokenRequest struct {
	Label       string `json:"label" binding:"required"`
	ExpiresDays int    `json:"expires_days"`
}

// CreatedFieldToken pairs the stored token row with the plaintext secret,
// which is returned exactly once.
type CreatedFieldToken struct {
	Token     *models.FieldAccessToken `json:"token"`
	Plaintext string                   `json:"plaintext"`
}

// FieldSubmissionRequest carries a purchase drafted in the field. It stays a
// pending submission until an admin reviews it.
type FieldSubmissionRequest struct {
	SupplierID          int64        `json:"supplier_id" binding:"required"`
	PurchaseDate        time.Time    `json:"purchase_date" binding:"required"`
	DeliveryDate        *time.Time   `json:"delivery_date"`
	EstimatedPotencyPct *float64     `json:"estimated_potency_pct"`
	PricePerLb          *float64     `json:"price_per_lb"`
	Notes               *string      `json:"notes"`
	Lots                []LotRequest `json:"lots"`
}

// ReviewRequest carries the optional notes attached to an approve or reject
// decision.
type ReviewRequest struct {
	Notes *string `json:"notes"`
}

// --- FieldService Interface ---
type FieldService interface {
	CreateToken(req CreateFieldTokenRequest, actorID *int64) (*CreatedFieldToken, error)
	GetTokens() ([]models.FieldAccessToken, error)
	RevokeToken(tokenID int64, actorID *int64) (*models.FieldAccessToken, error)
	ValidateToken(plaintext string) (*models.FieldAccessToken, error)
	SubmitAvailability(plaintext string, req SaveAvailabilityRequest) (*models.PipelineAvailability, error)
	SubmitPurchase(plaintext string, req FieldSubmissionRequest) (*models.FieldPurchaseSubmission, error)
	GetSubmissions(status string) ([]models.FieldPurchaseSubmission, error)
	GetSubmission(submissionID int64) (*models.FieldPurchaseSubmission, error)
	ApproveSubmission(submissionID int64, req ReviewRequest, actorID *int64) (*models.FieldPurchaseSubmission, error)
	RejectSubmission(submissionID int64, req ReviewRequest, actorID *int64) (*models.FieldPurchaseSubmission, error)
}

type fieldService struct {
	tokenRepo      repositories.FieldTokenRepository
	submissionRepo repositories.FieldSubmissionRepository
	supplierRepo   repositories.SupplierRepository
	auditRepo      repositories.AuditRepository
	pipelineSvc    PipelineService
	purchaseSvc    PurchaseService
	db             *sql.DB
}

// NewFieldService creates a new instance of FieldService.
func NewFieldService(tokenRepo repositories.FieldTokenRepository, submissionRepo repositories.FieldSubmissionRepository, supplierRepo repositories.SupplierRepository, auditRepo repositories.AuditRepository, pipelineSvc PipelineService, purchaseSvc PurchaseService, db *sql.DB) FieldService {
	return &fieldService{
		tokenRepo:      tokenRepo,
		submissionRepo: submissionRepo,
		supplierRepo:   supplierRepo,
		auditRepo:      auditRepo,
		pipelineSvc:    pipelineSvc,
		purchaseSvc:    purchaseSvc,
		db:             db,
	}
}

func hashFieldToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

func (s *fieldService) CreateToken(req CreateFieldTokenRequest, actorID *int64) (*CreatedFieldToken, error) {
	label := strings.TrimSpace(req.Label)
	if label == "" {
		return nil, validationErrorf("token label is required")
	}
	days := req.ExpiresDays
	if days == 0 {
		days = fieldTokenDefaultDays
	}
	if days < 1 {
		days = 1
	}
	if days > fieldTokenMaxDays {
		days = fieldTokenMaxDays
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generating field token: %w", err)
	}
	plaintext := base64.RawURLEncoding.EncodeToString(raw)

	token := &models.FieldAccessToken{
		TokenHash: hashFieldToken(plaintext),
		Label:     label,
		CreatedBy: actorID,
		ExpiresAt: time.Now().AddDate(0, 0, days),
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting field token transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.tokenRepo.Create(tx, token); err != nil {
		return nil, err
	}
	event := &models.AuditEvent{
		UserID:     actorID,
		Action:     models.AuditActionCreate,
		EntityType: "field_access_token",
		EntityID:   token.ID,
	}
	if err := s.auditRepo.Record(tx, event); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing field token transaction: %w", err)
	}
	return &CreatedFieldToken{Token: token, Plaintext: plaintext}, nil
}

func (s *fieldService) GetTokens() ([]models.FieldAccessToken, error) {
	return s.tokenRepo.GetAll()
}

func (s *fieldService) RevokeToken(tokenID int64, actorID *int64) (*models.FieldAccessToken, error) {
	token, err := s.tokenRepo.GetByID(tokenID)
	if err != nil {
		return nil, err
	}
	if token.RevokedAt != nil {
		return nil, validationErrorf("token %d is already revoked", tokenID)
	}
	now := time.Now()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting field token transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.tokenRepo.Revoke(tx, tokenID, now); err != nil {
		return nil, err
	}
	event := &models.AuditEvent{
		UserID:     actorID,
		Action:     models.AuditActionRevoke,
		EntityType: "field_access_token",
		EntityID:   tokenID,
	}
	if err := s.auditRepo.Record(tx, event); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing field token transaction: %w", err)
	}
	token.RevokedAt = &now
	return token, nil
}

// ValidateToken resolves a presented plaintext token, rejecting unknown,
// revoked and expired tokens alike. A successful use updates last_used_at;
// a failed touch does not block the intake.
func (s *fieldService) ValidateToken(plaintext string) (*models.FieldAccessToken, error) {
	if plaintext == "" {
		return nil, ErrFieldToken
	}
	token, err := s.tokenRepo.FindByHash(hashFieldToken(plaintext))
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrFieldToken
	} else if err != nil {
		return nil, err
	}
	if !token.IsActive() {
		return nil, ErrFieldToken
	}
	_ = s.tokenRepo.TouchLastUsed(token.ID, time.Now())
	return token, nil
}

// SubmitAvailability records a biomass declaration from the field. Field
// intake is restricted to the declared and testing stages; commitments and
// deliveries go through the office. The record carries no actor, only the
// token label in its notes.
func (s *fieldService) SubmitAvailability(plaintext string, req SaveAvailabilityRequest) (*models.PipelineAvailability, error) {
	token, err := s.ValidateToken(plaintext)
	if err != nil {
		return nil, err
	}
	if req.Stage == "" {
		req.Stage = models.PipelineStageDeclared
	}
	if req.Stage != models.PipelineStageDeclared && req.Stage != models.PipelineStageTesting {
		return nil, validationErrorf("field intake only accepts the declared and testing stages, got %q", req.Stage)
	}
	provenance := fmt.Sprintf("Field intake via token %q", token.Label)
	if req.Notes != nil && strings.TrimSpace(*req.Notes) != "" {
		provenance = strings.TrimSpace(*req.Notes) + "\n" + provenance
	}
	req.Notes = &provenance
	return s.pipelineSvc.CreateAvailability(req, nil)
}

func validateFieldSubmissionRequest(req *FieldSubmissionRequest) error {
	if req.EstimatedPotencyPct != nil && (*req.EstimatedPotencyPct < 0 || *req.EstimatedPotencyPct > 100) {
		return validationErrorf("estimated potency must be between 0 and 100")
	}
	if req.PricePerLb != nil && *req.PricePerLb < 0 {
		return validationErrorf("price per lb cannot be negative")
	}
	if len(req.Lots) == 0 {
		return validationErrorf("a field submission needs at least one lot")
	}
	for i := range req.Lots {
		req.Lots[i].StrainName = strings.TrimSpace(req.Lots[i].StrainName)
		if req.Lots[i].StrainName == "" {
			return validationErrorf("lot %d needs a strain name", i+1)
		}
		if req.Lots[i].WeightLbs <= 0 {
			return validationErrorf("lot %d needs a positive weight", i+1)
		}
	}
	return nil
}

// SubmitPurchase stores a field purchase draft for admin review. Nothing
// touches inventory until the submission is approved.
func (s *fieldService) SubmitPurchase(plaintext string, req FieldSubmissionRequest) (*models.FieldPurchaseSubmission, error) {
	token, err := s.ValidateToken(plaintext)
	if err != nil {
		return nil, err
	}
	if err := validateFieldSubmissionRequest(&req); err != nil {
		return nil, err
	}
	if _, err := s.supplierRepo.GetByID(req.SupplierID); errors.Is(err, repositories.ErrNotFound) {
		return nil, validationErrorf("supplier %d does not exist", req.SupplierID)
	} else if err != nil {
		return nil, err
	}

	lots := make([]models.SubmissionLot, len(req.Lots))
	for i, lot := range req.Lots {
		lots[i] = models.SubmissionLot{StrainName: lot.StrainName, WeightLbs: lot.WeightLbs}
	}
	encoded, err := json.Marshal(lots)
	if err != nil {
		return nil, fmt.Errorf("encoding submission lots: %w", err)
	}

	submission := &models.FieldPurchaseSubmission{
		SourceTokenID:       token.ID,
		SupplierID:          req.SupplierID,
		PurchaseDate:        req.PurchaseDate,
		DeliveryDate:        req.DeliveryDate,
		EstimatedPotencyPct: req.EstimatedPotencyPct,
		PricePerLb:          req.PricePerLb,
		Notes:               req.Notes,
		LotsJSON:            string(encoded),
		Lots:                lots,
		Status:              models.SubmissionStatusPending,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting field submission transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.submissionRepo.Create(tx, submission); err != nil {
		return nil, err
	}
	details := fmt.Sprintf(`{"source":"field_intake","token_label":%q}`, token.Label)
	event := &models.AuditEvent{
		Action:     models.AuditActionCreate,
		EntityType: "field_purchase_submission",
		EntityID:   submission.ID,
		Details:    &details,
	}
	if err := s.auditRepo.Record(tx, event); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing field submission transaction: %w", err)
	}
	return submission, nil
}

// attachLots decodes the serialized lot lines onto the submission.
func attachLots(sub *models.FieldPurchaseSubmission) error {
	if sub.LotsJSON == "" {
		sub.Lots = []models.SubmissionLot{}
		return nil
	}
	if err := json.Unmarshal([]byte(sub.LotsJSON), &sub.Lots); err != nil {
		return consistencyErrorf("field submission %d carries undecodable lots: %v", sub.ID, err)
	}
	return nil
}

func (s *fieldService) GetSubmissions(status string) ([]models.FieldPurchaseSubmission, error) {
	var filter *string
	if status != "" {
		switch status {
		case models.SubmissionStatusPending, models.SubmissionStatusApproved, models.SubmissionStatusRejected:
		default:
			return nil, validationErrorf("invalid submission status %q", status)
		}
		filter = &status
	}
	subs, err := s.submissionRepo.GetAll(filter)
	if err != nil {
		return nil, err
	}
	for i := range subs {
		if err := attachLots(&subs[i]); err != nil {
			return nil, err
		}
	}
	return subs, nil
}

func (s *fieldService) GetSubmission(submissionID int64) (*models.FieldPurchaseSubmission, error) {
	sub, err := s.submissionRepo.GetByID(submissionID)
	if err != nil {
		return nil, err
	}
	if err := attachLots(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// ApproveSubmission turns a pending field draft into a committed purchase
// with real lots, then marks the submission reviewed. The purchase is
// created first; a submission that fails to update afterwards stays pending
// and the approval can be retried against the audit trail.
func (s *fieldService) ApproveSubmission(submissionID int64, req ReviewRequest, actorID *int64) (*models.FieldPurchaseSubmission, error) {
	sub, err := s.GetSubmission(submissionID)
	if err != nil {
		return nil, err
	}
	if sub.Status != models.SubmissionStatusPending {
		return nil, validationErrorf("submission %d has already been reviewed", submissionID)
	}
	if len(sub.Lots) == 0 {
		return nil, validationErrorf("submission %d has no lots to approve", submissionID)
	}
	total := sub.TotalWeightLbs()
	if total <= 0 {
		return nil, validationErrorf("submission %d has no usable weight", submissionID)
	}

	notes := fmt.Sprintf("Approved from field submission %d", sub.ID)
	if sub.Notes != nil && strings.TrimSpace(*sub.Notes) != "" {
		notes = strings.TrimSpace(*sub.Notes) + "\n" + notes
	}
	lots := make([]LotRequest, len(sub.Lots))
	for i, lot := range sub.Lots {
		lots[i] = LotRequest{StrainName: lot.StrainName, WeightLbs: lot.WeightLbs}
	}
	purchase, err := s.purchaseSvc.CreatePurchase(SavePurchaseRequest{
		SupplierID:       sub.SupplierID,
		PurchaseDate:     sub.PurchaseDate,
		DeliveryDate:     sub.DeliveryDate,
		Status:           models.PurchaseStatusCommitted,
		StatedWeightLbs:  total,
		StatedPotencyPct: sub.EstimatedPotencyPct,
		PricePerLb:       sub.PricePerLb,
		Notes:            &notes,
		Lots:             lots,
	}, actorID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sub.Status = models.SubmissionStatusApproved
	sub.ReviewedAt = &now
	sub.ReviewedBy = actorID
	sub.ReviewNotes = req.Notes
	sub.ApprovedPurchaseID = &purchase.ID
	if err := s.review(sub, models.AuditActionApprove, actorID); err != nil {
		return nil, err
	}
	return sub, nil
}

// RejectSubmission marks a pending field draft rejected. Nothing else is
// touched.
func (s *fieldService) RejectSubmission(submissionID int64, req ReviewRequest, actorID *int64) (*models.FieldPurchaseSubmission, error) {
	sub, err := s.GetSubmission(submissionID)
	if err != nil {
		return nil, err
	}
	if sub.Status != models.SubmissionStatusPending {
		return nil, validationErrorf("submission %d has already been reviewed", submissionID)
	}
	now := time.Now()
	sub.Status = models.SubmissionStatusRejected
	sub.ReviewedAt = &now
	sub.ReviewedBy = actorID
	sub.ReviewNotes = req.Notes
	if err := s.review(sub, models.AuditActionReject, actorID); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *fieldService) review(sub *models.FieldPurchaseSubmission, action string, actorID *int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting field review transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.submissionRepo.Update(tx, sub); err != nil {
		return err
	}
	event := &models.AuditEvent{
		UserID:     actorID,
		Action:     action,
		EntityType: "field_purchase_submission",
		EntityID:   sub.ID,
	}
	if err := s.auditRepo.Record(tx, event); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing field review transaction: %w", err)
	}
	return nil
}
