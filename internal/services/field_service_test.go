package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/benwaldman33/gold-drop-production-tracker/internal/models"
)

type fieldFixture struct {
	svc            FieldService
	tokenRepo      *mockFieldTokenRepo
	submissionRepo *mockFieldSubmissionRepo
	purchaseRepo   *mockPurchaseRepo
	lotRepo        *mockLotRepo
	pipelineRepo   *mockPipelineRepo
	auditRepo      *mockAuditRepo
}

func newFieldFixture(t *testing.T) *fieldFixture {
	t.Helper()
	db := newTestDB(t)
	f := &fieldFixture{
		tokenRepo:      newMockFieldTokenRepo(),
		submissionRepo: newMockFieldSubmissionRepo(),
		purchaseRepo:   newMockPurchaseRepo(),
		lotRepo:        newMockLotRepo(),
		pipelineRepo:   newMockPipelineRepo(),
		auditRepo:      newMockAuditRepo(),
	}
	supplierRepo := newMockSupplierRepo()
	supplierRepo.add(models.Supplier{Name: "Green Valley Farms", IsActive: true})
	settingsSvc := NewSettingsService(newMockSettingRepo(), newMockKpiRepo(), f.auditRepo, db)
	pipelineSvc := NewPipelineService(f.pipelineRepo, f.purchaseRepo, supplierRepo, f.auditRepo, db)
	purchaseSvc := NewPurchaseService(f.purchaseRepo, f.lotRepo, supplierRepo, f.pipelineRepo, f.auditRepo, settingsSvc, db)
	f.svc = NewFieldService(f.tokenRepo, f.submissionRepo, supplierRepo, f.auditRepo, pipelineSvc, purchaseSvc, db)
	return f
}

func (f *fieldFixture) issueToken(t *testing.T) string {
	t.Helper()
	created, err := f.svc.CreateToken(CreateFieldTokenRequest{Label: "North buyer"}, iptr(1))
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}
	return created.Plaintext
}

func fieldPurchaseRequest() FieldSubmissionRequest {
	return FieldSubmissionRequest{
		SupplierID:          1,
		PurchaseDate:        day("2025-06-10"),
		EstimatedPotencyPct: fptr(21),
		PricePerLb:          fptr(350),
		Lots: []LotRequest{
			{StrainName: "Blue Dream", WeightLbs: 60},
			{StrainName: "Gelato", WeightLbs: 40},
		},
	}
}

func TestCreateTokenStoresHashOnly(t *testing.T) {
	f := newFieldFixture(t)

	created, err := f.svc.CreateToken(CreateFieldTokenRequest{Label: "North buyer"}, iptr(1))
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}
	if created.Plaintext == "" {
		t.Fatal("expected a plaintext token")
	}
	stored := f.tokenRepo.tokens[created.Token.ID]
	if stored.TokenHash == created.Plaintext {
		t.Fatal("plaintext must not be stored")
	}
	if stored.TokenHash != hashFieldToken(created.Plaintext) {
		t.Fatal("stored hash does not match the plaintext token")
	}
	remaining := time.Until(stored.ExpiresAt)
	if remaining < 29*24*time.Hour || remaining > 31*24*time.Hour {
		t.Fatalf("default expiry should be 30 days out, got %v", remaining)
	}
}

func TestCreateTokenClampsExpiry(t *testing.T) {
	f := newFieldFixture(t)

	created, err := f.svc.CreateToken(CreateFieldTokenRequest{Label: "Long", ExpiresDays: 1000}, nil)
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}
	if remaining := time.Until(created.Token.ExpiresAt); remaining > 366*24*time.Hour {
		t.Fatalf("expiry should be clamped to 365 days, got %v", remaining)
	}

	created, err = f.svc.CreateToken(CreateFieldTokenRequest{Label: "Short", ExpiresDays: -5}, nil)
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}
	if remaining := time.Until(created.Token.ExpiresAt); remaining > 2*24*time.Hour {
		t.Fatalf("expiry should be clamped up to 1 day, got %v", remaining)
	}

	if _, err := f.svc.CreateToken(CreateFieldTokenRequest{Label: "   "}, nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("blank label should fail validation, got %v", err)
	}
}

func TestValidateTokenRejectsUnknownRevokedAndExpired(t *testing.T) {
	f := newFieldFixture(t)
	plaintext := f.issueToken(t)

	if _, err := f.svc.ValidateToken(""); !errors.Is(err, ErrFieldToken) {
		t.Fatalf("empty token: got %v", err)
	}
	if _, err := f.svc.ValidateToken("not-a-real-token"); !errors.Is(err, ErrFieldToken) {
		t.Fatalf("unknown token: got %v", err)
	}

	token, err := f.svc.ValidateToken(plaintext)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if f.tokenRepo.tokens[token.ID].LastUsedAt == nil {
		t.Fatal("a successful validation should touch last_used_at")
	}

	if _, err := f.svc.RevokeToken(token.ID, iptr(1)); err != nil {
		t.Fatalf("RevokeToken: %v", err)
	}
	if _, err := f.svc.ValidateToken(plaintext); !errors.Is(err, ErrFieldToken) {
		t.Fatalf("revoked token: got %v", err)
	}
	if _, err := f.svc.RevokeToken(token.ID, iptr(1)); !errors.Is(err, ErrValidation) {
		t.Fatalf("double revoke: got %v", err)
	}

	expired := f.tokenRepo.add(models.FieldAccessToken{
		TokenHash: hashFieldToken("stale"),
		Label:     "Stale",
		ExpiresAt: time.Now().Add(-time.Hour),
	})
	if _, err := f.svc.ValidateToken("stale"); !errors.Is(err, ErrFieldToken) {
		t.Fatalf("expired token %d: got %v", expired.ID, err)
	}
}

func TestFieldBiomassIntakeRestrictsStage(t *testing.T) {
	f := newFieldFixture(t)
	plaintext := f.issueToken(t)

	req := declaredRequest()
	req.Stage = models.PipelineStageCommitted
	if _, err := f.svc.SubmitAvailability(plaintext, req); !errors.Is(err, ErrValidation) {
		t.Fatalf("committed stage from the field: got %v", err)
	}

	req = declaredRequest()
	req.Stage = ""
	item, err := f.svc.SubmitAvailability(plaintext, req)
	if err != nil {
		t.Fatalf("SubmitAvailability: %v", err)
	}
	if item.Stage != models.PipelineStageDeclared {
		t.Fatalf("stage = %q, want declared", item.Stage)
	}
	if item.Notes == nil || !strings.Contains(*item.Notes, "North buyer") {
		t.Fatal("intake notes should carry the token label")
	}
	if len(f.purchaseRepo.purchases) != 0 {
		t.Fatalf("field intake must not create purchases, got %d", len(f.purchaseRepo.purchases))
	}
}

func TestFieldPurchaseSubmissionValidatesLots(t *testing.T) {
	f := newFieldFixture(t)
	plaintext := f.issueToken(t)

	req := fieldPurchaseRequest()
	req.Lots = nil
	if _, err := f.svc.SubmitPurchase(plaintext, req); !errors.Is(err, ErrValidation) {
		t.Fatalf("no lots: got %v", err)
	}

	req = fieldPurchaseRequest()
	req.Lots[1].WeightLbs = 0
	if _, err := f.svc.SubmitPurchase(plaintext, req); !errors.Is(err, ErrValidation) {
		t.Fatalf("zero-weight lot: got %v", err)
	}

	req = fieldPurchaseRequest()
	req.SupplierID = 99
	if _, err := f.svc.SubmitPurchase(plaintext, req); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown supplier: got %v", err)
	}

	sub, err := f.svc.SubmitPurchase(plaintext, fieldPurchaseRequest())
	if err != nil {
		t.Fatalf("SubmitPurchase: %v", err)
	}
	if sub.Status != models.SubmissionStatusPending {
		t.Fatalf("status = %q, want pending", sub.Status)
	}
	if len(f.purchaseRepo.purchases) != 0 || len(f.lotRepo.lots) != 0 {
		t.Fatal("a pending submission must not touch inventory")
	}
}

func TestApproveSubmissionCreatesCommittedPurchase(t *testing.T) {
	f := newFieldFixture(t)
	plaintext := f.issueToken(t)

	sub, err := f.svc.SubmitPurchase(plaintext, fieldPurchaseRequest())
	if err != nil {
		t.Fatalf("SubmitPurchase: %v", err)
	}

	reviewed, err := f.svc.ApproveSubmission(sub.ID, ReviewRequest{Notes: sptr("Looks good")}, iptr(2))
	if err != nil {
		t.Fatalf("ApproveSubmission: %v", err)
	}
	if reviewed.Status != models.SubmissionStatusApproved {
		t.Fatalf("status = %q, want approved", reviewed.Status)
	}
	if reviewed.ApprovedPurchaseID == nil {
		t.Fatal("approval should link the created purchase")
	}
	if reviewed.ReviewedBy == nil || *reviewed.ReviewedBy != 2 {
		t.Fatal("approval should record the reviewer")
	}

	purchase := f.purchaseRepo.purchases[*reviewed.ApprovedPurchaseID]
	if purchase == nil {
		t.Fatal("approved purchase not found")
	}
	if purchase.Status != models.PurchaseStatusCommitted {
		t.Fatalf("purchase status = %q, want committed", purchase.Status)
	}
	if purchase.StatedWeightLbs != 100 {
		t.Fatalf("stated weight = %v, want 100", purchase.StatedWeightLbs)
	}
	if purchase.TotalCost == nil || *purchase.TotalCost != 35000 {
		t.Fatalf("total cost = %v, want 35000", purchase.TotalCost)
	}
	if purchase.BatchID == nil || *purchase.BatchID == "" {
		t.Fatal("approved purchase should carry a batch ID")
	}
	if len(f.lotRepo.lots) != 2 {
		t.Fatalf("lots created: %d, want 2", len(f.lotRepo.lots))
	}
	for _, lot := range f.lotRepo.lots {
		if lot.RemainingWeightLbs != lot.WeightLbs {
			t.Fatalf("lot %d should start unconsumed", lot.ID)
		}
	}

	if _, err := f.svc.ApproveSubmission(sub.ID, ReviewRequest{}, iptr(2)); !errors.Is(err, ErrValidation) {
		t.Fatalf("second approval: got %v", err)
	}
}

func TestRejectSubmissionLeavesInventoryUntouched(t *testing.T) {
	f := newFieldFixture(t)
	plaintext := f.issueToken(t)

	sub, err := f.svc.SubmitPurchase(plaintext, fieldPurchaseRequest())
	if err != nil {
		t.Fatalf("SubmitPurchase: %v", err)
	}

	reviewed, err := f.svc.RejectSubmission(sub.ID, ReviewRequest{Notes: sptr("Weights off")}, iptr(2))
	if err != nil {
		t.Fatalf("RejectSubmission: %v", err)
	}
	if reviewed.Status != models.SubmissionStatusRejected {
		t.Fatalf("status = %q, want rejected", reviewed.Status)
	}
	if reviewed.ReviewNotes == nil || *reviewed.ReviewNotes != "Weights off" {
		t.Fatal("rejection should keep the review notes")
	}
	if len(f.purchaseRepo.purchases) != 0 || len(f.lotRepo.lots) != 0 {
		t.Fatal("a rejected submission must not touch inventory")
	}

	if _, err := f.svc.ApproveSubmission(sub.ID, ReviewRequest{}, iptr(2)); !errors.Is(err, ErrValidation) {
		t.Fatalf("approving a rejected submission: got %v", err)
	}
}
