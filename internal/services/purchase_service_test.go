package services

import (
	"errors"
	"testing"

	"github.com/benwaldman33/gold-drop-production-tracker/internal/models"
)

type purchaseFixture struct {
	svc          PurchaseService
	purchaseRepo *mockPurchaseRepo
	lotRepo      *mockLotRepo
	supplierRepo *mockSupplierRepo
	pipelineRepo *mockPipelineRepo
	settingRepo  *mockSettingRepo
}

func newPurchaseFixture(t *testing.T) *purchaseFixture {
	t.Helper()
	db := newTestDB(t)
	f := &purchaseFixture{
		purchaseRepo: newMockPurchaseRepo(),
		lotRepo:      newMockLotRepo(),
		supplierRepo: newMockSupplierRepo(),
		pipelineRepo: newMockPipelineRepo(),
		settingRepo:  newMockSettingRepo(),
	}
	f.supplierRepo.add(models.Supplier{Name: "Green Valley Farms", IsActive: true})
	auditRepo := newMockAuditRepo()
	settingsSvc := NewSettingsService(f.settingRepo, newMockKpiRepo(), auditRepo, db)
	f.svc = NewPurchaseService(f.purchaseRepo, f.lotRepo, f.supplierRepo, f.pipelineRepo, auditRepo, settingsSvc, db)
	return f
}

func basePurchaseRequest() SavePurchaseRequest {
	return SavePurchaseRequest{
		SupplierID:      1,
		PurchaseDate:    day("2025-06-01"),
		Status:          models.PurchaseStatusOrdered,
		StatedWeightLbs: 100,
	}
}

func TestCreatePurchaseAutoPricesFromPotency(t *testing.T) {
	f := newPurchaseFixture(t)

	req := basePurchaseRequest()
	req.StatedPotencyPct = fptr(20)
	purchase, err := f.svc.CreatePurchase(req, iptr(1))
	if err != nil {
		t.Fatalf("CreatePurchase: %v", err)
	}
	// 20 potency points at the default $1.50 rate.
	if purchase.PricePerLb == nil || !almostEqual(*purchase.PricePerLb, 30) {
		t.Fatalf("price per lb = %v, want 30", purchase.PricePerLb)
	}
	if purchase.TotalCost == nil || !almostEqual(*purchase.TotalCost, 3000) {
		t.Fatalf("total cost = %v, want 3000", purchase.TotalCost)
	}
	if purchase.BatchID == nil || *purchase.BatchID == "" {
		t.Fatal("expected a generated batch identifier")
	}
}

func TestCreatePurchaseKeepsExplicitPrice(t *testing.T) {
	f := newPurchaseFixture(t)

	req := basePurchaseRequest()
	req.StatedPotencyPct = fptr(20)
	req.PricePerLb = fptr(410)
	purchase, err := f.svc.CreatePurchase(req, nil)
	if err != nil {
		t.Fatalf("CreatePurchase: %v", err)
	}
	if !almostEqual(*purchase.PricePerLb, 410) {
		t.Fatalf("explicit price overridden: %v", *purchase.PricePerLb)
	}
}

func TestTrueUpComputedFromTestedPotency(t *testing.T) {
	f := newPurchaseFixture(t)

	req := basePurchaseRequest()
	req.StatedPotencyPct = fptr(20)
	req.TestedPotencyPct = fptr(25)
	req.ActualWeightLbs = fptr(100)
	req.PricePerLb = fptr(400)

	purchase, err := f.svc.CreatePurchase(req, nil)
	if err != nil {
		t.Fatalf("CreatePurchase: %v", err)
	}
	// (25 - 20) points * $1.50 * 100 lbs, owed to the supplier.
	if purchase.TrueUpAmount == nil || !almostEqual(*purchase.TrueUpAmount, 750) {
		t.Fatalf("true-up = %v, want 750", purchase.TrueUpAmount)
	}
	if purchase.TrueUpStatus == nil || *purchase.TrueUpStatus != "pending" {
		t.Fatalf("true-up status = %v, want pending", purchase.TrueUpStatus)
	}

	// Actual weight takes precedence over stated for the cost basis.
	if purchase.TotalCost == nil || !almostEqual(*purchase.TotalCost, 100*400) {
		t.Fatalf("total cost = %v, want 40000", purchase.TotalCost)
	}
}

func TestTrueUpNegativeWhenTestedBelowStated(t *testing.T) {
	f := newPurchaseFixture(t)

	req := basePurchaseRequest()
	req.StatedPotencyPct = fptr(25)
	req.TestedPotencyPct = fptr(20)
	req.ActualWeightLbs = fptr(50)
	req.PricePerLb = fptr(400)

	purchase, err := f.svc.CreatePurchase(req, nil)
	if err != nil {
		t.Fatalf("CreatePurchase: %v", err)
	}
	if purchase.TrueUpAmount == nil || !almostEqual(*purchase.TrueUpAmount, -375) {
		t.Fatalf("true-up = %v, want -375 (credit back)", purchase.TrueUpAmount)
	}
}

func TestCreatePurchaseWithLotsSeedsRemaining(t *testing.T) {
	f := newPurchaseFixture(t)

	req := basePurchaseRequest()
	req.Lots = []LotRequest{
		{StrainName: "Blue Dream", WeightLbs: 60},
		{StrainName: "  OG Kush  ", WeightLbs: 40},
	}
	purchase, err := f.svc.CreatePurchase(req, nil)
	if err != nil {
		t.Fatalf("CreatePurchase: %v", err)
	}
	lots, err := f.lotRepo.GetByPurchase(purchase.ID)
	if err != nil {
		t.Fatalf("GetByPurchase: %v", err)
	}
	if len(lots) != 2 {
		t.Fatalf("lots = %d, want 2", len(lots))
	}
	for _, lot := range lots {
		if !almostEqual(lot.RemainingWeightLbs, lot.WeightLbs) {
			t.Errorf("lot %s: remaining %v != weight %v", lot.StrainName, lot.RemainingWeightLbs, lot.WeightLbs)
		}
		if lot.StrainName != "Blue Dream" && lot.StrainName != "OG Kush" {
			t.Errorf("strain name not trimmed: %q", lot.StrainName)
		}
	}
}

func TestUserSuppliedBatchIDMustBeUnique(t *testing.T) {
	f := newPurchaseFixture(t)

	req := basePurchaseRequest()
	req.BatchID = sptr("custom-001")
	first, err := f.svc.CreatePurchase(req, nil)
	if err != nil {
		t.Fatalf("CreatePurchase: %v", err)
	}
	if *first.BatchID != "CUSTOM-001" {
		t.Fatalf("batch id not uppercased: %q", *first.BatchID)
	}

	second := basePurchaseRequest()
	second.BatchID = sptr("CUSTOM-001")
	if _, err := f.svc.CreatePurchase(second, nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for duplicate batch id, got %v", err)
	}
}

func TestGeneratedBatchIDsGetSuffixedOnCollision(t *testing.T) {
	f := newPurchaseFixture(t)

	first, err := f.svc.CreatePurchase(basePurchaseRequest(), nil)
	if err != nil {
		t.Fatalf("first CreatePurchase: %v", err)
	}
	second, err := f.svc.CreatePurchase(basePurchaseRequest(), nil)
	if err != nil {
		t.Fatalf("second CreatePurchase: %v", err)
	}
	if *first.BatchID == *second.BatchID {
		t.Fatalf("identical batch ids: %q", *first.BatchID)
	}
	if *second.BatchID != *first.BatchID+"-2" {
		t.Fatalf("second batch id = %q, want %q", *second.BatchID, *first.BatchID+"-2")
	}
}

func TestUpdatePurchaseSyncsLinkedPipelineRecord(t *testing.T) {
	f := newPurchaseFixture(t)

	purchase, err := f.svc.CreatePurchase(basePurchaseRequest(), nil)
	if err != nil {
		t.Fatalf("CreatePurchase: %v", err)
	}
	linked := f.pipelineRepo.add(models.PipelineAvailability{
		SupplierID:       1,
		AvailabilityDate: day("2025-05-20"),
		Stage:            models.PipelineStageCommitted,
		PurchaseID:       &purchase.ID,
	})

	req := basePurchaseRequest()
	req.Status = models.PurchaseStatusDelivered
	req.ActualWeightLbs = fptr(95)
	req.PricePerLb = fptr(380)
	if _, err := f.svc.UpdatePurchase(purchase.ID, req, nil); err != nil {
		t.Fatalf("UpdatePurchase: %v", err)
	}

	after, err := f.pipelineRepo.GetByID(linked.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if after.Stage != models.PipelineStageDelivered {
		t.Fatalf("pipeline stage = %q, want delivered", after.Stage)
	}
	if after.CommittedWeightLbs == nil || !almostEqual(*after.CommittedWeightLbs, 95) {
		t.Fatalf("committed weight = %v, want the actual 95", after.CommittedWeightLbs)
	}
	if after.CommittedPricePerLb == nil || !almostEqual(*after.CommittedPricePerLb, 380) {
		t.Fatalf("committed price = %v, want 380", after.CommittedPricePerLb)
	}
}

func TestUpdatePurchaseWithoutLinkLeavesPipelineAlone(t *testing.T) {
	f := newPurchaseFixture(t)

	purchase, err := f.svc.CreatePurchase(basePurchaseRequest(), nil)
	if err != nil {
		t.Fatalf("CreatePurchase: %v", err)
	}
	req := basePurchaseRequest()
	req.Status = models.PurchaseStatusComplete
	if _, err := f.svc.UpdatePurchase(purchase.ID, req, nil); err != nil {
		t.Fatalf("UpdatePurchase: %v", err)
	}
	if len(f.pipelineRepo.items) != 0 {
		t.Fatal("no pipeline record should appear from a purchase save")
	}
}

func TestUpdateLotPreservesConsumedWeight(t *testing.T) {
	f := newPurchaseFixture(t)
	lot := f.lotRepo.add(models.Lot{
		PurchaseID:         1,
		StrainName:         "Blue Dream",
		WeightLbs:          50,
		RemainingWeightLbs: 30, // 20 lbs already consumed
	})

	updated, err := f.svc.UpdateLot(lot.ID, LotRequest{StrainName: "Blue Dream", WeightLbs: 45}, nil)
	if err != nil {
		t.Fatalf("UpdateLot: %v", err)
	}
	if !almostEqual(updated.RemainingWeightLbs, 25) {
		t.Fatalf("remaining = %v, want 25 (45 total - 20 consumed)", updated.RemainingWeightLbs)
	}

	// Shrinking below what was already consumed is impossible.
	if _, err := f.svc.UpdateLot(lot.ID, LotRequest{StrainName: "Blue Dream", WeightLbs: 10}, nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestGetPurchasesRejectsInvalidStatus(t *testing.T) {
	f := newPurchaseFixture(t)
	if _, _, err := f.svc.GetPurchases("lost", 1, 20); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
