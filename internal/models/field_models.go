package models

import "time"

// Field submission review states.
const (
	SubmissionStatusPending  = "pending"
	SubmissionStatusApproved = "approved"
	SubmissionStatusRejected = "rejected"
)

// FieldAccessToken authorizes the intake forms buyers use in the field.
// Only a SHA-256 hash of the token is stored; the plaintext is shown once
// at creation and cannot be recovered afterwards.
type FieldAccessToken struct {
	ID         int64      `json:"id" db:"id"`
	TokenHash  string     `json:"-" db:"token_hash"`
	Label      string     `json:"label" db:"label"`
	CreatedBy  *int64     `json:"created_by,omitempty" db:"created_by"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at" db:"expires_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty" db:"revoked_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty" db:"last_used_at"`
}

// IsActive reports whether the token can still authorize intake requests.
func (t *FieldAccessToken) IsActive() bool {
	return t.RevokedAt == nil && time.Now().Before(t.ExpiresAt)
}

// SubmissionLot is one strain line on a pending field purchase.
type SubmissionLot struct {
	StrainName string  `json:"strain_name"`
	WeightLbs  float64 `json:"weight_lbs"`
}

// FieldPurchaseSubmission is a purchase drafted in the field and held for
// admin review. Lots stay serialized until approval materializes them as
// real inventory.
type FieldPurchaseSubmission struct {
	ID                  int64           `json:"id" db:"id"`
	SourceTokenID       int64           `json:"source_token_id" db:"source_token_id"`
	SupplierID          int64           `json:"supplier_id" db:"supplier_id"`
	SupplierName        *string         `json:"supplier_name,omitempty" db:"-"`
	PurchaseDate        time.Time       `json:"purchase_date" db:"purchase_date"`
	DeliveryDate        *time.Time      `json:"delivery_date,omitempty" db:"delivery_date"`
	EstimatedPotencyPct *float64        `json:"estimated_potency_pct,omitempty" db:"estimated_potency_pct"`
	PricePerLb          *float64        `json:"price_per_lb,omitempty" db:"price_per_lb"`
	Notes               *string         `json:"notes,omitempty" db:"notes"`
	LotsJSON            string          `json:"-" db:"lots_json"`
	Lots                []SubmissionLot `json:"lots" db:"-"`
	Status              string          `json:"status" db:"status"`
	SubmittedAt         time.Time       `json:"submitted_at" db:"submitted_at"`
	ReviewedAt          *time.Time      `json:"reviewed_at,omitempty" db:"reviewed_at"`
	ReviewedBy          *int64          `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewNotes         *string         `json:"review_notes,omitempty" db:"review_notes"`
	ApprovedPurchaseID  *int64          `json:"approved_purchase_id,omitempty" db:"approved_purchase_id"`
}

// TotalWeightLbs sums the submission's lot weights.
func (s *FieldPurchaseSubmission) TotalWeightLbs() float64 {
	var total float64
	for _, lot := range s.Lots {
		total += lot.WeightLbs
	}
	return total
}
