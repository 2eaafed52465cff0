package services

import (
	"fmt"
	"strings"
	"time"
)

const (
	batchIDMaxLength   = 80
	batchIDMaxAttempts = 50
	batchIDPrefixLen   = 5
	batchIDFallback    = "BATCH"
)

// BatchIDExistsFunc reports whether an identifier is already taken, ignoring
// the purchase being edited (0 for new purchases).
type BatchIDExistsFunc func(batchID string, excludePurchaseID int64) (bool, error)

// batchIDPrefix extracts up to the first five alphanumeric characters of the
// supplier name, uppercased. An empty result yields "BATCH".
func batchIDPrefix(supplierName string) string {
	var b strings.Builder
	for _, r := range supplierName {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			if b.Len() == batchIDPrefixLen {
				break
			}
		}
	}
	if b.Len() == 0 {
		return batchIDFallback
	}
	return strings.ToUpper(b.String())
}

// FormatBatchID builds the base identifier PREFIX-DDMONYY-WEIGHT with the
// weight rounded to the nearest integer, capped at 80 characters.
func FormatBatchID(supplierName string, effectiveDate time.Time, weightLbs float64) string {
	datePart := strings.ToUpper(effectiveDate.Format("02Jan06"))
	base := fmt.Sprintf("%s-%s-%d", batchIDPrefix(supplierName), datePart, int(weightLbs+0.5))
	if len(base) > batchIDMaxLength {
		base = base[:batchIDMaxLength]
	}
	return base
}

// GenerateBatchID produces a unique identifier, resolving collisions with -2,
// -3, ... suffixes. The suffixed form never exceeds 80 characters; the base
// is shortened to make room. Gives up after 50 attempts with
// ErrGenerationExhausted.
func GenerateBatchID(supplierName string, effectiveDate time.Time, weightLbs float64, exists BatchIDExistsFunc, excludePurchaseID int64) (string, error) {
	base := FormatBatchID(supplierName, effectiveDate, weightLbs)

	taken, err := exists(base, excludePurchaseID)
	if err != nil {
		return "", fmt.Errorf("checking batch identifier %s: %w", base, err)
	}
	if !taken {
		return base, nil
	}

	for n := 2; n <= batchIDMaxAttempts; n++ {
		suffix := fmt.Sprintf("-%d", n)
		candidate := base
		if len(candidate)+len(suffix) > batchIDMaxLength {
			candidate = candidate[:batchIDMaxLength-len(suffix)]
		}
		candidate += suffix

		taken, err := exists(candidate, excludePurchaseID)
		if err != nil {
			return "", fmt.Errorf("checking batch identifier %s: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: no free identifier after %d attempts for base %s", ErrGenerationExhausted, batchIDMaxAttempts, base)
}
