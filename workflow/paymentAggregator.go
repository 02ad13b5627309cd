package workflow

import (
	"github.com/shopspring/decimal"
	"github.com/uvtab/emis_backend/models"
	"gorm.io/gorm"
)

// RecomputePaidTotal sums payment_amount_cleared over currently existing
// paid candidates of the exact (center, series) pair. A nil seriesId selects
// the legacy "no series" bucket, which is never merged with a named series.
//
// Summation happens in Go over decimals; money never goes through SQL
// floating-point aggregation. Returns the total and the paid-candidate count.
func RecomputePaidTotal(db *gorm.DB, centerId int, seriesId *int) (decimal.Decimal, int, error) {
	q := db.Model(&models.Candidate{}).
		Select("id", "payment_amount_cleared").
		Where("assessment_center_id = ?", centerId).
		Where("payment_cleared = ?", true)
	if seriesId != nil {
		q = q.Where("assessment_series_id = ?", *seriesId)
	} else {
		q = q.Where("assessment_series_id IS NULL")
	}

	var candidates []models.Candidate
	if err := q.Find(&candidates).Error; err != nil {
		return decimal.Zero, 0, err
	}

	total := decimal.Zero
	for _, c := range candidates {
		total = total.Add(c.PaymentAmountCleared)
	}
	return total, len(candidates), nil
}
