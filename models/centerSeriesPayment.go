package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CenterSeriesPayment is the per-(center, series) paid aggregate the finance
// screens read. It is derived state: it must always equal the sum of
// payment_amount_cleared over currently existing paid candidates in its
// scope. A nil series id is the legacy "no series" bucket.
type CenterSeriesPayment struct {
	ID                 int               `gorm:"primary_key" json:"id"`
	AssessmentCenterId int               `gorm:"index:idx_center_series,unique;not null" json:"assessment_center_id"`
	AssessmentCenter   *AssessmentCenter `json:"assessment_center,omitempty"`
	AssessmentSeriesId *int              `gorm:"index:idx_center_series,unique" json:"assessment_series_id"`
	AssessmentSeries   *AssessmentSeries `json:"assessment_series,omitempty"`
	AmountPaid         decimal.Decimal   `gorm:"type:decimal(20,2);default:0" json:"amount_paid"`
	PaidById           *int              `json:"paid_by_id"`
	CreatedAt          time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

// GetCenterSeriesPayment loads the payment row for the exact (center, series)
// pair, where seriesId nil selects the "no series" bucket. Returns nil when
// no row exists yet.
func GetCenterSeriesPayment(db *gorm.DB, centerId int, seriesId *int) (*CenterSeriesPayment, error) {
	query := db.Where("assessment_center_id = ?", centerId)
	if seriesId != nil {
		query = query.Where("assessment_series_id = ?", *seriesId)
	} else {
		query = query.Where("assessment_series_id IS NULL")
	}

	var payment CenterSeriesPayment
	err := query.First(&payment).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}
