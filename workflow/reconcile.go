package workflow

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/uvtab/emis_backend/config"
	"github.com/uvtab/emis_backend/models"
	"gorm.io/gorm"
)

// Reconciler applies the corrections an audit found. Every write path is a
// full recompute-and-overwrite, so running the same repair twice lands on
// the same end state, and each candidate or payment record gets its own
// transaction: a failure on one row never rolls back repairs already
// committed for other rows.
//
// Actor is the identity stamped onto repaired payment records. It is
// injected by the command, never looked up ad hoc.
type Reconciler struct {
	DB     *gorm.DB
	Logger *logrus.Logger
	Actor  *models.User
	DryRun bool
}

// FixStats summarizes one candidate-level repair pass.
type FixStats struct {
	Checked         int
	Fixed           int
	Skipped         int
	AmountCorrected decimal.Decimal
}

// PaymentFixStats summarizes one payment-record repair pass.
type PaymentFixStats struct {
	RecordsChecked  int
	RecordsUpdated  int
	RecordsCreated  int
	AmountCorrected decimal.Decimal
}

// FixCandidates repairs every fixable discrepancy by writing the expected
// fee through the billing state. Unfixable kinds (orphans, calculation
// errors) are counted as skipped and left for manual review.
func (r *Reconciler) FixCandidates(discrepancies []Discrepancy) (FixStats, error) {
	var stats FixStats
	for _, d := range discrepancies {
		stats.Checked++
		if !d.Kind.Fixable() {
			stats.Skipped++
			continue
		}

		if r.DryRun {
			stats.Fixed++
			stats.AmountCorrected = stats.AmountCorrected.Add(d.Diff.Abs())
			continue
		}

		err := r.DB.Transaction(func(tx *gorm.DB) error {
			var c models.Candidate
			if err := tx.First(&c, d.CandidateID).Error; err != nil {
				return err
			}
			return models.ApplyComputedFee(tx, &c, d.Expected)
		})
		if err != nil {
			config.LogError(r.Logger, "reconcile.go", "FixCandidates", "ApplyComputedFee", d.RegNumber, err)
			stats.Skipped++
			continue
		}
		stats.Fixed++
		stats.AmountCorrected = stats.AmountCorrected.Add(d.Diff.Abs())
	}
	return stats, nil
}

// BackfillPaymentAmounts fills payment_amount_cleared for candidates marked
// cleared without an amount, using the recomputed fee. Candidates whose fee
// cannot be derived are skipped and stay in the audit report.
func (r *Reconciler) BackfillPaymentAmounts(scope Scope) (FixStats, error) {
	q := scope.candidateFilter(r.DB).
		Where("payment_cleared = ?", true).
		Where("payment_amount_cleared <= 0")

	var candidates []models.Candidate
	if err := q.Order("id ASC").Find(&candidates).Error; err != nil {
		return FixStats{}, err
	}

	var stats FixStats
	for i := range candidates {
		c := &candidates[i]
		stats.Checked++

		fee, err := r.expectedFeeWithFallback(c)
		if err != nil || !fee.IsPositive() {
			if err != nil {
				config.LogError(r.Logger, "reconcile.go", "BackfillPaymentAmounts", "CalculateFeesBalance", c.RegNumber, err)
			}
			stats.Skipped++
			continue
		}

		if r.DryRun {
			stats.Fixed++
			stats.AmountCorrected = stats.AmountCorrected.Add(fee)
			continue
		}

		err = r.DB.Transaction(func(tx *gorm.DB) error {
			return tx.Model(&models.Candidate{}).Where("id = ?", c.ID).
				Update("payment_amount_cleared", fee).Error
		})
		if err != nil {
			config.LogError(r.Logger, "reconcile.go", "BackfillPaymentAmounts", "Update", c.RegNumber, err)
			stats.Skipped++
			continue
		}
		stats.Fixed++
		stats.AmountCorrected = stats.AmountCorrected.Add(fee)
	}
	return stats, nil
}

// MarkHistoricalCleared marks candidates billed and paid before payment
// tracking existed: enrolled, zero balance, no cleared flag. The cleared
// amount is the fee they would owe today; the cleared date falls back to the
// registration date so historical rows sort sensibly.
func (r *Reconciler) MarkHistoricalCleared(scope Scope) (FixStats, error) {
	q := models.ScopeEnrolled(scope.candidateFilter(r.DB)).
		Where("fees_balance = 0").
		Where("payment_cleared = ?", false)

	var candidates []models.Candidate
	if err := q.Order("id ASC").Find(&candidates).Error; err != nil {
		return FixStats{}, err
	}

	var stats FixStats
	for i := range candidates {
		c := &candidates[i]
		stats.Checked++

		fee, err := r.expectedFeeWithFallback(c)
		if err != nil {
			config.LogError(r.Logger, "reconcile.go", "MarkHistoricalCleared", "CalculateFeesBalance", c.RegNumber, err)
			stats.Skipped++
			continue
		}

		if r.DryRun {
			stats.Fixed++
			stats.AmountCorrected = stats.AmountCorrected.Add(fee)
			continue
		}

		clearedDate := c.CreatedAt
		if clearedDate.IsZero() {
			clearedDate = time.Now()
		}
		updates := map[string]interface{}{
			"payment_cleared":           true,
			"payment_amount_cleared":    fee,
			"payment_cleared_date":      clearedDate,
			"payment_center_series_ref": historicalRef(c),
		}
		if r.Actor != nil {
			updates["payment_cleared_by_id"] = r.Actor.ID
		}

		err = r.DB.Transaction(func(tx *gorm.DB) error {
			return tx.Model(&models.Candidate{}).Where("id = ?", c.ID).Updates(updates).Error
		})
		if err != nil {
			config.LogError(r.Logger, "reconcile.go", "MarkHistoricalCleared", "Updates", c.RegNumber, err)
			stats.Skipped++
			continue
		}
		stats.Fixed++
		stats.AmountCorrected = stats.AmountCorrected.Add(fee)
	}
	return stats, nil
}

// RecomputePaymentRecords overwrites every stored CenterSeriesPayment in
// scope with the sum over currently existing paid candidates, purging ghost
// amounts left by deleted candidates, and creates records for (center,
// series) groups that have paid candidates but no row yet. The write is
// always a full replacement, never an increment.
func (r *Reconciler) RecomputePaymentRecords(scope Scope) (PaymentFixStats, error) {
	var stats PaymentFixStats

	var payments []models.CenterSeriesPayment
	if err := scope.paymentFilter(r.DB).Order("id ASC").Find(&payments).Error; err != nil {
		return stats, err
	}

	seen := map[string]bool{}
	for i := range payments {
		p := &payments[i]
		stats.RecordsChecked++
		seen[centerSeriesKey(p.AssessmentCenterId, p.AssessmentSeriesId)] = true

		correct, _, err := RecomputePaidTotal(r.DB, p.AssessmentCenterId, p.AssessmentSeriesId)
		if err != nil {
			return stats, err
		}
		if models.AmountsEqual(p.AmountPaid, correct) {
			continue
		}

		diff := p.AmountPaid.Sub(correct).Abs()
		if !r.DryRun {
			err = r.DB.Transaction(func(tx *gorm.DB) error {
				return tx.Model(&models.CenterSeriesPayment{}).Where("id = ?", p.ID).
					Update("amount_paid", correct).Error
			})
			if err != nil {
				config.LogError(r.Logger, "reconcile.go", "RecomputePaymentRecords", "Update", p.ID, err)
				continue
			}
		}
		stats.RecordsUpdated++
		stats.AmountCorrected = stats.AmountCorrected.Add(diff)
	}

	// Paid candidates whose (center, series) has no payment record yet.
	groups, err := r.paidCandidateGroups(scope)
	if err != nil {
		return stats, err
	}
	for _, g := range groups {
		if seen[centerSeriesKey(g.centerId, g.seriesId)] {
			continue
		}
		stats.RecordsChecked++
		if !g.total.IsPositive() {
			continue
		}

		if !r.DryRun {
			record := models.CenterSeriesPayment{
				AssessmentCenterId: g.centerId,
				AssessmentSeriesId: g.seriesId,
				AmountPaid:         g.total,
			}
			if r.Actor != nil {
				record.PaidById = &r.Actor.ID
			}
			err := r.DB.Transaction(func(tx *gorm.DB) error {
				return tx.Create(&record).Error
			})
			if err != nil {
				config.LogError(r.Logger, "reconcile.go", "RecomputePaymentRecords", "Create", g.centerId, err)
				continue
			}
		}
		stats.RecordsCreated++
		stats.AmountCorrected = stats.AmountCorrected.Add(g.total)
	}

	return stats, nil
}

type paidGroup struct {
	centerId int
	seriesId *int
	total    decimal.Decimal
}

func (r *Reconciler) paidCandidateGroups(scope Scope) ([]paidGroup, error) {
	q := scope.candidateFilter(r.DB).
		Where("payment_cleared = ?", true).
		Where("assessment_center_id IS NOT NULL")

	var candidates []models.Candidate
	if err := q.Find(&candidates).Error; err != nil {
		return nil, err
	}

	index := map[string]int{}
	var groups []paidGroup
	for i := range candidates {
		c := &candidates[i]
		key := centerSeriesKey(*c.AssessmentCenterId, c.AssessmentSeriesId)
		idx, ok := index[key]
		if !ok {
			idx = len(groups)
			index[key] = idx
			groups = append(groups, paidGroup{centerId: *c.AssessmentCenterId, seriesId: c.AssessmentSeriesId})
		}
		groups[idx].total = groups[idx].total.Add(c.PaymentAmountCleared)
	}
	return groups, nil
}

// expectedFeeWithFallback computes the candidate's fee, substituting the
// historical sentinel for Modular candidates whose schedule is missing.
// Other categories propagate the calculation error.
func (r *Reconciler) expectedFeeWithFallback(c *models.Candidate) (decimal.Decimal, error) {
	fee, err := models.CalculateFeesBalance(r.DB, c)
	if err == nil {
		return fee, nil
	}
	var calcErr *models.CalculationError
	if !errors.As(err, &calcErr) {
		return decimal.Zero, err
	}
	if models.NormalizeRegistrationCategory(c.RegistrationCategory) == models.RegistrationCategoryModular {
		var moduleCount int64
		if cntErr := r.DB.Model(&models.CandidateModule{}).Where("candidate_id = ?", c.ID).Count(&moduleCount).Error; cntErr != nil {
			return decimal.Zero, cntErr
		}
		return models.ModularFallbackFee(int(moduleCount)), nil
	}
	return decimal.Zero, err
}

func historicalRef(c *models.Candidate) string {
	centerPart := "none"
	if c.AssessmentCenterId != nil {
		centerPart = fmt.Sprint(*c.AssessmentCenterId)
	}
	seriesPart := "none"
	if c.AssessmentSeriesId != nil {
		seriesPart = fmt.Sprint(*c.AssessmentSeriesId)
	}
	return fmt.Sprintf("%s_%s_historical", centerPart, seriesPart)
}

func centerSeriesKey(centerId int, seriesId *int) string {
	if seriesId == nil {
		return fmt.Sprintf("%d_none", centerId)
	}
	return fmt.Sprintf("%d_%d", centerId, *seriesId)
}
