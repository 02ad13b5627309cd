package workflow

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/uvtab/emis_backend/models"
	"gorm.io/gorm"
)

type DiscrepancyKind string

const (
	DiscrepancyCorrect              DiscrepancyKind = "CORRECT"
	DiscrepancyZeroButExpected      DiscrepancyKind = "ZERO_BUT_EXPECTED"
	DiscrepancyWrongAmount          DiscrepancyKind = "WRONG_AMOUNT"
	DiscrepancyStaleModularFields   DiscrepancyKind = "STALE_MODULAR_FIELDS"
	DiscrepancyCalculationError     DiscrepancyKind = "CALCULATION_ERROR"
	DiscrepancyOrphanFee            DiscrepancyKind = "ORPHAN_FEE"
	DiscrepancyMissingPaymentAmount DiscrepancyKind = "MISSING_PAYMENT_AMOUNT"
)

// Fixable reports whether the reconciler may repair this kind of
// discrepancy automatically. Orphan fees and calculation failures always
// stay manual: their intent is ambiguous.
func (k DiscrepancyKind) Fixable() bool {
	switch k {
	case DiscrepancyZeroButExpected, DiscrepancyWrongAmount, DiscrepancyStaleModularFields:
		return true
	}
	return false
}

// Discrepancy is one candidate-level mismatch between computed-expected and
// stored-actual billing state.
type Discrepancy struct {
	CandidateID  int             `json:"candidate_id"`
	RegNumber    string          `json:"reg_number"`
	FullName     string          `json:"full_name"`
	Category     string          `json:"category"`
	CenterNumber string          `json:"center_number"`
	SeriesName   string          `json:"series_name"`
	Kind         DiscrepancyKind `json:"kind"`
	Expected     decimal.Decimal `json:"expected"`
	Actual       decimal.Decimal `json:"actual"`
	Diff         decimal.Decimal `json:"diff"`
	MultiLevel   bool            `json:"multi_level"`
	Detail       string          `json:"detail,omitempty"`
}

// CenterSeriesSummary is the per-(center, series) financial rollup. GrandTotal
// is paid + due; GhostDiff is how far the stored payment record drifted from
// the recomputed paid total (non-zero usually means deleted candidates left
// their money behind).
type CenterSeriesSummary struct {
	CenterId         int             `json:"center_id"`
	CenterNumber     string          `json:"center_number"`
	CenterName       string          `json:"center_name"`
	SeriesId         *int            `json:"series_id"`
	SeriesName       string          `json:"series_name"`
	CandidateCount   int             `json:"candidate_count"`
	PaidCount        int             `json:"paid_count"`
	PaidTotal        decimal.Decimal `json:"paid_total"`
	DueTotal         decimal.Decimal `json:"due_total"`
	GrandTotal       decimal.Decimal `json:"grand_total"`
	HasPaymentRecord bool            `json:"has_payment_record"`
	StoredAmountPaid decimal.Decimal `json:"stored_amount_paid"`
	GhostDiff        decimal.Decimal `json:"ghost_diff"`
}

// AuditReport is everything one read-only audit run found.
type AuditReport struct {
	RunID string
	Scope Scope

	Checked        int
	CorrectCount   int
	Discrepancies  []Discrepancy // candidate-level, CORRECT excluded
	Orphans        []Discrepancy
	MissingAmounts []Discrepancy
	Summaries      []CenterSeriesSummary

	ExpectedTotal   decimal.Decimal
	ActualTotal     decimal.Decimal
	MultiLevelCount int
}

// DriftTotal is the absolute candidate-level drift found by the run.
func (r *AuditReport) DriftTotal() decimal.Decimal {
	total := decimal.Zero
	for _, d := range r.Discrepancies {
		total = total.Add(d.Diff.Abs())
	}
	return total
}

// Auditor scans billing state and reports inconsistencies. It never writes.
type Auditor struct {
	DB     *gorm.DB
	Logger *logrus.Logger
}

// Run performs the full audit: candidate balances, orphan fees, payment
// completeness and center-series aggregates.
func (a *Auditor) Run(scope Scope) (*AuditReport, error) {
	report := &AuditReport{
		RunID: uuid.NewString(),
		Scope: scope,
	}

	if err := a.auditCandidates(scope, report); err != nil {
		return nil, err
	}
	var err error
	if report.Orphans, err = a.AuditOrphans(scope); err != nil {
		return nil, err
	}
	if report.MissingAmounts, err = a.AuditPaymentCompleteness(scope); err != nil {
		return nil, err
	}
	if report.Summaries, err = a.AuditCenterSeries(scope); err != nil {
		return nil, err
	}

	if a.Logger != nil {
		a.Logger.WithFields(logrus.Fields{
			"run_id":          report.RunID,
			"scope":           scope.Describe(),
			"checked":         report.Checked,
			"discrepancies":   len(report.Discrepancies),
			"orphans":         len(report.Orphans),
			"missing_amounts": len(report.MissingAmounts),
		}).Info("billing audit completed")
	}
	return report, nil
}

// AuditCandidates compares every enrolled candidate's stored balance to the
// recomputed expectation and classifies the result.
func (a *Auditor) AuditCandidates(scope Scope) (*AuditReport, error) {
	report := &AuditReport{RunID: uuid.NewString(), Scope: scope}
	if err := a.auditCandidates(scope, report); err != nil {
		return nil, err
	}
	return report, nil
}

func (a *Auditor) auditCandidates(scope Scope, report *AuditReport) error {
	candidates, err := scope.enrolledCandidates(a.DB)
	if err != nil {
		return err
	}

	for i := range candidates {
		c := &candidates[i]
		// Settled candidates hold a zero balance by definition; their money is
		// checked through the center/series aggregates instead.
		if c.PaymentCleared {
			continue
		}
		report.Checked++

		d, err := a.classifyCandidate(c)
		if err != nil {
			return err
		}

		report.ExpectedTotal = report.ExpectedTotal.Add(d.Expected)
		report.ActualTotal = report.ActualTotal.Add(d.Actual)
		if d.MultiLevel {
			report.MultiLevelCount++
		}

		if d.Kind == DiscrepancyCorrect {
			report.CorrectCount++
			continue
		}
		report.Discrepancies = append(report.Discrepancies, d)
	}
	return nil
}

func (a *Auditor) classifyCandidate(c *models.Candidate) (Discrepancy, error) {
	d := Discrepancy{
		CandidateID:  c.ID,
		RegNumber:    c.RegNumber,
		FullName:     c.FullName,
		Category:     models.NormalizeRegistrationCategory(c.RegistrationCategory),
		CenterNumber: centerNumberOf(c),
		SeriesName:   seriesNameOf(c),
		Actual:       c.FeesBalance,
	}

	expected, err := models.CalculateFeesBalance(a.DB, c)
	if err != nil {
		var calcErr *models.CalculationError
		if !errors.As(err, &calcErr) {
			return d, err
		}
		// Missing schedule data is reported as its own class, never coerced
		// to zero. For Modular the historical sentinel stands in as the
		// expected amount so center totals stay meaningful.
		d.Kind = DiscrepancyCalculationError
		d.Detail = calcErr.Reason
		if d.Category == models.RegistrationCategoryModular {
			moduleCount, cntErr := a.countModules(c)
			if cntErr != nil {
				return d, cntErr
			}
			d.Expected = models.ModularFallbackFee(moduleCount)
		}
		d.Diff = d.Expected.Sub(d.Actual)
		return d, nil
	}

	d.Expected = expected
	d.Diff = expected.Sub(d.Actual)

	switch {
	case expected.IsPositive() && d.Actual.IsZero():
		d.Kind = DiscrepancyZeroButExpected
	case !models.AmountsEqual(expected, d.Actual):
		d.Kind = DiscrepancyWrongAmount
	default:
		d.Kind = DiscrepancyCorrect
	}

	if d.Category == models.RegistrationCategoryFormal {
		levelCount, err := a.countLevels(c)
		if err != nil {
			return d, err
		}
		// Multi-level Formal enrollment is legitimate for billing but rare
		// enough that the fee office wants every instance surfaced.
		d.MultiLevel = levelCount > 1
	}

	if d.Kind == DiscrepancyCorrect && d.Category == models.RegistrationCategoryModular {
		moduleCount, err := a.countModules(c)
		if err != nil {
			return d, err
		}
		if c.ModularModuleCount != moduleCount || !models.AmountsEqual(c.ModularBillingAmount, expected) {
			d.Kind = DiscrepancyStaleModularFields
			d.Detail = fmt.Sprintf("stored count=%d actual=%d stored amount=%s expected=%s",
				c.ModularModuleCount, moduleCount, c.ModularBillingAmount.StringFixed(2), expected.StringFixed(2))
		}
	}

	return d, nil
}

// AuditOrphans finds candidates carrying a positive balance with no
// enrollment rows at all. These are surfaced for manual review and never
// auto-corrected: the charge could be a deliberate manual override or stale
// data, and the engine cannot tell which.
func (a *Auditor) AuditOrphans(scope Scope) ([]Discrepancy, error) {
	q := models.ScopeNotEnrolled(
		scope.candidateFilter(a.DB.Preload("AssessmentCenter").Preload("AssessmentSeries")),
	).Where("fees_balance > 0")

	var candidates []models.Candidate
	if err := q.Order("id ASC").Find(&candidates).Error; err != nil {
		return nil, err
	}

	var orphans []Discrepancy
	for i := range candidates {
		c := &candidates[i]
		orphans = append(orphans, Discrepancy{
			CandidateID:  c.ID,
			RegNumber:    c.RegNumber,
			FullName:     c.FullName,
			Category:     models.NormalizeRegistrationCategory(c.RegistrationCategory),
			CenterNumber: centerNumberOf(c),
			SeriesName:   seriesNameOf(c),
			Kind:         DiscrepancyOrphanFee,
			Actual:       c.FeesBalance,
			Diff:         c.FeesBalance.Neg(),
			Detail:       "positive balance with no enrollment records",
		})
	}
	return orphans, nil
}

// AuditPaymentCompleteness finds candidates marked cleared without a cleared
// amount. Until those are backfilled, paid totals computed from candidates
// undercount reality.
func (a *Auditor) AuditPaymentCompleteness(scope Scope) ([]Discrepancy, error) {
	q := scope.candidateFilter(a.DB.Preload("AssessmentCenter").Preload("AssessmentSeries")).
		Where("payment_cleared = ?", true).
		Where("payment_amount_cleared <= 0")

	var candidates []models.Candidate
	if err := q.Order("id ASC").Find(&candidates).Error; err != nil {
		return nil, err
	}

	var gaps []Discrepancy
	for i := range candidates {
		c := &candidates[i]
		expected := decimal.Zero
		if fee, err := models.CalculateFeesBalance(a.DB, c); err == nil {
			expected = fee
		}
		gaps = append(gaps, Discrepancy{
			CandidateID:  c.ID,
			RegNumber:    c.RegNumber,
			FullName:     c.FullName,
			Category:     models.NormalizeRegistrationCategory(c.RegistrationCategory),
			CenterNumber: centerNumberOf(c),
			SeriesName:   seriesNameOf(c),
			Kind:         DiscrepancyMissingPaymentAmount,
			Expected:     expected,
			Diff:         expected,
			Detail:       "payment_cleared set but payment_amount_cleared is zero",
		})
	}
	return gaps, nil
}

// AuditCenterSeries rolls up paid and due totals per (center, series) and
// checks each stored CenterSeriesPayment against the recomputed paid total.
// Payment rows whose candidates have all been deleted still show up here,
// with a paid total of zero and the full stored amount as ghost drift.
func (a *Auditor) AuditCenterSeries(scope Scope) ([]CenterSeriesSummary, error) {
	// Candidates that participate in center money: enrolled, owing or paid.
	q := scope.candidateFilter(a.DB).
		Where("assessment_center_id IS NOT NULL").
		Where(models.ScopeEnrolled(a.DB.Session(&gorm.Session{NewDB: true}).Model(&models.Candidate{})).
			Or("fees_balance > 0").Or("payment_cleared = ?", true))

	var candidates []models.Candidate
	if err := q.Find(&candidates).Error; err != nil {
		return nil, err
	}

	type group struct {
		centerId int
		seriesId *int
		summary  *CenterSeriesSummary
	}
	groups := map[string]*group{}
	ensure := func(centerId int, seriesId *int) *group {
		key := centerSeriesKey(centerId, seriesId)
		g, ok := groups[key]
		if !ok {
			g = &group{centerId: centerId, seriesId: seriesId, summary: &CenterSeriesSummary{
				CenterId: centerId,
				SeriesId: seriesId,
			}}
			groups[key] = g
		}
		return g
	}

	for i := range candidates {
		c := &candidates[i]
		g := ensure(*c.AssessmentCenterId, c.AssessmentSeriesId)
		s := g.summary
		s.CandidateCount++
		if c.PaymentCleared {
			s.PaidCount++
			s.PaidTotal = s.PaidTotal.Add(c.PaymentAmountCleared)
		} else if c.FeesBalance.IsPositive() {
			s.DueTotal = s.DueTotal.Add(c.FeesBalance)
		}
	}

	// Merge in stored payment rows, including ghost-only rows with no
	// surviving candidates.
	var payments []models.CenterSeriesPayment
	if err := scope.paymentFilter(a.DB).Find(&payments).Error; err != nil {
		return nil, err
	}
	for i := range payments {
		p := &payments[i]
		g := ensure(p.AssessmentCenterId, p.AssessmentSeriesId)
		g.summary.HasPaymentRecord = true
		g.summary.StoredAmountPaid = p.AmountPaid
	}

	var summaries []CenterSeriesSummary
	for _, g := range groups {
		s := g.summary
		s.GrandTotal = s.PaidTotal.Add(s.DueTotal)
		s.GhostDiff = s.StoredAmountPaid.Sub(s.PaidTotal)
		if err := a.fillNames(s); err != nil {
			return nil, err
		}
		summaries = append(summaries, *s)
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].CenterNumber != summaries[j].CenterNumber {
			return summaries[i].CenterNumber < summaries[j].CenterNumber
		}
		return summaries[i].SeriesName < summaries[j].SeriesName
	})
	return summaries, nil
}

func (a *Auditor) fillNames(s *CenterSeriesSummary) error {
	var center models.AssessmentCenter
	if err := a.DB.First(&center, s.CenterId).Error; err != nil {
		return err
	}
	s.CenterNumber = center.CenterNumber
	s.CenterName = center.CenterName

	if s.SeriesId == nil {
		s.SeriesName = "No Series"
		return nil
	}
	var series models.AssessmentSeries
	if err := a.DB.First(&series, *s.SeriesId).Error; err != nil {
		return err
	}
	s.SeriesName = series.Name
	return nil
}

func (a *Auditor) countLevels(c *models.Candidate) (int, error) {
	var count int64
	err := a.DB.Model(&models.CandidateLevel{}).Where("candidate_id = ?", c.ID).Count(&count).Error
	return int(count), err
}

func (a *Auditor) countModules(c *models.Candidate) (int, error) {
	var count int64
	err := a.DB.Model(&models.CandidateModule{}).Where("candidate_id = ?", c.ID).Count(&count).Error
	return int(count), err
}

func centerNumberOf(c *models.Candidate) string {
	if c.AssessmentCenter != nil {
		return c.AssessmentCenter.CenterNumber
	}
	return ""
}

func seriesNameOf(c *models.Candidate) string {
	if c.AssessmentSeries != nil {
		return c.AssessmentSeries.Name
	}
	return "No Series"
}
