package workflow

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uvtab/emis_backend/models"
)

func TestAuditCandidatesFlagsMultiLevelUnderbilling(t *testing.T) {
	db := newTestDB(t)
	center := seedCenter(t, db, "UVT847", "Nakawa Vocational Institute")
	series := seedSeries(t, db, "November 2025")
	l1 := seedLevel(t, db, "Level 1", 40000, 70000, 90000, 15000)
	l2 := seedLevel(t, db, "Level 2", 50000, 75000, 95000, 15000)

	// Ten formal candidates billed at the Level 1 rate; one of them is also
	// enrolled in Level 2 but was only ever billed for one level.
	var underbilled *models.Candidate
	for i := 1; i <= 10; i++ {
		c := seedCandidate(t, db, fmt.Sprintf("UVT847/F/%03d", i), models.RegistrationCategoryFormal, center, series, 40000)
		enrollLevel(t, db, c, l1.ID)
		if i == 10 {
			enrollLevel(t, db, c, l2.ID)
			underbilled = c
		}
	}

	auditor := &Auditor{DB: db, Logger: quietLogger()}
	scope, err := ResolveScope(db, "UVT847", "November 2025")
	require.NoError(t, err)

	report, err := auditor.AuditCandidates(scope)
	require.NoError(t, err)

	assert.Equal(t, 10, report.Checked)
	assert.Equal(t, 9, report.CorrectCount)
	require.Len(t, report.Discrepancies, 1)

	d := report.Discrepancies[0]
	assert.Equal(t, underbilled.ID, d.CandidateID)
	assert.Equal(t, DiscrepancyWrongAmount, d.Kind)
	assert.True(t, d.MultiLevel)
	assert.True(t, d.Expected.Equal(decimal.NewFromInt(90000)), "expected %s", d.Expected)
	assert.True(t, d.Actual.Equal(decimal.NewFromInt(40000)))
	assert.True(t, d.Diff.Equal(decimal.NewFromInt(50000)))
	assert.Equal(t, 1, report.MultiLevelCount)
	assert.True(t, report.DriftTotal().Equal(decimal.NewFromInt(50000)))

	// Expected totals stay additive over the audited candidates.
	assert.True(t, report.ExpectedTotal.Equal(decimal.NewFromInt(9*40000+90000)))
	assert.True(t, report.ActualTotal.Equal(decimal.NewFromInt(10*40000)))
}

func TestAuditCandidatesZeroButExpected(t *testing.T) {
	db := newTestDB(t)
	center := seedCenter(t, db, "UVT101", "Lugogo VTI")
	l1 := seedLevel(t, db, "Level 1", 40000, 70000, 90000, 15000)
	c := seedCandidate(t, db, "UVT101/F/001", models.RegistrationCategoryFormal, center, nil, 0)
	enrollLevel(t, db, c, l1.ID)

	auditor := &Auditor{DB: db, Logger: quietLogger()}
	report, err := auditor.AuditCandidates(Scope{})
	require.NoError(t, err)

	require.Len(t, report.Discrepancies, 1)
	assert.Equal(t, DiscrepancyZeroButExpected, report.Discrepancies[0].Kind)
	assert.True(t, report.Discrepancies[0].Kind.Fixable())
}

func TestAuditCandidatesSkipsSettled(t *testing.T) {
	db := newTestDB(t)
	center := seedCenter(t, db, "UVT102", "Masaka VTI")
	l1 := seedLevel(t, db, "Level 1", 40000, 70000, 90000, 15000)
	c := seedCandidate(t, db, "UVT102/F/001", models.RegistrationCategoryFormal, center, nil, 0)
	enrollLevel(t, db, c, l1.ID)
	markPaid(t, db, c, 40000)

	auditor := &Auditor{DB: db, Logger: quietLogger()}
	report, err := auditor.AuditCandidates(Scope{})
	require.NoError(t, err)

	assert.Equal(t, 0, report.Checked)
	assert.Empty(t, report.Discrepancies)
}

func TestAuditCandidatesStaleModularFields(t *testing.T) {
	db := newTestDB(t)
	center := seedCenter(t, db, "UVT103", "Jinja VTI")
	l1 := seedLevel(t, db, "Level 1", 40000, 70000, 90000, 15000)
	m1 := seedModule(t, db, "GEN-101", l1.ID)
	m2 := seedModule(t, db, "GEN-102", l1.ID)

	c := seedCandidate(t, db, "UVT103/M/001", models.RegistrationCategoryModular, center, nil, 90000)
	enrollModule(t, db, c, m1.ID)
	enrollModule(t, db, c, m2.ID)
	// Balance is right but the cached module count never caught up with the
	// second enrollment.
	require.NoError(t, db.Model(&models.Candidate{}).Where("id = ?", c.ID).Updates(map[string]interface{}{
		"modular_module_count":   1,
		"modular_billing_amount": decimal.NewFromInt(70000),
	}).Error)

	auditor := &Auditor{DB: db, Logger: quietLogger()}
	report, err := auditor.AuditCandidates(Scope{})
	require.NoError(t, err)

	require.Len(t, report.Discrepancies, 1)
	d := report.Discrepancies[0]
	assert.Equal(t, DiscrepancyStaleModularFields, d.Kind)
	assert.True(t, d.Kind.Fixable())
}

func TestAuditCandidatesCalculationErrorUsesModularSentinel(t *testing.T) {
	db := newTestDB(t)
	center := seedCenter(t, db, "UVT104", "Arua VTI")
	bare := &models.Level{Name: "Level 9"} // schedule never configured
	require.NoError(t, db.Create(bare).Error)
	m1 := seedModule(t, db, "GEN-901", bare.ID)
	m2 := seedModule(t, db, "GEN-902", bare.ID)

	c := seedCandidate(t, db, "UVT104/M/001", models.RegistrationCategoryModular, center, nil, 0)
	enrollModule(t, db, c, m1.ID)
	enrollModule(t, db, c, m2.ID)

	auditor := &Auditor{DB: db, Logger: quietLogger()}
	report, err := auditor.AuditCandidates(Scope{})
	require.NoError(t, err)

	require.Len(t, report.Discrepancies, 1)
	d := report.Discrepancies[0]
	assert.Equal(t, DiscrepancyCalculationError, d.Kind)
	assert.False(t, d.Kind.Fixable())
	assert.True(t, d.Expected.Equal(decimal.NewFromInt(90000)), "sentinel expected, got %s", d.Expected)
	assert.NotEmpty(t, d.Detail)
}

func TestAuditOrphans(t *testing.T) {
	db := newTestDB(t)
	center := seedCenter(t, db, "UVT105", "Gulu VTI")
	c := seedCandidate(t, db, "UVT105/F/001", models.RegistrationCategoryFormal, center, nil, 25000)

	auditor := &Auditor{DB: db, Logger: quietLogger()}
	orphans, err := auditor.AuditOrphans(Scope{})
	require.NoError(t, err)

	require.Len(t, orphans, 1)
	assert.Equal(t, c.ID, orphans[0].CandidateID)
	assert.Equal(t, DiscrepancyOrphanFee, orphans[0].Kind)
	assert.False(t, orphans[0].Kind.Fixable())
	assert.True(t, orphans[0].Diff.Equal(decimal.NewFromInt(-25000)))
}

func TestAuditPaymentCompleteness(t *testing.T) {
	db := newTestDB(t)
	center := seedCenter(t, db, "UVT106", "Mbale VTI")
	l1 := seedLevel(t, db, "Level 1", 40000, 70000, 90000, 15000)
	c := seedCandidate(t, db, "UVT106/F/001", models.RegistrationCategoryFormal, center, nil, 0)
	enrollLevel(t, db, c, l1.ID)
	markPaid(t, db, c, 0)

	auditor := &Auditor{DB: db, Logger: quietLogger()}
	gaps, err := auditor.AuditPaymentCompleteness(Scope{})
	require.NoError(t, err)

	require.Len(t, gaps, 1)
	assert.Equal(t, DiscrepancyMissingPaymentAmount, gaps[0].Kind)
	assert.True(t, gaps[0].Expected.Equal(decimal.NewFromInt(40000)))
}

func TestAuditCenterSeriesDetectsGhostAmount(t *testing.T) {
	db := newTestDB(t)
	center := seedCenter(t, db, "UVT107", "Fort Portal VTI")
	series := seedSeries(t, db, "November 2025")
	l1 := seedLevel(t, db, "Level 1", 40000, 70000, 90000, 15000)

	paid1 := seedCandidate(t, db, "UVT107/F/001", models.RegistrationCategoryFormal, center, series, 0)
	enrollLevel(t, db, paid1, l1.ID)
	markPaid(t, db, paid1, 200000)
	paid2 := seedCandidate(t, db, "UVT107/F/002", models.RegistrationCategoryFormal, center, series, 0)
	enrollLevel(t, db, paid2, l1.ID)
	markPaid(t, db, paid2, 150000)
	due := seedCandidate(t, db, "UVT107/F/003", models.RegistrationCategoryFormal, center, series, 40000)
	enrollLevel(t, db, due, l1.ID)

	// Stored aggregate still carries money from candidates deleted long ago.
	require.NoError(t, db.Create(&models.CenterSeriesPayment{
		AssessmentCenterId: center.ID,
		AssessmentSeriesId: &series.ID,
		AmountPaid:         decimal.NewFromInt(450000),
	}).Error)

	auditor := &Auditor{DB: db, Logger: quietLogger()}
	summaries, err := auditor.AuditCenterSeries(Scope{})
	require.NoError(t, err)

	require.Len(t, summaries, 1)
	s := summaries[0]
	assert.Equal(t, "UVT107", s.CenterNumber)
	assert.Equal(t, "November 2025", s.SeriesName)
	assert.Equal(t, 3, s.CandidateCount)
	assert.Equal(t, 2, s.PaidCount)
	assert.True(t, s.PaidTotal.Equal(decimal.NewFromInt(350000)))
	assert.True(t, s.DueTotal.Equal(decimal.NewFromInt(40000)))
	assert.True(t, s.GrandTotal.Equal(decimal.NewFromInt(390000)))
	assert.True(t, s.HasPaymentRecord)
	assert.True(t, s.GhostDiff.Equal(decimal.NewFromInt(100000)), "ghost diff %s", s.GhostDiff)
}

func TestAuditCenterSeriesKeepsNullSeriesBucketSeparate(t *testing.T) {
	db := newTestDB(t)
	center := seedCenter(t, db, "UVT108", "Hoima VTI")
	series := seedSeries(t, db, "November 2025")
	l1 := seedLevel(t, db, "Level 1", 40000, 70000, 90000, 15000)

	inSeries := seedCandidate(t, db, "UVT108/F/001", models.RegistrationCategoryFormal, center, series, 0)
	enrollLevel(t, db, inSeries, l1.ID)
	markPaid(t, db, inSeries, 40000)
	legacy := seedCandidate(t, db, "UVT108/F/002", models.RegistrationCategoryFormal, center, nil, 0)
	enrollLevel(t, db, legacy, l1.ID)
	markPaid(t, db, legacy, 35000)

	auditor := &Auditor{DB: db, Logger: quietLogger()}
	summaries, err := auditor.AuditCenterSeries(Scope{})
	require.NoError(t, err)

	require.Len(t, summaries, 2)
	bySeries := map[string]CenterSeriesSummary{}
	for _, s := range summaries {
		bySeries[s.SeriesName] = s
	}
	assert.True(t, bySeries["November 2025"].PaidTotal.Equal(decimal.NewFromInt(40000)))
	assert.True(t, bySeries["No Series"].PaidTotal.Equal(decimal.NewFromInt(35000)))
}

func TestResolveScopeUnknownCenter(t *testing.T) {
	db := newTestDB(t)
	_, err := ResolveScope(db, "UVT999", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrCenterNotFound)
}
