package workflow

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uvtab/emis_backend/models"
)

func TestRecomputePaidTotalSeparatesNullSeriesBucket(t *testing.T) {
	db := newTestDB(t)
	center := seedCenter(t, db, "UVT301", "Entebbe VTI")
	series := seedSeries(t, db, "November 2025")
	l1 := seedLevel(t, db, "Level 1", 40000, 70000, 90000, 15000)

	inSeries := seedCandidate(t, db, "UVT301/F/001", models.RegistrationCategoryFormal, center, series, 0)
	enrollLevel(t, db, inSeries, l1.ID)
	markPaid(t, db, inSeries, 40000)

	legacy1 := seedCandidate(t, db, "UVT301/F/002", models.RegistrationCategoryFormal, center, nil, 0)
	enrollLevel(t, db, legacy1, l1.ID)
	markPaid(t, db, legacy1, 35000)
	legacy2 := seedCandidate(t, db, "UVT301/F/003", models.RegistrationCategoryFormal, center, nil, 0)
	enrollLevel(t, db, legacy2, l1.ID)
	markPaid(t, db, legacy2, 30000)

	// Unpaid candidates never count toward the paid aggregate.
	due := seedCandidate(t, db, "UVT301/F/004", models.RegistrationCategoryFormal, center, series, 40000)
	enrollLevel(t, db, due, l1.ID)

	total, count, err := RecomputePaidTotal(db, center.ID, &series.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.True(t, total.Equal(decimal.NewFromInt(40000)), "got %s", total)

	total, count, err = RecomputePaidTotal(db, center.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.True(t, total.Equal(decimal.NewFromInt(65000)), "got %s", total)
}

func TestRecomputePaidTotalEmptyScopeIsZero(t *testing.T) {
	db := newTestDB(t)
	center := seedCenter(t, db, "UVT302", "Mityana VTI")

	total, count, err := RecomputePaidTotal(db, center.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.True(t, total.IsZero())
}
