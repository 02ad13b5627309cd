package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeEnrolled(t *testing.T) {
	db := newTestDB(t)
	occupation := &Occupation{Code: "BKT", Name: "Bricklaying"}
	require.NoError(t, db.Create(occupation).Error)
	level := seedLevel(t, db, "Level 1", 40000, 70000, 90000, 15000)
	module := seedModule(t, db, "BKT-101", occupation.ID, level.ID)

	byLevel := seedCandidate(t, db, "UVT/S/001", RegistrationCategoryFormal)
	enrollLevel(t, db, byLevel, level.ID)
	byModule := seedCandidate(t, db, "UVT/S/002", RegistrationCategoryModular)
	enrollModule(t, db, byModule, module.ID)
	unenrolled := seedCandidate(t, db, "UVT/S/003", RegistrationCategoryFormal)

	var enrolled []Candidate
	require.NoError(t, ScopeEnrolled(db.Model(&Candidate{})).Order("id ASC").Find(&enrolled).Error)
	require.Len(t, enrolled, 2)
	assert.Equal(t, byLevel.ID, enrolled[0].ID)
	assert.Equal(t, byModule.ID, enrolled[1].ID)

	var notEnrolled []Candidate
	require.NoError(t, ScopeNotEnrolled(db.Model(&Candidate{})).Find(&notEnrolled).Error)
	require.Len(t, notEnrolled, 1)
	assert.Equal(t, unenrolled.ID, notEnrolled[0].ID)

	ok, err := byLevel.IsEnrolled(db)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = unenrolled.IsEnrolled(db)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFeeForRegistrationInvalidModularCount(t *testing.T) {
	level := Level{Name: "Level 1"}
	_, err := level.FeeForRegistration(RegistrationCategoryModular, 3)
	assert.Error(t, err)
}
