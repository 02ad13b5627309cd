package models

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/uvtab/emis_backend/config"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	config.SetDB(db)
	MigrateTable()
	return db
}

func seedLevel(t *testing.T, db *gorm.DB, name string, formal, single, double, pasModule int64) *Level {
	t.Helper()
	level := &Level{
		Name:                name,
		FormalFee:           decimal.NewFromInt(formal),
		ModularFeeSingle:    decimal.NewFromInt(single),
		ModularFeeDouble:    decimal.NewFromInt(double),
		WorkersPasModuleFee: decimal.NewFromInt(pasModule),
	}
	require.NoError(t, db.Create(level).Error)
	return level
}

func seedModule(t *testing.T, db *gorm.DB, code string, occupationId, levelId int) *Module {
	t.Helper()
	module := &Module{Code: code, Name: "Module " + code, OccupationId: occupationId, LevelId: levelId}
	require.NoError(t, db.Create(module).Error)
	return module
}

func seedCandidate(t *testing.T, db *gorm.DB, regNumber, category string) *Candidate {
	t.Helper()
	c := &Candidate{FullName: "Candidate " + regNumber, RegNumber: regNumber, RegistrationCategory: category}
	require.NoError(t, db.Create(c).Error)
	return c
}

func enrollLevel(t *testing.T, db *gorm.DB, c *Candidate, levelId int) {
	t.Helper()
	require.NoError(t, db.Create(&CandidateLevel{CandidateId: c.ID, LevelId: levelId}).Error)
}

func enrollModule(t *testing.T, db *gorm.DB, c *Candidate, moduleId int) {
	t.Helper()
	require.NoError(t, db.Create(&CandidateModule{CandidateId: c.ID, ModuleId: moduleId}).Error)
}
