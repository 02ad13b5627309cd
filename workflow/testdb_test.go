package workflow

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/uvtab/emis_backend/config"
	"github.com/uvtab/emis_backend/models"
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
	models.MigrateTable()
	return db
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func seedCenter(t *testing.T, db *gorm.DB, number, name string) *models.AssessmentCenter {
	t.Helper()
	center := &models.AssessmentCenter{CenterNumber: number, CenterName: name, DistrictName: "Kampala"}
	require.NoError(t, db.Create(center).Error)
	return center
}

func seedSeries(t *testing.T, db *gorm.DB, name string) *models.AssessmentSeries {
	t.Helper()
	series := &models.AssessmentSeries{Name: name}
	require.NoError(t, db.Create(series).Error)
	return series
}

func seedLevel(t *testing.T, db *gorm.DB, name string, formal, single, double, pasModule int64) *models.Level {
	t.Helper()
	level := &models.Level{
		Name:                name,
		FormalFee:           decimal.NewFromInt(formal),
		ModularFeeSingle:    decimal.NewFromInt(single),
		ModularFeeDouble:    decimal.NewFromInt(double),
		WorkersPasModuleFee: decimal.NewFromInt(pasModule),
	}
	require.NoError(t, db.Create(level).Error)
	return level
}

func seedModule(t *testing.T, db *gorm.DB, code string, levelId int) *models.Module {
	t.Helper()
	occupation := &models.Occupation{}
	require.NoError(t, db.Where(models.Occupation{Code: "GEN", Name: "General"}).FirstOrCreate(occupation).Error)
	module := &models.Module{Code: code, Name: "Module " + code, OccupationId: occupation.ID, LevelId: levelId}
	require.NoError(t, db.Create(module).Error)
	return module
}

func seedCandidate(t *testing.T, db *gorm.DB, reg, category string, center *models.AssessmentCenter, series *models.AssessmentSeries, balance int64) *models.Candidate {
	t.Helper()
	c := &models.Candidate{
		FullName:             "Candidate " + reg,
		RegNumber:            reg,
		RegistrationCategory: category,
		FeesBalance:          decimal.NewFromInt(balance),
	}
	if center != nil {
		c.AssessmentCenterId = &center.ID
	}
	if series != nil {
		c.AssessmentSeriesId = &series.ID
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

func enrollLevel(t *testing.T, db *gorm.DB, c *models.Candidate, levelId int) {
	t.Helper()
	require.NoError(t, db.Create(&models.CandidateLevel{CandidateId: c.ID, LevelId: levelId}).Error)
}

func enrollModule(t *testing.T, db *gorm.DB, c *models.Candidate, moduleId int) {
	t.Helper()
	require.NoError(t, db.Create(&models.CandidateModule{CandidateId: c.ID, ModuleId: moduleId}).Error)
}

func markPaid(t *testing.T, db *gorm.DB, c *models.Candidate, amount int64) {
	t.Helper()
	require.NoError(t, db.Model(&models.Candidate{}).Where("id = ?", c.ID).Updates(map[string]interface{}{
		"payment_cleared":        true,
		"payment_amount_cleared": decimal.NewFromInt(amount),
		"fees_balance":           decimal.Zero,
	}).Error)
	c.PaymentCleared = true
	c.PaymentAmountCleared = decimal.NewFromInt(amount)
	c.FeesBalance = decimal.Zero
}
