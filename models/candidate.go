package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	RegistrationCategoryFormal   = "Formal"
	RegistrationCategoryModular  = "Modular"
	RegistrationCategoryInformal = "Informal" // Worker's PAS
)

// NormalizeRegistrationCategory maps the stored category string (historical
// data carries mixed casing and "Worker's PAS" variants) onto the three
// canonical categories. Unrecognized values come back unchanged.
func NormalizeRegistrationCategory(category string) string {
	switch strings.ToLower(strings.TrimSpace(category)) {
	case "formal":
		return RegistrationCategoryFormal
	case "modular":
		return RegistrationCategoryModular
	case "informal", "worker's pas", "workers pas":
		return RegistrationCategoryInformal
	}
	return category
}

type Candidate struct {
	ID        int    `gorm:"primary_key" json:"id"`
	FullName  string `gorm:"size:255;not null" json:"full_name"`
	RegNumber string `gorm:"size:100;uniqueIndex" json:"reg_number"`

	RegistrationCategory string `gorm:"size:20;index;not null" json:"registration_category"`

	AssessmentCenterId *int              `gorm:"index" json:"assessment_center_id"`
	AssessmentCenter   *AssessmentCenter `json:"assessment_center,omitempty"`
	AssessmentSeriesId *int              `gorm:"index" json:"assessment_series_id"`
	AssessmentSeries   *AssessmentSeries `json:"assessment_series,omitempty"`

	OccupationId *int        `gorm:"index" json:"occupation_id"`
	Occupation   *Occupation `json:"occupation,omitempty"`

	// Derived billing state. fees_balance is what the candidate still owes;
	// for Modular candidates the cached module count and billing amount must
	// always move together with it.
	FeesBalance          decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"fees_balance"`
	ModularModuleCount   int             `gorm:"default:0" json:"modular_module_count"`
	ModularBillingAmount decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"modular_billing_amount"`

	PaymentCleared         bool            `gorm:"not null;default:false;index" json:"payment_cleared"`
	PaymentAmountCleared   decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"payment_amount_cleared"`
	PaymentClearedDate     *time.Time      `json:"payment_cleared_date"`
	PaymentClearedById     *int            `json:"payment_cleared_by_id"`
	PaymentCenterSeriesRef string          `gorm:"size:100" json:"payment_center_series_ref"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type CandidateLevel struct {
	ID          int        `gorm:"primary_key" json:"id"`
	CandidateId int        `gorm:"index;not null" json:"candidate_id"`
	Candidate   *Candidate `json:"candidate,omitempty"`
	LevelId     int        `gorm:"index;not null" json:"level_id"`
	Level       *Level     `json:"level,omitempty"`
}

type CandidateModule struct {
	ID          int        `gorm:"primary_key" json:"id"`
	CandidateId int        `gorm:"index;not null" json:"candidate_id"`
	Candidate   *Candidate `json:"candidate,omitempty"`
	ModuleId    int        `gorm:"index;not null" json:"module_id"`
	Module      *Module    `json:"module,omitempty"`
}

// CandidatePaper records exam-paper participation. It confirms that an
// Informal candidate actually sat a module but is never billed directly.
type CandidatePaper struct {
	ID          int    `gorm:"primary_key" json:"id"`
	CandidateId int    `gorm:"index;not null" json:"candidate_id"`
	PaperId     int    `gorm:"index;not null" json:"paper_id"`
	Paper       *Paper `json:"paper,omitempty"`
	ModuleId    *int   `gorm:"index" json:"module_id"`
	LevelId     *int   `gorm:"index" json:"level_id"`
}

// enrolledCondition matches candidates holding at least one level or module
// enrollment. Shared by the auditor queries.
const enrolledCondition = `(EXISTS (SELECT 1 FROM candidate_levels cl WHERE cl.candidate_id = candidates.id)
	OR EXISTS (SELECT 1 FROM candidate_modules cm WHERE cm.candidate_id = candidates.id))`

// ScopeEnrolled narrows a candidates query to enrolled candidates.
func ScopeEnrolled(db *gorm.DB) *gorm.DB {
	return db.Where(enrolledCondition)
}

// ScopeNotEnrolled matches candidates without any enrollment row.
func ScopeNotEnrolled(db *gorm.DB) *gorm.DB {
	return db.Not(enrolledCondition)
}

func (c *Candidate) IsEnrolled(db *gorm.DB) (bool, error) {
	var count int64
	if err := db.Model(&CandidateLevel{}).Where("candidate_id = ?", c.ID).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}
	if err := db.Model(&CandidateModule{}).Where("candidate_id = ?", c.ID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// EnrolledLevels returns the candidate's level enrollments with levels
// preloaded, ordered by enrollment id.
func (c *Candidate) EnrolledLevels(db *gorm.DB) ([]CandidateLevel, error) {
	var joins []CandidateLevel
	err := db.Preload("Level").
		Where("candidate_id = ?", c.ID).
		Order("id ASC").
		Find(&joins).Error
	return joins, err
}

// EnrolledModules returns the candidate's module enrollments with modules and
// their levels preloaded, ordered by enrollment id. The first row is the one
// modular billing takes its level from.
func (c *Candidate) EnrolledModules(db *gorm.DB) ([]CandidateModule, error) {
	var joins []CandidateModule
	err := db.Preload("Module.Level").
		Where("candidate_id = ?", c.ID).
		Order("id ASC").
		Find(&joins).Error
	return joins, err
}

// PaperCount returns how many papers the candidate is registered to sit.
func (c *Candidate) PaperCount(db *gorm.DB) (int64, error) {
	var count int64
	err := db.Model(&CandidatePaper{}).Where("candidate_id = ?", c.ID).Count(&count).Error
	return count, err
}
