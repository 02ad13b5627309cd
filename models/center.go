package models

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

var ErrCenterNotFound = errors.New("assessment center not found")
var ErrSeriesNotFound = errors.New("assessment series not found")

type AssessmentCenter struct {
	ID           int       `gorm:"primary_key" json:"id"`
	CenterNumber string    `gorm:"size:50;uniqueIndex;not null" json:"center_number"`
	CenterName   string    `gorm:"size:255;not null" json:"center_name"`
	DistrictName string    `gorm:"size:100" json:"district_name"`
	VillageName  string    `gorm:"size:100" json:"village_name"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// AssessmentSeries is one exam sitting period (e.g. "November 2025").
// Candidates billed before series tracking existed carry a nil series id;
// that "no series" bucket stays distinct from every named series.
type AssessmentSeries struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func GetCenterByNumber(db *gorm.DB, centerNumber string) (*AssessmentCenter, error) {
	var center AssessmentCenter
	err := db.Where("center_number = ?", centerNumber).First(&center).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrCenterNotFound, centerNumber)
	}
	if err != nil {
		return nil, err
	}
	return &center, nil
}

func GetSeriesByName(db *gorm.DB, name string) (*AssessmentSeries, error) {
	var series AssessmentSeries
	err := db.Where("name = ?", name).First(&series).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSeriesNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return &series, nil
}
