package workflow

import (
	"fmt"

	"github.com/uvtab/emis_backend/models"
	"gorm.io/gorm"
)

// Scope narrows an audit or fix run to one center and/or one series. The
// zero value means "everything". A named center or series that does not
// exist resolves to an error before any scan starts; partial scans against a
// typo'd scope are worse than no scan.
type Scope struct {
	Center *models.AssessmentCenter
	Series *models.AssessmentSeries
}

func ResolveScope(db *gorm.DB, centerNumber, seriesName string) (Scope, error) {
	var scope Scope
	if centerNumber != "" {
		center, err := models.GetCenterByNumber(db, centerNumber)
		if err != nil {
			return Scope{}, err
		}
		scope.Center = center
	}
	if seriesName != "" {
		series, err := models.GetSeriesByName(db, seriesName)
		if err != nil {
			return Scope{}, err
		}
		scope.Series = series
	}
	return scope, nil
}

func (s Scope) Describe() string {
	switch {
	case s.Center != nil && s.Series != nil:
		return fmt.Sprintf("center %s, series %s", s.Center.CenterNumber, s.Series.Name)
	case s.Center != nil:
		return fmt.Sprintf("center %s, all series", s.Center.CenterNumber)
	case s.Series != nil:
		return fmt.Sprintf("all centers, series %s", s.Series.Name)
	}
	return "all centers and series"
}

// candidateFilter applies the scope to a candidates query.
func (s Scope) candidateFilter(q *gorm.DB) *gorm.DB {
	if s.Center != nil {
		q = q.Where("assessment_center_id = ?", s.Center.ID)
	}
	if s.Series != nil {
		q = q.Where("assessment_series_id = ?", s.Series.ID)
	}
	return q
}

// paymentFilter applies the scope to a center_series_payments query.
func (s Scope) paymentFilter(q *gorm.DB) *gorm.DB {
	if s.Center != nil {
		q = q.Where("assessment_center_id = ?", s.Center.ID)
	}
	if s.Series != nil {
		q = q.Where("assessment_series_id = ?", s.Series.ID)
	}
	return q
}

// enrolledCandidates loads every enrolled candidate in scope, oldest first,
// with center and series preloaded for reporting.
func (s Scope) enrolledCandidates(db *gorm.DB) ([]models.Candidate, error) {
	q := models.ScopeEnrolled(
		s.candidateFilter(db.Preload("AssessmentCenter").Preload("AssessmentSeries")),
	)
	var candidates []models.Candidate
	err := q.Order("id ASC").Find(&candidates).Error
	return candidates, err
}
