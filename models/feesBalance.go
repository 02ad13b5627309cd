package models

import (
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// FeeTolerance absorbs rounding when comparing money amounts. Anything
// within a cent counts as equal.
var FeeTolerance = decimal.NewFromFloat(0.01)

// Historical sentinel fees the enrollment screens fell back to before the
// per-level schedule existed. Batch runs substitute these when the schedule
// is missing so that one broken level doesn't stall a whole center.
var (
	ModularSentinelSingle = decimal.NewFromInt(70000)
	ModularSentinelDouble = decimal.NewFromInt(90000)
)

// AmountsEqual reports whether two money amounts agree within FeeTolerance.
func AmountsEqual(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(FeeTolerance)
}

// CalculationError marks a candidate whose expected fee cannot be derived
// because the schedule or enrollment data it needs is missing. It is never
// silently coerced to zero: audits surface it as its own discrepancy class.
type CalculationError struct {
	CandidateID int
	RegNumber   string
	Reason      string
}

func (e *CalculationError) Error() string {
	return fmt.Sprintf("fee calculation failed for candidate %s (id=%d): %s", e.RegNumber, e.CandidateID, e.Reason)
}

func calcErr(c *Candidate, format string, args ...any) error {
	return &CalculationError{CandidateID: c.ID, RegNumber: c.RegNumber, Reason: fmt.Sprintf(format, args...)}
}

// ModularFallbackFee returns the sentinel fee for a modular candidate with
// the given enrolled module count.
func ModularFallbackFee(moduleCount int) decimal.Decimal {
	if moduleCount <= 0 {
		return decimal.Zero
	}
	if moduleCount == 1 {
		return ModularSentinelSingle
	}
	return ModularSentinelDouble
}

// CalculateFeesBalance derives what the candidate should owe from the
// registration category, current enrollments and the level fee schedule.
// This mirrors the calculation the enrollment screens run at billing time;
// the two must never disagree.
//
// By category:
//   - Modular: single/double fee of the first enrolled module's level,
//     billing at most 2 modules regardless of enrolled count. The cap is
//     deliberate policy carried over from the fee office, not an accident.
//   - Formal: sum of formal_fee across every enrolled level. Multi-level
//     enrollment bills each level in full.
//   - Informal (Worker's PAS): per-module fee of each module's level times
//     the module count at that level.
func CalculateFeesBalance(db *gorm.DB, c *Candidate) (decimal.Decimal, error) {
	switch NormalizeRegistrationCategory(c.RegistrationCategory) {
	case RegistrationCategoryModular:
		return calculateModularFee(db, c)
	case RegistrationCategoryFormal:
		return calculateFormalFee(db, c)
	case RegistrationCategoryInformal:
		return calculateInformalFee(db, c)
	}
	return decimal.Zero, calcErr(c, "unknown registration category %q", c.RegistrationCategory)
}

func calculateModularFee(db *gorm.DB, c *Candidate) (decimal.Decimal, error) {
	joins, err := c.EnrolledModules(db)
	if err != nil {
		return decimal.Zero, err
	}
	if len(joins) == 0 {
		return decimal.Zero, nil
	}

	// Billing is capped at 2 modules: 3+ enrollments bill the double fee.
	billingCount := len(joins)
	if billingCount > 2 {
		billingCount = 2
	}

	first := joins[0]
	if first.Module == nil {
		return decimal.Zero, calcErr(c, "module %d no longer exists", first.ModuleId)
	}
	if first.Module.Level == nil {
		return decimal.Zero, calcErr(c, "module %s has no level", first.Module.Code)
	}

	fee, err := first.Module.Level.FeeForRegistration(RegistrationCategoryModular, billingCount)
	if err != nil {
		return decimal.Zero, calcErr(c, "%v", err)
	}
	return fee, nil
}

func calculateFormalFee(db *gorm.DB, c *Candidate) (decimal.Decimal, error) {
	joins, err := c.EnrolledLevels(db)
	if err != nil {
		return decimal.Zero, err
	}
	if len(joins) == 0 {
		return decimal.Zero, nil
	}

	total := decimal.Zero
	for _, cl := range joins {
		if cl.Level == nil {
			return decimal.Zero, calcErr(c, "level %d no longer exists", cl.LevelId)
		}
		fee, err := cl.Level.FeeForRegistration(RegistrationCategoryFormal, 1)
		if err != nil {
			return decimal.Zero, calcErr(c, "%v", err)
		}
		total = total.Add(fee)
	}
	return total, nil
}

func calculateInformalFee(db *gorm.DB, c *Candidate) (decimal.Decimal, error) {
	joins, err := c.EnrolledModules(db)
	if err != nil {
		return decimal.Zero, err
	}
	if len(joins) == 0 {
		return decimal.Zero, nil
	}

	// Group enrolled modules by their level; each level bills its per-module
	// Worker's PAS fee times the modules taken at that level.
	counts := map[int]int{}
	levels := map[int]*Level{}
	for _, cm := range joins {
		if cm.Module == nil {
			return decimal.Zero, calcErr(c, "module %d no longer exists", cm.ModuleId)
		}
		if cm.Module.Level == nil {
			return decimal.Zero, calcErr(c, "module %s has no level", cm.Module.Code)
		}
		counts[cm.Module.LevelId]++
		levels[cm.Module.LevelId] = cm.Module.Level
	}

	total := decimal.Zero
	for levelId, level := range levels {
		fee, err := level.FeeForRegistration(RegistrationCategoryInformal, 1)
		if err != nil {
			return decimal.Zero, calcErr(c, "%v", err)
		}
		total = total.Add(fee.Mul(decimal.NewFromInt(int64(counts[levelId]))))
	}
	return total, nil
}
