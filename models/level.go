package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Level carries the fee schedule shared by every candidate enrolled in it.
// The fee columns are maintained by the occupation/fee-edit screens; this
// engine only ever reads them.
type Level struct {
	ID   int    `gorm:"primary_key" json:"id"`
	Name string `gorm:"size:100;uniqueIndex;not null" json:"name"`

	FormalFee           decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"formal_fee"`
	ModularFeeSingle    decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"modular_fee_single"`
	ModularFeeDouble    decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"modular_fee_double"`
	WorkersPasFee       decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"workers_pas_fee"`
	WorkersPasModuleFee decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"workers_pas_module_fee"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// FeeForRegistration resolves the scheduled fee for one billing unit of the
// given registration category. billingCount only matters for Modular (1 or 2
// modules). A zero or negative configured fee means the schedule was never
// set up for this level; callers must treat that as missing data, not as a
// free exam.
func (l *Level) FeeForRegistration(category string, billingCount int) (decimal.Decimal, error) {
	var fee decimal.Decimal

	switch NormalizeRegistrationCategory(category) {
	case RegistrationCategoryFormal:
		fee = l.FormalFee
	case RegistrationCategoryModular:
		switch billingCount {
		case 1:
			fee = l.ModularFeeSingle
		case 2:
			fee = l.ModularFeeDouble
		default:
			return decimal.Zero, fmt.Errorf("level %q: invalid modular billing count %d", l.Name, billingCount)
		}
	case RegistrationCategoryInformal:
		// Per-module Worker's PAS fee; the flat workers_pas_fee is the legacy
		// schedule some levels still carry.
		fee = l.WorkersPasModuleFee
		if !fee.IsPositive() {
			fee = l.WorkersPasFee
		}
	default:
		return decimal.Zero, fmt.Errorf("level %q: unknown registration category %q", l.Name, category)
	}

	if !fee.IsPositive() {
		return decimal.Zero, fmt.Errorf("level %q: no %s fee configured", l.Name, category)
	}
	return fee, nil
}
