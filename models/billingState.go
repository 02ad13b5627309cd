package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ApplyComputedFee writes the computed fee onto the candidate's persisted
// billing state. Updates touch only the billing columns so concurrent edits
// to unrelated candidate fields are never clobbered.
//
// For Modular candidates the cached triple (fees_balance,
// modular_billing_amount, modular_module_count) is written in one statement;
// a half-updated triple is itself a defect the auditor looks for.
func ApplyComputedFee(tx *gorm.DB, c *Candidate, fee decimal.Decimal) error {
	updates := map[string]interface{}{
		"fees_balance": fee,
	}

	if NormalizeRegistrationCategory(c.RegistrationCategory) == RegistrationCategoryModular {
		var moduleCount int64
		if err := tx.Model(&CandidateModule{}).Where("candidate_id = ?", c.ID).Count(&moduleCount).Error; err != nil {
			return err
		}
		updates["modular_billing_amount"] = fee
		updates["modular_module_count"] = int(moduleCount)
	}

	if err := tx.Model(&Candidate{}).Where("id = ?", c.ID).Updates(updates).Error; err != nil {
		return err
	}

	// Keep the in-memory copy in step with what was persisted.
	c.FeesBalance = fee
	if amount, ok := updates["modular_billing_amount"]; ok {
		c.ModularBillingAmount = amount.(decimal.Decimal)
		c.ModularModuleCount = updates["modular_module_count"].(int)
	}
	return nil
}
