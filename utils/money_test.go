package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatUGX(t *testing.T) {
	assert.Equal(t, "UGX 0.00", FormatUGX(decimal.Zero))
	assert.Equal(t, "UGX 40,000.00", FormatUGX(decimal.NewFromInt(40000)))
	assert.Equal(t, "UGX 1,234,567.89", FormatUGX(decimal.NewFromFloat(1234567.89)))
	assert.Equal(t, "UGX 999.50", FormatUGX(decimal.NewFromFloat(999.5)))
	assert.Equal(t, "UGX -90,000.00", FormatUGX(decimal.NewFromInt(-90000)))
}
