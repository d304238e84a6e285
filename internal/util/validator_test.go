package util

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidateAmount(t *testing.T) {
	for _, s := range []string{"0", "0.01", "1", "100.5", "999999999.99"} {
		assert.NoError(t, ValidateAmount(decimal.RequireFromString(s)), s)
	}
	for _, s := range []string{"-0.01", "-100", "1000000000", "5000000000"} {
		assert.Error(t, ValidateAmount(decimal.RequireFromString(s)), s)
	}
}

func TestValidateDate_Valid(t *testing.T) {
	for _, date := range []string{"2024-01-01", "2024-12-31", "2025-06-15"} {
		assert.NoError(t, ValidateDate(date), date)
	}
}

func TestValidateDate_InvalidFormat(t *testing.T) {
	for _, date := range []string{
		"",
		"2024/01/01",
		"01-01-2024",
		"2024-1-1",
		"not-a-date",
		"2024-13-01",
		"2024-01-32",
	} {
		assert.Error(t, ValidateDate(date), date)
	}
}

func TestValidateLabel(t *testing.T) {
	for _, label := range []string{"Wheat", "Basmati Rice", "Organic Tomatoes"} {
		assert.NoError(t, ValidateLabel(label))
	}
	assert.Error(t, ValidateLabel(""))
	assert.Error(t, ValidateLabel("   "))
	assert.Error(t, ValidateLabel(strings.Repeat("x", 65)))
}

func TestValidateKeySegment(t *testing.T) {
	for _, s := range []string{"F1", "FARMER-001", "Basmati Rice", "3f2a6c1e-9b7d-4c55-8a0e-1d2f3a4b5c6d"} {
		assert.NoError(t, ValidateKeySegment(s), s)
	}
	for _, s := range []string{"", "  ", "F1:x", "Rice:Basmati", ":"} {
		assert.Error(t, ValidateKeySegment(s), s)
	}
}
