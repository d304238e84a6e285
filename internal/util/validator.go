package util

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// maxAmount caps quantities and costs at one billion.
var maxAmount = decimal.NewFromInt(1_000_000_000)

// ValidateAmount checks a quantity or cost: not negative and below the cap.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("must not be negative, got %s", amount)
	}
	if amount.GreaterThanOrEqual(maxAmount) {
		return fmt.Errorf("too large, got %s", amount)
	}
	return nil
}

// ValidateDate checks the YYYY-MM-DD format.
func ValidateDate(dateStr string) error {
	if dateStr == "" {
		return fmt.Errorf("date is empty")
	}
	_, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return fmt.Errorf("invalid date format: %w", err)
	}
	return nil
}

// ValidateLabel checks a short free-text label such as a crop type.
func ValidateLabel(label string) error {
	if strings.TrimSpace(label) == "" {
		return fmt.Errorf("is empty")
	}
	if utf8.RuneCountInString(label) > 64 {
		return fmt.Errorf("too long, max 64 characters")
	}
	return nil
}

// ValidateKeySegment checks a value that becomes part of a store key, such
// as an owner id or a crop type. The store uses ':' as the namespace
// separator, so a value containing it would fall inside another value's
// prefix range.
func ValidateKeySegment(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("is empty")
	}
	if strings.ContainsRune(s, ':') {
		return fmt.Errorf("must not contain ':'")
	}
	return nil
}
