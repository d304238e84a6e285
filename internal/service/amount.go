package service

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Amount is a numeric form field. It accepts JSON numbers and numeric
// strings; an empty string or null is zero.
type Amount struct {
	decimal.Decimal
}

func NewAmount(f float64) Amount { return Amount{decimal.NewFromFloat(f)} }

func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) || bytes.Equal(b, []byte(`""`)) {
		a.Decimal = decimal.Zero
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			a.Decimal = decimal.Zero
			return nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return err
		}
		a.Decimal = d
		return nil
	}
	return a.Decimal.UnmarshalJSON(b)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

// sumAmounts adds amounts exactly.
func sumAmounts(values ...Amount) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v.Decimal)
	}
	return total
}
