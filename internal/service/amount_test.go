package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmountUnmarshal(t *testing.T) {
	var v struct {
		A, B, C, D Amount
	}
	require.NoError(t, json.Unmarshal([]byte(`{"A": 12.5, "B": "7.25", "C": "", "D": null}`), &v))
	assert.Equal(t, "12.5", v.A.String())
	assert.Equal(t, "7.25", v.B.String())
	assert.True(t, v.C.IsZero())
	assert.True(t, v.D.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`{"A": "twelve"}`), &v))
	assert.Error(t, json.Unmarshal([]byte(`{"A": true}`), &v))
}

func TestSumAmounts(t *testing.T) {
	// 0.1 + 0.2 is exact in decimal
	assert.Equal(t, "0.3", sumAmounts(NewAmount(0.1), NewAmount(0.2)).String())
}
