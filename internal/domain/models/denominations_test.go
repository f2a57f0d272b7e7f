package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDenominationsValidate(t *testing.T) {
	tests := []struct {
		name    string
		denoms  Denominations
		wantErr bool
	}{
		{"default", DefaultDenominations, false},
		{"empty", Denominations{}, true},
		{"ascending", Denominations{1, 2, 5}, true},
		{"duplicate", Denominations{10, 10, 5}, true},
		{"zero", Denominations{5, 0}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.denoms.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDenominationsGreedy(t *testing.T) {
	inv, rem, err := DefaultDenominations.Greedy(2788)
	require.NoError(t, err)
	assert.Equal(t, 0, rem)
	assert.Equal(t, 2788, inv.Total())
	assert.Equal(t, []int{1, 1, 1, 0, 1, 1, 1, 1, 1, 1}, inv.Counts())

	inv, rem, err = Denominations{50, 20}.Greedy(75)
	require.NoError(t, err)
	assert.Equal(t, 5, rem)
	assert.Equal(t, 70, inv.Total())

	_, _, err = DefaultDenominations.Greedy(-1)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestDenominationsValue(t *testing.T) {
	d := Denominations{100, 10, 1}
	assert.Equal(t, 123, d.Value([]int{1, 2, 3}))
	assert.Equal(t, 100, d.Value([]int{1}))
	assert.Equal(t, 1, d.Index(10))
	assert.Equal(t, -1, d.Index(7))
}

func TestInventoryJSONKeepsOrder(t *testing.T) {
	inv := Inventory{{Value: 500, Count: 2}, {Value: 100, Count: 0}, {Value: 1, Count: 7}}
	b, err := json.Marshal(inv)
	require.NoError(t, err)
	assert.Equal(t, `{"500":2,"100":0,"1":7}`, string(b))

	var back Inventory
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, inv, back)
}

func TestNewChecklist(t *testing.T) {
	p := &PredictionResult{
		Date: "2024-06-15",
		Inventory: Inventory{
			{Value: 500, Count: 1}, {Value: 100, Count: 0}, {Value: 20, Count: 3},
			{Value: 10, Count: 4}, {Value: 2, Count: 0}, {Value: 1, Count: 9},
		},
	}
	cl := NewChecklist(p)
	assert.Equal(t, []DenominationCount{{500, 1}, {20, 3}}, cl.Notes)
	assert.Equal(t, []DenominationCount{{10, 4}, {1, 9}}, cl.Coins)
}

func TestSpikeHourLabel(t *testing.T) {
	assert.Equal(t, "18:00 - 19:00", SpikeHourLabel(18))
	assert.Equal(t, "8:00 - 9:00", SpikeHourLabel(8))
}

func TestTransactionEligibleForSplit(t *testing.T) {
	assert.True(t, (&Transaction{PaymentMethod: PaymentCash, ChangeGiven: 12}).EligibleForSplit())
	assert.False(t, (&Transaction{PaymentMethod: PaymentCash, ChangeGiven: 0}).EligibleForSplit())
	assert.False(t, (&Transaction{PaymentMethod: PaymentUPI, ChangeGiven: 12}).EligibleForSplit())
}
