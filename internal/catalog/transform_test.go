package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easycaremarket/b2b-catalog/internal/supplier"
)

func validRecord() supplier.RawRecord {
	return supplier.RawRecord{
		SKU:       "1234567890123",
		Name:      "Head & Shoulders Shampoo 400ml",
		Brand:     "procter & gamble",
		Category:  "hair care",
		Cost:      7.50,
		Inventory: 150,
		Supplier:  "Supplier A",
	}
}

func TestTransform_AppliesMarkup(t *testing.T) {
	tf := NewTransformer(1.10)

	cases := []struct {
		cost float64
		want float64
	}{
		{7.50, 8.25},
		{3.80, 4.18},
		{3.45, 3.80},  // 3.795 rounds half-up
		{1.25, 1.38},  // 1.375 rounds half-up
		{9.99, 10.99}, // 10.989
		{0, 0},
	}
	for _, c := range cases {
		raw := validRecord()
		raw.Cost = c.cost
		p, err := tf.Transform(raw)
		require.NoError(t, err, "cost %v", c.cost)
		assert.InDelta(t, c.want, p.RetailPrice, 0.0001, "cost %v", c.cost)
		assert.Equal(t, c.cost, p.CostPrice)
	}
}

func TestTransform_DefaultMarkupWhenUnset(t *testing.T) {
	tf := NewTransformer(0)
	p, err := tf.Transform(validRecord())
	require.NoError(t, err)
	assert.InDelta(t, 8.25, p.RetailPrice, 0.0001)
}

func TestTransform_NormalizesCategoricalFields(t *testing.T) {
	tf := NewTransformer(1.10)

	raw := validRecord()
	raw.Name = "  Oral-B Pro Expert Toothbrush "
	raw.Brand = " PROCTER & GAMBLE "
	raw.Category = "  oral care"

	p, err := tf.Transform(raw)
	require.NoError(t, err)
	assert.Equal(t, "Oral-B Pro Expert Toothbrush", p.Name)
	assert.Equal(t, "Procter & Gamble", p.Brand)
	assert.Equal(t, "Oral Care", p.Category)
	assert.True(t, p.Active)
}

func TestTransform_RejectsBadRecords(t *testing.T) {
	tf := NewTransformer(1.10)

	tests := []struct {
		name   string
		mutate func(*supplier.RawRecord)
	}{
		{"empty sku", func(r *supplier.RawRecord) { r.SKU = "" }},
		{"whitespace sku", func(r *supplier.RawRecord) { r.SKU = "   " }},
		{"negative cost", func(r *supplier.RawRecord) { r.Cost = -1 }},
		{"negative quantity", func(r *supplier.RawRecord) { r.Inventory = -5 }},
		{"fractional quantity", func(r *supplier.RawRecord) { r.Inventory = 2.5 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			raw := validRecord()
			tc.mutate(&raw)

			_, err := tf.Transform(raw)
			require.Error(t, err)

			var verr *ValidationError
			assert.True(t, errors.As(err, &verr), "expected ValidationError, got %T", err)
		})
	}
}

func TestRoundCurrency_HalfUp(t *testing.T) {
	assert.InDelta(t, 1.38, roundCurrency(1.375), 0.0001)
	assert.InDelta(t, 1.37, roundCurrency(1.374), 0.0001)
	assert.InDelta(t, 0.13, roundCurrency(0.125), 0.0001)
}
