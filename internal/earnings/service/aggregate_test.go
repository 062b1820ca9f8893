package service

import (
	"encoding/json"
	"testing"

	"github.com/bwmarrin/snowflake"
	earningsdomain "github.com/railzwaylabs/partnerops/internal/earnings/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractAffiliateID(t *testing.T) {
	tests := []struct {
		name string
		conv earningsdomain.Conversion
		want string
		ok   bool
	}{
		{"nested object", earningsdomain.Conversion{"affiliate": map[string]any{"id": "A1"}}, "A1", true},
		{"flat field", earningsdomain.Conversion{"affiliate_id": "A2"}, "A2", true},
		{"plain string", earningsdomain.Conversion{"affiliate": "A3"}, "A3", true},
		{"numeric id", earningsdomain.Conversion{"affiliate_id": json.Number("42")}, "42", true},
		{"first commission", earningsdomain.Conversion{"commissions": []any{
			map[string]any{"affiliate": map[string]any{"id": "A4"}},
		}}, "A4", true},
		{"customer affiliate", earningsdomain.Conversion{"customer": map[string]any{
			"affiliate": map[string]any{"id": "A5"},
		}}, "A5", true},
		{"nested wins over flat", earningsdomain.Conversion{
			"affiliate":    map[string]any{"id": "first"},
			"affiliate_id": "second",
		}, "first", true},
		{"blank id", earningsdomain.Conversion{"affiliate": map[string]any{"id": "  "}}, "", false},
		{"empty commissions", earningsdomain.Conversion{"commissions": []any{}}, "", false},
		{"missing", earningsdomain.Conversion{"amount": 10.0}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractAffiliateID(tt.conv)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractCurrency(t *testing.T) {
	assert.Equal(t, "eur", extractCurrency(earningsdomain.Conversion{"currency": "EUR"}))
	assert.Equal(t, "gbp", extractCurrency(earningsdomain.Conversion{"commissions": []any{
		map[string]any{"currency": "GBP"},
	}}))
	assert.Equal(t, "usd", extractCurrency(earningsdomain.Conversion{}))
}

func TestExtractGross(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want string
		ok   bool
	}{
		{"float", 12.5, "12.5", true},
		{"json number", json.Number("99.99"), "99.99", true},
		{"string", " 7 ", "7", true},
		{"int", 3, "3", true},
		{"zero", 0.0, "", false},
		{"negative", -1.0, "", false},
		{"garbage", "n/a", "", false},
		{"bool", true, "", false},
		{"null", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractGross(earningsdomain.Conversion{"amount": tt.raw})
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got.String())
			}
		})
	}
}

func TestAggregate(t *testing.T) {
	affiliates := map[string]snowflake.ID{"A1": 20, "B2": 10}
	fees := earningsdomain.NewFeeModel(0.029, 0.30)

	conversions := []earningsdomain.Conversion{
		{"affiliate": map[string]any{"id": "A1"}, "amount": 100.0, "currency": "USD"},
		{"affiliate": map[string]any{"id": "A1"}, "amount": 100.0, "currency": "usd"},
		{"affiliate": map[string]any{"id": "A1"}, "amount": 50.0, "currency": "EUR"},
		{"affiliate_id": "B2", "amount": 0.20},
		{"affiliate_id": "ZZ", "amount": 5.0},
		{"amount": 5.0},
		{"affiliate_id": "B2", "amount": -5.0},
	}

	result := aggregate(conversions, affiliates, fees)
	require.Len(t, result.buckets, 3)

	// Fee larger than the sale clamps net to zero.
	assert.Equal(t, snowflake.ID(10), result.buckets[0].partnerID)
	assert.Equal(t, "0.2", result.buckets[0].gross.String())
	assert.True(t, result.buckets[0].net.IsZero())

	assert.Equal(t, "usd", result.buckets[0].currency)

	// One partner selling in two currencies gets one bucket per currency.
	assert.Equal(t, snowflake.ID(20), result.buckets[1].partnerID)
	assert.Equal(t, "eur", result.buckets[1].currency)
	assert.Equal(t, "50", result.buckets[1].gross.String())
	assert.Equal(t, "48.25", result.buckets[1].net.String())

	assert.Equal(t, snowflake.ID(20), result.buckets[2].partnerID)
	assert.Equal(t, "usd", result.buckets[2].currency)
	assert.Equal(t, "200", result.buckets[2].gross.String())
	assert.Equal(t, "193.6", result.buckets[2].net.String())

	assert.Equal(t, map[string]int{
		skipUnknownAffiliate: 1,
		skipMissingAffiliate: 1,
		skipInvalidAmount:    1,
	}, result.skipped)
}
