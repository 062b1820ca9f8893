package service

import (
	"sort"

	"github.com/bwmarrin/snowflake"
	earningsdomain "github.com/railzwaylabs/partnerops/internal/earnings/domain"
	"github.com/shopspring/decimal"
)

const (
	skipMissingAffiliate = "missing_affiliate"
	skipUnknownAffiliate = "unknown_affiliate"
	skipInvalidAmount    = "invalid_amount"
)

type bucketKey struct {
	partnerID snowflake.ID
	currency  string
}

type bucket struct {
	bucketKey
	gross decimal.Decimal
	net   decimal.Decimal
}

type aggregation struct {
	buckets []*bucket
	skipped map[string]int
}

// aggregate sums gross and estimated net revenue per (partner, currency).
// Conversions that cannot be attributed or carry no positive amount are skipped.
func aggregate(conversions []earningsdomain.Conversion, affiliates map[string]snowflake.ID, fees earningsdomain.FeeModel) aggregation {
	index := make(map[bucketKey]*bucket)
	result := aggregation{skipped: make(map[string]int)}

	for _, conv := range conversions {
		affiliateID, ok := extractAffiliateID(conv)
		if !ok {
			result.skipped[skipMissingAffiliate]++
			continue
		}
		partnerID, ok := affiliates[affiliateID]
		if !ok {
			result.skipped[skipUnknownAffiliate]++
			continue
		}
		gross, ok := extractGross(conv)
		if !ok {
			result.skipped[skipInvalidAmount]++
			continue
		}

		key := bucketKey{partnerID: partnerID, currency: extractCurrency(conv)}
		b, ok := index[key]
		if !ok {
			b = &bucket{bucketKey: key, gross: decimal.Zero, net: decimal.Zero}
			index[key] = b
			result.buckets = append(result.buckets, b)
		}
		b.gross = b.gross.Add(gross)
		b.net = b.net.Add(fees.Net(gross))
	}

	sort.Slice(result.buckets, func(i, j int) bool {
		if result.buckets[i].partnerID != result.buckets[j].partnerID {
			return result.buckets[i].partnerID < result.buckets[j].partnerID
		}
		return result.buckets[i].currency < result.buckets[j].currency
	})
	return result
}
