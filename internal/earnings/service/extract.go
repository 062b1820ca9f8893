package service

import (
	"encoding/json"
	"strconv"
	"strings"

	earningsdomain "github.com/railzwaylabs/partnerops/internal/earnings/domain"
	"github.com/shopspring/decimal"
)

const defaultCurrency = "usd"

// fieldRule reads one value out of a conversion, reporting whether it matched.
type fieldRule struct {
	name    string
	extract func(earningsdomain.Conversion) (string, bool)
}

// affiliateIDRules are tried in order; the first match wins.
var affiliateIDRules = []fieldRule{
	{name: "affiliate.id", extract: nestedString("affiliate", "id")},
	{name: "affiliate_id", extract: nestedString("affiliate_id")},
	{name: "affiliate", extract: nestedString("affiliate")},
	{name: "commissions[0].affiliate.id", extract: firstCommission(nestedString("affiliate", "id"))},
	{name: "customer.affiliate.id", extract: nestedString("customer", "affiliate", "id")},
}

var currencyRules = []fieldRule{
	{name: "currency", extract: nestedString("currency")},
	{name: "commissions[0].currency", extract: firstCommission(nestedString("currency"))},
}

func extractFirst(rules []fieldRule, conv earningsdomain.Conversion) (string, bool) {
	for _, rule := range rules {
		if v, ok := rule.extract(conv); ok {
			return v, true
		}
	}
	return "", false
}

func extractAffiliateID(conv earningsdomain.Conversion) (string, bool) {
	return extractFirst(affiliateIDRules, conv)
}

func extractCurrency(conv earningsdomain.Conversion) string {
	if v, ok := extractFirst(currencyRules, conv); ok {
		return strings.ToLower(v)
	}
	return defaultCurrency
}

// extractGross returns the conversion amount when it is a positive number.
func extractGross(conv earningsdomain.Conversion) (decimal.Decimal, bool) {
	raw, ok := conv["amount"]
	if !ok || raw == nil {
		return decimal.Zero, false
	}

	var (
		amount decimal.Decimal
		err    error
	)
	switch v := raw.(type) {
	case json.Number:
		amount, err = decimal.NewFromString(v.String())
	case float64:
		amount = decimal.NewFromFloat(v)
	case int:
		amount = decimal.NewFromInt(int64(v))
	case int64:
		amount = decimal.NewFromInt(v)
	case string:
		amount, err = decimal.NewFromString(strings.TrimSpace(v))
	default:
		return decimal.Zero, false
	}
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, false
	}
	return amount, true
}

func nestedString(path ...string) func(earningsdomain.Conversion) (string, bool) {
	return func(conv earningsdomain.Conversion) (string, bool) {
		return lookupString(map[string]any(conv), path)
	}
}

func firstCommission(next func(earningsdomain.Conversion) (string, bool)) func(earningsdomain.Conversion) (string, bool) {
	return func(conv earningsdomain.Conversion) (string, bool) {
		list, ok := conv["commissions"].([]any)
		if !ok || len(list) == 0 {
			return "", false
		}
		first, ok := list[0].(map[string]any)
		if !ok {
			return "", false
		}
		return next(earningsdomain.Conversion(first))
	}
}

func lookupString(obj map[string]any, path []string) (string, bool) {
	var cur any = obj
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		cur, ok = m[key]
		if !ok {
			return "", false
		}
	}
	return scalarString(cur)
}

func scalarString(v any) (string, bool) {
	var s string
	switch val := v.(type) {
	case string:
		s = val
	case json.Number:
		s = val.String()
	case float64:
		s = strconv.FormatFloat(val, 'f', -1, 64)
	case int64:
		s = strconv.FormatInt(val, 10)
	case int:
		s = strconv.Itoa(val)
	default:
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}
