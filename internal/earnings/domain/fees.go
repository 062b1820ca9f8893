package domain

import "github.com/shopspring/decimal"

// FeeModel estimates the payment processor's cut of a transaction.
type FeeModel struct {
	Percent decimal.Decimal
	Fixed   decimal.Decimal
}

func NewFeeModel(percent, fixed float64) FeeModel {
	return FeeModel{
		Percent: decimal.NewFromFloat(percent),
		Fixed:   decimal.NewFromFloat(fixed),
	}
}

// Net returns max(gross - (gross*Percent + Fixed), 0).
func (f FeeModel) Net(gross decimal.Decimal) decimal.Decimal {
	fee := gross.Mul(f.Percent).Add(f.Fixed)
	net := gross.Sub(fee)
	if net.IsNegative() {
		return decimal.Zero
	}
	return net
}
