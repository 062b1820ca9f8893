package domain

import "errors"

var (
	ErrInvalidPeriod           = errors.New("invalid_period")
	ErrTapfiliateNotConfigured = errors.New("tapfiliate_not_configured")
	ErrConversionFetchFailed   = errors.New("conversion_fetch_failed")
	ErrLedgerWriteFailed       = errors.New("ledger_write_failed")
	ErrInvalidPartner          = errors.New("invalid_partner")
)
