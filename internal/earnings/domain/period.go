package domain

import (
	"regexp"
	"strconv"
	"time"
)

var periodPattern = regexp.MustCompile(`^(\d{4})-(0[1-9]|1[0-2])$`)

// Period is a calendar month in UTC.
type Period struct {
	Year  int
	Month time.Month
}

// ParsePeriod accepts strictly YYYY-MM.
func ParsePeriod(value string) (Period, error) {
	m := periodPattern.FindStringSubmatch(value)
	if m == nil {
		return Period{}, ErrInvalidPeriod
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return Period{}, ErrInvalidPeriod
	}
	month, err := strconv.Atoi(m[2])
	if err != nil {
		return Period{}, ErrInvalidPeriod
	}
	return Period{Year: year, Month: time.Month(month)}, nil
}

// PeriodOf returns the month containing t, evaluated in UTC.
func PeriodOf(t time.Time) Period {
	t = t.UTC()
	return Period{Year: t.Year(), Month: t.Month()}
}

// Start is the first instant of the month, which is also the ledger key.
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End is the first instant of the following month (exclusive bound).
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, 0)
}

func (p Period) Previous() Period {
	return PeriodOf(p.Start().AddDate(0, -1, 0))
}

func (p Period) String() string {
	return p.Start().Format("2006-01")
}
