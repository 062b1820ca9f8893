package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("2025-01")
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), p.Start())
	require.Equal(t, time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC), p.End())
	require.Equal(t, "2025-01", p.String())
}

func TestParsePeriod_December(t *testing.T) {
	p, err := ParsePeriod("2024-12")
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), p.End())
	require.Equal(t, "2024-11", p.Previous().String())
}

func TestParsePeriod_Rejects(t *testing.T) {
	for _, value := range []string{"2025/01", "2025-1", "2025-13", "2025-00", "25-01", " 2025-01", "2025-01-01", ""} {
		_, err := ParsePeriod(value)
		require.ErrorIs(t, err, ErrInvalidPeriod, value)
	}
}

func TestPeriodOf(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	// 2025-03-01 05:00 at UTC+9 is still February in UTC.
	p := PeriodOf(time.Date(2025, time.March, 1, 5, 0, 0, 0, loc))
	require.Equal(t, "2025-02", p.String())
}
