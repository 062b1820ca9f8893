package service

import (
	"context"
	"fmt"

	earningsdomain "github.com/railzwaylabs/partnerops/internal/earnings/domain"
	"go.uber.org/zap"
)

// fetchConversions walks pages 1..maxPages sequentially. A short page ends the
// walk; any failed page fails the whole fetch so aggregation never sees a
// partial month.
func (s *Service) fetchConversions(ctx context.Context, period earningsdomain.Period) ([]earningsdomain.Conversion, error) {
	var out []earningsdomain.Conversion

	for page := 1; page <= s.maxPages; page++ {
		items, err := s.source.ListConversions(ctx, s.programID, period.Start(), period.End(), page)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %w", earningsdomain.ErrConversionFetchFailed, page, err)
		}
		for _, item := range items {
			out = append(out, earningsdomain.Conversion(item))
		}
		if len(items) < s.pageSize {
			return out, nil
		}
	}

	s.log.Warn("conversion fetch stopped at page cap",
		zap.String("period", period.String()),
		zap.Int("max_pages", s.maxPages),
		zap.Int("conversions", len(out)))
	return out, nil
}
