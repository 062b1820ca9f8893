package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	earningsdomain "github.com/railzwaylabs/partnerops/internal/earnings/domain"
)

type syncEarningsRequest struct {
	Period string `json:"period"`
}

// SyncEarnings runs the reconciliation job for one period and returns the
// per partner totals.
func (s *Server) SyncEarnings(c *gin.Context) {
	var req syncEarningsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	summary, err := s.earningsSvc.SyncPeriod(c.Request.Context(), strings.TrimSpace(req.Period))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, summary)
}

func (s *Server) ListEarnings(c *gin.Context) {
	var filter earningsdomain.ListFilter

	if raw := strings.TrimSpace(c.Query("period")); raw != "" {
		period, err := earningsdomain.ParsePeriod(raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		filter.Period = &period
	}
	if raw := strings.TrimSpace(c.Query("partner_id")); raw != "" {
		partnerID, err := snowflake.ParseString(raw)
		if err != nil || partnerID <= 0 {
			AbortWithError(c, newValidationError("partner_id", "invalid_id", "invalid partner_id"))
			return
		}
		filter.PartnerID = partnerID
	}

	records, err := s.earningsSvc.List(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondList(c, records, len(records))
}
