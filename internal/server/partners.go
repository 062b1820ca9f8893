package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

type linkAffiliateRequest struct {
	AffiliateID string `json:"affiliate_id"`
}

func (s *Server) ListPartners(c *gin.Context) {
	partners, err := s.partnerSvc.ListPartners(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondList(c, partners, len(partners))
}

func (s *Server) GetPartner(c *gin.Context) {
	partner, err := s.partnerSvc.GetPartner(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, partner)
}

// LinkAffiliate records the partner's affiliate network id. Only the first
// value is accepted.
func (s *Server) LinkAffiliate(c *gin.Context) {
	var req linkAffiliateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.AffiliateID) == "" {
		AbortWithError(c, newValidationError("affiliate_id", "required", "affiliate_id is required"))
		return
	}

	partner, err := s.partnerSvc.LinkAffiliate(c.Request.Context(), c.Param("id"), req.AffiliateID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, partner)
}

func (s *Server) PartnerStatement(c *gin.Context) {
	partnerID, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil || partnerID <= 0 {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid partner id"))
		return
	}
	period := strings.TrimSpace(c.Query("period"))
	if period == "" {
		AbortWithError(c, newValidationError("period", "required", "period is required"))
		return
	}

	records, err := s.earningsSvc.PartnerStatement(c.Request.Context(), partnerID, period)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondList(c, records, len(records))
}
