package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	partnerdomain "github.com/railzwaylabs/partnerops/internal/partner/domain"
)

type rejectApplicationRequest struct {
	Reason string `json:"reason"`
}

// SubmitApplication is the public partner application form endpoint.
func (s *Server) SubmitApplication(c *gin.Context) {
	var req partnerdomain.SubmitApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	app, err := s.partnerSvc.SubmitApplication(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondCreated(c, app)
}

func (s *Server) ListApplications(c *gin.Context) {
	apps, err := s.partnerSvc.ListApplications(c.Request.Context(), strings.TrimSpace(c.Query("status")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondList(c, apps, len(apps))
}

func (s *Server) GetApplication(c *gin.Context) {
	app, err := s.partnerSvc.GetApplication(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, app)
}

// ApproveApplication creates the partner. Onboarding with the affiliate
// network and the mailing list continues in the background.
func (s *Server) ApproveApplication(c *gin.Context) {
	partner, err := s.partnerSvc.ApproveApplication(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, partner)
}

func (s *Server) RejectApplication(c *gin.Context) {
	var req rejectApplicationRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	app, err := s.partnerSvc.RejectApplication(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, app)
}
