package server

import (
	"io"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

// StripeWebhook ingests a signed Stripe event. Duplicate and ignored events
// are acknowledged with 200 so Stripe stops retrying them.
func (s *Server) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.paymentSvc.IngestWebhook(c.Request.Context(), payload, c.Request.Header)
	if err != nil {
		s.log.Warn("stripe webhook rejected", zap.Error(err))
		AbortWithError(c, err)
		return
	}

	respondData(c, result)
}
