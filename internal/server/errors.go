package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	authdomain "github.com/railzwaylabs/partnerops/internal/auth/domain"
	earningsdomain "github.com/railzwaylabs/partnerops/internal/earnings/domain"
	partnerdomain "github.com/railzwaylabs/partnerops/internal/partner/domain"
	paymentdomain "github.com/railzwaylabs/partnerops/internal/payment/domain"
	taskdomain "github.com/railzwaylabs/partnerops/internal/tasks/domain"
)

const (
	errorTypeInvalidRequest = "invalid_request_error"
	errorTypeAuthentication = "authentication_error"
	errorTypeRateLimit      = "rate_limit_error"
	errorTypeNotFound       = "not_found_error"
	errorTypeConflict       = "conflict_error"
	errorTypeUpstream       = "upstream_error"
	errorTypeUnavailable    = "service_unavailable"
	errorTypeAPI            = "api_error"
)

// APIError is the error body returned to clients.
type APIError struct {
	Status  int    `json:"-"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return e.Message
}

var (
	ErrUnauthorized = &APIError{Status: http.StatusUnauthorized, Type: errorTypeAuthentication, Code: "unauthorized", Message: "unauthorized"}
	ErrNotFound     = &APIError{Status: http.StatusNotFound, Type: errorTypeNotFound, Code: "not_found", Message: "resource not found"}
)

func invalidRequestError() *APIError {
	return &APIError{Status: http.StatusBadRequest, Type: errorTypeInvalidRequest, Code: "invalid_request", Message: "invalid request"}
}

func newValidationError(field, code, message string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Type: errorTypeInvalidRequest, Code: code, Field: field, Message: message}
}

type errorMapping struct {
	target  error
	status  int
	errType string
	// exposeDetail returns the wrapped error text instead of the sentinel.
	exposeDetail bool
}

var errorMappings = []errorMapping{
	{earningsdomain.ErrInvalidPeriod, http.StatusBadRequest, errorTypeInvalidRequest, false},
	{earningsdomain.ErrInvalidPartner, http.StatusBadRequest, errorTypeInvalidRequest, false},
	{earningsdomain.ErrTapfiliateNotConfigured, http.StatusServiceUnavailable, errorTypeUnavailable, false},
	{earningsdomain.ErrConversionFetchFailed, http.StatusBadGateway, errorTypeUpstream, true},
	{earningsdomain.ErrLedgerWriteFailed, http.StatusInternalServerError, errorTypeAPI, false},

	{partnerdomain.ErrInvalidName, http.StatusBadRequest, errorTypeInvalidRequest, false},
	{partnerdomain.ErrInvalidEmail, http.StatusBadRequest, errorTypeInvalidRequest, false},
	{partnerdomain.ErrInvalidID, http.StatusBadRequest, errorTypeInvalidRequest, false},
	{partnerdomain.ErrInvalidStatus, http.StatusBadRequest, errorTypeInvalidRequest, false},
	{partnerdomain.ErrInvalidAffiliate, http.StatusBadRequest, errorTypeInvalidRequest, false},
	{partnerdomain.ErrNotFound, http.StatusNotFound, errorTypeNotFound, false},
	{partnerdomain.ErrDuplicateApplication, http.StatusConflict, errorTypeConflict, false},
	{partnerdomain.ErrApplicationNotPending, http.StatusConflict, errorTypeConflict, false},
	{partnerdomain.ErrAffiliateAlreadyLinked, http.StatusConflict, errorTypeConflict, false},
	{partnerdomain.ErrAffiliateInUse, http.StatusConflict, errorTypeConflict, false},

	{authdomain.ErrInvalidCredentials, http.StatusUnauthorized, errorTypeAuthentication, false},
	{authdomain.ErrUnauthorized, http.StatusUnauthorized, errorTypeAuthentication, false},
	{authdomain.ErrTooManyAttempts, http.StatusTooManyRequests, errorTypeRateLimit, false},
	{authdomain.ErrNotConfigured, http.StatusServiceUnavailable, errorTypeUnavailable, false},

	{paymentdomain.ErrInvalidSignature, http.StatusBadRequest, errorTypeInvalidRequest, false},
	{paymentdomain.ErrInvalidPayload, http.StatusBadRequest, errorTypeInvalidRequest, false},
	{paymentdomain.ErrInvalidEvent, http.StatusBadRequest, errorTypeInvalidRequest, false},
	{paymentdomain.ErrNotConfigured, http.StatusServiceUnavailable, errorTypeUnavailable, false},

	{taskdomain.ErrQueueFull, http.StatusServiceUnavailable, errorTypeUnavailable, false},
}

func toAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		message := m.target.Error()
		if m.exposeDetail {
			message = err.Error()
		}
		return &APIError{Status: m.status, Type: m.errType, Code: m.target.Error(), Message: message}
	}
	return &APIError{Status: http.StatusInternalServerError, Type: errorTypeAPI, Code: "internal_error", Message: "internal server error"}
}

// AbortWithError maps err onto an HTTP status and the standard error body.
// Unmapped errors become 500s and are attached to the context for logging.
func AbortWithError(c *gin.Context, err error) {
	apiErr := toAPIError(err)
	if apiErr.Status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(apiErr.Status, gin.H{"error": apiErr})
}
