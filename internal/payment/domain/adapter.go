package domain

import "net/http"

// WebhookAdapter verifies and decodes a provider's webhook deliveries.
type WebhookAdapter interface {
	Verify(payload []byte, headers http.Header) error
	Parse(payload []byte) (*Event, error)
}
