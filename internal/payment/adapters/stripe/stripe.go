package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	paymentdomain "github.com/railzwaylabs/partnerops/internal/payment/domain"
)

const DefaultTolerance = 5 * time.Minute

type Adapter struct {
	webhookSecret string
	tolerance     time.Duration
	now           func() time.Time
}

func NewAdapter(webhookSecret string, tolerance time.Duration) *Adapter {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Adapter{
		webhookSecret: strings.TrimSpace(webhookSecret),
		tolerance:     tolerance,
		now:           time.Now,
	}
}

// Verify checks the Stripe-Signature header: an HMAC-SHA256 over
// "<t>.<payload>" whose timestamp must lie within the tolerance window.
func (a *Adapter) Verify(payload []byte, headers http.Header) error {
	sigHeader := strings.TrimSpace(headers.Get("Stripe-Signature"))
	if sigHeader == "" {
		return paymentdomain.ErrInvalidSignature
	}

	ts, signatures, err := parseStripeSignature(sigHeader)
	if err != nil {
		return paymentdomain.ErrInvalidSignature
	}

	seconds, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return paymentdomain.ErrInvalidSignature
	}
	age := a.now().Sub(time.Unix(seconds, 0))
	if age < 0 {
		age = -age
	}
	if age > a.tolerance {
		return paymentdomain.ErrInvalidSignature
	}

	expected := sign(a.webhookSecret, ts, payload)
	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}

	return paymentdomain.ErrInvalidSignature
}

func (a *Adapter) Parse(payload []byte) (*paymentdomain.Event, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" || strings.TrimSpace(event.Type) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	out := &paymentdomain.Event{
		ID:         strings.TrimSpace(event.ID),
		Type:       strings.TrimSpace(event.Type),
		OccurredAt: timestamp(event.Created, 0),
	}
	if out.Type != paymentdomain.EventTypeCheckoutSessionCompleted {
		return out, nil
	}

	var session stripeCheckoutSession
	if err := json.Unmarshal(event.Data.Object, &session); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}

	email := strings.TrimSpace(session.CustomerDetails.Email)
	if email == "" {
		email = strings.TrimSpace(session.CustomerEmail)
	}
	out.Checkout = &paymentdomain.CheckoutSession{
		ID:            session.ID,
		CustomerEmail: strings.ToLower(email),
		CustomerName:  strings.TrimSpace(session.CustomerDetails.Name),
		AmountTotal:   session.AmountTotal,
		Currency:      strings.ToLower(strings.TrimSpace(session.Currency)),
		PaymentStatus: session.PaymentStatus,
	}
	out.OccurredAt = timestamp(session.Created, event.Created)
	return out, nil
}

// SignatureHeader builds a Stripe-Signature value for payload, as Stripe
// would send it.
func SignatureHeader(secret string, at time.Time, payload []byte) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	return fmt.Sprintf("t=%s,v1=%s", ts, sign(secret, ts, payload))
}

func sign(secret, ts string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(ts))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

type stripeEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    stripeEventData `json:"data"`
}

type stripeEventData struct {
	Object json.RawMessage `json:"object"`
}

type stripeCheckoutSession struct {
	ID              string                `json:"id"`
	CustomerEmail   string                `json:"customer_email"`
	CustomerDetails stripeCustomerDetails `json:"customer_details"`
	PaymentStatus   string                `json:"payment_status"`
	AmountTotal     int64                 `json:"amount_total"`
	Currency        string                `json:"currency"`
	Created         int64                 `json:"created"`
}

type stripeCustomerDetails struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func parseStripeSignature(header string) (string, []string, error) {
	parts := strings.Split(header, ",")
	var timestamp string
	signatures := []string{}
	for _, part := range parts {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		if key == "t" {
			timestamp = value
		}
		if key == "v1" {
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, errors.New("invalid_signature")
	}
	return timestamp, signatures, nil
}

func timestamp(primary int64, fallback int64) time.Time {
	if primary > 0 {
		return time.Unix(primary, 0).UTC()
	}
	if fallback > 0 {
		return time.Unix(fallback, 0).UTC()
	}
	return time.Now().UTC()
}

var _ paymentdomain.WebhookAdapter = (*Adapter)(nil)
