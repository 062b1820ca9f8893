package stripe

import (
	"net/http"
	"testing"
	"time"

	paymentdomain "github.com/railzwaylabs/partnerops/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const checkoutPayload = `{
	"id": "evt_1",
	"type": "checkout.session.completed",
	"created": 1735689600,
	"data": {"object": {
		"id": "cs_1",
		"customer_details": {"email": "Buyer@Example.com", "name": "Buyer One"},
		"amount_total": 4900,
		"currency": "USD",
		"payment_status": "paid"
	}}
}`

func fixedAdapter(now time.Time) *Adapter {
	a := NewAdapter("whsec_test", time.Minute)
	a.now = func() time.Time { return now }
	return a
}

func TestVerify(t *testing.T) {
	now := time.Unix(1735689600, 0)
	a := fixedAdapter(now)
	payload := []byte(checkoutPayload)

	headers := http.Header{}
	headers.Set("Stripe-Signature", SignatureHeader("whsec_test", now.Add(-30*time.Second), payload))
	require.NoError(t, a.Verify(payload, headers))

	headers.Set("Stripe-Signature", SignatureHeader("whsec_other", now, payload))
	assert.ErrorIs(t, a.Verify(payload, headers), paymentdomain.ErrInvalidSignature)

	headers.Set("Stripe-Signature", SignatureHeader("whsec_test", now.Add(-2*time.Minute), payload))
	assert.ErrorIs(t, a.Verify(payload, headers), paymentdomain.ErrInvalidSignature)

	headers.Set("Stripe-Signature", SignatureHeader("whsec_test", now, payload))
	assert.ErrorIs(t, a.Verify([]byte(`{"tampered":true}`), headers), paymentdomain.ErrInvalidSignature)

	headers.Set("Stripe-Signature", "garbage")
	assert.ErrorIs(t, a.Verify(payload, headers), paymentdomain.ErrInvalidSignature)

	assert.ErrorIs(t, a.Verify(payload, http.Header{}), paymentdomain.ErrInvalidSignature)
}

func TestParseCheckoutCompleted(t *testing.T) {
	event, err := NewAdapter("whsec_test", 0).Parse([]byte(checkoutPayload))
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, paymentdomain.EventTypeCheckoutSessionCompleted, event.Type)
	require.NotNil(t, event.Checkout)
	assert.Equal(t, "cs_1", event.Checkout.ID)
	assert.Equal(t, "buyer@example.com", event.Checkout.CustomerEmail)
	assert.Equal(t, "Buyer One", event.Checkout.CustomerName)
	assert.Equal(t, int64(4900), event.Checkout.AmountTotal)
	assert.Equal(t, "usd", event.Checkout.Currency)
}

func TestParseOtherEvents(t *testing.T) {
	a := NewAdapter("whsec_test", 0)

	event, err := a.Parse([]byte(`{"id":"evt_2","type":"invoice.paid","data":{"object":{}}}`))
	require.NoError(t, err)
	assert.Nil(t, event.Checkout)

	_, err = a.Parse([]byte(`{"type":"invoice.paid"}`))
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidEvent)

	_, err = a.Parse([]byte(`not json`))
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidPayload)
}
