package mailinglist

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/railzwaylabs/partnerops/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSubscribe(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	p := NewProvider(config.Config{Mailing: config.MailingListConfig{
		Endpoint: srv.URL,
		APIKey:   "key",
		ListID:   "partners",
	}}, zap.NewNop())

	err := p.Subscribe(context.Background(), Subscriber{
		Email:  "ana@example.com",
		Name:   "Ana",
		Fields: map[string]string{"tier": "standard"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", got["email"])
	assert.Equal(t, "partners", got["list_id"])
	assert.Equal(t, map[string]any{"tier": "standard"}, got["fields"])
}

func TestSubscribeConflictIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	p := NewProvider(config.Config{Mailing: config.MailingListConfig{Endpoint: srv.URL, APIKey: "key"}}, zap.NewNop())
	require.NoError(t, p.Subscribe(context.Background(), Subscriber{Email: "ana@example.com"}))
}

func TestSubscribeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewProvider(config.Config{Mailing: config.MailingListConfig{Endpoint: srv.URL, APIKey: "key"}}, zap.NewNop())
	require.Error(t, p.Subscribe(context.Background(), Subscriber{Email: "ana@example.com"}))
}

func TestSubscribeDisabled(t *testing.T) {
	p := NewProvider(config.Config{}, zap.NewNop())
	assert.False(t, p.Enabled())
	require.NoError(t, p.Subscribe(context.Background(), Subscriber{Email: "ana@example.com"}))
	require.ErrorIs(t, p.Subscribe(context.Background(), Subscriber{}), ErrInvalidEmail)
}
