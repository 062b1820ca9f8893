package mailinglist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/railzwaylabs/partnerops/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("mailinglist",
	fx.Provide(NewProvider),
)

var ErrInvalidEmail = errors.New("invalid_email")

type Subscriber struct {
	Email  string
	Name   string
	Fields map[string]string
}

type Provider struct {
	endpoint string
	apiKey   string
	listID   string
	enabled  bool
	client   *http.Client
	log      *zap.Logger
}

func NewProvider(cfg config.Config, log *zap.Logger) *Provider {
	timeout := cfg.Mailing.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Provider{
		endpoint: strings.TrimSpace(cfg.Mailing.Endpoint),
		apiKey:   strings.TrimSpace(cfg.Mailing.APIKey),
		listID:   strings.TrimSpace(cfg.Mailing.ListID),
		enabled:  cfg.Mailing.Enabled(),
		client:   &http.Client{Timeout: timeout},
		log:      log.Named("mailinglist.provider"),
	}
}

func (p *Provider) Enabled() bool {
	return p.enabled
}

// Subscribe adds the subscriber to the configured list. Without a configured
// endpoint it only logs.
func (p *Provider) Subscribe(ctx context.Context, sub Subscriber) error {
	email := strings.TrimSpace(sub.Email)
	if email == "" {
		return ErrInvalidEmail
	}
	if !p.enabled {
		p.log.Info("mailing list disabled, subscription skipped", zap.String("email", email))
		return nil
	}

	msg := map[string]any{
		"email": email,
		"name":  strings.TrimSpace(sub.Name),
	}
	if p.listID != "" {
		msg["list_id"] = p.listID
	}
	if len(sub.Fields) > 0 {
		msg["fields"] = sub.Fields
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// 409 means the address is already on the list.
	if resp.StatusCode == http.StatusConflict {
		return nil
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("mailing_list_error: status=%d", resp.StatusCode)
	}
	return nil
}
