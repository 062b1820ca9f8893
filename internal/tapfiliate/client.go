package tapfiliate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/railzwaylabs/partnerops/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("tapfiliate",
	fx.Provide(NewClient),
)

var ErrNotConfigured = errors.New("tapfiliate_not_configured")

const dateLayout = "2006-01-02"

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tapfiliate %s %s: status=%d body=%q", e.Method, e.Path, e.StatusCode, e.Body)
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *zap.Logger
}

func NewClient(cfg config.Config, log *zap.Logger) *Client {
	timeout := cfg.Tapfiliate.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.Tapfiliate.BaseURL, "/"),
		apiKey:  strings.TrimSpace(cfg.Tapfiliate.APIKey),
		http:    &http.Client{Timeout: timeout},
		log:     log.Named("tapfiliate.client"),
	}
}

// ListConversions returns one page of raw conversions created in [from, to).
// The API takes inclusive calendar dates, so to is moved back one day.
// Numbers are decoded as json.Number to keep amounts exact.
func (c *Client) ListConversions(ctx context.Context, programID string, from, to time.Time, page int) ([]map[string]any, error) {
	q := url.Values{}
	q.Set("program_id", programID)
	q.Set("date_from", from.UTC().Format(dateLayout))
	q.Set("date_to", to.UTC().AddDate(0, 0, -1).Format(dateLayout))
	q.Set("page", strconv.Itoa(page))

	var items []map[string]any
	if err := c.do(ctx, http.MethodGet, "/conversions/", q, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

type CreateAffiliateInput struct {
	FirstName string
	LastName  string
	Email     string
}

type affiliateRequest struct {
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Email     string `json:"email"`
}

type affiliateResponse struct {
	ID string `json:"id"`
}

// CreateAffiliate registers an affiliate and returns its id.
func (c *Client) CreateAffiliate(ctx context.Context, input CreateAffiliateInput) (string, error) {
	var out affiliateResponse
	err := c.do(ctx, http.MethodPost, "/affiliates/", nil, affiliateRequest{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
	}, &out)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out.ID) == "" {
		return "", fmt.Errorf("tapfiliate create affiliate: empty id in response")
	}
	return out.ID, nil
}

type programAffiliateRequest struct {
	Affiliate struct {
		ID string `json:"id"`
	} `json:"affiliate"`
	Approved bool   `json:"approved"`
	Coupon   string `json:"coupon,omitempty"`
}

// AddAffiliateToProgram enrolls an existing affiliate as approved. The
// referral code, when set, is used as the affiliate's coupon.
func (c *Client) AddAffiliateToProgram(ctx context.Context, programID, affiliateID, referralCode string) error {
	var body programAffiliateRequest
	body.Affiliate.ID = affiliateID
	body.Approved = true
	body.Coupon = referralCode

	path := "/programs/" + url.PathEscape(programID) + "/affiliates/"
	return c.do(ctx, http.MethodPost, path, nil, body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	if c.apiKey == "" || c.baseURL == "" {
		return ErrNotConfigured
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("tapfiliate %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("tapfiliate %s %s: read body: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn("tapfiliate request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: truncate(string(raw), 512)}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("tapfiliate %s %s: decode: %w", method, path, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
