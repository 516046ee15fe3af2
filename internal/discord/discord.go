package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultTokenURL = "https://discord.com/api/oauth2/token"

// ErrNoAccessToken means Discord answered but the body carried no
// usable token (bad code, revoked app, etc).
var ErrNoAccessToken = errors.New("token response missing access_token")

// Client performs the OAuth2 authorization-code exchange on behalf of
// the embedded app. The client secret never reaches the browser.
type Client struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	MaxRetries   int
	HTTPClient   *http.Client

	sleep func(time.Duration) // stubbed in tests
}

func NewClient(clientID, clientSecret string) *Client {
	return &Client{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     defaultTokenURL,
		MaxRetries:   3,
		HTTPClient:   &http.Client{Timeout: 10 * time.Second},
		sleep:        time.Sleep,
	}
}

// ExchangeCode trades an authorization code for an access token.
// Rate-limit responses with a parseable Retry-After are waited out and
// retried; transport failures are retried up to MaxRetries.
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	form := url.Values{
		"client_id":     {c.ClientID},
		"client_secret": {c.ClientSecret},
		"grant_type":    {"authorization_code"},
		"code":          {code},
	}

	resp, err := c.postFormWithRetry(ctx, form)
	if err != nil {
		return "", fmt.Errorf("exchange code: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if body.AccessToken == "" {
		return "", ErrNoAccessToken
	}
	return body.AccessToken, nil
}

func (c *Client) postFormWithRetry(ctx context.Context, form url.Values) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.TokenURL,
			strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			secs, err := strconv.Atoi(resp.Header.Get("Retry-After"))
			if err != nil {
				// No usable Retry-After; hand the 429 back as-is.
				return resp, nil
			}
			resp.Body.Close()
			lastErr = errors.New("rate limited")
			c.sleep(time.Duration(secs) * time.Second)
			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("retries exhausted: %w", lastErr)
}
