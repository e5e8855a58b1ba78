package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"

	"github.com/skillswap/swapclient/pkg/config"
)

// Client is the shared REST plumbing for the auth and identity
// collaborators. It owns one HTTP client with a cookie jar so the
// server-set session cookies ride along on subsequent calls within the
// process; the access token itself is still passed around explicitly.
type Client struct {
	cfg        config.APIConfig
	info       config.ClientInfo
	httpClient *http.Client
}

// NewClient creates a REST client for the configured API. A custom HTTP
// client may be supplied; pass nil to get a default one with a cookie jar.
func NewClient(cfg config.APIConfig, info config.ClientInfo, httpClient *http.Client) (*Client, error) {
	if httpClient == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		httpClient = &http.Client{
			Jar:     jar,
			Timeout: cfg.RequestTimeout,
		}
	}

	return &Client{
		cfg:        cfg,
		info:       info,
		httpClient: httpClient,
	}, nil
}

// do sends a JSON request and returns the raw response. The caller owns
// closing the body. A non-nil token is attached as the session cookie.
func (c *Client) do(ctx context.Context, method, path, token string, payload interface{}) (*http.Response, error) {
	var body *bytes.Reader
	if payload != nil {
		reqBody, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(reqBody)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.info.Name+"/"+c.info.Version)

	if token != "" {
		req.AddCookie(&http.Cookie{Name: c.cfg.TokenCookieName, Value: token})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	return resp, nil
}

// doJSON sends a JSON request and decodes a 2xx response body into out.
// Non-2xx responses become AuthErrors carrying the server's detail.
func (c *Client) doJSON(ctx context.Context, method, path, token string, payload, out interface{}) (*http.Response, error) {
	resp, err := c.do(ctx, method, path, token, payload)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, errorFromResponse(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp, fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return resp, nil
}

// tokenFromResponse extracts the access-token cookie the server set on
// this response. Returning it explicitly keeps the credential out of
// ambient storage; callers thread it to whatever needs it next.
func (c *Client) tokenFromResponse(resp *http.Response) string {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == c.cfg.TokenCookieName {
			return cookie.Value
		}
	}
	return ""
}
