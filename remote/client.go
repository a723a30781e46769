// Package remote talks to the settings API of a running bridge.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/timzifer/rfbridge/document"
	"github.com/timzifer/rfbridge/service"
	"github.com/timzifer/rfbridge/settings"
)

// Client defines the settings operations offered by a bridge.
type Client interface {
	Get(ctx context.Context) (settings.Settings, error)
	Put(ctx context.Context, doc []byte) (Result, error)
	Reload(ctx context.Context) (settings.Settings, error)
}

// Result is the outcome of a settings update.
type Result struct {
	Settings settings.Settings
	// Skipped counts the entries the bridge ignored.
	Skipped int
	// SaveError is set when the bridge applied the update but could not
	// store it.
	SaveError string
}

// Endpoint locates a bridge.
type Endpoint struct {
	Address  string
	Username string
	Password string
	Timeout  time.Duration
}

// ClientFactory is responsible for creating clients for remote calls.
type ClientFactory func(endpoint Endpoint) (Client, error)

// StatusError reports a non-200 answer of the bridge.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bridge answered %d: %s", e.Code, e.Message)
}

type httpClient struct {
	endpoint Endpoint
	url      string
	client   *http.Client
}

// NewHTTPClientFactory returns a factory that creates HTTP clients.
func NewHTTPClientFactory() ClientFactory {
	return func(endpoint Endpoint) (Client, error) {
		if endpoint.Address == "" {
			return nil, fmt.Errorf("remote address is required")
		}
		address := endpoint.Address
		if !strings.Contains(address, "://") {
			address = "http://" + address
		}
		base, err := url.Parse(address)
		if err != nil {
			return nil, fmt.Errorf("parse remote address %s: %w", endpoint.Address, err)
		}
		base.Path = strings.TrimSuffix(base.Path, "/") + "/settings"
		timeout := endpoint.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		return &httpClient{
			endpoint: endpoint,
			url:      base.String(),
			client:   &http.Client{Timeout: timeout},
		}, nil
	}
}

func (c *httpClient) Get(ctx context.Context) (settings.Settings, error) {
	current, _, err := c.do(ctx, http.MethodGet, nil)
	return current, err
}

func (c *httpClient) Put(ctx context.Context, doc []byte) (Result, error) {
	current, header, err := c.do(ctx, http.MethodPut, doc)
	if err != nil {
		return Result{}, err
	}
	skipped, _ := strconv.Atoi(header.Get(service.SkippedHeader))
	return Result{Settings: current, Skipped: skipped, SaveError: header.Get(service.SaveErrorHeader)}, nil
}

func (c *httpClient) Reload(ctx context.Context) (settings.Settings, error) {
	current, _, err := c.do(ctx, http.MethodPost, nil)
	return current, err
}

func (c *httpClient) do(ctx context.Context, method string, body []byte) (settings.Settings, http.Header, error) {
	current := settings.Default()
	req, err := http.NewRequestWithContext(ctx, method, c.url, bytes.NewReader(body))
	if err != nil {
		return current, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.endpoint.Username != "" {
		req.SetBasicAuth(c.endpoint.Username, c.endpoint.Password)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return current, nil, fmt.Errorf("%s %s: %w", method, c.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return current, resp.Header, &StatusError{Code: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}
	doc, err := document.Decode(resp.Body)
	if err != nil {
		return current, resp.Header, fmt.Errorf("decode settings: %w", err)
	}
	current.Patch(doc, zerolog.Nop())
	return current, resp.Header, nil
}
