// Package gateway is a thin JSON/HTTP client for the kiosk's hardware
// controller. Every call is a single round trip; there is no retry.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"charging-kiosk-backend/config"
)

// maxResponseBytes bounds how much of a gateway reply is read.
const maxResponseBytes = 64 << 10

// Client talks to the device gateway.
type Client struct {
	baseURL       string
	client        *http.Client
	minConfidence int
}

// NewClient creates a gateway client from configuration.
func NewClient(cfg config.GatewayConfig, logger *slog.Logger) *Client {
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			logger.Warn("invalid gateway proxy URL, connecting directly", "proxy", cfg.HTTPProxy, "error", err)
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		minConfidence: cfg.MinConfidence,
	}
}

// SetRelay switches the charging relay of a slot.
func (c *Client) SetRelay(ctx context.Context, slot int, on bool) error {
	return c.do(ctx, http.MethodPost, "/api/relay", relayRequest{SlotNumber: slot, State: on}, nil)
}

// SetLock engages or releases a slot's solenoid until told otherwise.
func (c *Client) SetLock(ctx context.Context, slot int, locked bool) error {
	return c.SetLockFor(ctx, slot, locked, 0)
}

// SetLockFor drives the solenoid into the given state for d, after which the
// gateway reverts it. A zero duration holds the state.
func (c *Client) SetLockFor(ctx context.Context, slot int, locked bool, d time.Duration) error {
	req := solenoidRequest{SlotNumber: slot, Locked: locked, Duration: int(d / time.Second)}
	return c.do(ctx, http.MethodPost, "/api/solenoid", req, nil)
}

// SetUVLight switches the UV sanitizer of a slot.
func (c *Client) SetUVLight(ctx context.Context, slot int, on bool) error {
	return c.do(ctx, http.MethodPost, "/api/uv-light", relayRequest{SlotNumber: slot, State: on}, nil)
}

// PulseUnlock opens a slot's lock briefly; the pulse length is owned by the gateway.
func (c *Client) PulseUnlock(ctx context.Context, slot int) error {
	return c.do(ctx, http.MethodPost, "/api/solenoid/unlock-temp", slotRequest{SlotNumber: slot}, nil)
}

// VerifyFingerprint asks the reader to match a live scan against id.
func (c *Client) VerifyFingerprint(ctx context.Context, id int) (VerifyResult, error) {
	var res VerifyResult
	if err := c.do(ctx, http.MethodPost, "/api/fingerprint/verify", fingerprintRequest{FingerprintID: id}, &res); err != nil {
		return VerifyResult{}, err
	}
	if !res.IsValid {
		return res, fmt.Errorf("%w: fingerprint %d not matched", ErrRequestFailed, id)
	}
	// A zero id means the gateway did not report which template matched.
	if res.FingerprintID != 0 && res.FingerprintID != id {
		return res, fmt.Errorf("%w: fingerprint matched %d, expected %d", ErrRequestFailed, res.FingerprintID, id)
	}
	if c.minConfidence > 0 && res.Confidence < c.minConfidence {
		return res, fmt.Errorf("%w: fingerprint confidence %d below %d", ErrRequestFailed, res.Confidence, c.minConfidence)
	}
	return res, nil
}

// EnrollFingerprint stores a new template on the reader under id.
func (c *Client) EnrollFingerprint(ctx context.Context, id int) error {
	var res enrollResponse
	if err := c.do(ctx, http.MethodPost, "/api/fingerprint/enroll", fingerprintRequest{FingerprintID: id}, &res); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("%w: enrollment of %d rejected: %s", ErrRequestFailed, id, res.Error)
	}
	return nil
}

// ReadCoinSlotValue returns the value of the most recently inserted coin, or
// zero when nothing was inserted or the read failed.
func (c *Client) ReadCoinSlotValue(ctx context.Context) (decimal.Decimal, error) {
	var res coinSlotResponse
	if err := c.do(ctx, http.MethodGet, "/api/coin-slot", nil, &res); err != nil {
		return decimal.Zero, err
	}
	if res.Value.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative coin value %s", ErrRequestFailed, res.Value)
	}
	return res.Value, nil
}

// Health reports whether the gateway is up and has a controller attached.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	var res HealthStatus
	if err := c.do(ctx, http.MethodGet, "/health", nil, &res); err != nil {
		return HealthStatus{}, err
	}
	return res, nil
}

// do performs one request. body is JSON-encoded when non-nil and the reply is
// decoded into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: failed to marshal request: %v", ErrRequestFailed, err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %v", ErrRequestFailed, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrRequestFailed, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return fmt.Errorf("%w: %s %s: status %d", ErrRequestFailed, method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: failed to read response body: %v", ErrRequestFailed, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: malformed response from %s: %v", ErrRequestFailed, path, err)
	}
	return nil
}
