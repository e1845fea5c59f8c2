package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"chargemap/backend/services/station-sync/internal/apperr"
)

// DeviceIDHeader carries the device identifier on requests and server-issued replacements on responses.
const DeviceIDHeader = "X-Device-ID"

const defaultReauthPath = "/devices/refresh"

// ErrOffline is the cause of NETWORK errors raised without touching the network.
var ErrOffline = errors.New("clients: offline")

// HTTPDoer defines http.Client interface subset.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// DeviceIdentity supplies and rotates the device identifier.
type DeviceIdentity interface {
	EnsureDeviceID(ctx context.Context) string
	Rotate(ctx context.Context, id string) bool
}

// OnlineChecker reports current connectivity. Optional.
type OnlineChecker interface {
	Online() bool
}

// Options tune BaseClient behaviour.
type Options struct {
	// ReauthPath is called with POST after a 401 to obtain a fresh device id.
	ReauthPath string
	Online     OnlineChecker
}

// BaseClient performs JSON requests against the stations backend.
type BaseClient struct {
	baseURL    string
	client     HTTPDoer
	identity   DeviceIdentity
	online     OnlineChecker
	reauthPath string
	logger     *zap.Logger
}

// NewBaseClient builds client with base URL.
func NewBaseClient(baseURL string, client HTTPDoer, identity DeviceIdentity, opts Options, logger *zap.Logger) *BaseClient {
	if opts.ReauthPath == "" {
		opts.ReauthPath = defaultReauthPath
	}
	return &BaseClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     client,
		identity:   identity,
		online:     opts.Online,
		reauthPath: opts.ReauthPath,
		logger:     logger.Named("rest"),
	}
}

func (c *BaseClient) buildURL(path string, query url.Values) string {
	var full string
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		full = path
	} else {
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		full = c.baseURL + path
	}
	if len(query) > 0 {
		full += "?" + query.Encode()
	}
	return full
}

// Do executes a request and decodes a JSON response into out (when non-nil).
// A 401 triggers exactly one re-authentication and one retry.
func (c *BaseClient) Do(ctx context.Context, method, path string, query url.Values, body interface{}, out interface{}) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return apperr.Wrap(apperr.KindValidation, apperr.CodeInvalid, err)
		}
		payload = data
	}

	retried := false
	for {
		status, respBody, err := c.send(ctx, method, path, query, payload)
		if err != nil {
			return err
		}

		if status == http.StatusUnauthorized && !retried {
			retried = true
			if err := c.reauthenticate(ctx); err != nil {
				return err
			}
			continue
		}

		if status < 200 || status >= 300 {
			return apperr.FromStatus(status, errorMessage(respBody))
		}
		if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
			return nil
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			return apperr.Wrap(apperr.KindAPI, apperr.CodeServerError, fmt.Errorf("decode %s %s: %w", method, path, err))
		}
		return nil
	}
}

func (c *BaseClient) send(ctx context.Context, method, path string, query url.Values, body []byte) (int, []byte, error) {
	if c.online != nil && !c.online.Online() {
		return 0, nil, apperr.Network(ErrOffline)
	}

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path, query), reader)
	if err != nil {
		return 0, nil, apperr.Wrap(apperr.KindValidation, apperr.CodeInvalid, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := c.identity.EnsureDeviceID(ctx); id != "" {
		req.Header.Set(DeviceIDHeader, id)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return 0, nil, apperr.Network(err)
	}
	defer resp.Body.Close()

	if issued := resp.Header.Get(DeviceIDHeader); issued != "" {
		c.identity.Rotate(ctx, issued)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, apperr.Network(err)
	}
	return resp.StatusCode, respBody, nil
}

type reauthRequest struct {
	PreviousDeviceID string `json:"previousDeviceId,omitempty"`
}

type reauthResponse struct {
	DeviceID string `json:"deviceId"`
}

func (c *BaseClient) reauthenticate(ctx context.Context) error {
	previous := c.identity.EnsureDeviceID(ctx)
	payload, err := json.Marshal(reauthRequest{PreviousDeviceID: previous})
	if err != nil {
		return err
	}

	status, body, err := c.send(ctx, http.MethodPost, c.reauthPath, nil, payload)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		c.logger.Warn("re-authentication rejected", zap.Int("status", status))
		return apperr.FromStatus(status, errorMessage(body))
	}

	var resp reauthResponse
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &resp); err != nil {
			return apperr.Wrap(apperr.KindAPI, apperr.CodeServerError, fmt.Errorf("decode re-authentication: %w", err))
		}
	}
	c.identity.Rotate(ctx, resp.DeviceID)

	current := c.identity.EnsureDeviceID(ctx)
	if current == previous {
		return apperr.New(apperr.KindAPI, apperr.CodeUnauthorized, "re-authentication returned no new device id")
	}
	c.logger.Info("re-authenticated device", zap.String("device_id", current))
	return nil
}

func errorMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Error != "" {
		return payload.Error
	}
	return payload.Message
}

// Get issues a GET and decodes the response into T.
func Get[T any](ctx context.Context, c *BaseClient, path string, params url.Values) (T, error) {
	var out T
	err := c.Do(ctx, http.MethodGet, path, params, nil, &out)
	return out, err
}

// Post issues a POST with a JSON body.
func Post[T any](ctx context.Context, c *BaseClient, path string, body interface{}) (T, error) {
	var out T
	err := c.Do(ctx, http.MethodPost, path, nil, body, &out)
	return out, err
}

// Put issues a PUT with a JSON body.
func Put[T any](ctx context.Context, c *BaseClient, path string, body interface{}) (T, error) {
	var out T
	err := c.Do(ctx, http.MethodPut, path, nil, body, &out)
	return out, err
}

// Delete issues a DELETE.
func Delete[T any](ctx context.Context, c *BaseClient, path string) (T, error) {
	var out T
	err := c.Do(ctx, http.MethodDelete, path, nil, nil, &out)
	return out, err
}

// NewDefaultHTTPClient returns *http.Client with timeout.
func NewDefaultHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
