package client

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
	"sync"
	"time"

	"github.com/car-storefront-api/internal/apperrors"
	"github.com/car-storefront-api/internal/config"
	"github.com/car-storefront-api/internal/models"
	"github.com/rs/zerolog"
)

const maxAttempts = 2

// Client talks to the storefront backend REST API
type Client struct {
	baseURL    string
	http       *http.Client
	retryDelay time.Duration
	log        zerolog.Logger

	mu    sync.RWMutex
	token string
}

// New creates a client. Every request is bounded by cfg.RequestTimeout.
func New(cfg config.ClientConfig, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BackendURL, "/"),
		http:       &http.Client{Timeout: cfg.RequestTimeout},
		retryDelay: cfg.RetryDelay,
		token:      cfg.Token,
		log:        log.With().Str("component", "backend_client").Logger(),
	}
}

// SetToken sets the bearer token sent with every request
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer token
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// FetchSettings loads the public site settings
func (c *Client) FetchSettings(ctx context.Context) (models.SiteSettings, error) {
	var settings models.SiteSettings
	err := c.do(ctx, http.MethodGet, "/api/settings", nil, &settings)
	return settings, err
}

// ListSellers returns every seller
func (c *Client) ListSellers(ctx context.Context) ([]models.Seller, error) {
	var sellers []models.Seller
	if err := c.do(ctx, http.MethodGet, "/api/admin/sellers", nil, &sellers); err != nil {
		return nil, err
	}
	return sellers, nil
}

// CreateCar creates one car
func (c *Client) CreateCar(ctx context.Context, input *models.CarInput) (*models.Car, error) {
	var car models.Car
	if err := c.do(ctx, http.MethodPost, "/api/admin/cars", input, &car); err != nil {
		return nil, err
	}
	return &car, nil
}

// Login authenticates and keeps the returned token for later calls
func (c *Client) Login(ctx context.Context, username, password string) (*models.LoginResponse, error) {
	var resp models.LoginResponse
	req := models.LoginRequest{Username: username, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", req, &resp); err != nil {
		return nil, err
	}
	c.SetToken(resp.Token)
	return &resp, nil
}

// ResolveImageURL turns a relative upload path into an absolute URL on the backend
func (c *Client) ResolveImageURL(u string) string {
	switch {
	case u == "":
		return ""
	case strings.HasPrefix(u, "http://"), strings.HasPrefix(u, "https://"):
		return u
	case strings.HasPrefix(u, "/"):
		return c.baseURL + u
	default:
		return c.baseURL + "/" + u
	}
}

// do sends one JSON request. For GET, connection failures and 502/503/504
// are retried once. Other methods are sent exactly once, since a gateway
// error can arrive after the backend already applied the write.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	attempts := 1
	if isIdempotent(method) {
		attempts = maxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}

		retry, err := c.attempt(ctx, method, path, payload, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry || attempt == attempts {
			return err
		}

		c.log.Warn().
			Err(err).
			Str("method", method).
			Str("path", path).
			Int("attempt", attempt).
			Msg("Transient backend failure")
	}
	return lastErr
}

func (c *Client) attempt(ctx context.Context, method, path string, payload []byte, out any) (retry bool, err error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return false, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		return true, apperrors.Wrap(err, apperrors.ErrUpstream, "The backend could not be reached: "+transportMessage(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return isTransientStatus(resp.StatusCode), decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return false, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, apperrors.Wrap(err, apperrors.ErrUpstream, "The backend returned an invalid response.")
	}
	return false, nil
}

func isIdempotent(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

func isTransientStatus(status int) bool {
	return status == http.StatusBadGateway ||
		status == http.StatusServiceUnavailable ||
		status == http.StatusGatewayTimeout
}

// errorBody covers both {"error": "..."} and {"detail": "..."} responses.
type errorBody struct {
	Error  string          `json:"error"`
	Detail json.RawMessage `json:"detail"`
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	kind := apperrors.FromStatus(resp.StatusCode)
	cause := fmt.Errorf("status %d", resp.StatusCode)

	message := ""
	var eb errorBody
	if json.Unmarshal(raw, &eb) == nil {
		message = eb.Error
		if message == "" && len(eb.Detail) > 0 {
			var detail string
			if json.Unmarshal(eb.Detail, &detail) == nil {
				message = detail
			} else {
				message = string(eb.Detail)
			}
		}
	}
	if message == "" {
		message = fmt.Sprintf("request failed with status code %d", resp.StatusCode)
	}

	return apperrors.Wrap(cause, kind, message)
}

func transportMessage(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return "request timed out"
		}
		return urlErr.Err.Error()
	}
	return err.Error()
}
