package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"microgrid-console/internal/domain"
)

const maxBody = 8 << 20

type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// WSEndpoint rewrites the base URL to its websocket form and appends /ws.
func (c *Client) WSEndpoint() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse backend url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}

type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	User        domain.User `json:"user"`
}

func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	body := map[string]string{"username": username, "password": password}
	var out LoginResponse
	if err := c.postJSON(ctx, "/auth/login", body, &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, &ValidationError{Endpoint: "/auth/login", Reason: "missing access_token"}
	}
	return &out, nil
}

func (c *Client) SensorHistory(ctx context.Context, hours int) ([]domain.SensorReading, error) {
	params := url.Values{}
	params.Set("hours", strconv.Itoa(hours))
	var out []domain.SensorReading
	if err := c.getJSON(ctx, "/api/sensordata", params, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.SensorReading{}
	}
	return out, nil
}

func (c *Client) LatestReading(ctx context.Context) (*domain.SensorReading, error) {
	b, code, err := c.get(ctx, "/api/sensordata/latest", nil)
	if err != nil {
		return nil, err
	}
	if code == http.StatusNotFound {
		return nil, nil // no readings yet
	}
	if err := c.statusError(code, "/api/sensordata/latest", b); err != nil {
		return nil, err
	}
	var out domain.SensorReading
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, &ValidationError{Endpoint: "/api/sensordata/latest", Reason: err.Error()}
	}
	return &out, nil
}

func (c *Client) PushReading(ctx context.Context, r domain.SensorReading) (*domain.SensorReading, error) {
	var out domain.SensorReading
	if err := c.postJSON(ctx, "/api/sensordata", r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Alerts(ctx context.Context, activeOnly bool) ([]domain.Alert, error) {
	params := url.Values{}
	params.Set("active_only", strconv.FormatBool(activeOnly))
	b, code, err := c.get(ctx, "/api/alerts", params)
	if err != nil {
		return nil, err
	}
	if err := c.statusError(code, "/api/alerts", b); err != nil {
		return nil, err
	}
	return normalizeAlerts(b), nil
}

// normalizeAlerts accepts both API generations (the enhanced wrapper
// object and the legacy bare list) and coerces anything else to an empty
// list instead of failing the fetch.
func normalizeAlerts(b []byte) []domain.Alert {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []domain.Alert
		if err := json.Unmarshal(trimmed, &list); err == nil && list != nil {
			return list
		}
		return []domain.Alert{}
	}
	var wrapped struct {
		Alerts []domain.Alert `json:"alerts"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err == nil && wrapped.Alerts != nil {
		return wrapped.Alerts
	}
	return []domain.Alert{}
}

func (c *Client) ResolveAlert(ctx context.Context, id int64) error {
	return c.postJSON(ctx, fmt.Sprintf("/api/alerts/%d/resolve", id), nil, nil)
}

func (c *Client) SystemStatus(ctx context.Context) (*domain.SystemStatus, error) {
	var out domain.SystemStatus
	if err := c.getJSON(ctx, "/api/system/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Statistics(ctx context.Context, hours int) (*domain.Statistics, error) {
	params := url.Values{}
	params.Set("hours", strconv.Itoa(hours))
	var out domain.Statistics
	if err := c.getJSON(ctx, "/api/analytics/statistics", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SolarPredictions(ctx context.Context) (*domain.SolarPredictionSet, error) {
	var out domain.SolarPredictionSet
	if err := c.getJSON(ctx, "/api/ai/solar-predictions", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) LoadPredictions(ctx context.Context) (*domain.LoadPredictionSet, error) {
	var out domain.LoadPredictionSet
	if err := c.getJSON(ctx, "/api/ai/load-predictions", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GridSwitching(ctx context.Context) (*domain.GridSwitchAnalysis, error) {
	var out domain.GridSwitchAnalysis
	if err := c.getJSON(ctx, "/api/ai/grid-switching", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) FaultDetection(ctx context.Context) (*domain.FaultReport, error) {
	var out domain.FaultReport
	if err := c.getJSON(ctx, "/api/ai/fault-detection", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) LoadManagement(ctx context.Context) (*domain.LoadManagementPlan, error) {
	var out domain.LoadManagementPlan
	if err := c.getJSON(ctx, "/api/ai/load-management", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Health(ctx context.Context) error {
	return c.getJSON(ctx, "/api/health", nil, nil)
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, int, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, err
	}
	return c.send(req)
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	b, code, err := c.get(ctx, path, params)
	if err != nil {
		return err
	}
	if err := c.statusError(code, path, b); err != nil {
		return err
	}
	return c.decode(path, b, out)
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	b, code, err := c.send(req)
	if err != nil {
		return err
	}
	if err := c.statusError(code, path, b); err != nil {
		return err
	}
	return c.decode(path, b, out)
}

func (c *Client) send(req *http.Request) ([]byte, int, error) {
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, &NetworkError{URL: req.URL.String(), Err: err}
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, 0, &NetworkError{URL: req.URL.String(), Err: err}
	}
	return b, resp.StatusCode, nil
}

func (c *Client) statusError(code int, path string, body []byte) error {
	switch {
	case code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return &AuthError{Status: code, Reason: errorDetail(body)}
	case code >= 500:
		return &NetworkError{URL: c.baseURL + path, Err: fmt.Errorf("status %d", code)}
	default:
		return &ValidationError{Endpoint: path, Reason: fmt.Sprintf("status %d: %s", code, errorDetail(body))}
	}
}

func (c *Client) decode(path string, b []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return &ValidationError{Endpoint: path, Reason: err.Error()}
	}
	return nil
}

// errorDetail pulls the message out of the backend's error body.
func errorDetail(body []byte) string {
	var payload struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Detail != "" {
			return payload.Detail
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return strings.TrimSpace(string(body))
}
