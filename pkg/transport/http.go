package transport

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// APIKeyHeader carries the gateway API key.
const APIKeyHeader = "X-API-Key"

// requestPath is the gateway endpoint for all commands.
const requestPath = "/request"

// request is the body posted to the gateway.
type request struct {
	Target string   `json:"target"`
	Cmd    []string `json:"cmd"`
	Inbuf  string   `json:"inbuf,omitempty"`
}

// response is the gateway's answer to a request.
type response struct {
	Status int    `json:"status"`
	Outbuf string `json:"outbuf"`
	Outs   string `json:"outs"`
}

// HTTPCluster implements Cluster against a REST gateway.
type HTTPCluster struct {
	baseURL    string
	user       string
	apiKey     string
	httpClient *http.Client
}

// HTTPOption configures an HTTPCluster.
type HTTPOption func(*HTTPCluster)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTPCluster) {
		if c != nil {
			h.httpClient = c
		}
	}
}

// WithAPIKey sets the key sent in the APIKeyHeader header.
func WithAPIKey(key string) HTTPOption {
	return func(h *HTTPCluster) {
		h.apiKey = key
	}
}

// WithUser sets the entity name the gateway should act as.
func WithUser(user string) HTTPOption {
	return func(h *HTTPCluster) {
		h.user = user
	}
}

// NewHTTPCluster creates a gateway client for baseURL.
func NewHTTPCluster(baseURL string, opts ...HTTPOption) (*HTTPCluster, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("cluster URL is required")
	}

	h := &HTTPCluster{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// MonCommand implements Cluster.
func (h *HTTPCluster) MonCommand(ctx context.Context, mon string, cmd []string, inbuf []byte) (*Reply, error) {
	target := string(TargetMon)
	if mon != "" {
		target += "." + mon
	}
	return h.do(ctx, target, cmd, inbuf)
}

// OSDCommand implements Cluster.
func (h *HTTPCluster) OSDCommand(ctx context.Context, osd int, cmd []string, inbuf []byte) (*Reply, error) {
	return h.do(ctx, string(TargetOSD)+"."+strconv.Itoa(osd), cmd, inbuf)
}

// PGCommand implements Cluster.
func (h *HTTPCluster) PGCommand(ctx context.Context, pgid string, cmd []string, inbuf []byte) (*Reply, error) {
	return h.do(ctx, string(TargetPG)+"."+pgid, cmd, inbuf)
}

func (h *HTTPCluster) do(ctx context.Context, target string, cmd []string, inbuf []byte) (*Reply, error) {
	body := request{Target: target, Cmd: cmd}
	if len(inbuf) > 0 {
		body.Inbuf = base64.StdEncoding.EncodeToString(inbuf)
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+requestPath, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if h.apiKey != "" {
		req.Header.Set(APIKeyHeader, h.apiKey)
	}
	if h.user != "" {
		req.Header.Set("X-Ceph-User", h.user)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, errorResponse(resp.StatusCode, raw)
	}

	var r response
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &Reply{Status: r.Status, Out: []byte(r.Outbuf), Message: r.Outs}, nil
}

func errorResponse(code int, body []byte) error {
	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return fmt.Errorf("HTTP %d: %s", code, strings.TrimSpace(string(body)))
	}
	if msg, ok := data["message"].(string); ok {
		return fmt.Errorf("HTTP %d: %s", code, msg)
	}
	if msg, ok := data["error"].(string); ok {
		return fmt.Errorf("HTTP %d: %s", code, msg)
	}
	return fmt.Errorf("HTTP %d", code)
}
