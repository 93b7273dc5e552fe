package client

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

// TunnelBypassHeader skips the interstitial warning page served by the
// ngrok tunnel the backend is deployed behind. Operational necessity of
// the deployment, not part of the backend protocol.
const TunnelBypassHeader = "ngrok-skip-browser-warning"

type TrafficClient struct {
	HTTP   *resty.Client
	Config ClientConfig
}

type ClientConfig struct {
	BaseURL      string
	WSBaseURL    string // optional; derived from BaseURL when empty
	TunnelBypass bool
}

// APIError matches the error body returned by the backend on non-2xx
// responses: {"detail": "..."}
type APIError struct {
	Detail string `json:"detail"`
}

func New(cfg ClientConfig) *TrafficClient {
	r := resty.New()
	r.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	r.SetHeader("Content-Type", "application/json")
	r.SetHeader("Accept", "application/json")

	if cfg.TunnelBypass {
		r.SetHeader(TunnelBypassHeader, "true")
	}

	return &TrafficClient{
		HTTP:   r,
		Config: cfg,
	}
}

// WSBase returns the websocket base address for detection streams,
// derived from the REST address unless overridden in config.
func (c *TrafficClient) WSBase() string {
	base := c.Config.WSBaseURL
	if base == "" {
		// http -> ws, https -> wss
		base = strings.Replace(strings.TrimRight(c.Config.BaseURL, "/"), "http", "ws", 1)
	}
	return strings.TrimRight(base, "/")
}

// StreamHeader returns the headers a websocket dial must carry.
func (c *TrafficClient) StreamHeader() http.Header {
	h := http.Header{}
	if c.Config.TunnelBypass {
		h.Set(TunnelBypassHeader, "true")
	}
	return h
}

// GetHealth probes backend liveness. Statistics commands gate on this.
func (c *TrafficClient) GetHealth() (string, error) {
	resp, err := c.HTTP.R().Get("/health")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("health check failed: HTTP %d", resp.StatusCode())
	}
	return resp.String(), nil
}

// apiErr converts a non-2xx response into an error, preferring the
// backend's detail message when the body carries one.
func apiErr(resp *resty.Response, op string) error {
	if apiError, ok := resp.Error().(*APIError); ok && apiError != nil && apiError.Detail != "" {
		return fmt.Errorf("%s: %s", op, apiError.Detail)
	}
	return fmt.Errorf("%s: HTTP %d", op, resp.StatusCode())
}
