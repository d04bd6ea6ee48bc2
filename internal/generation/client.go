package generation

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/storyreel/storyreel/internal/logger"
)

// PayloadField is the result field carrying the base64 video.
const PayloadField = "output_video_base64"

// StatusSuccess is the only status the service uses for a finished video.
const StatusSuccess = "success"

// envelope is the service's response body.
type envelope struct {
	Status string                     `json:"status"`
	Result map[string]json.RawMessage `json:"result"`
	Error  json.RawMessage            `json:"error"`
}

// Payload is a decoded service response.
type Payload struct {
	Video []byte
	// Metadata is the service result without the video payload.
	Metadata map[string]any
}

// Client talks to the generation service. It sends exactly one request per
// Submit call and never retries.
type Client struct {
	endpoint string
	http     *http.Client

	timeout    time.Duration
	hasTimeout bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. A nil client is ignored.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout bounds the whole request. Zero means no limit. It applies
// whatever the order of options, without changing a client passed to
// WithHTTPClient.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
		c.hasTimeout = true
	}
}

// NewClient validates endpoint and returns a client for it. A missing or
// malformed endpoint is a configuration error.
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, configurationError("generation endpoint is not configured (set STORYREEL_ENDPOINT)", nil)
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, configurationError("invalid generation endpoint", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, configurationError(fmt.Sprintf("generation endpoint must be http or https, got %q", endpoint), nil)
	}
	if u.Host == "" {
		return nil, configurationError(fmt.Sprintf("generation endpoint has no host: %q", endpoint), nil)
	}

	c := &Client{endpoint: u.String()}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.hasTimeout {
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}
	return c, nil
}

// Endpoint returns the configured service address.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Submit sends req and decodes the response.
func (c *Client) Submit(ctx context.Context, req Request) (*Payload, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, configurationError("building generation request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	logger.Debug("POST %s (voice=%s bgm=%s/%s ratio=%s, %d bytes)",
		c.endpoint, req.TTSVoice, req.BGMGenre, req.BGMType, req.VideoRatio, len(body))

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, networkError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, networkError(fmt.Errorf("reading response: %w", err))
	}

	return decodeResponse(resp.StatusCode, raw)
}

func decodeResponse(statusCode int, raw []byte) (*Payload, error) {
	ok := statusCode >= 200 && statusCode < 300

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if !ok {
			return nil, serviceError(fmt.Sprintf("service returned %d %s", statusCode, http.StatusText(statusCode)))
		}
		return nil, protocolError("unparsable service response", err)
	}

	if env.Status != StatusSuccess {
		msg := errorMessage(env.Error)
		if msg == "" && !ok {
			msg = fmt.Sprintf("service returned %d %s", statusCode, http.StatusText(statusCode))
		}
		logger.Warn("Generation service error (status=%q, http=%d): %s", env.Status, statusCode, msg)
		return nil, serviceError(msg)
	}

	encoded, found := env.Result[PayloadField]
	if !found {
		return nil, protocolError("service response has no "+PayloadField, nil)
	}

	var b64 string
	if err := json.Unmarshal(encoded, &b64); err != nil {
		return nil, protocolError(PayloadField+" is not a string", err)
	}
	if b64 == "" {
		return nil, protocolError(PayloadField+" is empty", nil)
	}

	video, err := decodeBase64(b64)
	if err != nil {
		return nil, protocolError("decoding "+PayloadField, err)
	}

	meta := make(map[string]any, len(env.Result))
	for k, v := range env.Result {
		if k == PayloadField {
			continue
		}
		var value any
		if err := json.Unmarshal(v, &value); err == nil {
			meta[k] = value
		}
	}

	return &Payload{Video: video, Metadata: meta}, nil
}

// errorMessage extracts a message from the envelope's error field, which is
// usually a string but may be any JSON value.
func errorMessage(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	return string(raw)
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, s)
	if data, err := base64.StdEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}
