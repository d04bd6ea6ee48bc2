// Package subtitles asks an external extraction service whether a YouTube
// video has subtitles and fetches their text.
package subtitles

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/storyreel/storyreel/internal/logger"
)

var (
	// ErrNotConfigured means no extraction service is configured. Callers
	// treat it as "unavailable".
	ErrNotConfigured = errors.New("subtitle service is not configured")
	// ErrInvalidURL means the link is not a recognizable YouTube video URL.
	ErrInvalidURL = errors.New("not a YouTube video URL")
)

// Result is the outcome of a subtitle check.
type Result struct {
	VideoID   string `json:"video_id"`
	Available bool   `json:"available"`
	Text      string `json:"text,omitempty"`
}

// Checker reports subtitle availability for a video link.
type Checker interface {
	Check(ctx context.Context, videoURL string) (Result, error)
}

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// VideoID extracts the 11-character video id from the usual YouTube link
// shapes: watch?v=, youtu.be/, shorts/, embed/ and live/.
func VideoID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidURL
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	host = strings.TrimPrefix(host, "music.")

	var id string
	switch host {
	case "youtu.be":
		id = firstSegment(u.Path)
	case "youtube.com", "youtube-nocookie.com":
		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		switch {
		case segments[0] == "watch":
			id = u.Query().Get("v")
		case len(segments) >= 2 && (segments[0] == "shorts" || segments[0] == "embed" || segments[0] == "live"):
			id = segments[1]
		}
	}

	if !videoIDPattern.MatchString(id) {
		return "", ErrInvalidURL
	}
	return id, nil
}

func firstSegment(path string) string {
	path = strings.Trim(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return path
}

// HTTPChecker calls an extraction service: POST {"url", "video_id"} answered
// by {"available", "text"}.
type HTTPChecker struct {
	endpoint string
	http     *http.Client
}

// NewHTTPChecker returns a checker for endpoint. An empty endpoint yields a
// checker whose every call returns ErrNotConfigured.
func NewHTTPChecker(endpoint string, hc *http.Client) *HTTPChecker {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &HTTPChecker{endpoint: strings.TrimSpace(endpoint), http: hc}
}

type checkRequest struct {
	URL     string `json:"url"`
	VideoID string `json:"video_id"`
}

type checkResponse struct {
	Available bool   `json:"available"`
	Text      string `json:"text"`
	Error     string `json:"error"`
}

// Check validates the link, then asks the service. A video reported available
// with no text counts as unavailable.
func (c *HTTPChecker) Check(ctx context.Context, videoURL string) (Result, error) {
	id, err := VideoID(videoURL)
	if err != nil {
		return Result{}, err
	}
	if c.endpoint == "" {
		return Result{VideoID: id}, ErrNotConfigured
	}

	body, err := json.Marshal(checkRequest{URL: videoURL, VideoID: id})
	if err != nil {
		return Result{}, fmt.Errorf("encoding subtitle request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("building subtitle request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("subtitle service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("reading subtitle response: %w", err)
	}

	var out checkResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		if resp.StatusCode >= 300 {
			return Result{}, fmt.Errorf("subtitle service returned %d", resp.StatusCode)
		}
		return Result{}, fmt.Errorf("parsing subtitle response: %w", err)
	}
	if resp.StatusCode >= 300 {
		if out.Error != "" {
			return Result{}, fmt.Errorf("subtitle service returned %d: %s", resp.StatusCode, out.Error)
		}
		return Result{}, fmt.Errorf("subtitle service returned %d", resp.StatusCode)
	}

	text := strings.TrimSpace(out.Text)
	res := Result{VideoID: id, Available: out.Available && text != "", Text: text}
	if !res.Available {
		res.Text = ""
	}
	logger.Debug("Subtitle check for %s: available=%v (%d chars)", id, res.Available, len(res.Text))
	return res, nil
}
