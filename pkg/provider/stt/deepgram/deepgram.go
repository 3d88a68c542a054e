// Package deepgram provides a Deepgram-backed transcriber using the
// prerecorded listen API. It implements the stt.Transcriber interface.
package deepgram

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

	"github.com/solacevoice/solace/pkg/provider/stt"
)

const (
	defaultBaseURL = "https://api.deepgram.com"
	defaultModel   = "nova-2"
	defaultTimeout = 15 * time.Second
)

// Compile-time assertion that Provider satisfies stt.Transcriber.
var _ stt.Transcriber = (*Provider)(nil)

// Option is a functional option for configuring the Deepgram Provider.
type Option func(*Provider)

// WithModel sets the Deepgram model to use (e.g., "nova-2", "base").
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithLanguage sets the BCP-47 language code for recognition (e.g., "en",
// "hi"). An empty language lets Deepgram auto-detect.
func WithLanguage(language string) Option {
	return func(p *Provider) { p.language = language }
}

// WithBaseURL overrides the API endpoint. Used in tests.
func WithBaseURL(baseURL string) Option {
	return func(p *Provider) { p.baseURL = baseURL }
}

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) { p.client = client }
}

// WithTimeout sets the per-request timeout. Defaults to 15 s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.timeout = d }
}

// Provider implements stt.Transcriber backed by the Deepgram prerecorded API.
type Provider struct {
	apiKey   string
	model    string
	language string
	baseURL  string
	timeout  time.Duration
	client   *http.Client
}

// New creates a new Deepgram Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:  apiKey,
		model:   defaultModel,
		baseURL: defaultBaseURL,
		timeout: defaultTimeout,
		client:  http.DefaultClient,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Name identifies the backend in logs and journal entries.
func (p *Provider) Name() string { return "deepgram" }

// listenResponse is the subset of the Deepgram prerecorded response the
// pipeline needs.
type listenResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe uploads one capture to the prerecorded listen endpoint and
// returns the first alternative's transcript. An empty transcript with a nil
// error means Deepgram heard no speech.
func (p *Provider) Transcribe(ctx context.Context, audioData []byte, mimeType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	endpoint, err := p.buildURL()
	if err != nil {
		return "", fmt.Errorf("deepgram: build URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(audioData))
	if err != nil {
		return "", fmt.Errorf("deepgram: build request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+p.apiKey)
	req.Header.Set("Content-Type", mimeType)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("deepgram: request failed: %w", errors.Join(stt.ErrUnavailable, err))
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("deepgram: listen returned %d: %w", resp.StatusCode, err)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("deepgram: read response: %w", errors.Join(stt.ErrUnavailable, err))
	}

	var parsed listenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("deepgram: decode response: %w", errors.Join(stt.ErrUnavailable, err))
	}

	if len(parsed.Results.Channels) == 0 || len(parsed.Results.Channels[0].Alternatives) == 0 {
		return "", nil
	}
	return strings.TrimSpace(parsed.Results.Channels[0].Alternatives[0].Transcript), nil
}

// buildURL constructs the prerecorded listen endpoint URL.
func (p *Provider) buildURL() (string, error) {
	u, err := url.Parse(p.baseURL)
	if err != nil {
		return "", err
	}
	u.Path = "/v1/listen"

	q := u.Query()
	q.Set("model", p.model)
	q.Set("smart_format", "true")
	if p.language != "" {
		q.Set("language", p.language)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// classifyStatus maps HTTP status codes to the package sentinel errors.
func classifyStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return stt.ErrAuth
	case code == http.StatusTooManyRequests:
		return stt.ErrRateLimited
	default:
		return stt.ErrUnavailable
	}
}
