// Package deepgram provides a Deepgram-backed synthesizer using the speak
// API. It implements the tts.Synthesizer interface and returns an encoded
// MP3 clip per reply.
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
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/solacevoice/solace/pkg/provider/tts"
)

const (
	defaultBaseURL = "https://api.deepgram.com"
	defaultVoice   = "aura-english-us"
	defaultTimeout = 15 * time.Second

	encoding = "mp3"
)

// Compile-time assertion that Provider satisfies tts.Synthesizer.
var _ tts.Synthesizer = (*Provider)(nil)

// Option is a functional option for configuring the Deepgram Provider.
type Option func(*Provider)

// WithVoice sets the aura voice model (e.g., "aura-english-us").
func WithVoice(voice string) Option {
	return func(p *Provider) { p.voice = voice }
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

// Provider implements tts.Synthesizer backed by the Deepgram speak API.
type Provider struct {
	apiKey  string
	voice   string
	baseURL string
	timeout time.Duration
	client  *http.Client
}

// New creates a new Deepgram Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:  apiKey,
		voice:   defaultVoice,
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

// Synthesize posts the reply to the speak endpoint and returns the MP3 clip.
// The speaking rate is derived from the reply's shape; Deepgram has no pitch
// control, so only the rate reaches the wire.
func (p *Provider) Synthesize(ctx context.Context, text string) (*tts.Speech, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cleaned := collapsePunctuation(text)
	prosody := tts.ClipProsody(cleaned)

	endpoint, err := p.buildURL(prosody.Rate)
	if err != nil {
		return nil, fmt.Errorf("deepgram: build URL: %w", err)
	}

	payload, err := json.Marshal(map[string]string{"text": cleaned})
	if err != nil {
		return nil, fmt.Errorf("deepgram: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("deepgram: build request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("deepgram: request failed: %w", errors.Join(tts.ErrUnavailable, err))
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("deepgram: speak returned %d: %w", resp.StatusCode, err)
	}

	clip, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("deepgram: read clip: %w", errors.Join(tts.ErrUnavailable, err))
	}

	return &tts.Speech{Audio: clip, Encoding: encoding}, nil
}

// buildURL constructs the speak endpoint URL with voice, encoding, and speed.
func (p *Provider) buildURL(speed float64) (string, error) {
	u, err := url.Parse(p.baseURL)
	if err != nil {
		return "", err
	}
	u.Path = "/v1/speak"

	q := u.Query()
	q.Set("voice", p.voice)
	q.Set("encoding", encoding)
	q.Set("speed", strconv.FormatFloat(speed, 'f', -1, 64))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// classifyStatus maps HTTP status codes to the package sentinel errors.
func classifyStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return tts.ErrAuth
	case code == http.StatusTooManyRequests:
		return tts.ErrRateLimited
	default:
		return tts.ErrUnavailable
	}
}

var (
	repeatedBangs  = regexp.MustCompile(`([!?])+`)
	repeatedDots   = regexp.MustCompile(`\.{2,}`)
	repeatedSpaces = regexp.MustCompile(`\s+`)
)

// collapsePunctuation normalises punctuation runs that trip up the speak
// engine: repeated ! or ? collapse to one, period runs become an ellipsis,
// and whitespace runs become a single space.
func collapsePunctuation(text string) string {
	text = repeatedBangs.ReplaceAllString(text, "$1")
	text = repeatedDots.ReplaceAllString(text, "...")
	text = repeatedSpaces.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
