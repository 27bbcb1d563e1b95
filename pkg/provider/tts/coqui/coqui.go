// Package coqui provides a TTS provider backed by a local Coqui TTS server
// via its REST API (GET /api/tts). It implements the tts.Provider interface
// and serves as the on-device fallback speech channel: no API key, no
// internet dependency, adjustable speaking rate.
//
// Typical usage:
//
//	p, err := coqui.New("http://localhost:5002",
//	    coqui.WithLanguage("en"),
//	    coqui.WithTimeout(15*time.Second),
//	)
//	audio, err := p.Synthesize(ctx, "Helm answers", voice)
package coqui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MrWong99/helmsman/pkg/provider/tts"
)

const (
	defaultLanguage = "en"
	defaultTimeout  = 30 * time.Second

	apiTTSEndpoint  = "/api/tts"
	detailsEndpoint = "/details"
)

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

// Option is a functional option for configuring the Coqui Provider.
type Option func(*Provider)

// WithLanguage sets the language_id sent with synthesis requests. Default: "en".
func WithLanguage(lang string) Option {
	return func(p *Provider) {
		p.language = lang
	}
}

// WithTimeout sets the HTTP client timeout for synthesis requests. Default: 30s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// Provider implements tts.Provider backed by a local Coqui TTS server.
type Provider struct {
	serverURL  string
	language   string
	httpClient *http.Client
}

// New creates a Coqui Provider targeting serverURL (e.g., "http://localhost:5002").
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("coqui: serverURL must not be empty")
	}
	p := &Provider{
		serverURL:  strings.TrimRight(serverURL, "/"),
		language:   defaultLanguage,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Synthesize renders text to a WAV payload via GET /api/tts. A non-default
// voice Rate is forwarded as the speed parameter; Coqui ignores it on models
// that do not support rate control.
func (p *Provider) Synthesize(ctx context.Context, text string, voice tts.VoiceProfile) ([]byte, error) {
	if text == "" {
		return nil, errors.New("coqui: text must not be empty")
	}

	params := url.Values{}
	params.Set("text", text)
	if voice.ID != "" {
		params.Set("speaker_id", voice.ID)
	}
	if p.language != "" {
		params.Set("language_id", p.language)
	}
	if voice.Rate > 0 && voice.Rate != 1.0 {
		params.Set("speed", strconv.FormatFloat(voice.Rate, 'f', 2, 64))
	}

	reqURL := p.serverURL + apiTTSEndpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("coqui: create tts request: %w", err)
	}
	req.Header.Set("Accept", "audio/wav")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coqui: GET %s: %w", apiTTSEndpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("coqui: GET %s returned status %d", apiTTSEndpoint, resp.StatusCode)
	}

	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("coqui: read WAV response: %w", err)
	}
	return wav, nil
}

// detailsResponse mirrors the relevant parts of GET /details.
type detailsResponse struct {
	Speakers []string `json:"speakers"`
}

// ListVoices returns the speaker catalogue from GET /details. Servers running
// a single-speaker model report no speakers; a single default profile is
// returned in that case.
func (p *Provider) ListVoices(ctx context.Context) ([]tts.VoiceProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.serverURL+detailsEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("coqui: list voices: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coqui: GET %s: %w", detailsEndpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("coqui: GET %s returned status %d", detailsEndpoint, resp.StatusCode)
	}

	var dr detailsResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return nil, fmt.Errorf("coqui: decode details: %w", err)
	}

	if len(dr.Speakers) == 0 {
		return []tts.VoiceProfile{{
			Name:     "default",
			Provider: "coqui",
			Metadata: map[string]string{"language": p.language},
		}}, nil
	}

	profiles := make([]tts.VoiceProfile, 0, len(dr.Speakers))
	for _, s := range dr.Speakers {
		profiles = append(profiles, tts.VoiceProfile{
			ID:       s,
			Name:     s,
			Provider: "coqui",
			Metadata: map[string]string{"language": p.language},
		})
	}
	return profiles, nil
}
