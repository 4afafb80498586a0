package translate

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/minios-linux/modtr/langmeta"
)

// Google defaults.
const (
	DefaultGoogleEndpoint      = "https://translate.googleapis.com/translate_a/single"
	DefaultGoogleMaxChunkBytes = 3000
	DefaultGoogleUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// GoogleConfig configures the free Google endpoint. Zero values take the
// defaults.
type GoogleConfig struct {
	Endpoint      string
	MaxChunkBytes int
	MinDelay      time.Duration
	MaxDelay      time.Duration
	PerMinute     int
	PerHour       int
	Timeout       time.Duration
	UserAgent     string
	Proxy         string
}

func (GoogleConfig) Kind() BackendKind { return BackendGoogle }
func (GoogleConfig) sealed()           {}

func (c GoogleConfig) limiterConfig() LimiterConfig {
	return LimiterConfig{
		PerMinute: c.PerMinute,
		PerHour:   c.PerHour,
		MinDelay:  c.MinDelay,
		MaxDelay:  c.MaxDelay,
	}
}

type google struct {
	cfg  GoogleConfig
	http *resty.Client
}

func newGoogle(cfg GoogleConfig) Backend {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultGoogleEndpoint
	}
	if cfg.MaxChunkBytes <= 0 {
		cfg.MaxChunkBytes = DefaultGoogleMaxChunkBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultGoogleUserAgent
	}
	return &google{
		cfg:  cfg,
		http: newRestyClient(cfg.Proxy, cfg.Timeout, cfg.UserAgent),
	}
}

func (g *google) Name() string { return "google" }

func (g *google) Limits() Limits { return Limits{MaxBytes: g.cfg.MaxChunkBytes} }

func (g *google) TranslateBatch(ctx context.Context, texts []string, target, source string) ([]string, error) {
	sl := "auto"
	if source != "" {
		sl = langmeta.GoogleCode(source)
	}
	resp, err := g.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"client": "gtx",
			"sl":     sl,
			"tl":     langmeta.GoogleCode(target),
			"dt":     "t",
			"q":      strings.Join(texts, "\n"),
		}).
		Get(g.cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("google request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("google returned status %d: %s", resp.StatusCode(), truncate(resp.String(), 300))
	}
	lines, err := parseGoogleResponse(resp.Body())
	if err != nil {
		return nil, err
	}
	if len(lines) != len(texts) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrMismatch, len(lines), len(texts))
	}
	return lines, nil
}

// parseGoogleResponse concatenates the translated segments of a
// translate_a/single response and splits the result into lines.
func parseGoogleResponse(body []byte) ([]string, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("google: malformed response: %s", truncate(string(body), 200))
	}
	var sb strings.Builder
	for _, seg := range gjson.GetBytes(body, "0.#.0").Array() {
		if seg.Type == gjson.String {
			sb.WriteString(seg.Str)
		}
	}
	if sb.Len() == 0 {
		return nil, fmt.Errorf("google: empty translation")
	}
	return strings.Split(strings.TrimSuffix(sb.String(), "\n"), "\n"), nil
}
