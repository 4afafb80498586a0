package translate

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/minios-linux/modtr/langmeta"
)

// DeepL defaults.
const (
	DeepLFreeEndpoint = "api-free.deepl.com"
	DeepLProEndpoint  = "api.deepl.com"

	DefaultDeepLBatchSize  = 50
	DefaultDeepLMaxRetries = 3

	// deeplMaxRequestBytes stays under the 128 KiB request body limit.
	deeplMaxRequestBytes = 120 * 1024
)

// DeepLConfig configures the DeepL batch backend.
type DeepLConfig struct {
	APIKey string
	// Endpoint is a host such as api.deepl.com or a full base URL. When
	// empty, keys ending in ":fx" use the free endpoint, others the pro one.
	Endpoint   string
	GlossaryID string
	// BatchSize is the number of texts per request (default 50).
	BatchSize int
	// MaxRetries on network errors, 5xx and 429 (default 3).
	MaxRetries int
	// Timeout per HTTP request (default 30s).
	Timeout time.Duration
	Proxy   string
	// LegacyAuth sends the key as the auth_key form field instead of the
	// Authorization header.
	LegacyAuth bool
}

func (DeepLConfig) Kind() BackendKind { return BackendDeepL }
func (DeepLConfig) sealed()           {}

// BaseURL returns the scheme and host requests are sent to.
func (c DeepLConfig) BaseURL() string {
	if c.Endpoint != "" {
		return baseURL(c.Endpoint)
	}
	if strings.HasSuffix(c.APIKey, ":fx") {
		return baseURL(DeepLFreeEndpoint)
	}
	return baseURL(DeepLProEndpoint)
}

// Usage is the character quota reported by /v2/usage.
type Usage struct {
	CharacterCount int64 `json:"character_count"`
	CharacterLimit int64 `json:"character_limit"`
}

// UsageReporter is implemented by backends that can report quota.
type UsageReporter interface {
	Usage(ctx context.Context) (*Usage, error)
}

type deepl struct {
	cfg   DeepLConfig
	base  string
	http  *resty.Client
	clock Clock
}

func newDeepL(cfg DeepLConfig, clock Clock) (Backend, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("deepl: API key is required")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultDeepLBatchSize
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	} else if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultDeepLMaxRetries
	}
	return &deepl{
		cfg:   cfg,
		base:  cfg.BaseURL(),
		http:  newRestyClient(cfg.Proxy, cfg.Timeout, "modtr"),
		clock: clock,
	}, nil
}

func (d *deepl) Name() string { return "deepl" }

func (d *deepl) Limits() Limits {
	return Limits{MaxItems: d.cfg.BatchSize, MaxBytes: deeplMaxRequestBytes}
}

func (d *deepl) request(ctx context.Context) *resty.Request {
	r := d.http.R().SetContext(ctx)
	if !d.cfg.LegacyAuth {
		r.SetHeader("Authorization", "DeepL-Auth-Key "+d.cfg.APIKey)
	}
	return r
}

func (d *deepl) TranslateBatch(ctx context.Context, texts []string, target, source string) ([]string, error) {
	form := url.Values{}
	for _, t := range texts {
		form.Add("text", t)
	}
	form.Set("target_lang", langmeta.DeepLCode(target))
	if source != "" {
		form.Set("source_lang", deeplSourceCode(source))
	}
	form.Set("tag_handling", "xml")
	if d.cfg.GlossaryID != "" {
		form.Set("glossary_id", d.cfg.GlossaryID)
	}
	if d.cfg.LegacyAuth {
		form.Set("auth_key", d.cfg.APIKey)
	}

	endpoint := d.base + "/v2/translate"
	maxRetries := d.cfg.MaxRetries

	for attempt := 0; attempt <= maxRetries; attempt++ {
		var result struct {
			Translations []struct {
				Text string `json:"text"`
			} `json:"translations"`
		}
		resp, err := d.request(ctx).
			SetFormDataFromValues(form).
			SetResult(&result).
			Post(endpoint)
		if err != nil {
			if attempt < maxRetries {
				if err := d.clock.Sleep(ctx, backoff(attempt)); err != nil {
					return nil, err
				}
				continue
			}
			return nil, fmt.Errorf("deepl request failed: %w", err)
		}

		switch code := resp.StatusCode(); {
		case code == http.StatusTooManyRequests:
			if attempt < maxRetries {
				wait := parseRetryAfter(resp.Header(), d.clock.Now(), backoff(attempt))
				if err := d.clock.Sleep(ctx, wait); err != nil {
					return nil, err
				}
				continue
			}
			return nil, fmt.Errorf("deepl: rate limited after %d retries", maxRetries)
		case code >= 500:
			if attempt < maxRetries {
				if err := d.clock.Sleep(ctx, backoff(attempt)); err != nil {
					return nil, err
				}
				continue
			}
			return nil, fmt.Errorf("deepl returned status %d: %s", code, truncate(resp.String(), 300))
		case code != http.StatusOK:
			return nil, fmt.Errorf("deepl returned status %d: %s", code, truncate(resp.String(), 300))
		}

		if len(result.Translations) != len(texts) {
			return nil, fmt.Errorf("%w: got %d, want %d", ErrMismatch, len(result.Translations), len(texts))
		}
		out := make([]string, len(texts))
		for i, t := range result.Translations {
			out[i] = t.Text
		}
		return out, nil
	}
	return nil, fmt.Errorf("deepl: exhausted all %d retries", maxRetries)
}

// Usage queries the account quota.
func (d *deepl) Usage(ctx context.Context) (*Usage, error) {
	var u Usage
	r := d.request(ctx).SetResult(&u)
	if d.cfg.LegacyAuth {
		r.SetQueryParam("auth_key", d.cfg.APIKey)
	}
	resp, err := r.Get(d.base + "/v2/usage")
	if err != nil {
		return nil, fmt.Errorf("deepl usage: %w", err)
	}
	if resp.StatusCode() == http.StatusForbidden {
		return nil, fmt.Errorf("deepl usage: invalid API key")
	}
	if resp.IsError() {
		return nil, fmt.Errorf("deepl usage: status %d: %s", resp.StatusCode(), truncate(resp.String(), 300))
	}
	return &u, nil
}

// deeplSourceCode maps a source language; DeepL takes only the base code
// for sources.
func deeplSourceCode(code string) string {
	c := langmeta.DeepLCode(code)
	base, _, _ := strings.Cut(c, "-")
	return base
}
