package translate

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ---------------------------------------------------------------------------
// HTTP client with proxy support
// ---------------------------------------------------------------------------

const defaultTimeout = 30 * time.Second

// newRestyClient returns a resty client with the per-request timeout and
// an explicit proxy. Without a proxy, HTTP_PROXY/HTTPS_PROXY are honored.
func newRestyClient(proxyURL string, timeout time.Duration, userAgent string) *resty.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := resty.New().SetTimeout(timeout)
	if proxyURL != "" {
		c.SetProxy(proxyURL)
	}
	if userAgent != "" {
		c.SetHeader("User-Agent", userAgent)
	}
	return c
}

// baseURL turns "api.deepl.com" into "https://api.deepl.com"; values with a
// scheme are used as given.
func baseURL(endpoint string) string {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if strings.Contains(endpoint, "://") {
		return endpoint
	}
	return "https://" + endpoint
}

// parseRetryAfter reads a Retry-After header given in seconds or as an
// HTTP date. It returns fallback when the header is missing or invalid.
func parseRetryAfter(h http.Header, now time.Time, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
		return 0
	}
	return fallback
}
