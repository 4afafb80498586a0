// Package translate turns ordered lists of strings into translated lists of
// the same length and order through a pluggable backend.
//
// Two backends exist:
//
//   - deepl:  the DeepL REST API. Texts are sent in count-bounded batches;
//     transient failures are retried with exponential backoff.
//   - google: the free translate_a/single endpoint. Texts are newline-joined
//     into byte-bounded chunks, sent one at a time under a rolling
//     per-minute/per-hour limit with an adaptive, jittered delay.
//
// The Client owns the cache and rate limiter for one job. It never fails a
// whole call because of a backend error: a failed batch or chunk yields its
// input texts unchanged. After a run of consecutive failures the client is
// degraded and returns every further text unchanged.
//
// Requests are issued strictly sequentially. Cancellation is checked
// between requests; a request already sent runs to completion or to its
// timeout.
package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/minios-linux/modtr/transcache"
)

// ErrMismatch reports a backend response whose item count differs from
// the request.
var ErrMismatch = errors.New("translation count mismatch")

// ---------------------------------------------------------------------------
// Backend configuration (tagged union)
// ---------------------------------------------------------------------------

// BackendKind identifies a backend implementation.
type BackendKind int

const (
	BackendDeepL BackendKind = iota + 1
	BackendGoogle
)

func (k BackendKind) String() string {
	switch k {
	case BackendDeepL:
		return "deepl"
	case BackendGoogle:
		return "google"
	default:
		return fmt.Sprintf("BackendKind(%d)", int(k))
	}
}

// ParseBackendKind maps a name such as "deepl" or "google" to its kind.
func ParseBackendKind(name string) (BackendKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "deepl":
		return BackendDeepL, nil
	case "google", "google-free", "gtx":
		return BackendGoogle, nil
	}
	return 0, fmt.Errorf("unknown backend %q (available: deepl, google)", name)
}

// BackendConfig is implemented by DeepLConfig and GoogleConfig only.
type BackendConfig interface {
	Kind() BackendKind
	sealed()
}

// Limits bounds the size of one backend request. Zero means unbounded.
type Limits struct {
	// MaxItems is the maximum number of texts per request.
	MaxItems int
	// MaxBytes is the maximum size of the newline-joined texts.
	MaxBytes int
}

// Backend performs one logical translation request.
type Backend interface {
	Name() string
	Limits() Limits
	// TranslateBatch translates texts in one request. The result must have
	// one item per input text, in order.
	TranslateBatch(ctx context.Context, texts []string, target, source string) ([]string, error)
}

// NewBackend constructs the backend described by cfg.
func NewBackend(cfg BackendConfig, clock Clock) (Backend, error) {
	if clock == nil {
		clock = SystemClock
	}
	switch c := cfg.(type) {
	case DeepLConfig:
		return newDeepL(c, clock)
	case *DeepLConfig:
		return newDeepL(*c, clock)
	case GoogleConfig:
		return newGoogle(c), nil
	case *GoogleConfig:
		return newGoogle(*c), nil
	case nil:
		return nil, fmt.Errorf("no backend configured")
	default:
		return nil, fmt.Errorf("unsupported backend %T", cfg)
	}
}

// ---------------------------------------------------------------------------
// Client options
// ---------------------------------------------------------------------------

// DefaultMaxConsecutiveFailures is the number of failed requests in a row
// after which the client degrades.
const DefaultMaxConsecutiveFailures = 5

// Options controls the Client.
type Options struct {
	// Cache is consulted before and updated after backend calls (optional).
	Cache *transcache.Cache
	// Limiter paces requests. A Google backend gets one built from its
	// config when nil.
	Limiter *RateLimiter
	// Clock is used for sleeps (default SystemClock).
	Clock Clock
	// MaxConsecutiveFailures before the client degrades (default 5).
	MaxConsecutiveFailures int
	// OnProgress is called after each request with done/total requests of
	// the current Translate call.
	OnProgress func(done, total int)
	// OnLog emits log messages.
	OnLog func(format string, args ...any)
	// OnError emits error messages.
	OnError func(format string, args ...any)
	// Verbose enables debug logging.
	Verbose bool
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) debug(format string, args ...any) {
	if o.Verbose {
		o.log("[DEBUG] "+format, args...)
	}
}

func (o *Options) logError(format string, args ...any) {
	if o.OnError != nil {
		o.OnError(format, args...)
	} else if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) effectiveMaxFailures() int {
	if o.MaxConsecutiveFailures > 0 {
		return o.MaxConsecutiveFailures
	}
	return DefaultMaxConsecutiveFailures
}

// ---------------------------------------------------------------------------
// Client
// ---------------------------------------------------------------------------

// Stats are cumulative counters of a Client.
type Stats struct {
	Requests    int
	CacheHits   int
	CacheMisses int
	// FailedUnits counts failed backend requests.
	FailedUnits int
	// Untranslated counts texts returned unchanged because of failures.
	Untranslated int
	Degraded     bool
}

// Client translates texts through one backend. It is not safe for
// concurrent use; a job drives it from a single goroutine.
type Client struct {
	backend Backend
	opts    Options

	consecutive int
	stats       Stats
}

// New creates a Client for cfg.
func New(cfg BackendConfig, opts Options) (*Client, error) {
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	b, err := NewBackend(cfg, opts.Clock)
	if err != nil {
		return nil, err
	}
	if opts.Limiter == nil {
		switch c := cfg.(type) {
		case GoogleConfig:
			opts.Limiter = NewRateLimiter(c.limiterConfig(), opts.Clock)
		case *GoogleConfig:
			opts.Limiter = NewRateLimiter(c.limiterConfig(), opts.Clock)
		}
	}
	return NewWithBackend(b, opts), nil
}

// NewWithBackend creates a Client around an existing backend.
func NewWithBackend(b Backend, opts Options) *Client {
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	return &Client{backend: b, opts: opts}
}

// Backend returns the client's backend.
func (c *Client) Backend() Backend { return c.backend }

// Limiter returns the client's rate limiter, or nil.
func (c *Client) Limiter() *RateLimiter { return c.opts.Limiter }

// Stats returns a snapshot of the counters.
func (c *Client) Stats() Stats { return c.stats }

// Degraded reports whether the failure limit was reached.
func (c *Client) Degraded() bool { return c.stats.Degraded }

// pendingText is one distinct text that still needs a backend call.
type pendingText struct {
	text    string
	indices []int
	pieces  []int
}

// Translate translates texts from source to target. The result always has
// len(texts) items in input order; texts that could not be translated are
// returned unchanged. The returned error is non-nil only when ctx was
// cancelled, in which case the result holds what was translated so far.
func (c *Client) Translate(ctx context.Context, texts []string, target, source string) ([]string, error) {
	out := make([]string, len(texts))
	copy(out, texts)
	if len(texts) == 0 {
		return out, nil
	}

	var todo []*pendingText
	byText := make(map[string]*pendingText)
	cache := c.opts.Cache
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		if cache != nil {
			if v, ok := cache.Get(source, target, t); ok {
				out[i] = v
				c.stats.CacheHits++
				continue
			}
			c.stats.CacheMisses++
		}
		if p, ok := byText[t]; ok {
			p.indices = append(p.indices, i)
			continue
		}
		p := &pendingText{text: t, indices: []int{i}}
		byText[t] = p
		todo = append(todo, p)
	}
	if len(todo) == 0 {
		return out, nil
	}
	if c.stats.Degraded {
		c.markUntranslated(todo)
		return out, nil
	}

	lim := c.backend.Limits()
	var pieces []string
	for _, p := range todo {
		for _, s := range splitOversized(p.text, lim.MaxBytes) {
			p.pieces = append(p.pieces, len(pieces))
			pieces = append(pieces, s)
		}
	}
	units := packUnits(pieces, lim)
	results := make([]string, len(pieces))
	done := make([]bool, len(pieces))

	c.opts.debug("%s: %d text(s), %d cached, %d request(s)", c.backend.Name(), len(texts), len(texts)-countIndices(todo), len(units))

	var cancelErr error
	for ui, unit := range units {
		if err := ctx.Err(); err != nil {
			cancelErr = err
			break
		}
		if c.stats.Degraded {
			break
		}
		if lm := c.opts.Limiter; lm != nil {
			if err := lm.Wait(ctx); err != nil {
				cancelErr = err
				break
			}
		}

		batch := make([]string, len(unit))
		for j, pi := range unit {
			batch[j] = pieces[pi]
		}

		c.stats.Requests++
		res, err := c.backend.TranslateBatch(context.WithoutCancel(ctx), batch, target, source)
		if err == nil && len(res) != len(batch) {
			err = fmt.Errorf("%w: got %d, want %d", ErrMismatch, len(res), len(batch))
		}
		if err != nil {
			c.fail(ui+1, len(units), err)
		} else {
			c.succeed()
			for j, pi := range unit {
				results[pi] = res[j]
				done[pi] = res[j] != ""
			}
		}
		if c.opts.OnProgress != nil {
			c.opts.OnProgress(ui+1, len(units))
		}
	}

	var failed []*pendingText
	for _, p := range todo {
		parts := make([]string, 0, len(p.pieces))
		ok := true
		for _, pi := range p.pieces {
			if !done[pi] {
				ok = false
				break
			}
			parts = append(parts, results[pi])
		}
		if !ok {
			failed = append(failed, p)
			continue
		}
		translated := strings.Join(parts, " ")
		for _, i := range p.indices {
			out[i] = translated
		}
		if cache != nil {
			if err := cache.Put(source, target, p.text, translated); err != nil {
				c.opts.logError("Saving cache: %v", err)
			}
		}
	}
	c.markUntranslated(failed)

	if cache != nil && cache.Dirty() {
		if err := cache.Save(); err != nil {
			c.opts.logError("Saving cache: %v", err)
		}
	}
	return out, cancelErr
}

func (c *Client) succeed() {
	c.consecutive = 0
	if c.opts.Limiter != nil {
		c.opts.Limiter.Success()
	}
}

func (c *Client) fail(unit, total int, err error) {
	c.consecutive++
	c.stats.FailedUnits++
	if c.opts.Limiter != nil {
		c.opts.Limiter.Failure()
	}
	c.opts.logError("%s request %d/%d failed: %v", c.backend.Name(), unit, total, err)
	if c.consecutive >= c.opts.effectiveMaxFailures() {
		c.stats.Degraded = true
		c.opts.logError("%s: %d consecutive failures, remaining texts are left untranslated", c.backend.Name(), c.consecutive)
	}
}

func (c *Client) markUntranslated(ps []*pendingText) {
	c.stats.Untranslated += countIndices(ps)
}

func countIndices(ps []*pendingText) int {
	n := 0
	for _, p := range ps {
		n += len(p.indices)
	}
	return n
}

// truncate truncates a string to maxLen bytes.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// backoff returns 2^attempt seconds.
func backoff(attempt int) time.Duration {
	return time.Duration(1<<attempt) * time.Second
}
