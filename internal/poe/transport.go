package poe

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time        { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// Limit defines a simple rate limit: RPS with a burst capacity.
type Limit struct {
	RPS   float64
	Burst int
}

const (
	HostPoE    = "www.pathofexile.com"
	HostGitHub = "api.github.com"
)

// TransportOptions configures the retrying, rate-limited transport.
type TransportOptions struct {
	RetryMax    int
	BackoffBase time.Duration
	BackoffCap  time.Duration
	JitterFn    func(base time.Duration, attempt int) time.Duration
	Clock       Clock
	Metrics     *Metrics

	// Host-specific limits (by req.URL.Host). If missing, defaults apply.
	HostLimits map[string]Limit
}

// DefaultTransportOptionsFromEnv returns defaults that stay well below the
// stash API's rolling request window. EXILENCE_RPS, EXILENCE_BURST,
// EXILENCE_RETRY_MAX, EXILENCE_RETRY_BASE_MS and EXILENCE_RETRY_CAP_MS
// override them.
func DefaultTransportOptionsFromEnv() TransportOptions {
	poeLimit := Limit{RPS: 0.5, Burst: 5}
	ghLimit := Limit{RPS: 1, Burst: 2}

	if f, ok := envFloat("EXILENCE_RPS"); ok && f > 0 {
		poeLimit.RPS = f
	}
	if n, ok := envInt("EXILENCE_BURST"); ok && n > 0 {
		poeLimit.Burst = n
	}

	retryMax := 3
	if n, ok := envInt("EXILENCE_RETRY_MAX"); ok && n >= 0 {
		retryMax = n
	}
	backoffBase := 500 * time.Millisecond
	if ms, ok := envInt("EXILENCE_RETRY_BASE_MS"); ok && ms >= 0 {
		backoffBase = time.Duration(ms) * time.Millisecond
	}
	backoffCap := 10 * time.Second
	if ms, ok := envInt("EXILENCE_RETRY_CAP_MS"); ok && ms > 0 {
		backoffCap = time.Duration(ms) * time.Millisecond
	}

	return TransportOptions{
		RetryMax:    retryMax,
		BackoffBase: backoffBase,
		BackoffCap:  backoffCap,
		Clock:       realClock{},
		JitterFn:    fullJitter,
		Metrics:     NewMetrics(),
		HostLimits: map[string]Limit{
			HostPoE:    poeLimit,
			HostGitHub: ghLimit,
		},
	}
}

func fullJitter(base time.Duration, _ int) time.Duration {
	if base <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(base.Nanoseconds()))
}

func envInt(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	return n, err == nil
}

func envFloat(key string) (float64, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	return f, err == nil
}

// tokenBucket is a per-host rate limiter with fractional tokens.
type tokenBucket struct {
	mu     sync.Mutex
	rps    float64
	burst  float64
	tokens float64
	last   time.Time
	clock  Clock
}

func newTokenBucket(lim Limit, clock Clock) *tokenBucket {
	b := float64(max(1, lim.Burst))
	return &tokenBucket{rps: lim.RPS, burst: b, tokens: b, last: clock.Now(), clock: clock}
}

func (tb *tokenBucket) refillLocked(now time.Time) {
	delta := now.Sub(tb.last).Seconds() * tb.rps
	if delta > 0 {
		tb.tokens = math.Min(tb.burst, tb.tokens+delta)
		tb.last = now
	}
}

// Wait blocks until a token is available or ctx is done.
func (tb *tokenBucket) Wait(ctx context.Context) error {
	const step = 5 * time.Millisecond
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		tb.mu.Lock()
		tb.refillLocked(tb.clock.Now())
		if tb.tokens >= 1 {
			tb.tokens--
			tb.mu.Unlock()
			return nil
		}
		wait := time.Duration(((1 - tb.tokens) / tb.rps) * float64(time.Second))
		tb.mu.Unlock()
		if wait <= 0 {
			wait = step
		}
		deadline := tb.clock.Now().Add(wait)
		for tb.clock.Now().Before(deadline) {
			if err := ctx.Err(); err != nil {
				return err
			}
			tb.clock.Sleep(step)
		}
	}
}

// adjustRPS nudges the limiter RPS within [lo,hi].
func (tb *tokenBucket) adjustRPS(delta, lo, hi float64) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.rps = math.Max(lo, math.Min(hi, tb.rps+delta))
}

// RetryingLimiterTransport wraps a base RoundTripper with host-based rate
// limiting and retries on 429/5xx and transient network errors.
type RetryingLimiterTransport struct {
	Base     http.RoundTripper
	Opts     TransportOptions
	limMu    sync.Mutex
	limiters map[string]*tokenBucket
}

func NewRetryingLimiterTransport(opts TransportOptions) *RetryingLimiterTransport {
	return &RetryingLimiterTransport{Opts: opts, limiters: make(map[string]*tokenBucket)}
}

func (t *RetryingLimiterTransport) getLimiter(host string) *tokenBucket {
	if host == "" {
		host = "_default_"
	}
	t.limMu.Lock()
	defer t.limMu.Unlock()
	if tb, ok := t.limiters[host]; ok {
		return tb
	}
	lim := Limit{RPS: 2, Burst: 2}
	if v, ok := t.Opts.HostLimits[host]; ok {
		lim = v
	}
	tb := newTokenBucket(lim, t.clock())
	t.limiters[host] = tb
	return tb
}

func (t *RetryingLimiterTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *RetryingLimiterTransport) clock() Clock {
	if t.Opts.Clock != nil {
		return t.Opts.Clock
	}
	return realClock{}
}

func (t *RetryingLimiterTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	host := req.URL.Host
	lim := t.getLimiter(host)
	ceiling := t.maxRPSForHost(host)
	if t.Opts.Metrics != nil {
		t.Opts.Metrics.IncRequest(host, req.Method)
	}

	attempts := max(1, t.Opts.RetryMax+1)
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := lim.Wait(req.Context()); err != nil {
			return nil, err
		}

		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			req.Body = body
		}

		resp, err := t.base().RoundTrip(req)
		if err != nil {
			if isTransientNetErr(err) && attempt < attempts-1 {
				lastErr = err
				t.countRetry(req, 0)
				t.sleepBackoff(attempt)
				lim.adjustRPS(-0.1*ceiling, 0.1, ceiling)
				continue
			}
			return nil, err
		}

		if t.Opts.Metrics != nil {
			t.Opts.Metrics.IncStatus(resp.StatusCode)
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			lim.adjustRPS(0.02*ceiling, 0.1, ceiling)
		}

		if shouldRetryStatus(resp.StatusCode) && attempt < attempts-1 {
			resp.Body.Close()
			t.countRetry(req, resp.StatusCode)
			lim.adjustRPS(-0.3*ceiling, 0.1, ceiling)
			if ra := parseRetryAfter(resp.Header.Get("Retry-After"), t.clock().Now()); ra > 0 {
				d := minDur(ra, t.Opts.BackoffCap)
				t.clock().Sleep(d)
				if t.Opts.Metrics != nil {
					t.Opts.Metrics.AddBackoff(d)
				}
				continue
			}
			t.sleepBackoff(attempt)
			continue
		}

		return resp, nil
	}
	if lastErr == nil {
		lastErr = errors.New("max retries exceeded")
	}
	return nil, lastErr
}

// countRetry records one retry. status is 0 for network errors.
func (t *RetryingLimiterTransport) countRetry(req *http.Request, status int) {
	if t.Opts.Metrics != nil {
		t.Opts.Metrics.IncRetry()
	}
	rc := retryCounters(req.Context())
	if rc == nil {
		return
	}
	rc.Total++
	switch {
	case status == 0:
		rc.Net++
	case status == http.StatusTooManyRequests:
		rc.Status429++
	case status >= 500:
		rc.Status5xx++
	}
}

func (t *RetryingLimiterTransport) sleepBackoff(attempt int) {
	base := t.Opts.BackoffBase
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	ceil := t.Opts.BackoffCap
	if ceil <= 0 {
		ceil = 10 * time.Second
	}
	delay := minDur(time.Duration(float64(base)*math.Pow(2, float64(attempt))), ceil)
	if t.Opts.JitterFn != nil {
		delay = minDur(delay+t.Opts.JitterFn(delay, attempt), ceil)
	}
	t.clock().Sleep(delay)
	if t.Opts.Metrics != nil {
		t.Opts.Metrics.AddBackoff(delay)
	}
}

func (t *RetryingLimiterTransport) maxRPSForHost(host string) float64 {
	if lim, ok := t.Opts.HostLimits[host]; ok && lim.RPS > 0 {
		return lim.RPS
	}
	return 2
}

func isTransientNetErr(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "temporary") ||
		strings.Contains(msg, "connection reset")
}

func shouldRetryStatus(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable ||
		code == http.StatusGatewayTimeout
}

func parseRetryAfter(h string, now time.Time) time.Duration {
	h = strings.TrimSpace(h)
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(h); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if when, err := http.ParseTime(h); err == nil {
		if d := when.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

func minDur(a, b time.Duration) time.Duration {
	if b > 0 && b < a {
		return b
	}
	return a
}
