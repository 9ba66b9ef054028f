package release

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"

	"exilence-cli/internal/infra/logx"
	"exilence-cli/internal/poe"
)

// NotificationNewVersion is raised once a newer release is seen.
const NotificationNewVersion = "NEW_VERSION"

// Feed provides the latest published release.
type Feed interface {
	GetLatestRelease(ctx context.Context) (poe.Release, error)
}

// Result is the outcome of one check.
type Result struct {
	Current string
	Latest  string
	URL     string
	Newer   bool
	Err     error
}

// Checker compares the running version with the release feed and keeps the
// notification list. Safe for concurrent use.
type Checker struct {
	current string
	feed    Feed

	mu            sync.Mutex
	latest        string
	dismissed     string
	notifications []string
}

// NewChecker returns a checker for the running version current.
func NewChecker(current string, feed Feed) *Checker {
	return &Checker{current: current, feed: feed}
}

// Check fetches the latest release once.
func (c *Checker) Check(ctx context.Context) (Result, error) {
	rel, err := c.feed.GetLatestRelease(ctx)
	if err != nil {
		return Result{Current: c.current, Err: err}, fmt.Errorf("check release: %w", err)
	}
	latest := rel.Version()
	newer := IsNewer(c.current, latest)
	logx.Log(logx.LevelInfo, "release checked", logx.Fields{"current": c.current, "latest": latest, "newer": newer})

	c.mu.Lock()
	c.latest = latest
	if newer && (c.dismissed == "" || IsNewer(c.dismissed, latest)) {
		c.addLocked(NotificationNewVersion)
	}
	c.mu.Unlock()

	return Result{Current: c.current, Latest: latest, URL: rel.HTMLURL, Newer: newer}, nil
}

func (c *Checker) addLocked(n string) {
	for _, have := range c.notifications {
		if have == n {
			return
		}
	}
	c.notifications = append(c.notifications, n)
}

// Latest returns the last seen release version.
func (c *Checker) Latest() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest
}

// Notifications returns a copy of the active notifications.
func (c *Checker) Notifications() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.notifications...)
}

// Dismiss removes a notification. A dismissed NEW_VERSION comes back only
// for a release newer than the one last seen.
func (c *Checker) Dismiss(n string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n == NotificationNewVersion && c.latest != "" {
		c.dismissed = c.latest
	}
	for i, have := range c.notifications {
		if have == n {
			c.notifications = append(c.notifications[:i], c.notifications[i+1:]...)
			return
		}
	}
}

// IsNewer reports whether latest is a newer release than current. Semantic
// versions are compared as such; anything else counts as newer when the
// strings differ.
func IsNewer(current, latest string) bool {
	latest = strings.TrimSpace(latest)
	if latest == "" {
		return false
	}
	cv, errC := semver.NewVersion(strings.TrimSpace(current))
	lv, errL := semver.NewVersion(latest)
	if errC == nil && errL == nil {
		return lv.GreaterThan(cv)
	}
	return strings.TrimSpace(current) != latest
}

// Poller runs a Checker on a schedule.
type Poller struct {
	Checker      *Checker
	InitialDelay time.Duration
	Interval     time.Duration
}

const (
	DefaultInitialDelay = 2 * time.Minute
	DefaultInterval     = 10 * time.Minute
)

// Run checks after InitialDelay and then every Interval until ctx is done.
// Every result, failed checks included, is sent to out. Run closes out on
// return.
func (p Poller) Run(ctx context.Context, out chan<- Result) {
	defer close(out)
	delay, every := p.InitialDelay, p.Interval
	if delay <= 0 {
		delay = DefaultInitialDelay
	}
	if every <= 0 {
		every = DefaultInterval
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		res, err := p.Checker.Check(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logx.Warnf("release check failed: %v", err)
		}
		select {
		case out <- res:
		case <-ctx.Done():
			return
		}
		timer.Reset(every)
	}
}
