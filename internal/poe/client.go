package poe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNoAccount is returned when the stash endpoint is called without an account.
var ErrNoAccount = errors.New("poe: account name is empty")

// Tab is one stash tab as returned by the character-window endpoint.
type Tab struct {
	Index int    `json:"i"`
	Name  string `json:"n"`
	Type  string `json:"type"`
}

// Stash is the tab listing of the stash endpoint (tabs=1).
type Stash struct {
	NumTabs int   `json:"numTabs"`
	Tabs    []Tab `json:"tabs"`
}

// Release is the subset of the GitHub release payload the app needs.
type Release struct {
	Name        string    `json:"name"`
	TagName     string    `json:"tag_name"`
	HTMLURL     string    `json:"html_url"`
	PublishedAt time.Time `json:"published_at"`
}

// Version returns the release name, or the tag when the name is empty.
func (r Release) Version() string {
	if strings.TrimSpace(r.Name) != "" {
		return r.Name
	}
	return r.TagName
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	ReleaseURL string
	SessionID  string
	Transport  http.RoundTripper
	Timeout    time.Duration
}

// Client talks to the stash API and the release feed.
type Client struct {
	http       *http.Client
	base       string
	releaseURL string
	sessionID  string
	metrics    *Metrics
}

// New builds a client. A nil Transport gets the retrying limiter transport
// with defaults from the environment.
func New(opts Options) *Client {
	var metrics *Metrics
	rt := opts.Transport
	if rt == nil {
		topts := DefaultTransportOptionsFromEnv()
		metrics = topts.Metrics
		rt = NewRetryingLimiterTransport(topts)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Client{
		http:       &http.Client{Timeout: opts.Timeout, Transport: rt},
		base:       strings.TrimRight(opts.BaseURL, "/"),
		releaseURL: opts.ReleaseURL,
		sessionID:  opts.SessionID,
		metrics:    metrics,
	}
}

// Metrics returns the transport counters, or nil for a custom transport.
func (c *Client) Metrics() *Metrics { return c.metrics }

// GetStashTabs lists the stash tabs of account in league.
func (c *Client) GetStashTabs(ctx context.Context, account, league string) (Stash, error) {
	if strings.TrimSpace(account) == "" {
		return Stash{}, ErrNoAccount
	}
	u, err := url.Parse(c.base + "/character-window/get-stash-items")
	if err != nil {
		return Stash{}, fmt.Errorf("stash url: %w", err)
	}
	q := u.Query()
	q.Set("accountName", account)
	q.Set("league", league)
	q.Set("tabs", "1")
	q.Set("tabIndex", "0")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Stash{}, err
	}
	req.Header.Set("Accept", "application/json")
	if c.sessionID != "" {
		req.AddCookie(&http.Cookie{Name: "POESESSID", Value: c.sessionID})
	}

	res, err := c.http.Do(req)
	if err != nil {
		return Stash{}, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return Stash{}, fmt.Errorf("stash.tabs status %s", res.Status)
	}
	var payload Stash
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return Stash{}, fmt.Errorf("stash.tabs decode: %w", err)
	}
	return payload, nil
}

// GetLatestRelease fetches the latest published release from the feed.
func (c *Client) GetLatestRelease(ctx context.Context) (Release, error) {
	if c.releaseURL == "" {
		return Release{}, errors.New("poe: release url is empty")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.releaseURL, nil)
	if err != nil {
		return Release{}, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	res, err := c.http.Do(req)
	if err != nil {
		return Release{}, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return Release{}, fmt.Errorf("release.latest status %s", res.Status)
	}
	var rel Release
	if err := json.NewDecoder(res.Body).Decode(&rel); err != nil {
		return Release{}, fmt.Errorf("release.latest decode: %w", err)
	}
	return rel, nil
}
