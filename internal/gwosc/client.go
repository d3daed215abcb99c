// Package gwosc fetches observing-run data-quality segments from the
// public GWOSC timeline service. The service is a shared public host, so
// every request passes through a local rate limiter.
package gwosc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/dqtools/segments/internal/flags"
	"github.com/dqtools/segments/internal/segments"
	"github.com/dqtools/segments/pkg/config"
	"github.com/dqtools/segments/pkg/httputil"
	"github.com/dqtools/segments/pkg/logger"
)

// Client talks to one GWOSC server.
type Client struct {
	baseURL string
	http    *httputil.Client
	log     *logger.Logger
	limiter *rate.Limiter
}

// New builds a client for the server named in the configuration.
func New(cfg *config.Config, log *logger.Logger, hc *httputil.Client) *Client {
	rps := cfg.GWOSC.RateLimit
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		baseURL: cfg.GWOSC.BaseURL,
		http:    hc,
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}
}

// timelineDoc is the timeline service's JSON segment payload.
type timelineDoc struct {
	Segments [][2]int64 `json:"segments"`
}

// FetchSegments fetches the active segments of one timeline flag (for
// example "H1_DATA") over [start, end) during the named observing run.
// The returned flag's known time is the query window.
func (c *Client) FetchSegments(ctx context.Context, run, name string, start, end segments.Time) (*flags.Flag, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	startSec := int64(start.FloorSecond() / segments.Second)
	duration := int64(end.CeilSecond()/segments.Second) - startSec

	u := fmt.Sprintf("%s/timeline/segments/json/%s/%s/%d/%d/",
		c.baseURL, url.PathEscape(run), url.PathEscape(name), startSec, duration)

	resp, err := c.http.Get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", flags.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("timeline %s/%s: %w", run, name, flags.ErrNoData)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d from %s", flags.ErrUnavailable, resp.StatusCode, u)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", flags.ErrMalformed, u, err)
	}

	var doc timelineDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", flags.ErrMalformed, u, err)
	}

	active := make(segments.List, 0, len(doc.Segments))
	for _, pair := range doc.Segments {
		active = append(active, segments.NewSegment(
			segments.FromInt(pair[0]), segments.FromInt(pair[1])))
	}

	window := segments.List{segments.NewSegment(start, end)}
	f := flags.New(name, window, active)
	return f.Coalesce(), nil
}

// ListFlags scrapes the timeline index page of one observing run and
// returns the flag names it links to, for example "H1_DATA". The index is
// HTML only, the service has no JSON listing.
func (c *Client) ListFlags(ctx context.Context, run string) ([]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/timeline/show/%s/", c.baseURL, url.PathEscape(run))

	resp, err := c.http.Get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", flags.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("run %s: %w", run, flags.ErrNoData)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d from %s", flags.ErrUnavailable, resp.StatusCode, u)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", flags.ErrMalformed, u, err)
	}

	seen := make(map[string]bool)
	var names []string
	doc.Find("a[href*='/timeline/segments/']").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		name := flagFromTimelineHref(href)
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		names = append(names, name)
	})

	if len(names) == 0 {
		return nil, fmt.Errorf("run %s: no timeline flags found: %w", run, flags.ErrNoData)
	}
	return names, nil
}

// flagFromTimelineHref extracts the flag token from a timeline segment
// link of the form .../timeline/segments/{run}/{flag}/{start}/{duration}/.
func flagFromTimelineHref(href string) string {
	const marker = "/timeline/segments/"
	i := strings.Index(href, marker)
	if i < 0 {
		return ""
	}
	parts := strings.Split(strings.Trim(href[i+len(marker):], "/"), "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}
