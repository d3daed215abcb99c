// Package dqsegdb queries a DQSEGDB segment-database server over its JSON
// HTTP API, optionally caching responses in Redis.
package dqsegdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/dqtools/segments/internal/flags"
	"github.com/dqtools/segments/internal/segments"
	"github.com/dqtools/segments/pkg/config"
	"github.com/dqtools/segments/pkg/httputil"
	"github.com/dqtools/segments/pkg/logger"
	"github.com/dqtools/segments/pkg/redis"
)

// Client talks to one DQSEGDB server. It implements flags.DQSegDB.
type Client struct {
	baseURL  string
	http     *httputil.Client
	log      *logger.Logger
	cache    *redis.Cache
	cacheTTL time.Duration
}

// New builds a client for the server named in the configuration.
func New(cfg *config.Config, log *logger.Logger, hc *httputil.Client) *Client {
	return &Client{
		baseURL:  cfg.DQSegDB.BaseURL,
		http:     hc,
		log:      log,
		cacheTTL: cfg.DQSegDB.CacheTTL,
	}
}

// WithCache attaches a Redis response cache.
func (c *Client) WithCache(cache *redis.Cache) *Client {
	c.cache = cache
	return c
}

// versionsDoc is the server's reply to a versionless flag resource.
type versionsDoc struct {
	VersionIDs []int `json:"version_ids"`
}

// segmentsDoc is the server's reply to a single flag-version query.
type segmentsDoc struct {
	IFO     string        `json:"ifo"`
	Name    string        `json:"name"`
	Version int           `json:"version"`
	Known   segments.List `json:"known"`
	Active  segments.List `json:"active"`
}

// QueryTimes fetches known and active segments for one flag over
// [start, end). A versionless name is resolved against the server's
// version list and the results are unioned across all versions; the
// reported version is then the highest one found.
func (c *Client) QueryTimes(ctx context.Context, name string, start, end segments.Time) (*flags.QueryResult, error) {
	parsed := flags.ParseName(name)
	if parsed.IFO == "" || parsed.Tag == "" {
		return nil, fmt.Errorf("%w: cannot parse flag name %q", flags.ErrMalformed, name)
	}

	if parsed.Version != flags.NoVersion {
		doc, err := c.querySegments(ctx, parsed.IFO, parsed.Tag, parsed.Version, start, end)
		if err != nil {
			return nil, err
		}
		return &flags.QueryResult{Known: doc.Known, Active: doc.Active, Version: doc.Version}, nil
	}

	versions, err := c.listVersions(ctx, parsed.IFO, parsed.Tag)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("flag %s: %w", name, flags.ErrNoData)
	}

	out := &flags.QueryResult{Version: flags.NoVersion}
	for _, v := range versions {
		doc, err := c.querySegments(ctx, parsed.IFO, parsed.Tag, v, start, end)
		if err != nil {
			return nil, err
		}
		out.Known = out.Known.Union(doc.Known)
		out.Active = out.Active.Union(doc.Active)
		if v > out.Version {
			out.Version = v
		}
	}
	return out, nil
}

// CascadedQuery runs QueryTimes for each name. Flags the server does not
// know are left out of the result instead of failing the whole batch.
func (c *Client) CascadedQuery(ctx context.Context, names []string, start, end segments.Time) (map[string]*flags.QueryResult, error) {
	out := make(map[string]*flags.QueryResult, len(names))
	for _, name := range names {
		res, err := c.QueryTimes(ctx, name, start, end)
		if err != nil {
			if errors.Is(err, flags.ErrNoData) {
				c.log.Warnf("dqsegdb: no data for %s, skipping", name)
				continue
			}
			return nil, err
		}
		out[name] = res
	}
	return out, nil
}

// ListVersions returns the defined versions of a versionless flag name,
// sorted ascending.
func (c *Client) ListVersions(ctx context.Context, name string) ([]int, error) {
	parsed := flags.ParseName(name)
	if parsed.IFO == "" || parsed.Tag == "" {
		return nil, fmt.Errorf("%w: cannot parse flag name %q", flags.ErrMalformed, name)
	}
	return c.listVersions(ctx, parsed.IFO, parsed.Tag)
}

func (c *Client) listVersions(ctx context.Context, ifo, tag string) ([]int, error) {
	u := fmt.Sprintf("%s/dq/%s/%s", c.baseURL, url.PathEscape(ifo), url.PathEscape(tag))

	var doc versionsDoc
	if err := c.getJSON(ctx, u, &doc); err != nil {
		return nil, err
	}
	sort.Ints(doc.VersionIDs)
	return doc.VersionIDs, nil
}

// Invalidate drops any cached responses for a flag over [start, end).
// A versionless name invalidates every defined version. Without a cache
// attached this is a no-op.
func (c *Client) Invalidate(ctx context.Context, name string, start, end segments.Time) error {
	if c.cache == nil {
		return nil
	}

	parsed := flags.ParseName(name)
	if parsed.IFO == "" || parsed.Tag == "" {
		return fmt.Errorf("%w: cannot parse flag name %q", flags.ErrMalformed, name)
	}

	versions := []int{parsed.Version}
	if parsed.Version == flags.NoVersion {
		var err error
		versions, err = c.listVersions(ctx, parsed.IFO, parsed.Tag)
		if err != nil {
			return err
		}
	}

	s := strconv.FormatInt(int64(start.FloorSecond()/segments.Second), 10)
	e := strconv.FormatInt(int64(end.CeilSecond()/segments.Second), 10)

	for _, v := range versions {
		resource := fmt.Sprintf("%s:%s:%d", parsed.IFO, parsed.Tag, v)
		if err := c.cache.Delete(ctx, redis.QueryKey(resource, s, e)); err != nil {
			return fmt.Errorf("invalidate %s version %d: %w", name, v, err)
		}
	}
	return nil
}

func (c *Client) querySegments(ctx context.Context, ifo, tag string, version int, start, end segments.Time) (*segmentsDoc, error) {
	s := strconv.FormatInt(int64(start.FloorSecond()/segments.Second), 10)
	e := strconv.FormatInt(int64(end.CeilSecond()/segments.Second), 10)

	u := fmt.Sprintf("%s/dq/%s/%s/%d?s=%s&e=%s&include=active,known,metadata",
		c.baseURL, url.PathEscape(ifo), url.PathEscape(tag), version, s, e)

	resource := fmt.Sprintf("%s:%s:%d", ifo, tag, version)
	key := redis.QueryKey(resource, s, e)

	var doc segmentsDoc
	if c.cache != nil {
		hit, err := c.cache.Get(ctx, key, &doc)
		if err != nil {
			c.log.WithError(err).Warn("dqsegdb: cache read failed")
		} else if hit {
			return &doc, nil
		}
	}

	if err := c.getJSON(ctx, u, &doc); err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, &doc, c.cacheTTL); err != nil {
			c.log.WithError(err).Warn("dqsegdb: cache write failed")
		}
	}
	return &doc, nil
}

// getJSON performs the request and folds transport problems into the
// shared query error taxonomy.
func (c *Client) getJSON(ctx context.Context, u string, dest interface{}) error {
	resp, err := c.http.Get(ctx, u)
	if err != nil {
		return fmt.Errorf("%w: %v", flags.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", u, flags.ErrNoData)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: status %d from %s", flags.ErrUnavailable, resp.StatusCode, u)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", flags.ErrMalformed, u, err)
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", flags.ErrMalformed, u, err)
	}
	return nil
}
