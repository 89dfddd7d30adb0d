// Package overpass snaps points to the nearest road centerline using the
// Overpass API. Snapping keeps geocoded endpoints off building footprints
// and on the street the route actually uses.
package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/cashcab-studio/routeprep/internal/geom"
	"github.com/cashcab-studio/routeprep/internal/monitoring"
)

// DefaultServers are public Overpass instances, tried in order.
var DefaultServers = []string{
	"https://overpass-api.de",
	"https://overpass.kumi.systems",
}

// Snap parameters
const (
	// DefaultRadiusM bounds the way search around the query point.
	DefaultRadiusM = 150.0
	// DefaultMaxSnapM is the largest accepted shift. Larger moves mean the
	// point was nowhere near a road and snapping would do more harm than good.
	DefaultMaxSnapM = 60.0

	queryTimeoutS = 25
	maxRetries    = 3
)

// Road classes worth snapping to. Service roads and alleys near buildings
// are excluded on the first pass.
var highwayAllowlist = []string{
	"motorway", "trunk", "primary", "secondary", "tertiary",
	"unclassified", "residential", "living_street",
	"motorway_link", "trunk_link", "primary_link", "secondary_link", "tertiary_link",
}

// Client queries Overpass with server rotation, retry and throttling.
type Client struct {
	httpClient  *http.Client
	servers     []string
	userAgent   string
	minInterval time.Duration

	mu   sync.Mutex
	last time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithServers replaces the server rotation list.
func WithServers(servers ...string) Option { return func(c *Client) { c.servers = servers } }

// WithMinInterval overrides the call throttle. Zero disables it.
func WithMinInterval(d time.Duration) Option { return func(c *Client) { c.minInterval = d } }

// NewClient creates an Overpass client.
func NewClient(userAgent string, opts ...Option) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: 40 * time.Second},
		servers:     DefaultServers,
		userAgent:   userAgent,
		minInterval: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type element struct {
	Type  string  `json:"type"`
	ID    int64   `json:"id"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Nodes []int64 `json:"nodes"`
}

type overpassResponse struct {
	Elements []element `json:"elements"`
}

// Snap returns the point moved onto the nearest road centerline. The second
// return value is false when no acceptable road was found within
// DefaultMaxSnapM; callers should keep the original point in that case.
// streetName, when known, biases the search to ways with a matching name.
func (c *Client) Snap(ctx context.Context, p geom.LatLon, streetName string) (geom.LatLon, bool, error) {
	// Query order: name-aware allowlist, plain allowlist, any highway.
	queries := make([]string, 0, 3)
	if strings.TrimSpace(streetName) != "" {
		queries = append(queries, buildQuery(p, streetName))
	}
	queries = append(queries, buildQuery(p, ""), buildFallbackQuery(p))

	var data *overpassResponse
	for _, q := range queries {
		resp, err := c.requestJSON(ctx, q)
		if err != nil {
			if ctx.Err() != nil {
				return geom.LatLon{}, false, ctx.Err()
			}
			monitoring.Logf("overpass: snap query failed: %v", err)
			continue
		}
		if resp != nil && len(resp.Elements) > 0 {
			data = resp
			break
		}
	}
	if data == nil {
		return geom.LatLon{}, false, nil
	}

	snapped, dist, ok := nearestOnWays(p, data.Elements)
	if !ok || dist > DefaultMaxSnapM {
		return geom.LatLon{}, false, nil
	}
	return snapped, true, nil
}

// requestJSON posts a query, rotating servers and retrying with capped
// exponential backoff and jitter.
func (c *Client) requestJSON(ctx context.Context, query string) (*overpassResponse, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Min(5, math.Pow(2, float64(attempt-1)))*float64(time.Second)) +
				time.Duration(rand.Float64()*250)*time.Millisecond
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
		for _, server := range c.servers {
			if err := c.throttle(ctx); err != nil {
				return nil, err
			}
			resp, err := c.post(ctx, server, query)
			if err != nil {
				lastErr = err
				continue
			}
			return resp, nil
		}
	}
	return nil, fmt.Errorf("all overpass servers failed: %w", lastErr)
}

func (c *Client) post(ctx context.Context, server, query string) (*overpassResponse, error) {
	form := url.Values{"data": {query}}
	u := strings.TrimRight(server, "/") + "/api/interpreter"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", server, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned HTTP %d", server, resp.StatusCode)
	}
	var body overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response from %s: %w", server, err)
	}
	return &body, nil
}

func (c *Client) throttle(ctx context.Context) error {
	if c.minInterval <= 0 {
		return nil
	}
	c.mu.Lock()
	wait := c.minInterval - time.Since(c.last)
	c.last = time.Now().Add(max(wait, 0))
	c.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func buildQuery(p geom.LatLon, streetName string) string {
	nameFilter := ""
	if s := regexp.QuoteMeta(strings.TrimSpace(streetName)); s != "" {
		// Case-insensitive partial match keeps us off nearby service roads
		// with different names.
		nameFilter = fmt.Sprintf("[\"name\"~\"%s\",i]", s)
	}
	allow := strings.Join(highwayAllowlist, "|")
	return fmt.Sprintf(
		"[out:json][timeout:%d];\n(\n  way(around:%d,%f,%f)[\"highway\"~\"^(%s)$\"]%s;\n);\n(._;>;);\nout body;\n",
		queryTimeoutS, int(DefaultRadiusM), p.Lat, p.Lon, allow, nameFilter,
	)
}

func buildFallbackQuery(p geom.LatLon) string {
	return fmt.Sprintf(
		"[out:json][timeout:%d];\n(\n  way(around:%d,%f,%f)[\"highway\"];\n);\n(._;>;);\nout body;\n",
		queryTimeoutS, int(DefaultRadiusM), p.Lat, p.Lon,
	)
}

// nearestOnWays projects p onto every way segment in local meters and
// returns the closest point and its distance.
func nearestOnWays(p geom.LatLon, elements []element) (geom.LatLon, float64, bool) {
	nodes := make(map[int64]geom.LatLon)
	var ways []element
	for _, el := range elements {
		switch el.Type {
		case "node":
			nodes[el.ID] = geom.LatLon{Lat: el.Lat, Lon: el.Lon}
		case "way":
			if len(el.Nodes) >= 2 {
				ways = append(ways, el)
			}
		}
	}
	if len(nodes) == 0 || len(ways) == 0 {
		return geom.LatLon{}, 0, false
	}

	proj := geom.NewProjection(p.Lat)
	pp := proj.ToLocal(p)

	var (
		best     geom.Point
		bestDist = math.Inf(1)
	)
	for _, way := range ways {
		var prev geom.Point
		havePrev := false
		for _, id := range way.Nodes {
			c, ok := nodes[id]
			if !ok {
				continue
			}
			cur := proj.ToLocal(c)
			if havePrev {
				q, _ := geom.PointToSegment(pp, prev, cur)
				if d := math.Hypot(q.X-pp.X, q.Y-pp.Y); d < bestDist {
					best = q
					bestDist = d
				}
			}
			prev = cur
			havePrev = true
		}
	}
	if math.IsInf(bestDist, 1) {
		return geom.LatLon{}, 0, false
	}
	return proj.FromLocal(best), bestDist, true
}
