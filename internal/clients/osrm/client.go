// Package osrm fetches driving routes from an OSRM HTTP backend and decodes
// the encoded-polyline geometry.
package osrm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/twpayne/go-polyline"

	"github.com/cashcab-studio/routeprep/internal/geom"
)

// ErrNoRoute indicates the backend could not connect the requested points.
var ErrNoRoute = errors.New("no driving route found")

// DefaultBaseURL is the public OSRM demo server.
const DefaultBaseURL = "https://router.project-osrm.org"

// Route is a decoded driving route.
type Route struct {
	Points    []geom.LatLon
	DistanceM float64
	DurationS float64
}

// Client queries an OSRM route service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// NewClient creates an OSRM client against the given base URL. An empty
// baseURL selects the public demo server.
func NewClient(baseURL, userAgent string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
	}
}

type routeResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Geometry string  `json:"geometry"`
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
	} `json:"routes"`
}

// Drive fetches the driving route visiting the given coordinates in order.
// At least two coordinates are required; any in between are waypoints.
func (c *Client) Drive(ctx context.Context, coords ...geom.LatLon) (*Route, error) {
	if len(coords) < 2 {
		return nil, errors.New("need at least start and end coordinates")
	}

	// OSRM wants lon,lat pairs separated by semicolons.
	parts := make([]string, len(coords))
	for i, p := range coords {
		parts[i] = strconv.FormatFloat(p.Lon, 'f', 6, 64) + "," + strconv.FormatFloat(p.Lat, 'f', 6, 64)
	}
	u := c.baseURL + "/route/v1/driving/" + strings.Join(parts, ";") + "?overview=full&geometries=polyline"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("routing request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("routing service returned HTTP %d", resp.StatusCode)
	}

	var body routeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode routing response: %w", err)
	}
	if body.Code != "Ok" || len(body.Routes) == 0 {
		return nil, ErrNoRoute
	}

	r := body.Routes[0]
	if r.Geometry == "" {
		return nil, errors.New("routing service returned no geometry")
	}
	pairs, _, err := polyline.DecodeCoords([]byte(r.Geometry))
	if err != nil {
		return nil, fmt.Errorf("malformed route geometry: %w", err)
	}
	if len(pairs) == 0 {
		return nil, errors.New("route geometry is empty")
	}

	points := make([]geom.LatLon, len(pairs))
	for i, p := range pairs {
		points[i] = geom.LatLon{Lat: p[0], Lon: p[1]}
	}
	return &Route{Points: points, DistanceM: r.Distance, DurationS: r.Duration}, nil
}
