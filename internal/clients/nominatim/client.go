// Package nominatim geocodes free-form addresses with the OSM Nominatim
// search API. Raw "lat, lon" input is recognised locally and never hits the
// network.
package nominatim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/cashcab-studio/routeprep/internal/geom"
)

// ErrNotFound indicates the service returned no results for the address.
var ErrNotFound = errors.New("address not found")

// DefaultBaseURL is the public Nominatim instance.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// Result is a resolved address.
type Result struct {
	Address     string      `json:"address"`
	Coord       geom.LatLon `json:"coord"`
	DisplayName string      `json:"display_name"`
	// StreetName is the road name from the address breakdown when the
	// service provides one. Used to bias centerline snapping.
	StreetName string `json:"street_name,omitempty"`
}

// Client is a rate-limited Nominatim client. The public instance requires a
// meaningful User-Agent and at most one request per second.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	userAgent    string
	countryCodes string
	minInterval  time.Duration

	mu   sync.Mutex
	last time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different Nominatim instance.
func WithBaseURL(u string) Option { return func(c *Client) { c.baseURL = u } }

// WithCountryCodes restricts search results to the given comma-separated
// ISO 3166-1 alpha-2 codes.
func WithCountryCodes(codes string) Option { return func(c *Client) { c.countryCodes = codes } }

// WithMinInterval overrides the request throttle. Zero disables it.
func WithMinInterval(d time.Duration) Option { return func(c *Client) { c.minInterval = d } }

// NewClient creates a Nominatim client. userAgent must identify the
// application; the public instance rejects generic agents.
func NewClient(userAgent string, opts ...Option) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		baseURL:     DefaultBaseURL,
		userAgent:   userAgent,
		minInterval: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type searchEntry struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	Address     struct {
		Road       string `json:"road"`
		Pedestrian string `json:"pedestrian"`
		Footway    string `json:"footway"`
		Street     string `json:"street"`
	} `json:"address"`
}

// Geocode resolves an address to coordinates. A raw "lat, lon" string is
// returned directly without a network call.
func (c *Client) Geocode(ctx context.Context, address string) (*Result, error) {
	if address == "" {
		return nil, errors.New("address is empty")
	}

	if coord, ok := geom.ParseLatLon(address); ok {
		return &Result{Address: address, Coord: coord, DisplayName: address}, nil
	}

	if err := c.throttle(ctx); err != nil {
		return nil, err
	}

	q := url.Values{
		"q":              {address},
		"format":         {"json"},
		"limit":          {"1"},
		"addressdetails": {"1"},
	}
	if c.countryCodes != "" {
		q.Set("countrycodes", c.countryCodes)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoding service returned HTTP %d", resp.StatusCode)
	}

	var entries []searchEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode geocoding response: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, address)
	}

	entry := entries[0]
	lat, err := strconv.ParseFloat(entry.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed latitude in geocoding result for %q: %w", address, err)
	}
	lon, err := strconv.ParseFloat(entry.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed longitude in geocoding result for %q: %w", address, err)
	}

	display := entry.DisplayName
	if display == "" {
		display = address
	}
	return &Result{
		Address:     address,
		Coord:       geom.LatLon{Lat: lat, Lon: lon},
		DisplayName: display,
		StreetName:  firstNonEmpty(entry.Address.Road, entry.Address.Pedestrian, entry.Address.Footway, entry.Address.Street),
	}, nil
}

// throttle enforces the minimum interval between requests, honoring context
// cancellation while waiting.
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

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
