// Package pipeline runs one route import end to end: geocode the endpoints,
// fetch the driving route, snap endpoints to road centerlines, project to
// local meters, thin and trim the geometry, and store the result.
package pipeline

import (
	"context"
	"fmt"

	"github.com/cashcab-studio/routeprep/internal/clients/nominatim"
	"github.com/cashcab-studio/routeprep/internal/clients/osrm"
	"github.com/cashcab-studio/routeprep/internal/db"
	"github.com/cashcab-studio/routeprep/internal/geom"
	"github.com/cashcab-studio/routeprep/internal/monitoring"
	"github.com/cashcab-studio/routeprep/internal/route"
)

// Geocoder resolves an address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*nominatim.Result, error)
}

// Router fetches a driving route through the given coordinates.
type Router interface {
	Drive(ctx context.Context, coords ...geom.LatLon) (*osrm.Route, error)
}

// Snapper moves a point onto the nearest road centerline.
type Snapper interface {
	Snap(ctx context.Context, p geom.LatLon, streetName string) (geom.LatLon, bool, error)
}

// Config holds the tunable import parameters.
type Config struct {
	// PaddingM expands the route bounding box on every side.
	PaddingM float64
	// MaxTileM is the maximum tile edge when splitting the padded box.
	MaxTileM float64
	// SimplifyEpsilonM thins dense route geometry before trimming.
	// Zero disables simplification.
	SimplifyEpsilonM float64
	// Trim is the default trim configuration; requests may override it.
	Trim route.TrimConfig
}

// DefaultConfig returns the standard import parameters.
func DefaultConfig() Config {
	return Config{
		PaddingM:         100,
		MaxTileM:         3000,
		SimplifyEpsilonM: 0.5,
		Trim:             route.DefaultTrimConfig(),
	}
}

// Request describes one route import.
type Request struct {
	StartAddress string
	EndAddress   string
	Waypoints    []string
	ShotCode     string
	// Trim overrides the pipeline default when non-nil.
	Trim *route.TrimConfig
}

// Pipeline wires the clients and the store together.
type Pipeline struct {
	geocoder Geocoder
	router   Router
	snapper  Snapper // nil disables snapping
	store    *db.DB
	cfg      Config
}

// New creates a pipeline. snapper may be nil to disable centerline snapping.
func New(geocoder Geocoder, router Router, snapper Snapper, store *db.DB, cfg Config) *Pipeline {
	return &Pipeline{
		geocoder: geocoder,
		router:   router,
		snapper:  snapper,
		store:    store,
		cfg:      cfg,
	}
}

// Import runs a full route import and stores the result.
func (p *Pipeline) Import(ctx context.Context, req Request) (*db.Route, error) {
	if req.StartAddress == "" || req.EndAddress == "" {
		return nil, fmt.Errorf("start and end addresses are required")
	}

	start, err := p.geocoder.Geocode(ctx, req.StartAddress)
	if err != nil {
		return nil, fmt.Errorf("geocode start %q: %w", req.StartAddress, err)
	}
	end, err := p.geocoder.Geocode(ctx, req.EndAddress)
	if err != nil {
		return nil, fmt.Errorf("geocode end %q: %w", req.EndAddress, err)
	}

	coords := make([]geom.LatLon, 0, len(req.Waypoints)+2)
	coords = append(coords, p.snap(ctx, start))
	for _, wp := range req.Waypoints {
		res, err := p.geocoder.Geocode(ctx, wp)
		if err != nil {
			return nil, fmt.Errorf("geocode waypoint %q: %w", wp, err)
		}
		coords = append(coords, p.snap(ctx, res))
	}
	coords = append(coords, p.snap(ctx, end))

	drive, err := p.router.Drive(ctx, coords...)
	if err != nil {
		return nil, fmt.Errorf("fetch route: %w", err)
	}

	bbox := geom.ComputeBBox(drive.Points)
	padded := bbox.Pad(p.cfg.PaddingM)
	width, height := padded.Size()
	tiles := padded.Tiles(p.cfg.MaxTileM)

	// All planar processing happens in a local projection anchored at the
	// box mid-latitude; anchor_lat is stored so re-trims reproject the same
	// way.
	anchorLat := bbox.MidLat()
	proj := geom.NewProjection(anchorLat)
	local := proj.ProjectPath(drive.Points)
	if p.cfg.SimplifyEpsilonM > 0 {
		local = route.Simplify(local, p.cfg.SimplifyEpsilonM)
	}

	trimCfg := p.cfg.Trim
	if req.Trim != nil {
		trimCfg = *req.Trim
	}
	trimmed := route.TrimUTurns(local, trimCfg)
	if len(trimmed) < len(local) {
		monitoring.Logf("pipeline: trimmed %d of %d points from %q -> %q",
			len(local)-len(trimmed), len(local), req.StartAddress, req.EndAddress)
	}

	rec := &db.Route{
		ShotCode:         req.ShotCode,
		StartAddress:     req.StartAddress,
		EndAddress:       req.EndAddress,
		StartDisplayName: start.DisplayName,
		EndDisplayName:   end.DisplayName,
		Start:            coords[0],
		End:              coords[len(coords)-1],
		DistanceM:        drive.DistanceM,
		DurationS:        drive.DurationS,
		AnchorLat:        anchorLat,
		RawPoints:        unproject(proj, local),
		TrimmedPoints:    unproject(proj, trimmed),
		TrimParams:       trimCfg,
		BBox:             bbox,
		PaddingM:         p.cfg.PaddingM,
		WidthM:           width,
		HeightM:          height,
		AreaKm2:          padded.AreaKm2(),
		TileCount:        len(tiles),
	}
	if err := p.store.InsertRoute(rec); err != nil {
		return nil, fmt.Errorf("store route: %w", err)
	}
	return rec, nil
}

// Retrim re-runs the trimmer over a stored route's raw geometry with new
// parameters and persists the result. No network calls are made.
func (p *Pipeline) Retrim(id string, cfg route.TrimConfig) (*db.Route, error) {
	rec, err := p.store.GetRoute(id)
	if err != nil {
		return nil, err
	}

	proj := geom.NewProjection(rec.AnchorLat)
	local := proj.ProjectPath(rec.RawPoints)
	trimmed := route.TrimUTurns(local, cfg)

	rec.TrimmedPoints = unproject(proj, trimmed)
	rec.TrimParams = cfg
	if err := p.store.UpdateRouteTrim(id, rec.TrimmedPoints, cfg); err != nil {
		return nil, err
	}
	return rec, nil
}

// snap moves a geocoded point onto the nearest road when a snapper is
// configured. Failures are logged and the original point kept.
func (p *Pipeline) snap(ctx context.Context, res *nominatim.Result) geom.LatLon {
	if p.snapper == nil {
		return res.Coord
	}
	snapped, ok, err := p.snapper.Snap(ctx, res.Coord, res.StreetName)
	if err != nil {
		monitoring.Logf("pipeline: snap failed for %q: %v", res.Address, err)
		return res.Coord
	}
	if !ok {
		return res.Coord
	}
	return snapped
}

func unproject(proj geom.Projection, points []geom.Point) []geom.LatLon {
	coords := make([]geom.LatLon, len(points))
	for i, pt := range points {
		coords[i] = proj.FromLocal(pt)
	}
	return coords
}
