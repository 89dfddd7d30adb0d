package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cashcab-studio/routeprep/internal/clients/nominatim"
	"github.com/cashcab-studio/routeprep/internal/clients/osrm"
	"github.com/cashcab-studio/routeprep/internal/db"
	"github.com/cashcab-studio/routeprep/internal/geom"
	"github.com/cashcab-studio/routeprep/internal/route"
)

type stubGeocoder struct {
	results map[string]*nominatim.Result
	err     error
}

func (g *stubGeocoder) Geocode(_ context.Context, address string) (*nominatim.Result, error) {
	if g.err != nil {
		return nil, g.err
	}
	res, ok := g.results[address]
	if !ok {
		return nil, nominatim.ErrNotFound
	}
	return res, nil
}

type stubRouter struct {
	points    []geom.LatLon
	gotCoords []geom.LatLon
}

func (r *stubRouter) Drive(_ context.Context, coords ...geom.LatLon) (*osrm.Route, error) {
	r.gotCoords = coords
	return &osrm.Route{Points: r.points, DistanceM: 370, DurationS: 55}, nil
}

type stubSnapper struct {
	to geom.LatLon
}

func (s *stubSnapper) Snap(_ context.Context, p geom.LatLon, _ string) (geom.LatLon, bool, error) {
	return s.to, true, nil
}

func newTestStore(t *testing.T) *db.DB {
	t.Helper()
	store, err := db.OpenDB(filepath.Join(t.TempDir(), "pipeline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	fsys, err := db.MigrationsFS()
	require.NoError(t, err)
	require.NoError(t, store.MigrateUp(fsys))
	return store
}

// loopRoute returns a route whose first three segments form a tight U-turn,
// expressed in geographic coordinates near the equator.
func loopRoute() []geom.LatLon {
	proj := geom.NewProjection(0)
	local := []geom.Point{
		{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}, {X: -340, Y: 10},
	}
	coords := make([]geom.LatLon, len(local))
	for i, p := range local {
		coords[i] = proj.FromLocal(p)
	}
	return coords
}

func testGeocoder() *stubGeocoder {
	return &stubGeocoder{results: map[string]*nominatim.Result{
		"start": {Address: "start", Coord: geom.LatLon{Lat: 0, Lon: 0}, DisplayName: "Start Rd", StreetName: "Start Rd"},
		"end":   {Address: "end", Coord: geom.LatLon{Lat: 0.0001, Lon: -0.003}, DisplayName: "End Ave"},
		"mid":   {Address: "mid", Coord: geom.LatLon{Lat: 0.00005, Lon: -0.001}, DisplayName: "Mid St"},
	}}
}

func TestImport_TrimsStartLoop(t *testing.T) {
	store := newTestStore(t)
	router := &stubRouter{points: loopRoute()}
	p := New(testGeocoder(), router, nil, store, DefaultConfig())

	rec, err := p.Import(context.Background(), Request{
		StartAddress: "start",
		EndAddress:   "end",
		ShotCode:     "CC0042",
	})
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID)

	assert.Equal(t, "Start Rd", rec.StartDisplayName)
	assert.Equal(t, "End Ave", rec.EndDisplayName)
	assert.InDelta(t, 370, rec.DistanceM, 1e-9)
	assert.Len(t, rec.RawPoints, 5)
	// The loop before the long straight is cut away.
	assert.Len(t, rec.TrimmedPoints, 2)
	assert.Greater(t, rec.TileCount, 0)

	// The record is persisted.
	got, err := store.GetRoute(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "CC0042", got.ShotCode)
	assert.Len(t, got.TrimmedPoints, 2)
}

func TestImport_WaypointsReachRouter(t *testing.T) {
	store := newTestStore(t)
	router := &stubRouter{points: loopRoute()}
	p := New(testGeocoder(), router, nil, store, DefaultConfig())

	_, err := p.Import(context.Background(), Request{
		StartAddress: "start",
		EndAddress:   "end",
		Waypoints:    []string{"mid"},
	})
	require.NoError(t, err)
	require.Len(t, router.gotCoords, 3)
	assert.InDelta(t, -0.001, router.gotCoords[1].Lon, 1e-9)
}

func TestImport_TrimOverride(t *testing.T) {
	store := newTestStore(t)
	router := &stubRouter{points: loopRoute()}
	p := New(testGeocoder(), router, nil, store, DefaultConfig())

	// A 179-degree corner threshold leaves nothing to trim.
	cfg := route.DefaultTrimConfig()
	cfg.CornerAngleMinDeg = 179
	rec, err := p.Import(context.Background(), Request{
		StartAddress: "start",
		EndAddress:   "end",
		Trim:         &cfg,
	})
	require.NoError(t, err)
	assert.Len(t, rec.TrimmedPoints, len(rec.RawPoints))
	assert.InDelta(t, 179, rec.TrimParams.CornerAngleMinDeg, 1e-9)
}

func TestImport_SnapperMovesEndpoints(t *testing.T) {
	store := newTestStore(t)
	router := &stubRouter{points: loopRoute()}
	snapped := geom.LatLon{Lat: 0.00001, Lon: 0.00001}
	p := New(testGeocoder(), router, &stubSnapper{to: snapped}, store, DefaultConfig())

	rec, err := p.Import(context.Background(), Request{
		StartAddress: "start",
		EndAddress:   "end",
	})
	require.NoError(t, err)
	assert.InDelta(t, snapped.Lat, rec.Start.Lat, 1e-12)
	assert.InDelta(t, snapped.Lon, rec.Start.Lon, 1e-12)
	assert.InDelta(t, snapped.Lat, rec.End.Lat, 1e-12)
}

func TestImport_GeocodeFailure(t *testing.T) {
	store := newTestStore(t)
	p := New(testGeocoder(), &stubRouter{points: loopRoute()}, nil, store, DefaultConfig())

	_, err := p.Import(context.Background(), Request{
		StartAddress: "unknown place",
		EndAddress:   "end",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, nominatim.ErrNotFound))
	assert.Contains(t, err.Error(), "geocode start")
}

func TestImport_MissingAddresses(t *testing.T) {
	store := newTestStore(t)
	p := New(testGeocoder(), &stubRouter{}, nil, store, DefaultConfig())
	_, err := p.Import(context.Background(), Request{StartAddress: "start"})
	assert.Error(t, err)
}

func TestRetrim(t *testing.T) {
	store := newTestStore(t)
	router := &stubRouter{points: loopRoute()}
	p := New(testGeocoder(), router, nil, store, DefaultConfig())

	rec, err := p.Import(context.Background(), Request{
		StartAddress: "start",
		EndAddress:   "end",
	})
	require.NoError(t, err)
	require.Len(t, rec.TrimmedPoints, 2)

	// Relaxing the corner threshold restores the full geometry.
	cfg := route.DefaultTrimConfig()
	cfg.CornerAngleMinDeg = 179
	updated, err := p.Retrim(rec.ID, cfg)
	require.NoError(t, err)
	assert.Len(t, updated.TrimmedPoints, len(rec.RawPoints))

	got, err := store.GetRoute(rec.ID)
	require.NoError(t, err)
	assert.Len(t, got.TrimmedPoints, len(rec.RawPoints))
	assert.InDelta(t, 179, got.TrimParams.CornerAngleMinDeg, 1e-9)
}

func TestRetrim_NotFound(t *testing.T) {
	store := newTestStore(t)
	p := New(testGeocoder(), &stubRouter{}, nil, store, DefaultConfig())
	_, err := p.Retrim("missing", route.DefaultTrimConfig())
	assert.True(t, errors.Is(err, db.ErrRouteNotFound))
}
