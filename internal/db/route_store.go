package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cashcab-studio/routeprep/internal/geom"
	"github.com/cashcab-studio/routeprep/internal/route"
)

// ErrRouteNotFound indicates the requested route does not exist.
var ErrRouteNotFound = errors.New("route not found")

// Route is a stored route import: the resolved endpoints, the raw geometry
// from the routing service and the trimmed geometry with the parameters that
// produced it. Geometry is kept as lat/lon; anchor_lat reconstructs the
// local projection used during trimming.
type Route struct {
	ID               string           `json:"id"`
	ShotCode         string           `json:"shot_code,omitempty"`
	StartAddress     string           `json:"start_address"`
	EndAddress       string           `json:"end_address"`
	StartDisplayName string           `json:"start_display_name,omitempty"`
	EndDisplayName   string           `json:"end_display_name,omitempty"`
	Start            geom.LatLon      `json:"start"`
	End              geom.LatLon      `json:"end"`
	DistanceM        float64          `json:"distance_m"`
	DurationS        float64          `json:"duration_s"`
	AnchorLat        float64          `json:"anchor_lat"`
	RawPoints        []geom.LatLon    `json:"raw_points,omitempty"`
	TrimmedPoints    []geom.LatLon    `json:"trimmed_points,omitempty"`
	TrimParams       route.TrimConfig `json:"trim_params"`
	BBox             geom.BBox        `json:"bbox"`
	PaddingM         float64          `json:"padding_m"`
	WidthM           float64          `json:"width_m"`
	HeightM          float64          `json:"height_m"`
	AreaKm2          float64          `json:"area_km2"`
	TileCount        int              `json:"tile_count"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// RouteSummary is a listing row without geometry payloads.
type RouteSummary struct {
	ID                string    `json:"id"`
	ShotCode          string    `json:"shot_code,omitempty"`
	StartAddress      string    `json:"start_address"`
	EndAddress        string    `json:"end_address"`
	DistanceM         float64   `json:"distance_m"`
	DurationS         float64   `json:"duration_s"`
	RawPointCount     int       `json:"raw_point_count"`
	TrimmedPointCount int       `json:"trimmed_point_count"`
	CreatedAt         time.Time `json:"created_at"`
}

const timeFormat = time.RFC3339

// InsertRoute stores a new route and assigns it an id.
func (db *DB) InsertRoute(r *Route) error {
	r.ID = uuid.New().String()
	now := time.Now().UTC().Truncate(time.Second)
	r.CreatedAt = now
	r.UpdatedAt = now

	rawJSON, err := encodePoints(r.RawPoints)
	if err != nil {
		return fmt.Errorf("failed to encode raw points: %w", err)
	}
	trimmedJSON, err := encodePoints(r.TrimmedPoints)
	if err != nil {
		return fmt.Errorf("failed to encode trimmed points: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO routes (
			route_id, shot_code, start_address, end_address,
			start_display_name, end_display_name,
			start_lat, start_lon, end_lat, end_lon,
			distance_m, duration_s, anchor_lat,
			raw_points, trimmed_points, raw_point_count, trimmed_point_count,
			window_fraction, corner_angle_min_deg, direction_reverse_deg, max_uturn_fraction,
			bbox_south, bbox_west, bbox_north, bbox_east,
			padding_m, width_m, height_m, area_km2, tile_count,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.ShotCode, r.StartAddress, r.EndAddress,
		r.StartDisplayName, r.EndDisplayName,
		r.Start.Lat, r.Start.Lon, r.End.Lat, r.End.Lon,
		r.DistanceM, r.DurationS, r.AnchorLat,
		rawJSON, trimmedJSON, len(r.RawPoints), len(r.TrimmedPoints),
		r.TrimParams.WindowFraction, r.TrimParams.CornerAngleMinDeg,
		r.TrimParams.DirectionReverseDeg, r.TrimParams.MaxUTurnFraction,
		r.BBox.South, r.BBox.West, r.BBox.North, r.BBox.East,
		r.PaddingM, r.WidthM, r.HeightM, r.AreaKm2, r.TileCount,
		r.CreatedAt.Format(timeFormat), r.UpdatedAt.Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("failed to insert route: %w", err)
	}
	return nil
}

// GetRoute loads a route with its full geometry.
func (db *DB) GetRoute(id string) (*Route, error) {
	var (
		r                    Route
		rawJSON, trimmedJSON string
		createdAt, updatedAt string
	)
	err := db.QueryRow(`
		SELECT route_id, shot_code, start_address, end_address,
			start_display_name, end_display_name,
			start_lat, start_lon, end_lat, end_lon,
			distance_m, duration_s, anchor_lat,
			raw_points, trimmed_points,
			window_fraction, corner_angle_min_deg, direction_reverse_deg, max_uturn_fraction,
			bbox_south, bbox_west, bbox_north, bbox_east,
			padding_m, width_m, height_m, area_km2, tile_count,
			created_at, updated_at
		FROM routes WHERE route_id = ?`, id).Scan(
		&r.ID, &r.ShotCode, &r.StartAddress, &r.EndAddress,
		&r.StartDisplayName, &r.EndDisplayName,
		&r.Start.Lat, &r.Start.Lon, &r.End.Lat, &r.End.Lon,
		&r.DistanceM, &r.DurationS, &r.AnchorLat,
		&rawJSON, &trimmedJSON,
		&r.TrimParams.WindowFraction, &r.TrimParams.CornerAngleMinDeg,
		&r.TrimParams.DirectionReverseDeg, &r.TrimParams.MaxUTurnFraction,
		&r.BBox.South, &r.BBox.West, &r.BBox.North, &r.BBox.East,
		&r.PaddingM, &r.WidthM, &r.HeightM, &r.AreaKm2, &r.TileCount,
		&createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrRouteNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load route: %w", err)
	}

	if r.RawPoints, err = decodePoints(rawJSON); err != nil {
		return nil, fmt.Errorf("failed to decode raw points: %w", err)
	}
	if r.TrimmedPoints, err = decodePoints(trimmedJSON); err != nil {
		return nil, fmt.Errorf("failed to decode trimmed points: %w", err)
	}
	r.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	r.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)
	return &r, nil
}

// ListRoutes returns the most recent routes, newest first.
func (db *DB) ListRoutes(limit int) ([]RouteSummary, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(`
		SELECT route_id, shot_code, start_address, end_address,
			distance_m, duration_s, raw_point_count, trimmed_point_count, created_at
		FROM routes ORDER BY created_at DESC, route_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}
	defer rows.Close()

	var summaries []RouteSummary
	for rows.Next() {
		var (
			s         RouteSummary
			createdAt string
		)
		if err := rows.Scan(&s.ID, &s.ShotCode, &s.StartAddress, &s.EndAddress,
			&s.DistanceM, &s.DurationS, &s.RawPointCount, &s.TrimmedPointCount, &createdAt); err != nil {
			return nil, err
		}
		s.CreatedAt, _ = time.Parse(timeFormat, createdAt)
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return summaries, nil
}

// UpdateRouteTrim replaces the trimmed geometry and the parameters that
// produced it. Raw geometry is immutable.
func (db *DB) UpdateRouteTrim(id string, trimmed []geom.LatLon, params route.TrimConfig) error {
	trimmedJSON, err := encodePoints(trimmed)
	if err != nil {
		return fmt.Errorf("failed to encode trimmed points: %w", err)
	}
	res, err := db.Exec(`
		UPDATE routes SET
			trimmed_points = ?, trimmed_point_count = ?,
			window_fraction = ?, corner_angle_min_deg = ?,
			direction_reverse_deg = ?, max_uturn_fraction = ?,
			updated_at = ?
		WHERE route_id = ?`,
		trimmedJSON, len(trimmed),
		params.WindowFraction, params.CornerAngleMinDeg,
		params.DirectionReverseDeg, params.MaxUTurnFraction,
		time.Now().UTC().Truncate(time.Second).Format(timeFormat), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update trim: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRouteNotFound, id)
	}
	return nil
}

// DeleteRoute removes a route.
func (db *DB) DeleteRoute(id string) error {
	res, err := db.Exec("DELETE FROM routes WHERE route_id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete route: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRouteNotFound, id)
	}
	return nil
}

// encodePoints stores geometry as a compact JSON array of [lat, lon] pairs.
func encodePoints(points []geom.LatLon) (string, error) {
	pairs := make([][2]float64, len(points))
	for i, p := range points {
		pairs[i] = [2]float64{p.Lat, p.Lon}
	}
	b, err := json.Marshal(pairs)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodePoints(raw string) ([]geom.LatLon, error) {
	var pairs [][2]float64
	if err := json.Unmarshal([]byte(raw), &pairs); err != nil {
		return nil, err
	}
	points := make([]geom.LatLon, len(pairs))
	for i, p := range pairs {
		points[i] = geom.LatLon{Lat: p[0], Lon: p[1]}
	}
	return points, nil
}
