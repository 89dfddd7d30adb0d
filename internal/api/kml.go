package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/twpayne/go-kml/v2"

	"github.com/cashcab-studio/routeprep/internal/db"
	"github.com/cashcab-studio/routeprep/internal/geom"
)

// exportKML renders a route as a KML document with one placemark for the raw
// geometry and one for the trimmed geometry, so both can be compared in any
// map viewer.
func (s *Server) exportKML(w http.ResponseWriter, r *http.Request) {
	rec, err := s.db.GetRoute(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, db.ErrRouteNotFound) {
			s.writeJSONError(w, http.StatusNotFound, "Route not found")
			return
		}
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load route: %v", err))
		return
	}

	doc := kml.KML(
		kml.Document(
			kml.Name(fmt.Sprintf("Route %s", rec.ID)),
			kml.Placemark(
				kml.Name("raw"),
				kml.LineString(
					kml.Tessellate(true),
					kml.Coordinates(kmlCoordinates(rec.RawPoints)...),
				),
			),
			kml.Placemark(
				kml.Name("trimmed"),
				kml.LineString(
					kml.Tessellate(true),
					kml.Coordinates(kmlCoordinates(rec.TrimmedPoints)...),
				),
			),
		),
	)

	w.Header().Set("Content-Type", "application/vnd.google-earth.kml+xml")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=route-%s.kml", rec.ID))
	if err := doc.WriteIndent(w, "", "  "); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to write KML: %v", err))
	}
}

func kmlCoordinates(coords []geom.LatLon) []kml.Coordinate {
	out := make([]kml.Coordinate, len(coords))
	for i, c := range coords {
		out[i] = kml.Coordinate{Lon: c.Lon, Lat: c.Lat}
	}
	return out
}
