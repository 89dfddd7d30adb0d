package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/cashcab-studio/routeprep/internal/db"
	"github.com/cashcab-studio/routeprep/internal/geom"
	"github.com/cashcab-studio/routeprep/internal/pipeline"
	"github.com/cashcab-studio/routeprep/internal/route"
)

type importRequest struct {
	StartAddress string           `json:"start_address"`
	EndAddress   string           `json:"end_address"`
	Waypoints    []string         `json:"waypoints,omitempty"`
	ShotCode     string           `json:"shot_code,omitempty"`
	Trim         *trimConfigPatch `json:"trim,omitempty"`
}

// trimConfigPatch overrides individual trim parameters; absent fields keep
// their defaults.
type trimConfigPatch struct {
	WindowFraction      *float64 `json:"window_fraction,omitempty"`
	CornerAngleMinDeg   *float64 `json:"corner_angle_min_deg,omitempty"`
	DirectionReverseDeg *float64 `json:"direction_reverse_deg,omitempty"`
	MaxUTurnFraction    *float64 `json:"max_uturn_fraction,omitempty"`
}

func (p *trimConfigPatch) apply(base route.TrimConfig) route.TrimConfig {
	if p == nil {
		return base
	}
	if p.WindowFraction != nil {
		base.WindowFraction = *p.WindowFraction
	}
	if p.CornerAngleMinDeg != nil {
		base.CornerAngleMinDeg = *p.CornerAngleMinDeg
	}
	if p.DirectionReverseDeg != nil {
		base.DirectionReverseDeg = *p.DirectionReverseDeg
	}
	if p.MaxUTurnFraction != nil {
		base.MaxUTurnFraction = *p.MaxUTurnFraction
	}
	return base
}

// routeResponse wraps a stored route with display units and shape summaries.
type routeResponse struct {
	Units        string      `json:"units"`
	Distance     float64     `json:"distance"`
	Route        *db.Route   `json:"route"`
	RawStats     route.Stats `json:"raw_stats"`
	TrimmedStats route.Stats `json:"trimmed_stats"`
}

func (s *Server) routePayload(rec *db.Route) routeResponse {
	proj := geom.NewProjection(rec.AnchorLat)
	return routeResponse{
		Units:        s.units,
		Distance:     s.convertDistance(rec.DistanceM),
		Route:        rec,
		RawStats:     route.ComputeStats(proj.ProjectPath(rec.RawPoints)),
		TrimmedStats: route.ComputeStats(proj.ProjectPath(rec.TrimmedPoints)),
	}
}

func (s *Server) importRoute(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.StartAddress == "" || req.EndAddress == "" {
		s.writeJSONError(w, http.StatusBadRequest, "start_address and end_address are required")
		return
	}

	preq := pipeline.Request{
		StartAddress: req.StartAddress,
		EndAddress:   req.EndAddress,
		Waypoints:    req.Waypoints,
		ShotCode:     req.ShotCode,
	}
	if req.Trim != nil {
		cfg := req.Trim.apply(route.DefaultTrimConfig())
		preq.Trim = &cfg
	}

	rec, err := s.pl.Import(r.Context(), preq)
	if err != nil {
		s.writeJSONError(w, http.StatusBadGateway, fmt.Sprintf("Import failed: %v", err))
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(s.routePayload(rec)); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write route")
	}
}

func (s *Server) listRoutes(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	summaries, err := s.db.ListRoutes(limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to list routes: %v", err))
		return
	}
	for i := range summaries {
		summaries[i].DistanceM = s.convertDistance(summaries[i].DistanceM)
	}

	payload := map[string]interface{}{
		"units":  s.units,
		"routes": summaries,
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write routes")
	}
}

func (s *Server) showRoute(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	rec, err := s.db.GetRoute(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, db.ErrRouteNotFound) {
			s.writeJSONError(w, http.StatusNotFound, "Route not found")
			return
		}
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load route: %v", err))
		return
	}

	if err := json.NewEncoder(w).Encode(s.routePayload(rec)); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write route")
	}
}

func (s *Server) deleteRoute(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	err := s.db.DeleteRoute(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, db.ErrRouteNotFound) {
			s.writeJSONError(w, http.StatusNotFound, "Route not found")
			return
		}
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to delete route: %v", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) retrimRoute(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var patch trimConfigPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	cfg := patch.apply(route.DefaultTrimConfig())

	rec, err := s.pl.Retrim(r.PathValue("id"), cfg)
	if err != nil {
		if errors.Is(err, db.ErrRouteNotFound) {
			s.writeJSONError(w, http.StatusNotFound, "Route not found")
			return
		}
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Retrim failed: %v", err))
		return
	}

	if err := json.NewEncoder(w).Encode(s.routePayload(rec)); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write route")
	}
}
