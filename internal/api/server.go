// Package api serves the route import and inspection HTTP API.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/cashcab-studio/routeprep/internal/db"
	"github.com/cashcab-studio/routeprep/internal/pipeline"
	"github.com/cashcab-studio/routeprep/internal/route"
	"github.com/cashcab-studio/routeprep/internal/units"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	db    *db.DB
	pl    *pipeline.Pipeline
	units string
}

func NewServer(database *db.DB, pl *pipeline.Pipeline, unitLabel string) *Server {
	if !units.IsValid(unitLabel) {
		unitLabel = units.Meters
	}
	return &Server{
		db:    database,
		pl:    pl,
		units: unitLabel,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/routes", s.importRoute)
	mux.HandleFunc("GET /api/routes", s.listRoutes)
	mux.HandleFunc("GET /api/routes/{id}", s.showRoute)
	mux.HandleFunc("DELETE /api/routes/{id}", s.deleteRoute)
	mux.HandleFunc("POST /api/routes/{id}/trim", s.retrimRoute)
	mux.HandleFunc("GET /api/routes/{id}/kml", s.exportKML)
	mux.HandleFunc("GET /api/routes/{id}/chart", s.showChart)
	mux.HandleFunc("GET /api/config", s.showConfig)
	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	config := map[string]interface{}{
		"units":        s.units,
		"trim_default": route.DefaultTrimConfig(),
	}

	if err := json.NewEncoder(w).Encode(config); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write config")
		return
	}
}

// convertDistance renders a stored meter value in the server's display units.
func (s *Server) convertDistance(meters float64) float64 {
	return units.ConvertDistance(meters, s.units)
}
