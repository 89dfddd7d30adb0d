package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/cashcab-studio/routeprep/internal/db"
	"github.com/cashcab-studio/routeprep/internal/geom"
)

// showChart renders an HTML scatter plot of the route in local meters with
// the raw and trimmed geometries as separate series. Debugging-only endpoint
// for eyeballing what a trim removed without a map client.
func (s *Server) showChart(w http.ResponseWriter, r *http.Request) {
	rec, err := s.db.GetRoute(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, db.ErrRouteNotFound) {
			s.writeJSONError(w, http.StatusNotFound, "Route not found")
			return
		}
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load route: %v", err))
		return
	}

	proj := geom.NewProjection(rec.AnchorLat)
	raw := proj.ProjectPath(rec.RawPoints)
	trimmed := proj.ProjectPath(rec.TrimmedPoints)

	rawData := make([]opts.ScatterData, len(raw))
	minX, maxX, minY, maxY := 0.0, 0.0, 0.0, 0.0
	for i, p := range raw {
		rawData[i] = opts.ScatterData{Value: []interface{}{p.X, p.Y}}
		if i == 0 {
			minX, maxX, minY, maxY = p.X, p.X, p.Y, p.Y
			continue
		}
		minX = min(minX, p.X)
		maxX = max(maxX, p.X)
		minY = min(minY, p.Y)
		maxY = max(maxY, p.Y)
	}
	trimmedData := make([]opts.ScatterData, len(trimmed))
	for i, p := range trimmed {
		trimmedData[i] = opts.ScatterData{Value: []interface{}{p.X, p.Y}}
	}

	// Pad the axes so endpoints are not clipped at the plot border.
	padX := (maxX - minX) * 0.05
	padY := (maxY - minY) * 0.05
	if padX == 0 {
		padX = 1
	}
	if padY == 0 {
		padY = 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Route Geometry", Theme: "dark", Width: "900px", Height: "900px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title: "Raw vs Trimmed Route",
			Subtitle: fmt.Sprintf("route=%s raw=%d trimmed=%d",
				rec.ID, len(rec.RawPoints), len(rec.TrimmedPoints)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: minX - padX, Max: maxX + padX, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: minY - padY, Max: maxY + padY, Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
	)
	scatter.AddSeries("raw", rawData, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	scatter.AddSeries("trimmed", trimmedData, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := scatter.Render(w); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to render chart: %v", err))
	}
}
