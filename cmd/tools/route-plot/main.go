// route-plot renders a stored route's raw and trimmed geometry to a PNG,
// in local meters, for eyeballing trim results.
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	_ "modernc.org/sqlite"

	"github.com/cashcab-studio/routeprep/internal/db"
	"github.com/cashcab-studio/routeprep/internal/geom"
)

func main() {
	var dbPath string
	var routeID string
	var outPath string

	flag.StringVar(&dbPath, "db", "routes.db", "path to sqlite db")
	flag.StringVar(&routeID, "route", "", "route id to plot")
	flag.StringVar(&outPath, "out", "", "output PNG path (default <route-id>.png)")
	flag.Parse()

	if routeID == "" {
		log.Fatal("route id is required (-route)")
	}
	if outPath == "" {
		outPath = routeID + ".png"
	}

	dbConn, err := db.OpenDB(dbPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer dbConn.Close()

	rec, err := dbConn.GetRoute(routeID)
	if err != nil {
		log.Fatalf("load route: %v", err)
	}

	proj := geom.NewProjection(rec.AnchorLat)
	raw := proj.ProjectPath(rec.RawPoints)
	trimmed := proj.ProjectPath(rec.TrimmedPoints)

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Route %s (%s)", rec.ID, rec.ShotCode)
	p.X.Label.Text = "East (m)"
	p.Y.Label.Text = "North (m)"

	rawLine, err := plotter.NewLine(toXYs(raw))
	if err != nil {
		log.Fatalf("raw line: %v", err)
	}
	rawLine.Color = color.Gray{Y: 160}
	rawLine.Width = vg.Points(1)
	p.Add(rawLine)
	p.Legend.Add(fmt.Sprintf("raw (%d pts)", len(raw)), rawLine)

	trimmedLine, err := plotter.NewLine(toXYs(trimmed))
	if err != nil {
		log.Fatalf("trimmed line: %v", err)
	}
	trimmedLine.Color = color.RGBA{R: 214, G: 69, B: 65, A: 255}
	trimmedLine.Width = vg.Points(2)
	p.Add(trimmedLine)
	p.Legend.Add(fmt.Sprintf("trimmed (%d pts)", len(trimmed)), trimmedLine)

	markers, err := plotter.NewScatter(endpointXYs(trimmed))
	if err != nil {
		log.Fatalf("endpoint markers: %v", err)
	}
	markers.GlyphStyle.Radius = vg.Points(3)
	p.Add(markers)

	p.Legend.Top = true
	p.Legend.Left = false

	if err := p.Save(10*vg.Inch, 10*vg.Inch, outPath); err != nil {
		log.Fatalf("save plot: %v", err)
	}
	fmt.Printf("wrote %s (%d raw, %d trimmed points)\n", outPath, len(raw), len(trimmed))
}

func toXYs(pts []geom.Point) plotter.XYs {
	xys := make(plotter.XYs, len(pts))
	for i, p := range pts {
		xys[i] = plotter.XY{X: p.X, Y: p.Y}
	}
	return xys
}

func endpointXYs(pts []geom.Point) plotter.XYs {
	if len(pts) == 0 {
		return nil
	}
	return plotter.XYs{
		{X: pts[0].X, Y: pts[0].Y},
		{X: pts[len(pts)-1].X, Y: pts[len(pts)-1].Y},
	}
}
