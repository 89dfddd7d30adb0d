package bulk

import (
	"context"
	"fmt"
	"sync"

	"github.com/cashcab-studio/routeprep/internal/db"
	"github.com/cashcab-studio/routeprep/internal/monitoring"
	"github.com/cashcab-studio/routeprep/internal/pipeline"
)

const defaultWorkers = 4

// Runner drives a parsed manifest through the import pipeline with a fixed
// worker pool and records every row's outcome.
type Runner struct {
	pl      *pipeline.Pipeline
	store   *db.DB
	workers int
	sheets  *SheetFetcher
}

// Summary is the outcome of one manifest run.
type Summary struct {
	JobID      string
	TotalRows  int
	OKCount    int
	ErrorCount int
}

func NewRunner(pl *pipeline.Pipeline, store *db.DB, workers int) *Runner {
	if workers < 1 {
		workers = defaultWorkers
	}
	return &Runner{pl: pl, store: store, workers: workers, sheets: NewSheetFetcher()}
}

type rowResult struct {
	index   int
	shot    string
	routeID string
	err     error
}

// RunSource imports a manifest named by either a local file path or a
// Google Sheets share URL.
func (r *Runner) RunSource(ctx context.Context, src string) (*Summary, error) {
	if !IsSheetURL(src) {
		return r.RunFile(ctx, src)
	}
	text, err := r.sheets.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	routes := ParseManifest(text)
	if len(routes) == 0 {
		return nil, fmt.Errorf("manifest %s contains no routes", src)
	}
	return r.Run(ctx, src, routes)
}

// RunFile parses the manifest at path and imports every row.
func (r *Runner) RunFile(ctx context.Context, path string) (*Summary, error) {
	routes, err := ParseManifestFile(path)
	if err != nil {
		return nil, err
	}
	if len(routes) == 0 {
		return nil, fmt.Errorf("manifest %s contains no routes", path)
	}
	return r.Run(ctx, path, routes)
}

// Run imports the given manifest rows. Rows that fail are recorded with
// their error and do not stop the run; cancelling ctx stops handing out
// new rows.
func (r *Runner) Run(ctx context.Context, manifestPath string, routes []Route) (*Summary, error) {
	jobID, err := r.store.CreateBulkJob(manifestPath, len(routes))
	if err != nil {
		return nil, err
	}
	monitoring.Logf("bulk: job %s started, %d rows, %d workers", jobID, len(routes), r.workers)

	type job struct {
		index int
		route Route
	}
	jobs := make(chan job)
	results := make(chan rowResult)

	var wg sync.WaitGroup
	for w := 0; w < r.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				res := rowResult{index: j.index, shot: j.route.ShotCode}
				rec, err := r.pl.Import(ctx, importRequest(j.route))
				if err != nil {
					res.err = err
				} else {
					res.routeID = rec.ID
				}
				results <- res
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, rt := range routes {
			if ctx.Err() != nil {
				return
			}
			select {
			case jobs <- job{index: i, route: rt}:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	summary := &Summary{JobID: jobID, TotalRows: len(routes)}
	for res := range results {
		row := db.BulkJobRoute{
			JobID:    jobID,
			RowIndex: res.index,
			ShotCode: res.shot,
			RouteID:  res.routeID,
			Status:   db.BulkStatusOK,
		}
		if res.err != nil {
			row.Status = db.BulkStatusError
			row.Error = res.err.Error()
			summary.ErrorCount++
			monitoring.Logf("bulk: row %d (%s) failed: %v", res.index, res.shot, res.err)
		} else {
			summary.OKCount++
		}
		if err := r.store.RecordBulkJobRoute(row); err != nil {
			monitoring.Logf("bulk: failed to record row %d: %v", res.index, err)
		}
	}

	if err := r.store.FinishBulkJob(jobID, summary.OKCount, summary.ErrorCount); err != nil {
		return summary, err
	}
	monitoring.Logf("bulk: job %s finished, %d ok, %d errors", jobID, summary.OKCount, summary.ErrorCount)
	return summary, ctx.Err()
}

// importRequest maps a manifest row onto a pipeline request. Coordinate
// strings, when present, take precedence over the address text.
func importRequest(rt Route) pipeline.Request {
	start := rt.StartAddress
	if rt.StartCoords != "" {
		start = rt.StartCoords
	}
	end := rt.EndAddress
	if rt.EndCoords != "" {
		end = rt.EndCoords
	}
	return pipeline.Request{
		StartAddress: start,
		EndAddress:   end,
		ShotCode:     rt.ShotCode,
	}
}
