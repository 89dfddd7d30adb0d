package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cashcab-studio/routeprep/internal/api"
	"github.com/cashcab-studio/routeprep/internal/bulk"
	"github.com/cashcab-studio/routeprep/internal/clients/nominatim"
	"github.com/cashcab-studio/routeprep/internal/clients/osrm"
	"github.com/cashcab-studio/routeprep/internal/clients/overpass"
	"github.com/cashcab-studio/routeprep/internal/config"
	"github.com/cashcab-studio/routeprep/internal/db"
	"github.com/cashcab-studio/routeprep/internal/pipeline"
	"github.com/cashcab-studio/routeprep/internal/route"
	"github.com/cashcab-studio/routeprep/internal/version"
)

const defaultUserAgent = "routeprep/0.1 (+https://github.com/cashcab-studio/routeprep)"

var (
	devMode      = flag.Bool("dev", false, "Run in dev mode (skips street snapping)")
	listen       = flag.String("listen", ":8080", "Listen address")
	dbFile       = flag.String("db", "routes.db", "Path to the SQLite database file")
	unitsFlag    = flag.String("units", "m", "Display units for distances (m, km, mi)")
	userAgent    = flag.String("user-agent", defaultUserAgent, "User-Agent for OSM service requests")
	nominatimURL = flag.String("nominatim", nominatim.DefaultBaseURL, "Nominatim base URL")
	osrmURL      = flag.String("osrm", osrm.DefaultBaseURL, "OSRM base URL")
	configPath   = flag.String("config", "", "Optional tuning config JSON file")
)

func loadTuning() *config.TuningConfig {
	if *configPath == "" {
		return config.EmptyTuningConfig()
	}
	cfg, err := config.LoadTuningConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func newPipeline(store *db.DB, tuning *config.TuningConfig) *pipeline.Pipeline {
	geocoder := nominatim.NewClient(*userAgent,
		nominatim.WithBaseURL(*nominatimURL),
		nominatim.WithCountryCodes(tuning.GetCountryCodes()),
		nominatim.WithMinInterval(tuning.GetNominatimMinInterval()),
	)
	router := osrm.NewClient(*osrmURL, *userAgent)

	// Street snapping talks to public Overpass servers; dev mode keeps
	// geocoded coordinates as-is.
	var snapper pipeline.Snapper
	if !*devMode {
		snapper = overpass.NewClient(*userAgent)
	}

	cfg := pipeline.Config{
		PaddingM:         tuning.GetPaddingM(),
		MaxTileM:         tuning.GetMaxTileM(),
		SimplifyEpsilonM: tuning.GetSimplifyEpsilonM(),
		Trim: route.TrimConfig{
			WindowFraction:      tuning.GetWindowFraction(),
			CornerAngleMinDeg:   tuning.GetCornerAngleMinDeg(),
			DirectionReverseDeg: tuning.GetDirectionReverseDeg(),
			MaxUTurnFraction:    tuning.GetMaxUTurnFraction(),
		},
	}
	return pipeline.New(geocoder, router, snapper, store, cfg)
}

func runBulk(store *db.DB, manifestSrc string) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tuning := loadTuning()
	runner := bulk.NewRunner(newPipeline(store, tuning), store, tuning.GetWorkers())
	summary, err := runner.RunSource(ctx, manifestSrc)
	if err != nil {
		log.Fatalf("bulk run failed: %v", err)
	}

	log.Printf("bulk job %s: %d rows, %d ok, %d errors",
		summary.JobID, summary.TotalRows, summary.OKCount, summary.ErrorCount)
	if summary.ErrorCount > 0 {
		os.Exit(1)
	}
}

func serve(store *db.DB) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mux := api.NewServer(store, newPipeline(store, loadTuning()), *unitsFlag).ServeMux()

	// mount the admin debugging routes (accessible only in dev mode or over Tailscale)
	store.AttachAdminRoutes(mux)

	server := &http.Server{
		Addr:    *listen,
		Handler: api.LoggingMiddleware(mux),
	}

	// Start server in a goroutine so it doesn't block
	go func() {
		log.Printf("listening on %s", *listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	// Wait for context cancellation to shut down server
	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	log.Printf("Graceful shutdown complete")
}

func main() {
	flag.Parse()
	args := flag.Args()

	log.Printf("routeprep %s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime)

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	if len(args) > 0 && args[0] == "migrate" {
		db.RunMigrateCommand(args[1:], *dbFile)
		return
	}

	store, err := db.OpenDB(*dbFile)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()

	migrationsFS, err := db.MigrationsFS()
	if err != nil {
		log.Fatalf("Failed to load migrations: %v", err)
	}
	pending, err := store.CheckAndPromptMigrations(migrationsFS)
	if err != nil {
		log.Fatalf("Failed to check migrations: %v", err)
	}
	if pending {
		os.Exit(1)
	}

	if len(args) > 0 {
		switch args[0] {
		case "bulk":
			if len(args) < 2 {
				fmt.Fprintln(os.Stderr, "usage: routeprep bulk <manifest.csv|sheets-url>")
				os.Exit(2)
			}
			runBulk(store, args[1])
			return
		default:
			fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
			fmt.Fprintln(os.Stderr, "usage: routeprep [flags] [migrate ...|bulk <manifest.csv|sheets-url>]")
			os.Exit(2)
		}
	}

	serve(store)
}
