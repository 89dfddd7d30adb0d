// manifest-check parses a bulk manifest and reports what would be imported,
// without touching the network or the database.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/cashcab-studio/routeprep/internal/bulk"
	"github.com/cashcab-studio/routeprep/internal/geom"
)

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: manifest-check <manifest.csv>")
		os.Exit(2)
	}

	routes, err := bulk.ParseManifestFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("parse manifest: %v", err)
	}
	if len(routes) == 0 {
		log.Fatal("no routes recognized in manifest")
	}

	problems := 0
	for i, rt := range routes {
		issues := checkRoute(rt)
		status := "ok"
		if len(issues) > 0 {
			status = "PROBLEM"
			problems++
		}
		fmt.Printf("%3d %-8s %-10s start=%q end=%q\n", i, rt.ShotCode, status, startLabel(rt), endLabel(rt))
		for _, issue := range issues {
			fmt.Printf("      - %s\n", issue)
		}
	}

	fmt.Printf("\n%d routes, %d with problems\n", len(routes), problems)
	if problems > 0 {
		os.Exit(1)
	}
}

func checkRoute(rt bulk.Route) []string {
	var issues []string
	if rt.ShotCode == "" {
		issues = append(issues, "missing shot code")
	}
	if rt.StartAddress == "" && rt.StartCoords == "" {
		issues = append(issues, "no start address or coordinates")
	}
	if rt.EndAddress == "" && rt.EndCoords == "" {
		issues = append(issues, "no end address or coordinates")
	}
	if rt.StartCoords != "" {
		if _, ok := geom.ParseLatLon(rt.StartCoords); !ok {
			issues = append(issues, fmt.Sprintf("unparseable start coordinates %q", rt.StartCoords))
		}
	}
	if rt.EndCoords != "" {
		if _, ok := geom.ParseLatLon(rt.EndCoords); !ok {
			issues = append(issues, fmt.Sprintf("unparseable end coordinates %q", rt.EndCoords))
		}
	}
	return issues
}

func startLabel(rt bulk.Route) string {
	if rt.StartCoords != "" {
		return rt.StartCoords
	}
	return rt.StartAddress
}

func endLabel(rt bulk.Route) string {
	if rt.EndCoords != "" {
		return rt.EndCoords
	}
	return rt.EndAddress
}
