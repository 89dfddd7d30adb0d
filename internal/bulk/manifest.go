// Package bulk parses route manifests and runs them through the import
// pipeline.
package bulk

import (
	"encoding/csv"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

var (
	coordRe = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*,\s*(-?\d+(?:\.\d+)?)`)
	shotRe  = regexp.MustCompile(`(?i)\b(CC\d+)\b`)
	// [CC0042][123 Main St - 456 Queen St][2024-05-01]
	legacyRe = regexp.MustCompile(`^\s*\[([^\]]+)\]\[([^\]]+)\](?:\[([^\]]+)\])?\s*$`)
	// Split "start - end" on a dash with surrounding whitespace.
	legacySplitRe = regexp.MustCompile(`\s*[-\x{2013}\x{2014}]\s*`)
)

// Route is one manifest row. Coords fields, when present, override the
// address text for geocoding.
type Route struct {
	ShotCode     string
	StartAddress string
	EndAddress   string
	StartCoords  string
	EndCoords    string
	DueDate      string
	SheetStatus  string
}

// ParseManifestFile reads and parses a manifest from disk.
func ParseManifestFile(path string) ([]Route, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return ParseManifest(string(raw)), nil
}

// ParseManifest detects which of the three accepted manifest shapes the text
// is in (legacy bracket lines, production tracker export, plain 5-column CSV)
// and parses it. Unrecognizable text yields an empty slice.
func ParseManifest(text string) []Route {
	text = strings.TrimPrefix(text, "\uFEFF")

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if looksLikeLegacy(lines) {
		return parseLegacy(lines)
	}

	rows := readCSVRows(text)
	if len(rows) == 0 {
		return nil
	}
	if looksLikeTracker(rows) {
		return parseTracker(rows)
	}
	if looksLikeManifest5Col(rows) {
		return parseManifest5Col(rows)
	}

	// Fallback: attempt a 5-column parse when there is enough data.
	for _, r := range rows {
		if len(r) >= 5 {
			return parseManifest5Col(rows)
		}
	}
	return nil
}

func readCSVRows(text string) [][]string {
	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if err != nil {
			break
		}
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				rows = append(rows, row)
				break
			}
		}
	}
	return rows
}

func looksLikeLegacy(lines []string) bool {
	if len(lines) == 0 {
		return false
	}
	matches := 0
	for _, line := range lines {
		if legacyRe.MatchString(line) {
			matches++
		}
	}
	return matches >= max(1, len(lines)*6/10)
}

func looksLikeTracker(rows [][]string) bool {
	for i, row := range rows {
		if i >= 10 {
			break
		}
		if findShotCell(row) != "" {
			return true
		}
		if strings.Contains(strings.ToLower(strings.Join(row, " ")), "map gfx") {
			return true
		}
	}
	return false
}

func looksLikeManifest5Col(rows [][]string) bool {
	if len(rows) == 0 {
		return false
	}
	header := normalizeHeader(rows[0])
	joined := strings.Join(header, "|")
	if strings.Contains(joined, "shot code") || strings.Contains(joined, "start address") {
		return true
	}
	if strings.Contains(joined, "code") && strings.Contains(joined, "end address") {
		return true
	}
	return len(rows[0]) >= 5 && shotRe.MatchString(rows[0][0])
}

func normalizeHeader(row []string) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = strings.ToLower(strings.TrimSpace(cell))
	}
	return out
}

func cleanAddress(addr string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(addr), `"`))
}

// parseLocationField splits a tracker cell like "123 Main St - 43.65, -79.38"
// into its address text and a normalized coordinate string. Cells without
// coordinates return the cleaned text and an empty coordinate string.
func parseLocationField(field string) (addr, coords string) {
	if field == "" {
		return "", ""
	}
	loc := coordRe.FindStringSubmatchIndex(field)
	if loc == nil {
		return cleanAddress(field), ""
	}

	lat, _ := strconv.ParseFloat(field[loc[2]:loc[3]], 64)
	lon, _ := strconv.ParseFloat(field[loc[4]:loc[5]], 64)

	// Tracker exports sometimes carry Toronto latitudes with a flipped sign.
	if lat < 0 && -lat >= 40 && -lat <= 50 && lon >= -100 && lon <= -60 {
		lat = -lat
	}

	addr = cleanAddress(strings.Trim(field[:loc[0]], " -:"))
	return addr, fmt.Sprintf("%.6f, %.6f", lat, lon)
}

func findShotCell(row []string) string {
	for _, cell := range row {
		if !strings.Contains(cell, "MAP GFX") {
			continue
		}
		if m := shotRe.FindString(cell); m != "" {
			return strings.ToUpper(m)
		}
	}
	return ""
}

func parseTracker(rows [][]string) []Route {
	var routes []Route
	for _, row := range rows {
		shot := findShotCell(row)
		if shot == "" {
			continue
		}

		startAddr, startCoords := parseLocationField(safeCell(row, 5))
		endAddr, endCoords := parseLocationField(safeCell(row, 6))

		routes = append(routes, Route{
			ShotCode:     shot,
			DueDate:      strings.TrimSpace(safeCell(row, 3)),
			SheetStatus:  strings.TrimSpace(safeCell(row, 4)),
			StartAddress: startAddr,
			StartCoords:  startCoords,
			EndAddress:   endAddr,
			EndCoords:    endCoords,
		})
	}
	return routes
}

func parseManifest5Col(rows [][]string) []Route {
	header := normalizeHeader(rows[0])
	hasHeader := false
	for _, h := range header {
		if strings.Contains(h, "address") || strings.Contains(h, "shot") || strings.Contains(h, "code") {
			hasHeader = true
			break
		}
	}

	indices := [5]int{0, 1, 2, 3, 4}
	dataRows := rows
	if hasHeader {
		indices = mapManifestHeader(header)
		dataRows = rows[1:]
	}

	var routes []Route
	for _, row := range dataRows {
		if indices[0] >= len(row) {
			continue
		}
		shot := cleanAddress(row[indices[0]])
		if shot == "" {
			continue
		}
		routes = append(routes, Route{
			ShotCode:     shot,
			StartAddress: cleanAddress(safeCell(row, indices[1])),
			StartCoords:  cleanAddress(safeCell(row, indices[2])),
			EndAddress:   cleanAddress(safeCell(row, indices[3])),
			EndCoords:    cleanAddress(safeCell(row, indices[4])),
		})
	}
	return routes
}

// mapManifestHeader resolves column positions from header synonyms, falling
// back to the canonical 5-column order.
func mapManifestHeader(header []string) [5]int {
	find := func(keys ...string) int {
		for _, key := range keys {
			for idx, cell := range header {
				if strings.Contains(cell, key) {
					return idx
				}
			}
		}
		return -1
	}

	indices := [5]int{
		find("shot code", "shot", "code", "task", "taskid"),
		find("start address", "start", "pu location", "pickup", "pick up"),
		find("start coords", "start coord", "start coordinate", "start lat", "start lon"),
		find("end address", "end", "drop off", "dropoff", "drop off location", "dropoff location"),
		find("end coords", "end coord", "end coordinate", "end lat", "end lon"),
	}
	for i, idx := range indices {
		if idx < 0 {
			indices[i] = i
		}
	}
	return indices
}

func safeCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func parseLegacy(lines []string) []Route {
	var routes []Route
	for _, line := range lines {
		m := legacyRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		startAddr, endAddr := splitLegacyAddress(strings.TrimSpace(m[2]))
		routes = append(routes, Route{
			ShotCode:     strings.TrimSpace(m[1]),
			DueDate:      strings.TrimSpace(m[3]),
			StartAddress: startAddr,
			EndAddress:   endAddr,
		})
	}
	return routes
}

func splitLegacyAddress(block string) (string, string) {
	parts := legacySplitRe.Split(block, 2)
	if len(parts) == 2 {
		return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	}
	return strings.TrimSpace(block), ""
}
