package bulk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseManifest_5ColWithHeader(t *testing.T) {
	text := `Shot Code,Start Address,Start Coords,End Address,End Coords
CC0001,123 Main St,"43.6532, -79.3832",456 Queen St,
CC0002,789 King St,,10 Front St,"43.6426, -79.3871"
`
	routes := ParseManifest(text)
	require.Len(t, routes, 2)

	assert.Equal(t, "CC0001", routes[0].ShotCode)
	assert.Equal(t, "123 Main St", routes[0].StartAddress)
	assert.Equal(t, "43.6532, -79.3832", routes[0].StartCoords)
	assert.Equal(t, "456 Queen St", routes[0].EndAddress)
	assert.Empty(t, routes[0].EndCoords)

	assert.Equal(t, "CC0002", routes[1].ShotCode)
	assert.Equal(t, "43.6426, -79.3871", routes[1].EndCoords)
}

func TestParseManifest_5ColHeaderless(t *testing.T) {
	text := `CC0042,123 Main St,,456 Queen St,
CC0043,789 King St,,10 Front St,
`
	routes := ParseManifest(text)
	require.Len(t, routes, 2)
	assert.Equal(t, "CC0042", routes[0].ShotCode)
	assert.Equal(t, "456 Queen St", routes[0].EndAddress)
}

func TestParseManifest_SkipsBlankAndShortRows(t *testing.T) {
	text := `Shot Code,Start Address,Start Coords,End Address,End Coords

,, , ,
CC0001,123 Main St,,456 Queen St,
`
	routes := ParseManifest(text)
	require.Len(t, routes, 1)
	assert.Equal(t, "CC0001", routes[0].ShotCode)
}

func TestParseManifest_Tracker(t *testing.T) {
	text := `Episode,Segment,Notes,Due,Status,PU,DO
101,A,MAP GFX CC0007,2024-05-01,In Progress,123 Main St - 43.6532 -79.3832,"456 Queen St - 43.6426, -79.3871"
101,B,no shot here,,,x,y
`
	routes := ParseManifest(text)
	require.Len(t, routes, 1)

	r := routes[0]
	assert.Equal(t, "CC0007", r.ShotCode)
	assert.Equal(t, "2024-05-01", r.DueDate)
	assert.Equal(t, "In Progress", r.SheetStatus)
	// First PU cell has no comma between lat and lon, so no coords are found.
	assert.Equal(t, "123 Main St - 43.6532 -79.3832", r.StartAddress)
	assert.Empty(t, r.StartCoords)
	assert.Equal(t, "456 Queen St", r.EndAddress)
	assert.Equal(t, "43.642600, -79.387100", r.EndCoords)
}

func TestParseManifest_TrackerLowercaseShot(t *testing.T) {
	text := `h1,h2,h3,h4,h5,h6,h7
101,A,MAP GFX cc0012,,,start st,end ave
`
	routes := ParseManifest(text)
	require.Len(t, routes, 1)
	assert.Equal(t, "CC0012", routes[0].ShotCode)
}

func TestParseLocationField_TorontoSignFix(t *testing.T) {
	addr, coords := parseLocationField("123 Main St - -43.6532, -79.3832")
	assert.Equal(t, "123 Main St", addr)
	assert.Equal(t, "43.653200, -79.383200", coords)

	// Southern-hemisphere coordinates outside the Toronto box keep their sign.
	_, coords = parseLocationField("-33.8688, 151.2093")
	assert.Equal(t, "-33.868800, 151.209300", coords)
}

func TestParseManifest_Legacy(t *testing.T) {
	text := `[CC0051][123 Main St - 456 Queen St][2024-06-10]
[CC0052][one address only]
`
	routes := ParseManifest(text)
	require.Len(t, routes, 2)

	assert.Equal(t, "CC0051", routes[0].ShotCode)
	assert.Equal(t, "123 Main St", routes[0].StartAddress)
	assert.Equal(t, "456 Queen St", routes[0].EndAddress)
	assert.Equal(t, "2024-06-10", routes[0].DueDate)

	assert.Equal(t, "CC0052", routes[1].ShotCode)
	assert.Equal(t, "one address only", routes[1].StartAddress)
	assert.Empty(t, routes[1].EndAddress)
}

func TestParseManifest_EmptyAndGarbage(t *testing.T) {
	assert.Empty(t, ParseManifest(""))
	assert.Empty(t, ParseManifest("just a line of prose\nanother one\n"))
}

func TestParseManifest_BOM(t *testing.T) {
	text := "\uFEFFShot Code,Start Address,Start Coords,End Address,End Coords\nCC0001,a,,b,\n"
	routes := ParseManifest(text)
	require.Len(t, routes, 1)
	assert.Equal(t, "CC0001", routes[0].ShotCode)
}

func TestParseManifestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.csv")
	require.NoError(t, os.WriteFile(path, []byte("CC0001,a,,b,\n"), 0o644))

	routes, err := ParseManifestFile(path)
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, "CC0001", routes[0].ShotCode)

	_, err = ParseManifestFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
