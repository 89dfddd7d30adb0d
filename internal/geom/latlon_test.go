package geom

import (
	"math"
	"testing"
)

func TestParseLatLon(t *testing.T) {
	cases := []struct {
		in   string
		want LatLon
		ok   bool
	}{
		{"43.6532, -79.3832", LatLon{Lat: 43.6532, Lon: -79.3832}, true},
		{" 43.6532,-79.3832 ", LatLon{Lat: 43.6532, Lon: -79.3832}, true},
		{"-33.8688,151.2093", LatLon{Lat: -33.8688, Lon: 151.2093}, true},
		{"100 Queen St W, Toronto", LatLon{}, false},
		{"43.6532", LatLon{}, false},
		{"43.6532,-79.3832,0", LatLon{}, false},
		{"95.0,10.0", LatLon{}, false},
		{"45.0,200.0", LatLon{}, false},
		{"", LatLon{}, false},
	}
	for _, c := range cases {
		got, ok := ParseLatLon(c.in)
		if ok != c.ok || got != c.want {
			t.Errorf("ParseLatLon(%q) = %v, %v; want %v, %v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestLatLonString(t *testing.T) {
	c := LatLon{Lat: 43.6532, Lon: -79.3832}
	if got := c.String(); got != "43.653200,-79.383200" {
		t.Errorf("String() = %q", got)
	}
}

func TestHaversineM(t *testing.T) {
	if d := HaversineM(LatLon{Lat: 43.65, Lon: -79.38}, LatLon{Lat: 43.65, Lon: -79.38}); d != 0 {
		t.Errorf("coincident points: %v, want 0", d)
	}

	// One degree of latitude is about 111.2 km.
	d := HaversineM(LatLon{Lat: 43, Lon: -79}, LatLon{Lat: 44, Lon: -79})
	if math.Abs(d-111195) > 100 {
		t.Errorf("one degree of latitude = %v m, want ~111195", d)
	}
}

func TestProjectionRoundTrip(t *testing.T) {
	p := NewProjection(43.65)
	coords := []LatLon{
		{Lat: 43.6532, Lon: -79.3832},
		{Lat: 43.7000, Lon: -79.4000},
		{Lat: 43.6000, Lon: -79.3000},
	}
	for _, c := range coords {
		back := p.FromLocal(p.ToLocal(c))
		if math.Abs(back.Lat-c.Lat) > 1e-9 || math.Abs(back.Lon-c.Lon) > 1e-9 {
			t.Errorf("round trip of %v gave %v", c, back)
		}
	}
}

func TestProjectionDistances(t *testing.T) {
	// Local planar distance should agree with haversine to well under a
	// percent at city scale.
	p := NewProjection(43.65)
	a := LatLon{Lat: 43.6532, Lon: -79.3832}
	b := LatLon{Lat: 43.6700, Lon: -79.3400}

	pa, pb := p.ToLocal(a), p.ToLocal(b)
	planar := math.Hypot(pb.X-pa.X, pb.Y-pa.Y)
	great := HaversineM(a, b)
	if rel := math.Abs(planar-great) / great; rel > 0.005 {
		t.Errorf("planar %v vs haversine %v, relative error %v", planar, great, rel)
	}
}

func TestProjectPath(t *testing.T) {
	p := NewProjection(43.65)
	pts := p.ProjectPath([]LatLon{{Lat: 43.65, Lon: -79.38}, {Lat: 43.66, Lon: -79.38}})
	if len(pts) != 2 {
		t.Fatalf("got %d points", len(pts))
	}
	if pts[0].Z != 0 || pts[1].Z != 0 {
		t.Error("projected points must have Z=0")
	}
	if pts[1].Y <= pts[0].Y {
		t.Error("increasing latitude must increase Y")
	}
}
