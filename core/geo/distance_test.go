package geo

import (
	"math"
	"testing"

	"github.com/kilianp07/sanifleet/core/model"
)

func TestHaversineKm_Zero(t *testing.T) {
	p := model.NewCoordinates(-1.2921, 36.8219)
	if d := HaversineKm(p, p); d != 0 {
		t.Fatalf("expected 0 got %v", d)
	}
}

func TestHaversineKm_KnownDistance(t *testing.T) {
	// Nairobi CBD to Jomo Kenyatta airport is roughly 15 km.
	cbd := model.NewCoordinates(-1.2864, 36.8172)
	nbo := model.NewCoordinates(-1.3192, 36.9278)
	d := HaversineKm(cbd, nbo)
	if d < 12 || d > 14 {
		t.Fatalf("unexpected distance %v", d)
	}
	// One degree of latitude along a meridian.
	d = HaversineKm(model.NewCoordinates(0, 0), model.NewCoordinates(1, 0))
	if math.Abs(d-111.195) > 0.01 {
		t.Fatalf("expected ~111.195 got %v", d)
	}
}

func TestHaversineKm_Symmetric(t *testing.T) {
	a := model.NewCoordinates(48.8566, 2.3522)
	b := model.NewCoordinates(51.5074, -0.1278)
	if math.Abs(HaversineKm(a, b)-HaversineKm(b, a)) > 1e-9 {
		t.Fatalf("distance should be symmetric")
	}
}
