package geo

import (
	"math"
	"testing"

	"github.com/mr1hm/go-triage-dispatch/internal/models"
)

func TestHaversine_SamePoint(t *testing.T) {
	p := models.Location{Lat: 13.0827, Lng: 80.2707}
	if d := HaversineKm(p, p); d != 0 {
		t.Errorf("expected 0 km, got %f", d)
	}
}

func TestHaversine_KnownDistance(t *testing.T) {
	// one degree of latitude is ~111.19 km on a 6371 km sphere
	a := models.Location{Lat: 0, Lng: 0}
	b := models.Location{Lat: 1, Lng: 0}

	got := HaversineKm(a, b)
	if math.Abs(got-111.195) > 0.01 {
		t.Errorf("expected ~111.195 km, got %f", got)
	}
	if m := HaversineMeters(a, b); math.Abs(m-got*1000) > 1e-6 {
		t.Errorf("metres and kilometres disagree: %f vs %f", m, got)
	}
}

func TestHaversine_Symmetric(t *testing.T) {
	a := models.Location{Lat: 13.0818, Lng: 80.2755}
	b := models.Location{Lat: 13.0067, Lng: 80.2578}

	if HaversineKm(a, b) != HaversineKm(b, a) {
		t.Error("expected distance to be symmetric")
	}
}

func TestHaversine_Antipodal(t *testing.T) {
	a := models.Location{Lat: 0, Lng: 0}
	b := models.Location{Lat: 0, Lng: 180}

	got := HaversineKm(a, b)
	if math.IsNaN(got) {
		t.Fatal("antipodal distance is NaN")
	}
	if math.Abs(got-math.Pi*EarthRadiusKm) > 0.001 {
		t.Errorf("expected half circumference, got %f", got)
	}
}

func TestCentroid(t *testing.T) {
	got := Centroid([]models.Location{
		{Lat: 1, Lng: 10},
		{Lat: 3, Lng: 20},
		{Lat: 5, Lng: 30},
	})
	if got.Lat != 3 || got.Lng != 20 {
		t.Errorf("expected (3,20), got (%f,%f)", got.Lat, got.Lng)
	}

	if empty := Centroid(nil); empty != (models.Location{}) {
		t.Errorf("expected zero location for empty input, got %+v", empty)
	}
}
