// Package simulator produces synthetic victim reports and feeds them to a
// running triage server in waves.
package simulator

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/mr1hm/go-triage-dispatch/internal/models"
)

// Center is the default incident location (Chennai).
var Center = models.Location{Lat: 13.0827, Lng: 80.2707}

// JitterDegrees bounds how far a report lands from Center on each axis.
const JitterDegrees = 0.06

type vitalRange struct{ lo, hi float64 }

var (
	criticalHR   = vitalRange{120, 160}
	criticalSpO2 = vitalRange{70, 89}
	criticalTemp = vitalRange{38.5, 40.0}

	normalHR   = vitalRange{60, 100}
	normalSpO2 = vitalRange{94, 100}
	normalTemp = vitalRange{36.5, 37.5}
)

// Generator is safe for concurrent use.
type Generator struct {
	mu           sync.Mutex
	rng          *rand.Rand
	criticalRate float64
	center       models.Location
}

func NewGenerator(seed uint64, criticalRate float64) *Generator {
	return &Generator{
		rng:          rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		criticalRate: criticalRate,
		center:       Center,
	}
}

// Report draws one victim report.
func (g *Generator) Report() models.Report {
	g.mu.Lock()
	defer g.mu.Unlock()

	hr, spo2, temp := normalHR, normalSpO2, normalTemp
	if g.rng.Float64() < g.criticalRate {
		hr, spo2, temp = criticalHR, criticalSpO2, criticalTemp
	}

	age := float64(1 + g.rng.IntN(90))
	return models.Report{
		Age:         &age,
		HeartRate:   ptr(g.uniform(hr)),
		SpO2:        ptr(g.uniform(spo2)),
		Temperature: ptr(g.uniform(temp)),
		Lat:         ptr(g.center.Lat + g.jitter()),
		Lng:         ptr(g.center.Lng + g.jitter()),
	}
}

// WaveSize returns a size in [lo, hi].
func (g *Generator) WaveSize(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return lo + g.rng.IntN(hi-lo+1)
}

// Interval returns a pause in [lo, hi].
func (g *Generator) Interval(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return lo + time.Duration(g.rng.Int64N(int64(hi-lo)+1))
}

// uniform draws from r rounded to one decimal place.
func (g *Generator) uniform(r vitalRange) float64 {
	v := r.lo + g.rng.Float64()*(r.hi-r.lo)
	return math.Round(v*10) / 10
}

func (g *Generator) jitter() float64 {
	return (g.rng.Float64()*2 - 1) * JitterDegrees
}

func ptr(v float64) *float64 { return &v }
