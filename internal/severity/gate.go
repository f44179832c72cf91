// Package severity converts raw vitals into a discrete triage tier.
//
// The classifier itself is opaque: it receives the feature vector
// [age, heart_rate, spo2, temperature] and returns four class
// probabilities. The Gate owns the decision rule applied on top of it.
package severity

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/mr1hm/go-triage-dispatch/internal/models"
)

// Classifier scores a feature vector in the order age, heart_rate, spo2,
// temperature and returns a probability per tier. Implementations must be
// safe for concurrent use.
type Classifier interface {
	Score(ctx context.Context, features [4]float64) ([]float64, error)
}

const (
	DefaultCriticalThreshold = 0.25
	DefaultFallbackTier      = models.TierDelayed
)

// Decision is the outcome of one classification.
type Decision struct {
	Tier          models.Tier
	Probabilities []float64
	Degraded      bool
	Cause         error
}

// Gate applies an asymmetric rule: tier 3 wins whenever its probability
// exceeds the critical threshold, even if another class has more mass.
// Missing a critical victim costs far more than over-triaging one, so the
// critical class is deliberately favoured over a plain arg-max.
type Gate struct {
	classifier        Classifier
	criticalThreshold float64
	fallback          models.Tier
}

func NewGate(classifier Classifier, criticalThreshold float64, fallback models.Tier) *Gate {
	if criticalThreshold <= 0 || criticalThreshold >= 1 {
		criticalThreshold = DefaultCriticalThreshold
	}
	if !fallback.Valid() {
		fallback = DefaultFallbackTier
	}
	return &Gate{
		classifier:        classifier,
		criticalThreshold: criticalThreshold,
		fallback:          fallback,
	}
}

// Classify returns the tier for v. The only error it returns is
// ErrInvalidVitals; classifier problems produce a degraded Decision
// carrying the fallback tier instead.
func (g *Gate) Classify(ctx context.Context, v models.Vitals) (Decision, error) {
	features := v.Features()
	for _, f := range features {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Decision{}, fmt.Errorf("%w: non-finite feature", models.ErrInvalidVitals)
		}
	}

	probs, err := g.score(ctx, features)
	if err == nil {
		err = checkProbabilities(probs)
	}
	if err != nil {
		slog.Warn("classifier degraded, using fallback tier", "fallback_tier", g.fallback, "error", err)
		return Decision{
			Tier:     g.fallback,
			Degraded: true,
			Cause:    fmt.Errorf("%w: %v", models.ErrClassifierDegraded, err),
		}, nil
	}

	return Decision{Tier: g.decide(probs), Probabilities: probs}, nil
}

func (g *Gate) decide(probs []float64) models.Tier {
	if probs[models.TierCritical] > g.criticalThreshold {
		return models.TierCritical
	}

	best := 0
	for i := 1; i < int(models.TierCritical); i++ {
		if probs[i] > probs[best] {
			best = i
		}
	}
	return models.Tier(best)
}

func (g *Gate) score(ctx context.Context, features [4]float64) (probs []float64, err error) {
	if g.classifier == nil {
		return nil, fmt.Errorf("no classifier loaded")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("classifier panicked: %v", r)
		}
	}()
	return g.classifier.Score(ctx, features)
}

func checkProbabilities(probs []float64) error {
	if len(probs) != 4 {
		return fmt.Errorf("expected 4 probabilities, got %d", len(probs))
	}
	for i, p := range probs {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return fmt.Errorf("probability %d out of range: %v", i, p)
		}
	}
	return nil
}
