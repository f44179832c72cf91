package severity

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// AcuityParams configure the built-in model. Vitals are folded into a
// single acuity score and each tier is a Gaussian bump around a centre on
// that score; the softmax of the bumps is the probability vector.
type AcuityParams struct {
	HeartRateHigh  float64    `json:"heart_rate_high"`
	HeartRateLow   float64    `json:"heart_rate_low"`
	HeartRateScale float64    `json:"heart_rate_scale"`
	SpO2Floor      float64    `json:"spo2_floor"`
	SpO2Scale      float64    `json:"spo2_scale"`
	TempNormal     float64    `json:"temp_normal"`
	TempTolerance  float64    `json:"temp_tolerance"`
	TempScale      float64    `json:"temp_scale"`
	ElderlyAge     float64    `json:"elderly_age"`
	ElderlyWeight  float64    `json:"elderly_weight"`
	Centers        [4]float64 `json:"centers"`
	Sigma          float64    `json:"sigma"`
}

func DefaultAcuityParams() AcuityParams {
	return AcuityParams{
		HeartRateHigh:  100,
		HeartRateLow:   50,
		HeartRateScale: 20,
		SpO2Floor:      94,
		SpO2Scale:      4,
		TempNormal:     37,
		TempTolerance:  1,
		TempScale:      0.5,
		ElderlyAge:     65,
		ElderlyWeight:  0.5,
		Centers:        [4]float64{0, 2, 4.5, 8},
		Sigma:          1.5,
	}
}

// AcuityModel is the default Classifier. It is immutable after
// construction and therefore safe for concurrent use.
type AcuityModel struct {
	params AcuityParams
}

func NewAcuityModel(params AcuityParams) (*AcuityModel, error) {
	if params.Sigma <= 0 {
		return nil, fmt.Errorf("sigma must be positive, got %v", params.Sigma)
	}
	if params.HeartRateScale <= 0 || params.SpO2Scale <= 0 || params.TempScale <= 0 {
		return nil, fmt.Errorf("scales must be positive")
	}
	return &AcuityModel{params: params}, nil
}

// LoadAcuityModel reads parameters from a JSON file. Fields absent from
// the file keep their default values. An empty path yields the defaults.
func LoadAcuityModel(path string) (*AcuityModel, error) {
	params := DefaultAcuityParams()
	if path == "" {
		return NewAcuityModel(params)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading model file: %w", err)
	}
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("error decoding model file: %w", err)
	}
	return NewAcuityModel(params)
}

func (m *AcuityModel) Score(_ context.Context, features [4]float64) ([]float64, error) {
	s := m.acuity(features)

	logits := make([]float64, 4)
	maxLogit := math.Inf(-1)
	for i, c := range m.params.Centers {
		d := s - c
		logits[i] = -(d * d) / (2 * m.params.Sigma * m.params.Sigma)
		maxLogit = math.Max(maxLogit, logits[i])
	}

	var sum float64
	probs := make([]float64, 4)
	for i, l := range logits {
		probs[i] = math.Exp(l - maxLogit)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs, nil
}

func (m *AcuityModel) acuity(f [4]float64) float64 {
	p := m.params
	age, hr, spo2, temp := f[0], f[1], f[2], f[3]

	s := math.Max(0, (hr-p.HeartRateHigh)/p.HeartRateScale)
	s += math.Max(0, (p.HeartRateLow-hr)/p.HeartRateScale)
	s += math.Max(0, (p.SpO2Floor-spo2)/p.SpO2Scale)
	s += math.Max(0, (math.Abs(temp-p.TempNormal)-p.TempTolerance)/p.TempScale)
	if age >= p.ElderlyAge {
		s += p.ElderlyWeight
	}
	return s
}
