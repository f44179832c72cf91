package models

import (
	"fmt"
	"math"
	"time"
)

// Tier is the discrete severity class, 0 (minor) through 3 (critical).
type Tier int

const (
	TierMinor    Tier = 0
	TierDelayed  Tier = 1
	TierUrgent   Tier = 2
	TierCritical Tier = 3
)

func (t Tier) Valid() bool {
	return t >= TierMinor && t <= TierCritical
}

type VictimStatus string

const (
	StatusUnassigned VictimStatus = "unassigned"
	StatusAssigned   VictimStatus = "assigned"
)

// WaitlistedLabel is returned in place of a hospital name when no bed was free.
const WaitlistedLabel = "Waitlisted"

type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Vitals are the raw classifier inputs. Features returns them in the
// order the classifier expects: age, heart_rate, spo2, temperature.
type Vitals struct {
	Age         float64 `json:"age"`
	HeartRate   float64 `json:"heart_rate"`
	SpO2        float64 `json:"spo2"`
	Temperature float64 `json:"temperature"`
}

func (v Vitals) Features() [4]float64 {
	return [4]float64{v.Age, v.HeartRate, v.SpO2, v.Temperature}
}

type Victim struct {
	ID           string       `json:"id"`
	Vitals       Vitals       `json:"vitals"`
	TriageLevel  Tier         `json:"triage_level"`
	Location     Location     `json:"location"`
	CreatedAt    time.Time    `json:"created_at"`
	Status       VictimStatus `json:"status"`
	HospitalID   *int64       `json:"hospital_id"`
	HospitalName string       `json:"hospital_assigned,omitempty"`
	Degraded     bool         `json:"degraded,omitempty"`
}

// Assigned reports whether the victim holds a hospital reference.
func (v *Victim) Assigned() bool {
	return v.Status == StatusAssigned && v.HospitalID != nil
}

// CheckConsistency verifies status=assigned iff a hospital is referenced.
func (v *Victim) CheckConsistency() error {
	switch v.Status {
	case StatusAssigned:
		if v.HospitalID == nil {
			return fmt.Errorf("victim %s is assigned without a hospital", v.ID)
		}
	case StatusUnassigned:
		if v.HospitalID != nil {
			return fmt.Errorf("victim %s is unassigned but references hospital %d", v.ID, *v.HospitalID)
		}
	default:
		return fmt.Errorf("victim %s has unknown status %q", v.ID, v.Status)
	}
	return nil
}

// Report is the inbound victim report. Fields are pointers so that a
// missing field can be told apart from a zero reading.
type Report struct {
	Age         *float64 `json:"age"`
	HeartRate   *float64 `json:"heart_rate"`
	SpO2        *float64 `json:"spo2"`
	Temperature *float64 `json:"temperature"`
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
}

// Validate checks every field is present and finite and the location is
// a real coordinate. It returns ErrInvalidVitals wrapped with the reason.
func (r Report) Validate() (Vitals, Location, error) {
	fields := []struct {
		name string
		val  *float64
	}{
		{"age", r.Age},
		{"heart_rate", r.HeartRate},
		{"spo2", r.SpO2},
		{"temperature", r.Temperature},
		{"lat", r.Lat},
		{"lng", r.Lng},
	}
	for _, f := range fields {
		if f.val == nil {
			return Vitals{}, Location{}, fmt.Errorf("%w: missing %s", ErrInvalidVitals, f.name)
		}
		if math.IsNaN(*f.val) || math.IsInf(*f.val, 0) {
			return Vitals{}, Location{}, fmt.Errorf("%w: %s is not a finite number", ErrInvalidVitals, f.name)
		}
	}
	if *r.Lat < -90 || *r.Lat > 90 || *r.Lng < -180 || *r.Lng > 180 {
		return Vitals{}, Location{}, fmt.Errorf("%w: location out of range", ErrInvalidVitals)
	}

	v := Vitals{Age: *r.Age, HeartRate: *r.HeartRate, SpO2: *r.SpO2, Temperature: *r.Temperature}
	return v, Location{Lat: *r.Lat, Lng: *r.Lng}, nil
}

// IngestResult is the outcome returned for an accepted report.
type IngestResult struct {
	Status            string `json:"status"`
	VictimID          string `json:"victim_id"`
	PredictedSeverity Tier   `json:"predicted_severity"`
	AssignedTo        string `json:"assigned_to"`
	HospitalID        *int64 `json:"hospital_id,omitempty"`
	Degraded          bool   `json:"degraded,omitempty"`
}

func (r *IngestResult) Waitlisted() bool {
	return r.HospitalID == nil
}

type Stats struct {
	Total         int `json:"total"`
	Critical      int `json:"critical"`
	Assigned      int `json:"assigned"`
	Waitlisted    int `json:"waitlisted"`
	AvailableBeds int `json:"available_beds"`
	TotalBeds     int `json:"total_beds"`
}
