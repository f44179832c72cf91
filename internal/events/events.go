// Package events fans triage activity out to other systems.
package events

import (
	"context"
	"time"

	"github.com/mr1hm/go-triage-dispatch/internal/models"
)

const (
	SubjectVictimIngested  = "victims.ingested"
	SubjectHotspotSnapshot = "hotspots.snapshot"
)

// VictimIngested is published after a report has been committed.
type VictimIngested struct {
	VictimID    string          `json:"victim_id"`
	TriageLevel models.Tier     `json:"triage_level"`
	Location    models.Location `json:"location"`
	HospitalID  *int64          `json:"hospital_id"`
	AssignedTo  string          `json:"assigned_to"`
	Degraded    bool            `json:"degraded,omitempty"`
	IngestedAt  time.Time       `json:"ingested_at"`
}

func NewVictimIngested(v *models.Victim) VictimIngested {
	assigned := models.WaitlistedLabel
	if v.Assigned() {
		assigned = v.HospitalName
	}
	return VictimIngested{
		VictimID:    v.ID,
		TriageLevel: v.TriageLevel,
		Location:    v.Location,
		HospitalID:  v.HospitalID,
		AssignedTo:  assigned,
		Degraded:    v.Degraded,
		IngestedAt:  v.CreatedAt,
	}
}

// Publisher delivers events on a best-effort basis. A failed publish is
// reported to the caller but never undoes the committed work behind it.
type Publisher interface {
	PublishVictim(ctx context.Context, ev VictimIngested) error
	PublishSnapshot(ctx context.Context, snap models.ClusterSnapshot) error
	Close() error
}

// Nop discards every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) PublishVictim(context.Context, VictimIngested) error          { return nil }
func (Nop) PublishSnapshot(context.Context, models.ClusterSnapshot) error { return nil }
func (Nop) Close() error                                                  { return nil }
