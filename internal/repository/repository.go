package repository

import (
	"context"

	"github.com/mr1hm/go-triage-dispatch/internal/models"
)

type VictimRepository interface {
	// CreateVictim inserts v and, if v references a hospital, takes one bed
	// from it in the same transaction. Either both happen or neither does.
	CreateVictim(ctx context.Context, v *models.Victim) error
	GetVictim(ctx context.Context, id string) (*models.Victim, error)
	// ListVictims orders by tier descending, then most recent first.
	ListVictims(ctx context.Context) ([]models.Victim, error)
	// ListUnassigned orders by creation time then ID, oldest first.
	ListUnassigned(ctx context.Context) ([]models.Victim, error)
	// AssignVictim marks an unassigned victim as assigned to hospitalID
	// without touching bed counts.
	AssignVictim(ctx context.Context, id string, hospitalID int64) error
	Stats(ctx context.Context) (models.Stats, error)
}

type HospitalRepository interface {
	// SeedHospitals inserts hs only if no hospital exists yet and returns
	// how many rows were written.
	SeedHospitals(ctx context.Context, hs []models.Hospital) (int, error)
	ListHospitals(ctx context.Context) ([]models.Hospital, error)
}

type ClusterRepository interface {
	// ReplaceClusters drops the previous snapshot and writes the new one atomically.
	ReplaceClusters(ctx context.Context, snap models.ClusterSnapshot) error
	GetSnapshot(ctx context.Context) (models.ClusterSnapshot, error)
}

// TriageStore is the authoritative record set.
type TriageStore interface {
	VictimRepository
	HospitalRepository
	ClusterRepository
	Ping(ctx context.Context) error
}
