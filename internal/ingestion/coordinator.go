// Package ingestion runs the report pipeline: validate, classify, reserve
// a bed and persist, then kick off a hotspot recompute.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mr1hm/go-triage-dispatch/internal/config"
	"github.com/mr1hm/go-triage-dispatch/internal/dispatch"
	"github.com/mr1hm/go-triage-dispatch/internal/events"
	"github.com/mr1hm/go-triage-dispatch/internal/models"
	"github.com/mr1hm/go-triage-dispatch/internal/severity"
)

// Store is the slice of the triage store the coordinator writes through.
type Store interface {
	CreateVictim(ctx context.Context, v *models.Victim) error
	GetVictim(ctx context.Context, id string) (*models.Victim, error)
	AssignVictim(ctx context.Context, id string, hospitalID int64) error
}

// Trigger asks for a hotspot recompute without waiting for it.
type Trigger interface {
	Trigger()
}

type Coordinator struct {
	cfg       config.IngestConfig
	store     Store
	directory *dispatch.Directory
	gate      *severity.Gate
	hotspots  Trigger
	publisher events.Publisher
	now       func() time.Time
	newID     func() string
}

func NewCoordinator(cfg config.IngestConfig, store Store, directory *dispatch.Directory, gate *severity.Gate, hotspots Trigger, publisher events.Publisher) *Coordinator {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Coordinator{
		cfg:       cfg,
		store:     store,
		directory: directory,
		gate:      gate,
		hotspots:  hotspots,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// Ingest admits one report. Once the report validates, the call runs to a
// terminal outcome even if ctx is cancelled: each step is bounded by its own
// timeout instead. The victim is either committed with the bed, or rolled
// back and the bed returned. A full system is not an error; the victim is
// stored unassigned and reported as waitlisted.
func (c *Coordinator) Ingest(ctx context.Context, report models.Report) (*models.IngestResult, error) {
	vitals, loc, err := report.Validate()
	if err != nil {
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)

	decision, err := c.gate.Classify(ctx, vitals)
	if err != nil {
		return nil, err
	}

	reserveCtx, cancel := context.WithTimeout(ctx, c.cfg.ReserveTimeout)
	res, err := c.directory.ReserveNearest(reserveCtx, loc)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("reserving bed: %w", err)
	}

	victim := &models.Victim{
		ID:          c.newID(),
		Vitals:      vitals,
		TriageLevel: decision.Tier,
		Location:    loc,
		CreatedAt:   c.now(),
		Status:      models.StatusUnassigned,
		Degraded:    decision.Degraded,
	}
	if res != nil {
		id := res.HospitalID
		victim.Status = models.StatusAssigned
		victim.HospitalID = &id
		victim.HospitalName = res.HospitalName
	}

	persistCtx, cancel := context.WithTimeout(ctx, c.cfg.PersistTimeout)
	err = c.store.CreateVictim(persistCtx, victim)
	cancel()
	if err != nil {
		c.directory.Release(res)
		if !errors.Is(err, models.ErrPersistence) && !errors.Is(err, models.ErrTimeout) {
			err = fmt.Errorf("%w: %v", models.ErrPersistence, err)
		}
		slog.Error("ingest rolled back", "victim_id", victim.ID, "error", err)
		return nil, err
	}

	c.hotspots.Trigger()
	if err := c.publisher.PublishVictim(ctx, events.NewVictimIngested(victim)); err != nil {
		slog.Warn("publishing ingest event failed", "victim_id", victim.ID, "error", err)
	}

	result := &models.IngestResult{
		Status:            "success",
		VictimID:          victim.ID,
		PredictedSeverity: victim.TriageLevel,
		AssignedTo:        models.WaitlistedLabel,
		Degraded:          victim.Degraded,
	}
	if res != nil {
		result.AssignedTo = res.HospitalName
		result.HospitalID = victim.HospitalID
		slog.Info("victim admitted", "victim_id", victim.ID, "tier", victim.TriageLevel,
			"hospital", res.HospitalName, "distance_km", res.DistanceKm)
	} else {
		slog.Warn("victim waitlisted, no beds", "victim_id", victim.ID, "tier", victim.TriageLevel)
	}
	return result, nil
}

// Assign is the manual override for a waiting victim. With a nil
// hospitalID the nearest hospital is chosen whether or not it has a free
// bed. Bed counts are left alone either way.
func (c *Coordinator) Assign(ctx context.Context, victimID string, hospitalID *int64) (*models.Victim, error) {
	victim, err := c.store.GetVictim(ctx, victimID)
	if err != nil {
		return nil, err
	}
	if victim.Assigned() {
		return nil, fmt.Errorf("%w: %s", models.ErrAlreadyAssigned, victimID)
	}

	var hospital models.Hospital
	if hospitalID != nil {
		hospital, err = c.directory.Get(ctx, *hospitalID)
	} else {
		hospital, err = c.directory.Nearest(ctx, victim.Location)
	}
	if err != nil {
		return nil, err
	}

	if err := c.store.AssignVictim(ctx, victimID, hospital.ID); err != nil {
		return nil, err
	}
	c.hotspots.Trigger()

	id := hospital.ID
	victim.Status = models.StatusAssigned
	victim.HospitalID = &id
	victim.HospitalName = hospital.Name

	slog.Info("victim manually assigned", "victim_id", victimID, "hospital", hospital.Name)
	return victim, nil
}
