// Package dispatch matches victims to the nearest hospital with a free bed.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/semaphore"

	"github.com/mr1hm/go-triage-dispatch/internal/geo"
	"github.com/mr1hm/go-triage-dispatch/internal/models"
)

// Reservation is one bed taken from a hospital. It must be either kept
// (persisted) or handed back with Release.
type Reservation struct {
	HospitalID   int64
	HospitalName string
	DistanceKm   float64
}

// Directory owns the live bed counts. Every read and write of a count goes
// through a single weight-1 semaphore, so selecting the nearest hospital
// and decrementing its bed happen in one critical section. The semaphore
// is used instead of a mutex so that waiting for it honours a deadline.
type Directory struct {
	sem       *semaphore.Weighted
	hospitals []models.Hospital // sorted by ID
	index     map[int64]int
}

func NewDirectory(hospitals []models.Hospital) *Directory {
	hs := make([]models.Hospital, len(hospitals))
	copy(hs, hospitals)
	sort.Slice(hs, func(i, j int) bool { return hs[i].ID < hs[j].ID })

	index := make(map[int64]int, len(hs))
	for i, h := range hs {
		index[h.ID] = i
	}

	return &Directory{
		sem:       semaphore.NewWeighted(1),
		hospitals: hs,
		index:     index,
	}
}

// ReserveNearest takes one bed from the closest hospital with capacity.
// Ties on distance go to the lowest hospital ID. It returns (nil, nil)
// when every hospital is full. ErrTimeout is returned if ctx ends before
// the directory could be locked.
func (d *Directory) ReserveNearest(ctx context.Context, loc models.Location) (*Reservation, error) {
	if err := d.lock(ctx); err != nil {
		return nil, err
	}
	defer d.sem.Release(1)

	best := -1
	bestDist := 0.0
	for i := range d.hospitals {
		h := &d.hospitals[i]
		if !h.HasCapacity() {
			continue
		}
		dist := geo.HaversineKm(loc, h.Location)
		// strict < keeps the lower ID on ties since the slice is ID-ordered
		if best == -1 || dist < bestDist {
			best = i
			bestDist = dist
		}
	}
	if best == -1 {
		return nil, nil
	}

	h := &d.hospitals[best]
	h.AvailableBeds--

	return &Reservation{
		HospitalID:   h.ID,
		HospitalName: h.Name,
		DistanceKm:   bestDist,
	}, nil
}

// Release returns a reserved bed, e.g. after the ingest transaction rolled
// back. The count never rises above TotalBeds. Release is not bounded by
// a context because a lost bed is worse than a short wait.
func (d *Directory) Release(r *Reservation) {
	if r == nil {
		return
	}
	_ = d.sem.Acquire(context.Background(), 1)
	defer d.sem.Release(1)

	i, ok := d.index[r.HospitalID]
	if !ok {
		return
	}
	h := &d.hospitals[i]
	if h.AvailableBeds < h.TotalBeds {
		h.AvailableBeds++
	}
}

// Nearest returns the closest hospital regardless of capacity. It does
// not touch bed counts.
func (d *Directory) Nearest(ctx context.Context, loc models.Location) (models.Hospital, error) {
	if err := d.lock(ctx); err != nil {
		return models.Hospital{}, err
	}
	defer d.sem.Release(1)

	if len(d.hospitals) == 0 {
		return models.Hospital{}, models.ErrHospitalNotFound
	}

	best := 0
	bestDist := geo.HaversineKm(loc, d.hospitals[0].Location)
	for i := 1; i < len(d.hospitals); i++ {
		if dist := geo.HaversineKm(loc, d.hospitals[i].Location); dist < bestDist {
			best = i
			bestDist = dist
		}
	}
	return d.hospitals[best], nil
}

// Get returns a copy of one hospital.
func (d *Directory) Get(ctx context.Context, id int64) (models.Hospital, error) {
	if err := d.lock(ctx); err != nil {
		return models.Hospital{}, err
	}
	defer d.sem.Release(1)

	i, ok := d.index[id]
	if !ok {
		return models.Hospital{}, fmt.Errorf("%w: %d", models.ErrHospitalNotFound, id)
	}
	return d.hospitals[i], nil
}

// Hospitals returns a copy of every hospital ordered by ID.
func (d *Directory) Hospitals(ctx context.Context) ([]models.Hospital, error) {
	if err := d.lock(ctx); err != nil {
		return nil, err
	}
	defer d.sem.Release(1)

	out := make([]models.Hospital, len(d.hospitals))
	copy(out, d.hospitals)
	return out, nil
}

func (d *Directory) lock(ctx context.Context) error {
	if err := d.sem.Acquire(ctx, 1); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: waiting for hospital directory", models.ErrTimeout)
		}
		return err
	}
	return nil
}
