package hotspot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mr1hm/go-triage-dispatch/internal/models"
)

type Store interface {
	ListUnassigned(ctx context.Context) ([]models.Victim, error)
	ReplaceClusters(ctx context.Context, snap models.ClusterSnapshot) error
}

// Recomputer regenerates the cluster snapshot in the background. Trigger
// never blocks: requests that arrive while a cycle is running collapse
// into a single follow-up cycle, so at most one cycle runs and at most one
// waits.
type Recomputer struct {
	store     Store
	params    Params
	timeout   time.Duration
	kick      chan struct{}
	runMu     sync.Mutex
	listeners []func(models.ClusterSnapshot)
	cycles    atomic.Int64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRecomputer(store Store, params Params, timeout time.Duration) *Recomputer {
	return &Recomputer{
		store:   store,
		params:  params,
		timeout: timeout,
		kick:    make(chan struct{}, 1),
	}
}

// OnSnapshot registers fn to receive every persisted snapshot. Register
// listeners before Start.
func (r *Recomputer) OnSnapshot(fn func(models.ClusterSnapshot)) {
	r.listeners = append(r.listeners, fn)
}

func (r *Recomputer) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.wg.Add(1)
	go r.loop(ctx)
}

func (r *Recomputer) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	slog.Info("hotspot recomputer stopped", "cycles", r.cycles.Load())
}

// Trigger requests a recompute.
func (r *Recomputer) Trigger() {
	select {
	case r.kick <- struct{}{}:
	default:
		// a cycle is already pending
	}
}

// Cycles reports how many recomputes have completed successfully.
func (r *Recomputer) Cycles() int64 {
	return r.cycles.Load()
}

func (r *Recomputer) loop(ctx context.Context) {
	defer r.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.kick:
			cycleCtx, cancel := context.WithTimeout(ctx, r.timeout)
			if _, err := r.Recompute(cycleCtx); err != nil && ctx.Err() == nil {
				slog.Error("hotspot recompute failed", "error", err)
			}
			cancel()
		}
	}
}

// Recompute runs one full cycle synchronously: read the unassigned set,
// cluster it and swap the stored snapshot. Errors wrap ErrClusteringFailure.
func (r *Recomputer) Recompute(ctx context.Context) (models.ClusterSnapshot, error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	victims, err := r.store.ListUnassigned(ctx)
	if err != nil {
		return models.ClusterSnapshot{}, fmt.Errorf("%w: loading unassigned victims: %v", models.ErrClusteringFailure, err)
	}

	clusters, err := Cluster(ctx, PointsFromVictims(victims), r.params)
	if err != nil {
		return models.ClusterSnapshot{}, fmt.Errorf("%w: %v", models.ErrClusteringFailure, err)
	}

	snap := models.ClusterSnapshot{
		Clusters:   clusters,
		Unassigned: len(victims),
		ComputedAt: time.Now().UTC(),
	}
	if err := r.store.ReplaceClusters(ctx, snap); err != nil {
		return models.ClusterSnapshot{}, fmt.Errorf("%w: storing snapshot: %v", models.ErrClusteringFailure, err)
	}

	r.cycles.Add(1)
	slog.Debug("hotspots recomputed", "unassigned", len(victims), "clusters", len(clusters))

	for _, fn := range r.listeners {
		fn(snap)
	}
	return snap, nil
}
