package simulator

import (
	"context"
	"log/slog"
	"time"

	"github.com/mr1hm/go-triage-dispatch/internal/config"
	"github.com/mr1hm/go-triage-dispatch/internal/models"
	"github.com/mr1hm/go-triage-dispatch/internal/worker"
)

type Simulator struct {
	cfg    config.SimulatorConfig
	gen    *Generator
	poster *Poster
}

func New(cfg config.SimulatorConfig, gen *Generator, poster *Poster) *Simulator {
	return &Simulator{cfg: cfg, gen: gen, poster: poster}
}

// Run sends waves until ctx is done, then waits for queued reports.
func (s *Simulator) Run(ctx context.Context) {
	pool := worker.NewPool("simulator", s.cfg.Workers, s.cfg.WaveMax, s.send)
	pool.Start(ctx)
	defer pool.Stop()

	wave := 0
	for {
		wave++
		size := s.gen.WaveSize(s.cfg.WaveMin, s.cfg.WaveMax)
		slog.Info("sending wave", "wave", wave, "reports", size)

		for i := 0; i < size; i++ {
			if err := pool.Submit(ctx, s.gen.Report()); err != nil {
				return
			}
		}

		pause := s.gen.Interval(s.cfg.WaveIntervalMin, s.cfg.WaveIntervalMax)
		select {
		case <-ctx.Done():
			return
		case <-time.After(pause):
		}
	}
}

func (s *Simulator) send(ctx context.Context, r models.Report) error {
	res, err := s.poster.Post(ctx, r)
	if err != nil {
		if ctx.Err() == nil {
			slog.Error("report rejected", "error", err)
		}
		return err
	}
	slog.Info("report accepted",
		"victim_id", res.VictimID,
		"severity", res.PredictedSeverity,
		"assigned_to", res.AssignedTo)
	return nil
}
