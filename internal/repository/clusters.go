package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mr1hm/go-triage-dispatch/internal/models"
)

// ReplaceClusters swaps in snap: the cluster rows and the snapshot's
// metadata row change in one transaction.
func (s *SQLiteDB) ReplaceClusters(ctx context.Context, snap models.ClusterSnapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr(ctx, "begin cluster transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM clusters`); err != nil {
		return storeErr(ctx, "clear clusters", err)
	}

	for _, c := range snap.Clusters {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO clusters (id, lat, lng, count, avg_severity, radius)
			VALUES (?, ?, ?, ?, ?, ?)`,
			c.ID, c.Center.Lat, c.Center.Lng, c.Count, c.AvgSeverity, c.Radius)
		if err != nil {
			return storeErr(ctx, "insert cluster", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO cluster_snapshots (id, unassigned, computed_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET unassigned = excluded.unassigned, computed_at = excluded.computed_at`,
		snap.Unassigned, snap.ComputedAt.UnixNano())
	if err != nil {
		return storeErr(ctx, "write snapshot metadata", err)
	}

	if err := tx.Commit(); err != nil {
		return storeErr(ctx, "commit cluster transaction", err)
	}
	return nil
}

// GetSnapshot returns the last stored snapshot. Before the first
// recompute it is empty with a zero ComputedAt.
func (s *SQLiteDB) GetSnapshot(ctx context.Context) (models.ClusterSnapshot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.ClusterSnapshot{}, storeErr(ctx, "begin snapshot read", err)
	}
	defer tx.Rollback()

	snap := models.ClusterSnapshot{Clusters: []models.Cluster{}}

	var computedAt int64
	err = tx.QueryRowContext(ctx, `SELECT unassigned, computed_at FROM cluster_snapshots WHERE id = 1`).
		Scan(&snap.Unassigned, &computedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return snap, nil
	case err != nil:
		return models.ClusterSnapshot{}, storeErr(ctx, "query snapshot metadata", err)
	}
	snap.ComputedAt = time.Unix(0, computedAt).UTC()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, lat, lng, count, avg_severity, radius
		FROM clusters ORDER BY id ASC`)
	if err != nil {
		return models.ClusterSnapshot{}, storeErr(ctx, "query clusters", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c models.Cluster
		if err := rows.Scan(&c.ID, &c.Center.Lat, &c.Center.Lng, &c.Count, &c.AvgSeverity, &c.Radius); err != nil {
			return models.ClusterSnapshot{}, storeErr(ctx, "scan cluster", err)
		}
		snap.Clusters = append(snap.Clusters, c)
	}
	if err := rows.Err(); err != nil {
		return models.ClusterSnapshot{}, storeErr(ctx, "iterate clusters", err)
	}
	return snap, nil
}
