package repository

import (
	"context"
	"fmt"

	"github.com/mr1hm/go-triage-dispatch/internal/models"
)

func (s *SQLiteDB) SeedHospitals(ctx context.Context, hs []models.Hospital) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storeErr(ctx, "begin seed transaction", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM hospitals`).Scan(&count); err != nil {
		return 0, storeErr(ctx, "count hospitals", err)
	}
	if count > 0 {
		return 0, nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO hospitals (name, lat, lng, total_beds, available_beds, specialty)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, storeErr(ctx, "prepare seed", err)
	}
	defer stmt.Close()

	for _, h := range hs {
		if h.AvailableBeds < 0 || h.AvailableBeds > h.TotalBeds {
			return 0, fmt.Errorf("%w: hospital %q has %d of %d beds", models.ErrPersistence, h.Name, h.AvailableBeds, h.TotalBeds)
		}
		if _, err := stmt.ExecContext(ctx, h.Name, h.Location.Lat, h.Location.Lng, h.TotalBeds, h.AvailableBeds, h.Specialty); err != nil {
			return 0, storeErr(ctx, "insert hospital", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, storeErr(ctx, "commit seed transaction", err)
	}
	return len(hs), nil
}

func (s *SQLiteDB) ListHospitals(ctx context.Context) ([]models.Hospital, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, lat, lng, total_beds, available_beds, specialty
		FROM hospitals ORDER BY id ASC`)
	if err != nil {
		return nil, storeErr(ctx, "query hospitals", err)
	}
	defer rows.Close()

	var hospitals []models.Hospital
	for rows.Next() {
		var h models.Hospital
		if err := rows.Scan(&h.ID, &h.Name, &h.Location.Lat, &h.Location.Lng, &h.TotalBeds, &h.AvailableBeds, &h.Specialty); err != nil {
			return nil, storeErr(ctx, "scan hospital", err)
		}
		hospitals = append(hospitals, h)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(ctx, "iterate hospitals", err)
	}
	return hospitals, nil
}
