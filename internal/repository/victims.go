package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mr1hm/go-triage-dispatch/internal/models"
)

const victimColumns = `
	v.id, v.age, v.heart_rate, v.spo2, v.temperature, v.triage_level,
	v.lat, v.lng, v.created_at, v.status, v.hospital_id, v.degraded,
	COALESCE(h.name, '')`

func (s *SQLiteDB) CreateVictim(ctx context.Context, v *models.Victim) error {
	if err := v.CheckConsistency(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}
	if !v.TriageLevel.Valid() {
		return fmt.Errorf("%w: invalid tier %d", models.ErrPersistence, v.TriageLevel)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr(ctx, "begin ingest transaction", err)
	}
	defer tx.Rollback()

	if v.HospitalID != nil {
		res, err := tx.ExecContext(ctx,
			`UPDATE hospitals SET available_beds = available_beds - 1 WHERE id = ? AND available_beds > 0`,
			*v.HospitalID)
		if err != nil {
			return storeErr(ctx, "decrement beds", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return storeErr(ctx, "decrement beds", err)
		}
		if n != 1 {
			return fmt.Errorf("%w: hospital %d has no bed to take", models.ErrPersistence, *v.HospitalID)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO victims (id, age, heart_rate, spo2, temperature, triage_level, lat, lng, created_at, status, hospital_id, degraded)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.Vitals.Age, v.Vitals.HeartRate, v.Vitals.SpO2, v.Vitals.Temperature, int(v.TriageLevel),
		v.Location.Lat, v.Location.Lng, v.CreatedAt.UnixNano(), string(v.Status), nullableID(v.HospitalID), v.Degraded)
	if err != nil {
		return storeErr(ctx, "insert victim", err)
	}

	if err := tx.Commit(); err != nil {
		return storeErr(ctx, "commit ingest transaction", err)
	}
	return nil
}

func (s *SQLiteDB) GetVictim(ctx context.Context, id string) (*models.Victim, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+victimColumns+`
		FROM victims v LEFT JOIN hospitals h ON h.id = v.hospital_id
		WHERE v.id = ?`, id)

	v, err := scanVictim(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", models.ErrVictimNotFound, id)
	}
	if err != nil {
		return nil, storeErr(ctx, "get victim", err)
	}
	return v, nil
}

func (s *SQLiteDB) ListVictims(ctx context.Context) ([]models.Victim, error) {
	return s.queryVictims(ctx, `
		SELECT `+victimColumns+`
		FROM victims v LEFT JOIN hospitals h ON h.id = v.hospital_id
		ORDER BY v.triage_level DESC, v.created_at DESC, v.rowid DESC`)
}

func (s *SQLiteDB) ListUnassigned(ctx context.Context) ([]models.Victim, error) {
	return s.queryVictims(ctx, `
		SELECT `+victimColumns+`
		FROM victims v LEFT JOIN hospitals h ON h.id = v.hospital_id
		WHERE v.status = 'unassigned'
		ORDER BY v.created_at ASC, v.id ASC`)
}

func (s *SQLiteDB) AssignVictim(ctx context.Context, id string, hospitalID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr(ctx, "begin assign transaction", err)
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRowContext(ctx, `SELECT status FROM victims WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", models.ErrVictimNotFound, id)
	}
	if err != nil {
		return storeErr(ctx, "load victim", err)
	}
	if models.VictimStatus(status) == models.StatusAssigned {
		return fmt.Errorf("%w: %s", models.ErrAlreadyAssigned, id)
	}

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM hospitals WHERE id = ?`, hospitalID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %d", models.ErrHospitalNotFound, hospitalID)
	}
	if err != nil {
		return storeErr(ctx, "load hospital", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE victims SET status = 'assigned', hospital_id = ? WHERE id = ? AND status = 'unassigned'`,
		hospitalID, id)
	if err != nil {
		return storeErr(ctx, "assign victim", err)
	}

	if err := tx.Commit(); err != nil {
		return storeErr(ctx, "commit assign transaction", err)
	}
	return nil
}

func (s *SQLiteDB) Stats(ctx context.Context) (models.Stats, error) {
	var st models.Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN triage_level = 3 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'assigned' THEN 1 ELSE 0 END), 0)
		FROM victims`).Scan(&st.Total, &st.Critical, &st.Assigned)
	if err != nil {
		return models.Stats{}, storeErr(ctx, "victim stats", err)
	}
	st.Waitlisted = st.Total - st.Assigned

	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(available_beds), 0), COALESCE(SUM(total_beds), 0) FROM hospitals`).
		Scan(&st.AvailableBeds, &st.TotalBeds)
	if err != nil {
		return models.Stats{}, storeErr(ctx, "bed stats", err)
	}
	return st, nil
}

func (s *SQLiteDB) queryVictims(ctx context.Context, query string, args ...any) ([]models.Victim, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr(ctx, "query victims", err)
	}
	defer rows.Close()

	var victims []models.Victim
	for rows.Next() {
		v, err := scanVictim(rows)
		if err != nil {
			return nil, storeErr(ctx, "scan victim", err)
		}
		victims = append(victims, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(ctx, "iterate victims", err)
	}
	return victims, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVictim(row scanner) (*models.Victim, error) {
	var (
		v          models.Victim
		tier       int
		createdAt  int64
		status     string
		hospitalID sql.NullInt64
	)
	err := row.Scan(
		&v.ID, &v.Vitals.Age, &v.Vitals.HeartRate, &v.Vitals.SpO2, &v.Vitals.Temperature, &tier,
		&v.Location.Lat, &v.Location.Lng, &createdAt, &status, &hospitalID, &v.Degraded,
		&v.HospitalName,
	)
	if err != nil {
		return nil, err
	}

	v.TriageLevel = models.Tier(tier)
	v.CreatedAt = time.Unix(0, createdAt).UTC()
	v.Status = models.VictimStatus(status)
	if hospitalID.Valid {
		id := hospitalID.Int64
		v.HospitalID = &id
	}
	return &v, nil
}

func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}
