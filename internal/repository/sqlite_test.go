package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mr1hm/go-triage-dispatch/internal/models"
)

func setupTestDB(t *testing.T) *SQLiteDB {
	db, err := NewSQLiteDB(":memory:", time.Second)
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	return db
}

func seedTestHospitals(t *testing.T, db *SQLiteDB, hs ...models.Hospital) []models.Hospital {
	t.Helper()
	ctx := context.Background()
	if _, err := db.SeedHospitals(ctx, hs); err != nil {
		t.Fatalf("SeedHospitals failed: %v", err)
	}
	got, err := db.ListHospitals(ctx)
	if err != nil {
		t.Fatalf("ListHospitals failed: %v", err)
	}
	return got
}

func newVictim(id string, tier models.Tier, lat, lng float64, at time.Time) *models.Victim {
	return &models.Victim{
		ID:          id,
		Vitals:      models.Vitals{Age: 40, HeartRate: 90, SpO2: 96, Temperature: 37},
		TriageLevel: tier,
		Location:    models.Location{Lat: lat, Lng: lng},
		CreatedAt:   at,
		Status:      models.StatusUnassigned,
	}
}

func TestSQLiteDB_SeedOnlyOnce(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	n, err := db.SeedHospitals(ctx, DefaultHospitals())
	if err != nil {
		t.Fatalf("SeedHospitals failed: %v", err)
	}
	if n != 6 {
		t.Errorf("expected 6 hospitals seeded, got %d", n)
	}

	n, err = db.SeedHospitals(ctx, DefaultHospitals())
	if err != nil {
		t.Fatalf("second SeedHospitals failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no re-seed, got %d rows", n)
	}

	hs, _ := db.ListHospitals(ctx)
	if len(hs) != 6 {
		t.Fatalf("expected 6 hospitals, got %d", len(hs))
	}
	if hs[0].Name != "Rajiv Gandhi Govt General Hospital" || hs[0].AvailableBeds != 150 {
		t.Errorf("unexpected first hospital %+v", hs[0])
	}
}

func TestSQLiteDB_SeedRejectsInvalidBeds(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	_, err := db.SeedHospitals(context.Background(), []models.Hospital{
		{Name: "Broken", TotalBeds: 1, AvailableBeds: 2},
	})
	if !errors.Is(err, models.ErrPersistence) {
		t.Errorf("expected ErrPersistence, got %v", err)
	}
}

func TestSQLiteDB_CreateAssignedVictimTakesBed(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	hs := seedTestHospitals(t, db, models.Hospital{Name: "Apollo", Location: models.Location{Lat: 13.06, Lng: 80.25}, TotalBeds: 2, AvailableBeds: 1})

	v := newVictim("v1", models.TierCritical, 13.06, 80.25, time.Now())
	v.Status = models.StatusAssigned
	v.HospitalID = &hs[0].ID

	if err := db.CreateVictim(ctx, v); err != nil {
		t.Fatalf("CreateVictim failed: %v", err)
	}

	got, err := db.GetVictim(ctx, "v1")
	if err != nil {
		t.Fatalf("GetVictim failed: %v", err)
	}
	if got.Status != models.StatusAssigned || got.HospitalID == nil || *got.HospitalID != hs[0].ID {
		t.Errorf("unexpected victim %+v", got)
	}
	if got.HospitalName != "Apollo" {
		t.Errorf("expected hospital name Apollo, got %q", got.HospitalName)
	}

	after, _ := db.ListHospitals(ctx)
	if after[0].AvailableBeds != 0 {
		t.Errorf("expected 0 beds, got %d", after[0].AvailableBeds)
	}
}

func TestSQLiteDB_CreateVictimRollsBackBedOnInsertFailure(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	hs := seedTestHospitals(t, db, models.Hospital{Name: "Apollo", TotalBeds: 5, AvailableBeds: 5})

	first := newVictim("dup", models.TierMinor, 13, 80, time.Now())
	if err := db.CreateVictim(ctx, first); err != nil {
		t.Fatalf("CreateVictim failed: %v", err)
	}

	// duplicate primary key fails after the bed update has run
	dup := newVictim("dup", models.TierCritical, 13, 80, time.Now())
	dup.Status = models.StatusAssigned
	dup.HospitalID = &hs[0].ID
	err := db.CreateVictim(ctx, dup)
	if !errors.Is(err, models.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}

	after, _ := db.ListHospitals(ctx)
	if after[0].AvailableBeds != 5 {
		t.Errorf("expected bed decrement rolled back, got %d beds", after[0].AvailableBeds)
	}
	got, _ := db.GetVictim(ctx, "dup")
	if got.Status != models.StatusUnassigned {
		t.Errorf("expected original victim untouched, got %+v", got)
	}
}

func TestSQLiteDB_CreateVictimFailsWithoutBed(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	hs := seedTestHospitals(t, db, models.Hospital{Name: "Full", TotalBeds: 3, AvailableBeds: 0})

	v := newVictim("v1", models.TierUrgent, 13, 80, time.Now())
	v.Status = models.StatusAssigned
	v.HospitalID = &hs[0].ID

	if err := db.CreateVictim(ctx, v); !errors.Is(err, models.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if _, err := db.GetVictim(ctx, "v1"); !errors.Is(err, models.ErrVictimNotFound) {
		t.Errorf("expected no victim row, got %v", err)
	}
}

func TestSQLiteDB_CreateVictimRejectsInconsistentStatus(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	v := newVictim("v1", models.TierMinor, 13, 80, time.Now())
	v.Status = models.StatusAssigned

	if err := db.CreateVictim(context.Background(), v); !errors.Is(err, models.ErrPersistence) {
		t.Errorf("expected ErrPersistence for assigned victim without hospital, got %v", err)
	}
}

func TestSQLiteDB_ListVictimsOrdering(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	base := time.Now()
	victims := []*models.Victim{
		newVictim("old-critical", models.TierCritical, 13, 80, base),
		newVictim("minor", models.TierMinor, 13, 80, base.Add(3*time.Second)),
		newVictim("new-critical", models.TierCritical, 13, 80, base.Add(time.Second)),
		newVictim("urgent", models.TierUrgent, 13, 80, base.Add(2*time.Second)),
	}
	for _, v := range victims {
		if err := db.CreateVictim(ctx, v); err != nil {
			t.Fatalf("CreateVictim failed: %v", err)
		}
	}

	got, err := db.ListVictims(ctx)
	if err != nil {
		t.Fatalf("ListVictims failed: %v", err)
	}
	want := []string{"new-critical", "old-critical", "urgent", "minor"}
	if len(got) != len(want) {
		t.Fatalf("expected %d victims, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
}

func TestSQLiteDB_ListUnassignedOldestFirst(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	hs := seedTestHospitals(t, db, models.Hospital{Name: "A", TotalBeds: 1, AvailableBeds: 1})

	base := time.Now()
	db.CreateVictim(ctx, newVictim("b", models.TierMinor, 13, 80, base.Add(time.Second)))
	db.CreateVictim(ctx, newVictim("a", models.TierMinor, 13, 80, base))
	assigned := newVictim("c", models.TierMinor, 13, 80, base)
	assigned.Status = models.StatusAssigned
	assigned.HospitalID = &hs[0].ID
	db.CreateVictim(ctx, assigned)

	got, err := db.ListUnassigned(ctx)
	if err != nil {
		t.Fatalf("ListUnassigned failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("unexpected unassigned list %+v", got)
	}
}

func TestSQLiteDB_AssignVictim(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	hs := seedTestHospitals(t, db, models.Hospital{Name: "Stanley", TotalBeds: 4, AvailableBeds: 0})
	db.CreateVictim(ctx, newVictim("v1", models.TierUrgent, 13, 80, time.Now()))

	if err := db.AssignVictim(ctx, "v1", hs[0].ID); err != nil {
		t.Fatalf("AssignVictim failed: %v", err)
	}

	got, _ := db.GetVictim(ctx, "v1")
	if err := got.CheckConsistency(); err != nil || got.Status != models.StatusAssigned {
		t.Errorf("expected consistent assigned victim, got %+v (%v)", got, err)
	}

	after, _ := db.ListHospitals(ctx)
	if after[0].AvailableBeds != 0 {
		t.Errorf("override must not touch beds, got %d", after[0].AvailableBeds)
	}

	if err := db.AssignVictim(ctx, "v1", hs[0].ID); !errors.Is(err, models.ErrAlreadyAssigned) {
		t.Errorf("expected ErrAlreadyAssigned, got %v", err)
	}
	if err := db.AssignVictim(ctx, "missing", hs[0].ID); !errors.Is(err, models.ErrVictimNotFound) {
		t.Errorf("expected ErrVictimNotFound, got %v", err)
	}

	db.CreateVictim(ctx, newVictim("v2", models.TierUrgent, 13, 80, time.Now()))
	if err := db.AssignVictim(ctx, "v2", 999); !errors.Is(err, models.ErrHospitalNotFound) {
		t.Errorf("expected ErrHospitalNotFound, got %v", err)
	}
}

func TestSQLiteDB_Stats(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	hs := seedTestHospitals(t, db, models.Hospital{Name: "A", TotalBeds: 10, AvailableBeds: 3})

	db.CreateVictim(ctx, newVictim("w1", models.TierCritical, 13, 80, time.Now()))
	db.CreateVictim(ctx, newVictim("w2", models.TierMinor, 13, 80, time.Now()))
	a := newVictim("a1", models.TierCritical, 13, 80, time.Now())
	a.Status = models.StatusAssigned
	a.HospitalID = &hs[0].ID
	db.CreateVictim(ctx, a)

	st, err := db.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	want := models.Stats{Total: 3, Critical: 2, Assigned: 1, Waitlisted: 2, AvailableBeds: 2, TotalBeds: 10}
	if st != want {
		t.Errorf("expected %+v, got %+v", want, st)
	}
}

func TestSQLiteDB_TimeoutSurfacesAsErrTimeout(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	err := db.CreateVictim(ctx, newVictim("late", models.TierMinor, 13, 80, time.Now()))
	if !errors.Is(err, models.ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
	if _, err := db.GetVictim(context.Background(), "late"); !errors.Is(err, models.ErrVictimNotFound) {
		t.Errorf("expected no partial write, got %v", err)
	}
}

func TestSQLiteDB_FileDatabasePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "triage.db")
	ctx := context.Background()

	db, err := NewSQLiteDB(path, time.Second)
	if err != nil {
		t.Fatalf("failed to create file db: %v", err)
	}
	hs := seedTestHospitals(t, db, models.Hospital{Name: "A", TotalBeds: 2, AvailableBeds: 2})
	id := hs[0].ID
	v := newVictim("v1", models.TierUrgent, 13, 80, time.Now())
	v.Status = models.StatusAssigned
	v.HospitalID = &id
	if err := db.CreateVictim(ctx, v); err != nil {
		t.Fatalf("CreateVictim failed: %v", err)
	}
	db.Close()

	db, err = NewSQLiteDB(path, time.Second)
	if err != nil {
		t.Fatalf("failed to reopen file db: %v", err)
	}
	defer db.Close()

	got, err := db.GetVictim(ctx, "v1")
	if err != nil {
		t.Fatalf("GetVictim after reopen failed: %v", err)
	}
	if got.HospitalName != "A" {
		t.Errorf("expected hospital A, got %q", got.HospitalName)
	}
	hs, _ = db.ListHospitals(ctx)
	if hs[0].AvailableBeds != 1 {
		t.Errorf("expected 1 bed left after reopen, got %d", hs[0].AvailableBeds)
	}
}
