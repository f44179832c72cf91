package models

import "errors"

var (
	// ErrInvalidVitals is returned for structurally invalid reports. No side effects occur.
	ErrInvalidVitals = errors.New("invalid vitals")

	// ErrClassifierDegraded marks a classification that fell back to the safe tier.
	ErrClassifierDegraded = errors.New("classifier degraded")

	// ErrPersistence is returned when the ingest transaction failed and was rolled back.
	ErrPersistence = errors.New("persistence error")

	// ErrTimeout is returned when reservation or persistence ran out of time.
	ErrTimeout = errors.New("operation timed out")

	// ErrClusteringFailure is logged by the recompute loop and never reaches ingest callers.
	ErrClusteringFailure = errors.New("clustering failure")

	ErrVictimNotFound   = errors.New("victim not found")
	ErrHospitalNotFound = errors.New("hospital not found")
	ErrAlreadyAssigned  = errors.New("victim already assigned")
)
