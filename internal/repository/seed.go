package repository

import "github.com/mr1hm/go-triage-dispatch/internal/models"

// DefaultHospitals is the bootstrap set for the Chennai deployment.
func DefaultHospitals() []models.Hospital {
	return []models.Hospital{
		{Name: "Rajiv Gandhi Govt General Hospital", Location: models.Location{Lat: 13.0818, Lng: 80.2755}, TotalBeds: 500, AvailableBeds: 150, Specialty: "General Emergency"},
		{Name: "Apollo Main Hospital, Greams Road", Location: models.Location{Lat: 13.0607, Lng: 80.2512}, TotalBeds: 200, AvailableBeds: 45, Specialty: "Trauma/Cardiac"},
		{Name: "SIMS Hospital, Vadapalani", Location: models.Location{Lat: 13.0500, Lng: 80.2121}, TotalBeds: 150, AvailableBeds: 30, Specialty: "Multi-Specialty"},
		{Name: "Fortis Malar Hospital, Adyar", Location: models.Location{Lat: 13.0067, Lng: 80.2578}, TotalBeds: 120, AvailableBeds: 20, Specialty: "Cardiac/Neurology"},
		{Name: "MIOT International, Manapakkam", Location: models.Location{Lat: 13.0205, Lng: 80.1865}, TotalBeds: 250, AvailableBeds: 60, Specialty: "Orthopedic/Trauma"},
		{Name: "Stanley Medical College Hospital", Location: models.Location{Lat: 13.1054, Lng: 80.2872}, TotalBeds: 400, AvailableBeds: 100, Specialty: "General/Burn Care"},
	}
}
