package models

import "time"

type Hospital struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	Location      Location `json:"location"`
	TotalBeds     int      `json:"total_beds"`
	AvailableBeds int      `json:"available_beds"`
	Specialty     string   `json:"specialty,omitempty"`
}

func (h *Hospital) HasCapacity() bool {
	return h.AvailableBeds > 0
}

// Cluster is one hotspot in a recompute snapshot. IDs are only meaningful
// inside the snapshot that produced them.
type Cluster struct {
	ID          int      `json:"id"`
	Center      Location `json:"center"`
	Count       int      `json:"count"`
	AvgSeverity float64  `json:"avg_severity"`
	Radius      float64  `json:"radius"` // metres
}

type ClusterSnapshot struct {
	Clusters   []Cluster `json:"clusters"`
	Unassigned int       `json:"unassigned"`
	ComputedAt time.Time `json:"computed_at"`
}
