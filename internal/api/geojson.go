package api

import (
	"github.com/mr1hm/go-triage-dispatch/internal/models"
)

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// toGeoJSON renders each hotspot as a point at its center. Map clients
// draw the zone as a circle of radius_m metres.
func toGeoJSON(clusters []models.Cluster) FeatureCollection {
	features := make([]Feature, 0, len(clusters))

	for _, cl := range clusters {
		features = append(features, Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: []float64{cl.Center.Lng, cl.Center.Lat},
			},
			Properties: map[string]any{
				"id":           cl.ID,
				"count":        cl.Count,
				"avg_severity": cl.AvgSeverity,
				"radius_m":     cl.Radius,
			},
		})
	}

	return FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}
