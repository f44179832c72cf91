// Package hotspot groups unassigned victims into spatial zones.
//
// The policy is density based (DBSCAN) with a haversine neighbourhood
// radius and a fixed minimum zone size of three victims. Points that are
// not density-reachable from any core point are noise and are dropped.
package hotspot

import (
	"context"
	"math"

	"github.com/mr1hm/go-triage-dispatch/internal/geo"
	"github.com/mr1hm/go-triage-dispatch/internal/models"
)

// MinZoneSize is the smallest crowd that forms a zone. A point's own
// position counts toward its neighbourhood.
const MinZoneSize = 3

const (
	DefaultRadiusMeters = 500.0
	DefaultBufferMeters = 20.0
)

type Params struct {
	RadiusMeters float64 // neighbourhood radius
	BufferMeters float64 // added to each cluster's drawn radius
}

func DefaultParams() Params {
	return Params{RadiusMeters: DefaultRadiusMeters, BufferMeters: DefaultBufferMeters}
}

type Point struct {
	Location models.Location
	Tier     models.Tier
}

func PointsFromVictims(victims []models.Victim) []Point {
	points := make([]Point, 0, len(victims))
	for _, v := range victims {
		points = append(points, Point{Location: v.Location, Tier: v.TriageLevel})
	}
	return points
}

const (
	unvisited = 0
	noise     = -1
)

// Cluster runs DBSCAN over points. Output order and IDs (1..n) follow the
// input order, so identical input yields identical output. It returns
// ctx.Err() if ctx is cancelled part-way.
func Cluster(ctx context.Context, points []Point, params Params) ([]models.Cluster, error) {
	if len(points) < MinZoneSize {
		return []models.Cluster{}, nil
	}

	labels := make([]int, len(points))
	next := 0

	for i := range points {
		if labels[i] != unvisited {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		neighbours := regionQuery(points, i, params.RadiusMeters)
		if len(neighbours) < MinZoneSize {
			labels[i] = noise
			continue
		}

		next++
		labels[i] = next

		queue := neighbours
		for len(queue) > 0 {
			j := queue[0]
			queue = queue[1:]

			if labels[j] == noise {
				// border point
				labels[j] = next
			}
			if labels[j] != unvisited {
				continue
			}
			labels[j] = next

			if jn := regionQuery(points, j, params.RadiusMeters); len(jn) >= MinZoneSize {
				queue = append(queue, jn...)
			}
		}
	}

	return summarize(points, labels, next, params.BufferMeters), nil
}

func regionQuery(points []Point, i int, radius float64) []int {
	var out []int
	for j := range points {
		if geo.HaversineMeters(points[i].Location, points[j].Location) <= radius {
			out = append(out, j)
		}
	}
	return out
}

func summarize(points []Point, labels []int, n int, buffer float64) []models.Cluster {
	members := make([][]int, n+1)
	for i, l := range labels {
		if l > 0 {
			members[l] = append(members[l], i)
		}
	}

	clusters := make([]models.Cluster, 0, n)
	for id := 1; id <= n; id++ {
		idx := members[id]
		locs := make([]models.Location, len(idx))
		var tierSum float64
		for k, i := range idx {
			locs[k] = points[i].Location
			tierSum += float64(points[i].Tier)
		}

		center := geo.Centroid(locs)
		maxDist := 0.0
		for _, l := range locs {
			maxDist = math.Max(maxDist, geo.HaversineMeters(center, l))
		}

		clusters = append(clusters, models.Cluster{
			ID:          id,
			Center:      center,
			Count:       len(idx),
			AvgSeverity: tierSum / float64(len(idx)),
			Radius:      maxDist + buffer,
		})
	}
	return clusters
}
