package route

import "github.com/ivgtz/idrone-platform/internal/models"

// unreachablePenaltyMM is used in the target distance matrix in place of
// an unreachable pair, large enough that the VRP solver will always
// prefer any reachable alternative.
const unreachablePenaltyMM = int64(1) << 40

// TargetDistanceMatrix is the T×T integer-millimeter cost matrix the VRP
// solver consumes, per spec §4.2 step 4.
type TargetDistanceMatrix struct {
	Costs [][]int64
}

// BuildTargetDistanceMatrix resolves each target to its nearest merged
// graph vertex, runs Dijkstra from each, and records integer-millimeter
// distances between every pair of targets.
func BuildTargetDistanceMatrix(g *Graph, targets []models.Coordinate) TargetDistanceMatrix {
	t := len(targets)
	representative := make([]int, t)
	for i, target := range targets {
		representative[i] = g.NearestVertex(target)
	}

	results := make([]DijkstraResult, t)
	for i, v := range representative {
		results[i] = Dijkstra(g, v)
	}

	costs := make([][]int64, t)
	for i := range costs {
		costs[i] = make([]int64, t)
		for j := range costs[i] {
			if i == j {
				costs[i][j] = 0
				continue
			}
			d := results[i].Dist[representative[j]]
			if d >= infDist {
				costs[i][j] = unreachablePenaltyMM
				continue
			}
			costs[i][j] = int64(d * 1000)
		}
	}

	return TargetDistanceMatrix{Costs: costs}
}
