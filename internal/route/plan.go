package route

import (
	"fmt"
	"math"
	"time"

	"github.com/ivgtz/idrone-platform/internal/models"
)

// PlanParams bundles the tunables spec §4.2 reads from SignalServerConfig
// into the route planner's entry point.
type PlanParams struct {
	MaxNeighbor             int
	MaxNeighborDistanceM    float64
	MaxDistanceForNeighborM float64
	SpanCoefficient         int
	SolverTimeLimit         time.Duration
}

// ErrPlanningFailed marks any of the failure conditions from spec §4.2's
// "Failure semantics" paragraph: empty filtered targets, empty coverage
// points, no VRP solution, or an inconsistent matrix.
type ErrPlanningFailed struct {
	Reason string
}

func (e *ErrPlanningFailed) Error() string {
	return fmt.Sprintf("route planning failed: %s", e.Reason)
}

// Plan runs the full six-step routing pipeline from spec §4.2 and returns
// one RouteResult per vehicle. It never returns a partial result: any
// failure condition returns a nil slice and an *ErrPlanningFailed.
func Plan(data models.DroneData, coveragePoints []models.Coordinate, params PlanParams) ([]models.RouteResult, error) {
	if len(coveragePoints) == 0 {
		return nil, &ErrPlanningFailed{Reason: "empty coverage points"}
	}
	if !data.Valid() {
		return nil, &ErrPlanningFailed{Reason: "invalid drone data"}
	}

	targets, err := filterTargets(data, coveragePoints, params.MaxDistanceForNeighborM)
	if err != nil {
		return nil, err
	}

	vertices := append(append([]models.Coordinate{}, coveragePoints...), targets...)

	graph := BuildKNNGraph(vertices, params.MaxNeighbor, params.MaxNeighborDistanceM)

	matrix := BuildTargetDistanceMatrix(graph, targets)

	numDrones := data.NumDrones
	t := len(targets)
	maxLoad := int(math.Ceil(float64(t)/float64(numDrones))) + numDrones

	solution, ok := SolveVRP(matrix, numDrones, maxLoad, params.SpanCoefficient, params.SolverTimeLimit)
	if !ok {
		return nil, &ErrPlanningFailed{Reason: "no VRP solution"}
	}

	results := make([]models.RouteResult, numDrones)
	for d := 0; d < numDrones; d++ {
		path, err := expandPath(graph, targets, solution.Routes[d])
		if err != nil {
			return nil, err
		}
		results[d] = models.RouteResult{VehicleIndex: d, Path: path}
	}

	return results, nil
}

// filterTargets implements step 1: keep start positions unconditionally,
// keep the rest only if within maxDistanceForNeighbor of some coverage
// point, and abort if no target beyond the start positions survives.
func filterTargets(data models.DroneData, coveragePoints []models.Coordinate, maxDistanceForNeighbor float64) ([]models.Coordinate, error) {
	n := data.NumDrones
	all := data.PosTargets

	kept := make([]models.Coordinate, 0, len(all))
	kept = append(kept, all[:n]...)

	for i := n; i < len(all); i++ {
		if nearestCoverageDistance(all[i], coveragePoints) <= maxDistanceForNeighbor {
			kept = append(kept, all[i])
		}
	}

	if len(kept) <= n {
		return nil, &ErrPlanningFailed{Reason: "empty filtered targets"}
	}
	return kept, nil
}

func nearestCoverageDistance(c models.Coordinate, points []models.Coordinate) float64 {
	best := math.Inf(1)
	for _, p := range points {
		d := models.HaversineMeters(c, p)
		if d < best {
			best = d
		}
	}
	return best
}

// expandPath implements step 6: walk the VRP's target-index route,
// Dijkstra-expand each consecutive pair through the k-NN graph, and
// prepend/append the vehicle's origin so the path starts and ends there.
func expandPath(graph *Graph, targets []models.Coordinate, targetRoute []int) ([]models.Coordinate, error) {
	if len(targetRoute) < 2 {
		return nil, &ErrPlanningFailed{Reason: "inconsistent matrix: degenerate vehicle route"}
	}

	var path []models.Coordinate
	for i := 0; i+1 < len(targetRoute); i++ {
		srcVertex := graph.NearestVertex(targets[targetRoute[i]])
		dstVertex := graph.NearestVertex(targets[targetRoute[i+1]])

		result := Dijkstra(graph, srcVertex)
		segment := result.ReconstructPath(srcVertex, dstVertex)
		if segment == nil {
			return nil, &ErrPlanningFailed{Reason: "inconsistent matrix: unreachable path segment"}
		}

		for j, v := range segment {
			if i > 0 && j == 0 {
				continue // avoid duplicating the shared endpoint between segments
			}
			path = append(path, graph.Vertices[v])
		}
	}

	origin := targets[targetRoute[0]]
	full := make([]models.Coordinate, 0, len(path)+2)
	full = append(full, origin)
	full = append(full, path...)
	full = append(full, origin)
	return full, nil
}
