package route

import (
	"math"
	"time"
)

// VRPSolution is one route per vehicle, each a sequence of target indices
// starting and ending at that vehicle's depot target.
type VRPSolution struct {
	Routes [][]int
}

// defaultSpanCostCoefficient matches the "SetGlobalSpanCostCoefficient(100)"
// call on the load dimension from spec §4.2 step 5: the objective is the
// sum of per-vehicle arc costs plus the coefficient times the spread
// between the busiest and idlest vehicle's load (stop count).
const defaultSpanCostCoefficient = 100

// SolveVRP assigns every non-depot target to exactly one vehicle route,
// minimizing total arc cost plus a load-balance penalty, within
// timeLimit. spanCoefficient <= 0 falls back to the spec's default of
// 100. Returns ok=false if the matrix is empty, there are no vehicles, or
// construction cannot place every customer within maxLoad. Unreachable
// pairs carry a finite penalty cost (unreachablePenaltyMM) and do not by
// themselves cause ok=false.
//
// OR-tools' RoutingModel (PATH_CHEAPEST_ARC construction +
// GUIDED_LOCAL_SEARCH metaheuristic) has no Go binding anywhere in the
// retrieved example pack, so this hand-rolls the same two-phase shape:
// cheapest-arc greedy construction, then guided local search over
// relocate/swap neighborhoods, bounded by timeLimit.
func SolveVRP(matrix TargetDistanceMatrix, numVehicles int, maxLoad int, spanCoefficient int, timeLimit time.Duration) (VRPSolution, bool) {
	if spanCoefficient <= 0 {
		spanCoefficient = defaultSpanCostCoefficient
	}
	t := len(matrix.Costs)
	if t == 0 || numVehicles == 0 {
		return VRPSolution{}, false
	}

	depots := make([]int, numVehicles)
	isDepot := make([]bool, t)
	for d := 0; d < numVehicles; d++ {
		depots[d] = d % t
		isDepot[depots[d]] = true
	}

	customers := make([]int, 0, t)
	for i := 0; i < t; i++ {
		if !isDepot[i] {
			customers = append(customers, i)
		}
	}

	solution, ok := cheapestArcConstruction(matrix, depots, customers, maxLoad)
	if !ok {
		return VRPSolution{}, false
	}

	deadline := time.Now().Add(timeLimit)
	solution = guidedLocalSearch(matrix, solution, maxLoad, spanCoefficient, deadline)

	return solution, true
}

// cheapestArcConstruction builds one route per vehicle by repeatedly
// inserting the globally cheapest feasible (vehicle, customer, position)
// triple, the greedy analog of PATH_CHEAPEST_ARC.
func cheapestArcConstruction(matrix TargetDistanceMatrix, depots, customers []int, maxLoad int) (VRPSolution, bool) {
	routes := make([][]int, len(depots))
	for d, depot := range depots {
		routes[d] = []int{depot, depot}
	}

	remaining := make(map[int]bool, len(customers))
	for _, c := range customers {
		remaining[c] = true
	}

	for len(remaining) > 0 {
		bestVehicle, bestPos, bestCustomer := -1, -1, -1
		bestDelta := int64(math.MaxInt64)

		for d, route := range routes {
			if len(route)-1 > maxLoad {
				continue
			}
			for customer := range remaining {
				for pos := 0; pos < len(route)-1; pos++ {
					a, b := route[pos], route[pos+1]
					delta := matrix.Costs[a][customer] + matrix.Costs[customer][b] - matrix.Costs[a][b]
					if delta < bestDelta {
						bestDelta = delta
						bestVehicle = d
						bestPos = pos + 1
						bestCustomer = customer
					}
				}
			}
		}

		if bestVehicle == -1 {
			return VRPSolution{}, false
		}

		route := routes[bestVehicle]
		newRoute := make([]int, 0, len(route)+1)
		newRoute = append(newRoute, route[:bestPos]...)
		newRoute = append(newRoute, bestCustomer)
		newRoute = append(newRoute, route[bestPos:]...)
		routes[bestVehicle] = newRoute

		delete(remaining, bestCustomer)
	}

	return VRPSolution{Routes: routes}, true
}

// guidedLocalSearch improves solution via relocate/swap moves until no
// improving move exists, then penalizes the solution's most expensive
// edge and repeats, keeping the best true-cost solution seen, until
// deadline.
func guidedLocalSearch(matrix TargetDistanceMatrix, solution VRPSolution, maxLoad, spanCoefficient int, deadline time.Time) VRPSolution {
	penalties := make(map[[2]int]int64)

	best := cloneSolution(solution)
	bestCost := solutionCost(matrix, best, spanCoefficient)

	current := cloneSolution(solution)

	for time.Now().Before(deadline) {
		improved := localSearchToOptimum(matrix, current, maxLoad, penalties, deadline)
		current = improved

		cost := solutionCost(matrix, current, spanCoefficient)
		if cost < bestCost {
			bestCost = cost
			best = cloneSolution(current)
		}

		penalizeWorstEdge(matrix, current, penalties)
	}

	return best
}

// localSearchToOptimum repeatedly applies the best-improving relocate or
// swap move (under penalty-augmented cost) until none improves or the
// deadline passes.
func localSearchToOptimum(matrix TargetDistanceMatrix, solution VRPSolution, maxLoad int, penalties map[[2]int]int64, deadline time.Time) VRPSolution {
	current := cloneSolution(solution)

	for time.Now().Before(deadline) {
		improvedRelocate, deltaR := tryBestRelocate(matrix, current, maxLoad, penalties)
		improvedSwap, deltaS := tryBestSwap(matrix, current, penalties)

		switch {
		case improvedRelocate != nil && (improvedSwap == nil || deltaR <= deltaS):
			current = *improvedRelocate
		case improvedSwap != nil:
			current = *improvedSwap
		default:
			return current
		}
	}
	return current
}

func augmentedCost(matrix TargetDistanceMatrix, penalties map[[2]int]int64, a, b int) int64 {
	cost := matrix.Costs[a][b]
	if p, ok := penalties[[2]int{a, b}]; ok {
		cost += p
	}
	return cost
}

// tryBestRelocate finds the best single-customer move from one position
// in the solution to another (possibly in a different route) that
// reduces augmented cost.
func tryBestRelocate(matrix TargetDistanceMatrix, solution VRPSolution, maxLoad int, penalties map[[2]int]int64) (*VRPSolution, int64) {
	var best *VRPSolution
	bestDelta := int64(0)

	for srcRoute := range solution.Routes {
		route := solution.Routes[srcRoute]
		for srcPos := 1; srcPos < len(route)-1; srcPos++ {
			customer := route[srcPos]
			prevNode, nextNode := route[srcPos-1], route[srcPos+1]
			removeGain := augmentedCost(matrix, penalties, prevNode, customer) +
				augmentedCost(matrix, penalties, customer, nextNode) -
				augmentedCost(matrix, penalties, prevNode, nextNode)

			for dstRoute := range solution.Routes {
				if dstRoute == srcRoute {
					continue
				}
				dst := solution.Routes[dstRoute]
				if len(dst)-1 > maxLoad {
					continue
				}
				for dstPos := 0; dstPos < len(dst)-1; dstPos++ {
					a, b := dst[dstPos], dst[dstPos+1]
					insertCost := augmentedCost(matrix, penalties, a, customer) +
						augmentedCost(matrix, penalties, customer, b) -
						augmentedCost(matrix, penalties, a, b)

					delta := insertCost - removeGain
					if delta < bestDelta {
						bestDelta = delta
						candidate := cloneSolution(solution)
						candidate.Routes[srcRoute] = removeAt(candidate.Routes[srcRoute], srcPos)
						candidate.Routes[dstRoute] = insertAt(candidate.Routes[dstRoute], dstPos+1, customer)
						best = &candidate
					}
				}
			}
		}
	}

	return best, bestDelta
}

// tryBestSwap finds the best pairwise exchange of two customers (in the
// same or different routes) that reduces augmented cost.
func tryBestSwap(matrix TargetDistanceMatrix, solution VRPSolution, penalties map[[2]int]int64) (*VRPSolution, int64) {
	var best *VRPSolution
	bestDelta := int64(0)

	type pos struct{ route, idx int }
	var positions []pos
	for r, route := range solution.Routes {
		for i := 1; i < len(route)-1; i++ {
			positions = append(positions, pos{r, i})
		}
	}

	for i := 0; i < len(positions); i++ {
		for j := i + 1; j < len(positions); j++ {
			p1, p2 := positions[i], positions[j]
			if p1.route == p2.route && p1.idx == p2.idx {
				continue
			}

			r1, r2 := solution.Routes[p1.route], solution.Routes[p2.route]
			c1, c2 := r1[p1.idx], r2[p2.idx]
			if c1 == c2 {
				continue
			}

			before := edgeCostAround(matrix, penalties, r1, p1.idx) + edgeCostAround(matrix, penalties, r2, p2.idx)

			candidate := cloneSolution(solution)
			candidate.Routes[p1.route][p1.idx] = c2
			candidate.Routes[p2.route][p2.idx] = c1

			after := edgeCostAround(matrix, penalties, candidate.Routes[p1.route], p1.idx) +
				edgeCostAround(matrix, penalties, candidate.Routes[p2.route], p2.idx)

			delta := after - before
			if delta < bestDelta {
				bestDelta = delta
				best = &candidate
			}
		}
	}

	return best, bestDelta
}

func edgeCostAround(matrix TargetDistanceMatrix, penalties map[[2]int]int64, route []int, idx int) int64 {
	return augmentedCost(matrix, penalties, route[idx-1], route[idx]) +
		augmentedCost(matrix, penalties, route[idx], route[idx+1])
}

func removeAt(route []int, idx int) []int {
	out := make([]int, 0, len(route)-1)
	out = append(out, route[:idx]...)
	out = append(out, route[idx+1:]...)
	return out
}

func insertAt(route []int, idx, value int) []int {
	out := make([]int, 0, len(route)+1)
	out = append(out, route[:idx]...)
	out = append(out, value)
	out = append(out, route[idx:]...)
	return out
}

func cloneSolution(s VRPSolution) VRPSolution {
	routes := make([][]int, len(s.Routes))
	for i, r := range s.Routes {
		routes[i] = append([]int(nil), r...)
	}
	return VRPSolution{Routes: routes}
}

// solutionCost is the true (unpenalized) objective: sum of arc costs plus
// the span-balance penalty across per-vehicle load counts.
func solutionCost(matrix TargetDistanceMatrix, s VRPSolution, spanCoefficient int) int64 {
	var total int64
	minLoad, maxLoad := math.MaxInt64, 0

	for _, route := range s.Routes {
		for i := 0; i+1 < len(route); i++ {
			total += matrix.Costs[route[i]][route[i+1]]
		}
		load := len(route) - 2
		if load < minLoad {
			minLoad = load
		}
		if load > maxLoad {
			maxLoad = load
		}
	}

	span := int64(maxLoad - minLoad)
	return total + span*int64(spanCoefficient)
}

// penalizeWorstEdge increases the penalty on the solution's highest-cost
// edge (by cost/(1+current penalty), the standard GLS utility function),
// nudging the next local search pass away from it.
func penalizeWorstEdge(matrix TargetDistanceMatrix, s VRPSolution, penalties map[[2]int]int64) {
	var worstA, worstB int
	worstUtility := -1.0
	found := false

	for _, route := range s.Routes {
		for i := 0; i+1 < len(route); i++ {
			a, b := route[i], route[i+1]
			cost := float64(matrix.Costs[a][b])
			utility := cost / (1.0 + float64(penalties[[2]int{a, b}]))
			if utility > worstUtility {
				worstUtility = utility
				worstA, worstB = a, b
				found = true
			}
		}
	}

	if found {
		penalties[[2]int{worstA, worstB}]++
	}
}
