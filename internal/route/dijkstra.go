package route

import "container/heap"

// DijkstraResult holds single-source shortest-path distances and
// predecessors over a Graph, in meters.
type DijkstraResult struct {
	Dist []float64
	Prev []int
}

// Dijkstra runs single-source Dijkstra from source over g using a min-heap,
// per spec §4.2 step 4. Unreached vertices keep infDist (1e18) as their
// distance and -1 as their predecessor.
func Dijkstra(g *Graph, source int) DijkstraResult {
	n := len(g.Vertices)
	dist := make([]float64, n)
	prev := make([]int, n)
	visited := make([]bool, n)
	for i := range dist {
		dist[i] = infDist
		prev[i] = -1
	}
	dist[source] = 0

	pq := &priorityQueue{{vertex: source, dist: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		item := heap.Pop(pq).(pqItem)
		u := item.vertex
		if visited[u] {
			continue
		}
		visited[u] = true

		for _, e := range g.Neighbors(u) {
			if visited[e.to] {
				continue
			}
			alt := dist[u] + e.weight
			if alt < dist[e.to] {
				dist[e.to] = alt
				prev[e.to] = u
				heap.Push(pq, pqItem{vertex: e.to, dist: alt})
			}
		}
	}

	return DijkstraResult{Dist: dist, Prev: prev}
}

// ReconstructPath walks prev back from target to source, returning the
// vertex sequence source..target inclusive. Returns nil if target is
// unreached.
func (r DijkstraResult) ReconstructPath(source, target int) []int {
	if r.Dist[target] == infDist && source != target {
		return nil
	}

	var path []int
	for v := target; v != -1; v = r.Prev[v] {
		path = append([]int{v}, path...)
		if v == source {
			return path
		}
	}
	return nil
}

const infDist = 1e18

type pqItem struct {
	vertex int
	dist   float64
}

type priorityQueue []pqItem

func (pq priorityQueue) Len() int            { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool  { return pq[i].dist < pq[j].dist }
func (pq priorityQueue) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x interface{}) { *pq = append(*pq, x.(pqItem)) }
func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}
