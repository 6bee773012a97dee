package route

import (
	"testing"

	"github.com/ivgtz/idrone-platform/internal/models"
)

func TestDijkstraReachesAllConnectedVertices(t *testing.T) {
	vertices := []models.Coordinate{
		{Lat: 0, Lon: 0},
		{Lat: 0, Lon: 0.001},
		{Lat: 0, Lon: 0.002},
	}
	g := BuildKNNGraph(vertices, 2, 1000)

	result := Dijkstra(g, 0)
	if result.Dist[0] != 0 {
		t.Errorf("Dist[0] = %v, want 0", result.Dist[0])
	}
	if result.Dist[2] == infDist {
		t.Error("vertex 2 should be reachable from vertex 0")
	}

	path := result.ReconstructPath(0, 2)
	if len(path) == 0 || path[0] != 0 || path[len(path)-1] != 2 {
		t.Errorf("unexpected path: %v", path)
	}
}

func TestDijkstraUnreachableVertex(t *testing.T) {
	vertices := []models.Coordinate{
		{Lat: 0, Lon: 0},
		{Lat: 10, Lon: 10},
	}
	g := BuildKNNGraph(vertices, 1, 10) // too small a radius to connect them

	result := Dijkstra(g, 0)
	if result.Dist[1] != infDist {
		t.Errorf("Dist[1] = %v, want infDist for disconnected vertex", result.Dist[1])
	}
	if path := result.ReconstructPath(0, 1); path != nil {
		t.Errorf("expected nil path for unreachable vertex, got %v", path)
	}
}
