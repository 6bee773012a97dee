package route

import (
	"testing"

	"github.com/ivgtz/idrone-platform/internal/models"
)

func TestBuildKNNGraphSymmetrizes(t *testing.T) {
	vertices := []models.Coordinate{
		{Lat: 0, Lon: 0},
		{Lat: 0, Lon: 0.0001},
		{Lat: 0, Lon: 0.0002},
		{Lat: 1, Lon: 1}, // far outlier
	}

	g := BuildKNNGraph(vertices, 1, 50)

	foundBack := false
	for _, e := range g.Neighbors(1) {
		if e.to == 0 {
			foundBack = true
		}
	}
	if !foundBack {
		t.Error("expected symmetrized edge back to vertex 0")
	}

	if len(g.Neighbors(3)) != 0 {
		t.Errorf("outlier vertex should have no neighbors within range, got %d", len(g.Neighbors(3)))
	}
}

func TestNearestVertex(t *testing.T) {
	vertices := []models.Coordinate{
		{Lat: 0, Lon: 0},
		{Lat: 10, Lon: 10},
	}
	g := &Graph{Vertices: vertices, adjacency: make([][]edge, 2)}

	if got := g.NearestVertex(models.Coordinate{Lat: 0.001, Lon: 0.001}); got != 0 {
		t.Errorf("NearestVertex = %d, want 0", got)
	}
	if got := g.NearestVertex(models.Coordinate{Lat: 9.999, Lon: 9.999}); got != 1 {
		t.Errorf("NearestVertex = %d, want 1", got)
	}
}
