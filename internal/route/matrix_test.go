package route

import (
	"testing"

	"github.com/ivgtz/idrone-platform/internal/models"
)

func TestBuildTargetDistanceMatrixScalesToMillimeters(t *testing.T) {
	targets := []models.Coordinate{
		{Lat: 0, Lon: 0},
		{Lat: 0, Lon: 0.001},
	}
	g := BuildKNNGraph(targets, 2, 10000)

	matrix := BuildTargetDistanceMatrix(g, targets)

	if matrix.Costs[0][0] != 0 {
		t.Errorf("self-distance should be 0, got %d", matrix.Costs[0][0])
	}
	if matrix.Costs[0][1] <= 0 {
		t.Errorf("expected positive distance between distinct targets, got %d", matrix.Costs[0][1])
	}
	if matrix.Costs[0][1] != matrix.Costs[1][0] {
		t.Errorf("matrix should be symmetric on a symmetrized graph: %d != %d", matrix.Costs[0][1], matrix.Costs[1][0])
	}
}

func TestBuildTargetDistanceMatrixUnreachablePenalty(t *testing.T) {
	targets := []models.Coordinate{
		{Lat: 0, Lon: 0},
		{Lat: 50, Lon: 50},
	}
	g := BuildKNNGraph(targets, 1, 10) // too small to connect

	matrix := BuildTargetDistanceMatrix(g, targets)
	if matrix.Costs[0][1] != unreachablePenaltyMM {
		t.Errorf("Costs[0][1] = %d, want unreachable penalty %d", matrix.Costs[0][1], unreachablePenaltyMM)
	}
}
