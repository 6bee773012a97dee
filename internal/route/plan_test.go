package route

import (
	"testing"
	"time"

	"github.com/ivgtz/idrone-platform/internal/models"
)

func TestPlanHappyPathTwoDronesThreeTargets(t *testing.T) {
	data := models.DroneData{
		NumDrones: 2,
		PosTargets: []models.Coordinate{
			{Lat: 0, Lon: 0},
			{Lat: 0, Lon: 0.001},
			{Lat: 0.0005, Lon: 0.0005},
		},
	}
	coveragePoints := []models.Coordinate{
		{Lat: 0, Lon: 0},
		{Lat: 0, Lon: 0.0005},
		{Lat: 0, Lon: 0.001},
		{Lat: 0.0005, Lon: 0.0005},
	}
	params := PlanParams{
		MaxNeighbor:             4,
		MaxNeighborDistanceM:    500,
		MaxDistanceForNeighborM: 500,
		SpanCoefficient:         100,
		SolverTimeLimit:         200 * time.Millisecond,
	}

	results, err := Plan(data, coveragePoints, params)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 routes, got %d", len(results))
	}
	for _, r := range results {
		if r.Empty() {
			t.Errorf("route for vehicle %d should not be empty", r.VehicleIndex)
		}
		if r.Path[0] != r.Path[len(r.Path)-1] {
			t.Errorf("vehicle %d path should start and end at its origin", r.VehicleIndex)
		}
	}
}

func TestPlanFailsOnEmptyCoveragePoints(t *testing.T) {
	data := models.DroneData{
		NumDrones:  1,
		PosTargets: []models.Coordinate{{Lat: 0, Lon: 0}, {Lat: 1, Lon: 1}},
	}
	_, err := Plan(data, nil, PlanParams{MaxNeighbor: 2, MaxNeighborDistanceM: 100, MaxDistanceForNeighborM: 100, SolverTimeLimit: 10 * time.Millisecond})
	if err == nil {
		t.Fatal("expected error for empty coverage points")
	}
}

func TestPlanFailsWhenNoTargetsSurviveFiltering(t *testing.T) {
	data := models.DroneData{
		NumDrones: 1,
		PosTargets: []models.Coordinate{
			{Lat: 0, Lon: 0},
			{Lat: 50, Lon: 50}, // far from any coverage point
		},
	}
	coveragePoints := []models.Coordinate{{Lat: 0, Lon: 0}}

	_, err := Plan(data, coveragePoints, PlanParams{
		MaxNeighbor:             2,
		MaxNeighborDistanceM:    1000,
		MaxDistanceForNeighborM: 100,
		SolverTimeLimit:         10 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("expected error when no targets survive filtering")
	}
}
