package raster

import (
	"strings"
	"testing"

	"github.com/ivgtz/idrone-platform/internal/models"
)

func TestBuildCoverageMatrixLooksUpColors(t *testing.T) {
	img := &PPMImage{
		Cols: 2, Rows: 1,
		Pixels: []byte{255, 0, 0, 0, 255, 0},
	}
	dcf, err := ParseDCF(strings.NewReader("-50:255,0,0\n-80:0,255,0\n"))
	if err != nil {
		t.Fatalf("ParseDCF: %v", err)
	}

	matrix := BuildCoverageMatrix(img, dcf)
	if matrix.At(0, 0) != -50 {
		t.Errorf("matrix(0,0) = %v, want -50", matrix.At(0, 0))
	}
	if matrix.At(0, 1) != -80 {
		t.Errorf("matrix(0,1) = %v, want -80", matrix.At(0, 1))
	}
}

func TestCoveragePointsInterpolatesBounds(t *testing.T) {
	matrix := models.CoverageMatrix{
		Rows: 2, Cols: 2,
		DBm: [][]float64{
			{-50, -120},
			{-120, -50},
		},
	}
	bounds := Bounds{LatMax: 1.0, LonMax: 1.0, LatMin: 0.0, LonMin: 0.0}

	points := CoveragePoints(matrix, bounds, -60)
	if len(points) != 2 {
		t.Fatalf("expected 2 points above threshold, got %d", len(points))
	}

	top := points[0]
	if top.Coordinate.Lat != 1.0 || top.Coordinate.Lon != 0.0 {
		t.Errorf("top-left coordinate = %+v, want lat=1.0 lon=0.0", top.Coordinate)
	}
}

func TestParseBoundsLine(t *testing.T) {
	b, err := ParseBoundsLine("41.5|-3.5|41.0|-4.0")
	if err != nil {
		t.Fatalf("ParseBoundsLine: %v", err)
	}
	if b.LatMax != 41.5 || b.LonMax != -3.5 || b.LatMin != 41.0 || b.LonMin != -4.0 {
		t.Errorf("unexpected bounds: %+v", b)
	}
}

func TestParseBoundsLineInvalid(t *testing.T) {
	if _, err := ParseBoundsLine("not-a-bounds-line"); err == nil {
		t.Fatal("expected error for invalid bounds line")
	}
}
