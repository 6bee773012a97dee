package raster

import (
	"fmt"

	"github.com/ivgtz/idrone-platform/internal/models"
)

// BuildCoverageMatrix converts a decoded PPM raster into a dBm matrix by
// looking up each pixel's colour in the DCF table. Pixels with no
// matching colour entry fall back to a very low dBm so they never clear
// a signal threshold.
func BuildCoverageMatrix(img *PPMImage, dcf *DCFTable) models.CoverageMatrix {
	const noSignalDBm = -999.0

	rows := make([][]float64, img.Rows)
	for row := 0; row < img.Rows; row++ {
		rows[row] = make([]float64, img.Cols)
		for col := 0; col < img.Cols; col++ {
			r, g, b := img.At(row, col)
			dBm, ok := dcf.FindColor(r, g, b)
			if !ok {
				dBm = noSignalDBm
			}
			rows[row][col] = dBm
		}
	}

	return models.CoverageMatrix{Rows: img.Rows, Cols: img.Cols, DBm: rows}
}

// Bounds are the geographic corners the RF tool reports on its first
// stdout line as "latMax|lonMax|latMin|lonMin".
type Bounds struct {
	LatMax, LonMax, LatMin, LonMin float64
}

// CoveragePoint is one pixel whose signal cleared the threshold, resolved
// to a geo-coordinate.
type CoveragePoint struct {
	Coordinate models.Coordinate
	DBm        float64
}

// CoveragePoints converts every matrix cell at or above thresholdDBm into
// a geo-coordinate, linearly interpolating pixel row/col against bounds
// per spec §3: "Pixels with dBm >= threshold become candidate coverage
// points at geo-coordinates interpolated linearly from bounds".
func CoveragePoints(matrix models.CoverageMatrix, bounds Bounds, thresholdDBm float64) []CoveragePoint {
	var points []CoveragePoint

	for row := 0; row < matrix.Rows; row++ {
		lat := interpolate(float64(row), 0, float64(matrix.Rows-1), bounds.LatMax, bounds.LatMin)
		for col := 0; col < matrix.Cols; col++ {
			dBm := matrix.At(row, col)
			if dBm < thresholdDBm {
				continue
			}
			lon := interpolate(float64(col), 0, float64(matrix.Cols-1), bounds.LonMin, bounds.LonMax)
			points = append(points, CoveragePoint{
				Coordinate: models.Coordinate{Lat: lat, Lon: lon},
				DBm:        dBm,
			})
		}
	}

	return points
}

func interpolate(v, vMin, vMax, outAtMin, outAtMax float64) float64 {
	if vMax == vMin {
		return outAtMin
	}
	frac := (v - vMin) / (vMax - vMin)
	return outAtMin + frac*(outAtMax-outAtMin)
}

// ParseBoundsLine parses the RF tool's first stdout line,
// "latMax|lonMax|latMin|lonMin", into a Bounds.
func ParseBoundsLine(line string) (Bounds, error) {
	var b Bounds
	n, err := fmt.Sscanf(line, "%g|%g|%g|%g", &b.LatMax, &b.LonMax, &b.LatMin, &b.LonMin)
	if err != nil || n != 4 {
		return Bounds{}, fmt.Errorf("parsing bounds line %q: %w", line, err)
	}
	return b, nil
}
