package recorder

import "fmt"

// NewCoverageSink returns a CSV sink matching the coverage-map format from
// spec §6.6: a "lat,lon,coverage" header with 6-decimal-digit coordinates.
func NewCoverageSink(path string) *CSVSink {
	return NewCSVSink(path, []string{"lat", "lon", "coverage"})
}

// WriteCoveragePoint appends one (lat, lon, dBm) row to a coverage sink.
func WriteCoveragePoint(sink *CSVSink, lat, lon, dBm float64) error {
	return sink.WriteRow([]string{
		fmt.Sprintf("%.6f", lat),
		fmt.Sprintf("%.6f", lon),
		fmt.Sprintf("%.6f", dBm),
	})
}
