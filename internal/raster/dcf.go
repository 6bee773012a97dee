package raster

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ColorEntry maps one RGB triple to a dBm level.
type ColorEntry struct {
	DBm     float64
	R, G, B byte
}

// DCFTable is the parsed colour-to-dBm mapping from a DCF file.
type DCFTable struct {
	Entries []ColorEntry
}

// ParseDCF decodes a DCF colour table per spec §6.4: one `<dbm>:<r>,<g>,<b>`
// entry per line, leading whitespace permitted, blank lines ignored.
func ParseDCF(r io.Reader) (*DCFTable, error) {
	table := &DCFTable{}
	scanner := bufio.NewScanner(r)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		entry, err := parseDCFLine(line)
		if err != nil {
			return nil, fmt.Errorf("DCF line %d: %w", lineNo, err)
		}
		table.Entries = append(table.Entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading DCF table: %w", err)
	}
	return table, nil
}

func parseDCFLine(line string) (ColorEntry, error) {
	colonIdx := strings.IndexByte(line, ':')
	if colonIdx < 0 {
		return ColorEntry{}, fmt.Errorf("missing ':' in %q", line)
	}

	dBm, err := strconv.ParseFloat(line[:colonIdx], 64)
	if err != nil {
		return ColorEntry{}, fmt.Errorf("invalid dBm value in %q: %w", line, err)
	}

	parts := strings.Split(line[colonIdx+1:], ",")
	if len(parts) != 3 {
		return ColorEntry{}, fmt.Errorf("expected r,g,b in %q", line)
	}

	rgb := make([]byte, 3)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 0 || v > 255 {
			return ColorEntry{}, fmt.Errorf("invalid colour component %q in %q", p, line)
		}
		rgb[i] = byte(v)
	}

	return ColorEntry{DBm: dBm, R: rgb[0], G: rgb[1], B: rgb[2]}, nil
}

// FindColor returns the dBm value of the entry whose colour is within an
// L-infinity distance of 1 from (r, g, b), per spec's colour round-trip
// property. Returns ok=false if no entry matches.
func (t *DCFTable) FindColor(r, g, b byte) (dBm float64, ok bool) {
	for _, e := range t.Entries {
		if absDiff(e.R, r) <= 1 && absDiff(e.G, g) <= 1 && absDiff(e.B, b) <= 1 {
			return e.DBm, true
		}
	}
	return 0, false
}

func absDiff(a, b byte) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
