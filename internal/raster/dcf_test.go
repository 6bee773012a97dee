package raster

import (
	"strings"
	"testing"
)

func TestParseDCFBasic(t *testing.T) {
	input := "  -50:255,0,0\n-70:0,255,0\n\n-90:0,0,255\n"

	table, err := ParseDCF(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseDCF: %v", err)
	}
	if len(table.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(table.Entries))
	}
	if table.Entries[0].DBm != -50 || table.Entries[0].R != 255 {
		t.Errorf("unexpected first entry: %+v", table.Entries[0])
	}
}

func TestParseDCFRejectsMalformedLine(t *testing.T) {
	if _, err := ParseDCF(strings.NewReader("not-a-valid-line")); err == nil {
		t.Fatal("expected error for malformed DCF line")
	}
}

func TestFindColorWithinTolerance(t *testing.T) {
	table, err := ParseDCF(strings.NewReader("-60:100,100,100\n"))
	if err != nil {
		t.Fatalf("ParseDCF: %v", err)
	}

	dBm, ok := table.FindColor(101, 99, 100)
	if !ok || dBm != -60 {
		t.Errorf("FindColor within tolerance = (%v, %v), want (-60, true)", dBm, ok)
	}

	_, ok = table.FindColor(105, 100, 100)
	if ok {
		t.Error("FindColor outside tolerance should not match")
	}
}
