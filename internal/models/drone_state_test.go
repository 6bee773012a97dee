package models

import (
	"encoding/json"
	"testing"
)

func TestTelemetrySnapshotJSON(t *testing.T) {
	snap := &TelemetrySnapshot{
		VehicleID:         "vehicle-0",
		TimestampUnixMS:   1709882231000,
		Position:          Coordinate{Lat: 22.5431, Lon: 114.0579},
		RelativeAltitudeM: 45.0,
		BatteryPercent:    85,
		Armed:             true,
		VelocityNorthMS:   10.5,
		VelocityEastMS:    0.0,
		VelocityDownMS:    -0.5,
		FlightMode:        "AUTO",
	}

	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("Failed to marshal TelemetrySnapshot: %v", err)
	}

	var decoded TelemetrySnapshot
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal TelemetrySnapshot: %v", err)
	}

	if decoded.VehicleID != snap.VehicleID {
		t.Errorf("VehicleID mismatch: got %s, want %s", decoded.VehicleID, snap.VehicleID)
	}
	if decoded.Position.Lat != snap.Position.Lat {
		t.Errorf("Lat mismatch: got %f, want %f", decoded.Position.Lat, snap.Position.Lat)
	}
	if decoded.Armed != snap.Armed {
		t.Errorf("Armed mismatch: got %v, want %v", decoded.Armed, snap.Armed)
	}
}

func TestNewTelemetrySnapshot(t *testing.T) {
	snap := NewTelemetrySnapshot("vehicle-1", 1000)

	if snap.VehicleID != "vehicle-1" {
		t.Errorf("VehicleID mismatch: got %s, want vehicle-1", snap.VehicleID)
	}
	if snap.FlightMode != "UNKNOWN" {
		t.Errorf("FlightMode mismatch: got %s, want UNKNOWN", snap.FlightMode)
	}
}
