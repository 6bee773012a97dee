package wireproto

import (
	"bytes"
	"testing"

	"github.com/ivgtz/idrone-platform/internal/models"
)

func TestStatusRoundTrip(t *testing.T) {
	msg := NewStatus("EXECUTING_MISSION")

	payload, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded := Decode(payload)
	if decoded.Tag != TagStatus {
		t.Fatalf("Tag = %v, want %v", decoded.Tag, TagStatus)
	}
	if decoded.Status.TypeStatus != "EXECUTING_MISSION" {
		t.Errorf("TypeStatus = %q, want EXECUTING_MISSION", decoded.Status.TypeStatus)
	}
}

func TestDroneCommandRoundTrip(t *testing.T) {
	msg := NewDroneCommand("START", DroneCommandMission{
		Position:  models.Coordinate{Lat: 1.5, Lon: 2.5},
		AltitudeM: 30,
		SpeedMS:   5,
	})

	payload, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded := Decode(payload)
	if decoded.Tag != TagDroneCommand {
		t.Fatalf("Tag = %v, want %v", decoded.Tag, TagDroneCommand)
	}
	if decoded.DroneCommand.TypeCommand != "START" {
		t.Errorf("TypeCommand = %q, want START", decoded.DroneCommand.TypeCommand)
	}
	if decoded.DroneCommand.Command.Position.Lat != 1.5 {
		t.Errorf("Lat = %f, want 1.5", decoded.DroneCommand.Command.Position.Lat)
	}
}

func TestDecodeUnparseableYieldsUnknown(t *testing.T) {
	decoded := Decode([]byte("not json"))
	if decoded.Tag != TagUnknown {
		t.Errorf("Tag = %v, want %v for unparseable payload", decoded.Tag, TagUnknown)
	}
}

func TestDecodeMismatchedTagYieldsUnknown(t *testing.T) {
	decoded := Decode([]byte(`{"tag":"STATUS","command":{"command":"FINISH"}}`))
	if decoded.Tag != TagUnknown {
		t.Errorf("Tag = %v, want %v when declared tag doesn't match populated field", decoded.Tag, TagUnknown)
	}
}

func TestFrameRoundTrip(t *testing.T) {
	payloads := [][]byte{
		{},
		[]byte("x"),
		bytes.Repeat([]byte{0xAB}, 70000),
	}

	for _, p := range payloads {
		var buf bytes.Buffer
		if err := WriteFrame(&buf, p); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}

		got, err := ReadFrame(&buf)
		if err != nil {
			t.Fatalf("ReadFrame: %v", err)
		}
		if !bytes.Equal(got, p) {
			t.Errorf("round trip mismatch: got %d bytes, want %d bytes", len(got), len(p))
		}
	}
}

func TestReadFrameTruncated(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, []byte("hello")); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	truncated := bytes.NewReader(buf.Bytes()[:3])
	if _, err := ReadFrame(truncated); err == nil {
		t.Errorf("expected error reading truncated frame")
	}
}
