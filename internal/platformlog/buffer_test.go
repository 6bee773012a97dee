package platformlog

import "testing"

func TestBufferWriteParsesModulePrefix(t *testing.T) {
	b := New(10)

	n, err := b.Write([]byte("[Planner] computing routes\n"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != len("[Planner] computing routes\n") {
		t.Errorf("n = %d, want full length", n)
	}

	last := b.GetLast(1)
	if len(last) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(last))
	}
	if last[0].Module != "Planner" {
		t.Errorf("Module = %q, want Planner", last[0].Module)
	}
	if last[0].Message != "computing routes" {
		t.Errorf("Message = %q, want %q", last[0].Message, "computing routes")
	}
}

func TestBufferDetectsErrorLevel(t *testing.T) {
	b := New(10)
	b.Write([]byte("[Drone] upload Error: mission rejected\n"))

	last := b.GetLast(1)
	if last[0].Level != LevelError {
		t.Errorf("Level = %v, want %v", last[0].Level, LevelError)
	}
}

func TestBufferRingWraparound(t *testing.T) {
	b := New(3)
	for i := 0; i < 5; i++ {
		b.Add(LevelInfo, "test", "msg")
	}
	if b.Size() != 3 {
		t.Errorf("Size = %d, want 3", b.Size())
	}
	last := b.GetLast(3)
	if last[0].ID != 3 || last[2].ID != 5 {
		t.Errorf("unexpected IDs in ring after wraparound: %+v", last)
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := New(10)
	sub := b.Subscribe("s1", LevelInfo)

	b.Add(LevelInfo, "test", "hello")

	select {
	case entry := <-sub.Ch:
		if entry.Message != "hello" {
			t.Errorf("Message = %q, want hello", entry.Message)
		}
	default:
		t.Fatal("expected entry to be pushed to subscriber")
	}

	b.Unsubscribe("s1")
	if _, ok := <-sub.Ch; ok {
		t.Error("expected subscriber channel to be closed")
	}
}
