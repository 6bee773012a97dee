package droneengine

import (
	"sync"

	"github.com/ivgtz/idrone-platform/internal/models"
)

// CommandType is the block-marker carried alongside each buffered
// waypoint (§4.4, §6.2 "type_command").
type CommandType string

const (
	CommandAnonymous CommandType = ""
	CommandStart     CommandType = "START"
	CommandFinish    CommandType = "FINISH"
)

// Command is one buffered mission instruction for this vehicle: a
// waypoint plus the block marker it arrived with.
type Command struct {
	Type CommandType
	Item MissionCommand
}

// MissionCommand is the waypoint shape the supervisor decodes off the
// wire before handing it to an engine; kept independent of wireproto so
// this package doesn't need to import the codec.
type MissionCommand struct {
	Position     models.Coordinate
	AltitudeM    float64
	SpeedMS      float64
	FlyThrough   bool
	CameraAction models.CameraAction
}

// MissionItem maps a buffered command 1:1 onto a provider-native mission
// item (§4.3 execute-mission step 2).
func (c MissionCommand) MissionItem() models.MissionItem {
	return models.MissionItem{
		Position:          c.Position,
		RelativeAltitudeM: c.AltitudeM,
		SpeedMS:           c.SpeedMS,
		FlyThrough:        c.FlyThrough,
		CameraAction:      c.CameraAction,
	}
}

// Mailbox is the bounded command buffer a supervisor feeds and an
// engine's execute-mission worker drains, replacing the original's
// mutex + condition variable + atomic bool (§9 design note: "a
// mailbox-per-engine ... is a cleaner equivalent"). Commands accumulate
// in arrival order; the buffer is sealed exactly once by whichever of
// two signals fires first (§9: "preserve both entry points"):
//   - a buffered command carries CommandFinish ("last-FINISH" path), or
//   - MarkReady is called directly (the supervisor's START_ALL path).
// Once sealed, further pushes are dropped rather than appended, guarding
// against late messages the same way command_upload gating did.
type Mailbox struct {
	mu     sync.Mutex
	items  []Command
	sealed bool
	ready  chan struct{}
	once   sync.Once
}

// NewMailbox returns an empty, unsealed mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{ready: make(chan struct{})}
}

// Push appends cmd if the mailbox isn't sealed yet. A CommandFinish
// marker both appends the item and seals the mailbox. Returns false if
// the command was dropped because the mailbox was already sealed.
func (m *Mailbox) Push(cmd Command) bool {
	m.mu.Lock()
	if m.sealed {
		m.mu.Unlock()
		return false
	}
	m.items = append(m.items, cmd)
	seal := cmd.Type == CommandFinish
	m.mu.Unlock()

	if seal {
		m.seal()
	}
	return true
}

// MarkReady seals the mailbox without requiring a CommandFinish item,
// the START_ALL-triggered entry point (§9 design note). A no-op if the
// mailbox is already sealed.
func (m *Mailbox) MarkReady() {
	m.seal()
}

func (m *Mailbox) seal() {
	m.once.Do(func() {
		m.mu.Lock()
		m.sealed = true
		m.mu.Unlock()
		close(m.ready)
	})
}

// Ready returns a channel that closes once the mailbox is sealed.
func (m *Mailbox) Ready() <-chan struct{} {
	return m.ready
}

// Items returns a snapshot of every command buffered so far. Safe to
// call before or after sealing.
func (m *Mailbox) Items() []Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Command, len(m.items))
	copy(out, m.items)
	return out
}
