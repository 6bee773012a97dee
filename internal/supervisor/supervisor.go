// Package supervisor implements the Multi-Drone Supervisor from spec
// §4.4: it owns the fleet of per-vehicle droneengine.Engine instances and
// the release latch they share, routes incoming drone commands across
// START/FINISH blocks to the right engine, and aggregates completion and
// first-error across the fleet.
package supervisor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/ivgtz/idrone-platform/internal/droneengine"
	"github.com/ivgtz/idrone-platform/internal/recorder"
)

// DroneMessage is the decoded PLD→Drone wire message this package routes
// (mirrors wireproto.DroneCommandPayload without importing the codec).
type DroneMessage struct {
	TypeCommand string
	Command     droneengine.MissionCommand
}

// Supervisor owns N engines and the shared release latch for the
// duration of one mission (§3 "Lifecycle & ownership").
type Supervisor struct {
	engines   []*droneengine.Engine
	recorders []*recorder.Recorder
	latch     *droneengine.ReleaseLatch

	onAllComplete func()
	onError       func(vehicleID string, err error)

	dispatchMu   sync.Mutex
	currentIndex int

	completed    atomic.Int32
	errOnce      sync.Once
	errored      atomic.Bool
}

// New returns a Supervisor driving engines, sharing latch across them.
// onAllComplete fires once every engine has completed; onError fires at
// most once, for whichever engine errors first (§4.4 "first error wins").
func New(engines []*droneengine.Engine, recorders []*recorder.Recorder, latch *droneengine.ReleaseLatch, onAllComplete func(), onError func(string, error)) *Supervisor {
	return &Supervisor{
		engines:       engines,
		recorders:     recorders,
		latch:         latch,
		onAllComplete: onAllComplete,
		onError:       onError,
	}
}

// StartAll spawns one worker goroutine per engine running its execute
// loop (§4.4 "spawn a worker thread per engine"). It does not itself trip
// the release latch — that only happens via a DispatchCommand carrying
// type_command == "START_ALL" (§4.4), which may arrive on a different
// goroutine than this one. StartAll returns once every engine's Run has
// returned. Completion and error aggregation happen in OnDroneComplete
// and OnDroneError, which the engines' callbacks are wired to when the
// engines are built.
func (s *Supervisor) StartAll(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for i, e := range s.engines {
		i, e := i, e
		g.Go(func() error {
			if err := e.Run(gctx); err != nil {
				return fmt.Errorf("vehicle %d: %w", i, err)
			}
			return nil
		})
	}

	return g.Wait()
}

// DispatchCommand implements spec §4.4's routing table. It must be
// called from a single goroutine (the I/O thread, per §4.4 "Command
// dispatch is strictly single-threaded") so the rotating index is
// consistent without locking engine state, though the method itself
// still takes a lock to protect currentIndex against test concurrency.
func (s *Supervisor) DispatchCommand(msg DroneMessage) {
	switch msg.TypeCommand {
	case "START_ALL":
		for _, e := range s.engines {
			e.MarkCommandsReady()
		}
		s.latch.Release()

	case "START":
		s.dispatchMu.Lock()
		s.currentIndex = (s.currentIndex + 1) % len(s.engines)
		idx := s.currentIndex
		s.dispatchMu.Unlock()
		s.forward(idx, msg)

	case "", "FINISH":
		s.dispatchMu.Lock()
		idx := s.currentIndex
		s.dispatchMu.Unlock()
		s.forward(idx, msg)

	default:
		s.OnDroneError(unroutedDroneID, fmt.Errorf("supervisor: unrecognized command type %q", msg.TypeCommand))
	}
}

// unroutedDroneID stands in for the original's drone_id -1: an error not
// attributable to any one vehicle (§4.4 "invoke the error handler with
// drone_id -1").
const unroutedDroneID = ""

func (s *Supervisor) forward(idx int, msg DroneMessage) {
	if idx < 0 || idx >= len(s.engines) {
		s.OnDroneError(unroutedDroneID, fmt.Errorf("supervisor: no engine at index %d", idx))
		return
	}
	commandType := droneengine.CommandType(msg.TypeCommand)
	s.engines[idx].SubmitCommand(droneengine.Command{Type: commandType, Item: msg.Command})
}

// OnDroneComplete is the completion callback wired into each engine.
// When every engine has completed, it fires onAllComplete exactly once.
func (s *Supervisor) OnDroneComplete(vehicleID string) {
	if s.completed.Add(1) == int32(len(s.engines)) {
		if s.onAllComplete != nil {
			s.onAllComplete()
		}
	}
}

// OnDroneError is the error callback wired into each engine. Only the
// first call has any effect (§4.4 "first error wins").
func (s *Supervisor) OnDroneError(vehicleID string, err error) {
	s.errOnce.Do(func() {
		s.errored.Store(true)
		if s.onError != nil {
			s.onError(vehicleID, err)
		}
	})
}

// Errored reports whether any engine has reported an error so far.
func (s *Supervisor) Errored() bool {
	return s.errored.Load()
}

// FlushAllRecorders closes every per-vehicle recorder, flushing pending
// writes (§4.4 "flush_all_recorders: broadcast").
func (s *Supervisor) FlushAllRecorders() error {
	var firstErr error
	for _, r := range s.recorders {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
