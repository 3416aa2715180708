// Package simulation assembles the pieces of a discrete event simulation:
// the event scheduler, the output recorder, and the optional monitor.
package simulation

import (
	"github.com/desimlab/desim/monitoring"
	"github.com/desimlab/desim/recording"
	"github.com/desimlab/desim/sim"
)

// A Simulation bundles the services required to define and observe a
// discrete event simulation.
type Simulation struct {
	id string

	scheduler    *sim.EventScheduler
	dataRecorder recording.DataRecorder
	trace        *recording.SQLiteBackend
	monitor      *monitoring.Monitor
}

// ID returns the unique ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// Scheduler returns the event scheduler driving the simulation.
func (s *Simulation) Scheduler() *sim.EventScheduler {
	return s.scheduler
}

// DataRecorder returns the recorder that persists the simulation output.
func (s *Simulation) DataRecorder() recording.DataRecorder {
	return s.dataRecorder
}

// Monitor returns the monitor of the simulation, or nil if monitoring is
// disabled.
func (s *Simulation) Monitor() *monitoring.Monitor {
	return s.monitor
}

// Terminate flushes the recorded output. It must be called after the
// simulation ends.
func (s *Simulation) Terminate() {
	if s.trace != nil {
		s.trace.Flush()
	}

	s.dataRecorder.Flush()
}
