package sim

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

// ErrPastTime reports an attempt to schedule an event before the current
// time after the clock has started moving.
var ErrPastTime = errors.New("scheduling an event earlier than current time")

// ErrNilEvent reports an attempt to schedule a nil event.
var ErrNilEvent = errors.New("cannot schedule a nil event")

// ErrInvalidInterruptMethod reports an interruption request with a method
// that is neither InterruptDeactivate nor InterruptCancel.
var ErrInvalidInterruptMethod = errors.New("invalid interrupt method")

// A Condition selects queued events. It is evaluated against the scheduler
// and one queued event at a time.
type Condition func(s *EventScheduler, e *Event) bool

// A LogFilter decides whether an executed event and its action payload are
// retained in the event log.
type LogFilter func(e *Event, result any) bool

// A StopCondition decides when the run loop halts. The loop also halts
// unconditionally when the queue empties.
type StopCondition func(s *EventScheduler) bool

// A LogEntry pairs an executed event with the payload its action produced.
type LogEntry struct {
	Event  *Event
	Result any
}

// InterruptMethod selects how an interrupted event is displaced.
type InterruptMethod int

const (
	// InterruptDeactivate leaves the interrupted event queued but marks it
	// inactive, so it fizzles when popped.
	InterruptDeactivate InterruptMethod = iota

	// InterruptCancel removes the interrupted event from the queue
	// entirely.
	InterruptCancel
)

func (m InterruptMethod) String() string {
	switch m {
	case InterruptDeactivate:
		return "deactivate"
	case InterruptCancel:
		return "cancel"
	default:
		return fmt.Sprintf("InterruptMethod(%d)", int(m))
	}
}

func (m InterruptMethod) valid() bool {
	return m == InterruptDeactivate || m == InterruptCancel
}

// An EventScheduler owns the simulation clock and the pending-event queue,
// and drives a discrete event simulation by executing events one after
// another in nondecreasing time order.
//
// The scheduler is hookable: hooks fire before and after each executed
// event, which is how loggers and trace recorders observe a run without
// being part of the run loop.
type EventScheduler struct {
	HookableBase

	timeLock sync.RWMutex
	time     VTime
	advanced bool

	queue *EventQueue

	logLock  sync.RWMutex
	eventLog []LogEntry
}

// NewEventScheduler creates an EventScheduler with an empty queue and the
// clock at zero.
func NewEventScheduler() *EventScheduler {
	s := new(EventScheduler)
	s.queue = NewEventQueue()

	return s
}

// CurrentTime returns the time of the most recently executed event, or
// zero if nothing has executed yet.
func (s *EventScheduler) CurrentTime() VTime {
	s.timeLock.RLock()
	defer s.timeLock.RUnlock()

	return s.time
}

func (s *EventScheduler) writeNow(t VTime) {
	s.timeLock.Lock()
	s.time = t
	s.timeLock.Unlock()
}

// markAdvanced flips the scheduler into its live state. From this point on
// scheduling into the past is a causality violation.
func (s *EventScheduler) markAdvanced() {
	s.timeLock.Lock()
	s.advanced = true
	s.timeLock.Unlock()
}

// EventCount returns the number of pending events.
func (s *EventScheduler) EventCount() int {
	return s.queue.Len()
}

// EventLog returns a copy of the accumulated log of executed events.
func (s *EventScheduler) EventLog() []LogEntry {
	s.logLock.RLock()
	defer s.logLock.RUnlock()

	log := make([]LogEntry, len(s.eventLog))
	copy(log, s.eventLog)

	return log
}

func (s *EventScheduler) appendLog(entry LogEntry) {
	s.logLock.Lock()
	s.eventLog = append(s.eventLog, entry)
	s.logLock.Unlock()
}

// Schedule inserts an event into the queue keyed by the event's time.
//
// Before the first Run or Step, events may be scheduled at any time,
// including times before the clock's starting value. This prescheduling
// window allows simulations to set up history before t=0. Once the
// scheduler has begun advancing, scheduling below the current time fails
// with ErrPastTime and leaves the queue untouched.
func (s *EventScheduler) Schedule(evt *Event) error {
	if evt == nil {
		return ErrNilEvent
	}

	s.timeLock.RLock()
	now, advanced := s.time, s.advanced
	s.timeLock.RUnlock()

	if advanced && evt.Time() < now {
		return fmt.Errorf("%w: event %s at %v, now %v",
			ErrPastTime, evt.ID, evt.Time(), now)
	}

	s.queue.Push(evt)

	return nil
}

// Timeout creates and schedules an event at the current time plus delay,
// returning the event so the caller can target it later. The delay may be
// negative, subject to the same prescheduling rule as Schedule.
func (s *EventScheduler) Timeout(
	delay VTime,
	action Action,
	context Context,
) (*Event, error) {
	evt := NewEvent(s.CurrentTime()+delay, action, context)

	if err := s.Schedule(evt); err != nil {
		return nil, err
	}

	return evt, nil
}

// NextEvent returns the earliest queued event without removing it, or nil
// if the queue is empty.
func (s *EventScheduler) NextEvent() *Event {
	return s.queue.Peek()
}

// NextEventByCondition returns the first queued event, in time order, that
// satisfies cond, or nil if no event matches.
func (s *EventScheduler) NextEventByCondition(cond Condition) *Event {
	for _, evt := range s.queue.Snapshot() {
		if cond(s, evt) {
			return evt
		}
	}

	return nil
}

// Peek returns the time of the earliest queued event, or +Inf if the queue
// is empty.
func (s *EventScheduler) Peek() VTime {
	if evt := s.queue.Peek(); evt != nil {
		return evt.Time()
	}

	return VTime(math.Inf(1))
}

// PeekByCondition returns the time of the first queued event satisfying
// cond. The second return value is false when no event matches.
func (s *EventScheduler) PeekByCondition(cond Condition) (VTime, bool) {
	if evt := s.NextEventByCondition(cond); evt != nil {
		return evt.Time(), true
	}

	return 0, false
}

// ActivateNextEvent activates the earliest queued event. No-op if the
// queue is empty.
func (s *EventScheduler) ActivateNextEvent() {
	if evt := s.queue.Peek(); evt != nil {
		evt.Activate()
	}
}

// ActivateNextEventByCondition activates the first queued event satisfying
// cond. No-op if no event matches.
func (s *EventScheduler) ActivateNextEventByCondition(cond Condition) {
	if evt := s.NextEventByCondition(cond); evt != nil {
		evt.Activate()
	}
}

// ActivateAllEvents activates every currently queued event.
func (s *EventScheduler) ActivateAllEvents() {
	for _, evt := range s.queue.Snapshot() {
		evt.Activate()
	}
}

// ActivateAllEventsByCondition activates every queued event satisfying
// cond.
func (s *EventScheduler) ActivateAllEventsByCondition(cond Condition) {
	for _, evt := range s.queue.Snapshot() {
		if cond(s, evt) {
			evt.Activate()
		}
	}
}

// DeactivateNextEvent deactivates the earliest queued event. No-op if the
// queue is empty.
func (s *EventScheduler) DeactivateNextEvent() {
	if evt := s.queue.Peek(); evt != nil {
		evt.Deactivate()
	}
}

// DeactivateNextEventByCondition deactivates the first queued event
// satisfying cond. No-op if no event matches.
func (s *EventScheduler) DeactivateNextEventByCondition(cond Condition) {
	if evt := s.NextEventByCondition(cond); evt != nil {
		evt.Deactivate()
	}
}

// DeactivateAllEvents deactivates every currently queued event.
func (s *EventScheduler) DeactivateAllEvents() {
	for _, evt := range s.queue.Snapshot() {
		evt.Deactivate()
	}
}

// DeactivateAllEventsByCondition deactivates every queued event satisfying
// cond.
func (s *EventScheduler) DeactivateAllEventsByCondition(cond Condition) {
	for _, evt := range s.queue.Snapshot() {
		if cond(s, evt) {
			evt.Deactivate()
		}
	}
}

// CancelNextEvent removes the earliest queued event. Unlike deactivation,
// the event is gone: it will never run and never be logged. No-op if the
// queue is empty.
func (s *EventScheduler) CancelNextEvent() {
	s.queue.Pop()
}

// CancelNextEventByCondition removes the first queued event satisfying
// cond. No-op if no event matches.
func (s *EventScheduler) CancelNextEventByCondition(cond Condition) {
	target := s.NextEventByCondition(cond)
	if target == nil {
		return
	}

	s.queue.RemoveIf(func(e *Event) bool { return e == target }, 1)
}

// CancelAllEvents empties the queue unconditionally.
func (s *EventScheduler) CancelAllEvents() {
	s.queue.Clear()
}

// CancelAllEventsByCondition removes every queued event satisfying cond.
//
// The matches are collected from a snapshot first, so a condition is never
// evaluated while the queue is being rebuilt.
func (s *EventScheduler) CancelAllEventsByCondition(cond Condition) {
	targets := make(map[*Event]bool)
	for _, evt := range s.queue.Snapshot() {
		if cond(s, evt) {
			targets[evt] = true
		}
	}

	if len(targets) == 0 {
		return
	}

	s.queue.RemoveIf(func(e *Event) bool { return targets[e] }, -1)
}

// InterruptNextEvent displaces the earliest queued event and splices a
// replacement into the timeline. The displaced event is either deactivated
// (it stays queued and fizzles) or cancelled (it is removed), according to
// method. The replacement is scheduled at its own time if supplied, and
// otherwise the displaced event itself is re-scheduled at the current
// time.
//
// An unrecognized method fails with ErrInvalidInterruptMethod before any
// mutation. An empty queue is a no-op: with nothing to interrupt, no
// replacement is scheduled.
func (s *EventScheduler) InterruptNextEvent(
	method InterruptMethod,
	replacement *Event,
) error {
	if !method.valid() {
		return fmt.Errorf("%w: %s", ErrInvalidInterruptMethod, method)
	}

	target := s.queue.Peek()
	if target == nil {
		return nil
	}

	nextTime := s.CurrentTime()
	if replacement != nil {
		nextTime = replacement.Time()
	} else {
		replacement = target
	}

	switch method {
	case InterruptDeactivate:
		target.Deactivate()
	case InterruptCancel:
		s.queue.Pop()
	}

	replacement.setTime(nextTime)

	return s.Schedule(replacement)
}

// InterruptNextEventByCondition is InterruptNextEvent with the target
// chosen as the first queued event satisfying cond. When cancelling, the
// queue is rebuilt without exactly the matched entry; every other event,
// including equal-time ties, keeps its order. If no event matches, the
// call is a no-op and no replacement is scheduled.
func (s *EventScheduler) InterruptNextEventByCondition(
	cond Condition,
	method InterruptMethod,
	replacement *Event,
) error {
	if !method.valid() {
		return fmt.Errorf("%w: %s", ErrInvalidInterruptMethod, method)
	}

	target := s.NextEventByCondition(cond)
	if target == nil {
		return nil
	}

	nextTime := s.CurrentTime()
	if replacement != nil {
		nextTime = replacement.Time()
	} else {
		replacement = target
	}

	switch method {
	case InterruptDeactivate:
		target.Deactivate()
	case InterruptCancel:
		s.queue.RemoveIf(func(e *Event) bool { return e == target }, 1)
	}

	replacement.setTime(nextTime)

	return s.Schedule(replacement)
}

// Run executes pending events until stop holds or the queue empties.
//
// Each iteration pops the earliest event, advances the clock to the time
// the event was scheduled under, runs it, and fires the before/after
// hooks. With logging enabled, every (event, result) pair passing the
// filter is appended to the event log; a nil filter keeps everything. Run
// returns the accumulated log, or nil when logging is disabled.
//
// Actions may schedule, deactivate, or cancel events freely; such
// mutations are visible to the remainder of the run.
func (s *EventScheduler) Run(
	stop StopCondition,
	filter LogFilter,
	logging bool,
) []LogEntry {
	s.markAdvanced()

	for !stop(s) {
		if s.queue.Len() == 0 {
			break
		}

		evt, result := s.executeNext()

		if logging && (filter == nil || filter(evt, result)) {
			s.appendLog(LogEntry{Event: evt, Result: result})
		}
	}

	if !logging {
		return nil
	}

	return s.EventLog()
}

// RunUntilMaxTime executes pending events strictly before maxTime. The
// stop condition looks ahead at the earliest queued time, so an event at
// or after the boundary is never executed. Repeated calls with
// nondecreasing maxTime values never re-execute past events.
func (s *EventScheduler) RunUntilMaxTime(
	maxTime VTime,
	filter LogFilter,
	logging bool,
) []LogEntry {
	return s.Run(StopAtMaxTime(maxTime), filter, logging)
}

// RunUntilEvent executes pending events until the given event appears in
// the event log. If the event never executes, the run drains the queue and
// stops. With logging disabled nothing is ever appended, so the run always
// drains the queue.
func (s *EventScheduler) RunUntilEvent(evt *Event, logging bool) []LogEntry {
	return s.Run(StopAtEvent(evt), nil, logging)
}

// Step executes a single event: pop the earliest, advance the clock, run
// it, and return the (event, result) pair without touching the log. Step
// returns (nil, nil) when the queue is empty.
func (s *EventScheduler) Step() (*Event, any) {
	s.markAdvanced()

	if s.queue.Len() == 0 {
		return nil, nil
	}

	return s.executeNext()
}

// executeNext pops the earliest entry, advances the clock to the entry's
// key time, and runs the event between the two hook positions. The key
// time, not the event's possibly rewritten time field, drives the clock,
// which keeps popped times nondecreasing.
func (s *EventScheduler) executeNext() (*Event, any) {
	t, evt := s.queue.Pop()
	s.writeNow(t)

	hookCtx := HookCtx{
		Domain: s,
		Pos:    HookPosBeforeEvent,
		Item:   evt,
	}
	s.InvokeHook(hookCtx)

	result := evt.Run()

	hookCtx.Pos = HookPosAfterEvent
	hookCtx.Detail = result
	s.InvokeHook(hookCtx)

	return evt, result
}
