package sim

// VTime is a point in simulated time. The engine attaches no unit to it,
// and it may be negative before the clock starts moving.
type VTime float64

// An Action is the work an event performs when it elapses. The returned
// payload is opaque to the scheduler; it is captured for the event log and
// never inspected.
type Action func() any

// Context carries free-form metadata attached to an event. It is owned by
// the event and never interpreted by the scheduler. Collaborators use it to
// tag events so they can be located later by condition.
type Context map[string]any

// EventStatus tells whether an event will perform its action when it
// elapses.
type EventStatus int

const (
	// StatusActive marks an event that will run its action when popped.
	StatusActive EventStatus = iota

	// StatusInactive marks an event that will fizzle when popped: it leaves
	// the queue, but its action does not run.
	StatusInactive
)

func (s EventStatus) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusInactive:
		return "inactive"
	default:
		return "unknown"
	}
}

// An Event is a state transition scheduled to happen at a point in
// simulated time.
//
// The output of the action exists for logging. It should not drive control
// flow of the model being simulated; its role is to give the log filter and
// the log itself extra information about the system at the moment the event
// elapsed.
//
// Activate and Deactivate are handles for synchronization tools such as
// semaphores that manage access to simulated resources. An event can elapse
// while active or while inactive. Only in the first case does the model's
// state transition happen.
type Event struct {
	// ID identifies the event in logs and traces.
	ID string

	time    VTime
	action  Action
	context Context
	status  EventStatus
	result  any
}

// NewEvent creates an active event that elapses at time t. A nil action is
// replaced with a no-op. A nil context is replaced with an empty one.
func NewEvent(t VTime, action Action, context Context) *Event {
	if action == nil {
		action = func() any { return nil }
	}

	if context == nil {
		context = Context{}
	}

	return &Event{
		ID:      GetIDGenerator().Generate(),
		time:    t,
		action:  action,
		context: context,
		status:  StatusActive,
	}
}

// Time returns the time at which the event elapses.
func (e *Event) Time() VTime {
	return e.time
}

// setTime overwrites the event time. Only the scheduler's interruption
// logic moves events in time; everything else treats the time as fixed at
// construction.
func (e *Event) setTime(t VTime) {
	e.time = t
}

// Context returns the metadata attached to the event.
func (e *Event) Context() Context {
	return e.context
}

// Status returns whether the event is active or inactive.
func (e *Event) Status() EventStatus {
	return e.status
}

// Result returns the payload produced by the most recent Run, or nil if the
// event never ran or last ran while inactive.
func (e *Event) Result() any {
	return e.result
}

// Activate marks the event active. Activating an already active event
// changes nothing.
func (e *Event) Activate() {
	e.status = StatusActive
}

// Deactivate marks the event inactive. A deactivated event stays queued and
// fizzles when popped.
func (e *Event) Deactivate() {
	e.status = StatusInactive
}

// Run performs the event's action if the event is active, recording and
// returning the action's payload. An inactive event fizzles: the action is
// skipped, the stored result is cleared, and nil is returned. Run does not
// change the event's status.
func (e *Event) Run() any {
	if e.status != StatusActive {
		e.result = nil
		return nil
	}

	e.result = e.action()

	return e.result
}

// Before reports whether e elapses strictly earlier than other.
func (e *Event) Before(other *Event) bool {
	return e.time < other.time
}

// NotAfter reports whether e elapses no later than other.
func (e *Event) NotAfter(other *Event) bool {
	return e.time <= other.time
}
