package sim

// StopAtMaxTime returns a stop condition that holds once the clock reaches
// maxTime or the earliest queued event lies at or beyond it. The
// look-ahead makes maxTime an exclusive ceiling: no event at or after the
// boundary executes, and repeated runs with nondecreasing ceilings never
// re-execute past events.
func StopAtMaxTime(maxTime VTime) StopCondition {
	return func(s *EventScheduler) bool {
		if s.CurrentTime() >= maxTime {
			return true
		}

		next, ok := s.queue.PeekTime()
		if !ok {
			return true
		}

		return next >= maxTime
	}
}

// StopAtEvent returns a stop condition that holds once the target event
// has been appended to the event log. The scan over the log is resumed
// from where the previous evaluation left off.
func StopAtEvent(target *Event) StopCondition {
	next := 0

	return func(s *EventScheduler) bool {
		s.logLock.RLock()
		defer s.logLock.RUnlock()

		for ; next < len(s.eventLog); next++ {
			if s.eventLog[next].Event == target {
				return true
			}
		}

		return false
	}
}

// StopNever returns a stop condition that never holds, so the run drains
// the queue.
func StopNever() StopCondition {
	return func(*EventScheduler) bool {
		return false
	}
}
