package sim

import "log"

// EventLogger is a hook that prints every executed event.
type EventLogger struct {
	Logger *log.Logger
}

// NewEventLogger returns an EventLogger that writes into the given logger.
func NewEventLogger(logger *log.Logger) *EventLogger {
	h := new(EventLogger)
	h.Logger = logger

	return h
}

// Func writes the event information into the logger.
func (h *EventLogger) Func(ctx HookCtx) {
	if ctx.Pos != HookPosBeforeEvent {
		return
	}

	evt, ok := ctx.Item.(*Event)
	if !ok {
		return
	}

	h.Logger.Printf("%.10f, %s, %s", evt.Time(), evt.ID, evt.Status())
}
