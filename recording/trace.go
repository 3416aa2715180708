package recording

import (
	"fmt"

	"github.com/desimlab/desim/sim"
)

// An EventRecord is one executed event flattened into scalar columns.
type EventRecord struct {
	EventID string
	Time    float64
	Status  string
	Context string
	Result  string
}

// A Backend stores event records. Backends buffer internally; Flush forces
// buffered records out.
type Backend interface {
	Write(r EventRecord)
	Flush()
}

// EventTrace is a hook that records every executed event into a backend.
// Attach it to a scheduler to capture a run without filtering.
type EventTrace struct {
	backend Backend
}

// NewEventTrace creates an EventTrace writing into the given backend.
func NewEventTrace(backend Backend) *EventTrace {
	return &EventTrace{backend: backend}
}

// Func records the event after it ran, so the record carries the action's
// payload and the status the event elapsed with.
func (t *EventTrace) Func(ctx sim.HookCtx) {
	if ctx.Pos != sim.HookPosAfterEvent {
		return
	}

	evt, ok := ctx.Item.(*sim.Event)
	if !ok {
		return
	}

	t.backend.Write(EventRecord{
		EventID: evt.ID,
		Time:    float64(evt.Time()),
		Status:  evt.Status().String(),
		Context: fmt.Sprintf("%v", evt.Context()),
		Result:  fmt.Sprintf("%v", ctx.Detail),
	})
}

// SQLiteBackend stores event records in a table of a DataRecorder.
type SQLiteBackend struct {
	recorder DataRecorder
	table    string
}

// NewSQLiteBackend creates the table on the recorder and returns a backend
// writing into it.
func NewSQLiteBackend(recorder DataRecorder, tableName string) *SQLiteBackend {
	recorder.CreateTable(tableName, EventRecord{})

	return &SQLiteBackend{
		recorder: recorder,
		table:    tableName,
	}
}

// Write buffers one record.
func (b *SQLiteBackend) Write(r EventRecord) {
	b.recorder.InsertData(b.table, r)
}

// Flush writes buffered records to the database.
func (b *SQLiteBackend) Flush() {
	b.recorder.Flush()
}
