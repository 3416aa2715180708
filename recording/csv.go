package recording

import (
	"fmt"
	"os"

	"github.com/tebeka/atexit"
)

// CSVBackend stores event records in a CSV file.
type CSVBackend struct {
	path string
	file *os.File

	records    []EventRecord
	bufferSize int
}

// NewCSVBackend creates a CSVBackend writing to the given path.
func NewCSVBackend(path string) *CSVBackend {
	return &CSVBackend{
		path:       path,
		bufferSize: 1000,
	}
}

// Init creates the CSV file. An existing file at the path is overwritten.
func (b *CSVBackend) Init() {
	file, err := os.Create(b.path)
	if err != nil {
		panic(err)
	}
	b.file = file

	fmt.Fprintf(file, "EventID, Time, Status, Context, Result\n")

	atexit.Register(func() {
		b.Flush()
		err := b.file.Close()
		if err != nil {
			panic(err)
		}
	})
}

// Write buffers one record.
func (b *CSVBackend) Write(r EventRecord) {
	b.records = append(b.records, r)
	if len(b.records) >= b.bufferSize {
		b.Flush()
	}
}

// Flush writes the buffered records to the CSV file.
func (b *CSVBackend) Flush() {
	for _, r := range b.records {
		fmt.Fprintf(b.file, "%s, %.10f, %s, %q, %q\n",
			r.EventID,
			r.Time,
			r.Status,
			r.Context,
			r.Result,
		)
	}

	b.records = nil
}
