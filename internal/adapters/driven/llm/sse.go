package llm

import (
	"bufio"
	"io"
	"strings"
)

// maxLineSize bounds a single stream line. Provider chunks are small but a
// long tool or error payload can exceed bufio's 64KB default.
const maxLineSize = 8 * 1024 * 1024

// Event is one server-sent event.
type Event struct {
	// Name is the "event:" field, empty when the server omits it.
	Name string
	// Data is the "data:" payload; multiple data lines are joined by "\n".
	Data string
}

// EventReader decodes a text/event-stream body.
type EventReader struct {
	scanner *bufio.Scanner
}

// NewEventReader wraps r.
func NewEventReader(r io.Reader) *EventReader {
	return &EventReader{scanner: newScanner(r)}
}

// Next returns the next event with a data payload. It returns io.EOF when
// the stream ends.
func (r *EventReader) Next() (Event, error) {
	var ev Event
	var data []string
	for r.scanner.Scan() {
		line := r.scanner.Text()
		switch {
		case line == "":
			if len(data) > 0 {
				ev.Data = strings.Join(data, "\n")
				return ev, nil
			}
			ev = Event{}
		case strings.HasPrefix(line, ":"):
			// comment / keep-alive
		case strings.HasPrefix(line, "event:"):
			ev.Name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := r.scanner.Err(); err != nil {
		return Event{}, err
	}
	if len(data) > 0 {
		ev.Data = strings.Join(data, "\n")
		return ev, nil
	}
	return Event{}, io.EOF
}

// LineReader yields non-empty lines of a newline-delimited stream.
type LineReader struct {
	scanner *bufio.Scanner
}

// NewLineReader wraps r.
func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{scanner: newScanner(r)}
}

// Next returns the next non-blank line, or io.EOF.
func (r *LineReader) Next() ([]byte, error) {
	for r.scanner.Scan() {
		line := r.scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		out := make([]byte, len(line))
		copy(out, line)
		return out, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func newScanner(r io.Reader) *bufio.Scanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return s
}
