package stream

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/appetiteclub/tableside/pkg/event"
)

const maxFrameBytes = 1 << 20

// frame is one server-sent event before typing.
type frame struct {
	name string
	id   string
	data []string
}

// decoder reads text/event-stream frames.
type decoder struct {
	scanner *bufio.Scanner
}

func newDecoder(r io.Reader) *decoder {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 4096), maxFrameBytes)
	return &decoder{scanner: s}
}

// next returns the next dispatched frame. Comment-only and empty frames are
// skipped. It returns io.EOF when the stream ends cleanly.
func (d *decoder) next() (frame, error) {
	var f frame
	pending := false

	for d.scanner.Scan() {
		line := strings.TrimSuffix(d.scanner.Text(), "\r")

		if line == "" {
			if pending && len(f.data) > 0 {
				return f, nil
			}
			f = frame{}
			pending = false
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		pending = true

		switch field {
		case "event":
			f.name = value
		case "data":
			f.data = append(f.data, value)
		case "id":
			f.id = value
		}
	}

	if err := d.scanner.Err(); err != nil {
		return frame{}, err
	}
	return frame{}, io.EOF
}

// toEvent types a frame. Frames without an event name use the "message"
// kind. Data that is not JSON is kept as a JSON string so it stays
// decodable downstream as a payload error rather than a transport error.
func (f frame) toEvent(topic string) event.Event {
	name := f.name
	if name == "" {
		name = "message"
	}

	data := []byte(strings.Join(f.data, "\n"))
	payload := json.RawMessage(data)
	if !json.Valid(bytes.TrimSpace(data)) {
		quoted, _ := json.Marshal(string(data))
		payload = quoted
	}

	return event.Event{
		Kind:    event.Kind(name),
		ID:      f.id,
		Topic:   topic,
		Payload: payload,
	}
}
