package stream

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

// Decoder turns arbitrary byte chunks back into events. Bytes are held until
// a blank line closes their block.
type Decoder struct {
	buf []byte
}

func NewDecoder() *Decoder {
	return &Decoder{}
}

func (d *Decoder) Feed(chunk []byte) ([]Event, error) {
	d.buf = append(d.buf, chunk...)
	d.buf = bytes.ReplaceAll(d.buf, []byte("\r\n"), []byte("\n"))
	var out []Event
	for {
		idx := bytes.Index(d.buf, []byte("\n\n"))
		if idx < 0 {
			return out, nil
		}
		block := string(d.buf[:idx])
		d.buf = d.buf[idx+2:]
		ev, ok, err := parseBlock(block)
		if err != nil {
			return out, err
		}
		if ok {
			out = append(out, ev)
		}
	}
}

// Pending reports whether an unterminated block is buffered.
func (d *Decoder) Pending() bool {
	return len(bytes.TrimSpace(d.buf)) > 0
}

func parseBlock(block string) (Event, bool, error) {
	var kind string
	var data []string
	hasData := false
	for _, line := range strings.Split(block, "\n") {
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			kind = value
		case "data":
			hasData = true
			data = append(data, value)
		}
	}
	if kind == "" && !hasData {
		return Event{}, false, nil
	}
	if kind == "" {
		return Event{}, false, fmt.Errorf("event block without kind")
	}
	payload := strings.Join(data, "\n")
	if payload == "" {
		payload = "{}"
	}
	ev, err := ParseEvent(kind, []byte(payload))
	if err != nil {
		return Event{}, false, err
	}
	return ev, true, nil
}

// Scan reads r until EOF, handing every decoded event to fn in order.
func Scan(r io.Reader, fn func(Event) error) error {
	dec := NewDecoder()
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			events, decErr := dec.Feed(buf[:n])
			for _, ev := range events {
				if cbErr := fn(ev); cbErr != nil {
					return cbErr
				}
			}
			if decErr != nil {
				return decErr
			}
		}
		if err == io.EOF {
			if dec.Pending() {
				return io.ErrUnexpectedEOF
			}
			return nil
		}
		if err != nil {
			return err
		}
	}
}
