package stream

import (
	"encoding/json"
	"fmt"
)

type Kind string

const (
	KindStart      Kind = "start"
	KindClear      Kind = "clear"
	KindDelta      Kind = "delta"
	KindSnapshot   Kind = "snapshot"
	KindSuggestion Kind = "suggestion"
	KindDone       Kind = "done"
	KindError      Kind = "error"
)

// Result is the {message, document} pair carried by snapshots and done.
type Result struct {
	Message  string `json:"message"`
	Document string `json:"document"`
}

type Suggestion struct {
	ID            string `json:"id"`
	DocumentID    string `json:"document_id"`
	OriginalText  string `json:"original_text"`
	SuggestedText string `json:"suggested_text"`
	Description   string `json:"description"`
}

// Event is the only shape that crosses the wire. Which field is meaningful
// depends on Kind; use the constructors below.
type Event struct {
	Kind       Kind
	Text       string
	Result     *Result
	Suggestion *Suggestion
	Error      string
}

func Start() Event {
	return Event{Kind: KindStart}
}

func Clear() Event {
	return Event{Kind: KindClear}
}

func Delta(text string) Event {
	return Event{Kind: KindDelta, Text: text}
}

func Snapshot(res Result) Event {
	return Event{Kind: KindSnapshot, Result: &res}
}

func SuggestionEvent(s Suggestion) Event {
	return Event{Kind: KindSuggestion, Suggestion: &s}
}

// Done ends a stream; res may be nil when there is nothing to report.
func Done(res *Result) Event {
	return Event{Kind: KindDone, Result: res}
}

func Fail(msg string) Event {
	return Event{Kind: KindError, Error: msg}
}

func (e Event) Terminal() bool {
	return e.Kind == KindDone || e.Kind == KindError
}

func (e Event) Validate() error {
	switch e.Kind {
	case KindStart, KindClear, KindDone:
		return nil
	case KindDelta:
		if e.Text == "" {
			return fmt.Errorf("delta event without text")
		}
	case KindSnapshot:
		if e.Result == nil {
			return fmt.Errorf("snapshot event without result")
		}
	case KindSuggestion:
		if e.Suggestion == nil {
			return fmt.Errorf("suggestion event without payload")
		}
	case KindError:
		if e.Error == "" {
			return fmt.Errorf("error event without message")
		}
	default:
		return fmt.Errorf("unknown event kind: %q", e.Kind)
	}
	return nil
}

type deltaPayload struct {
	Text string `json:"text"`
}

type errorPayload struct {
	Error string `json:"error"`
}

// MarshalData renders the JSON data line of the event.
func (e Event) MarshalData() ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	switch e.Kind {
	case KindDelta:
		return json.Marshal(deltaPayload{Text: e.Text})
	case KindSnapshot:
		return json.Marshal(e.Result)
	case KindSuggestion:
		return json.Marshal(e.Suggestion)
	case KindDone:
		if e.Result == nil {
			return []byte("null"), nil
		}
		return json.Marshal(e.Result)
	case KindError:
		return json.Marshal(errorPayload{Error: e.Error})
	default:
		return []byte("{}"), nil
	}
}

// ParseEvent is the inverse of MarshalData.
func ParseEvent(kind string, data []byte) (Event, error) {
	ev := Event{Kind: Kind(kind)}
	var err error
	switch ev.Kind {
	case KindStart, KindClear:
	case KindDelta:
		var p deltaPayload
		err = json.Unmarshal(data, &p)
		ev.Text = p.Text
	case KindSnapshot:
		var r Result
		err = json.Unmarshal(data, &r)
		ev.Result = &r
	case KindSuggestion:
		var s Suggestion
		err = json.Unmarshal(data, &s)
		ev.Suggestion = &s
	case KindDone:
		var r *Result
		err = json.Unmarshal(data, &r)
		ev.Result = r
	case KindError:
		var p errorPayload
		err = json.Unmarshal(data, &p)
		ev.Error = p.Error
	}
	if err != nil {
		return Event{}, fmt.Errorf("decode %s event: %w", kind, err)
	}
	if err := ev.Validate(); err != nil {
		return Event{}, err
	}
	return ev, nil
}
