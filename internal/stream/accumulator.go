package stream

// Accumulator rebuilds the client view of a stream. Deltas grow the assistant
// text and the document together; snapshots replace both.
type Accumulator struct {
	Assistant   string
	Document    string
	Suggestions []Suggestion
	Error       string
	Done        bool
	Final       *Result
}

func (a *Accumulator) Apply(ev Event) {
	switch ev.Kind {
	case KindClear:
		a.Assistant = ""
		a.Document = ""
	case KindDelta:
		a.Assistant += ev.Text
		a.Document += ev.Text
	case KindSnapshot:
		a.Assistant = ev.Result.Message
		a.Document = ev.Result.Document
	case KindSuggestion:
		a.Suggestions = append(a.Suggestions, *ev.Suggestion)
	case KindDone:
		a.Done = true
		if ev.Result != nil {
			res := *ev.Result
			a.Final = &res
			a.Assistant = res.Message
			a.Document = res.Document
		}
	case KindError:
		a.Error = ev.Error
	}
}
