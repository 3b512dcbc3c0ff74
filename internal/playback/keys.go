package playback

import "context"

// Action is a transport intent bound to a key.
type Action int

const (
	ActionNone Action = iota
	ActionPlayPause
	ActionNext
	ActionPrevious
	ActionFastForward
	ActionRewind
	ActionSeek
)

func (a Action) String() string {
	switch a {
	case ActionPlayPause:
		return "play/pause"
	case ActionNext:
		return "next"
	case ActionPrevious:
		return "previous"
	case ActionFastForward:
		return "fast-forward"
	case ActionRewind:
		return "rewind"
	case ActionSeek:
		return "seek"
	default:
		return "none"
	}
}

// Binding is the intent for one key. Fraction is set for [ActionSeek].
type Binding struct {
	Action   Action
	Fraction float64
}

var bindings = map[string]Binding{
	" ":     {Action: ActionPlayPause},
	"space": {Action: ActionPlayPause},
	">":     {Action: ActionNext},
	"<":     {Action: ActionPrevious},
	".":     {Action: ActionFastForward},
	",":     {Action: ActionRewind},
	"1":     {Action: ActionSeek, Fraction: 0},
	"2":     {Action: ActionSeek, Fraction: 0.2},
	"3":     {Action: ActionSeek, Fraction: 0.4},
	"4":     {Action: ActionSeek, Fraction: 0.6},
	"5":     {Action: ActionSeek, Fraction: 0.8},
}

// Lookup returns the binding for key as reported by the terminal (e.g. " ", ">", "3").
func Lookup(key string) (Binding, bool) {
	b, ok := bindings[key]
	return b, ok
}

// Do runs the intent of b.
func (d *Dispatcher) Do(ctx context.Context, b Binding) error {
	switch b.Action {
	case ActionPlayPause:
		return d.PlayPause(ctx)
	case ActionNext:
		return d.Next(ctx)
	case ActionPrevious:
		return d.Previous(ctx)
	case ActionFastForward:
		return d.FastForward(ctx)
	case ActionRewind:
		return d.Rewind(ctx)
	case ActionSeek:
		return d.SeekAbsolute(ctx, b.Fraction)
	default:
		return nil
	}
}
