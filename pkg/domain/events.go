package domain

import "context"

// EditEventType defines the kind of history movement.
type EditEventType string

const (
	EventApply EditEventType = "apply"
	EventNoop  EditEventType = "noop"
	EventUndo  EditEventType = "undo"
	EventRedo  EditEventType = "redo"
	EventLoad  EditEventType = "load"
	// EventSelect is a focus change. It does not create a history entry.
	EventSelect EditEventType = "select"
)

// EditEvent describes a change (or attempted change) of the editor history.
type EditEvent struct {
	Type       EditEventType `json:"type"`
	Op         string        `json:"op,omitempty"`
	Version    int           `json:"version"`
	Index      int           `json:"index"`
	HistoryLen int           `json:"history_len"`

	// Before and After are the displayed snapshots around the event.
	// They are equal for EventNoop.
	Before *Snapshot `json:"-"`
	After  *Snapshot `json:"-"`
}

// EditHooks defines callbacks for editor observability.
// Any hook may be nil.
type EditHooks struct {
	OnApply func(context.Context, *EditEvent)
	OnNoop  func(context.Context, *EditEvent)
	OnUndo  func(context.Context, *EditEvent)
	OnRedo  func(context.Context, *EditEvent)
	OnLoad  func(context.Context, *EditEvent)

	OnSelect func(context.Context, *EditEvent)
}

// Fire dispatches the event to the matching hook.
func (h EditHooks) Fire(ctx context.Context, e *EditEvent) {
	var fn func(context.Context, *EditEvent)
	switch e.Type {
	case EventApply:
		fn = h.OnApply
	case EventNoop:
		fn = h.OnNoop
	case EventUndo:
		fn = h.OnUndo
	case EventRedo:
		fn = h.OnRedo
	case EventLoad:
		fn = h.OnLoad
	case EventSelect:
		fn = h.OnSelect
	}
	if fn != nil {
		fn(ctx, e)
	}
}

// MergeHooks chains several hook sets; each hook runs in order.
func MergeHooks(hooks ...EditHooks) EditHooks {
	chain := func(pick func(EditHooks) func(context.Context, *EditEvent)) func(context.Context, *EditEvent) {
		var fns []func(context.Context, *EditEvent)
		for _, h := range hooks {
			if fn := pick(h); fn != nil {
				fns = append(fns, fn)
			}
		}
		if len(fns) == 0 {
			return nil
		}
		return func(ctx context.Context, e *EditEvent) {
			for _, fn := range fns {
				fn(ctx, e)
			}
		}
	}
	return EditHooks{
		OnApply: chain(func(h EditHooks) func(context.Context, *EditEvent) { return h.OnApply }),
		OnNoop:  chain(func(h EditHooks) func(context.Context, *EditEvent) { return h.OnNoop }),
		OnUndo:  chain(func(h EditHooks) func(context.Context, *EditEvent) { return h.OnUndo }),
		OnRedo:  chain(func(h EditHooks) func(context.Context, *EditEvent) { return h.OnRedo }),
		OnLoad:  chain(func(h EditHooks) func(context.Context, *EditEvent) { return h.OnLoad }),

		OnSelect: chain(func(h EditHooks) func(context.Context, *EditEvent) { return h.OnSelect }),
	}
}
