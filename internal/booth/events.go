package booth

import (
	"sync"

	"github.com/cjeanneret/BoothGo/internal/dispatch"
)

// EventType names what changed on the booth screen.
type EventType string

const (
	EventState      EventType = "state"
	EventLabel      EventType = "label"
	EventFlash      EventType = "flash"
	EventProgress   EventType = "progress"
	EventTransition EventType = "transition"
	EventStrip      EventType = "strip"
	EventPrompt     EventType = "prompt"
	EventDismiss    EventType = "dismiss"
	EventAlert      EventType = "alert"
	EventArchived   EventType = "archived"
	EventReset      EventType = "reset"
)

// PromptAction is one button of the action prompt.
type PromptAction struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// PromptActions lists the prompt buttons in display order.
func PromptActions() []PromptAction {
	actions := make([]PromptAction, 0, len(dispatch.Actions))
	for _, a := range dispatch.Actions {
		actions = append(actions, PromptAction{ID: a.String(), Title: a.Title()})
	}
	return actions
}

// Event is published to every Sink. Only the fields relevant to Type are set.
type Event struct {
	Type    EventType      `json:"type"`
	State   string         `json:"state,omitempty"`
	Label   string         `json:"label,omitempty"`
	Alpha   float64        `json:"alpha"`
	Taken   int            `json:"taken,omitempty"`
	Total   int            `json:"total,omitempty"`
	Mode    string         `json:"mode,omitempty"`
	In      float64        `json:"in,omitempty"`
	Out     float64        `json:"out,omitempty"`
	Width   int            `json:"width,omitempty"`
	Height  int            `json:"height,omitempty"`
	Version int            `json:"version,omitempty"`
	ID      string         `json:"id,omitempty"`
	Alert   string         `json:"alert,omitempty"`
	Message string         `json:"message,omitempty"`
	Actions []PromptAction `json:"actions,omitempty"`
}

// Sink receives booth events on the event loop goroutine. Publish must not
// block.
type Sink interface {
	Publish(e Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Publish(e Event) { f(e) }

type sinks struct {
	mu  sync.RWMutex
	all []Sink
}

func (s *sinks) add(k Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.all = append(s.all, k)
}

func (s *sinks) publish(e Event) {
	s.mu.RLock()
	all := s.all
	s.mu.RUnlock()
	for _, k := range all {
		k.Publish(e)
	}
}
