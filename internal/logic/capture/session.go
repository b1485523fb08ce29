package capture

import (
	"errors"
	"fmt"
	"time"

	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/hw/camera"
	"github.com/google/uuid"
)

// ErrSessionComplete is returned when a photo is added to a full session.
var ErrSessionComplete = errors.New("capture session already complete")

// Session is the bounded series of captures behind one photo strip.
type Session struct {
	ID       uuid.UUID
	Started  time.Time
	Required int

	photos []camera.Frame
}

// NewSession starts a session expecting required photos.
func NewSession(required int) *Session {
	if required <= 0 {
		required = 3
	}
	return &Session{
		ID:       uuid.New(),
		Started:  time.Now(),
		Required: required,
	}
}

// Add records a captured photo and reports whether the session is now complete.
func (s *Session) Add(f camera.Frame) (bool, error) {
	if s.Complete() {
		return true, ErrSessionComplete
	}
	if f.Image == nil {
		return false, fmt.Errorf("photo %d: no image", len(s.photos)+1)
	}
	s.photos = append(s.photos, f)
	debug.Shot(len(s.photos), s.Required)
	return s.Complete(), nil
}

// Taken returns the number of photos collected so far.
func (s *Session) Taken() int { return len(s.photos) }

// Complete reports whether all required photos were collected.
func (s *Session) Complete() bool { return len(s.photos) >= s.Required }

// Photos returns the collected photos in capture order.
func (s *Session) Photos() []camera.Frame {
	out := make([]camera.Frame, len(s.photos))
	copy(out, s.photos)
	return out
}
