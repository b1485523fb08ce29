package capture

import (
	"errors"
	"image"
	"testing"

	"github.com/cjeanneret/BoothGo/internal/hw/camera"
)

func frame(w, h int) camera.Frame {
	return camera.Frame{Image: image.NewNRGBA(image.Rect(0, 0, w, h)), Orientation: camera.Up}
}

func TestSession_CompletesAtRequiredCount(t *testing.T) {
	s := NewSession(3)
	for i := 1; i <= 3; i++ {
		done, err := s.Add(frame(10, 10))
		if err != nil {
			t.Fatalf("Add %d: %v", i, err)
		}
		if done != (i == 3) {
			t.Errorf("Add %d: done = %v", i, done)
		}
		if s.Taken() != i {
			t.Errorf("Taken() = %d, want %d", s.Taken(), i)
		}
	}
	if !s.Complete() {
		t.Error("session should be complete")
	}
}

func TestSession_RejectsFourthPhoto(t *testing.T) {
	s := NewSession(3)
	for i := 0; i < 3; i++ {
		s.Add(frame(1, 1))
	}
	if _, err := s.Add(frame(1, 1)); !errors.Is(err, ErrSessionComplete) {
		t.Errorf("4th Add error = %v, want ErrSessionComplete", err)
	}
	if s.Taken() != 3 {
		t.Errorf("Taken() = %d, want 3", s.Taken())
	}
}

func TestSession_RejectsEmptyFrame(t *testing.T) {
	s := NewSession(3)
	if _, err := s.Add(camera.Frame{}); err == nil {
		t.Error("expected error for frame without image")
	}
	if s.Taken() != 0 {
		t.Errorf("Taken() = %d, want 0", s.Taken())
	}
}

func TestSession_PhotosIsACopy(t *testing.T) {
	s := NewSession(2)
	s.Add(frame(1, 1))
	p := s.Photos()
	p[0] = camera.Frame{}
	if s.Photos()[0].Image == nil {
		t.Error("Photos() must not expose internal storage")
	}
}

func TestNewSession_DefaultsAndIDs(t *testing.T) {
	a, b := NewSession(0), NewSession(0)
	if a.Required != 3 {
		t.Errorf("Required default = %d, want 3", a.Required)
	}
	if a.ID == b.ID {
		t.Error("session IDs must be unique")
	}
}
