package camera

import (
	"context"
	"errors"
	"image"
)

// ErrUnavailable is returned when no usable capture device is present.
var ErrUnavailable = errors.New("camera not present")

// Camera is the high-level interface used by the rest of the application.
// It represents an abstract "camera", regardless of how it's driven
// (mock, external still-capture tool, tethered DSLR, etc.).
type Camera interface {
	// Available reports whether a capture can be started right now.
	Available() error
	// Capture takes one photo and returns it with its orientation tag.
	Capture(ctx context.Context) (Frame, error)
}

// Frame is one captured photo as delivered by the device.
// Pixels are stored as the sensor produced them; Orientation says how
// they must be transformed to be displayed upright.
type Frame struct {
	Image       image.Image
	Orientation Orientation
}

// Settings holds the device selection shared by all implementations.
type Settings struct {
	Device string // "front" or "rear"
	Flash  bool   // camera flash; a booth lights the room itself
	// Orientation, when non-zero, overrides the tag reported by the device.
	Orientation Orientation
}

func (s Settings) tag(reported Orientation) Orientation {
	if s.Orientation != 0 {
		return s.Orientation
	}
	if reported == 0 {
		return Up
	}
	return reported
}
