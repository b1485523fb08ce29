package booth

import (
	"errors"
	"fmt"

	"github.com/cjeanneret/BoothGo/internal/dispatch"
	"github.com/cjeanneret/BoothGo/internal/hw/camera"
)

// AlertKind classifies the errors shown to guests.
type AlertKind string

const (
	AlertCameraUnavailable AlertKind = "camera-unavailable"
	AlertCaptureFailed     AlertKind = "capture-failed"
	AlertRenderFailed      AlertKind = "render-failed"
	AlertPrintFailed       AlertKind = "print-failed"
	AlertMailUnavailable   AlertKind = "mail-unavailable"
	AlertMailFailed        AlertKind = "mail-failed"
)

// ErrNoStrip is returned when there is no rendered strip to serve.
var ErrNoStrip = errors.New("no photo strip")

// Alert is an error the booth reports on screen. Nothing is retried
// automatically; the guest decides what to do next.
type Alert struct {
	Kind AlertKind
	Err  error
}

func (a *Alert) Error() string {
	if a.Err == nil {
		return string(a.Kind)
	}
	return fmt.Sprintf("%s: %v", a.Kind, a.Err)
}

func (a *Alert) Unwrap() error { return a.Err }

// Message is the text shown to guests.
func (a *Alert) Message() string {
	switch a.Kind {
	case AlertCameraUnavailable:
		return "Camera not present!"
	case AlertCaptureFailed:
		return "Couldn't take the photo. Let's start over!"
	case AlertRenderFailed:
		return "Couldn't make the photo strip!"
	case AlertMailUnavailable:
		return "Can't send mail... help find a nerd!"
	case AlertPrintFailed:
		if a.Err == nil || a.Err == dispatch.ErrPrintFailed {
			return "Printing failed!"
		}
	}
	if a.Err != nil {
		return a.Err.Error()
	}
	return string(a.Kind)
}

// classify maps errors from the lower layers onto alert kinds.
func classify(fallback AlertKind, err error) *Alert {
	switch {
	case errors.Is(err, camera.ErrUnavailable):
		return &Alert{Kind: AlertCameraUnavailable, Err: err}
	case errors.Is(err, dispatch.ErrMailUnavailable):
		return &Alert{Kind: AlertMailUnavailable, Err: err}
	case errors.Is(err, dispatch.ErrPrintFailed):
		return &Alert{Kind: AlertPrintFailed, Err: err}
	}
	return &Alert{Kind: fallback, Err: err}
}
