package transition

import (
	"time"

	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/logic/capture"
)

// Mode says which way the capture screen is moving.
type Mode int

const (
	Presenting Mode = iota
	Dismissing
)

func (m Mode) String() string {
	if m == Dismissing {
		return "dismissing"
	}
	return "presenting"
}

// Duration is the length of every fade.
const Duration = 380 * time.Millisecond

// Frame is one step of a fade. In is the incoming view opacity, Out the
// outgoing one.
type Frame struct {
	Mode     Mode
	Progress float64
	In       float64
	Out      float64
}

// Host renders the frames of a fade.
type Host interface {
	Frame(f Frame)
	// Complete is called once per fade. finished is false when the fade
	// was cancelled or cut off by another one.
	Complete(m Mode, finished bool)
}

// Animator runs cross fades on a scheduler, one at a time.
type Animator struct {
	sched    capture.Scheduler
	duration time.Duration
	step     time.Duration

	host    Host
	mode    Mode
	elapsed time.Duration
	stop    func()
}

// New creates an animator emitting fps frames per second.
// A non-positive duration falls back to Duration.
func New(s capture.Scheduler, duration time.Duration, fps int) *Animator {
	if duration <= 0 {
		duration = Duration
	}
	if fps <= 0 {
		fps = 30
	}
	return &Animator{sched: s, duration: duration, step: time.Second / time.Duration(fps)}
}

// Running reports whether a fade is in progress.
func (a *Animator) Running() bool { return a.stop != nil }

// Animate starts a fade. A fade still running is cancelled first.
func (a *Animator) Animate(m Mode, h Host) {
	a.Cancel()
	debug.Verbose("Transition: %s over %v", m, a.duration)
	a.host, a.mode, a.elapsed = h, m, 0
	a.emit(0)
	a.stop = a.sched.Every(a.step, a.tick)
}

func (a *Animator) tick() {
	a.elapsed += a.step
	if a.elapsed >= a.duration {
		a.finish()
		return
	}
	a.emit(float64(a.elapsed) / float64(a.duration))
}

// Cancel stops the running fade, if any, and reports it unfinished.
func (a *Animator) Cancel() {
	if !a.Running() {
		return
	}
	a.stop()
	a.stop = nil
	debug.Verbose("Transition: %s cancelled", a.mode)
	a.restore()
	a.host.Complete(a.mode, false)
}

func (a *Animator) finish() {
	a.stop()
	a.stop = nil
	a.emit(1)
	a.restore()
	a.host.Complete(a.mode, true)
}

// restore puts the outgoing view back to full opacity so it can be shown
// again later.
func (a *Animator) restore() {
	a.host.Frame(Frame{Mode: a.mode, Progress: 1, In: 1, Out: 1})
}

func (a *Animator) emit(t float64) {
	e := EaseOut(t)
	a.host.Frame(Frame{Mode: a.mode, Progress: t, In: e, Out: 1 - e})
}

// EaseOut maps linear progress in [0,1] to a decelerating curve.
func EaseOut(t float64) float64 {
	switch {
	case t <= 0:
		return 0
	case t >= 1:
		return 1
	}
	return 1 - (1-t)*(1-t)
}
