package capture

import (
	"strconv"
	"time"

	"github.com/cjeanneret/BoothGo/internal/debug"
)

// Countdown labels outside the numeric range.
const (
	LabelNone  = ""
	LabelStart = "Start"
	LabelNice  = "Nice!"
)

// Flash is the intensity of the full-screen white overlay.
type Flash int

const (
	FlashNone   Flash = iota
	FlashDim          // countdown step
	FlashBright       // capture
)

// Alpha returns the overlay opacity.
func (f Flash) Alpha() float64 {
	switch f {
	case FlashDim:
		return 0.2
	case FlashBright:
		return 0.45
	}
	return 0
}

func (f Flash) String() string {
	switch f {
	case FlashDim:
		return "dim"
	case FlashBright:
		return "bright"
	}
	return "none"
}

// Timing holds the countdown parameters.
type Timing struct {
	Count         int           // last numeric label before capture
	InitialDelay  time.Duration // until "Start"
	StartDelay    time.Duration // from "Start" to the periodic tick
	TickInterval  time.Duration // between labels
	ClearInterval time.Duration // flash clear tick
	NiceDelay     time.Duration // from capture to "Nice!"
}

// DefaultTiming matches a 60 Hz display: a tick every 120 frames, a clear every 10.
func DefaultTiming() Timing {
	return Timing{
		Count:         3,
		InitialDelay:  time.Second,
		StartDelay:    2 * time.Second,
		TickInterval:  2 * time.Second,
		ClearInterval: 166 * time.Millisecond,
		NiceDelay:     200 * time.Millisecond,
	}
}

// Hooks receive the sequencer output. Any of them may be nil.
type Hooks struct {
	OnLabel   func(label string)
	OnFlash   func(f Flash)
	OnCapture func()
}

// Sequencer drives one countdown: Start, 1 .. Count, then capture.
// It is not safe for concurrent use; all calls and callbacks happen on the
// goroutine behind its Scheduler.
type Sequencer struct {
	sched  Scheduler
	timing Timing
	hooks  Hooks

	label       string
	flash       Flash
	justFlashed bool
	running     bool

	pending   []func()
	stopTick  func()
	stopClear func()
}

// NewSequencer creates an idle sequencer.
func NewSequencer(s Scheduler, t Timing, h Hooks) *Sequencer {
	if t.Count <= 0 {
		t.Count = 3
	}
	return &Sequencer{sched: s, timing: t, hooks: h}
}

// Label returns the current countdown label.
func (s *Sequencer) Label() string { return s.label }

// Flash returns the current overlay intensity.
func (s *Sequencer) Flash() Flash { return s.flash }

// Running reports whether a countdown is in progress.
func (s *Sequencer) Running() bool { return s.running }

// Start begins a new countdown. Anything scheduled by a previous run is
// cancelled first, so restarting never leaves stale callbacks behind.
func (s *Sequencer) Start() {
	s.Stop()
	s.running = true
	debug.Verbose("Countdown: scheduled (initial %v, start %v, tick %v)",
		s.timing.InitialDelay, s.timing.StartDelay, s.timing.TickInterval)

	s.after(s.timing.InitialDelay, func() {
		s.setLabel(LabelStart)
		s.after(s.timing.StartDelay, func() {
			s.stopTick = s.sched.Every(s.timing.TickInterval, s.tick)
			s.stopClear = s.sched.Every(s.timing.ClearInterval, s.clearTick)
		})
	})
}

// Stop cancels every pending callback. The label and flash are left as they are.
func (s *Sequencer) Stop() {
	for _, cancel := range s.pending {
		cancel()
	}
	s.pending = nil
	s.cancelTick()
	if s.stopClear != nil {
		s.stopClear()
		s.stopClear = nil
	}
	s.running = false
}

// Reset stops the sequencer and clears label and flash.
func (s *Sequencer) Reset() {
	s.Stop()
	s.justFlashed = false
	s.setFlash(FlashNone)
	s.setLabel(LabelNone)
}

func (s *Sequencer) after(d time.Duration, fn func()) {
	s.pending = append(s.pending, s.sched.After(d, fn))
}

func (s *Sequencer) cancelTick() {
	if s.stopTick != nil {
		s.stopTick()
		s.stopTick = nil
	}
}

func (s *Sequencer) tick() {
	if s.label == LabelStart {
		s.flashView(FlashDim)
		s.setLabel("1")
		return
	}

	if n, err := strconv.Atoi(s.label); err == nil && n < s.timing.Count {
		s.flashView(FlashDim)
		s.setLabel(strconv.Itoa(n + 1))
		return
	}

	s.flashView(FlashBright)
	s.cancelTick()
	if s.hooks.OnCapture != nil {
		s.hooks.OnCapture()
	}
	s.after(s.timing.NiceDelay, func() {
		s.clearTick()
		if s.stopClear != nil {
			s.stopClear()
			s.stopClear = nil
		}
		s.running = false
		s.setLabel(LabelNice)
	})
}

func (s *Sequencer) clearTick() {
	if s.justFlashed {
		s.justFlashed = false
		s.setFlash(FlashNone)
	}
}

func (s *Sequencer) flashView(f Flash) {
	s.justFlashed = true
	s.setFlash(f)
}

func (s *Sequencer) setFlash(f Flash) {
	if f == s.flash {
		return
	}
	s.flash = f
	debug.Trace("Flash: %s", f)
	if s.hooks.OnFlash != nil {
		s.hooks.OnFlash(f)
	}
}

func (s *Sequencer) setLabel(label string) {
	if label == s.label {
		return
	}
	s.label = label
	if label != LabelNone {
		debug.Tick(label)
	}
	if s.hooks.OnLabel != nil {
		s.hooks.OnLabel(label)
	}
}
