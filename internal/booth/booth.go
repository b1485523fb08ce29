package booth

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/cjeanneret/BoothGo/internal/archive"
	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/dispatch"
	"github.com/cjeanneret/BoothGo/internal/hw/camera"
	"github.com/cjeanneret/BoothGo/internal/logic/capture"
	"github.com/cjeanneret/BoothGo/internal/logic/strip"
	"github.com/cjeanneret/BoothGo/internal/logic/transition"
)

// State is the coarse screen state.
type State int

const (
	Idle      State = iota // attract screen
	Capturing              // countdown and captures running
	Rendering              // photos taken, strip being composed
	Showing                // strip on screen, prompt available
)

func (s State) String() string {
	switch s {
	case Capturing:
		return "capturing"
	case Rendering:
		return "rendering"
	case Showing:
		return "showing"
	}
	return "idle"
}

// Archiver keeps every rendered strip.
type Archiver interface {
	Save(ctx context.Context, e archive.Entry) (archive.Record, error)
}

// Options wires a Booth. Camera and Brand are required.
type Options struct {
	Camera camera.Camera
	Brand  image.Image

	Timing         capture.Timing
	PhotosPerStrip int
	Padding        int
	JPEGQuality    int
	PromptDelay    time.Duration

	TransitionDuration time.Duration
	TransitionFPS      int

	EventName      string
	MailBody       string
	AttachmentName string

	Printer  dispatch.Printer // nil disables printing
	Mailer   dispatch.Mailer  // nil means mail is unavailable
	Archiver Archiver         // optional

	// Scheduler overrides the real-time scheduler. Callbacks must run on
	// the event loop, see Do.
	Scheduler capture.Scheduler
	Now       func() time.Time
}

// Status is a snapshot safe to read from any goroutine.
type Status struct {
	State   string  `json:"state"`
	Label   string  `json:"label"`
	Flash   float64 `json:"flash"`
	Taken   int     `json:"taken"`
	Total   int     `json:"total"`
	Version int     `json:"strip_version"`
}

// Booth is the controller. All fields below mu are owned by the event loop.
type Booth struct {
	opts   Options
	events chan func()
	done   chan struct{}
	sinks  sinks

	mu       sync.RWMutex
	status   Status
	latest   []byte
	runCtx   context.Context
	stopOnce sync.Once

	sched   capture.Scheduler
	seq     *capture.Sequencer
	fade    *transition.Animator
	state   State
	session *capture.Session
	strip   *strip.Strip
	version int
	next    bool // restart the countdown once "Nice!" is shown
	busy    bool // a print or mail job is in flight

	cancelPrompt func()
}

// New validates opts and builds an idle booth. Call Run to start it.
func New(opts Options) (*Booth, error) {
	if opts.Camera == nil {
		return nil, errors.New("booth: camera is required")
	}
	if opts.Brand == nil {
		return nil, errors.New("booth: brand image is required")
	}
	if opts.PhotosPerStrip <= 0 {
		opts.PhotosPerStrip = 3
	}
	if opts.Timing.Count <= 0 {
		opts.Timing = capture.DefaultTiming()
	}
	if opts.Padding <= 0 {
		opts.Padding = strip.DefaultPadding
	}
	if opts.JPEGQuality <= 0 {
		opts.JPEGQuality = 84
	}
	if opts.PromptDelay <= 0 {
		opts.PromptDelay = time.Second
	}
	if opts.AttachmentName == "" {
		opts.AttachmentName = "PhotoBooth.jpeg"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	b := &Booth{
		opts:   opts,
		events: make(chan func(), 64),
		done:   make(chan struct{}),
		runCtx: context.Background(),
	}
	b.sched = opts.Scheduler
	if b.sched == nil {
		b.sched = capture.NewLoopScheduler(b.post)
	}
	b.seq = capture.NewSequencer(b.sched, opts.Timing, capture.Hooks{
		OnLabel:   b.onLabel,
		OnFlash:   b.onFlash,
		OnCapture: b.onCapture,
	})
	b.fade = transition.New(b.sched, opts.TransitionDuration, opts.TransitionFPS)
	b.status = Status{State: Idle.String(), Total: opts.PhotosPerStrip}
	return b, nil
}

// Subscribe adds a sink. Safe from any goroutine.
func (b *Booth) Subscribe(s Sink) { b.sinks.add(s) }

// Run executes the event loop until ctx is done.
func (b *Booth) Run(ctx context.Context) error {
	b.mu.Lock()
	b.runCtx = ctx
	b.mu.Unlock()
	defer b.stopOnce.Do(func() { close(b.done) })

	debug.Info("Booth: ready (%d photos per strip)", b.opts.PhotosPerStrip)
	for {
		select {
		case <-ctx.Done():
			b.seq.Stop()
			b.fade.Cancel()
			return ctx.Err()
		case fn := <-b.events:
			fn()
		}
	}
}

// post queues fn on the event loop. It is dropped once the loop has exited.
func (b *Booth) post(fn func()) {
	select {
	case b.events <- fn:
	case <-b.done:
	}
}

// Do runs fn on the event loop and waits for it. It must not be called from
// the loop itself.
func (b *Booth) Do(fn func()) {
	ch := make(chan struct{})
	b.post(func() {
		defer close(ch)
		fn()
	})
	select {
	case <-ch:
	case <-b.done:
	}
}

// Tap is a touch on the screen or a press of the trigger button.
func (b *Booth) Tap() { b.post(b.tap) }

// Act runs one prompt action.
func (b *Booth) Act(a dispatch.Action) { b.post(func() { b.act(a) }) }

// Status returns the latest snapshot.
func (b *Booth) Status() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status
}

// StripJPEG returns the strip currently on screen.
func (b *Booth) StripJPEG() ([]byte, int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.latest == nil {
		return nil, 0, ErrNoStrip
	}
	return b.latest, b.status.Version, nil
}

func (b *Booth) ctx() context.Context {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.runCtx
}

func (b *Booth) update(fn func(s *Status)) {
	b.mu.Lock()
	fn(&b.status)
	b.mu.Unlock()
}

func (b *Booth) publish(e Event) { b.sinks.publish(e) }

func (b *Booth) setState(s State) {
	if b.state == s {
		return
	}
	b.state = s
	b.update(func(st *Status) { st.State = s.String() })
	debug.Verbose("Booth: state %s", s)
	b.publish(Event{Type: EventState, State: s.String()})
}

func (b *Booth) alert(a *Alert) {
	debug.Error(a)
	b.publish(Event{Type: EventAlert, Alert: string(a.Kind), Message: a.Message()})
}

// fadeHost forwards transition frames to the sinks.
type fadeHost struct{ b *Booth }

func (h fadeHost) Frame(f transition.Frame) {
	h.b.publish(Event{Type: EventTransition, Mode: f.Mode.String(), In: f.In, Out: f.Out})
}

// Complete advances the flow only for fades that ran to the end; a fade cut
// off by a newer one or by shutdown leaves the state alone.
func (h fadeHost) Complete(m transition.Mode, finished bool) {
	debug.Verbose("Transition: %s complete (finished=%v)", m, finished)
	if !finished {
		return
	}
	h.b.fadeDone(m)
}
