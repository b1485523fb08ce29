package booth

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/cjeanneret/BoothGo/internal/archive"
	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/hw/camera"
	"github.com/cjeanneret/BoothGo/internal/logic/capture"
	"github.com/cjeanneret/BoothGo/internal/logic/strip"
	"github.com/cjeanneret/BoothGo/internal/logic/transition"
	"github.com/google/uuid"
)

// promptMessage is the title of the action prompt.
const promptMessage = "Awesome!"

func (b *Booth) tap() {
	switch b.state {
	case Showing:
		b.prompt()
	case Idle:
		b.startSession()
	default:
		debug.Verbose("Booth: tap ignored while %s", b.state)
	}
}

func (b *Booth) startSession() {
	if err := b.opts.Camera.Available(); err != nil {
		b.alert(&Alert{Kind: AlertCameraUnavailable, Err: err})
		return
	}
	b.session = capture.NewSession(b.opts.PhotosPerStrip)
	b.next = false
	debug.Summary("Session " + b.session.ID.String())
	b.setState(Capturing)
	b.setProgress()
	b.fade.Animate(transition.Presenting, fadeHost{b})
}

func (b *Booth) fadeDone(m transition.Mode) {
	switch {
	case m == transition.Presenting && b.state == Capturing:
		b.seq.Start()
	case m == transition.Dismissing && b.state == Rendering:
		b.render()
	}
}

func (b *Booth) setProgress() {
	taken := 0
	if b.session != nil {
		taken = b.session.Taken()
	}
	b.update(func(s *Status) { s.Taken = taken })
	b.publish(Event{Type: EventProgress, Taken: taken, Total: b.opts.PhotosPerStrip})
}

func (b *Booth) onLabel(label string) {
	b.update(func(s *Status) { s.Label = label })
	b.publish(Event{Type: EventLabel, Label: label})
	if label == capture.LabelNice && b.next {
		b.next = false
		b.seq.Start()
	}
}

func (b *Booth) onFlash(f capture.Flash) {
	b.update(func(s *Status) { s.Flash = f.Alpha() })
	b.publish(Event{Type: EventFlash, Alpha: f.Alpha()})
}

// onCapture runs the camera off the loop; the frame comes back through post.
func (b *Booth) onCapture() {
	if b.session == nil || b.session.Complete() {
		return
	}
	id := b.session.ID
	cam := b.opts.Camera
	ctx := b.ctx()
	go func() {
		f, err := cam.Capture(ctx)
		b.post(func() { b.captured(id, f, err) })
	}()
}

func (b *Booth) captured(id uuid.UUID, f camera.Frame, err error) {
	if b.session == nil || b.session.ID != id || b.state != Capturing {
		debug.Verbose("Booth: dropping photo from a finished session")
		return
	}
	if err != nil {
		b.alert(classify(AlertCaptureFailed, err))
		b.reset()
		return
	}
	done, err := b.session.Add(f)
	if err != nil {
		b.alert(classify(AlertCaptureFailed, err))
		b.reset()
		return
	}
	b.setProgress()
	if !done {
		if b.seq.Running() {
			b.next = true
		} else {
			b.seq.Start()
		}
		return
	}
	b.setState(Rendering)
	b.fade.Animate(transition.Dismissing, fadeHost{b})
}

func (b *Booth) render() {
	s, err := strip.New(b.session.Photos(), b.opts.Brand, strip.WithPadding(b.opts.Padding))
	if err != nil {
		b.alert(classify(AlertRenderFailed, err))
		b.reset()
		return
	}
	b.seq.Reset()
	b.strip = s
	b.version++

	version := b.version
	session := b.session.ID.String()
	quality := b.opts.JPEGQuality
	ctx := b.ctx()
	go func() {
		img, data, err := encode(ctx, s, quality)
		b.post(func() { b.rendered(version, session, img, data, err) })
	}()
}

// encode renders s and returns the raster with its JPEG bytes.
func encode(ctx context.Context, s *strip.Strip, quality int) (image.Image, []byte, error) {
	res := <-s.Render(ctx)
	if res.Err != nil {
		return nil, nil, res.Err
	}
	var buf bytes.Buffer
	if err := strip.EncodeJPEG(&buf, res.Image, quality); err != nil {
		return nil, nil, fmt.Errorf("encode strip: %w", err)
	}
	return res.Image, buf.Bytes(), nil
}

func (b *Booth) rendered(version int, session string, img image.Image, data []byte, err error) {
	if version != b.version || b.state != Rendering {
		return
	}
	if err != nil {
		b.alert(classify(AlertRenderFailed, err))
		b.reset()
		return
	}
	b.mu.Lock()
	b.latest = data
	b.status.Version = version
	b.mu.Unlock()

	size := img.Bounds().Size()
	b.setState(Showing)
	b.publish(Event{Type: EventStrip, Width: size.X, Height: size.Y, Version: version})
	b.save(session, data, size)
	b.cancelPrompt = b.sched.After(b.opts.PromptDelay, b.prompt)
}

func (b *Booth) save(session string, data []byte, size image.Point) {
	a := b.opts.Archiver
	if a == nil {
		return
	}
	e := archive.Entry{
		Session: session,
		JPEG:    data,
		Width:   size.X,
		Height:  size.Y,
		Photos:  b.strip.Len(),
	}
	ctx := b.ctx()
	go func() {
		rec, err := a.Save(ctx, e)
		if err != nil {
			debug.Error(fmt.Errorf("archive: %w", err))
			return
		}
		b.post(func() { b.publish(Event{Type: EventArchived, ID: rec.ID}) })
	}()
}

func (b *Booth) prompt() {
	if b.cancelPrompt != nil {
		b.cancelPrompt()
		b.cancelPrompt = nil
	}
	if b.state != Showing {
		return
	}
	b.publish(Event{Type: EventPrompt, Message: promptMessage, Actions: PromptActions()})
}

// reset discards the session and the strip and returns to the attract screen.
func (b *Booth) reset() {
	wasCapturing := b.state == Capturing || b.state == Rendering
	b.seq.Reset()
	if b.cancelPrompt != nil {
		b.cancelPrompt()
		b.cancelPrompt = nil
	}
	b.session = nil
	b.strip = nil
	b.next = false

	b.mu.Lock()
	b.latest = nil
	b.status.Taken = 0
	b.status.Version = 0
	b.mu.Unlock()

	b.setState(Idle)
	b.publish(Event{Type: EventReset})
	if wasCapturing {
		b.fade.Animate(transition.Dismissing, fadeHost{b})
	}
}
