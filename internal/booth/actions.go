package booth

import (
	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/dispatch"
)

func (b *Booth) act(a dispatch.Action) {
	if b.state != Showing {
		debug.Verbose("Booth: %s ignored while %s", a, b.state)
		return
	}
	debug.Info("Booth: action %s", a)
	switch a {
	case dispatch.Print:
		b.print()
	case dispatch.Email:
		b.email()
	case dispatch.StartOver:
		b.reset()
	case dispatch.Cancel:
		b.publish(Event{Type: EventDismiss})
	}
}

// print re-renders the strip and sends it to the printer. A successful job
// brings the prompt back.
func (b *Booth) print() {
	if b.busy {
		return
	}
	p := b.opts.Printer
	if p == nil {
		b.alert(&Alert{Kind: AlertPrintFailed, Err: dispatch.ErrPrintFailed})
		return
	}
	b.busy = true
	b.publish(Event{Type: EventDismiss})

	s, quality, ctx := b.strip, b.opts.JPEGQuality, b.ctx()
	go func() {
		_, data, err := encode(ctx, s, quality)
		if err == nil {
			err = p.Print(ctx, data)
		}
		b.post(func() {
			b.busy = false
			if err != nil {
				b.alert(classify(AlertPrintFailed, err))
				return
			}
			b.prompt()
		})
	}()
}

// email re-renders the strip and mails it to the booth recipient.
func (b *Booth) email() {
	if b.busy {
		return
	}
	m := b.opts.Mailer
	if m == nil {
		b.alert(&Alert{Kind: AlertMailUnavailable, Err: dispatch.ErrMailUnavailable})
		return
	}
	if err := m.Available(); err != nil {
		b.alert(&Alert{Kind: AlertMailUnavailable, Err: err})
		return
	}
	b.busy = true
	b.publish(Event{Type: EventDismiss})

	msg := dispatch.Message{
		Subject:        dispatch.Subject(b.opts.EventName, b.opts.Now()),
		Body:           b.opts.MailBody,
		AttachmentName: b.opts.AttachmentName,
	}
	s, quality, ctx := b.strip, b.opts.JPEGQuality, b.ctx()
	go func() {
		_, data, err := encode(ctx, s, quality)
		if err == nil {
			msg.Attachment = data
			err = m.Send(ctx, msg)
		}
		b.post(func() {
			b.busy = false
			if err != nil {
				b.alert(classify(AlertMailFailed, err))
				return
			}
			debug.Info("Mail: sent %q", msg.Subject)
			b.publish(Event{Type: EventDismiss, Message: "Sent!"})
		})
	}()
}
