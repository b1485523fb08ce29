package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/wneessen/go-mail"
)

var (
	// ErrMailUnavailable means the booth has no way to send mail.
	ErrMailUnavailable = errors.New("can't send mail")
	// ErrAttachmentTooLarge is returned before contacting the server.
	ErrAttachmentTooLarge = errors.New("attachment too large")
)

// SubjectLayout renders times like "Jan 2, 2006, 3:04:05 PM".
const SubjectLayout = "Jan 2, 2006, 3:04:05 PM"

// Subject returns the mail subject for a strip taken at t.
func Subject(event string, t time.Time) string {
	return fmt.Sprintf("Photo booth @ %s took a photo at %s", event, t.Format(SubjectLayout))
}

// Message is one outgoing mail with a single JPEG attachment.
type Message struct {
	Subject        string
	Body           string
	AttachmentName string
	Attachment     []byte
}

// Mailer delivers messages to the fixed booth recipient.
type Mailer interface {
	Available() error
	Send(ctx context.Context, m Message) error
}

type sendFunc func(ctx context.Context, msg *mail.Msg) error

// DefaultMailTimeout bounds one SMTP conversation.
const DefaultMailTimeout = 30 * time.Second

// SMTPMailer sends through an SMTP relay with optional PLAIN auth.
// STARTTLS is used when the relay offers it.
type SMTPMailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
	MaxBytes int64
	Timeout  time.Duration // default DefaultMailTimeout

	send sendFunc
	now  func() time.Time
}

// Available reports ErrMailUnavailable when the relay is not configured.
func (m *SMTPMailer) Available() error {
	if m == nil || m.Host == "" || m.From == "" || m.To == "" {
		return ErrMailUnavailable
	}
	return nil
}

func (m *SMTPMailer) port() int {
	if m.Port == 0 {
		return 587
	}
	return m.Port
}

func (m *SMTPMailer) addr() string {
	return net.JoinHostPort(m.Host, strconv.Itoa(m.port()))
}

func (m *SMTPMailer) client() (*mail.Client, error) {
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = DefaultMailTimeout
	}
	opts := []mail.Option{
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
		mail.WithPort(m.port()),
		mail.WithTimeout(timeout),
	}
	if m.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.Username),
			mail.WithPassword(m.Password),
		)
	}
	return mail.NewClient(m.Host, opts...)
}

func (m *SMTPMailer) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	c, err := m.client()
	if err != nil {
		return err
	}
	return c.DialAndSendWithContext(ctx, msg)
}

// Send builds the message and hands it to the relay. It returns as soon as
// ctx is done, even if the relay has not answered.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := m.Available(); err != nil {
		return err
	}
	if m.MaxBytes > 0 && int64(len(msg.Attachment)) > m.MaxBytes {
		return fmt.Errorf("%w: %s exceeds %s", ErrAttachmentTooLarge,
			humanize.IBytes(uint64(len(msg.Attachment))), humanize.IBytes(uint64(m.MaxBytes)))
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	now := time.Now
	if m.now != nil {
		now = m.now
	}
	mm, err := m.build(msg, now())
	if err != nil {
		return err
	}

	send := m.send
	if send == nil {
		send = m.dialAndSend
	}
	debug.Info("Mail: sending %q to %s (%s)", msg.AttachmentName, m.To, humanize.Bytes(uint64(len(msg.Attachment))))
	errc := make(chan error, 1)
	go func() { errc <- send(ctx, mm) }()
	select {
	case err = <-errc:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("send mail via %s: %w", m.addr(), err)
	}
	return nil
}

func (m *SMTPMailer) build(msg Message, date time.Time) (*mail.Msg, error) {
	mm := mail.NewMsg()
	if err := mm.From(m.From); err != nil {
		return nil, fmt.Errorf("mail from %q: %w", m.From, err)
	}
	if err := mm.To(m.To); err != nil {
		return nil, fmt.Errorf("mail to %q: %w", m.To, err)
	}
	mm.Subject(msg.Subject)
	mm.SetDateWithValue(date)
	mm.SetMessageIDWithValue(uuid.NewString() + "@boothgo")
	mm.SetBodyString(mail.TypeTextPlain, msg.Body)

	if len(msg.Attachment) > 0 {
		name := msg.AttachmentName
		if name == "" {
			name = "PhotoBooth.jpeg"
		}
		err := mm.AttachReader(name, bytes.NewReader(msg.Attachment),
			mail.WithFileContentType(mail.ContentType("image/jpeg")))
		if err != nil {
			return nil, fmt.Errorf("attach %s: %w", name, err)
		}
	}
	return mm, nil
}
