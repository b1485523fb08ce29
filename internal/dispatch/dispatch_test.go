package dispatch

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"
	"time"

	gomail "github.com/wneessen/go-mail"
)

func TestParseAction(t *testing.T) {
	cases := []struct {
		in   string
		want Action
	}{
		{"print", Print},
		{"PRINT", Print},
		{" email ", Email},
		{"mail", Email},
		{"start-over", StartOver},
		{"Start Over", StartOver},
		{"startover", StartOver},
		{"cancel", Cancel},
		{"nevermind", Cancel},
	}
	for _, tc := range cases {
		got, err := ParseAction(tc.in)
		if err != nil {
			t.Errorf("ParseAction(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseAction(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
	if _, err := ParseAction("share"); err == nil {
		t.Error("expected error for unknown action")
	}
}

func TestAction_RoundTripNames(t *testing.T) {
	for _, a := range Actions {
		got, err := ParseAction(a.String())
		if err != nil || got != a {
			t.Errorf("ParseAction(%q) = %v, %v", a.String(), got, err)
		}
		if a.Title() == "" {
			t.Errorf("%v has no title", a)
		}
	}
}

func TestLPPrinter_Args(t *testing.T) {
	p := &LPPrinter{Printer: "selphy", Options: []string{"media=Postcard"}}
	want := []string{"-t", "PhotoStrip", "-o", "sides=one-sided", "-o", "print-content-optimize=photo", "-d", "selphy", "-o", "media=Postcard"}
	if got := p.Args(); !reflect.DeepEqual(got, want) {
		t.Errorf("Args() = %v, want %v", got, want)
	}
}

// fakeLP writes a script that records its arguments and stdin.
func fakeLP(t *testing.T, exit int) (cmd, argsFile, dataFile string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs /bin/sh")
	}
	dir := t.TempDir()
	argsFile = filepath.Join(dir, "args")
	dataFile = filepath.Join(dir, "data")
	cmd = filepath.Join(dir, "lp")
	script := "#!/bin/sh\necho \"$@\" > " + argsFile + "\ncat > " + dataFile + "\necho 'request id is booth-1'\nexit " + string(rune('0'+exit)) + "\n"
	if err := os.WriteFile(cmd, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return cmd, argsFile, dataFile
}

func TestLPPrinter_Print(t *testing.T) {
	cmd, argsFile, dataFile := fakeLP(t, 0)
	p := &LPPrinter{Command: cmd}
	if err := p.Print(context.Background(), []byte("jpegdata")); err != nil {
		t.Fatalf("Print: %v", err)
	}
	args, _ := os.ReadFile(argsFile)
	if got := strings.TrimSpace(string(args)); got != "-t PhotoStrip -o sides=one-sided -o print-content-optimize=photo" {
		t.Errorf("lp args = %q", got)
	}
	data, _ := os.ReadFile(dataFile)
	if string(data) != "jpegdata" {
		t.Errorf("lp stdin = %q", data)
	}
}

func TestLPPrinter_Failure(t *testing.T) {
	cmd, _, _ := fakeLP(t, 1)
	p := &LPPrinter{Command: cmd}
	err := p.Print(context.Background(), []byte("x"))
	if !errors.Is(err, ErrPrintFailed) {
		t.Fatalf("err = %v, want ErrPrintFailed", err)
	}
	if !strings.Contains(err.Error(), "request id") {
		t.Errorf("error should carry lp output: %v", err)
	}
}

func TestLPPrinter_EmptyImage(t *testing.T) {
	if err := (&LPPrinter{}).Print(context.Background(), nil); !errors.Is(err, ErrPrintFailed) {
		t.Errorf("err = %v, want ErrPrintFailed", err)
	}
}

func TestLPPrinter_MissingBinary(t *testing.T) {
	p := &LPPrinter{Command: filepath.Join(t.TempDir(), "no-lp")}
	if err := p.Print(context.Background(), []byte("x")); !errors.Is(err, ErrPrintFailed) {
		t.Errorf("err = %v, want ErrPrintFailed", err)
	}
}

func TestSubject(t *testing.T) {
	at := time.Date(2026, time.June, 6, 21, 4, 5, 0, time.UTC)
	got := Subject("Kim and Ben's Wedding", at)
	want := "Photo booth @ Kim and Ben's Wedding took a photo at Jun 6, 2026, 9:04:05 PM"
	if got != want {
		t.Errorf("Subject = %q, want %q", got, want)
	}
}

type sentMail struct {
	msg *gomail.Msg
	raw []byte
}

func newTestMailer(sent *sentMail, err error) *SMTPMailer {
	return &SMTPMailer{
		Host:     "smtp.example.com",
		Port:     2525,
		From:     "booth@example.com",
		To:       "guests@example.com",
		MaxBytes: 1 << 10,
		send: func(ctx context.Context, msg *gomail.Msg) error {
			var buf bytes.Buffer
			if _, werr := msg.WriteTo(&buf); werr != nil {
				return werr
			}
			*sent = sentMail{msg: msg, raw: buf.Bytes()}
			return err
		},
		now: func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) },
	}
}

// mailPart is one leaf of a parsed MIME tree.
type mailPart struct {
	contentType string
	filename    string
	encoding    string
	body        []byte
}

// leafParts flattens nested multiparts.
func leafParts(t *testing.T, contentType string, body io.Reader) []mailPart {
	t.Helper()
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		t.Fatalf("Content-Type %q: %v", contentType, err)
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		data, _ := io.ReadAll(body)
		return []mailPart{{contentType: mediaType, body: data}}
	}
	var out []mailPart
	mr := multipart.NewReader(body, params["boundary"])
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatal(err)
		}
		ct := p.Header.Get("Content-Type")
		if strings.HasPrefix(ct, "multipart/") {
			out = append(out, leafParts(t, ct, p)...)
			continue
		}
		data, _ := io.ReadAll(p)
		mt, _, _ := mime.ParseMediaType(ct)
		out = append(out, mailPart{
			contentType: mt,
			filename:    p.FileName(),
			encoding:    strings.ToLower(p.Header.Get("Content-Transfer-Encoding")),
			body:        data,
		})
	}
}

func TestSMTPMailer_Available(t *testing.T) {
	var m *SMTPMailer
	if !errors.Is(m.Available(), ErrMailUnavailable) {
		t.Error("nil mailer should be unavailable")
	}
	if !errors.Is((&SMTPMailer{Host: "h", From: "f"}).Available(), ErrMailUnavailable) {
		t.Error("mailer without recipient should be unavailable")
	}
	if err := newTestMailer(&sentMail{}, nil).Available(); err != nil {
		t.Errorf("configured mailer: %v", err)
	}
}

func TestSMTPMailer_Send(t *testing.T) {
	var sent sentMail
	m := newTestMailer(&sent, nil)
	jpeg := bytes.Repeat([]byte{0xFF, 0xD8, 0x42}, 100)
	err := m.Send(context.Background(), Message{
		Subject:        "Photo booth @ Test took a photo",
		Body:           "Thanks for coming! We love you!",
		AttachmentName: "PhotoBooth.jpeg",
		Attachment:     jpeg,
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if sent.msg == nil {
		t.Fatal("nothing was sent")
	}
	if rcpts, err := sent.msg.GetRecipients(); err != nil || len(rcpts) != 1 || rcpts[0] != "guests@example.com" {
		t.Errorf("recipients = %v (%v)", rcpts, err)
	}

	msg, err := mail.ReadMessage(bytes.NewReader(sent.raw))
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	subject, err := new(mime.WordDecoder).DecodeHeader(msg.Header.Get("Subject"))
	if err != nil || subject != "Photo booth @ Test took a photo" {
		t.Errorf("Subject = %q (%v)", subject, err)
	}
	if from := msg.Header.Get("From"); !strings.Contains(from, "booth@example.com") {
		t.Errorf("From = %q", from)
	}
	if date, err := msg.Header.Date(); err != nil || !date.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Errorf("Date = %v (%v)", date, err)
	}
	if id := msg.Header.Get("Message-Id"); !strings.HasSuffix(id, "@boothgo>") {
		t.Errorf("Message-ID = %q", id)
	}

	parts := leafParts(t, msg.Header.Get("Content-Type"), msg.Body)
	var text, att *mailPart
	for i := range parts {
		switch {
		case parts[i].filename != "":
			att = &parts[i]
		case parts[i].contentType == "text/plain":
			text = &parts[i]
		}
	}
	if text == nil || strings.TrimSpace(string(text.body)) != "Thanks for coming! We love you!" {
		t.Errorf("text part = %+v", text)
	}
	if att == nil {
		t.Fatal("no attachment")
	}
	if att.filename != "PhotoBooth.jpeg" || att.contentType != "image/jpeg" {
		t.Errorf("attachment = %s (%s)", att.filename, att.contentType)
	}
	if att.encoding != "base64" {
		t.Fatalf("attachment encoding = %q", att.encoding)
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.NewReplacer("\r", "", "\n", "").Replace(string(att.body)))
	if err != nil || !bytes.Equal(decoded, jpeg) {
		t.Errorf("attachment bytes differ (%v)", err)
	}
}

func TestSMTPMailer_Client(t *testing.T) {
	m := newTestMailer(&sentMail{}, nil)
	if _, err := m.client(); err != nil {
		t.Errorf("client without auth: %v", err)
	}
	m.Username, m.Password = "booth", "secret"
	if _, err := m.client(); err != nil {
		t.Errorf("client with auth: %v", err)
	}
	if m.addr() != "smtp.example.com:2525" {
		t.Errorf("addr = %q", m.addr())
	}
	m.Port = 0
	if m.addr() != "smtp.example.com:587" {
		t.Errorf("default addr = %q", m.addr())
	}
}

func TestSMTPMailer_BadAddress(t *testing.T) {
	var sent sentMail
	m := newTestMailer(&sent, nil)
	m.To = "not an address"
	if err := m.Send(context.Background(), Message{Body: "hi"}); err == nil {
		t.Fatal("expected error for bad recipient")
	}
	if sent.msg != nil {
		t.Error("relay should not be contacted")
	}
}

func TestSMTPMailer_TooLarge(t *testing.T) {
	var sent sentMail
	m := newTestMailer(&sent, nil)
	err := m.Send(context.Background(), Message{Attachment: make([]byte, 2<<10)})
	if !errors.Is(err, ErrAttachmentTooLarge) {
		t.Fatalf("err = %v, want ErrAttachmentTooLarge", err)
	}
	if sent.msg != nil {
		t.Error("relay should not be contacted")
	}
}

func TestSMTPMailer_SendError(t *testing.T) {
	relayErr := errors.New("554 relay denied")
	m := newTestMailer(&sentMail{}, relayErr)
	err := m.Send(context.Background(), Message{Body: "hi"})
	if !errors.Is(err, relayErr) {
		t.Fatalf("err = %v, want wrapped relay error", err)
	}
	if !strings.Contains(err.Error(), "554 relay denied") || !strings.Contains(err.Error(), "smtp.example.com:2525") {
		t.Errorf("error text lost: %v", err)
	}
}

func TestSMTPMailer_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := newTestMailer(&sentMail{}, nil)
	if err := m.Send(ctx, Message{}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestSMTPMailer_StuckRelayHonorsContext(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	m := newTestMailer(&sentMail{}, nil)
	m.send = func(ctx context.Context, msg *gomail.Msg) error {
		<-release
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := m.Send(ctx, Message{Body: "hi"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Send returned after %v", elapsed)
	}
}

func TestSMTPMailer_SilentServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			defer c.Close()
		}
	}()

	m := &SMTPMailer{
		Host:    "127.0.0.1",
		Port:    ln.Addr().(*net.TCPAddr).Port,
		From:    "booth@example.com",
		To:      "guests@example.com",
		Timeout: time.Second,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := m.Send(ctx, Message{Body: "hi"}); err == nil {
		t.Fatal("expected error from a relay that never greets")
	}
}
