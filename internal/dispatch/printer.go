package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/dustin/go-humanize"
)

// ErrPrintFailed wraps every error returned by a Printer.
var ErrPrintFailed = errors.New("printing failed")

// Printer sends one rendered strip to paper.
type Printer interface {
	Print(ctx context.Context, jpeg []byte) error
}

// LPPrinter submits jobs to CUPS with lp(1), feeding the JPEG on stdin.
type LPPrinter struct {
	Command string   // lp binary, default "lp"
	Printer string   // destination, empty for the CUPS default
	JobName string   // default "PhotoStrip"
	Options []string // extra -o options, e.g. "media=Postcard"
}

// Args returns the lp arguments for one job.
func (p *LPPrinter) Args() []string {
	job := p.JobName
	if job == "" {
		job = "PhotoStrip"
	}
	args := []string{"-t", job, "-o", "sides=one-sided", "-o", "print-content-optimize=photo"}
	if p.Printer != "" {
		args = append(args, "-d", p.Printer)
	}
	for _, o := range p.Options {
		args = append(args, "-o", o)
	}
	return args
}

func (p *LPPrinter) command() string {
	if p.Command == "" {
		return "lp"
	}
	return p.Command
}

// Print runs lp once. There is no retry; the guest may print again.
func (p *LPPrinter) Print(ctx context.Context, jpeg []byte) error {
	if len(jpeg) == 0 {
		return fmt.Errorf("%w: empty image", ErrPrintFailed)
	}
	args := p.Args()
	debug.Info("Print: %s %s (%s)", p.command(), strings.Join(args, " "), humanize.Bytes(uint64(len(jpeg))))

	cmd := exec.CommandContext(ctx, p.command(), args...)
	cmd.Stdin = bytes.NewReader(jpeg)
	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return fmt.Errorf("%w: %v", ErrPrintFailed, err)
		}
		return fmt.Errorf("%w: %v: %s", ErrPrintFailed, err, msg)
	}
	debug.Live("Print: %s", strings.TrimSpace(string(out)))
	return nil
}
