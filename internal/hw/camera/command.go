package camera

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/cjeanneret/BoothGo/internal/debug"
)

// Command captures stills by running an external tool such as
// libcamera-still, fswebcam or gphoto2. The argv may contain the
// placeholders "{output}" (file to write) and "{device}" (front/rear).
type Command struct {
	settings Settings
	argv     []string
	timeout  time.Duration
	tmpDir   string
}

// NewCommand creates a command camera. timeout bounds a single capture.
func NewCommand(s Settings, argv []string, timeout time.Duration) (*Command, error) {
	if len(argv) == 0 {
		return nil, errors.New("camera command is empty")
	}
	hasOutput := false
	for _, a := range argv {
		if strings.Contains(a, "{output}") {
			hasOutput = true
		}
	}
	if !hasOutput {
		return nil, errors.New("camera command must contain {output}")
	}
	return &Command{
		settings: s,
		argv:     argv,
		timeout:  timeout,
		tmpDir:   os.TempDir(),
	}, nil
}

func (c *Command) Available() error {
	if _, err := exec.LookPath(c.argv[0]); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (c *Command) Capture(ctx context.Context) (Frame, error) {
	f, err := os.CreateTemp(c.tmpDir, "boothgo-*.jpg")
	if err != nil {
		return Frame{}, fmt.Errorf("create capture file: %w", err)
	}
	out := f.Name()
	f.Close()
	defer os.Remove(out)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := c.expand(out)
	debug.Verbose("Camera: running %s", strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return Frame{}, fmt.Errorf("capture command %s: %w (%s)", filepath.Base(args[0]), err, strings.TrimSpace(string(output)))
	}

	img, reported, err := DecodeFile(out)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Image: img, Orientation: c.settings.tag(reported)}, nil
}

func (c *Command) expand(output string) []string {
	r := strings.NewReplacer("{output}", output, "{device}", c.settings.Device)
	args := make([]string, len(c.argv))
	for i, a := range c.argv {
		args[i] = r.Replace(a)
	}
	return args
}
