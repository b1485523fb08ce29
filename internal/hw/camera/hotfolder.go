package camera

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/fsnotify/fsnotify"
)

// settleDelay is how long a new file must stay unchanged before it is read.
const settleDelay = 200 * time.Millisecond

// HotFolder captures with a tethered camera that drops every exposure into
// a directory (gphoto2 --capture-tethered, vendor tether tools, ...).
// An optional Shooter fires the exposure; without one the guest presses
// the camera's own remote.
type HotFolder struct {
	settings Settings
	dir      string
	shutter  Shooter
	timeout  time.Duration
}

// NewHotFolder watches dir for new photos. shutter may be nil.
func NewHotFolder(s Settings, dir string, shutter Shooter, timeout time.Duration) *HotFolder {
	return &HotFolder{settings: s, dir: dir, shutter: shutter, timeout: timeout}
}

func (h *HotFolder) Available() error {
	info, err := os.Stat(h.dir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrUnavailable, h.dir)
	}
	return nil
}

func (h *HotFolder) Capture(ctx context.Context) (Frame, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return Frame{}, fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(h.dir); err != nil {
		return Frame{}, fmt.Errorf("watch %s: %w", h.dir, err)
	}

	if h.shutter != nil {
		if err := h.shutter.Shoot(); err != nil {
			return Frame{}, fmt.Errorf("fire shutter: %w", err)
		}
	}

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	path, err := waitForPhoto(ctx, watcher)
	if err != nil {
		return Frame{}, err
	}
	debug.Verbose("Camera: new photo in hot folder: %s", filepath.Base(path))

	img, reported, err := DecodeFile(path)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Image: img, Orientation: h.settings.tag(reported)}, nil
}

// waitForPhoto returns the first image file created in the watched directory,
// once it has stopped changing for settleDelay.
func waitForPhoto(ctx context.Context, w *fsnotify.Watcher) (string, error) {
	var (
		candidate string
		settle    *time.Timer
		settled   <-chan time.Time
	)
	defer func() {
		if settle != nil {
			settle.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("waiting for photo: %w", ctx.Err())

		case err, ok := <-w.Errors:
			if !ok {
				return "", fmt.Errorf("watcher closed")
			}
			return "", fmt.Errorf("watcher: %w", err)

		case event, ok := <-w.Events:
			if !ok {
				return "", fmt.Errorf("watcher closed")
			}
			if !isPhoto(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if candidate == "" {
				candidate = event.Name
			}
			if event.Name != candidate {
				continue
			}
			if settle == nil {
				settle = time.NewTimer(settleDelay)
			} else {
				if !settle.Stop() {
					select {
					case <-settle.C:
					default:
					}
				}
				settle.Reset(settleDelay)
			}
			settled = settle.C

		case <-settled:
			return candidate, nil
		}
	}
}

func isPhoto(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png":
		return !strings.HasPrefix(filepath.Base(name), ".")
	}
	return false
}
