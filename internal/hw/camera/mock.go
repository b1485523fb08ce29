package camera

import (
	"context"
	"image"
	"image/color"
	"sync"

	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/disintegration/imaging"
)

// Mock produces synthetic frames for development without a camera.
// Each frame is filled with a different color so strips are easy to check.
type Mock struct {
	settings Settings
	width    int
	height   int

	mu    sync.Mutex
	shots int
	// Err, when set, is returned by Capture instead of a frame.
	Err error
	// Missing makes Available report ErrUnavailable.
	Missing bool
}

var mockPalette = []color.NRGBA{
	{R: 0xE6, G: 0x39, B: 0x46, A: 0xFF},
	{R: 0x45, G: 0x7B, B: 0x9D, A: 0xFF},
	{R: 0x2A, G: 0x9D, B: 0x8F, A: 0xFF},
	{R: 0xF4, G: 0xA2, B: 0x61, A: 0xFF},
}

// NewMock creates a mock camera producing width x height frames.
func NewMock(s Settings, width, height int) *Mock {
	return &Mock{settings: s, width: width, height: height}
}

func (m *Mock) Available() error {
	if m.Missing {
		return ErrUnavailable
	}
	return nil
}

func (m *Mock) Capture(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if m.Err != nil {
		return Frame{}, m.Err
	}
	m.mu.Lock()
	n := m.shots
	m.shots++
	m.mu.Unlock()

	img := imaging.New(m.width, m.height, mockPalette[n%len(mockPalette)])
	// Mark the top-left corner so orientation mistakes are visible.
	corner := imaging.New(m.width/8+1, m.height/8+1, color.NRGBA{A: 0xFF})
	img = imaging.Paste(img, corner, image.Pt(0, 0))

	debug.Trace("Mock camera: frame %d (%dx%d, %s)", n+1, m.width, m.height, m.settings.Device)
	return Frame{Image: img, Orientation: m.settings.tag(Up)}, nil
}

// Shots returns how many frames were captured.
func (m *Mock) Shots() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shots
}
