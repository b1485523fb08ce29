package strip

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/hw/camera"
	"github.com/disintegration/imaging"
)

// DefaultPadding is the gap above, between and below photos.
const DefaultPadding = 10

var (
	ErrNoPhotos   = errors.New("strip: no photos")
	ErrEmptyImage = errors.New("strip: image has zero size")
)

// Background is the color of the padding around photos.
var Background = color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}

// Strip is an immutable set of upright photos plus the brand image.
// Photos are kept in reverse capture order.
type Strip struct {
	photos  []image.Image
	brand   image.Image
	padding int
}

// Option customizes a Strip.
type Option func(*Strip)

// WithPadding sets the gap in pixels.
func WithPadding(px int) Option {
	return func(s *Strip) {
		if px >= 0 {
			s.padding = px
		}
	}
}

// New validates the captured frames (in capture order) and the brand image,
// normalizes every photo and stores them reversed.
func New(frames []camera.Frame, brand image.Image, opts ...Option) (*Strip, error) {
	if len(frames) == 0 {
		return nil, ErrNoPhotos
	}
	if empty(brand) {
		return nil, fmt.Errorf("brand: %w", ErrEmptyImage)
	}
	s := &Strip{brand: brand, padding: DefaultPadding}
	for _, o := range opts {
		o(s)
	}
	s.photos = make([]image.Image, len(frames))
	for i, f := range frames {
		if empty(f.Image) {
			return nil, fmt.Errorf("photo %d: %w", i+1, ErrEmptyImage)
		}
		s.photos[len(frames)-1-i] = Normalize(f.Image, f.Orientation)
	}
	return s, nil
}

func empty(img image.Image) bool {
	if img == nil {
		return true
	}
	b := img.Bounds()
	return b.Dx() <= 0 || b.Dy() <= 0
}

// Len returns the number of photos.
func (s *Strip) Len() int { return len(s.photos) }

// Layout describes where every element goes on the canvas.
type Layout struct {
	Size   image.Point
	Photos []image.Rectangle
	Brand  image.Rectangle
}

// Layout computes the drawing-space layout: photos top to bottom in stored
// order at x=0, the brand anchored top-right.
func (s *Strip) Layout() Layout {
	width, height := 0, s.padding
	for _, p := range s.photos {
		b := p.Bounds()
		if b.Dx() > width {
			width = b.Dx()
		}
		height += b.Dy() + s.padding
	}

	l := Layout{Size: image.Pt(width, height)}
	y := s.padding
	for _, p := range s.photos {
		b := p.Bounds()
		l.Photos = append(l.Photos, image.Rect(0, y, b.Dx(), y+b.Dy()))
		y += b.Dy() + s.padding
	}
	bb := s.brand.Bounds()
	l.Brand = image.Rect(width-bb.Dx(), s.padding, width, s.padding+bb.Dy())
	return l
}

// Mirrored returns the layout flipped vertically, i.e. where elements land
// once the drawing-space raster is displayed.
func (l Layout) Mirrored() Layout {
	flip := func(r image.Rectangle) image.Rectangle {
		return image.Rect(r.Min.X, l.Size.Y-r.Max.Y, r.Max.X, l.Size.Y-r.Min.Y)
	}
	m := Layout{Size: l.Size, Brand: flip(l.Brand)}
	for _, r := range l.Photos {
		m.Photos = append(m.Photos, flip(r))
	}
	return m
}

// Compose draws the strip synchronously. Photos keep their upright pixels;
// only their placement is mirrored.
func (s *Strip) Compose() *image.NRGBA {
	l := s.Layout().Mirrored()
	canvas := imaging.New(l.Size.X, l.Size.Y, Background)
	for i, p := range s.photos {
		canvas = imaging.Paste(canvas, p, l.Photos[i].Min)
	}
	canvas = imaging.Overlay(canvas, s.brand, l.Brand.Min, 1.0)
	debug.Strip(l.Size.X, l.Size.Y, len(s.photos))
	return canvas
}

// Result is the outcome of an asynchronous render.
type Result struct {
	Image *image.NRGBA
	Err   error
}

// Render composes the strip on a background goroutine. The returned channel
// yields exactly one Result. Nothing is cached: every call composes again.
func (s *Strip) Render(ctx context.Context) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		if err := ctx.Err(); err != nil {
			ch <- Result{Err: err}
			return
		}
		img := s.Compose()
		if err := ctx.Err(); err != nil {
			ch <- Result{Err: err}
			return
		}
		ch <- Result{Image: img}
	}()
	return ch
}

// Preview scales img to the given height, keeping the aspect ratio.
// A non-positive height returns img unchanged.
func Preview(img image.Image, height int) image.Image {
	if height <= 0 || img.Bounds().Dy() == height {
		return img
	}
	return imaging.Resize(img, 0, height, imaging.Lanczos)
}

// EncodeJPEG writes img as JPEG at the given quality (1-100).
func EncodeJPEG(w io.Writer, img image.Image, quality int) error {
	if quality <= 0 || quality > 100 {
		quality = 84
	}
	return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
}
