package camera

import (
	"bytes"
	"fmt"
	"image"
	"os"

	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
)

// DecodeFile reads a captured photo from disk. Pixels are decoded without
// applying the EXIF orientation; the tag is returned separately.
func DecodeFile(path string) (image.Image, Orientation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read photo: %w", err)
	}
	return Decode(data)
}

// Decode decodes an encoded photo and its EXIF orientation (0 when absent).
func Decode(data []byte) (image.Image, Orientation, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("decode photo: %w", err)
	}
	return img, exifOrientation(data), nil
}

// exifOrientation returns the orientation tag of IFD0, or 0 when the photo
// has no usable one.
func exifOrientation(data []byte) Orientation {
	x, err := exif.Decode(bytes.NewReader(data))
	if x == nil {
		if err != nil {
			debug.Trace("EXIF: %v", err)
		}
		return 0
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 0
	}
	v, err := tag.Int(0)
	if err != nil {
		return 0
	}
	o := Orientation(v)
	if !o.Valid() {
		return 0
	}
	return o
}
