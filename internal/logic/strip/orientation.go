package strip

import (
	"image"

	"github.com/cjeanneret/BoothGo/internal/hw/camera"
	"github.com/disintegration/imaging"
)

// Normalize returns img transformed so that it displays upright.
//
// It works in two passes: first rotate for the Down, Left and Right
// families, then mirror the mirrored variants. Up is returned unchanged and
// unknown tags fall through untouched.
func Normalize(img image.Image, o camera.Orientation) image.Image {
	if o == camera.Up || !o.Valid() {
		return img
	}

	// imaging rotates counter-clockwise.
	var out image.Image = img
	switch o {
	case camera.Down, camera.DownMirrored:
		out = imaging.Rotate180(out)
	case camera.Left, camera.LeftMirrored:
		out = imaging.Rotate90(out)
	case camera.Right, camera.RightMirrored:
		out = imaging.Rotate270(out)
	}

	// After a quarter turn the original horizontal axis is vertical.
	switch o {
	case camera.UpMirrored, camera.DownMirrored:
		out = imaging.FlipH(out)
	case camera.LeftMirrored, camera.RightMirrored:
		out = imaging.FlipV(out)
	}
	return out
}
