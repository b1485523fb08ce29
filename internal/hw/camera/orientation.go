package camera

import "fmt"

// Orientation uses the EXIF orientation values (1..8).
// Zero means "unknown" and is treated as a no-op by normalization.
type Orientation int

const (
	Up            Orientation = 1
	UpMirrored    Orientation = 2
	Down          Orientation = 3
	DownMirrored  Orientation = 4
	LeftMirrored  Orientation = 5
	Right         Orientation = 6
	RightMirrored Orientation = 7
	Left          Orientation = 8
)

var orientationNames = map[Orientation]string{
	Up:            "up",
	UpMirrored:    "up-mirrored",
	Down:          "down",
	DownMirrored:  "down-mirrored",
	LeftMirrored:  "left-mirrored",
	Right:         "right",
	RightMirrored: "right-mirrored",
	Left:          "left",
}

func (o Orientation) String() string {
	if n, ok := orientationNames[o]; ok {
		return n
	}
	return fmt.Sprintf("orientation(%d)", int(o))
}

// Valid reports whether o is one of the eight EXIF orientations.
func (o Orientation) Valid() bool {
	return o >= Up && o <= Left
}

// Mirrored reports whether o includes a horizontal flip.
func (o Orientation) Mirrored() bool {
	switch o {
	case UpMirrored, DownMirrored, LeftMirrored, RightMirrored:
		return true
	}
	return false
}

// Transposed reports whether upright pixels have width and height swapped.
func (o Orientation) Transposed() bool {
	switch o {
	case Left, LeftMirrored, Right, RightMirrored:
		return true
	}
	return false
}
