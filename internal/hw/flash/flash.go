package flash

import (
	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/hw/gpio"
)

// Light drives a relay or MOSFET that switches a light ring,
// mirroring the on-screen flash overlay in the room.
type Light struct {
	gpio gpio.Driver
	pin  int
	on   bool
}

// New configures pin as an output and switches the light off.
func New(g gpio.Driver, pin int) (*Light, error) {
	if err := g.SetupPin(pin, gpio.Output); err != nil {
		return nil, err
	}
	if err := g.WritePin(pin, gpio.Low); err != nil {
		return nil, err
	}
	return &Light{gpio: g, pin: pin}, nil
}

// Set switches the light on for any alpha above zero.
// Repeated calls with the same state do not touch the pin.
func (l *Light) Set(alpha float64) error {
	on := alpha > 0
	if on == l.on {
		return nil
	}
	level := gpio.Low
	if on {
		level = gpio.High
	}
	if err := l.gpio.WritePin(l.pin, level); err != nil {
		return err
	}
	l.on = on
	debug.Trace("Flash light: on=%v (alpha %.2f)", on, alpha)
	return nil
}

// On reports whether the light is currently switched on.
func (l *Light) On() bool { return l.on }
