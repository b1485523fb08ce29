package button

import (
	"context"
	"time"

	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/hw/gpio"
)

// Button is a momentary push button wired between a GPIO pin and GND.
// The pin uses the internal pull-up, so a press reads LOW.
type Button struct {
	gpio     gpio.Driver
	pin      int
	debounce time.Duration
	poll     time.Duration
}

// New configures pin as a pulled-up input.
// debounce is how long the pin must stay LOW before a press is reported.
func New(g gpio.Driver, pin int, debounce time.Duration) (*Button, error) {
	if err := g.SetupPin(pin, gpio.InputPullUp); err != nil {
		return nil, err
	}
	poll := debounce / 5
	if poll < time.Millisecond {
		poll = time.Millisecond
	}
	return &Button{
		gpio:     g,
		pin:      pin,
		debounce: debounce,
		poll:     poll,
	}, nil
}

// Watch polls the pin until ctx is cancelled and calls onPress once per press.
// A press is reported after the pin has been LOW for the debounce time; the
// button must be released before another press is reported.
func (b *Button) Watch(ctx context.Context, onPress func()) error {
	ticker := time.NewTicker(b.poll)
	defer ticker.Stop()

	var lowSince time.Time
	fired := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			level, err := b.gpio.ReadPin(b.pin)
			if err != nil {
				return err
			}
			if level == gpio.High {
				lowSince = time.Time{}
				fired = false
				continue
			}
			if lowSince.IsZero() {
				lowSince = now
			}
			if !fired && now.Sub(lowSince) >= b.debounce {
				fired = true
				debug.Live("Button: press on pin %d", b.pin)
				onPress()
			}
		}
	}
}
