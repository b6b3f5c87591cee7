//go:build linux

package gpio

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// Chip hands out input and output lines from a Linux GPIO character device.
type Chip struct {
	chip    *gpiocdev.Chip
	inputs  []*gpiocdev.Line
	outputs []*gpiocdev.Line
}

// Line is a requested GPIO line. It satisfies both Input and Output;
// which one applies depends on how it was requested.
type Line struct {
	line *gpiocdev.Line
}

// OpenChip opens the named GPIO chip (e.g. "gpiochip0").
func OpenChip(name string) (*Chip, error) {
	chip, err := gpiocdev.NewChip(name)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", name, err)
	}
	return &Chip{chip: chip}, nil
}

// Input requests the pin (BCM numbering) as an input with the given bias.
func (c *Chip) Input(pin int, bias Bias) (*Line, error) {
	biasOpt := gpiocdev.WithPullDown
	if bias == BiasPullUp {
		biasOpt = gpiocdev.WithPullUp
	}
	l, err := c.chip.RequestLine(pin, gpiocdev.AsInput, biasOpt)
	if err != nil {
		return nil, fmt.Errorf("request input pin %d: %w", pin, err)
	}
	c.inputs = append(c.inputs, l)
	return &Line{line: l}, nil
}

// Output requests the pin (BCM numbering) as an output, initially low.
func (c *Chip) Output(pin int) (*Line, error) {
	l, err := c.chip.RequestLine(pin, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("request output pin %d: %w", pin, err)
	}
	c.outputs = append(c.outputs, l)
	return &Line{line: l}, nil
}

// Value returns the raw line level.
func (l *Line) Value() (bool, error) {
	v, err := l.line.Value()
	if err != nil {
		return false, fmt.Errorf("read line %d: %w", l.line.Offset(), err)
	}
	return v != 0, nil
}

// Set drives the line.
func (l *Line) Set(high bool) error {
	v := 0
	if high {
		v = 1
	}
	if err := l.line.SetValue(v); err != nil {
		return fmt.Errorf("write line %d: %w", l.line.Offset(), err)
	}
	return nil
}

// Close releases all requested lines and the chip.
// Every line is reconfigured to input with pull-down (matching Pi boot
// defaults) before closing, so the relay and LEDs are released and the
// pins are in a clean state for reboot.
func (c *Chip) Close() error {
	var errs []error

	for _, l := range append(c.outputs, c.inputs...) {
		if err := l.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", l.Offset(), err))
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", l.Offset(), err))
		}
	}
	c.inputs, c.outputs = nil, nil

	if c.chip != nil {
		if err := c.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	return errors.Join(errs...)
}
