//go:build !linux

package gpio

import "errors"

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// Chip is not available on non-Linux platforms.
type Chip struct{}

// Line is not available on non-Linux platforms.
type Line struct{}

// OpenChip returns an error on non-Linux platforms.
func OpenChip(name string) (*Chip, error) {
	return nil, errUnsupported
}

// Input is not implemented on non-Linux platforms.
func (c *Chip) Input(pin int, bias Bias) (*Line, error) {
	return nil, errUnsupported
}

// Output is not implemented on non-Linux platforms.
func (c *Chip) Output(pin int) (*Line, error) {
	return nil, errUnsupported
}

// Value is not implemented on non-Linux platforms.
func (l *Line) Value() (bool, error) {
	return false, errUnsupported
}

// Set is not implemented on non-Linux platforms.
func (l *Line) Set(high bool) error {
	return errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (c *Chip) Close() error {
	return nil
}
