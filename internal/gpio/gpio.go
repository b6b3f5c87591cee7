// Package gpio provides digital pin access with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Input reads a single digital input line.
type Input interface {
	// Value returns the raw line level: true = high, false = low.
	// No inversion is applied; polarity is the caller's concern.
	Value() (bool, error)
}

// Output drives a single digital output line.
type Output interface {
	// Set drives the line high (true) or low (false).
	Set(high bool) error
}

// Bias selects the internal resistor applied to an input line.
type Bias int

const (
	BiasPullDown Bias = iota
	BiasPullUp
)

// DefaultChip is the GPIO character device on a Raspberry Pi header.
const DefaultChip = "gpiochip0"
