package gpio

import "errors"

// FakeInput is a test double that returns scripted line levels.
type FakeInput struct {
	// Levels contains scripted values to return.
	// Each call to Value() consumes the next level.
	Levels []bool

	// index tracks current position in Levels
	index int

	// Reads counts calls to Value.
	Reads int

	// ReadError, if set, will be returned by Value()
	ReadError error
}

// NewFakeInput creates a FakeInput with the given levels.
func NewFakeInput(levels ...bool) *FakeInput {
	return &FakeInput{Levels: levels}
}

// Value returns the next scripted level.
// If levels are exhausted, returns the last level repeatedly.
func (f *FakeInput) Value() (bool, error) {
	f.Reads++
	if f.ReadError != nil {
		return false, f.ReadError
	}

	if len(f.Levels) == 0 {
		return false, errors.New("no levels configured")
	}

	level := f.Levels[f.index]
	if f.index < len(f.Levels)-1 {
		f.index++
	}

	return level, nil
}

// Hold replaces the script with a single level returned from now on.
func (f *FakeInput) Hold(level bool) {
	f.Levels = []bool{level}
	f.index = 0
}

// Reset rewinds the script to the first level.
func (f *FakeInput) Reset() {
	f.index = 0
	f.Reads = 0
}

// FakeOutput records the levels written to it.
type FakeOutput struct {
	// High is the current line level.
	High bool

	// Writes counts calls to Set.
	Writes int

	// Changes records every level that differed from the previous one.
	Changes []bool

	// SetError, if set, will be returned by Set() and the level is left unchanged.
	SetError error
}

// NewFakeOutput creates a FakeOutput driven low.
func NewFakeOutput() *FakeOutput {
	return &FakeOutput{}
}

// Set records the new level.
func (f *FakeOutput) Set(high bool) error {
	f.Writes++
	if f.SetError != nil {
		return f.SetError
	}
	if high != f.High {
		f.Changes = append(f.Changes, high)
	}
	f.High = high
	return nil
}
