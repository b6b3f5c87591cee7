package button

import (
	"errors"
	"testing"
	"time"

	"github.com/sweeney/combo-lock/internal/gpio"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestButton(t *testing.T, initial bool, cfg Config) (*Button, *gpio.FakeInput) {
	t.Helper()
	pin := gpio.NewFakeInput(initial)
	b, err := New(pin, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b, pin
}

func TestNewSeedsStableState(t *testing.T) {
	b, _ := newTestButton(t, true, Config{Debounce: 50 * time.Millisecond})

	if !b.State() {
		t.Error("expected stable state high from initial read")
	}
	if !b.Raw() {
		t.Error("expected raw state high from initial read")
	}
	if b.Pressed() || b.Released() {
		t.Error("no edge expected at construction")
	}
	if b.Count() != 0 {
		t.Errorf("expected count 0, got %d", b.Count())
	}
}

func TestNewReadError(t *testing.T) {
	pin := gpio.NewFakeInput(false)
	pin.ReadError = errors.New("no such line")

	if _, err := New(pin, Config{}); err == nil {
		t.Fatal("expected error from New")
	}
}

func TestPressCommitsAfterDebounce(t *testing.T) {
	b, pin := newTestButton(t, false, Config{Polarity: PullDown, Debounce: 50 * time.Millisecond})

	pin.Hold(true)

	b.Tick(t0)
	if b.State() {
		t.Error("state should not change before debounce")
	}
	if !b.Raw() {
		t.Error("raw should follow the pin immediately")
	}

	b.Tick(t0.Add(49 * time.Millisecond))
	if b.State() || b.Pressed() {
		t.Error("state should not change at 49ms")
	}

	b.Tick(t0.Add(50 * time.Millisecond))
	if !b.State() {
		t.Error("state should commit at 50ms")
	}
	if !b.Pressed() {
		t.Error("expected press on commit tick")
	}
	if b.Released() {
		t.Error("press and release must be exclusive")
	}
	if !b.IsDown() {
		t.Error("expected button down")
	}

	b.Tick(t0.Add(60 * time.Millisecond))
	if b.Pressed() {
		t.Error("press must only be reported on the commit tick")
	}
	if !b.State() {
		t.Error("state should remain high")
	}
}

func TestBounceRejection(t *testing.T) {
	b, pin := newTestButton(t, false, Config{Polarity: PullDown, Debounce: 50 * time.Millisecond})

	// Toggle every 10ms for 200ms; never stable for 50ms.
	level := false
	for ms := 0; ms <= 200; ms += 10 {
		level = !level
		pin.Hold(level)
		b.Tick(t0.Add(time.Duration(ms) * time.Millisecond))
		if b.State() {
			t.Fatalf("stable state changed during bounce at %dms", ms)
		}
		if b.Pressed() || b.Released() {
			t.Fatalf("edge reported during bounce at %dms", ms)
		}
	}
	if b.Count() != 0 {
		t.Errorf("expected count 0 after bounce, got %d", b.Count())
	}
}

func TestBounceRestartsWindow(t *testing.T) {
	b, pin := newTestButton(t, false, Config{Polarity: PullDown, Debounce: 50 * time.Millisecond})

	pin.Hold(true)
	b.Tick(t0)
	pin.Hold(false)
	b.Tick(t0.Add(30 * time.Millisecond))
	pin.Hold(true)
	b.Tick(t0.Add(40 * time.Millisecond))

	// 50ms after the first change but only 10ms after the last one.
	b.Tick(t0.Add(50 * time.Millisecond))
	if b.State() {
		t.Error("window should have restarted on bounce")
	}

	b.Tick(t0.Add(90 * time.Millisecond))
	if !b.State() || !b.Pressed() {
		t.Error("expected press 50ms after the last bounce")
	}
}

func TestPullUpPolarity(t *testing.T) {
	b, pin := newTestButton(t, true, Config{Polarity: PullUp, Debounce: 20 * time.Millisecond})

	if b.IsDown() {
		t.Error("pull-up button idling high should be up")
	}

	pin.Hold(false)
	b.Tick(t0)
	b.Tick(t0.Add(20 * time.Millisecond))
	if !b.Pressed() {
		t.Error("high->low should be a press for pull-up")
	}
	if b.Released() {
		t.Error("high->low should not be a release for pull-up")
	}
	if !b.IsDown() {
		t.Error("expected button down")
	}

	pin.Hold(true)
	b.Tick(t0.Add(100 * time.Millisecond))
	b.Tick(t0.Add(120 * time.Millisecond))
	if !b.Released() {
		t.Error("low->high should be a release for pull-up")
	}
	if b.Pressed() {
		t.Error("low->high should not be a press for pull-up")
	}
}

func TestPullDownRelease(t *testing.T) {
	b, pin := newTestButton(t, true, Config{Polarity: PullDown, Debounce: 20 * time.Millisecond})

	pin.Hold(false)
	b.Tick(t0)
	b.Tick(t0.Add(20 * time.Millisecond))
	if !b.Released() {
		t.Error("high->low should be a release for pull-down")
	}
	if b.Pressed() {
		t.Error("high->low should not be a press for pull-down")
	}
}

func TestZeroDebounceCommitsImmediately(t *testing.T) {
	b, pin := newTestButton(t, false, Config{Polarity: PullDown})

	pin.Hold(true)
	b.Tick(t0)
	if !b.Pressed() {
		t.Error("expected immediate press with zero debounce")
	}
}

// pressRelease drives one full press and release starting at start and
// returns the time after the release commits.
func pressRelease(b *Button, pin *gpio.FakeInput, start time.Time, debounce time.Duration) time.Time {
	pin.Hold(true)
	b.Tick(start)
	b.Tick(start.Add(debounce))
	pin.Hold(false)
	b.Tick(start.Add(2 * debounce))
	b.Tick(start.Add(3 * debounce))
	return start.Add(3 * debounce)
}

func TestCountModes(t *testing.T) {
	debounce := 10 * time.Millisecond
	tests := []struct {
		mode CountMode
		want uint64
	}{
		{CountPresses, 3},
		{CountReleases, 3},
		{CountBoth, 6},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			b, pin := newTestButton(t, false, Config{Polarity: PullDown, Debounce: debounce, CountMode: tt.mode})

			now := t0
			for i := 0; i < 3; i++ {
				now = pressRelease(b, pin, now.Add(time.Millisecond), debounce)
			}

			if b.Count() != tt.want {
				t.Errorf("expected count %d, got %d", tt.want, b.Count())
			}
		})
	}
}

func TestResetCount(t *testing.T) {
	b, pin := newTestButton(t, false, Config{Polarity: PullDown, Debounce: 10 * time.Millisecond})

	pressRelease(b, pin, t0, 10*time.Millisecond)
	if b.Count() != 1 {
		t.Fatalf("expected count 1, got %d", b.Count())
	}

	b.ResetCount()
	if b.Count() != 0 {
		t.Errorf("expected count 0 after reset, got %d", b.Count())
	}
}

func TestSetCountMode(t *testing.T) {
	b, pin := newTestButton(t, false, Config{Polarity: PullDown, Debounce: 10 * time.Millisecond})
	b.SetCountMode(CountReleases)

	pin.Hold(true)
	b.Tick(t0)
	b.Tick(t0.Add(10 * time.Millisecond))
	if b.Count() != 0 {
		t.Errorf("press should not count in release mode, got %d", b.Count())
	}
}

func TestIdleTicksAreIdempotent(t *testing.T) {
	debounce := 10 * time.Millisecond
	b, pin := newTestButton(t, false, Config{Polarity: PullDown, Debounce: debounce})

	pin.Hold(true)
	b.Tick(t0)
	b.Tick(t0.Add(debounce))
	if !b.Pressed() {
		t.Fatal("expected press on the committing tick")
	}
	if b.Count() != 1 || !b.State() {
		t.Fatalf("after press: count=%d state=%v, want 1/true", b.Count(), b.State())
	}

	// The edge lasts one tick; the level and counter persist.
	b.Tick(t0.Add(debounce + time.Millisecond))
	if b.Pressed() || b.Released() {
		t.Fatal("edge still reported on the tick after the press")
	}
	if b.Count() != 1 || !b.State() {
		t.Fatalf("idle tick changed count=%d state=%v", b.Count(), b.State())
	}

	pin.Hold(false)
	b.Tick(t0.Add(100 * time.Millisecond))
	b.Tick(t0.Add(100*time.Millisecond + debounce))
	if !b.Released() {
		t.Fatal("expected release on the committing tick")
	}
	b.Tick(t0.Add(100*time.Millisecond + debounce + time.Millisecond))
	if b.Released() || b.Pressed() {
		t.Fatal("edge still reported on the tick after the release")
	}

	state, count := b.State(), b.Count()
	for i := 0; i < 100; i++ {
		b.Tick(t0.Add(time.Second + time.Duration(i)*time.Millisecond))
		if b.State() != state || b.Count() != count {
			t.Fatalf("tick %d changed state or count", i)
		}
		if b.Pressed() || b.Released() {
			t.Fatalf("tick %d reported an edge", i)
		}
	}
}

func TestOneEdgePerDebounceWindow(t *testing.T) {
	debounce := 50 * time.Millisecond
	b, pin := newTestButton(t, false, Config{Polarity: PullDown, Debounce: debounce, CountMode: CountBoth})

	// Alternate the level every 80ms while ticking every 5ms.
	var edges []time.Time
	level := false
	for ms := 0; ms < 1000; ms += 5 {
		if ms%80 == 0 {
			level = !level
			pin.Hold(level)
		}
		now := t0.Add(time.Duration(ms) * time.Millisecond)
		b.Tick(now)
		if b.Pressed() && b.Released() {
			t.Fatalf("press and release both reported at %dms", ms)
		}
		if b.Pressed() || b.Released() {
			edges = append(edges, now)
		}
	}

	for i := 1; i < len(edges); i++ {
		if gap := edges[i].Sub(edges[i-1]); gap < debounce {
			t.Errorf("edges %d and %d only %v apart", i-1, i, gap)
		}
	}
	if len(edges) == 0 {
		t.Fatal("expected edges")
	}
	if uint64(len(edges)) != b.Count() {
		t.Errorf("counted %d edges, observed %d", b.Count(), len(edges))
	}
}

func TestTickReadErrorClearsEdge(t *testing.T) {
	b, pin := newTestButton(t, false, Config{Polarity: PullDown})

	pin.Hold(true)
	b.Tick(t0)
	if !b.Pressed() {
		t.Fatal("expected press")
	}

	pin.ReadError = errors.New("line gone")
	if err := b.Tick(t0.Add(time.Millisecond)); err == nil {
		t.Fatal("expected read error")
	}
	if b.Pressed() {
		t.Error("press must not be reported again after a failed read")
	}
	if !b.State() {
		t.Error("stable state should be kept after a failed read")
	}
}

func TestSetDebounceTakesEffectNextTick(t *testing.T) {
	b, pin := newTestButton(t, false, Config{Polarity: PullDown, Debounce: time.Second})

	pin.Hold(true)
	b.Tick(t0)
	b.SetDebounce(10 * time.Millisecond)
	if b.Debounce() != 10*time.Millisecond {
		t.Errorf("expected debounce 10ms, got %v", b.Debounce())
	}

	b.Tick(t0.Add(10 * time.Millisecond))
	if !b.Pressed() {
		t.Error("expected press with the shortened window")
	}
}

func TestPolarityText(t *testing.T) {
	tests := []struct {
		in   string
		want Polarity
	}{
		{"pull-down", PullDown},
		{"PULL-UP", PullUp},
		{"active-low", PullUp},
		{"active-high", PullDown},
	}
	for _, tt := range tests {
		var p Polarity
		if err := p.UnmarshalText([]byte(tt.in)); err != nil {
			t.Errorf("%q: unexpected error: %v", tt.in, err)
			continue
		}
		if p != tt.want {
			t.Errorf("%q: got %v, want %v", tt.in, p, tt.want)
		}
	}

	var p Polarity
	if err := p.UnmarshalText([]byte("floating")); err == nil {
		t.Error("expected error for unknown polarity")
	}

	text, _ := PullUp.MarshalText()
	if string(text) != "pull-up" {
		t.Errorf("MarshalText: got %q, want pull-up", text)
	}
}
