// Package config loads the daemon configuration from a TOML file.
// Values missing from the file keep their defaults.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"

	"github.com/sweeney/combo-lock/internal/button"
	"github.com/sweeney/combo-lock/internal/gpio"
	"github.com/sweeney/combo-lock/internal/lock"
)

// DefaultPath is where the run command looks for a config file.
const DefaultPath = "/etc/combo-lock.toml"

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid config")

// Duration is a time.Duration written as a string ("50ms", "10s") in TOML.
type Duration struct {
	time.Duration
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Pins holds GPIO line offsets on Chip.
type Pins struct {
	// outputs
	Accessory int `toml:"accessory"`
	Green     int `toml:"green"`
	Red       int `toml:"red"`
	Blue      int `toml:"blue"`
	// inputs
	Priming int   `toml:"priming"`
	Combo   []int `toml:"combo"`
}

// Input holds settings shared by a group of buttons.
type Input struct {
	Debounce Duration        `toml:"debounce"`
	Polarity button.Polarity `toml:"polarity"`
}

// Flash configures the red flasher shown after a wrong combo.
type Flash struct {
	Count    int      `toml:"count"`
	Interval Duration `toml:"interval"`
}

// MQTT configures the broker connection. An empty Broker disables publishing.
type MQTT struct {
	Broker   string `toml:"broker"`
	ClientID string `toml:"client_id"`
}

// Config is the full daemon configuration.
type Config struct {
	Chip         string   `toml:"chip"`
	Poll         Duration `toml:"poll"`
	Pins         Pins     `toml:"pins"`
	Priming      Input    `toml:"priming"`
	ComboButtons Input    `toml:"combo_buttons"`
	Combo        []int    `toml:"combo"`
	Timeout      Duration `toml:"timeout"`
	Flash        Flash    `toml:"flash"`
	MQTT         MQTT     `toml:"mqtt"`
	Heartbeat    Duration `toml:"heartbeat"` // 0 disables
	HTTP         string   `toml:"http"`
	LogLevel     string   `toml:"log_level"`
}

// Default returns the built-in configuration. Each call returns fresh slices.
func Default() Config {
	return Config{
		Chip: gpio.DefaultChip,
		Poll: Duration{5 * time.Millisecond},
		Pins: Pins{
			Accessory: 4,
			Green:     5,
			Red:       6,
			Blue:      7,
			Priming:   8,
			Combo:     []int{9, 10, 11},
		},
		Priming:      Input{Debounce: Duration{50 * time.Millisecond}, Polarity: button.PullDown},
		ComboButtons: Input{Debounce: Duration{50 * time.Millisecond}, Polarity: button.PullDown},
		Combo:        []int{0, 1, 2},
		Timeout:      Duration{10 * time.Second},
		Flash:        Flash{Count: 5, Interval: Duration{100 * time.Millisecond}},
		MQTT:         MQTT{ClientID: "combo-lock"},
		Heartbeat:    Duration{15 * time.Minute},
		HTTP:         ":8080",
		LogLevel:     "info",
	}
}

// Parse decodes TOML over the defaults and validates the result.
// Unknown keys are rejected so that typos do not silently fall back to defaults.
func Parse(data string) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: unknown keys: %s", ErrInvalid, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads and parses the file at path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.WithField("path", path).Info("config file does not exist, using defaults")
		return Parse("")
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every problem found, each wrapping ErrInvalid.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.Chip == "" {
		invalid("chip is empty")
	}
	if c.Poll.Duration <= 0 {
		invalid("poll must be positive, got %s", c.Poll)
	}
	if c.Priming.Debounce.Duration < 0 {
		invalid("priming.debounce is negative")
	}
	if c.ComboButtons.Debounce.Duration < 0 {
		invalid("combo_buttons.debounce is negative")
	}

	seen := make(map[int]string)
	checkPin := func(name string, pin int) {
		if pin < 0 {
			invalid("%s: invalid pin number %d", name, pin)
			return
		}
		if other, ok := seen[pin]; ok {
			invalid("%s: pin %d already used by %s", name, pin, other)
			return
		}
		seen[pin] = name
	}
	checkPin("pins.accessory", c.Pins.Accessory)
	checkPin("pins.green", c.Pins.Green)
	checkPin("pins.red", c.Pins.Red)
	checkPin("pins.blue", c.Pins.Blue)
	checkPin("pins.priming", c.Pins.Priming)
	for i, pin := range c.Pins.Combo {
		checkPin(fmt.Sprintf("pins.combo[%d]", i), pin)
	}

	if len(c.Pins.Combo) == 0 {
		invalid("pins.combo is empty")
	}
	if len(c.Combo) == 0 {
		invalid("combo is empty")
	}
	for i, idx := range c.Combo {
		if idx < 0 || idx >= len(c.Pins.Combo) {
			invalid("combo[%d]: button %d out of range [0,%d)", i, idx, len(c.Pins.Combo))
		}
	}

	if c.Timeout.Duration <= 0 {
		invalid("timeout must be positive, got %s", c.Timeout)
	}
	if c.Flash.Count < 0 {
		invalid("flash.count is negative")
	}
	if c.Flash.Interval.Duration <= 0 {
		invalid("flash.interval must be positive, got %s", c.Flash.Interval)
	}
	if c.Heartbeat.Duration < 0 {
		invalid("heartbeat is negative, use \"0s\" to disable")
	}
	if c.MQTT.Broker != "" && c.MQTT.ClientID == "" {
		invalid("mqtt.client_id is empty")
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		invalid("log_level: %v", err)
	}

	return errors.Join(errs...)
}

// Lock returns the lock settings.
func (c *Config) Lock() lock.Config {
	return lock.Config{
		Combo:         append([]int(nil), c.Combo...),
		Timeout:       c.Timeout.Duration,
		FlashCount:    c.Flash.Count,
		FlashInterval: c.Flash.Interval.Duration,
	}
}

// PrimingButton returns the settings for the priming button.
func (c *Config) PrimingButton() button.Config {
	return button.Config{
		Polarity:  c.Priming.Polarity,
		Debounce:  c.Priming.Debounce.Duration,
		CountMode: button.CountPresses,
	}
}

// ComboButton returns the settings shared by all combo buttons.
func (c *Config) ComboButton() button.Config {
	return button.Config{
		Polarity:  c.ComboButtons.Polarity,
		Debounce:  c.ComboButtons.Debounce.Duration,
		CountMode: button.CountPresses,
	}
}

// Encode writes the configuration as TOML.
func (c *Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
