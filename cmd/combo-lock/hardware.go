package main

import (
	"fmt"
	"io"
	"time"

	"github.com/sweeney/combo-lock/internal/button"
	"github.com/sweeney/combo-lock/internal/config"
	"github.com/sweeney/combo-lock/internal/gpio"
	"github.com/sweeney/combo-lock/internal/lock"
)

// pins opens GPIO lines. It is satisfied by a *gpio.Chip adapter in
// production and by fakes in tests.
type pins interface {
	Input(pin int, bias gpio.Bias) (gpio.Input, error)
	Output(pin int) (gpio.Output, error)
}

// chipPins adapts *gpio.Chip to pins.
type chipPins struct {
	chip *gpio.Chip
}

func (c chipPins) Input(pin int, bias gpio.Bias) (gpio.Input, error) {
	l, err := c.chip.Input(pin, bias)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (c chipPins) Output(pin int) (gpio.Output, error) {
	l, err := c.chip.Output(pin)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func biasFor(p button.Polarity) gpio.Bias {
	if p == button.PullUp {
		return gpio.BiasPullUp
	}
	return gpio.BiasPullDown
}

// buttons holds the debounced inputs described by the config.
type buttons struct {
	priming *button.Button
	combo   []*button.Button
}

func buildButtons(cfg *config.Config, p pins) (*buttons, error) {
	pcfg := cfg.PrimingButton()
	in, err := p.Input(cfg.Pins.Priming, biasFor(pcfg.Polarity))
	if err != nil {
		return nil, err
	}
	priming, err := button.New(in, pcfg)
	if err != nil {
		return nil, fmt.Errorf("priming button: %w", err)
	}

	ccfg := cfg.ComboButton()
	combo := make([]*button.Button, len(cfg.Pins.Combo))
	for i, pin := range cfg.Pins.Combo {
		in, err := p.Input(pin, biasFor(ccfg.Polarity))
		if err != nil {
			return nil, err
		}
		if combo[i], err = button.New(in, ccfg); err != nil {
			return nil, fmt.Errorf("combo button %d: %w", i, err)
		}
	}
	return &buttons{priming: priming, combo: combo}, nil
}

func buildLock(cfg *config.Config, p pins, startTime time.Time) (*lock.Lock, error) {
	b, err := buildButtons(cfg, p)
	if err != nil {
		return nil, err
	}

	var out lock.Outputs
	for _, o := range []struct {
		pin int
		dst *gpio.Output
	}{
		{cfg.Pins.Accessory, &out.Accessory},
		{cfg.Pins.Green, &out.Green},
		{cfg.Pins.Red, &out.Red},
		{cfg.Pins.Blue, &out.Blue},
	} {
		if *o.dst, err = p.Output(o.pin); err != nil {
			return nil, err
		}
	}

	l, err := lock.New(cfg.Lock(), b.priming, b.combo, out, startTime)
	if err != nil {
		return nil, fmt.Errorf("init lock: %w", err)
	}
	return l, nil
}

// printState reads every input once and prints its polarity and level.
func printState(w io.Writer, cfg *config.Config, p pins) error {
	b, err := buildButtons(cfg, p)
	if err != nil {
		return err
	}

	line := func(name string, pin int, btn *button.Button) {
		fmt.Fprintf(w, "%-9s pin %-3d %-9s %s %s\n", name, pin, btn.Polarity(), level(btn.State()), held(btn.IsDown()))
	}
	line("priming", cfg.Pins.Priming, b.priming)
	for i, btn := range b.combo {
		line(fmt.Sprintf("combo[%d]", i), cfg.Pins.Combo[i], btn)
	}
	return nil
}

func level(high bool) string {
	if high {
		return "HIGH"
	}
	return "LOW "
}

func held(down bool) string {
	if down {
		return "(pressed)"
	}
	return "(released)"
}
