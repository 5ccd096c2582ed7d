package bridge

import (
	"math"
	"time"

	"github.com/dokzlo13/huectl/internal/color"
)

// State is a sparse state delta for a light or group. Recognized keys
// follow the bridge API ("on", "hue", "sat", "bri", "xy", "ct",
// "transitiontime"); anything else is forwarded to the device untouched.
type State map[string]any

// CommandOption adjusts the state delta of a single command
type CommandOption func(State)

// WithTransition sets the fade duration of a command. The wire unit is
// whole deciseconds, truncated. Zero requests an instant change, which is
// different from omitting the option and getting the device default.
func WithTransition(d time.Duration) CommandOption {
	return func(s State) {
		s["transitiontime"] = wireTransition(d)
	}
}

// WithBrightness sets the brightness channel from a 0..1 fraction
func WithBrightness(fraction float64) CommandOption {
	return func(s State) {
		s["bri"] = wireBrightness(fraction)
	}
}

// WithColor folds the attributes for a color value into the delta
func WithColor(v color.Value) CommandOption {
	return func(s State) {
		for k, val := range colorState(v) {
			s[k] = val
		}
	}
}

// WithColorTemperature sets white color temperature in mireds
func WithColorTemperature(mireds uint16) CommandOption {
	return func(s State) {
		s["ct"] = mireds
	}
}

func wireTransition(d time.Duration) uint16 {
	ds := d / (100 * time.Millisecond)
	if ds < 0 {
		return 0
	}
	if ds > 65535 {
		return 65535
	}
	return uint16(ds)
}

func wireBrightness(fraction float64) uint8 {
	v := math.Round(fraction * 255)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// colorState maps a color value onto the state attributes the device
// expects for that representation
func colorState(v color.Value) State {
	switch c := v.(type) {
	case color.XY:
		return State{"xy": []float64{c.X, c.Y}}
	case color.HSV:
		return State{"hue": c.H, "sat": c.S, "bri": c.V}
	case color.RGB:
		xy := c.XY()
		return State{"xy": []float64{xy.X, xy.Y}}
	default:
		return nil
	}
}

// stateWith copies base and applies the options, leaving the caller's
// delta untouched
func stateWith(base State, opts []CommandOption) State {
	out := make(State, len(base)+1)
	for k, v := range base {
		out[k] = v
	}
	for _, opt := range opts {
		opt(out)
	}
	return out
}
