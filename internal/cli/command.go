package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dokzlo13/huectl/internal/bridge"
	"github.com/dokzlo13/huectl/internal/color"
)

// apply sends one state delta to a target and journals the outcome.
// Options are folded into the delta first so the journal shows exactly
// what went on the wire.
func (rc *Context) apply(targetArg string, delta bridge.State, opts ...bridge.CommandOption) error {
	t, err := bridge.ParseTarget(targetArg)
	if err != nil {
		return err
	}
	s, err := rc.session()
	if err != nil {
		return err
	}

	if delta == nil {
		delta = bridge.State{}
	}
	for _, opt := range opts {
		opt(delta)
	}

	next, err := s.SetState(context.Background(), t, delta)
	rc.journal(s.Host(), t, delta, next, err)
	if err != nil {
		return err
	}
	if !next.Ok() {
		return fmt.Errorf("bridge rejected command: %s", strings.Join(next.LastError().ErrorDescriptions(), "; "))
	}

	fmt.Printf("%s: ok\n", t)
	return nil
}

// OnCmd turns a target on
type OnCmd struct {
	Target     string         `arg:"" help:"Light id, g<id> for a group, or all"`
	Transition *time.Duration `short:"t" help:"Fade duration, 0 for instant"`
}

func (c *OnCmd) Run(rc *Context) error {
	return rc.apply(c.Target, bridge.State{"on": true}, transitionOpts(c.Transition)...)
}

// OffCmd turns a target off
type OffCmd struct {
	Target     string         `arg:"" help:"Light id, g<id> for a group, or all"`
	Transition *time.Duration `short:"t" help:"Fade duration, 0 for instant"`
}

func (c *OffCmd) Run(rc *Context) error {
	return rc.apply(c.Target, bridge.State{"on": false}, transitionOpts(c.Transition)...)
}

// BriCmd sets brightness as a percentage
type BriCmd struct {
	Target     string         `arg:"" help:"Light id, g<id> for a group, or all"`
	Percent    float64        `arg:"" help:"Brightness percent, 0 turns the target off"`
	Transition *time.Duration `short:"t" help:"Fade duration"`
}

func (c *BriCmd) Run(rc *Context) error {
	opts := transitionOpts(c.Transition)
	if c.Percent <= 0 {
		return rc.apply(c.Target, bridge.State{"on": false}, opts...)
	}

	pct := c.Percent
	if pct > 100 {
		pct = 100
	}
	opts = append(opts, bridge.WithBrightness(pct/100))
	return rc.apply(c.Target, bridge.State{"on": true}, opts...)
}

// ColorCmd sets a color from hex or chromaticity
type ColorCmd struct {
	Target     string         `arg:"" help:"Light id, g<id> for a group, or all"`
	Color      string         `arg:"" help:"Hex color like '#ff8800', or chromaticity 'x,y'"`
	Transition *time.Duration `short:"t" help:"Fade duration"`
}

func (c *ColorCmd) Run(rc *Context) error {
	v, err := parseColorArg(c.Color)
	if err != nil {
		return err
	}
	opts := append(transitionOpts(c.Transition), bridge.WithColor(v))
	return rc.apply(c.Target, nil, opts...)
}

func parseColorArg(s string) (color.Value, error) {
	if strings.Contains(s, ",") {
		parts := strings.SplitN(s, ",", 2)
		x, errX := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		y, errY := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if errX != nil || errY != nil {
			return nil, fmt.Errorf("bad chromaticity %q, want x,y", s)
		}
		return color.XY{X: x, Y: y}, nil
	}
	return color.ParseHex(s)
}

// SetCmd forwards a raw state delta
type SetCmd struct {
	Target string `arg:"" help:"Light id, g<id> for a group, or all"`
	Delta  string `arg:"" help:"Raw state JSON, e.g. '{\"ct\":350}'"`
}

func (c *SetCmd) Run(rc *Context) error {
	var delta bridge.State
	if err := json.Unmarshal([]byte(c.Delta), &delta); err != nil {
		return fmt.Errorf("bad state delta: %w", err)
	}
	return rc.apply(c.Target, delta)
}
