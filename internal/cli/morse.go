package cli

import (
	"time"

	"github.com/dokzlo13/huectl/internal/app"
	"github.com/dokzlo13/huectl/internal/bridge"
	"github.com/dokzlo13/huectl/internal/morse"
)

// MorseCmd blinks a message on a target
type MorseCmd struct {
	Target string        `arg:"" help:"Light id, g<id> for a group, or all"`
	Text   string        `arg:"" help:"Message to blink"`
	Unit   time.Duration `default:"200ms" help:"Length of one morse unit"`
}

func (c *MorseCmd) Run(rc *Context) error {
	t, err := bridge.ParseTarget(c.Target)
	if err != nil {
		return err
	}
	s, err := rc.session()
	if err != nil {
		return err
	}

	_, err = morse.Blink(app.SignalContext(), s, t, c.Text, morse.Options{Unit: c.Unit})
	return err
}
