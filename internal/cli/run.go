package cli

import (
	"golang.org/x/time/rate"

	"github.com/dokzlo13/huectl/internal/app"
	"github.com/dokzlo13/huectl/internal/script"
)

// RunCmd executes a Lua automation script
type RunCmd struct {
	Script string `arg:"" type:"existingfile" help:"Path to the Lua script"`
}

func (c *RunCmd) Run(rc *Context) error {
	s, err := rc.session()
	if err != nil {
		return err
	}

	limiter := rate.NewLimiter(rate.Limit(rc.Config.RateLimitRPS), int(rc.Config.RateLimitRPS))
	rt := script.NewRuntime(s, limiter)
	defer rt.Close()

	return rt.RunFile(app.SignalContext(), c.Script)
}
