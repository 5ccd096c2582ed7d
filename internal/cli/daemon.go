package cli

import (
	"github.com/dokzlo13/huectl/internal/app"
)

// MqttCmd runs the MQTT daemon until a shutdown signal
type MqttCmd struct{}

func (c *MqttCmd) Run(rc *Context) error {
	s, err := rc.session()
	if err != nil {
		return err
	}

	application, err := app.New(rc.Config, s)
	if err != nil {
		return err
	}

	ctx := app.SignalContext()
	if err := application.Start(ctx); err != nil {
		return err
	}

	application.Wait()
	return application.Stop()
}
