package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dokzlo13/huectl/internal/bridge"
)

// AuthCmd pairs with a bridge and stores the credential
type AuthCmd struct {
	Host     string        `arg:"" optional:"" help:"Bridge host; defaults to the latest discovered bridge"`
	Label    string        `default:"huectl" help:"Device label to register with the bridge"`
	Register bool          `help:"Let the bridge generate the username instead of installing the label"`
	Wait     time.Duration `default:"30s" help:"How long to wait for the link button"`
}

func (c *AuthCmd) Run(rc *Context) error {
	st, err := rc.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	host := c.Host
	if host == "" {
		host = rc.Config.Bridge.Host
	}
	if host == "" {
		bridges, err := st.ListBridges()
		if err != nil {
			return err
		}
		if len(bridges) == 0 {
			return errors.New("no bridge host known: pass one or run huectl discover")
		}
		host = bridges[0].Host
	}

	s := bridge.ConnectWithConfig(bridge.Config{
		Host:    host,
		Timeout: rc.Config.Bridge.Timeout.Duration(),
	})

	fmt.Printf("Press the link button on %s...\n", host)

	deadline := time.Now().Add(c.Wait)
	for {
		if c.Register {
			s, err = s.Register(context.Background(), c.Label)
		} else {
			s, err = s.Authorize(context.Background(), c.Label)
		}
		if err != nil {
			return err
		}
		if s.Ok() {
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("bridge kept refusing: %s", strings.Join(s.LastError().ErrorDescriptions(), "; "))
		}
		time.Sleep(time.Second)
	}

	if err := st.SetUsername(host, s.Username()); err != nil {
		return err
	}

	fmt.Printf("Paired with %s as %s\n", host, s.Username())
	return nil
}
