// Package cli declares the huectl command tree.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huectl/internal/bridge"
	"github.com/dokzlo13/huectl/internal/config"
	"github.com/dokzlo13/huectl/internal/store"
)

// CLI is the root command structure for huectl.
type CLI struct {
	Config   string `short:"c" default:"huectl.yaml" help:"Path to configuration file"`
	Host     string `short:"H" env:"HUE_HOST" help:"Bridge host, overrides config and store"`
	Username string `short:"u" env:"HUE_USERNAME" help:"Bridge API username, overrides config and store"`
	Verbose  bool   `short:"v" help:"Enable debug logging"`

	Discover DiscoverCmd `cmd:"" help:"Find bridges on the local network"`
	Auth     AuthCmd     `cmd:"" help:"Pair with a bridge and store the credential"`

	Info   InfoCmd   `cmd:"" help:"Show the full bridge datastore"`
	Lights LightsCmd `cmd:"" help:"List lights"`
	Light  LightCmd  `cmd:"" help:"Show one light"`
	Groups GroupsCmd `cmd:"" help:"List groups"`
	Group  GroupCmd  `cmd:"" help:"Show one group"`

	On    OnCmd    `cmd:"" help:"Turn a light or group on"`
	Off   OffCmd   `cmd:"" help:"Turn a light or group off"`
	Bri   BriCmd   `cmd:"" help:"Set brightness"`
	Color ColorCmd `cmd:"" help:"Set color"`
	Set   SetCmd   `cmd:"" help:"Send a raw state delta"`
	Morse MorseCmd `cmd:"" help:"Blink a message in morse code"`

	Run  RunCmd  `cmd:"" help:"Run a Lua automation script"`
	Mqtt MqttCmd `cmd:"" help:"Run the MQTT daemon"`

	Bridges BridgesCmd `cmd:"" help:"List known bridges"`
	Journal JournalCmd `cmd:"" help:"Show or prune the command journal"`
}

// Context carries the resolved configuration into command Run methods.
type Context struct {
	Config  *config.Config
	Globals *CLI
}

func (rc *Context) openStore() (*store.Store, error) {
	return store.Open(rc.Config.Store.Path)
}

// session builds a bridge session from the configuration, falling back
// to the most recently seen bridge in the store.
func (rc *Context) session() (bridge.Session, error) {
	host := rc.Config.Bridge.Host
	username := rc.Config.Bridge.Username

	if host == "" || username == "" {
		st, err := rc.openStore()
		if err == nil {
			defer st.Close()
			if host == "" {
				if bridges, err := st.ListBridges(); err == nil && len(bridges) > 0 {
					host = bridges[0].Host
				}
			}
			if username == "" && host != "" {
				if b, _ := st.Bridge(host); b != nil {
					username = b.Username
				}
			}
		}
	}

	if host == "" {
		return bridge.Session{}, errors.New("no bridge host known: pass --host or run huectl discover")
	}
	if username == "" {
		return bridge.Session{}, fmt.Errorf("no credential for %s: run huectl auth", host)
	}

	return bridge.ConnectWithConfig(bridge.Config{
		Host:     host,
		Username: username,
		Timeout:  rc.Config.Bridge.Timeout.Duration(),
	}), nil
}

// journal records one issued command, best effort
func (rc *Context) journal(host string, t bridge.Target, delta bridge.State, next bridge.Session, cmdErr error) {
	st, err := rc.openStore()
	if err != nil {
		log.Debug().Err(err).Msg("Journal unavailable")
		return
	}
	defer st.Close()

	e := store.JournalEntry{
		Host:    host,
		Target:  t.String(),
		Delta:   delta,
		Outcome: "ok",
	}
	switch {
	case cmdErr != nil:
		e.Outcome = "transport_error"
		e.Error = cmdErr.Error()
	case !next.Ok():
		e.Outcome = "error"
		if descs := next.LastError().ErrorDescriptions(); len(descs) > 0 {
			e.Error = descs[0]
		}
	}

	if _, err := st.AppendCommand(e); err != nil {
		log.Debug().Err(err).Msg("Journal write failed")
	}
}

func transitionOpts(d *time.Duration) []bridge.CommandOption {
	if d == nil {
		return nil
	}
	return []bridge.CommandOption{bridge.WithTransition(*d)}
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func onOrOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
