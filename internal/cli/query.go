package cli

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/dokzlo13/huectl/internal/bridge"
)

// InfoCmd dumps the full datastore
type InfoCmd struct{}

func (c *InfoCmd) Run(rc *Context) error {
	s, err := rc.session()
	if err != nil {
		return err
	}
	payload, err := s.Info(context.Background())
	if err != nil {
		return err
	}
	return printJSON(payload)
}

// LightsCmd lists lights
type LightsCmd struct {
	JSON bool `help:"Print the raw response instead of a table"`
}

func (c *LightsCmd) Run(rc *Context) error {
	s, err := rc.session()
	if err != nil {
		return err
	}
	payload, err := s.Lights(context.Background())
	if err != nil {
		return err
	}
	if c.JSON {
		return printJSON(payload)
	}

	lights, err := bridge.ParseLights(payload)
	if err != nil {
		return err
	}
	if len(lights) == 0 {
		fmt.Println("No lights found.")
		return nil
	}

	ids := make([]string, 0, len(lights))
	for id := range lights {
		ids = append(ids, id)
	}
	for _, id := range sortIDs(ids) {
		l := lights[id]
		reach := ""
		if !l.State.Reachable {
			reach = "unreachable"
		}
		fmt.Printf("  %-4s %-24s %-4s bri %3d  %s\n", id, l.Name, onOrOff(l.State.On), l.State.Bri, reach)
	}
	return nil
}

// LightCmd shows one light
type LightCmd struct {
	ID string `arg:"" help:"Light id"`
}

func (c *LightCmd) Run(rc *Context) error {
	s, err := rc.session()
	if err != nil {
		return err
	}
	payload, err := s.LightInfo(context.Background(), c.ID)
	if err != nil {
		return err
	}
	return printJSON(payload)
}

// GroupsCmd lists groups
type GroupsCmd struct {
	JSON bool `help:"Print the raw response instead of a table"`
}

func (c *GroupsCmd) Run(rc *Context) error {
	s, err := rc.session()
	if err != nil {
		return err
	}
	payload, err := s.Groups(context.Background())
	if err != nil {
		return err
	}
	if c.JSON {
		return printJSON(payload)
	}

	groups, err := bridge.ParseGroups(payload)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		fmt.Println("No groups found.")
		return nil
	}

	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	for _, id := range sortIDs(ids) {
		g := groups[id]
		fmt.Printf("  g%-4s %-24s %-12s %2d lights  any on: %s\n", id, g.Name, g.Type, len(g.Lights), onOrOff(g.State.AnyOn))
	}
	return nil
}

// GroupCmd shows one group
type GroupCmd struct {
	ID string `arg:"" help:"Group id, 0 for the implicit all-lights group"`
}

func (c *GroupCmd) Run(rc *Context) error {
	s, err := rc.session()
	if err != nil {
		return err
	}
	payload, err := s.GroupInfo(context.Background(), c.ID)
	if err != nil {
		return err
	}
	return printJSON(payload)
}

// sortIDs orders numeric ids numerically, anything else after them
func sortIDs(ids []string) []string {
	sort.Slice(ids, func(i, j int) bool {
		a, aErr := strconv.Atoi(ids[i])
		b, bErr := strconv.Atoi(ids[j])
		switch {
		case aErr == nil && bErr == nil:
			return a < b
		case aErr == nil:
			return true
		case bErr == nil:
			return false
		}
		return ids[i] < ids[j]
	})
	return ids
}
