package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/dokzlo13/huectl/internal/discovery"
	"github.com/dokzlo13/huectl/internal/store"
)

// DiscoverCmd searches the local network for bridges
type DiscoverCmd struct {
	Wait   time.Duration `default:"3s" help:"How long to collect responses"`
	NoSave bool          `help:"Do not record found bridges in the store"`
}

func (c *DiscoverCmd) Run(rc *Context) error {
	fmt.Println("Searching for bridges...")

	devices, err := discovery.Discover(context.Background(), discovery.Options{Wait: c.Wait})
	if err != nil {
		return err
	}

	var st *store.Store
	if !c.NoSave {
		if st, err = rc.openStore(); err != nil {
			return err
		}
		defer st.Close()
	}

	seen := map[string]bool{}
	found := 0
	for _, d := range devices {
		if !d.IsBridge() || d.Host() == "" || seen[d.Host()] {
			continue
		}
		seen[d.Host()] = true
		found++

		fmt.Printf("  %-22s %s\n", d.Host(), d.BridgeID())
		if st != nil {
			if err := st.SaveBridge(d.Host(), d.BridgeID()); err != nil {
				return err
			}
		}
	}

	if found == 0 {
		fmt.Println("No bridges responded.")
		fmt.Println("Make sure you are on the same network, or try a longer --wait.")
		return nil
	}

	fmt.Printf("Found %d bridge(s). Pair with: huectl auth\n", found)
	return nil
}
