package cli

import (
	"encoding/json"
	"fmt"
	"time"
)

// BridgesCmd lists bridges known to the store
type BridgesCmd struct{}

func (c *BridgesCmd) Run(rc *Context) error {
	st, err := rc.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	bridges, err := st.ListBridges()
	if err != nil {
		return err
	}
	if len(bridges) == 0 {
		fmt.Println("No bridges known.")
		fmt.Println("Find one with: huectl discover")
		return nil
	}

	for _, b := range bridges {
		paired := "unpaired"
		if b.Username != "" {
			paired = "paired"
		}
		fmt.Printf("  %-22s %-18s %-9s last seen %s\n", b.Host, b.BridgeID, paired, b.LastSeen.Format(time.RFC3339))
	}
	return nil
}

// JournalCmd lists or prunes the command journal
type JournalCmd struct {
	Limit int           `default:"20" help:"How many entries to show"`
	Purge time.Duration `help:"Delete entries older than this instead of listing"`
}

func (c *JournalCmd) Run(rc *Context) error {
	st, err := rc.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if c.Purge > 0 {
		deleted, err := st.DeleteOlderThan(c.Purge)
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d entries.\n", deleted)
		return nil
	}

	entries, err := st.RecentCommands(c.Limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("Journal is empty.")
		return nil
	}

	for _, e := range entries {
		delta, _ := json.Marshal(e.Delta)
		line := fmt.Sprintf("  %s  %-12s %-15s %s", e.CreatedAt.Format("2006-01-02 15:04:05"), e.Target, e.Outcome, delta)
		if e.Error != "" {
			line += "  (" + e.Error + ")"
		}
		fmt.Println(line)
	}
	return nil
}
