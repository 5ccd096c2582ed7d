package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Command is one lighting instruction from the set topic. Pointer fields
// distinguish "absent" from zero, so a payload only touches the channels
// it names.
type Command struct {
	On          *bool    `json:"on,omitempty"`
	Brightness  *float64 `json:"brightness,omitempty"` // percent, 0-100
	Color       string   `json:"color,omitempty"`      // hex, #rrggbb
	Temperature uint16   `json:"temp,omitempty"`       // mireds
	Duration    uint32   `json:"duration,omitempty"`   // milliseconds
}

func (c *Command) String() string {
	parts := make([]string, 0, 5)
	if c.On != nil {
		parts = append(parts, fmt.Sprintf("on:%t", *c.On))
	}
	if c.Brightness != nil {
		parts = append(parts, fmt.Sprintf("brightness:%g%%", *c.Brightness))
	}
	if c.Color != "" {
		parts = append(parts, "color:"+c.Color)
	}
	if c.Temperature > 0 {
		parts = append(parts, fmt.Sprintf("temp:%dmired", c.Temperature))
	}
	if c.Duration > 0 {
		parts = append(parts, fmt.Sprintf("duration:%dms", c.Duration))
	}
	if len(parts) == 0 {
		return "noop"
	}
	return strings.Join(parts, " ")
}

// CommandHandler consumes parsed commands. The target is the topic
// suffix after {prefix}/set/.
type CommandHandler interface {
	HandleCommand(target string, command *Command) error
}

// ParseCommand decodes a command payload. Some publishers double-encode
// the JSON as a quoted string; unwrap one level before giving up.
func ParseCommand(data []byte) (*Command, error) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err == nil {
		return &cmd, nil
	}

	var wrapped string
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("decode command: %w", err)
	}
	if err := json.Unmarshal([]byte(wrapped), &cmd); err != nil {
		return nil, fmt.Errorf("decode command: %w", err)
	}
	return &cmd, nil
}
