package bridge

import (
	"encoding/json"
	"fmt"
)

// LightState represents the state block of a light record
type LightState struct {
	On        bool      `json:"on"`
	Bri       uint8     `json:"bri"`
	Hue       uint16    `json:"hue"`
	Sat       uint8     `json:"sat"`
	XY        []float64 `json:"xy,omitempty"`
	Ct        uint16    `json:"ct"`
	Alert     string    `json:"alert,omitempty"`
	Effect    string    `json:"effect,omitempty"`
	ColorMode string    `json:"colormode,omitempty"`
	Reachable bool      `json:"reachable"`
}

// LightRecord represents a light record
type LightRecord struct {
	Name      string     `json:"name"`
	Type      string     `json:"type"`
	ModelID   string     `json:"modelid"`
	SwVersion string     `json:"swversion"`
	UniqueID  string     `json:"uniqueid,omitempty"`
	State     LightState `json:"state"`
}

// GroupAction represents the last action applied to a group
type GroupAction struct {
	On        bool      `json:"on"`
	Bri       uint8     `json:"bri"`
	Hue       uint16    `json:"hue"`
	Sat       uint8     `json:"sat"`
	XY        []float64 `json:"xy,omitempty"`
	Ct        uint16    `json:"ct"`
	ColorMode string    `json:"colormode,omitempty"`
}

// GroupState represents the aggregate on state of a group
type GroupState struct {
	AllOn bool `json:"all_on"`
	AnyOn bool `json:"any_on"`
}

// LightGroup represents a group record
type LightGroup struct {
	Name   string      `json:"name"`
	Type   string      `json:"type"`
	Lights []string    `json:"lights"`
	State  GroupState  `json:"state"`
	Action GroupAction `json:"action"`
}

// BridgeInfo represents the config block of the bridge datastore
type BridgeInfo struct {
	Name       string `json:"name"`
	BridgeID   string `json:"bridgeid"`
	ModelID    string `json:"modelid"`
	Mac        string `json:"mac"`
	SwVersion  string `json:"swversion"`
	APIVersion string `json:"apiversion"`
	IPAddress  string `json:"ipaddress,omitempty"`
}

// Datastore represents the full bridge datastore returned by Info
type Datastore struct {
	Lights map[string]LightRecord      `json:"lights"`
	Groups map[string]LightGroup `json:"groups"`
	Config BridgeInfo            `json:"config"`
}

// ParseLights converts a Lights query payload into typed records keyed by
// light id
func ParseLights(payload any) (map[string]LightRecord, error) {
	var out map[string]LightRecord
	if err := remarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("parse lights: %w", err)
	}
	return out, nil
}

// ParseLight converts a LightInfo query payload into a typed record
func ParseLight(payload any) (LightRecord, error) {
	var out LightRecord
	if err := remarshal(payload, &out); err != nil {
		return LightRecord{}, fmt.Errorf("parse light: %w", err)
	}
	return out, nil
}

// ParseGroups converts a Groups query payload into typed records keyed by
// group id
func ParseGroups(payload any) (map[string]LightGroup, error) {
	var out map[string]LightGroup
	if err := remarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("parse groups: %w", err)
	}
	return out, nil
}

// ParseGroup converts a GroupInfo query payload into a typed record
func ParseGroup(payload any) (LightGroup, error) {
	var out LightGroup
	if err := remarshal(payload, &out); err != nil {
		return LightGroup{}, fmt.Errorf("parse group: %w", err)
	}
	return out, nil
}

// ParseDatastore converts an Info query payload into the typed datastore
func ParseDatastore(payload any) (Datastore, error) {
	var out Datastore
	if err := remarshal(payload, &out); err != nil {
		return Datastore{}, fmt.Errorf("parse datastore: %w", err)
	}
	return out, nil
}

// remarshal moves a generic decoded tree into a typed view. Query results
// stay generic at the session layer; typing is the caller's opt-in.
func remarshal(payload, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
