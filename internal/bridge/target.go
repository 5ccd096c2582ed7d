package bridge

import (
	"fmt"
	"strconv"
	"strings"
)

// TargetKind distinguishes lights from groups
type TargetKind int

const (
	KindLight TargetKind = iota
	KindGroup
)

func (k TargetKind) String() string {
	if k == KindGroup {
		return "group"
	}
	return "light"
}

// Target addresses a single light or a group of lights on the bridge.
// Identifiers are the short tokens the bridge hands out, an integer or its
// string form.
type Target struct {
	kind TargetKind
	id   string
}

// AllLights is the implicit group 0, which the bridge resolves to every
// connected light.
var AllLights = Group(0)

// Light addresses a single light by numeric id
func Light(id int) Target {
	return Target{kind: KindLight, id: strconv.Itoa(id)}
}

// Group addresses a light group by numeric id
func Group(id int) Target {
	return Target{kind: KindGroup, id: strconv.Itoa(id)}
}

// LightID addresses a single light by raw identifier
func LightID(id string) Target {
	return Target{kind: KindLight, id: id}
}

// GroupID addresses a light group by raw identifier
func GroupID(id string) Target {
	return Target{kind: KindGroup, id: id}
}

// ParseTarget reads a CLI-style target token: "3" is light 3, "g3" or
// "group:3" is group 3, "all" is the all-lights group.
func ParseTarget(s string) (Target, error) {
	switch {
	case s == "":
		return Target{}, fmt.Errorf("empty target")
	case s == "all":
		return AllLights, nil
	case strings.HasPrefix(s, "group:"):
		return GroupID(strings.TrimPrefix(s, "group:")), nil
	case len(s) > 1 && s[0] == 'g' && isDigits(s[1:]):
		return GroupID(s[1:]), nil
	case isDigits(s):
		return LightID(s), nil
	}
	return Target{}, fmt.Errorf("invalid target %q", s)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (t Target) Kind() TargetKind { return t.kind }
func (t Target) ID() string       { return t.id }

func (t Target) String() string {
	return t.kind.String() + " " + t.id
}

// path returns the URL segments for state updates on this target
func (t Target) path() []string {
	if t.kind == KindGroup {
		return []string{"groups", t.id, "action"}
	}
	return []string{"lights", t.id, "state"}
}
