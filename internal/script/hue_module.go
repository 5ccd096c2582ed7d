package script

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/huectl/internal/bridge"
	"github.com/dokzlo13/huectl/internal/color"
)

const targetTypeName = "hue.target"

// targetUserdata wraps a bridge target plus the runtime owning the session
type targetUserdata struct {
	target bridge.Target
	rt     *Runtime
}

func registerHueModule(L *lua.LState, rt *Runtime) {
	mt := L.NewTypeMetatable(targetTypeName)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), targetMethods))

	m := &hueModule{rt: rt}
	hue := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"host":       m.luaHost,
		"status":     m.luaStatus,
		"last_error": m.luaLastError,
		"light":      m.luaLight,
		"group":      m.luaGroup,
		"all":        m.luaAll,
		"lights":     m.luaLights,
		"groups":     m.luaGroups,
		"sleep":      m.luaSleep,
	})
	L.SetGlobal("hue", hue)
}

type hueModule struct {
	rt *Runtime
}

// hue.host() -> string
func (m *hueModule) luaHost(L *lua.LState) int {
	L.Push(lua.LString(m.rt.session.Host()))
	return 1
}

// hue.status() -> "ok" | "error"
func (m *hueModule) luaStatus(L *lua.LState) int {
	L.Push(lua.LString(m.rt.session.Status().String()))
	return 1
}

// hue.last_error() -> array of error descriptions
func (m *hueModule) luaLastError(L *lua.LState) int {
	tbl := L.NewTable()
	for _, desc := range m.rt.session.LastError().ErrorDescriptions() {
		tbl.Append(lua.LString(desc))
	}
	L.Push(tbl)
	return 1
}

// hue.light(id) -> target
func (m *hueModule) luaLight(L *lua.LState) int {
	pushTarget(L, m.rt, bridge.LightID(checkID(L, 1)))
	return 1
}

// hue.group(id) -> target
func (m *hueModule) luaGroup(L *lua.LState) int {
	pushTarget(L, m.rt, bridge.GroupID(checkID(L, 1)))
	return 1
}

// hue.all() -> target for every light
func (m *hueModule) luaAll(L *lua.LState) int {
	pushTarget(L, m.rt, bridge.AllLights)
	return 1
}

// hue.lights() -> array of {id, name, on, bri, reachable} sorted by id
func (m *hueModule) luaLights(L *lua.LState) int {
	payload, err := m.rt.session.Lights(m.rt.ctx())
	if err != nil {
		L.RaiseError("lights query failed: %v", err)
		return 0
	}
	lights, err := bridge.ParseLights(payload)
	if err != nil {
		L.RaiseError("lights query failed: %v", err)
		return 0
	}

	tbl := L.NewTable()
	for _, id := range sortedIDs(lightIDs(lights)) {
		l := lights[id]
		row := L.NewTable()
		L.SetField(row, "id", lua.LString(id))
		L.SetField(row, "name", lua.LString(l.Name))
		L.SetField(row, "on", lua.LBool(l.State.On))
		L.SetField(row, "bri", lua.LNumber(l.State.Bri))
		L.SetField(row, "reachable", lua.LBool(l.State.Reachable))
		tbl.Append(row)
	}
	L.Push(tbl)
	return 1
}

// hue.groups() -> array of {id, name, type, any_on} sorted by id
func (m *hueModule) luaGroups(L *lua.LState) int {
	payload, err := m.rt.session.Groups(m.rt.ctx())
	if err != nil {
		L.RaiseError("groups query failed: %v", err)
		return 0
	}
	groups, err := bridge.ParseGroups(payload)
	if err != nil {
		L.RaiseError("groups query failed: %v", err)
		return 0
	}

	tbl := L.NewTable()
	for _, id := range sortedIDs(groupIDs(groups)) {
		g := groups[id]
		row := L.NewTable()
		L.SetField(row, "id", lua.LString(id))
		L.SetField(row, "name", lua.LString(g.Name))
		L.SetField(row, "type", lua.LString(g.Type))
		L.SetField(row, "any_on", lua.LBool(g.State.AnyOn))
		tbl.Append(row)
	}
	L.Push(tbl)
	return 1
}

// hue.sleep(ms)
func (m *hueModule) luaSleep(L *lua.LState) int {
	ms := L.CheckInt(1)
	select {
	case <-m.rt.ctx().Done():
		L.RaiseError("sleep interrupted: %v", m.rt.ctx().Err())
	case <-time.After(time.Duration(ms) * time.Millisecond):
	}
	return 0
}

// checkID accepts numeric or string identifiers
func checkID(L *lua.LState, n int) string {
	v := L.Get(n)
	switch v.Type() {
	case lua.LTNumber:
		return strconv.Itoa(int(v.(lua.LNumber)))
	case lua.LTString:
		return string(v.(lua.LString))
	}
	L.ArgError(n, "light or group id expected")
	return ""
}

func lightIDs(m map[string]bridge.LightRecord) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	return ids
}

func groupIDs(m map[string]bridge.LightGroup) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	return ids
}

// sortedIDs orders numeric ids numerically, anything else after them
func sortedIDs(ids []string) []string {
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

var targetMethods = map[string]lua.LGFunction{
	// Getters
	"id":    targetGetID,
	"kind":  targetGetKind,
	"name":  targetGetName,
	"is_on": targetIsOn,

	// Chainable setters (return self for chaining)
	"on":         targetOn,
	"off":        targetOff,
	"toggle":     targetToggle,
	"brightness": targetBrightness,
	"color":      targetColor,
	"state":      targetSetState,
}

func pushTarget(L *lua.LState, rt *Runtime, t bridge.Target) {
	ud := L.NewUserData()
	ud.Value = &targetUserdata{target: t, rt: rt}
	L.SetMetatable(ud, L.GetTypeMetatable(targetTypeName))
	L.Push(ud)
}

// checkTarget retrieves the targetUserdata from the Lua stack
func checkTarget(L *lua.LState) (*targetUserdata, *lua.LUserData) {
	ud := L.CheckUserData(1)
	if v, ok := ud.Value.(*targetUserdata); ok {
		return v, ud
	}
	L.ArgError(1, "hue target expected")
	return nil, nil
}

// applyCommand runs one session command and advances the runtime's
// snapshot. Transport failures abort the script; device rejections are
// logged and ride along in the session status.
func applyCommand(L *lua.LState, t *targetUserdata, name string, run func(bridge.Session) (bridge.Session, error)) {
	rt := t.rt
	if err := rt.wait(rt.ctx()); err != nil {
		L.RaiseError("%s interrupted: %v", name, err)
		return
	}
	next, err := run(rt.session)
	if err != nil {
		L.RaiseError("%s failed: %v", name, err)
		return
	}
	rt.session = next
	if !next.Ok() {
		log.Warn().
			Stringer("target", t.target).
			Strs("errors", next.LastError().ErrorDescriptions()).
			Msg("Device rejected command")
	}
}

// fetch reads the target's record for getters
func (t *targetUserdata) fetch(ctx context.Context) (string, bool, error) {
	if t.target.Kind() == bridge.KindGroup {
		payload, err := t.rt.session.GroupInfo(ctx, t.target.ID())
		if err != nil {
			return "", false, err
		}
		g, err := bridge.ParseGroup(payload)
		if err != nil {
			return "", false, err
		}
		return g.Name, g.State.AnyOn, nil
	}

	payload, err := t.rt.session.LightInfo(ctx, t.target.ID())
	if err != nil {
		return "", false, err
	}
	l, err := bridge.ParseLight(payload)
	if err != nil {
		return "", false, err
	}
	return l.Name, l.State.On, nil
}

// transitionArg reads an optional trailing transition in milliseconds
func transitionArg(L *lua.LState, n int) []bridge.CommandOption {
	if L.GetTop() < n {
		return nil
	}
	ms := L.CheckInt(n)
	return []bridge.CommandOption{bridge.WithTransition(time.Duration(ms) * time.Millisecond)}
}

// target:id() -> string
func targetGetID(L *lua.LState) int {
	t, _ := checkTarget(L)
	L.Push(lua.LString(t.target.ID()))
	return 1
}

// target:kind() -> "light" | "group"
func targetGetKind(L *lua.LState) int {
	t, _ := checkTarget(L)
	L.Push(lua.LString(t.target.Kind().String()))
	return 1
}

// target:name() -> string
func targetGetName(L *lua.LState) int {
	t, _ := checkTarget(L)
	name, _, err := t.fetch(t.rt.ctx())
	if err != nil {
		L.RaiseError("name query failed: %v", err)
		return 0
	}
	L.Push(lua.LString(name))
	return 1
}

// target:is_on() -> bool, any light on for groups
func targetIsOn(L *lua.LState) int {
	t, _ := checkTarget(L)
	_, on, err := t.fetch(t.rt.ctx())
	if err != nil {
		L.RaiseError("state query failed: %v", err)
		return 0
	}
	L.Push(lua.LBool(on))
	return 1
}

// target:on([transition_ms]) -> self
func targetOn(L *lua.LState) int {
	t, ud := checkTarget(L)
	opts := transitionArg(L, 2)
	applyCommand(L, t, "on", func(s bridge.Session) (bridge.Session, error) {
		return s.TurnOn(t.rt.ctx(), t.target, opts...)
	})
	L.Push(ud)
	return 1
}

// target:off([transition_ms]) -> self
func targetOff(L *lua.LState) int {
	t, ud := checkTarget(L)
	opts := transitionArg(L, 2)
	applyCommand(L, t, "off", func(s bridge.Session) (bridge.Session, error) {
		return s.TurnOff(t.rt.ctx(), t.target, opts...)
	})
	L.Push(ud)
	return 1
}

// target:toggle() -> self
func targetToggle(L *lua.LState) int {
	t, ud := checkTarget(L)
	_, on, err := t.fetch(t.rt.ctx())
	if err != nil {
		L.RaiseError("toggle failed: %v", err)
		return 0
	}
	applyCommand(L, t, "toggle", func(s bridge.Session) (bridge.Session, error) {
		if on {
			return s.TurnOff(t.rt.ctx(), t.target)
		}
		return s.TurnOn(t.rt.ctx(), t.target)
	})
	L.Push(ud)
	return 1
}

// target:brightness(fraction, [transition_ms]) -> self
func targetBrightness(L *lua.LState) int {
	t, ud := checkTarget(L)
	fraction := float64(L.CheckNumber(2))
	opts := transitionArg(L, 3)
	applyCommand(L, t, "brightness", func(s bridge.Session) (bridge.Session, error) {
		return s.SetBrightness(t.rt.ctx(), t.target, fraction, opts...)
	})
	L.Push(ud)
	return 1
}

// target:color("#rrggbb", [transition_ms]) -> self
// target:color(x, y, [transition_ms]) -> self
func targetColor(L *lua.LState) int {
	t, ud := checkTarget(L)

	var v color.Value
	optIdx := 3
	if L.Get(2).Type() == lua.LTString {
		rgb, err := color.ParseHex(L.CheckString(2))
		if err != nil {
			L.ArgError(2, err.Error())
			return 0
		}
		v = rgb
	} else {
		v = color.XY{X: float64(L.CheckNumber(2)), Y: float64(L.CheckNumber(3))}
		optIdx = 4
	}

	opts := transitionArg(L, optIdx)
	applyCommand(L, t, "color", func(s bridge.Session) (bridge.Session, error) {
		return s.SetColor(t.rt.ctx(), t.target, v, opts...)
	})
	L.Push(ud)
	return 1
}

// target:state(table) -> self, raw delta pass-through
func targetSetState(L *lua.LState) int {
	t, ud := checkTarget(L)
	delta := bridge.State(tableToMap(L.CheckTable(2)))
	applyCommand(L, t, "state", func(s bridge.Session) (bridge.Session, error) {
		return s.SetState(t.rt.ctx(), t.target, delta)
	})
	L.Push(ud)
	return 1
}
