// Package script runs Lua automation scripts against a bridge session.
// The VM is single-threaded; the embedded session snapshot advances as the
// script issues commands, so a script observes its own latest outcome.
package script

import (
	"context"
	"fmt"

	lua "github.com/yuin/gopher-lua"
	"golang.org/x/time/rate"

	"github.com/dokzlo13/huectl/internal/bridge"
)

// Runtime owns a Lua VM wired to one bridge session
type Runtime struct {
	L       *lua.LState
	session bridge.Session
	limiter *rate.Limiter
}

// NewRuntime creates a runtime around a session. The limiter throttles
// bridge commands issued from scripts; nil disables throttling.
func NewRuntime(session bridge.Session, limiter *rate.Limiter) *Runtime {
	L := lua.NewState()
	r := &Runtime{L: L, session: session, limiter: limiter}
	registerHueModule(L, r)
	return r
}

// Close releases the Lua state
func (r *Runtime) Close() {
	r.L.Close()
}

// Session returns the latest session snapshot
func (r *Runtime) Session() bridge.Session {
	return r.session
}

// RunFile executes a script file until it returns, fails or ctx fires
func (r *Runtime) RunFile(ctx context.Context, path string) error {
	r.L.SetContext(ctx)
	if err := r.L.DoFile(path); err != nil {
		return fmt.Errorf("script failed: %w", err)
	}
	return nil
}

// RunString executes source directly, for one-liners and tests
func (r *Runtime) RunString(ctx context.Context, source string) error {
	r.L.SetContext(ctx)
	if err := r.L.DoString(source); err != nil {
		return fmt.Errorf("script failed: %w", err)
	}
	return nil
}

// wait applies the command rate limit
func (r *Runtime) wait(ctx context.Context) error {
	if r.limiter == nil {
		return nil
	}
	return r.limiter.Wait(ctx)
}

func (r *Runtime) ctx() context.Context {
	if ctx := r.L.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
