package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/dokzlo13/huectl/internal/bridge"
	"github.com/dokzlo13/huectl/internal/color"
	"github.com/dokzlo13/huectl/internal/store"
)

const commandTimeout = 30 * time.Second

// StatusPublisher reports applied commands back to the broker. Client
// satisfies it.
type StatusPublisher interface {
	Publish(target string, payload any) error
}

// Relay applies broker commands to a bridge session. The subscription
// dispatches commands concurrently; the relay serializes them so the
// session snapshot advances one command at a time.
type Relay struct {
	mu        sync.Mutex
	session   bridge.Session
	journal   *store.Store
	limiter   *rate.Limiter
	publisher StatusPublisher
}

// NewRelay wires a session to the set topic. journal and limiter may be
// nil to skip persistence or throttling.
func NewRelay(session bridge.Session, journal *store.Store, limiter *rate.Limiter) *Relay {
	return &Relay{session: session, journal: journal, limiter: limiter}
}

// SetPublisher attaches the status topic. Every applied command is then
// reported on {prefix}/status/{target}.
func (r *Relay) SetPublisher(p StatusPublisher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.publisher = p
}

// Session returns the latest session snapshot
func (r *Relay) Session() bridge.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

// HandleCommand implements CommandHandler
func (r *Relay) HandleCommand(target string, cmd *Command) error {
	t, err := bridge.ParseTarget(target)
	if err != nil {
		return fmt.Errorf("bad target %q: %w", target, err)
	}
	delta, err := translate(cmd)
	if err != nil {
		return err
	}
	if len(delta) == 0 {
		log.Debug().Str("target", target).Msg("Empty command, nothing to do")
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	next, err := r.session.SetState(ctx, t, delta)
	r.record(t, delta, next, err)
	if err != nil {
		return err
	}
	r.session = next
	if !next.Ok() {
		log.Warn().
			Stringer("target", t).
			Strs("errors", next.LastError().ErrorDescriptions()).
			Msg("Device rejected command")
	}
	r.publishStatus(target, delta, next)
	return nil
}

// publishStatus reports an applied command on the status topic, mirroring
// the set topic suffix. Transport failures never get here; there is no
// device outcome to report.
func (r *Relay) publishStatus(target string, delta bridge.State, next bridge.Session) {
	if r.publisher == nil {
		return
	}

	payload := map[string]any{"status": next.Status().String()}
	for k, v := range delta {
		payload[k] = v
	}
	if !next.Ok() {
		payload["errors"] = next.LastError().ErrorDescriptions()
	}

	if err := r.publisher.Publish(target, payload); err != nil {
		log.Warn().Err(err).Str("target", target).Msg("Status publish failed")
	}
}

func (r *Relay) record(t bridge.Target, delta bridge.State, next bridge.Session, err error) {
	if r.journal == nil {
		return
	}

	e := store.JournalEntry{
		Host:    r.session.Host(),
		Target:  t.String(),
		Delta:   delta,
		Outcome: "ok",
	}
	switch {
	case err != nil:
		e.Outcome = "transport_error"
		e.Error = err.Error()
	case !next.Ok():
		e.Outcome = "error"
		descs := next.LastError().ErrorDescriptions()
		if len(descs) > 0 {
			e.Error = descs[0]
		}
	}

	if _, jerr := r.journal.AppendCommand(e); jerr != nil {
		log.Warn().Err(jerr).Msg("Journal write failed")
	}
}

// translate expands a command into the wire delta it stands for.
// Temperature wins over color when a payload carries both.
func translate(cmd *Command) (bridge.State, error) {
	delta := bridge.State{}
	var opts []bridge.CommandOption

	if cmd.On != nil {
		delta["on"] = *cmd.On
	}
	if cmd.Brightness != nil {
		pct := *cmd.Brightness
		if pct <= 0 {
			delta["on"] = false
		} else {
			if pct > 100 {
				pct = 100
			}
			delta["on"] = true
			opts = append(opts, bridge.WithBrightness(pct/100))
		}
	}

	switch {
	case cmd.Temperature > 0:
		opts = append(opts, bridge.WithColorTemperature(cmd.Temperature))
	case cmd.Color != "":
		rgb, err := color.ParseHex(cmd.Color)
		if err != nil {
			return nil, fmt.Errorf("bad color %q: %w", cmd.Color, err)
		}
		opts = append(opts, bridge.WithColor(rgb))
	}

	if len(delta) == 0 && len(opts) == 0 {
		return nil, nil
	}
	if cmd.Duration > 0 {
		opts = append(opts, bridge.WithTransition(time.Duration(cmd.Duration)*time.Millisecond))
	}

	for _, opt := range opts {
		opt(delta)
	}
	return delta, nil
}
