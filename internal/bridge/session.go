// Package bridge is a stateful client for Hue-style lighting bridges
// speaking the v1 REST/JSON API. The central type is Session, an immutable
// connection descriptor: commands return a fresh snapshot carrying the
// outcome of that one call, so a control flow reads as a chain of
// reassignments and old snapshots stay valid.
package bridge

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huectl/internal/color"
)

// Status reports whether the most recent mutating call on a session
// succeeded at the device level
type Status int

const (
	StatusOK Status = iota
	StatusError
)

func (s Status) String() string {
	if s == StatusError {
		return "error"
	}
	return "ok"
}

const defaultTimeout = 10 * time.Second

// Config controls session construction
type Config struct {
	Host     string
	Username string
	// Timeout applies to the default HTTP client. Ignored when Transport
	// is set.
	Timeout   time.Duration
	Transport Doer
}

// Session is an immutable descriptor of one bridge connection: host,
// optional credential, and the classified outcome of the latest mutating
// call. Copies are cheap and old values never change, so snapshots can be
// kept, compared and reused freely.
type Session struct {
	host     string
	username string
	status   Status
	lastErr  Results
	rc       *restClient
}

// Connect returns a session for the bridge at host with no credential
// installed. Constructors do no network I/O.
func Connect(host string) Session {
	return ConnectWithConfig(Config{Host: host})
}

// ConnectAs returns a session with a known credential installed
func ConnectAs(host, username string) Session {
	return ConnectWithConfig(Config{Host: host, Username: username})
}

// ConnectWithConfig builds a session with explicit transport control
func ConnectWithConfig(cfg Config) Session {
	transport := cfg.Transport
	if transport == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = defaultTimeout
		}
		transport = &http.Client{Timeout: timeout}
	}
	return Session{
		host:     cfg.Host,
		username: cfg.Username,
		rc:       &restClient{http: transport},
	}
}

func (s Session) Host() string     { return s.host }
func (s Session) Username() string { return s.username }

// Status reflects only the most recent mutating call; it never
// accumulates across calls
func (s Session) Status() Status { return s.status }

// Ok reports whether the most recent mutating call succeeded
func (s Session) Ok() bool { return s.status == StatusOK }

// LastError returns the full response array of the most recent failed
// call, nil when the session is ok
func (s Session) LastError() Results { return s.lastErr }

func (s Session) url(segments ...string) string {
	return buildURL(s.host, s.username, segments...)
}

// Authorize registers this client with the bridge, using the label as both
// device type and requested username. The credential is installed on the
// returned session even when the device rejects the request (usually "link
// button not pressed"): after the button press the same snapshot retries
// successfully. Check Status on the result.
func (s Session) Authorize(ctx context.Context, deviceLabel string) (Session, error) {
	payload := map[string]string{"devicetype": deviceLabel, "username": deviceLabel}
	decoded, err := s.rc.post(ctx, buildURL(s.host, ""), payload)
	if err != nil {
		return s, err
	}
	s.username = deviceLabel
	s.status, s.lastErr = classify(decoded)
	log.Debug().Str("host", s.host).Stringer("status", s.status).Msg("Authorization attempted")
	return s, nil
}

// Register asks the bridge to generate a credential for this client.
// Unlike Authorize nothing is installed on a rejected request; on success
// the generated username is read from the response and installed.
func (s Session) Register(ctx context.Context, deviceType string) (Session, error) {
	decoded, err := s.rc.post(ctx, buildURL(s.host, ""), map[string]string{"devicetype": deviceType})
	if err != nil {
		return s, err
	}
	s.status, s.lastErr = classify(decoded)
	if s.status == StatusOK {
		s.username = generatedUsername(decoded)
	}
	log.Debug().Str("host", s.host).Stringer("status", s.status).Msg("Registration attempted")
	return s, nil
}

func generatedUsername(decoded any) string {
	arr, ok := decoded.([]any)
	if !ok {
		return ""
	}
	for _, elem := range arr {
		obj, ok := elem.(map[string]any)
		if !ok {
			continue
		}
		success, ok := obj["success"].(map[string]any)
		if !ok {
			continue
		}
		if u, ok := success["username"].(string); ok {
			return u
		}
	}
	return ""
}

// Info fetches the bridge datastore. Queries return the decoded payload
// as-is and never touch session status; a credential-less session may
// query and gets the device's own error payload back.
func (s Session) Info(ctx context.Context) (any, error) {
	return s.rc.get(ctx, s.url())
}

// Lights fetches all lights known to the bridge
func (s Session) Lights(ctx context.Context) (any, error) {
	return s.rc.get(ctx, s.url("lights"))
}

// LightInfo fetches one light's full record
func (s Session) LightInfo(ctx context.Context, id string) (any, error) {
	return s.rc.get(ctx, s.url("lights", id))
}

// Groups fetches all groups known to the bridge
func (s Session) Groups(ctx context.Context) (any, error) {
	return s.rc.get(ctx, s.url("groups"))
}

// GroupInfo fetches one group's full record
func (s Session) GroupInfo(ctx context.Context, id string) (any, error) {
	return s.rc.get(ctx, s.url("groups", id))
}

// TurnOn switches the target on
func (s Session) TurnOn(ctx context.Context, t Target, opts ...CommandOption) (Session, error) {
	return s.SetState(ctx, t, State{"on": true}, opts...)
}

// TurnOff switches the target off
func (s Session) TurnOff(ctx context.Context, t Target, opts ...CommandOption) (Session, error) {
	return s.SetState(ctx, t, State{"on": false}, opts...)
}

// SetColor applies a color in any supported representation. XY passes
// through, HSV maps onto hue/sat/bri, RGB converts to xy first (see
// color.RGB.XY for the pure-black caveat).
func (s Session) SetColor(ctx context.Context, t Target, v color.Value, opts ...CommandOption) (Session, error) {
	return s.SetState(ctx, t, colorState(v), opts...)
}

// SetBrightness scales a 0..1 fraction onto the device's byte range,
// rounding half away from zero
func (s Session) SetBrightness(ctx context.Context, t Target, fraction float64, opts ...CommandOption) (Session, error) {
	return s.SetState(ctx, t, State{"bri": wireBrightness(fraction)}, opts...)
}

// SetState sends a raw state delta to the target and classifies the
// device's answer into the returned snapshot. The error return is reserved
// for encode, transport and decode failures; device-reported errors
// surface through Status and LastError on the new snapshot. An empty delta
// still round-trips and classifies from the response alone.
func (s Session) SetState(ctx context.Context, t Target, delta State, opts ...CommandOption) (Session, error) {
	payload := stateWith(delta, opts)
	decoded, err := s.rc.put(ctx, s.url(t.path()...), payload)
	if err != nil {
		commandsTotal.WithLabelValues(t.Kind().String(), "transport_error").Inc()
		return s, err
	}
	s.status, s.lastErr = classify(decoded)
	commandsTotal.WithLabelValues(t.Kind().String(), s.status.String()).Inc()
	log.Debug().
		Str("host", s.host).
		Stringer("target", t).
		Stringer("status", s.status).
		Msg("State command applied")
	return s, nil
}
