package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dokzlo13/huectl/internal/color"
)

const (
	okResponse      = `[{"success":{"/lights/1/state/on":true}}]`
	linkButtonError = `[{"error":{"type":101,"address":"","description":"link button not pressed"}}]`
	partialError    = `[{"success":{"/lights/1/state/bri":200}},{"error":{"type":201,"address":"/lights/1/state/on","description":"parameter, on, not modifiable"}}]`
)

type fakeRequest struct {
	method string
	path   string
	raw    string
	body   map[string]any
}

// fakeBridge plays device: it queues canned response bodies (the last one
// repeats) and records every request it sees.
type fakeBridge struct {
	mu        sync.Mutex
	responses []string
	requests  []fakeRequest
	srv       *httptest.Server
}

func newFakeBridge(t *testing.T, responses ...string) *fakeBridge {
	t.Helper()
	fb := &fakeBridge{responses: responses}
	fb.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		defer fb.mu.Unlock()

		req := fakeRequest{method: r.Method, path: r.URL.Path}
		data, _ := io.ReadAll(r.Body)
		if len(data) > 0 {
			req.raw = string(data)
			json.Unmarshal(data, &req.body)
		}
		fb.requests = append(fb.requests, req)

		body := okResponse
		if len(fb.responses) > 0 {
			body = fb.responses[0]
			if len(fb.responses) > 1 {
				fb.responses = fb.responses[1:]
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(fb.srv.Close)
	return fb
}

func (f *fakeBridge) session(username string) Session {
	host := strings.TrimPrefix(f.srv.URL, "http://")
	if username == "" {
		return Connect(host)
	}
	return ConnectAs(host, username)
}

func (f *fakeBridge) request(t *testing.T, i int) fakeRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if i >= len(f.requests) {
		t.Fatalf("only %d requests recorded, want index %d", len(f.requests), i)
	}
	return f.requests[i]
}

func (f *fakeBridge) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func TestTurnOnHitsLightStateEndpoint(t *testing.T) {
	fb := newFakeBridge(t, okResponse)
	s, err := fb.session("u1").TurnOn(context.Background(), Light(3))
	if err != nil {
		t.Fatalf("TurnOn() error = %v", err)
	}
	if !s.Ok() {
		t.Errorf("status = %v, want ok", s.Status())
	}

	req := fb.request(t, 0)
	if req.method != http.MethodPut || req.path != "/api/u1/lights/3/state" {
		t.Errorf("request = %s %s, want PUT /api/u1/lights/3/state", req.method, req.path)
	}
	if on, _ := req.body["on"].(bool); !on || len(req.body) != 1 {
		t.Errorf("body = %v, want {\"on\":true}", req.raw)
	}
}

func TestTurnOffGroupHitsActionEndpoint(t *testing.T) {
	fb := newFakeBridge(t, okResponse)
	if _, err := fb.session("u1").TurnOff(context.Background(), AllLights); err != nil {
		t.Fatalf("TurnOff() error = %v", err)
	}

	req := fb.request(t, 0)
	if req.path != "/api/u1/groups/0/action" {
		t.Errorf("path = %s, want /api/u1/groups/0/action", req.path)
	}
	if on, found := req.body["on"]; !found || on != false {
		t.Errorf("body = %v, want {\"on\":false}", req.raw)
	}
}

func TestDeviceErrorFailsCallAndKeepsWholePayload(t *testing.T) {
	fb := newFakeBridge(t, partialError, okResponse)
	ctx := context.Background()

	failed, err := fb.session("u1").TurnOn(ctx, Light(1))
	if err != nil {
		t.Fatalf("TurnOn() error = %v", err)
	}
	if failed.Ok() {
		t.Fatal("status = ok, want error")
	}
	if len(failed.LastError()) != 2 {
		t.Errorf("LastError() len = %d, want the whole response array", len(failed.LastError()))
	}
	descs := failed.LastError().ErrorDescriptions()
	if len(descs) != 1 || !strings.Contains(descs[0], "not modifiable") {
		t.Errorf("descriptions = %v", descs)
	}

	recovered, err := failed.TurnOn(ctx, Light(1))
	if err != nil {
		t.Fatalf("TurnOn() error = %v", err)
	}
	if !recovered.Ok() || recovered.LastError() != nil {
		t.Errorf("recovered status = %v lastError = %v, want clean ok", recovered.Status(), recovered.LastError())
	}
	// The failed snapshot is a value; the follow-up call cannot rewrite it.
	if failed.Ok() {
		t.Error("earlier snapshot mutated by later call")
	}
}

func TestQueriesLeaveStatusUntouched(t *testing.T) {
	fb := newFakeBridge(t, linkButtonError, `{"1":{"name":"Desk"}}`)
	ctx := context.Background()

	s, err := fb.session("u1").SetState(ctx, Light(1), State{"bri": 300})
	if err != nil {
		t.Fatalf("SetState() error = %v", err)
	}
	if s.Ok() {
		t.Fatal("status = ok, want error")
	}

	payload, err := s.Lights(ctx)
	if err != nil {
		t.Fatalf("Lights() error = %v", err)
	}
	m, ok := payload.(map[string]any)
	if !ok || m["1"] == nil {
		t.Errorf("payload = %#v", payload)
	}
	if s.Status() != StatusError {
		t.Error("query moved session status")
	}
}

func TestAuthorizeInstallsCredentialOptimistically(t *testing.T) {
	fb := newFakeBridge(t, linkButtonError, `[{"success":{"username":"myapp#cli"}}]`)
	ctx := context.Background()

	rejected, err := fb.session("").Authorize(ctx, "myapp#cli")
	if err != nil {
		t.Fatalf("Authorize() error = %v", err)
	}
	if rejected.Username() != "myapp#cli" {
		t.Errorf("Username() = %q, want credential installed despite rejection", rejected.Username())
	}
	if rejected.Ok() {
		t.Fatal("status = ok, want error")
	}
	if descs := rejected.LastError().ErrorDescriptions(); len(descs) != 1 || descs[0] != "link button not pressed" {
		t.Errorf("descriptions = %v", descs)
	}

	req := fb.request(t, 0)
	if req.method != http.MethodPost || req.path != "/api" {
		t.Errorf("request = %s %s, want POST /api", req.method, req.path)
	}
	if req.body["devicetype"] != "myapp#cli" || req.body["username"] != "myapp#cli" {
		t.Errorf("body = %v", req.raw)
	}

	// Same snapshot retried after the link button press.
	accepted, err := rejected.Authorize(ctx, "myapp#cli")
	if err != nil {
		t.Fatalf("Authorize() retry error = %v", err)
	}
	if !accepted.Ok() || accepted.Username() != "myapp#cli" {
		t.Errorf("retry: status = %v username = %q", accepted.Status(), accepted.Username())
	}
	// Registration always posts to the bare api root, installed credential
	// or not.
	if req := fb.request(t, 1); req.path != "/api" {
		t.Errorf("retry path = %s, want /api", req.path)
	}
}

func TestRegisterReadsGeneratedUsername(t *testing.T) {
	fb := newFakeBridge(t, `[{"success":{"username":"83b7780291a6ceffbe0bd049104df"}}]`)

	s, err := fb.session("").Register(context.Background(), "huectl#cli")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if !s.Ok() || s.Username() != "83b7780291a6ceffbe0bd049104df" {
		t.Errorf("status = %v username = %q", s.Status(), s.Username())
	}

	req := fb.request(t, 0)
	if len(req.body) != 1 || req.body["devicetype"] != "huectl#cli" {
		t.Errorf("body = %v, want devicetype only", req.raw)
	}
}

func TestRegisterRejectionInstallsNothing(t *testing.T) {
	fb := newFakeBridge(t, linkButtonError)

	s, err := fb.session("").Register(context.Background(), "huectl#cli")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if s.Username() != "" {
		t.Errorf("Username() = %q, want empty after rejection", s.Username())
	}
	if s.Ok() {
		t.Error("status = ok, want error")
	}
}

func TestEmptyDeltaClassifiesFromResponseAlone(t *testing.T) {
	fb := newFakeBridge(t, linkButtonError, `[]`)
	ctx := context.Background()

	s, err := fb.session("u1").SetState(ctx, Light(1), State{"bri": 300})
	if err != nil {
		t.Fatalf("SetState() error = %v", err)
	}
	if s.Ok() {
		t.Fatal("status = ok, want error")
	}

	s, err = s.SetState(ctx, Light(1), nil)
	if err != nil {
		t.Fatalf("SetState() error = %v", err)
	}
	if !s.Ok() {
		t.Error("empty delta with clean response should classify ok")
	}
	if req := fb.request(t, 1); req.raw != "{}" {
		t.Errorf("raw body = %q, want {}", req.raw)
	}
}

func TestSetBrightnessWireValue(t *testing.T) {
	fb := newFakeBridge(t, okResponse)
	if _, err := fb.session("u1").SetBrightness(context.Background(), Light(2), 0.5); err != nil {
		t.Fatalf("SetBrightness() error = %v", err)
	}
	if req := fb.request(t, 0); req.body["bri"] != float64(128) {
		t.Errorf("bri = %v, want 128", req.body["bri"])
	}
}

func TestSetColorOnWire(t *testing.T) {
	ctx := context.Background()

	t.Run("hsv", func(t *testing.T) {
		fb := newFakeBridge(t, okResponse)
		if _, err := fb.session("u1").SetColor(ctx, Light(1), color.HSV{H: 21845, S: 255, V: 254}); err != nil {
			t.Fatalf("SetColor() error = %v", err)
		}
		body := fb.request(t, 0).body
		if body["hue"] != float64(21845) || body["sat"] != float64(255) || body["bri"] != float64(254) {
			t.Errorf("body = %v", body)
		}
	})

	t.Run("xy", func(t *testing.T) {
		fb := newFakeBridge(t, okResponse)
		if _, err := fb.session("u1").SetColor(ctx, Light(1), color.XY{X: 0.4, Y: 0.5}); err != nil {
			t.Fatalf("SetColor() error = %v", err)
		}
		xy, ok := fb.request(t, 0).body["xy"].([]any)
		if !ok || xy[0] != 0.4 || xy[1] != 0.5 {
			t.Errorf("xy = %v", fb.request(t, 0).raw)
		}
	})

	t.Run("rgb converts", func(t *testing.T) {
		fb := newFakeBridge(t, okResponse)
		if _, err := fb.session("u1").SetColor(ctx, Light(1), color.RGB{R: 1}); err != nil {
			t.Fatalf("SetColor() error = %v", err)
		}
		xy, ok := fb.request(t, 0).body["xy"].([]any)
		if !ok {
			t.Fatalf("body = %v", fb.request(t, 0).raw)
		}
		if math.Abs(xy[0].(float64)-0.700606) > 1e-4 || math.Abs(xy[1].(float64)-0.299301) > 1e-4 {
			t.Errorf("xy = %v, want red chromaticity", xy)
		}
	})
}

func TestTransitionOptionOnWire(t *testing.T) {
	fb := newFakeBridge(t, okResponse)
	_, err := fb.session("u1").TurnOn(context.Background(), Light(1), WithTransition(999*time.Millisecond))
	if err != nil {
		t.Fatalf("TurnOn() error = %v", err)
	}
	body := fb.request(t, 0).body
	if body["transitiontime"] != float64(9) {
		t.Errorf("transitiontime = %v, want 9", body["transitiontime"])
	}
	if body["on"] != true {
		t.Errorf("on = %v", body["on"])
	}
}

func TestSetColorBlackFailsEncode(t *testing.T) {
	fb := newFakeBridge(t, okResponse)
	orig := fb.session("u1")

	s, err := orig.SetColor(context.Background(), Light(1), color.RGB{})
	if !errors.Is(err, ErrEncode) {
		t.Fatalf("SetColor() error = %v, want ErrEncode", err)
	}
	if fb.requestCount() != 0 {
		t.Error("request went out despite encode failure")
	}
	if s.Status() != orig.Status() {
		t.Error("session changed on hard failure")
	}
}

func TestTransportErrorReturnsOriginalSession(t *testing.T) {
	fb := newFakeBridge(t)
	s := fb.session("u1")
	fb.srv.Close()

	got, err := s.TurnOn(context.Background(), Light(1))
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("TurnOn() error = %v, want ErrTransport", err)
	}
	if got.Status() != s.Status() || got.Username() != s.Username() {
		t.Error("session changed on transport failure")
	}
}

func TestCommandChaining(t *testing.T) {
	fb := newFakeBridge(t, okResponse)
	ctx := context.Background()

	s := fb.session("u1")
	var err error
	for _, step := range []func() (Session, error){
		func() (Session, error) { return s.TurnOn(ctx, Light(1)) },
		func() (Session, error) { return s.SetBrightness(ctx, Light(1), 0.75) },
		func() (Session, error) { return s.SetColor(ctx, Light(1), color.XY{X: 0.3, Y: 0.3}) },
		func() (Session, error) { return s.TurnOff(ctx, AllLights) },
	} {
		if s, err = step(); err != nil {
			t.Fatalf("chain step error = %v", err)
		}
		if !s.Ok() {
			t.Fatalf("chain step status = %v", s.Status())
		}
	}
	if fb.requestCount() != 4 {
		t.Errorf("requests = %d, want 4", fb.requestCount())
	}
}
