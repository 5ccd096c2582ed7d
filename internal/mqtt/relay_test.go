package mqtt

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dokzlo13/huectl/internal/bridge"
	"github.com/dokzlo13/huectl/internal/store"
)

const (
	relayOK       = `[{"success":{"/lights/3/state/on":true}}]`
	relayRejected = `[{"error":{"type":201,"address":"/lights/3/state/on","description":"parameter, on, not modifiable"}}]`
)

type recordedRequest struct {
	method string
	path   string
	body   map[string]any
}

// relayBridge queues canned response bodies (the last one repeats) and
// records what the relay sends.
type relayBridge struct {
	mu        sync.Mutex
	responses []string
	requests  []recordedRequest
	srv       *httptest.Server
}

func newRelayBridge(t *testing.T, responses ...string) *relayBridge {
	t.Helper()
	rb := &relayBridge{responses: responses}
	rb.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rb.mu.Lock()
		defer rb.mu.Unlock()

		req := recordedRequest{method: r.Method, path: r.URL.Path}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			json.Unmarshal(data, &req.body)
		}
		rb.requests = append(rb.requests, req)

		body := relayOK
		if len(rb.responses) > 0 {
			body = rb.responses[0]
			if len(rb.responses) > 1 {
				rb.responses = rb.responses[1:]
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(rb.srv.Close)
	return rb
}

func (rb *relayBridge) session() bridge.Session {
	return bridge.ConnectAs(strings.TrimPrefix(rb.srv.URL, "http://"), "u1")
}

func (rb *relayBridge) request(t *testing.T, i int) recordedRequest {
	t.Helper()
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if i >= len(rb.requests) {
		t.Fatalf("request %d not recorded, saw %d", i, len(rb.requests))
	}
	return rb.requests[i]
}

func (rb *relayBridge) requestCount() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return len(rb.requests)
}

func pct(v float64) *float64 { return &v }

func TestTranslate(t *testing.T) {
	on := true
	off := false

	t.Run("on only", func(t *testing.T) {
		delta, err := translate(&Command{On: &on})
		assert.NoError(t, err)
		assert.Equal(t, bridge.State{"on": true}, delta)
	})

	t.Run("brightness zero turns off", func(t *testing.T) {
		delta, err := translate(&Command{Brightness: pct(0)})
		assert.NoError(t, err)
		assert.Equal(t, bridge.State{"on": false}, delta)
	})

	t.Run("brightness scales to wire range", func(t *testing.T) {
		delta, err := translate(&Command{Brightness: pct(50)})
		assert.NoError(t, err)
		assert.Equal(t, true, delta["on"])
		assert.Equal(t, uint8(128), delta["bri"])
	})

	t.Run("brightness clamps above hundred percent", func(t *testing.T) {
		delta, err := translate(&Command{Brightness: pct(250)})
		assert.NoError(t, err)
		assert.Equal(t, uint8(255), delta["bri"])
	})

	t.Run("temperature wins over color", func(t *testing.T) {
		delta, err := translate(&Command{Temperature: 350, Color: "#ff0000"})
		assert.NoError(t, err)
		assert.Equal(t, uint16(350), delta["ct"])
		assert.NotContains(t, delta, "xy")
	})

	t.Run("color maps to xy", func(t *testing.T) {
		delta, err := translate(&Command{Color: "#ff0000"})
		assert.NoError(t, err)
		xy, ok := delta["xy"].([]float64)
		if assert.True(t, ok) {
			assert.InDelta(t, 0.700606, xy[0], 1e-4)
			assert.InDelta(t, 0.299301, xy[1], 1e-4)
		}
	})

	t.Run("duration adds transition", func(t *testing.T) {
		delta, err := translate(&Command{On: &off, Duration: 1500})
		assert.NoError(t, err)
		assert.Equal(t, uint16(15), delta["transitiontime"])
	})

	t.Run("duration alone is a noop", func(t *testing.T) {
		delta, err := translate(&Command{Duration: 1500})
		assert.NoError(t, err)
		assert.Empty(t, delta)
	})

	t.Run("bad color fails", func(t *testing.T) {
		_, err := translate(&Command{Color: "#nothex"})
		assert.Error(t, err)
	})
}

func TestRelayAppliesCommand(t *testing.T) {
	rb := newRelayBridge(t, relayOK)
	relay := NewRelay(rb.session(), nil, nil)

	on := true
	assert.NoError(t, relay.HandleCommand("3", &Command{On: &on}))

	req := rb.request(t, 0)
	assert.Equal(t, http.MethodPut, req.method)
	assert.Equal(t, "/api/u1/lights/3/state", req.path)
	assert.Equal(t, true, req.body["on"])
	assert.True(t, relay.Session().Ok())
}

func TestRelayGroupTarget(t *testing.T) {
	rb := newRelayBridge(t, relayOK)
	relay := NewRelay(rb.session(), nil, nil)

	off := false
	assert.NoError(t, relay.HandleCommand("g2", &Command{On: &off}))
	assert.Equal(t, "/api/u1/groups/2/action", rb.request(t, 0).path)
}

func TestRelayBadTargetSendsNothing(t *testing.T) {
	rb := newRelayBridge(t)
	relay := NewRelay(rb.session(), nil, nil)

	on := true
	assert.Error(t, relay.HandleCommand("kitchen", &Command{On: &on}))
	assert.Equal(t, 0, rb.requestCount())
}

func TestRelayEmptyCommandIsNoop(t *testing.T) {
	rb := newRelayBridge(t)
	relay := NewRelay(rb.session(), nil, nil)

	assert.NoError(t, relay.HandleCommand("3", &Command{}))
	assert.Equal(t, 0, rb.requestCount())
}

func TestRelayJournalsOutcomes(t *testing.T) {
	rb := newRelayBridge(t, relayRejected, relayOK)
	st, err := store.Open(filepath.Join(t.TempDir(), "relay.sqlite"))
	assert.NoError(t, err)
	defer st.Close()

	relay := NewRelay(rb.session(), st, nil)

	on := true
	assert.NoError(t, relay.HandleCommand("3", &Command{On: &on}))
	assert.False(t, relay.Session().Ok())
	assert.NoError(t, relay.HandleCommand("3", &Command{On: &on}))
	assert.True(t, relay.Session().Ok())

	entries, err := st.RecentCommands(5)
	assert.NoError(t, err)
	if assert.Len(t, entries, 2) {
		assert.Equal(t, "ok", entries[0].Outcome)
		assert.Equal(t, "error", entries[1].Outcome)
		assert.Equal(t, "parameter, on, not modifiable", entries[1].Error)
		assert.Equal(t, "light 3", entries[1].Target)
		assert.Equal(t, true, entries[1].Delta["on"])
	}
}

type fakePublisher struct {
	mu       sync.Mutex
	targets  []string
	payloads []map[string]any
}

func (p *fakePublisher) Publish(target string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.targets = append(p.targets, target)
	p.payloads = append(p.payloads, payload.(map[string]any))
	return nil
}

func (p *fakePublisher) published(t *testing.T, i int) (string, map[string]any) {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	if i >= len(p.targets) {
		t.Fatalf("publish %d not recorded, saw %d", i, len(p.targets))
	}
	return p.targets[i], p.payloads[i]
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.targets)
}

func TestRelayPublishesStatus(t *testing.T) {
	rb := newRelayBridge(t, relayOK)
	relay := NewRelay(rb.session(), nil, nil)
	pub := &fakePublisher{}
	relay.SetPublisher(pub)

	on := true
	assert.NoError(t, relay.HandleCommand("3", &Command{On: &on}))

	target, payload := pub.published(t, 0)
	assert.Equal(t, "3", target)
	assert.Equal(t, "ok", payload["status"])
	assert.Equal(t, true, payload["on"])
	assert.NotContains(t, payload, "errors")
}

func TestRelayPublishesRejection(t *testing.T) {
	rb := newRelayBridge(t, relayRejected)
	relay := NewRelay(rb.session(), nil, nil)
	pub := &fakePublisher{}
	relay.SetPublisher(pub)

	on := true
	assert.NoError(t, relay.HandleCommand("g2", &Command{On: &on}))

	target, payload := pub.published(t, 0)
	assert.Equal(t, "g2", target)
	assert.Equal(t, "error", payload["status"])
	assert.Equal(t, []string{"parameter, on, not modifiable"}, payload["errors"])
}

func TestRelayTransportErrorPublishesNothing(t *testing.T) {
	rb := newRelayBridge(t)
	relay := NewRelay(rb.session(), nil, nil)
	pub := &fakePublisher{}
	relay.SetPublisher(pub)
	rb.srv.Close()

	on := true
	assert.Error(t, relay.HandleCommand("3", &Command{On: &on}))
	assert.Equal(t, 0, pub.count())
}

func TestRelayTransportErrorJournaled(t *testing.T) {
	rb := newRelayBridge(t)
	st, err := store.Open(filepath.Join(t.TempDir(), "relay.sqlite"))
	assert.NoError(t, err)
	defer st.Close()

	relay := NewRelay(rb.session(), st, nil)
	rb.srv.Close()

	on := true
	assert.Error(t, relay.HandleCommand("3", &Command{On: &on}))

	entries, err := st.RecentCommands(1)
	assert.NoError(t, err)
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "transport_error", entries[0].Outcome)
		assert.NotEmpty(t, entries[0].Error)
	}
}
