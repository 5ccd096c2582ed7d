// Package discovery locates lighting bridges on the local network with an
// SSDP sweep. It is a standalone collaborator: nothing in the session
// client depends on it.
package discovery

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	ssdpAddr = "239.255.255.250:1900"

	// bridgeIDHeader marks a responder as a Hue-style bridge
	bridgeIDHeader = "hue-bridgeid"
)

// Device is one SSDP responder seen during a sweep
type Device struct {
	USN      string
	Location string
	// Headers holds every response header, names lower-cased
	Headers map[string]string
}

// IsBridge reports whether the responder identified itself as a lighting
// bridge
func (d Device) IsBridge() bool {
	_, ok := d.Headers[bridgeIDHeader]
	return ok
}

// BridgeID returns the bridge identifier header, empty for other devices
func (d Device) BridgeID() string {
	return d.Headers[bridgeIDHeader]
}

// Host returns the host part of the announced location URL
func (d Device) Host() string {
	u, err := url.Parse(d.Location)
	if err != nil {
		return ""
	}
	return u.Host
}

// Options tunes a discovery sweep
type Options struct {
	Wait time.Duration // listen window, default 3s
}

// Discover multicasts an M-SEARCH and collects unicast responders until
// the listen window closes. Malformed datagrams are skipped.
func Discover(ctx context.Context, opts Options) ([]Device, error) {
	wait := opts.Wait
	if wait == 0 {
		wait = 3 * time.Second
	}
	if deadline, ok := ctx.Deadline(); ok {
		if until := time.Until(deadline); until < wait {
			wait = until
		}
	}

	raddr, err := net.ResolveUDPAddr("udp4", ssdpAddr)
	if err != nil {
		return nil, err
	}

	conn, err := net.ListenUDP("udp4", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open discovery socket: %w", err)
	}
	defer conn.Close()

	search := "M-SEARCH * HTTP/1.1\r\n" +
		"HOST: " + ssdpAddr + "\r\n" +
		"MAN: \"ssdp:discover\"\r\n" +
		"MX: 2\r\n" +
		"ST: ssdp:all\r\n\r\n"
	if _, err := conn.WriteToUDP([]byte(search), raddr); err != nil {
		return nil, fmt.Errorf("failed to send search: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(wait))

	var devices []Device
	buf := make([]byte, 2048)
	for {
		if err := ctx.Err(); err != nil {
			return devices, err
		}

		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				return devices, nil
			}
			return devices, err
		}

		dev, ok := parseResponse(string(buf[:n]))
		if !ok {
			continue
		}
		devices = append(devices, dev)
		log.Debug().Str("usn", dev.USN).Str("location", dev.Location).Msg("SSDP responder seen")
	}
}

// Bridges runs a sweep and returns unique bridge hosts in first-seen order
func Bridges(ctx context.Context, opts Options) ([]string, error) {
	devices, err := Discover(ctx, opts)
	if err != nil {
		return nil, err
	}
	return BridgeHosts(devices), nil
}

// BridgeHosts filters a sweep down to unique hosts of devices that carry
// the bridge identifier
func BridgeHosts(devices []Device) []string {
	seen := make(map[string]bool)
	var hosts []string
	for _, d := range devices {
		if !d.IsBridge() {
			continue
		}
		host := d.Host()
		if host == "" || seen[host] {
			continue
		}
		seen[host] = true
		hosts = append(hosts, host)
	}
	return hosts
}

// parseResponse reads one "HTTP/1.1 200 OK" datagram into a Device
func parseResponse(raw string) (Device, bool) {
	lines := strings.Split(raw, "\r\n")
	if len(lines) == 0 || !strings.Contains(lines[0], "200 OK") {
		return Device{}, false
	}

	headers := make(map[string]string)
	for _, line := range lines[1:] {
		idx := strings.Index(line, ":")
		if idx <= 0 {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(line[:idx]))
		headers[name] = strings.TrimSpace(line[idx+1:])
	}
	return Device{USN: headers["usn"], Location: headers["location"], Headers: headers}, true
}
