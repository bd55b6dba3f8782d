package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

// Client defaults.
const (
	DefaultRelayURL = "ws://localhost:8080/ws"
	DefaultSTUN     = "stun:stun.l.google.com:19302"
)

// Client holds relayctl configuration.
type Client struct {
	// RelayURL is the websocket endpoint of the relay.
	RelayURL string

	// ICE servers for WebRTC
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
}

// Options carries CLI flag overrides.
type Options struct {
	RelayURL   string
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
}

// LoadClient resolves each setting as CLI flag > environment > default.
func LoadClient(opts Options) (*Client, error) {
	cfg := &Client{
		RelayURL:   pick(opts.RelayURL, "RELAY_URL", DefaultRelayURL),
		STUNServer: pick(opts.STUNServer, "STUN_SERVER", DefaultSTUN),
		TURNServer: pick(opts.TURNServer, "TURN_SERVER", ""),
		TURNUser:   pick(opts.TURNUser, "TURN_USERNAME", ""),
		TURNPass:   pick(opts.TURNPass, "TURN_PASSWORD", ""),
	}

	u, err := url.Parse(cfg.RelayURL)
	if err != nil {
		return nil, fmt.Errorf("invalid relay url %q: %w", cfg.RelayURL, err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return nil, fmt.Errorf("invalid relay url %q: scheme must be ws or wss", cfg.RelayURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid relay url %q: missing host", cfg.RelayURL)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}
	cfg.RelayURL = u.String()

	return cfg, nil
}

func pick(flag, env, def string) string {
	if v := strings.TrimSpace(flag); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		return v
	}
	return def
}

// ICEServers returns the STUN and TURN urls to hand to the peer connection.
// A TURN host without a scheme is expanded to its UDP and TCP variants.
func (c *Client) ICEServers() (stun []string, turn []string) {
	if c.STUNServer != "" {
		stun = []string{c.STUNServer}
	}
	if c.TURNServer == "" {
		return stun, nil
	}
	if strings.Contains(c.TURNServer, "?transport=") {
		return stun, []string{c.TURNServer}
	}
	host := c.TURNServer
	if !strings.HasPrefix(host, "turn:") && !strings.HasPrefix(host, "turns:") {
		host = "turn:" + host
	}
	if !strings.Contains(strings.SplitN(host, ":", 2)[1], ":") {
		host += ":3478"
	}
	return stun, []string{
		host + "?transport=udp",
		host + "?transport=tcp",
	}
}

// TURNCredentials returns the TURN username and password.
func (c *Client) TURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}
