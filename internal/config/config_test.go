package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestServerFromEnv(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want Server
	}{
		{
			name: "defaults",
			env:  map[string]string{},
			want: Server{
				Port:            "8080",
				RoomCapacity:    2,
				MaxMessageSize:  64 * 1024,
				AllowedOrigins:  []string{"*"},
				RatePerSecond:   0,
				RateBurst:       40,
				ShutdownTimeout: 10 * time.Second,
			},
		},
		{
			name: "overrides",
			env: map[string]string{
				"PORT":                  ":9000",
				"ROOM_CAPACITY":         "10",
				"MAX_MESSAGE_SIZE":      "4096",
				"ALLOWED_ORIGINS":       "https://a.example, http://localhost:3000 ,",
				"RATE_LIMIT_PER_SECOND": "0",
				"RATE_LIMIT_BURST":      "5",
				"SHUTDOWN_TIMEOUT":      "3s",
			},
			want: Server{
				Port:            "9000",
				RoomCapacity:    10,
				MaxMessageSize:  4096,
				AllowedOrigins:  []string{"https://a.example", "http://localhost:3000"},
				RatePerSecond:   0,
				RateBurst:       5,
				ShutdownTimeout: 3 * time.Second,
			},
		},
		{
			name: "invalid values fall back",
			env: map[string]string{
				"PORT":                  "http",
				"ROOM_CAPACITY":         "0",
				"MAX_MESSAGE_SIZE":      "big",
				"RATE_LIMIT_PER_SECOND": "-1",
				"RATE_LIMIT_BURST":      "-3",
				"SHUTDOWN_TIMEOUT":      "soon",
			},
			want: Server{
				Port:            "8080",
				RoomCapacity:    2,
				MaxMessageSize:  64 * 1024,
				AllowedOrigins:  []string{"*"},
				RatePerSecond:   0,
				RateBurst:       40,
				ShutdownTimeout: 10 * time.Second,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, serverFromEnv(envMap(tt.env)))
		})
	}
}

func TestServerFromEnv_WarningsUseDefaultLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	cfg := serverFromEnv(envMap(map[string]string{"ROOM_CAPACITY": "many"}))

	assert.Equal(t, DefaultRoomCapacity, cfg.RoomCapacity)
	assert.Contains(t, buf.String(), `"msg":"invalid ROOM_CAPACITY, using default"`)
	assert.Contains(t, buf.String(), `"value":"many"`)
}

func TestLoadDotEnv(t *testing.T) {
	const key = "SIGNAL_RELAY_DOTENV_TEST"
	t.Cleanup(func() { os.Unsetenv(key) })

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(key+"=from-file\n"), 0o600))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv(key))

	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}

func TestServer_Addr(t *testing.T) {
	assert.Equal(t, ":8080", Server{Port: "8080"}.Addr())
}

func TestLoadClient_Priority(t *testing.T) {
	t.Setenv("RELAY_URL", "wss://env.example/ws")
	t.Setenv("STUN_SERVER", "stun:env.example:3478")
	t.Setenv("TURN_SERVER", "")

	cfg, err := LoadClient(Options{STUNServer: "stun:flag.example:3478"})
	require.NoError(t, err)

	assert.Equal(t, "wss://env.example/ws", cfg.RelayURL)
	assert.Equal(t, "stun:flag.example:3478", cfg.STUNServer)
	assert.Empty(t, cfg.TURNServer)
}

func TestLoadClient_Defaults(t *testing.T) {
	for _, k := range []string{"RELAY_URL", "STUN_SERVER", "TURN_SERVER", "TURN_USERNAME", "TURN_PASSWORD"} {
		t.Setenv(k, "")
	}

	cfg, err := LoadClient(Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultRelayURL, cfg.RelayURL)
	assert.Equal(t, DefaultSTUN, cfg.STUNServer)
}

func TestLoadClient_RelayURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "ws://localhost:8080/ws", want: "ws://localhost:8080/ws"},
		{in: "https://relay.example", want: "wss://relay.example/ws"},
		{in: "http://relay.example/", want: "ws://relay.example/ws"},
		{in: "wss://relay.example/signal", want: "wss://relay.example/signal"},
		{in: "ftp://relay.example", wantErr: true},
		{in: "ws://", wantErr: true},
		{in: "://bad", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			cfg, err := LoadClient(Options{RelayURL: tt.in})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.RelayURL)
		})
	}
}

func TestClient_ICEServers(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Client
		wantStun []string
		wantTurn []string
	}{
		{
			name:     "stun only",
			cfg:      Client{STUNServer: DefaultSTUN},
			wantStun: []string{DefaultSTUN},
		},
		{
			name:     "bare turn host",
			cfg:      Client{TURNServer: "turn.example"},
			wantTurn: []string{"turn:turn.example:3478?transport=udp", "turn:turn.example:3478?transport=tcp"},
		},
		{
			name:     "turn url with port",
			cfg:      Client{TURNServer: "turn:turn.example:5000"},
			wantTurn: []string{"turn:turn.example:5000?transport=udp", "turn:turn.example:5000?transport=tcp"},
		},
		{
			name:     "explicit transport kept",
			cfg:      Client{TURNServer: "turns:turn.example:5349?transport=tcp"},
			wantTurn: []string{"turns:turn.example:5349?transport=tcp"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stun, turn := tt.cfg.ICEServers()
			assert.Equal(t, tt.wantStun, stun)
			assert.Equal(t, tt.wantTurn, turn)
		})
	}
}
