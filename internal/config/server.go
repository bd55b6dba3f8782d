package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Server defaults.
const (
	DefaultPort            = "8080"
	DefaultRoomCapacity    = 2
	DefaultMaxMessageSize  = 64 * 1024
	DefaultRatePerSecond   = 0.0
	DefaultRateBurst       = 40
	DefaultShutdownTimeout = 10 * time.Second
)

// Server holds the relay server settings.
type Server struct {
	Port           string
	RoomCapacity   int
	MaxMessageSize int64

	// AllowedOrigins lists browser origins allowed to open /ws. "*" allows
	// any origin.
	AllowedOrigins []string

	// RatePerSecond is the sustained inbound frame rate per connection;
	// zero, the default, disables throttling.
	RatePerSecond float64
	RateBurst     int

	ShutdownTimeout time.Duration
}

// LoadDotEnv copies the given files (default .env) into the process
// environment without overriding variables that are already set. A missing
// file is not an error.
func LoadDotEnv(filenames ...string) error {
	if err := godotenv.Load(filenames...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// LoadServer reads the server settings from the environment. Invalid values
// are logged through the default slog logger and replaced by their default,
// so logging should be initialised first.
func LoadServer() Server {
	return serverFromEnv(os.Getenv)
}

func serverFromEnv(getenv func(string) string) Server {
	cfg := Server{
		Port:            DefaultPort,
		RoomCapacity:    DefaultRoomCapacity,
		MaxMessageSize:  DefaultMaxMessageSize,
		AllowedOrigins:  []string{"*"},
		RatePerSecond:   DefaultRatePerSecond,
		RateBurst:       DefaultRateBurst,
		ShutdownTimeout: DefaultShutdownTimeout,
	}

	if port := strings.TrimPrefix(strings.TrimSpace(getenv("PORT")), ":"); port != "" {
		if n, err := strconv.Atoi(port); err != nil || n <= 0 || n > 65535 {
			slog.Warn("invalid PORT, using default", "value", port, "default", DefaultPort)
		} else {
			cfg.Port = port
		}
	}

	cfg.RoomCapacity = positiveInt(getenv, "ROOM_CAPACITY", cfg.RoomCapacity)
	cfg.MaxMessageSize = int64(positiveInt(getenv, "MAX_MESSAGE_SIZE", int(cfg.MaxMessageSize)))
	cfg.RateBurst = positiveInt(getenv, "RATE_LIMIT_BURST", cfg.RateBurst)

	if v := strings.TrimSpace(getenv("RATE_LIMIT_PER_SECOND")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err != nil || f < 0 {
			slog.Warn("invalid RATE_LIMIT_PER_SECOND, using default", "value", v, "default", cfg.RatePerSecond)
		} else {
			cfg.RatePerSecond = f
		}
	}

	if v := strings.TrimSpace(getenv("SHUTDOWN_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err != nil || d <= 0 {
			slog.Warn("invalid SHUTDOWN_TIMEOUT, using default", "value", v, "default", cfg.ShutdownTimeout)
		} else {
			cfg.ShutdownTimeout = d
		}
	}

	if v := getenv("ALLOWED_ORIGINS"); strings.TrimSpace(v) != "" {
		cfg.AllowedOrigins = splitList(v)
	}

	return cfg
}

// Addr is the listen address for net/http.
func (s Server) Addr() string {
	return ":" + s.Port
}

func positiveInt(getenv func(string) string, key string, def int) int {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		slog.Warn("invalid "+key+", using default", "value", v, "default", def)
		return def
	}
	return n
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
