package version

// Version is the current version of the relay binaries.
// Override at build time with:
//   go build -ldflags="-X 'github.com/carelink/signal-relay/internal/version.Version=v1.0.0'"
var Version = "dev"
