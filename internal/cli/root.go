// Package cli implements the relayctl command line tool.
package cli

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/carelink/signal-relay/internal/config"
	"github.com/carelink/signal-relay/internal/ui"
	"github.com/carelink/signal-relay/internal/version"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	relayURL string
	stun     string
	turn     string
	turnUser string
	turnPass string
}

func (f *globalFlags) load() (*config.Client, error) {
	cfg, err := config.LoadClient(config.Options{
		RelayURL:   f.relayURL,
		STUNServer: f.stun,
		TURNServer: f.turn,
		TURNUser:   f.turnUser,
		TURNPass:   f.turnPass,
	})
	if err != nil {
		return nil, wrap("load config", err)
	}
	return cfg, nil
}

// NewRootCmd builds the relayctl command tree.
func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:     "relayctl",
		Short:   "Inspect and exercise a WebRTC signaling relay",
		Long:    `relayctl talks to a signaling relay over its websocket protocol. It can watch a room, run a real WebRTC call through the relay to check that negotiation works end to end, and generate room ids.`,
		Version: version.Version,

		SilenceErrors: true,
		SilenceUsage:  true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.relayURL, "relay-url", "u", "", "Relay websocket URL (env RELAY_URL)")
	pf.StringVarP(&flags.stun, "stun", "s", "", "STUN server (env STUN_SERVER)")
	pf.StringVarP(&flags.turn, "turn", "t", "", "TURN server (env TURN_SERVER)")
	pf.StringVar(&flags.turnUser, "turn-user", "", "TURN username (env TURN_USERNAME)")
	pf.StringVar(&flags.turnPass, "turn-pass", "", "TURN password (env TURN_PASSWORD)")

	root.AddCommand(
		newJoinCmd(flags),
		newCallCmd(flags),
		newRoomCmd(flags),
		newVersionCmd(),
	)
	return root
}

// Execute runs relayctl and exits non-zero on error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		ui.PrintError(err.Error())
		stop()
		os.Exit(1)
	}
}
