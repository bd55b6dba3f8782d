package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/carelink/signal-relay/internal/probe"
	"github.com/carelink/signal-relay/internal/roomid"
	"github.com/carelink/signal-relay/internal/ui"
	"github.com/carelink/signal-relay/internal/version"
)

func newCallCmd(flags *globalFlags) *cobra.Command {
	var (
		userID   string
		count    int
		interval time.Duration
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:     "call [room]",
		Aliases: []string{"c"},
		Short:   "Run a WebRTC call through the relay and measure round trip time",
		Long: `Negotiate a real WebRTC peer connection through the relay and ping over
a data channel. Run it on two machines with the same room id; without an id a
new one is generated.

Examples:
  relayctl call
  relayctl call calm-otter-harbor-kite --count 10`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}

			var roomID string
			if len(args) == 1 {
				roomID = args[0]
			} else {
				if roomID, err = roomid.New(); err != nil {
					return wrap("generate room id", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), ui.RoomInfo{RoomID: roomID, RelayURL: cfg.RelayURL}.View())
				ui.PrintInfof("Run `relayctl call %s` on the other side", roomID)
			}

			conn, err := connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			pc, err := probe.NewPeerConnection(cfg)
			if err != nil {
				return err
			}

			sp := ui.NewWaitingSpinner("Joining " + roomID + "...")
			sp.Start()
			started := time.Now()

			res, err := probe.Call(cmd.Context(), pc, conn.client, conn.handler, roomID, probe.Options{
				UserID:   userID,
				Count:    count,
				Interval: interval,
				Timeout:  timeout,
				Name:     cmd.Root().Name(),
				Version:  version.Version,
				OnStatus: sp.UpdateMessage,
			})
			if err != nil {
				sp.Error("Call failed")
				return err
			}
			sp.Success("Call complete")

			fmt.Fprintln(cmd.OutOrStdout(), ui.ProbeSummaryView(ui.ProbeSummary{
				Room:     roomID,
				Role:     res.Role,
				Peer:     peerLabel(res.Remote),
				Sent:     res.Sent,
				Received: res.Received,
				Echoed:   res.Echoed,
				Min:      res.Min(),
				Avg:      res.Avg(),
				Max:      res.Max(),
				Duration: time.Since(started),
			}))
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "Display id shown to the other peer")
	cmd.Flags().IntVarP(&count, "count", "c", 5, "Number of pings to send")
	cmd.Flags().DurationVarP(&interval, "interval", "i", time.Second, "Delay between pings")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "How long to wait for each pong")
	return cmd
}

func peerLabel(h probe.HelloPayload) string {
	if h.Name == "" {
		return ""
	}
	if h.Version == "" {
		return h.Name
	}
	return h.Name + " " + h.Version
}
