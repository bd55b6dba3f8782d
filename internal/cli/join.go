package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/carelink/signal-relay/internal/probe"
	"github.com/carelink/signal-relay/internal/relayclient"
	"github.com/carelink/signal-relay/internal/ui"
)

func newJoinCmd(flags *globalFlags) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:     "join <room>",
		Aliases: []string{"j"},
		Short:   "Join a room and watch its activity",
		Long: `Join a room and show members arriving and leaving and the signals
relayed to this connection. The monitor takes one of the room's slots.

Examples:
  relayctl join room-1
  relayctl join room-1 --user ops`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			conn, err := connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			return watchRoom(cmd.Context(), conn, args[0], userID)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "Display id shown to other members")
	return cmd
}

func watchRoom(ctx context.Context, conn *connection, roomID, userID string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	mon := ui.NewMonitor(roomID)
	mon.Start(cancel)
	defer mon.Stop()

	if err := conn.client.Join(roomID, userID); err != nil {
		return wrap("join room", err)
	}

	h := conn.handler
	for {
		select {
		case <-ctx.Done():
			conn.client.Leave()
			return nil

		case <-h.Joined:
			mon.Push(ui.Event{Kind: ui.EventJoined})

		case <-h.Full:
			mon.Stop()
			return probe.WrapError("join room", probe.ErrRoomFull, roomID)

		case msg := <-h.PeerJoined:
			mon.Push(ui.Event{Kind: ui.EventPeerJoined, UserID: msg.UserID})

		case msg := <-h.PeerLeft:
			mon.Push(ui.Event{Kind: ui.EventPeerLeft, UserID: msg.UserID})

		case msg := <-h.Signal:
			mon.Push(ui.Event{Kind: ui.EventSignal, Text: fmt.Sprintf("%s (%d bytes)", msg.Type, len(msg.Raw))})

		case <-h.Left:
			mon.Push(ui.Event{Kind: ui.EventInfo, Text: "left room"})

		case errMsg := <-h.Error:
			mon.Push(ui.Event{Kind: ui.EventError, Text: errMsg})

		case msg := <-h.Other:
			mon.Push(ui.Event{Kind: ui.EventInfo, Text: msg.Type})

		case <-h.Done():
			mon.Stop()
			return probe.NewError("watch room", relayclient.ErrClosed)
		}
	}
}
