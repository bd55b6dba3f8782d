package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/carelink/signal-relay/internal/roomid"
	"github.com/carelink/signal-relay/internal/ui"
)

func newRoomCmd(flags *globalFlags) *cobra.Command {
	room := &cobra.Command{
		Use:   "room",
		Short: "Room helpers",
	}

	var plain bool
	newCmd := &cobra.Command{
		Use:   "new",
		Short: "Generate a memorable room id",
		Long: `Generate a random room id. Rooms are created on the relay by the first
join, so the id can be shared before anyone connects.

Examples:
  relayctl room new
  relayctl room new --plain`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := roomid.New()
			if err != nil {
				return wrap("generate room id", err)
			}
			if plain {
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			}

			cfg, err := flags.load()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.RoomInfo{RoomID: id, RelayURL: cfg.RelayURL}.View())
			return nil
		},
	}
	newCmd.Flags().BoolVarP(&plain, "plain", "p", false, "Print only the id")

	room.AddCommand(newCmd)
	return room
}
