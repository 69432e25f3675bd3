package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/parlorgames/roomsync/logger"
	"github.com/parlorgames/roomsync/models"
	"github.com/parlorgames/roomsync/network"
	"github.com/parlorgames/roomsync/session"
	"github.com/parlorgames/roomsync/state"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type clientOptions struct {
	serverURL  string
	playerID   string
	playerName string
	interval   time.Duration
	slot       int
}

func main() {
	logger.Init()

	opts := &clientOptions{}

	rootCmd := &cobra.Command{
		Use:           "roomsync-client",
		Short:         "Create, join and watch synchronized game rooms.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.serverURL, "server", "http://localhost:8080", "base URL of the room server")
	pf.StringVar(&opts.playerID, "player-id", "", "identity joining the room (e.g. an email)")
	pf.StringVar(&opts.playerName, "player-name", "", "display name")
	pf.DurationVar(&opts.interval, "interval", time.Second, "poll interval")
	pf.IntVar(&opts.slot, "slot", -1, "player slot to view while watching")

	rootCmd.AddCommand(newCreateCmd(opts), newJoinCmd(opts), newWatchCmd(opts))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newCreateCmd(opts *clientOptions) *cobra.Command {
	var roomName string
	var players int

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a room and print its shareable key",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			api := network.NewAPIClient(opts.serverURL, 0)
			created, err := api.CreateRoom(cmd.Context(), models.RoomSpec{
				Name:            roomName,
				ExpectedPlayers: players,
				Creator:         models.Identity{PlayerID: opts.playerID, Name: opts.playerName},
			})
			if err != nil {
				return err
			}
			fmt.Printf("Room %q created.\nShareable room key: %s\n", created.Name, created.ID)
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&roomName, "name", "", "room name")
	fs.IntVar(&players, "players", 1, "number of expected players (1-5)")
	markRequired(fs, cmd, "name")

	return cmd
}

func newJoinCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "join <room-key>",
		Short: "Join an existing room by key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api := network.NewAPIClient(opts.serverURL, 0)
			joined, err := api.JoinRoom(cmd.Context(), args[0],
				models.Identity{PlayerID: opts.playerID, Name: opts.playerName})
			if err != nil {
				return err
			}
			fmt.Printf("Joined room %q (%d/%d players).\n",
				joined.Name, len(joined.Players), joined.ExpectedPlayers)
			return nil
		},
	}
}

func newWatchCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <room-key>",
		Short: "Poll a room and print the selected player's view as it changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api := network.NewAPIClient(opts.serverURL, 0)
			sess := session.NewSession(api, session.Options{PollInterval: opts.interval})

			if err := sess.Start(args[0]); err != nil {
				return err
			}
			defer sess.Abandon()

			if opts.slot >= 0 {
				sess.SelectSlot(opts.slot)
			}

			return watch(cmd.Context(), sess, opts.interval)
		},
	}
}

// watch reads snapshots on the poll cadence and prints the view whenever
// the synchronized document changes.
func watch(ctx context.Context, sess *session.Session, interval time.Duration) error {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last string
	fmt.Println("Waiting for room data...")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-interrupt:
			fmt.Println("\nLeaving room.")
			return nil
		case <-ticker.C:
			snap := sess.Snapshot()

			switch snap.Status {
			case state.StatusInvalid:
				if err := sess.Acknowledge(); err != nil {
					return err
				}
				return fmt.Errorf("room not found")
			case state.StatusActive:
				if snap.ConnectionLost {
					fmt.Println("Connection lost; retrying...")
					continue
				}
				rendered := render(snap)
				if rendered != last {
					fmt.Println(rendered)
					last = rendered
				}
			}
		}
	}
}

func render(snap session.Snapshot) string {
	if snap.View != nil {
		out, _ := json.MarshalIndent(snap.View, "", "  ")
		return string(out)
	}
	if snap.Room == nil {
		return ""
	}

	names := make([]string, len(snap.Room.Players))
	for i, p := range snap.Room.Players {
		names[i] = p.Name
	}
	out, _ := json.MarshalIndent(map[string]interface{}{
		"room_name": snap.Room.Name,
		"room_key":  snap.Room.ID,
		"players":   names,
		"state":     snap.Room.State,
	}, "", "  ")
	return string(out)
}

func markRequired(fs *pflag.FlagSet, cmd *cobra.Command, names ...string) {
	for _, name := range names {
		if fs.Lookup(name) != nil {
			_ = cmd.MarkFlagRequired(name)
		}
	}
}
