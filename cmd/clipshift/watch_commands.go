package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipshift/internal/ipc"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Control the channel discovery poller",
	}

	watchCmd.AddCommand(&cobra.Command{
		Use:   "start",
		Short: "Start polling the configured channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.WatchStart(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Watch started")
				return nil
			})
		},
	})

	watchCmd.AddCommand(&cobra.Command{
		Use:   "stop",
		Short: "Stop the discovery poller",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.WatchStop(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Watch stopped")
				return nil
			})
		},
	})

	watchCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show discovery poller state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.WatchStatus()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if status.Running {
					fmt.Fprintf(out, "Watch:      polling %s\n", status.Handle)
				} else {
					fmt.Fprintln(out, "Watch:      idle")
				}
				fmt.Fprintf(out, "Seen:       %d videos\n", status.SeenCount)
				if status.LastPoll != "" {
					fmt.Fprintf(out, "Last poll:  %s\n", status.LastPoll)
				}
				if status.LastError != "" {
					fmt.Fprintf(out, "Last error: %s\n", status.LastError)
				}
				return nil
			})
		},
	})

	watchCmd.AddCommand(&cobra.Command{
		Use:   "poll",
		Short: "Run one discovery cycle now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				enqueued, err := client.WatchPoll()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Enqueued %d new videos\n", enqueued)
				return nil
			})
		},
	})

	return watchCmd
}
