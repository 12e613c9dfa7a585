package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"clipshift/internal/api"
	"clipshift/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, worker, and watch status",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, online := fetchStatus(ctx, cmd)
			if jsonOutput {
				return writeJSON(cmd, status)
			}
			printStatus(cmd, status, online)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON")
	return cmd
}

// fetchStatus asks the daemon first and falls back to reading the queue
// database directly when the socket is unreachable.
func fetchStatus(ctx *commandContext, cmd *cobra.Command) (api.DaemonStatus, bool) {
	if client, err := ctx.dialClient(); err == nil {
		defer client.Close()
		if status, statusErr := client.Status(); statusErr == nil {
			return status, true
		}
	}

	status := api.DaemonStatus{SocketPath: ctx.socketPath()}
	cfg := ctx.configValue()
	if cfg == nil {
		return status, false
	}
	status.QueueDatabase = cfg.QueueDatabasePath()
	store, err := queue.Open(cfg)
	if err != nil {
		return status, false
	}
	defer store.Close()
	if stats, err := store.Stats(cmd.Context()); err == nil {
		status.Workflow.QueueStats = api.MergeQueueStats(stats)
	}
	return status, false
}

func printStatus(cmd *cobra.Command, status api.DaemonStatus, online bool) {
	out := cmd.OutOrStdout()

	if online && status.Running {
		fmt.Fprintf(out, "Daemon:     running (pid %d, version %s)\n", status.PID, status.Version)
		if status.StartedAt != "" {
			fmt.Fprintf(out, "Started:    %s\n", status.StartedAt)
		}
	} else {
		fmt.Fprintln(out, "Daemon:     not running (start with `clipshift start`)")
	}

	worker := status.Workflow
	if online {
		switch {
		case worker.Paused && worker.AutoPauseEnabled:
			fmt.Fprintf(out, "Worker:     paused (auto-pause after %d)\n", worker.AutoPauseAfter)
		case worker.Paused:
			fmt.Fprintln(out, "Worker:     paused")
		case worker.Running:
			fmt.Fprintln(out, "Worker:     running")
		default:
			fmt.Fprintln(out, "Worker:     stopped")
		}
		if worker.LastError != "" {
			fmt.Fprintf(out, "Last error: %s\n", worker.LastError)
		}
		if worker.LastItem != nil {
			fmt.Fprintf(out, "Last item:  #%d %s (%s)\n",
				worker.LastItem.ID, truncate(displayTitle(*worker.LastItem), 50), worker.LastItem.Status)
		}

		watch := status.Watch
		if watch.Running {
			fmt.Fprintf(out, "Watch:      polling %s (%d seen)\n", watch.Handle, watch.SeenCount)
			if watch.LastPoll != "" {
				fmt.Fprintf(out, "Last poll:  %s\n", watch.LastPoll)
			}
		} else {
			fmt.Fprintln(out, "Watch:      idle")
		}
		if watch.LastError != "" {
			fmt.Fprintf(out, "Watch err:  %s\n", watch.LastError)
		}

		fmt.Fprintf(out, "Ledger:     %d published videos\n", status.LedgerEntries)

		if len(worker.Stages) > 0 {
			fmt.Fprintln(out, "Stages:")
			for _, stg := range worker.Stages {
				if stg.Ready {
					fmt.Fprintf(out, "  %-10s ready\n", stg.Name)
				} else {
					fmt.Fprintf(out, "  %-10s unavailable (%s)\n", stg.Name, stg.Detail)
				}
			}
		}
	}

	if len(worker.QueueStats) > 0 {
		rows := make([][]string, 0, len(worker.QueueStats))
		total := 0
		for _, stat := range queue.AllStatuses() {
			count := worker.QueueStats[string(stat)]
			total += count
			if count > 0 {
				rows = append(rows, []string{string(stat), strconv.Itoa(count)})
			}
		}
		if total > 0 {
			fmt.Fprintln(out, "Queue:")
			table := renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
			fmt.Fprintln(out, table)
		} else {
			fmt.Fprintln(out, "Queue:      empty")
		}
	}
}
