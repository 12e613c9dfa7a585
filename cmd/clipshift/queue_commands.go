package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"clipshift/internal/api"
	"clipshift/internal/ipc"
	"clipshift/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the publishing queue",
	}

	queueCmd.AddCommand(newQueueAddCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueImportCommand(ctx))
	queueCmd.AddCommand(newQueueMoveCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueResetCommand(ctx))
	queueCmd.AddCommand(newQueueStatsCommand(ctx))

	return queueCmd
}

type addFlags struct {
	title        string
	description  string
	tags         []string
	privacy      string
	category     string
	playlists    []string
	destinations []string
	profile      string
	prefill      bool

	mode             string
	trimStart        float64
	trimEnd          float64
	normalizeAudio   bool
	watermark        string
	watermarkCorner  string
	watermarkOpacity float64
}

func (f *addFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "Destination title")
	cmd.Flags().StringVar(&f.description, "description", "", "Destination description")
	cmd.Flags().StringSliceVar(&f.tags, "tags", nil, "Destination tags")
	cmd.Flags().StringVar(&f.privacy, "privacy", "", "Destination privacy (public, unlisted, private)")
	cmd.Flags().StringVar(&f.category, "category", "", "Destination category id")
	cmd.Flags().StringSliceVar(&f.playlists, "playlists", nil, "Playlists to add the published video to")
	cmd.Flags().StringSliceVar(&f.destinations, "destinations", nil, "Destination names (default youtube)")
	cmd.Flags().StringVar(&f.profile, "profile", "", "Metadata profile to apply")
	cmd.Flags().BoolVar(&f.prefill, "prefill", false, "Probe source metadata to fill missing fields")

	cmd.Flags().StringVar(&f.mode, "mode", "", "Aspect handling: crop or pad")
	cmd.Flags().Float64Var(&f.trimStart, "trim-start", 0, "Seconds to trim from the start")
	cmd.Flags().Float64Var(&f.trimEnd, "trim-end", 0, "Timestamp in seconds to trim to")
	cmd.Flags().BoolVar(&f.normalizeAudio, "normalize-audio", false, "Apply loudness normalization")
	cmd.Flags().StringVar(&f.watermark, "watermark", "", "Watermark image path")
	cmd.Flags().StringVar(&f.watermarkCorner, "watermark-position", "", "Watermark corner (top-left, top-right, bottom-left, bottom-right)")
	cmd.Flags().Float64Var(&f.watermarkOpacity, "watermark-opacity", 0, "Watermark opacity between 0 and 1")
}

func (f *addFlags) request(sourceURL string) ipc.QueueAddRequest {
	return ipc.QueueAddRequest{
		SourceURL: sourceURL,
		Metadata: queue.Metadata{
			Title:       f.title,
			Description: f.description,
			Tags:        f.tags,
			Privacy:     f.privacy,
			Category:    f.category,
			Playlists:   f.playlists,
		},
		Transform: queue.TransformOptions{
			Mode:              queue.TransformMode(f.mode),
			TrimStart:         f.trimStart,
			TrimEnd:           f.trimEnd,
			NormalizeAudio:    f.normalizeAudio,
			WatermarkPath:     f.watermark,
			WatermarkPosition: queue.WatermarkPosition(f.watermarkCorner),
			WatermarkOpacity:  f.watermarkOpacity,
		},
		Destinations: f.destinations,
		Profile:      f.profile,
		Prefill:      f.prefill,
	}
}

func newQueueAddCommand(ctx *commandContext) *cobra.Command {
	var flags addFlags

	cmd := &cobra.Command{
		Use:   "add URL",
		Short: "Enqueue one source video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				item, err := client.QueueAdd(flags.request(args[0]))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued item #%d (%s)\n", item.ID, displayTitle(item))
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				items, err := client.QueueList(listStatuses...)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, items)
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						strconv.FormatInt(item.ID, 10),
						truncate(displayTitle(item), 40),
						item.Status,
						progressCell(item),
						strings.Join(item.Destinations, ","),
					})
				}
				out := renderTable(
					[]string{"ID", "Title", "Status", "Progress", "Destinations"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&listStatuses, "status", nil, "Filter by status")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON")
	return cmd
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show one queue item in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				item, err := client.QueueGet(id)
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("no queue item with id %d", id)
				}
				if jsonOutput {
					return writeJSON(cmd, item)
				}
				printItemDetail(cmd, *item)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON")
	return cmd
}

func newQueueImportCommand(ctx *commandContext) *cobra.Command {
	var flags addFlags

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Enqueue every URL listed in a file (one per line, # comments)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			urls, err := readURLFile(args[0])
			if err != nil {
				return err
			}
			base := flags.request("")
			return ctx.withClient(func(client *ipc.Client) error {
				result, err := client.QueueImport(ipc.QueueImportRequest{
					URLs:         urls,
					Metadata:     base.Metadata,
					Transform:    base.Transform,
					Transport:    base.Transport,
					Destinations: base.Destinations,
					Profile:      base.Profile,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d, skipped %d duplicates\n", result.Enqueued, result.Skipped)
				for _, failure := range result.Errors {
					fmt.Fprintf(cmd.ErrOrStderr(), "rejected: %s\n", failure)
				}
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newQueueMoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "move ID up|down",
		Short: "Reorder a pending queue item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				moved, err := client.QueueMove(id, args[1])
				if err != nil {
					return err
				}
				if !moved {
					fmt.Fprintf(cmd.OutOrStdout(), "Item #%d did not move\n", id)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Moved item #%d %s\n", id, args[1])
				return nil
			})
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove ID",
		Short: "Remove one queue item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				removed, err := client.QueueRemove(id)
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("no queue item with id %d", id)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed item #%d\n", id)
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var completedOnly bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				removed, err := client.QueueClear(completedOnly)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d items\n", removed)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&completedOnly, "completed", false, "Only remove completed items")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [ID...]",
		Short: "Re-queue failed items (all of them when no ids are given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := parseItemID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			return ctx.withClient(func(client *ipc.Client) error {
				retried, err := client.QueueRetry(ids...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Re-queued %d items\n", retried)
				return nil
			})
		},
	}
}

func newQueueResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Return in-flight items to their resting statuses",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				reset, err := client.QueueReset()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d items\n", reset)
				return nil
			})
		},
	}
}

func newQueueStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show per-status queue counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				stats, err := client.QueueStats()
				if err != nil {
					return err
				}
				printQueueStats(cmd, stats)
				return nil
			})
		},
	}
}

func printQueueStats(cmd *cobra.Command, stats map[string]int) {
	rows := make([][]string, 0, len(stats))
	total := 0
	for _, status := range queue.AllStatuses() {
		count := stats[string(status)]
		total += count
		if count == 0 {
			continue
		}
		rows = append(rows, []string{string(status), strconv.Itoa(count)})
	}
	if total == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
		return
	}
	rows = append(rows, []string{"total", strconv.Itoa(total)})
	out := renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
	fmt.Fprintln(cmd.OutOrStdout(), out)
}

func printItemDetail(cmd *cobra.Command, item api.QueueItem) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Item #%d\n", item.ID)
	fmt.Fprintf(out, "  Source:        %s\n", item.SourceURL)
	fmt.Fprintf(out, "  Status:        %s\n", item.Status)
	fmt.Fprintf(out, "  Title:         %s\n", displayTitle(item))
	if len(item.Tags) > 0 {
		fmt.Fprintf(out, "  Tags:          %s\n", strings.Join(item.Tags, ", "))
	}
	if item.Privacy != "" {
		fmt.Fprintf(out, "  Privacy:       %s\n", item.Privacy)
	}
	fmt.Fprintf(out, "  Destinations:  %s\n", strings.Join(item.Destinations, ", "))
	if len(item.Badges) > 0 {
		fmt.Fprintf(out, "  Badges:        %s\n", strings.Join(item.Badges, ", "))
	}
	fmt.Fprintf(out, "  Progress:      download %.0f%%, transform %.0f%%, upload %.0f%%\n",
		item.DownloadPercent, item.TransformPercent, item.UploadPercent)
	if item.ProgressMessage != "" {
		fmt.Fprintf(out, "  Message:       %s\n", item.ProgressMessage)
	}
	if item.ErrorMessage != "" {
		fmt.Fprintf(out, "  Error:         %s\n", item.ErrorMessage)
	}
	if item.ContentHash != "" {
		fmt.Fprintf(out, "  Content hash:  %s\n", item.ContentHash)
	}
	if item.DurationSeconds > 0 {
		fmt.Fprintf(out, "  Duration:      %.1fs (%dx%d)\n", item.DurationSeconds, item.Width, item.Height)
	}
	for _, result := range item.Results {
		if result.Error != "" {
			fmt.Fprintf(out, "  %s: failed (%s)\n", result.Destination, result.Error)
		} else {
			fmt.Fprintf(out, "  %s: video %s\n", result.Destination, result.VideoID)
		}
	}
	fmt.Fprintf(out, "  Created:       %s\n", item.CreatedAt)
	fmt.Fprintf(out, "  Updated:       %s\n", item.UpdatedAt)
}

func displayTitle(item api.QueueItem) string {
	if strings.TrimSpace(item.Title) != "" {
		return item.Title
	}
	return item.SourceURL
}

func progressCell(item api.QueueItem) string {
	switch item.Status {
	case "downloading":
		return fmt.Sprintf("%.0f%%", item.DownloadPercent)
	case "transforming":
		return fmt.Sprintf("%.0f%%", item.TransformPercent)
	case "uploading":
		return fmt.Sprintf("%.0f%%", item.UploadPercent)
	case "completed":
		return "100%"
	default:
		return "-"
	}
}

func truncate(value string, limit int) string {
	if limit <= 3 || len(value) <= limit {
		return value
	}
	return value[:limit-3] + "..."
}

func parseItemID(value string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid queue item id %q", value)
	}
	return id, nil
}

func readURLFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open url file: %w", err)
	}
	defer file.Close()

	var urls []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		urls = append(urls, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read url file: %w", err)
	}
	return urls, nil
}
