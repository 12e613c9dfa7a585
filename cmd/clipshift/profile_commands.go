package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"clipshift/internal/ipc"
	"clipshift/internal/profiles"
	"clipshift/internal/queue"
)

func newProfileCommand(ctx *commandContext) *cobra.Command {
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage reusable metadata profiles",
	}

	profileCmd.AddCommand(newProfileListCommand(ctx))
	profileCmd.AddCommand(newProfileShowCommand(ctx))
	profileCmd.AddCommand(newProfileSaveCommand(ctx))
	profileCmd.AddCommand(newProfileDeleteCommand(ctx))
	profileCmd.AddCommand(newProfileDuplicateCommand(ctx))
	profileCmd.AddCommand(newProfileExportCommand(ctx))
	profileCmd.AddCommand(newProfileImportCommand(ctx))

	return profileCmd
}

func newProfileListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				list, err := client.ProfileList()
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, list)
				}
				if len(list) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No profiles stored")
					return nil
				}
				rows := make([][]string, 0, len(list))
				for _, p := range list {
					rows = append(rows, []string{
						p.Name,
						p.Privacy,
						fmt.Sprintf("%d", p.Tags),
						fmt.Sprintf("%d", p.Playlists),
						p.UpdatedAt,
					})
				}
				out := renderTable(
					[]string{"Name", "Privacy", "Tags", "Playlists", "Updated"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON")
	return cmd
}

func newProfileShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Show one profile in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				profile, err := client.ProfileGet(args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd, profile)
			})
		},
	}
}

func newProfileSaveCommand(ctx *commandContext) *cobra.Command {
	var (
		privacy   string
		category  string
		language  string
		license   string
		tags      []string
		playlists []string
	)

	cmd := &cobra.Command{
		Use:   "save NAME",
		Short: "Create or replace a profile from flags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profile := profiles.Profile{
				Name: strings.TrimSpace(args[0]),
				Metadata: queue.Metadata{
					Privacy:   privacy,
					Category:  category,
					Language:  language,
					License:   license,
					Tags:      tags,
					Playlists: playlists,
				},
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.ProfileSave(profile); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved profile %q\n", profile.Name)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&privacy, "privacy", "", "Default privacy")
	cmd.Flags().StringVar(&category, "category", "", "Default category id")
	cmd.Flags().StringVar(&language, "language", "", "Default language tag")
	cmd.Flags().StringVar(&license, "license", "", "Default license")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "Tags merged into every item")
	cmd.Flags().StringSliceVar(&playlists, "playlists", nil, "Default playlists")
	return cmd
}

func newProfileDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Remove a stored profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.ProfileDelete(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted profile %q\n", args[0])
				return nil
			})
		},
	}
}

func newProfileDuplicateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "duplicate SOURCE TARGET",
		Short: "Copy a profile under a new name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.ProfileDuplicate(args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Duplicated %q as %q\n", args[0], args[1])
				return nil
			})
		},
	}
}

func newProfileExportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "export NAME FILE",
		Short: "Write a profile to a JSON file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.ProfileExport(args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %q to %s\n", args[0], args[1])
				return nil
			})
		},
	}
}

func newProfileImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Read a profile from a JSON file and store it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				profile, err := client.ProfileImport(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported profile %q\n", profile.Name)
				return nil
			})
		},
	}
}
