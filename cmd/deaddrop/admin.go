package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"deaddrop/internal/api"
	"deaddrop/internal/config"
)

func newEventsCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "events <codename|drop-id>",
		Short: "Show the audit trail for a drop (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.Events(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeOutput(resp)
			})
		},
	}
}

func newDeleteCmd(cfg *config.Config) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <codename>",
		Short: "Delete a drop immediately (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("deletion is irreversible; re-run with --yes")
			}
			return withClient(cfg, func(client *api.Client) error {
				if err := client.DeleteDrop(cmd.Context(), args[0]); err != nil {
					return err
				}
				return writePlain("deleted %s\n", args[0])
			})
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the deletion")
	return cmd
}

func newSweepCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Force a retention sweep (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.Sweep(cmd.Context())
				if err != nil {
					return err
				}
				return writeOutput(resp)
			})
		},
	}
}

func newInfoCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show server and store information",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.GetInfo(cmd.Context())
				if err != nil {
					return err
				}
				return writeOutput(resp)
			})
		},
	}
}
