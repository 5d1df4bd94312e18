package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"deaddrop/internal/api"
	"deaddrop/internal/config"
)

func newShowCmd(cfg *config.Config) *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "show <codename>",
		Short: "Show password-free metadata for a drop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.GetDrop(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if plain {
					return writeDropDetail(resp)
				}
				return writeOutput(resp)
			})
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "print a short summary instead of structured output")
	return cmd
}

func writeDropDetail(resp api.DropMetadataResponse) error {
	lines := []string{
		fmt.Sprintf("codename: %s", resp.Codename),
		fmt.Sprintf("status: %s", resp.Status),
		fmt.Sprintf("created_at: %s", formatTime(resp.CreatedAt)),
		fmt.Sprintf("expires_at: %s (%s)", formatTime(resp.ExpiresAt), resp.ExpiresIn),
		fmt.Sprintf("payload: %s", resp.PayloadSizeHuman),
	}
	if resp.OriginalFilename != "" {
		lines = append(lines, fmt.Sprintf("filename: %s", resp.OriginalFilename))
	}
	if resp.PasswordHint != "" {
		lines = append(lines, fmt.Sprintf("hint: %s", resp.PasswordHint))
	}
	if resp.MaxRetrievals > 0 {
		lines = append(lines, fmt.Sprintf("retrievals: %d of %d used", resp.RetrievalCount, resp.MaxRetrievals))
	}
	if resp.BurnAfterReading {
		lines = append(lines, "burn_after_reading: true")
	}
	if len(resp.Tags) > 0 {
		lines = append(lines, fmt.Sprintf("tags: %s", strings.Join(resp.Tags, ", ")))
	}
	for _, warning := range resp.Warnings {
		lines = append(lines, "warning: "+warning)
	}
	return writePlain("%s\n", strings.Join(lines, "\n"))
}
