package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"deaddrop/internal/api"
	"deaddrop/internal/config"
)

func newRetrieveCmd(cfg *config.Config) *cobra.Command {
	var (
		password string
		outPath  string
		toStdout bool
	)

	cmd := &cobra.Command{
		Use:   "retrieve <codename>",
		Short: "Exchange codename and password for the hidden file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				var err error
				password, err = promptPassword("Password: ")
				if err != nil {
					return err
				}
			}

			return withClient(cfg, func(client *api.Client) error {
				payload, info, err := client.Retrieve(cmd.Context(), args[0], password)
				if err != nil {
					var apiErr *api.APIError
					if errors.As(err, &apiErr) {
						switch {
						case apiErr.Gone():
							return fmt.Errorf("%s: the drop is no longer retrievable", apiErr)
						case apiErr.InvalidPassword():
							return fmt.Errorf("%s: check the password and try again", apiErr)
						case apiErr.Throttled():
							return fmt.Errorf("%s: wait before retrying", apiErr)
						}
					}
					return err
				}

				if toStdout {
					_, err = os.Stdout.Write(payload)
					return err
				}

				path := outPath
				if path == "" {
					path = info.Filename
				}
				if path == "" {
					path = info.Codename + ".bin"
				}
				if err := os.WriteFile(path, payload, 0o600); err != nil {
					return err
				}

				fmt.Fprintf(os.Stderr, "wrote %d bytes to %s\n", len(payload), path)
				if info.Burned {
					fmt.Fprintln(os.Stderr, "drop burned: this was the last retrieval")
				} else if info.RetrievalsRemaining >= 0 {
					fmt.Fprintf(os.Stderr, "%d retrievals remaining\n", info.RetrievalsRemaining)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "drop password (prompted when omitted)")
	cmd.Flags().StringVarP(&outPath, "out", "O", "", "write the payload to this path")
	cmd.Flags().BoolVar(&toStdout, "stdout", false, "write the payload to stdout")
	return cmd
}
