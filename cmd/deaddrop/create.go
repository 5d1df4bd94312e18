package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"deaddrop/internal/api"
	"deaddrop/internal/config"
)

type createCmdOptions struct {
	password         string
	passwordHint     string
	ttlSeconds       int64
	maxRetrievals    int
	burnAfterReading bool
	bitsPerChannel   int
	carrierPath      string
	tags             []string
	plain            bool
}

func newCreateCmd(cfg *config.Config) *cobra.Command {
	opts := &createCmdOptions{}
	cmd := &cobra.Command{
		Use:   "create <file>",
		Short: "Hide a file inside a carrier image behind a password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(cmd, cfg, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.password, "password", "p", "", "drop password (prompted when omitted)")
	cmd.Flags().StringVar(&opts.passwordHint, "hint", "", "password hint shown in metadata")
	cmd.Flags().Int64Var(&opts.ttlSeconds, "ttl", 0, "time to live in seconds (server default when 0)")
	cmd.Flags().IntVar(&opts.maxRetrievals, "max-retrievals", 0, "retrieval quota (0 = unlimited)")
	cmd.Flags().BoolVar(&opts.burnAfterReading, "burn", true, "destroy the drop after the first retrieval")
	cmd.Flags().IntVar(&opts.bitsPerChannel, "bits", 0, "embedding density in bits per channel (1-4)")
	cmd.Flags().StringVar(&opts.carrierPath, "carrier", "", "PNG to use as the carrier instead of generated noise")
	cmd.Flags().StringSliceVar(&opts.tags, "tag", nil, "tag the drop (repeatable)")
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "print a short summary instead of structured output")

	return cmd
}

func runCreate(cmd *cobra.Command, cfg *config.Config, opts *createCmdOptions, path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var carrier []byte
	if opts.carrierPath != "" {
		carrier, err = os.ReadFile(opts.carrierPath)
		if err != nil {
			return err
		}
	}

	password := opts.password
	if password == "" {
		password, err = promptPassword("Password: ")
		if err != nil {
			return err
		}
	}

	req := api.CreateDropRequest{
		Password:         password,
		PasswordHint:     opts.passwordHint,
		TTLSeconds:       opts.ttlSeconds,
		MaxRetrievals:    opts.maxRetrievals,
		BurnAfterReading: opts.burnAfterReading,
		BitsPerChannel:   opts.bitsPerChannel,
		Tags:             opts.tags,
	}

	return withClient(cfg, func(client *api.Client) error {
		resp, err := client.CreateDrop(cmd.Context(), req, filepath.Base(path), payload, carrier)
		if err != nil {
			return err
		}
		if opts.plain {
			return writeDropSummary(resp)
		}
		return writeOutput(resp)
	})
}

func promptPassword(prompt string) (string, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", errors.New("no password given and stdin is not a terminal; use --password")
	}
	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	password := strings.TrimRight(string(raw), "\r\n")
	if password == "" {
		return "", errors.New("empty password")
	}
	return password, nil
}
