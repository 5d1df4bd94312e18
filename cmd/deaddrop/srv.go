package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"deaddrop/internal/blobstore"
	"deaddrop/internal/config"
	"deaddrop/internal/server"
	"deaddrop/internal/store"
)

func newSrvCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "srv",
		Short: "Run the deaddrop API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("config not initialized")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := slog.Default().With("component", "server")

			addr, err := server.ListenAddr(cfg.APIURL)
			if err != nil {
				return err
			}

			logger.Info("opening database", "path", cfg.DBPath)
			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			carriers, err := blobstore.NewLocalCAS(cfg.CarrierDir())
			if err != nil {
				return err
			}

			srv := server.New(addr, st, carriers, cfg, logger)
			srv.SetVersion(version)
			defer srv.Service().Close()

			sweepInterval := time.Duration(cfg.Drops.SweepIntervalSeconds) * time.Second
			sweeper := server.NewSweeper(srv.Service(), sweepInterval, logger.With("component", "sweeper"))
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			go sweeper.Run(ctx)

			return srv.ListenAndServe()
		},
	}
}
