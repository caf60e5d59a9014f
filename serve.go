package main

import (
	"github.com/dmorgan81/cartoonbot/internal/log"
	"github.com/dmorgan81/cartoonbot/internal/server"
	"github.com/samber/do"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web app and JSON API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, injector, err := setup(cmd)
		if err != nil {
			return err
		}
		defer func() {
			if err := injector.Shutdown(); err != nil {
				log.FromContextOrDiscard(ctx).Error("shutting down injector", log.Err(err))
			}
		}()

		srv, err := do.Invoke[*server.Server](injector)
		if err != nil {
			return err
		}
		return srv.Run(ctx)
	},
}
