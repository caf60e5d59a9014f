package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmorgan81/cartoonbot/internal/config"
	"github.com/dmorgan81/cartoonbot/internal/inject"
	"github.com/dmorgan81/cartoonbot/internal/log"
	"github.com/samber/do"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "cartoonbot",
	Short:         "Turn photos into cartoons with a generative image model",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "conf", "config.yml", "path to config file")
	rootCmd.AddCommand(serveCmd, lambdaCmd, cartoonizeCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.New(os.Stderr, log.EnvProd).Error("cartoonbot failed", log.Err(err))
		stop()
		os.Exit(1)
	}
}

// setup loads config and builds the injector with a logger carried in ctx.
func setup(cmd *cobra.Command) (context.Context, *do.Injector, error) {
	conf, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger := log.New(os.Stderr, conf.Env)
	logger.Info("starting cartoonbot",
		"command", cmd.Name(),
		"env", conf.Env,
		"model", conf.Gemini.Model,
		log.Secret("gemini_key", conf.Gemini.APIKey),
	)
	ctx := log.NewContext(cmd.Context(), logger)
	return ctx, inject.Setup(ctx, conf), nil
}
