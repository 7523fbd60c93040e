package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirechat-p2p/internal/app"
	"github.com/vovakirdan/wirechat-p2p/internal/config"
	wlog "github.com/vovakirdan/wirechat-p2p/internal/log"
)

type rootOptions struct {
	configPath string
	logLevel   string
	listen     string
	httpAddr   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "wirechat-p2p [topic] [alias]",
		Short: "Chat with peers on the local network",
		Long: `wirechat-p2p discovers peers over mDNS and broadcasts every line typed on
standard input to all peers sharing the topic. Received messages are printed
with their timestamps in the local timezone.`,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, opts, args)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file path")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&opts.listen, "listen", "", "libp2p listen multiaddr")
	flags.StringVar(&opts.httpAddr, "http-addr", "", "local status server address (disabled when empty)")

	cmd.AddCommand(newConfigCmd(opts))
	return cmd
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config [topic] [alias]",
		Short: "Print the resolved configuration as YAML",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := resolveConfig(opts, args)
			if err != nil {
				return err
			}
			data, err := config.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func runChat(cmd *cobra.Command, opts *rootOptions, args []string) error {
	cfg, logger, err := resolveConfig(opts, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger, cmd.InOrStdin(), cmd.OutOrStdout())
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize")
		return err
	}

	if err := application.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("chat exited with error")
		return err
	}
	logger.Info().Msg("chat stopped")
	return nil
}

// resolveConfig loads configuration and applies flag and positional overrides.
// Precedence: defaults < config file < env vars < flags and arguments.
func resolveConfig(opts *rootOptions, args []string) (config.Config, *zerolog.Logger, error) {
	bootstrap := wlog.New(opts.logLevel)

	cfg, path, err := config.Load(bootstrap, opts.configPath)
	if err != nil {
		return cfg, bootstrap, fmt.Errorf("load config: %w", err)
	}
	cfg.UpdateFrom(overrides(opts, args))

	logger := wlog.New(cfg.LogLevel)
	if path != "" {
		logger.Debug().Str("path", path).Msg("config loaded")
	}
	return cfg, logger, nil
}

func overrides(opts *rootOptions, args []string) config.Config {
	over := config.Config{
		LogLevel: opts.logLevel,
		HTTPAddr: opts.httpAddr,
	}
	if opts.listen != "" {
		over.ListenAddrs = []string{opts.listen}
	}
	if len(args) > 0 {
		over.Topic = args[0]
	}
	if len(args) > 1 {
		over.Alias = args[1]
	}
	return over
}
