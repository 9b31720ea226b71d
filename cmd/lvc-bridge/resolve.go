package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/morezero/lvc-bridge/internal/config"
	"github.com/morezero/lvc-bridge/pkg/configdoc"
	"github.com/morezero/lvc-bridge/pkg/engineconfig"
	"github.com/morezero/lvc-bridge/pkg/resolver"
)

type resolveOptions struct {
	configFile   string
	appDataDir   string
	capabilities []string
	engineConfig bool
}

func newResolveCmd() *cobra.Command {
	opts := &resolveOptions{}
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Print the resolved endpoint set (or engine configuration) and exit",
		Long: `resolve runs the endpoint resolution once, without COMMS or a database,
and prints the result as JSON. Flags override the environment.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.configFile, "config", "c", "", "configuration document (overrides LVC_CONFIG_FILE)")
	cmd.Flags().StringVar(&opts.appDataDir, "app-data-dir", "", "default socket root (overrides APP_DATA_DIR)")
	cmd.Flags().StringSliceVar(&opts.capabilities, "capability", nil, "enabled capability, repeatable (overrides LVC_CAPABILITIES)")
	cmd.Flags().BoolVar(&opts.engineConfig, "engine-config", false, "print the engine configuration documents instead of the endpoint set")
	return cmd
}

func runResolve(cmd *cobra.Command, opts *resolveOptions) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.configFile != "" {
		cfg.ConfigFile = opts.configFile
	}
	if opts.appDataDir != "" {
		cfg.AppDataDir = opts.appDataDir
	}
	if opts.capabilities != nil {
		cfg.Capabilities = opts.capabilities
	}
	setupCLILogging(cmd, cfg.LogLevel)
	if err := cfg.ValidateForResolve(); err != nil {
		return err
	}

	doc, err := configdoc.Load(cfg.ConfigFile)
	if err != nil {
		return err
	}
	set, err := resolver.Resolve(doc, cfg.AppDataDir, cfg.EnabledCapabilities())
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}

	var out any = set
	if opts.engineConfig {
		out, err = engineconfig.Render(set, engineconfig.Opts{Address: cfg.EngineAddress})
		if err != nil {
			return err
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// setupCLILogging sends logs to stderr so stdout carries only command output.
func setupCLILogging(cmd *cobra.Command, level string) {
	logLevel := slog.LevelWarn
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "error":
		logLevel = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: logLevel})))
}
