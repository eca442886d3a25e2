package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/foxzi/journey/internal/app"
	"github.com/foxzi/journey/internal/config"
)

var (
	cfgFile   string
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "journey",
	Short: "Journey - blog and newsletter backend",
	Long: `Journey serves the blog content, posts and email templates of the site
and manages the newsletter and waitlist subscribers.

Configuration is read from an optional YAML file (-c) and the environment.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	RunE:  runConfigValidate,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("journey version %s\n", version)
		if commit != "unknown" {
			fmt.Printf("  commit: %s\n", commit)
		}
		if buildTime != "unknown" {
			fmt.Printf("  built:  %s\n", buildTime)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")

	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(serveCmd, configCmd, versionCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	application, err := app.New(cmd.Context(), cfg, version)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	return application.Run(cmd.Context())
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("configuration is invalid: %w", err)
	}

	fmt.Printf("Configuration is valid\n")
	fmt.Printf("  API:       %s\n", cfg.API.ListenAddr)
	fmt.Printf("  Storage:   %s\n", describeStorage(cfg.Storage))
	fmt.Printf("  Mail:      %s\n", cfg.Mail.Provider)
	fmt.Printf("  Cache:     %s\n", orDefault(cfg.Cache.Driver, "memory"))
	fmt.Printf("  Metrics:   %v\n", cfg.Metrics.Enabled)
	for _, tmpl := range []struct{ name, id string }{
		{"newsletter welcome", cfg.Templates.NewsletterWelcome},
		{"waitlist welcome", cfg.Templates.WaitlistWelcome},
		{"newsletter notification", cfg.Templates.NewsletterNotification},
		{"waitlist notification", cfg.Templates.WaitlistNotification},
	} {
		if tmpl.id == "" {
			fmt.Printf("  Warning: %s template id is not set\n", tmpl.name)
		}
	}

	return nil
}

// openServices loads configuration and opens the services for a one-shot
// command. Logging goes to stderr so command output stays clean.
func openServices(cmd *cobra.Command) (*app.Services, func(), error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	svc, err := app.NewServices(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		svc.Close(context.Background())
	}
	return svc, cleanup, nil
}

func describeStorage(cfg config.StorageConfig) string {
	if cfg.Driver == "mongo" {
		return "mongo (" + cfg.Database + ")"
	}
	return "bolt (" + cfg.Path + ")"
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
