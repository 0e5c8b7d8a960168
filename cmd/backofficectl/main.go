// Command backofficectl runs operational tasks against the settlement engine's
// storage: schema migrations, one-off sweeps, stock and party provisioning and
// access token minting.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"insurance-settlement/config"
	"insurance-settlement/internal/app"
	"insurance-settlement/pkg/logger"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "backofficectl",
		Short:         "Operations CLI for the insurance settlement engine",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("config", "", "path to a config file (default: ./config.yaml if present)")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(stockCmd())
	rootCmd.AddCommand(partyCmd())
	rootCmd.AddCommand(productCmd())
	rootCmd.AddCommand(tokenCmd())

	return rootCmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// cliLogger writes to stderr so stdout stays machine readable.
func cliLogger(cfg *config.Config) zerolog.Logger {
	return logger.NewWithWriter(cfg.Log.Level, os.Stderr)
}

// withApp wires the application for the duration of fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.New(ctx, cfg, cliLogger(cfg))
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
