// Package cli implements the pvplan command line.
package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/pvplan/pvplan/internal/daemon"
	"github.com/pvplan/pvplan/internal/infra/logging"
)

// cfg is loaded before every command runs.
var cfg = daemon.DefaultConfig()

var rootCmd = &cobra.Command{
	Use:   "pvplan",
	Short: "Simulate marketing-plan earnings for a downline",
	Long: `pvplan computes the rank, discount and earnings of a distributor from
their personal volume and a downline roster, and projects what the next rank
would pay. Rosters are TOML, JSON or YAML files.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default $PVPLAN_HOME/config.toml)")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func loadConfig(cmd *cobra.Command, args []string) error {
	// A .env in the working directory may set PVPLAN_HOME.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	path, _ := cmd.Flags().GetString("config")
	loaded, err := daemon.Load(path)
	if err != nil {
		return err
	}
	cfg = loaded

	if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
		color.NoColor = true
	}

	out := logging.Output(cfg.Log.File, cfg.Log.MaxSizeMB, cfg.Log.MaxBackups)
	logging.Setup(out, "pvplan", cfg.Log.Env, cfg.Log.Level)
	return nil
}
