// Package cli defines the aurumd command tree. The root command loads
// configuration and logging once; subcommands share them through package
// state populated by PersistentPreRunE.
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aurumchain/go-aurum/internal/config"
	"github.com/aurumchain/go-aurum/internal/logging"
	"github.com/aurumchain/go-aurum/internal/version"
)

var (
	cfgFile  string
	logLevel string

	cfg *config.Config
	log zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "aurumd",
	Short: "Aurum pricing record node",
	Long: `aurumd stores, validates and serves the oracle-signed pricing records
that anchor Aurum conversion rates. It runs the record node with its
JSON-RPC, websocket and gRPC surfaces, and carries offline tooling for
verifying, replaying, exporting and comparing record chains.`,
	Version: version.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfg != nil {
			return nil
		}

		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if logLevel != "" {
			loaded.Logging.Level = logLevel
		}

		cfg = loaded
		log = logging.New(cfg.Logging)
		return nil
	},
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to configuration file (default: aurum.toml in the working directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override configured log level")
}
