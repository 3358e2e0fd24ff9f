package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aurumchain/go-aurum/internal/node"
	"github.com/aurumchain/go-aurum/internal/version"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the pricing record node",
	Long: `Start the record node: the validated record store, the optional
history index, and the configured serving surfaces (JSON-RPC, websocket,
gRPC). The node runs until interrupted.

This is the default command when no subcommand is given.`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)

	// Bare aurumd starts the node.
	rootCmd.RunE = runServer
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("version", version.String()).Msg("starting aurumd")

	n, err := node.New(ctx, cfg, log)
	if err != nil {
		return err
	}

	runErr := n.Run(ctx)
	if errors.Is(runErr, context.Canceled) {
		// Signal-driven shutdown is the normal way out.
		runErr = nil
	}

	if err := n.Close(); err != nil && runErr == nil {
		runErr = err
	}

	if runErr == nil {
		log.Info().Msg("aurumd stopped")
	}
	return runErr
}
