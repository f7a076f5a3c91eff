package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nexusforge/nexus/pkg/mirror"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the data directory read-only over HTTP",
	Long: `Runs the companion mirror server so saved sessions and continuity
documents can be read from another device on the network. Also exposes
/health and Prometheus /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := serveAddr
		if addr == "" {
			addr = cfg.Mirror.Addr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		fmt.Printf("mirroring %s on %s\n", cfg.DataDir, addr)
		return mirror.NewServer(addr, cfg.DataDir).Run(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (defaults to the configured mirror address)")
	rootCmd.AddCommand(serveCmd)
}
