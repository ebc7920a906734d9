package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/browsercoordinator/bcoord/internal/config"
	"github.com/browsercoordinator/bcoord/internal/coordinator"
	"github.com/browsercoordinator/bcoord/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the coordinator daemon",
	Long:  "Binds the stable CDP proxy port, publishes the rendezvous file, and serves connections until SIGINT, SIGTERM, or SIGHUP triggers ordered shutdown.",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// serveExitCoder lets main.go recover the exact exit code the daemon
// wants (0 clean, 1 startup failure) without relying on cobra's own
// error-string handling, which always exits 1.
type serveExitCoder struct {
	code int
}

func (e serveExitCoder) Error() string { return fmt.Sprintf("exit %d", e.code) }

// ServeExitCode extracts the exit code from an error returned by
// Execute(), defaulting to 1 for any other error.
func ServeExitCode(err error) int {
	if err == nil {
		return 0
	}
	if ec, ok := err.(serveExitCoder); ok {
		return ec.code
	}
	return 1
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: load config: %v\n", err)
		return serveExitCoder{code: 1}
	}
	cfg.Debug = cfg.Debug || Debug

	workspace, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: getwd: %v\n", err)
		return serveExitCoder{code: 1}
	}

	log := logging.New(cfg.Debug)
	defer log.Sync()

	c := coordinator.New(cfg, log, workspace)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if err := c.Start(ctx); err != nil {
		log.Error("startup failed", zap.Error(err))
		return serveExitCoder{code: 1}
	}

	serveErr := c.Serve(ctx)

	if err := c.Shutdown(); err != nil {
		log.Warn("shutdown reported an error", zap.Error(err))
	}

	if serveErr != nil && ctx.Err() == nil {
		log.Error("serve loop exited unexpectedly", zap.Error(serveErr))
		return serveExitCoder{code: 1}
	}

	log.Info("clean shutdown")
	return nil
}
