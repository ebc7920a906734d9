package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/browsercoordinator/bcoord/internal/cli/format"
	"github.com/browsercoordinator/bcoord/internal/coordinator"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show coordinator and browser status",
	Long:  "Reports the stable proxy port, which tier currently owns the backend (editor, coordinator, or none), and the running browser's engine and internal port, if any.",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	t := startTimer("status")
	defer t.log()

	return withCoordinator(func(ctx context.Context, c *coordinator.Coordinator) error {
		st := c.Status()
		if JSONOutput {
			return outputSuccess(st)
		}
		return format.Status(os.Stdout, st, format.OutputOptions{UseColor: shouldUseColor()})
	})
}
