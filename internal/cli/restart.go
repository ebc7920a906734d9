package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/browsercoordinator/bcoord/internal/coordinator"
)

var restartBrowserCmd = &cobra.Command{
	Use:   "restart-browser",
	Short: "Restart the coordinator-owned browser",
	Long:  "Stops the current instance, if any, and relaunches one with the previously remembered kind and headless options. The proxy port never changes.",
	RunE:  runRestartBrowser,
}

func init() {
	rootCmd.AddCommand(restartBrowserCmd)
}

func runRestartBrowser(cmd *cobra.Command, args []string) error {
	t := startTimer("restart-browser")
	defer t.log()

	return withCoordinator(func(ctx context.Context, c *coordinator.Coordinator) error {
		if err := c.RestartBrowser(); err != nil {
			return err
		}
		return outputSuccess(nil)
	})
}
