package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/browsercoordinator/bcoord/internal/coordinator"
)

var stopBrowserCmd = &cobra.Command{
	Use:   "stop-browser",
	Short: "Stop the coordinator-owned browser",
	Long:  "Stops the browser this coordinator launched, if any, and clears the proxy's backend so the next connection triggers a fresh lazy launch. Has no effect on an editor-owned tab.",
	RunE:  runStopBrowser,
}

func init() {
	rootCmd.AddCommand(stopBrowserCmd)
}

func runStopBrowser(cmd *cobra.Command, args []string) error {
	t := startTimer("stop-browser")
	defer t.log()

	return withCoordinator(func(ctx context.Context, c *coordinator.Coordinator) error {
		if err := c.StopBrowser(); err != nil {
			return err
		}
		return outputSuccess(nil)
	})
}
