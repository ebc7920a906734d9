package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/browsercoordinator/bcoord/internal/browser"
	"github.com/browsercoordinator/bcoord/internal/coordinator"
)

var (
	launchKind     string
	launchHeadless bool
)

var launchBrowserCmd = &cobra.Command{
	Use:   "launch-browser",
	Short: "Launch a browser",
	Long:  "Launches a browser and sets it as the proxy's backend. An explicit --kind always wins over an editor that already advertises an active tab; with no --kind and a live editor, this is a no-op.",
	RunE:  runLaunchBrowser,
}

func init() {
	launchBrowserCmd.Flags().StringVar(&launchKind, "kind", "", "Browser kind to launch (chrome, edge, chromium, brave, firefox); empty defers to the editor when live")
	launchBrowserCmd.Flags().BoolVar(&launchHeadless, "headless", true, "Run headless")
	rootCmd.AddCommand(launchBrowserCmd)
}

func runLaunchBrowser(cmd *cobra.Command, args []string) error {
	t := startTimer("launch-browser")
	defer t.log()

	debugParam("kind=%q headless=%v", launchKind, launchHeadless)

	return withCoordinator(func(ctx context.Context, c *coordinator.Coordinator) error {
		notice, err := c.LaunchBrowser(browser.Kind(launchKind), launchHeadless)
		if err != nil {
			return err
		}
		if notice != "" {
			if JSONOutput {
				return outputSuccess(map[string]any{"notice": notice})
			}
			return outputNotice(notice)
		}
		return outputSuccess(nil)
	})
}
