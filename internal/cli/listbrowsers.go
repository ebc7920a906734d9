package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/browsercoordinator/bcoord/internal/cli/format"
	"github.com/browsercoordinator/bcoord/internal/coordinator"
)

var listBrowsersCmd = &cobra.Command{
	Use:   "list-browsers",
	Short: "List detected browsers",
	Long:  "Runs browser detection and prepends the editor's own active tab, when the editor-host IPC is live.",
	RunE:  runListBrowsers,
}

func init() {
	rootCmd.AddCommand(listBrowsersCmd)
}

func runListBrowsers(cmd *cobra.Command, args []string) error {
	t := startTimer("list-browsers")
	defer t.log()

	return withCoordinator(func(ctx context.Context, c *coordinator.Coordinator) error {
		listing := c.ListBrowsers()
		if JSONOutput {
			return outputSuccess(listing)
		}
		return format.BrowserList(os.Stdout, listing, format.OutputOptions{UseColor: shouldUseColor()})
	})
}
