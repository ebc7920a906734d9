package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/browsercoordinator/bcoord/internal/coordinator"
)

var (
	domSelector string
	domDepth    int
)

var getDOMCmd = &cobra.Command{
	Use:   "get-dom",
	Short: "Print a formatted DOM snapshot",
	Long:  "Returns the document, or the subtree rooted at --selector, pretty-printed and truncated at 100000 characters.",
	RunE:  runGetDOM,
}

func init() {
	getDOMCmd.Flags().StringVar(&domSelector, "selector", "", "CSS selector to scope the snapshot to; empty captures the whole document")
	getDOMCmd.Flags().IntVar(&domDepth, "depth", 0, "Maximum subtree depth; 0 means unlimited")
	rootCmd.AddCommand(getDOMCmd)
}

func runGetDOM(cmd *cobra.Command, args []string) error {
	t := startTimer("get-dom")
	defer t.log()

	debugParam("selector=%q depth=%d", domSelector, domDepth)

	return withCoordinator(func(ctx context.Context, c *coordinator.Coordinator) error {
		html, err := c.GetDOM(ctx, domSelector, domDepth)
		if err != nil {
			return err
		}
		if JSONOutput {
			return outputSuccess(map[string]any{"html": html})
		}
		fmt.Println(html)
		return nil
	})
}
