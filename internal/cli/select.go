package cli

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/browsercoordinator/bcoord/internal/cli/format"
	"github.com/browsercoordinator/bcoord/internal/coordinator"
)

var selectTimeoutSeconds int

var selectElementCmd = &cobra.Command{
	Use:   "select-element",
	Short: "Wait for the user to click an element in the page",
	Long:  "Arms a capturing click listener in the active page and returns a description of whatever element is clicked first, or times out.",
	RunE:  runSelectElement,
}

func init() {
	selectElementCmd.Flags().IntVar(&selectTimeoutSeconds, "timeout", 30, "Seconds to wait for a click")
	rootCmd.AddCommand(selectElementCmd)
}

func runSelectElement(cmd *cobra.Command, args []string) error {
	t := startTimer("select-element")
	defer t.log()

	timeout := time.Duration(selectTimeoutSeconds) * time.Second
	debugParam("timeout=%s", timeout)

	return withCoordinator(func(ctx context.Context, c *coordinator.Coordinator) error {
		el, err := c.SelectElement(ctx, timeout)
		if err != nil {
			return err
		}
		if JSONOutput {
			return outputSuccess(el)
		}
		return format.Element(os.Stdout, el, format.OutputOptions{UseColor: shouldUseColor()})
	})
}
