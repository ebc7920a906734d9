package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/browsercoordinator/bcoord/internal/coordinator"
	"github.com/browsercoordinator/bcoord/internal/evaluator"
)

var (
	screenshotSelector string
	screenshotFullPage bool
	screenshotFormat   string
	screenshotOutDir   string
)

var screenshotCmd = &cobra.Command{
	Use:   "screenshot",
	Short: "Capture a screenshot of the active page",
	Long:  "Captures the full page, the viewport, or the bounding box of --selector, and saves it under the workspace-stable screenshots directory unless --out overrides it.",
	RunE:  runScreenshot,
}

func init() {
	screenshotCmd.Flags().StringVar(&screenshotSelector, "selector", "", "Clip to this element's bounding box")
	screenshotCmd.Flags().BoolVar(&screenshotFullPage, "full-page", false, "Capture beyond the viewport")
	screenshotCmd.Flags().StringVar(&screenshotFormat, "format", "png", "Image format: png or jpeg")
	screenshotCmd.Flags().StringVar(&screenshotOutDir, "out", "", "Output directory; defaults to the workspace-stable screenshots directory")
	rootCmd.AddCommand(screenshotCmd)
}

func runScreenshot(cmd *cobra.Command, args []string) error {
	t := startTimer("screenshot")
	defer t.log()

	debugParam("selector=%q fullPage=%v format=%s out=%q", screenshotSelector, screenshotFullPage, screenshotFormat, screenshotOutDir)

	return withCoordinator(func(ctx context.Context, c *coordinator.Coordinator) error {
		result, err := c.Screenshot(ctx, evaluator.ScreenshotOptions{
			Selector:  screenshotSelector,
			FullPage:  screenshotFullPage,
			Format:    screenshotFormat,
			OutputDir: screenshotOutDir,
		})
		if err != nil {
			return err
		}
		if JSONOutput {
			return outputSuccess(map[string]any{"path": result.Path})
		}
		return outputSuccess(result.Path)
	})
}
