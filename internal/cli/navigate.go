package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/browsercoordinator/bcoord/internal/coordinator"
)

var navigateCmd = &cobra.Command{
	Use:   "navigate <url>",
	Short: "Navigate the active browser to a URL",
	Long:  "Prefers the editor's own IPC navigate command when the editor-host is live, falling back to an in-browser evaluation against the coordinator's own backend.",
	Args:  cobra.ExactArgs(1),
	RunE:  runNavigate,
}

func init() {
	rootCmd.AddCommand(navigateCmd)
}

// normalizeURL adds a protocol when the caller omitted one: http for
// local development hosts, https otherwise.
func normalizeURL(raw string) string {
	if strings.Contains(raw, "://") {
		return raw
	}
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "localhost") || strings.HasPrefix(lower, "127.0.0.1") || strings.HasPrefix(lower, "0.0.0.0") {
		return "http://" + raw
	}
	return "https://" + raw
}

func runNavigate(cmd *cobra.Command, args []string) error {
	t := startTimer("navigate")
	defer t.log()

	url := normalizeURL(args[0])
	debugParam("url=%q", url)

	return withCoordinator(func(ctx context.Context, c *coordinator.Coordinator) error {
		if err := c.Navigate(ctx, url); err != nil {
			return err
		}
		if JSONOutput {
			return outputSuccess(map[string]any{"url": url})
		}
		return outputSuccess(nil)
	})
}
