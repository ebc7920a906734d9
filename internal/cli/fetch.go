package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/browsercoordinator/bcoord/internal/coordinator"
	"github.com/browsercoordinator/bcoord/internal/evaluator"
)

var (
	fetchMethod  string
	fetchHeaders []string
	fetchBody    string
	fetchTimeout int
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <url>",
	Short: "Perform an in-page fetch from a transient background tab",
	Long:  "Opens a short-lived tab at the target origin, verifies no cross-origin redirect occurred, performs the fetch with credentials included, and prints the response body.",
	Args:  cobra.ExactArgs(1),
	RunE:  runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchMethod, "method", "GET", "HTTP method")
	fetchCmd.Flags().StringArrayVar(&fetchHeaders, "header", nil, "Request header as Name: Value; repeatable")
	fetchCmd.Flags().StringVar(&fetchBody, "body", "", "Request body")
	fetchCmd.Flags().IntVar(&fetchTimeout, "timeout", 30, "Timeout in seconds")
	rootCmd.AddCommand(fetchCmd)
}

func parseHeaders(raw []string) map[string]string {
	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		for i := 0; i < len(h); i++ {
			if h[i] == ':' {
				name := h[:i]
				value := h[i+1:]
				if len(value) > 0 && value[0] == ' ' {
					value = value[1:]
				}
				headers[name] = value
				break
			}
		}
	}
	return headers
}

func runFetch(cmd *cobra.Command, args []string) error {
	t := startTimer("fetch")
	defer t.log()

	url := args[0]
	headers := parseHeaders(fetchHeaders)
	debugParam("url=%q method=%s headers=%d", url, fetchMethod, len(headers))

	return withCoordinator(func(ctx context.Context, c *coordinator.Coordinator) error {
		body, err := c.Fetch(ctx, evaluator.FetchRequest{
			URL:     url,
			Method:  fetchMethod,
			Headers: headers,
			Body:    fetchBody,
			Timeout: time.Duration(fetchTimeout) * time.Second,
		})
		if err != nil {
			return err
		}
		if JSONOutput {
			return outputSuccess(map[string]any{"body": body})
		}
		fmt.Println(body)
		return nil
	})
}
