package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/browsercoordinator/bcoord/internal/config"
	"github.com/browsercoordinator/bcoord/internal/coordinator"
	"github.com/browsercoordinator/bcoord/internal/logging"
)

// withCoordinator loads configuration, assembles a Coordinator rooted
// at the current working directory, runs fn against it, and shuts it
// down afterward regardless of fn's outcome. Each invocation of this
// CLI is self-contained: it discovers the editor-host and binds its
// own proxy rather than attaching to another process's, consistent
// with every control operation being safe to run standalone.
func withCoordinator(fn func(ctx context.Context, c *coordinator.Coordinator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return outputError(fmt.Sprintf("load config: %v", err))
	}
	cfg.Debug = cfg.Debug || Debug

	workspace, err := os.Getwd()
	if err != nil {
		return outputError(fmt.Sprintf("getwd: %v", err))
	}

	log := logging.New(cfg.Debug)
	defer log.Sync()

	c := coordinator.New(cfg, log, workspace)

	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		return outputError(fmt.Sprintf("start coordinator: %v", err))
	}
	defer c.Shutdown()

	debugParam("workspace=%q proxyPort=%d", workspace, c.ProxyPort())

	if err := fn(ctx, c); err != nil {
		if IsPrintedError(err) {
			return err
		}
		return outputError(err.Error())
	}
	return nil
}
