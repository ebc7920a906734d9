package coordinator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/browsercoordinator/bcoord/internal/browser"
	"github.com/browsercoordinator/bcoord/internal/evaluator"
	"github.com/browsercoordinator/bcoord/internal/ipc"
)

// BrowserListing is one line of a list-browsers result.
type BrowserListing struct {
	Name     string
	Kind     browser.Kind
	Path     string
	IsEditor bool
}

// ListBrowsers runs the detector and, when the editor-host IPC is
// live, prepends a synthetic entry representing the editor's own
// browser.
func (c *Coordinator) ListBrowsers() []BrowserListing {
	var out []BrowserListing

	if c.ipcLive() {
		out = append(out, BrowserListing{Name: "editor (active tab)", IsEditor: true})
	}

	for _, d := range browser.Enumerate() {
		out = append(out, BrowserListing{Name: d.Name, Kind: d.Kind, Path: d.Path})
	}
	return out
}

// Status summarizes the coordinator's current state.
type Status struct {
	BrowserRunning bool
	Engine         browser.Engine
	InternalPort   int
	ProxyPort      int
	EditorTier     string // "editor-managed", "coordinator-managed", or "none"
}

// Status reports whether a browser is running, its engine and
// internal port, the stable proxy port, and which tier currently owns
// the backend.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	inst := c.instance
	c.mu.Unlock()

	st := Status{ProxyPort: c.proxy.Port()}

	if _, ok := c.editorCDPPort(); ok {
		st.EditorTier = "editor-managed"
	} else if inst != nil {
		st.EditorTier = "coordinator-managed"
	} else {
		st.EditorTier = "none"
	}

	if inst != nil {
		st.BrowserRunning = inst.PID() != 0
		st.Engine = inst.Engine
		st.InternalPort = inst.Port
	}
	return st
}

// LaunchBrowser implements the launch-browser operation. When the
// editor-host IPC is live and no explicit kind was requested, it is a
// no-op that surfaces a notice: the editor's own browser stays in
// charge. An explicit kind always wins over the editor.
func (c *Coordinator) LaunchBrowser(kind browser.Kind, headless bool) (notice string, err error) {
	if kind == "" && c.ipcLive() {
		return "using editor browser: the editor-host already advertises an active tab", nil
	}

	c.mu.Lock()
	existing := c.instance
	c.mu.Unlock()
	if existing != nil {
		if err := existing.Stop(); err != nil {
			c.log.Warn("error stopping previous browser before relaunch", zap.Error(err))
		}
	}

	inst, err := c.spawnInstance(kind, headless)
	if err != nil {
		return "", err
	}

	c.proxy.SetBackend(inst.Port)
	c.proxy.CloseConnections()
	return "", nil
}

// StopBrowser stops the owned browser instance, if any, and clears the
// proxy's backend so the next connection triggers a fresh lazy launch.
func (c *Coordinator) StopBrowser() error {
	c.mu.Lock()
	inst := c.instance
	c.instance = nil
	c.mu.Unlock()

	if inst == nil {
		return nil
	}

	if err := inst.Stop(); err != nil {
		return fmt.Errorf("coordinator: stop browser: %w", err)
	}

	c.proxy.SetBackend(0)
	c.proxy.CloseConnections()
	return nil
}

// RestartBrowser stops the current instance and relaunches one with
// the remembered kind/headless options. The proxy port never changes
// across a restart.
func (c *Coordinator) RestartBrowser() error {
	c.mu.Lock()
	inst := c.instance
	kind := c.lastKind
	headless := c.lastHeadless
	c.mu.Unlock()

	if inst != nil {
		if err := inst.Stop(); err != nil {
			c.log.Warn("error stopping browser before restart", zap.Error(err))
		}
	}

	newInst, err := c.spawnInstance(kind, headless)
	if err != nil {
		return fmt.Errorf("coordinator: restart: %w", err)
	}

	c.proxy.SetBackend(newInst.Port)
	c.proxy.CloseConnections()
	return nil
}

// Navigate implements the navigate operation: prefer the editor's own
// IPC navigate command when it is live, falling back to an in-browser
// evaluation against the owned backend.
func (c *Coordinator) Navigate(ctx context.Context, url string) error {
	if path, ok := c.resolveIPCPath(); ok {
		timeout := time.Duration(c.cfg.IPCTimeoutMS) * time.Millisecond
		if err := ipc.Navigate(path, url, timeout); err == nil {
			c.mu.Lock()
			c.activeURL = url
			c.mu.Unlock()
			return nil
		}
		c.log.Warn("IPC navigate failed, falling back to in-browser evaluation")
	}

	port, err := c.requireBackendPort(ctx)
	if err != nil {
		return err
	}

	if err := evaluator.New(port).Navigate(ctx, url); err != nil {
		return err
	}

	c.mu.Lock()
	c.activeURL = url
	c.mu.Unlock()
	return nil
}

// SelectElement implements the select-element operation.
func (c *Coordinator) SelectElement(ctx context.Context, timeout time.Duration) (evaluator.ElementRecord, error) {
	if path, ok := c.resolveIPCPath(); ok {
		ipc.Send(path, ipc.Request{Type: ipc.RequestStartElementSelect}, time.Second)
		defer ipc.Send(path, ipc.Request{Type: ipc.RequestCancelElementSelect}, time.Second)
	}

	port, err := c.requireBackendPort(ctx)
	if err != nil {
		return evaluator.ElementRecord{}, err
	}

	selCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return evaluator.New(port).SelectElement(selCtx, timeout)
}

// GetDOM implements the get-dom operation.
func (c *Coordinator) GetDOM(ctx context.Context, selector string, depth int) (string, error) {
	port, err := c.requireBackendPort(ctx)
	if err != nil {
		return "", err
	}
	return evaluator.New(port).GetDOM(ctx, selector, depth)
}

// Screenshot implements the screenshot operation.
func (c *Coordinator) Screenshot(ctx context.Context, opts evaluator.ScreenshotOptions) (evaluator.ScreenshotResult, error) {
	port, err := c.requireBackendPort(ctx)
	if err != nil {
		return evaluator.ScreenshotResult{}, err
	}
	return evaluator.New(port).Screenshot(ctx, opts)
}

// Fetch implements the fetch operation.
func (c *Coordinator) Fetch(ctx context.Context, req evaluator.FetchRequest) (string, error) {
	port, err := c.requireBackendPort(ctx)
	if err != nil {
		return "", err
	}
	return evaluator.New(port).Fetch(ctx, req)
}

// requireBackendPort returns the current backend port, triggering the
// proxy's lazy launch if none is set yet.
func (c *Coordinator) requireBackendPort(ctx context.Context) (int, error) {
	if port := c.backendPort(); port != 0 {
		return port, nil
	}
	port, err := c.lazyLaunch(ctx)
	if err != nil {
		return 0, err
	}
	c.proxy.SetBackend(port)
	return port, nil
}
