// Package coordinator wires the browser lifecycle manager, the
// rendezvous file, the editor-host IPC client, and the CDP reverse
// proxy into the control surface a CLI or any other front end drives.
// It owns the startup sequence, the lazy-launch single-flight
// callback, and cooperative shutdown ordering.
package coordinator

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/browsercoordinator/bcoord/internal/browser"
	"github.com/browsercoordinator/bcoord/internal/config"
	"github.com/browsercoordinator/bcoord/internal/ipc"
	"github.com/browsercoordinator/bcoord/internal/logging"
	"github.com/browsercoordinator/bcoord/internal/proxy"
	"github.com/browsercoordinator/bcoord/internal/rendezvous"
)

// Coordinator is the assembled system: one proxy, at most one owned
// browser instance at a time, and a best-effort line to the editor.
type Coordinator struct {
	cfg           config.Config
	log           *logging.Logger
	workspacePath string

	proxy *proxy.Proxy

	mu           sync.Mutex
	instance     *browser.Instance
	lastKind     browser.Kind
	lastHeadless bool
	activeURL    string
	ipcPath      string
	ipcResolved  bool
}

// New constructs a Coordinator. Start must be called before it serves
// any control operation.
func New(cfg config.Config, log *logging.Logger, workspacePath string) *Coordinator {
	return &Coordinator{
		cfg:           cfg,
		log:           log,
		workspacePath: workspacePath,
		lastHeadless:  cfg.Headless,
	}
}

// Start runs the startup sequence: discover the editor, bind the
// stable proxy port, register the lazy-launch callback, adopt the
// editor's CDP port as the initial backend if it advertises one, and
// publish the rendezvous file.
func (c *Coordinator) Start(ctx context.Context) error {
	if path, ok := ipc.Discover(c.workspacePath); ok {
		c.mu.Lock()
		c.ipcPath = path
		c.ipcResolved = true
		c.mu.Unlock()
		c.log.Info("editor-host discovered", zap.String("path", path))
	}

	p, err := proxy.Listen(c.cfg.ProxyPort)
	if err != nil {
		return fmt.Errorf("coordinator: %w", err)
	}
	c.proxy = p
	p.SetLaunchFunc(c.lazyLaunch)

	if port, ok := c.editorCDPPort(); ok {
		p.SetBackend(port)
		c.log.Info("adopted editor-advertised CDP port as initial backend", zap.Int("port", port))
	}

	if err := rendezvous.Write(rendezvous.Record{Port: p.Port(), PID: os.Getpid()}); err != nil {
		c.log.Warn("failed to write rendezvous file", zap.Error(err))
	}

	c.log.Info("coordinator started", zap.Int("proxyPort", p.Port()))
	return nil
}

// Serve runs the proxy's accept loop until ctx is done.
func (c *Coordinator) Serve(ctx context.Context) error {
	return c.proxy.Serve(ctx)
}

// ProxyPort returns the stable, published proxy port.
func (c *Coordinator) ProxyPort() int {
	return c.proxy.Port()
}

// lazyLaunch is the proxy's single-flight launch callback: it either
// adopts the editor's own CDP port (no spawn) or picks and launches a
// browser of its own.
func (c *Coordinator) lazyLaunch(ctx context.Context) (int, error) {
	if port, ok := c.editorCDPPort(); ok {
		return port, nil
	}

	c.mu.Lock()
	kind := c.lastKind
	headless := c.lastHeadless
	c.mu.Unlock()

	inst, err := c.spawnInstance(kind, headless)
	if err != nil {
		return 0, err
	}
	return inst.Port, nil
}

// spawnInstance picks a browser (honoring kind when set) and launches
// it, replacing any instance already owned by this coordinator.
func (c *Coordinator) spawnInstance(kind browser.Kind, headless bool) (*browser.Instance, error) {
	descs := browser.Enumerate()
	desc, ok := browser.Pick(descs, kind)
	if !ok {
		return nil, fmt.Errorf("coordinator: %w", browser.ErrNoBrowser)
	}

	port, err := browser.AllocatePort()
	if err != nil {
		return nil, fmt.Errorf("coordinator: allocate port: %w", err)
	}

	inst, err := browser.Launch(port, browser.LaunchOptions{
		Kind:            desc.Kind,
		Path:            desc.Path,
		Headless:        headless,
		DisableHeadless: !headless,
		NoSandbox:       c.cfg.NoSandbox,
	})
	if err != nil {
		return nil, fmt.Errorf("coordinator: launch: %w", err)
	}

	c.mu.Lock()
	c.instance = inst
	c.lastKind = desc.Kind
	c.lastHeadless = headless
	c.mu.Unlock()

	c.log.Info("browser launched", zap.String("kind", string(desc.Kind)), zap.Int("port", port))
	return inst, nil
}

// editorCDPPort reports the editor's advertised CDP port, if the
// editor-host IPC is currently live and publishes one.
func (c *Coordinator) editorCDPPort() (int, bool) {
	path, ok := c.resolveIPCPath()
	if !ok {
		return 0, false
	}

	state, err := ipc.GetState(path, time.Duration(c.cfg.IPCTimeoutMS)*time.Millisecond)
	if err != nil || state.CDPPort == nil {
		return 0, false
	}
	return *state.CDPPort, true
}

// resolveIPCPath returns the last-known editor socket path if it is
// still alive, otherwise re-runs discovery.
func (c *Coordinator) resolveIPCPath() (string, bool) {
	c.mu.Lock()
	path := c.ipcPath
	resolved := c.ipcResolved
	c.mu.Unlock()

	if resolved && ipc.Probe(path) {
		return path, true
	}

	newPath, ok := ipc.Discover(c.workspacePath)
	c.mu.Lock()
	c.ipcPath = newPath
	c.ipcResolved = ok
	c.mu.Unlock()
	return newPath, ok
}

// ipcLive reports whether the editor-host IPC currently answers.
func (c *Coordinator) ipcLive() bool {
	_, ok := c.resolveIPCPath()
	return ok
}

// backendPort returns the port the proxy is currently configured to
// dial, 0 if none has been set yet.
func (c *Coordinator) backendPort() int {
	return c.proxy.Backend()
}

// Shutdown stops the owned browser (if any), closes the proxy, and
// clears the rendezvous file, in that order: reversing it risks a
// client reconnecting to a zombie backend between proxy close and
// browser kill.
func (c *Coordinator) Shutdown() error {
	c.mu.Lock()
	inst := c.instance
	c.instance = nil
	c.mu.Unlock()

	if inst != nil {
		if err := inst.Stop(); err != nil {
			c.log.Warn("error stopping browser during shutdown", zap.Error(err))
		}
	}

	if c.proxy != nil {
		if err := c.proxy.Close(); err != nil {
			c.log.Warn("error closing proxy during shutdown", zap.Error(err))
		}
	}

	if err := rendezvous.Clear(); err != nil {
		c.log.Warn("error clearing rendezvous file during shutdown", zap.Error(err))
	}

	c.log.Info("coordinator shut down")
	return nil
}
