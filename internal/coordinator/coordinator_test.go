package coordinator

import (
	"context"
	"os"
	"runtime"
	"sync"
	"testing"

	"github.com/browsercoordinator/bcoord/internal/config"
	"github.com/browsercoordinator/bcoord/internal/ipc"
	"github.com/browsercoordinator/bcoord/internal/logging"
	"github.com/browsercoordinator/bcoord/internal/rendezvous"
)

func withIsolatedIPC(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("unix-socket transport only")
	}
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)
}

func newTestCoordinator(t *testing.T, workspace string) *Coordinator {
	t.Helper()
	cfg := config.Defaults()
	cfg.ProxyPort = 0
	log := logging.New(false)
	return New(cfg, log, workspace)
}

func TestStartPublishesRendezvousAndStableProxyPort(t *testing.T) {
	withIsolatedIPC(t)
	t.Setenv("TMPDIR", t.TempDir())

	c := newTestCoordinator(t, t.TempDir())
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Shutdown()

	if c.ProxyPort() == 0 {
		t.Fatalf("expected nonzero proxy port after Start")
	}

	rec, ok := rendezvous.Read()
	if !ok || rec.Port != c.ProxyPort() || rec.PID != os.Getpid() {
		t.Fatalf("rendezvous.Read() = %+v, %v; want port %d pid %d", rec, ok, c.ProxyPort(), os.Getpid())
	}
}

func TestStatusReportsNoneTierWithoutEditorOrInstance(t *testing.T) {
	withIsolatedIPC(t)
	t.Setenv("TMPDIR", t.TempDir())

	c := newTestCoordinator(t, t.TempDir())
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Shutdown()

	st := c.Status()
	if st.EditorTier != "none" {
		t.Fatalf("EditorTier = %q, want none", st.EditorTier)
	}
	if st.BrowserRunning {
		t.Fatalf("expected BrowserRunning=false with no instance")
	}
}

func TestListBrowsersPrependsEditorEntryWhenIPCLive(t *testing.T) {
	withIsolatedIPC(t)
	t.Setenv("TMPDIR", t.TempDir())

	workspace := t.TempDir()
	sockPath, err := ipc.SocketPath(workspace)
	if err != nil {
		t.Fatalf("SocketPath: %v", err)
	}

	state := &ipc.EditorState{}
	var mu sync.Mutex
	srv := ipc.NewServer(sockPath, ipc.StatefulHandler(state, &mu))
	if err := srv.Start(); err != nil {
		t.Fatalf("Start IPC server: %v", err)
	}
	defer srv.Stop()

	c := newTestCoordinator(t, workspace)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Shutdown()

	listing := c.ListBrowsers()
	if len(listing) == 0 || !listing[0].IsEditor {
		t.Fatalf("expected editor entry first, got %+v", listing)
	}
}

func TestLaunchBrowserNoOpsWhenEditorLiveAndNoKindGiven(t *testing.T) {
	withIsolatedIPC(t)
	t.Setenv("TMPDIR", t.TempDir())

	workspace := t.TempDir()
	sockPath, err := ipc.SocketPath(workspace)
	if err != nil {
		t.Fatalf("SocketPath: %v", err)
	}

	port := 9222
	state := &ipc.EditorState{CDPPort: &port}
	var mu sync.Mutex
	srv := ipc.NewServer(sockPath, ipc.StatefulHandler(state, &mu))
	if err := srv.Start(); err != nil {
		t.Fatalf("Start IPC server: %v", err)
	}
	defer srv.Stop()

	c := newTestCoordinator(t, workspace)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Shutdown()

	notice, err := c.LaunchBrowser("", true)
	if err != nil {
		t.Fatalf("LaunchBrowser: %v", err)
	}
	if notice == "" {
		t.Fatalf("expected a notice when editor browser is in charge")
	}

	st := c.Status()
	if st.EditorTier != "editor-managed" {
		t.Fatalf("EditorTier = %q, want editor-managed", st.EditorTier)
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	withIsolatedIPC(t)
	t.Setenv("TMPDIR", t.TempDir())

	c := newTestCoordinator(t, t.TempDir())
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := c.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := c.Shutdown(); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
}
