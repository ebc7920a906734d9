package browser

import (
	"os"
	"os/exec"
	"testing"
	"time"
)

func TestAllocatePortReturnsNonzeroPorts(t *testing.T) {
	a, err := AllocatePort()
	if err != nil {
		t.Fatalf("AllocatePort: %v", err)
	}
	b, err := AllocatePort()
	if err != nil {
		t.Fatalf("AllocatePort: %v", err)
	}
	if a == 0 || b == 0 {
		t.Fatalf("expected nonzero ports, got %d and %d", a, b)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	cmd := exec.Command("sleep", "30")
	if err := cmd.Start(); err != nil {
		t.Skipf("sleep not available: %v", err)
	}

	dir, err := os.MkdirTemp("", "bcoord-stop-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}

	in := &Instance{cmd: cmd, ProfileDir: dir}

	if err := in.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := in.Stop(); err != nil {
		t.Fatalf("second Stop should be a no-op, got: %v", err)
	}

	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("expected profile dir to be removed, stat err = %v", err)
	}
}

func TestStopEscalatesToKillAfterGrace(t *testing.T) {
	// A process that ignores SIGTERM should still be reaped, via SIGKILL.
	// Stop's 5s grace period is fixed, so this can take about 5s; the 10s
	// bound below leaves room for it.
	cmd := exec.Command("sh", "-c", "trap '' TERM; sleep 30")
	if err := cmd.Start(); err != nil {
		t.Skipf("sh not available: %v", err)
	}

	in := &Instance{cmd: cmd}

	done := make(chan error, 1)
	go func() { done <- in.Stop() }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Stop: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("Stop did not escalate to SIGKILL within the grace window")
	}
}
