package rendezvous

import (
	"os"
	"path/filepath"
	"testing"
)

func withTempTmpDir(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	orig := os.Getenv("TMPDIR")
	os.Setenv("TMPDIR", dir)
	t.Cleanup(func() { os.Setenv("TMPDIR", orig) })
}

func TestWriteReadRoundTrip(t *testing.T) {
	withTempTmpDir(t)

	rec := Record{Port: 41837, PID: os.Getpid()}
	if err := Write(rec); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, ok := Read()
	if !ok {
		t.Fatalf("Read() returned not-found after Write")
	}
	if got != rec {
		t.Fatalf("Read() = %+v, want %+v", got, rec)
	}
}

func TestClearThenReadReturnsNotFound(t *testing.T) {
	withTempTmpDir(t)

	if err := Write(Record{Port: 1, PID: 1}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok := Read(); ok {
		t.Fatalf("Read() should report not-found after Clear")
	}

	// Clear on an already-absent file must not error.
	if err := Clear(); err != nil {
		t.Fatalf("second Clear: %v", err)
	}
}

func TestReadMalformedContentsReturnsNotFound(t *testing.T) {
	withTempTmpDir(t)

	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, ok := Read(); ok {
		t.Fatalf("Read() should report not-found for malformed contents")
	}
}

func TestReadMissingFieldsReturnsNotFound(t *testing.T) {
	withTempTmpDir(t)

	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(`{"port":0,"pid":0}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, ok := Read(); ok {
		t.Fatalf("Read() should report not-found when fields are zero/missing")
	}
}
