package ipc

import (
	"os"
	"path/filepath"
	"strings"
)

// Discover finds a live editor-host socket. It first tries the
// workspace-specific path derived from workspacePath, if given. Failing
// that, it enumerates every socket file in the platform socket
// directory, probing each in turn; any socket that fails its probe is
// almost certainly left behind by an editor process that exited
// without cleaning up, so it is unlinked before moving on. The first
// socket that answers a successful probe is returned.
func Discover(workspacePath string) (string, bool) {
	if workspacePath != "" {
		if path, err := SocketPath(workspacePath); err == nil {
			if Probe(path) {
				return path, true
			}
		}
	}

	entries, err := os.ReadDir(SocketDir())
	if err != nil {
		return "", false
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sock") {
			continue
		}
		candidate := filepath.Join(SocketDir(), entry.Name())
		if Probe(candidate) {
			return candidate, true
		}
		os.Remove(candidate)
	}

	return "", false
}
