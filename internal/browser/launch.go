package browser

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"runtime"
	"time"
)

// LaunchOptions configures browser launch behavior.
type LaunchOptions struct {
	// Kind selects which browser to launch. Required.
	Kind Kind
	// Path is the resolved executable path for Kind.
	Path string
	// Headless records the caller's headless preference. The argument
	// builders do not read it: a launch is headless unless DisableHeadless
	// is set.
	Headless bool
	// DisableHeadless forces a headed launch, whatever Headless holds.
	DisableHeadless bool
	// NoSandbox forces --no-sandbox even when not running as root. Some
	// container runtimes restrict the sandbox without presenting as root.
	NoSandbox bool
}

// Launch error sentinels.
var (
	ErrNoBrowser        = errors.New("no browser available")
	ErrSpawnFailed      = errors.New("browser spawn failed")
	ErrReadinessTimeout = errors.New("browser readiness timeout")
	ErrProcessExited    = errors.New("browser process exited before becoming ready")
)

// readinessTimeoutVar is the hard timeout for stderr readiness parsing
// (15 seconds). A var rather than a const so tests can shrink
// it instead of waiting out the production timeout.
var readinessTimeoutVar = 15 * time.Second

// httpReadinessTimeoutVar bounds the late-failure HTTP poll after the
// stderr readiness line has already matched (Chromium only). A var so
// tests aren't forced to wait out the full production timeout.
var httpReadinessTimeoutVar = 5 * time.Second

var (
	chromiumReadyRE = regexp.MustCompile(`DevTools listening on (ws://\S+)`)
	firefoxReadyRE  = regexp.MustCompile(`WebDriver BiDi listening on (ws://\S+)`)
)

// noiseSuppressionArgs are appended to every Chromium-family launch to
// silence first-run UI, background networking and telemetry.
var noiseSuppressionArgs = []string{
	"--no-first-run",
	"--no-default-browser-check",
	"--disable-background-networking",
	"--disable-default-apps",
	"--disable-extensions",
	"--disable-sync",
	"--disable-translate",
	"--metrics-recording-only",
	"--mute-audio",
}

// isRoot reports whether the current process is running as root (POSIX)
// or a CI environment indicator is set, the condition under which
// --no-sandbox is added.
func isRoot() bool {
	if os.Getenv("CI") != "" {
		return true
	}
	if runtime.GOOS == "windows" {
		return false
	}
	return os.Geteuid() == 0
}

// buildChromiumArgs constructs the Chromium-family command line.
func buildChromiumArgs(port int, dataDir string, opts LaunchOptions) []string {
	args := []string{
		fmt.Sprintf("--remote-debugging-port=%d", port),
		fmt.Sprintf("--user-data-dir=%s", dataDir),
	}
	args = append(args, noiseSuppressionArgs...)

	if !opts.DisableHeadless {
		args = append(args, "--headless=new")
	}
	if opts.NoSandbox || isRoot() {
		args = append(args, "--no-sandbox")
	}

	args = append(args, "about:blank")
	return args
}

// buildFirefoxArgs constructs the Firefox command line.
func buildFirefoxArgs(port int, dataDir string, opts LaunchOptions) []string {
	args := []string{
		"--remote-debugging-port", fmt.Sprintf("%d", port),
		"--profile", dataDir,
		"--no-remote",
	}
	if !opts.DisableHeadless {
		args = append(args, "--headless")
	}
	args = append(args, "about:blank")
	return args
}

// createTempDataDir creates a temporary, unique profile directory for a
// single launch. Prevents cross-contamination with a user's real profile.
func createTempDataDir(kind Kind) (string, error) {
	return os.MkdirTemp("", fmt.Sprintf("bcoord-%s-*", kind))
}

// spawnProcess starts the browser process, streaming its stderr to an
// internal pipe used by waitForReadiness. It does not wait for readiness.
func spawnProcess(port int, opts LaunchOptions) (cmd *exec.Cmd, dataDir string, stderr io.ReadCloser, err error) {
	dataDir, err = createTempDataDir(opts.Kind)
	if err != nil {
		return nil, "", nil, fmt.Errorf("%w: create temp dir: %v", ErrSpawnFailed, err)
	}

	var args []string
	if opts.Kind == KindFirefox {
		args = buildFirefoxArgs(port, dataDir, opts)
	} else {
		args = buildChromiumArgs(port, dataDir, opts)
	}

	cmd = exec.Command(opts.Path, args...)
	cmd.Stdin = nil
	cmd.Stdout = nil

	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		_ = os.RemoveAll(dataDir)
		return nil, "", nil, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}

	if err := cmd.Start(); err != nil {
		_ = os.RemoveAll(dataDir)
		return nil, "", nil, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}

	return cmd, dataDir, stderrPipe, nil
}

// waitForReadiness streams stderr line-buffered for up to readinessTimeoutVar,
// looking for the engine's readiness pattern. Returns the advertised
// WebSocket URL on match.
func waitForReadiness(cmd *exec.Cmd, stderr io.ReadCloser, engine Engine) (string, error) {
	re := chromiumReadyRE
	if engine == EngineFirefox {
		re = firefoxReadyRE
	}

	type result struct {
		url string
		err error
	}
	resCh := make(chan result, 1)

	go func() {
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if m := re.FindStringSubmatch(line); m != nil {
				resCh <- result{url: m[1]}
				return
			}
		}
		resCh <- result{err: ErrProcessExited}
	}()

	exitCh := make(chan error, 1)
	go func() {
		exitCh <- cmd.Wait()
	}()

	select {
	case r := <-resCh:
		return r.url, r.err
	case <-exitCh:
		select {
		case r := <-resCh:
			if r.url != "" {
				return r.url, nil
			}
		default:
		}
		return "", ErrProcessExited
	case <-time.After(readinessTimeoutVar):
		return "", ErrReadinessTimeout
	}
}

// pollHTTPReadiness polls the Chromium HTTP debugging endpoint briefly to
// surface a late HTTP-layer failure early. A poll timeout is a warning
// only; it never fails the launch.
func pollHTTPReadiness(port int) {
	ctx, cancel := context.WithTimeout(context.Background(), httpReadinessTimeoutVar)
	defer cancel()

	deadline := time.Now().Add(httpReadinessTimeoutVar)
	for time.Now().Before(deadline) {
		if _, err := FetchVersion(ctx, "127.0.0.1", port); err == nil {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	// Timeout: warning only, never fails the launch (see waitForReadiness
	// for the authoritative readiness signal).
}
