// Command bcoord-wrap is the rendezvous-aware process launcher: it
// waits for a coordinator's rendezvous file to appear, substitutes its
// proxy port into the
// wrapped command's arguments, execs the program with inherited
// standard I/O, and forwards termination signals to it.
//
// Usage: bcoord-wrap -- <program> [args...]
//
// Any argument containing {cdp_port} or {cdp_endpoint} has that
// placeholder replaced with the coordinator's published proxy port, or
// with an "http://127.0.0.1:<port>" endpoint built from it.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/browsercoordinator/bcoord/internal/rendezvous"
)

const (
	pollInterval = 250 * time.Millisecond
	pollDeadline = 10 * time.Second
)

func main() {
	args := os.Args[1:]
	sep := -1
	for i, a := range args {
		if a == "--" {
			sep = i
			break
		}
	}
	if sep == -1 || sep == len(args)-1 {
		fmt.Fprintln(os.Stderr, "usage: bcoord-wrap -- <program> [args...]")
		os.Exit(1)
	}
	program := args[sep+1]
	progArgs := args[sep+2:]

	rec, err := waitForRendezvous(pollDeadline)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bcoord-wrap: %v\n", err)
		os.Exit(1)
	}

	substituted := make([]string, len(progArgs))
	for i, a := range progArgs {
		substituted[i] = substitute(a, rec)
	}

	cmd := exec.Command(program, substituted...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "bcoord-wrap: start %s: %v\n", program, err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		for sig := range sigCh {
			_ = cmd.Process.Signal(sig)
		}
	}()

	err = cmd.Wait()
	signal.Stop(sigCh)
	close(sigCh)

	if err == nil {
		os.Exit(0)
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		os.Exit(exitErr.ExitCode())
	}
	fmt.Fprintf(os.Stderr, "bcoord-wrap: %v\n", err)
	os.Exit(1)
}

// substitute replaces the {cdp_port} and {cdp_endpoint} placeholders
// with values derived from the rendezvous record's proxy port.
func substitute(arg string, rec rendezvous.Record) string {
	port := strconv.Itoa(rec.Port)
	arg = strings.ReplaceAll(arg, "{cdp_port}", port)
	arg = strings.ReplaceAll(arg, "{cdp_endpoint}", "http://127.0.0.1:"+port)
	return arg
}

// waitForRendezvous polls rendezvous.Read for up to deadline, woken
// early by an fsnotify watch on the rendezvous directory so the common
// case (coordinator already mid-startup) doesn't sit through a full
// poll interval once the file lands.
func waitForRendezvous(deadline time.Duration) (rendezvous.Record, error) {
	if rec, ok := rendezvous.Read(); ok {
		return rec, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		defer watcher.Close()
		_ = watcher.Add(rendezvousDir())
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	timeout := time.After(deadline)

	for {
		select {
		case <-timeout:
			return rendezvous.Record{}, fmt.Errorf("timed out after %s waiting for rendezvous file", deadline)
		case <-ticker.C:
			if rec, ok := rendezvous.Read(); ok {
				return rec, nil
			}
		case ev, ok := <-watcherEvents(watcher):
			if !ok {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				if rec, ok := rendezvous.Read(); ok {
					return rec, nil
				}
			}
		}
	}
}

func watcherEvents(w *fsnotify.Watcher) chan fsnotify.Event {
	if w == nil {
		return nil
	}
	return w.Events
}

func rendezvousDir() string {
	return filepath.Dir(rendezvous.Path())
}
