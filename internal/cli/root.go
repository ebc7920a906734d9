// Package cli implements the coordinator's own administrative command
// line: the thin shell an operator or a script uses to ask a running
// (or freshly spun up) coordinator for its status, to drive the browser
// lifecycle by hand, and to run one-off in-browser operations. It is
// not the protocol surface an editor or tool host uses — that is
// internal/ipc — this is a convenience wrapper around
// internal/coordinator for humans and shell scripts.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// Debug enables verbose debug output on stderr.
var Debug bool

// JSONOutput selects JSON responses instead of the default text format.
var JSONOutput bool

// NoColor disables ANSI color in text output.
var NoColor bool

// printedError wraps an error already written to stderr, so main.go
// does not print it a second time.
type printedError struct {
	err error
}

func (e printedError) Error() string { return e.err.Error() }
func (e printedError) Unwrap() error { return e.err }

// IsPrintedError reports whether err has already been printed.
func IsPrintedError(err error) bool {
	var pe printedError
	return errors.As(err, &pe)
}

var rootCmd = &cobra.Command{
	Use:           "bcoord",
	Short:         "Browser coordinator control surface",
	Long:          "bcoord proxies CDP traffic to a lazily launched browser and exposes its lifecycle and in-browser operations to this CLI.",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "Enable verbose debug output")
	rootCmd.PersistentFlags().BoolVar(&JSONOutput, "json", false, "Output in JSON format (default is text)")
	rootCmd.PersistentFlags().BoolVar(&NoColor, "no-color", false, "Disable color output")
	rootCmd.SetVersionTemplate("bcoord version {{.Version}}\n")
}

// debugf writes a timestamped debug line to stderr when Debug is set.
func debugf(category, format string, args ...any) {
	if !Debug {
		return
	}
	ts := time.Now().Format("15:04:05.000")
	fmt.Fprintf(os.Stderr, "[DEBUG] [%s] [%s] "+format+"\n",
		append([]any{ts, category}, args...)...)
}

func debugParam(format string, args ...any) { debugf("PARAM", format, args...) }

// timer tracks an operation's duration for debug logging.
type timer struct {
	start time.Time
	name  string
}

func startTimer(name string) *timer { return &timer{start: time.Now(), name: name} }

func (t *timer) log() {
	if Debug {
		debugf("TIMING", "%s: %dms", t.name, time.Since(t.start).Milliseconds())
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// isStdoutTTY reports whether stdout is a terminal.
func isStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// shouldUseColor decides whether CLI output is colored: explicit flags
// first, then NO_COLOR, then TTY detection on stderr.
func shouldUseColor() bool {
	if JSONOutput || NoColor {
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

func outputJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	if isStdoutTTY() {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(data)
}

// outputSuccess writes a successful response. In text mode it prints
// "OK" when there is no data, and otherwise prints data with %v (the
// screenshot command uses this for its file path).
func outputSuccess(data any) error {
	if JSONOutput {
		resp := map[string]any{"ok": true}
		if data != nil {
			resp["data"] = data
		}
		return outputJSON(os.Stdout, resp)
	}
	if data == nil {
		if shouldUseColor() {
			color.New(color.FgGreen).Fprintln(os.Stdout, "OK")
		} else {
			fmt.Fprintln(os.Stdout, "OK")
		}
		return nil
	}
	_, err := fmt.Fprintf(os.Stdout, "%v\n", data)
	return err
}

// outputError writes an error to stderr and returns it wrapped so
// main.go knows not to print it again.
func outputError(msg string) error {
	if JSONOutput {
		_ = outputJSON(os.Stderr, map[string]any{"ok": false, "error": msg})
	} else if shouldUseColor() {
		color.New(color.FgRed).Fprint(os.Stderr, "Error:")
		fmt.Fprintf(os.Stderr, " %s\n", msg)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	return printedError{err: fmt.Errorf("%s", msg)}
}

// outputNotice writes an informational, non-error message to stderr
// (used for "editor browser is in charge" style responses) without the
// "Error:" prefix.
func outputNotice(msg string) error {
	if JSONOutput {
		_ = outputJSON(os.Stderr, map[string]any{"ok": false, "message": msg})
	} else {
		fmt.Fprintln(os.Stderr, msg)
	}
	return printedError{err: fmt.Errorf("%s", msg)}
}
