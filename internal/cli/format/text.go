// Package format renders coordinator CLI results as human-readable
// text, mirroring the coordinator's own JSON shapes one-for-one so the
// two output modes never drift apart.
package format

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/browsercoordinator/bcoord/internal/coordinator"
	"github.com/browsercoordinator/bcoord/internal/evaluator"
)

// OutputOptions controls whether ANSI color is applied.
type OutputOptions struct {
	UseColor bool
}

func colorFprintf(w io.Writer, c color.Attribute, format string, args ...any) {
	_, _ = color.New(c).Fprintf(w, format, args...)
}

// Status renders a coordinator.Status summary.
func Status(w io.Writer, st coordinator.Status, opts OutputOptions) error {
	tierColor := color.FgYellow
	if st.EditorTier == "coordinator-managed" || st.EditorTier == "editor-managed" {
		tierColor = color.FgGreen
	}

	if opts.UseColor {
		colorFprintf(w, tierColor, "%s", st.EditorTier)
	} else {
		fmt.Fprint(w, st.EditorTier)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "proxy port: %d\n", st.ProxyPort)
	if st.BrowserRunning {
		fmt.Fprintf(w, "browser: %s (port %d)\n", st.Engine, st.InternalPort)
	} else {
		fmt.Fprintln(w, "browser: not running")
	}
	return nil
}

// BrowserList renders a list-browsers result.
func BrowserList(w io.Writer, listing []coordinator.BrowserListing, opts OutputOptions) error {
	if len(listing) == 0 {
		fmt.Fprintln(w, "no browsers detected")
		return nil
	}
	for _, b := range listing {
		if b.IsEditor {
			if opts.UseColor {
				colorFprintf(w, color.FgCyan, "* ")
			} else {
				fmt.Fprint(w, "* ")
			}
			fmt.Fprintln(w, b.Name)
			continue
		}
		fmt.Fprintf(w, "  %s (%s) - %s\n", b.Name, b.Kind, b.Path)
	}
	return nil
}

// Element renders an ElementRecord from select-element.
func Element(w io.Writer, el evaluator.ElementRecord, opts OutputOptions) error {
	fmt.Fprintf(w, "%s\n", el.Selector)
	fmt.Fprintf(w, "  tag: %s\n", el.TagName)
	if el.ID != "" {
		fmt.Fprintf(w, "  id: %s\n", el.ID)
	}
	if el.ClassName != "" {
		fmt.Fprintf(w, "  class: %s\n", el.ClassName)
	}
	if el.TextPreview != "" {
		fmt.Fprintf(w, "  text: %s\n", el.TextPreview)
	}
	return nil
}
