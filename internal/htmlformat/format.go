// Package htmlformat renders DOM snapshots returned by the get-dom
// operation into readable, bounded-size HTML.
package htmlformat

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// MaxDOMLength is the hard cap on a get-dom result: full-document
// output is truncated to 100,000 characters.
const MaxDOMLength = 100_000

// Truncate clamps s to at most MaxDOMLength bytes, appending a marker
// so callers can tell the output was cut. The cut point backs off to
// the nearest preceding rune boundary so a multi-byte character never
// gets split in half.
func Truncate(s string) string {
	if len(s) <= MaxDOMLength {
		return s
	}
	cut := MaxDOMLength
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "\n<!-- truncated: exceeded 100000 characters -->"
}

// Format formats HTML with proper indentation for readability, using
// 2-space indentation and preserving content in pre/textarea/script/
// style tags. maxDepth bounds how many levels of descendant elements
// get rendered in full: once an element's own nesting level reaches
// maxDepth, its children are replaced by a single "collapsed" comment
// instead of being walked and printed. maxDepth <= 0 means unlimited,
// i.e. the whole subtree is always rendered. get-dom callers use this
// to keep a snapshot of a deeply nested page readable without the
// far-descendant markup that's rarely what a selector-scoped caller
// was actually after.
func Format(input string, maxDepth int) (string, error) {
	tokenizer := html.NewTokenizer(strings.NewReader(input))
	buf := &bytes.Buffer{}
	indentLevel := 0
	const indent = "  " // 2 spaces

	var rawTagStack []string // Track nested raw tags (pre, textarea)
	prevWasText := false
	needIndent := true

	// collapseFrom is the indentLevel of the element whose children are
	// currently being skipped because maxDepth was reached; -1 means
	// nothing is being collapsed right now. Collapsing nests: only the
	// outermost collapsed element's depth matters, since everything
	// under it is already hidden.
	collapseFrom := -1

	for {
		tokenType := tokenizer.Next()
		if tokenType == html.ErrorToken {
			break
		}

		raw := string(tokenizer.Raw())
		inRawTag := len(rawTagStack) > 0

		skipCollapsed := false
		if collapseFrom >= 0 {
			switch tokenType {
			case html.StartTagToken:
				if !isVoidElement(getTagName(tokenizer)) {
					indentLevel++
				}
				skipCollapsed = true
			case html.EndTagToken:
				if indentLevel-1 == collapseFrom {
					// this is the collapsed element's own closing tag;
					// leave indentLevel alone and let the normal end-tag
					// handling below do its one decrement and render it.
					collapseFrom = -1
				} else {
					indentLevel--
					skipCollapsed = true
				}
			default:
				skipCollapsed = true
			}
		}
		if skipCollapsed {
			continue
		}

		switch tokenType {
		case html.DoctypeToken:
			if needIndent {
				buf.WriteString(strings.Repeat(indent, indentLevel))
			}
			buf.WriteString(raw)
			buf.WriteByte('\n')
			needIndent = true
			prevWasText = false

		case html.CommentToken:
			if needIndent && !inRawTag {
				buf.WriteString(strings.Repeat(indent, indentLevel))
			}
			buf.WriteString(raw)
			if !inRawTag {
				buf.WriteByte('\n')
				needIndent = true
			}
			prevWasText = false

		case html.StartTagToken:
			tagName := getTagName(tokenizer)
			isRawTag := isPreformatted(tagName)
			isVoid := isVoidElement(tagName)

			if needIndent && !inRawTag {
				buf.WriteString(strings.Repeat(indent, indentLevel))
			}
			buf.WriteString(raw)
			if !inRawTag {
				buf.WriteByte('\n')
			}
			needIndent = true
			prevWasText = false

			if isRawTag {
				rawTagStack = append(rawTagStack, tagName)
			}
			// Only increment indentation for non-void elements
			// Void elements have no closing tag, so incrementing would cause drift
			if !inRawTag && !isVoid {
				if maxDepth > 0 && indentLevel >= maxDepth && !isRawTag {
					collapseFrom = indentLevel
					indentLevel++
					buf.WriteString(strings.Repeat(indent, indentLevel))
					buf.WriteString("<!-- collapsed -->\n")
				} else {
					indentLevel++
				}
			}

		case html.EndTagToken:
			tagName := getTagName(tokenizer)
			wasInRawTag := len(rawTagStack) > 0 && rawTagStack[len(rawTagStack)-1] == tagName

			// Decrement for normal tags OR when closing a raw tag
			// (raw tags increment when opened, so must decrement when closed).
			// A void element never incremented on its start tag, so an
			// explicit close for one (e.g. a stray "</br>") must not
			// decrement either, or indentLevel drifts negative and
			// strings.Repeat panics on the next line rendered.
			if (!inRawTag || wasInRawTag) && !isVoidElement(tagName) {
				indentLevel--
			}

			if needIndent && !inRawTag {
				buf.WriteString(strings.Repeat(indent, indentLevel))
			}
			buf.WriteString(raw)
			// Add newline for normal tags OR when closing a raw tag
			// (so the next element starts on a new line)
			if !inRawTag || wasInRawTag {
				buf.WriteByte('\n')
			}
			needIndent = true
			prevWasText = false

			// Pop raw tag from stack
			if wasInRawTag {
				rawTagStack = rawTagStack[:len(rawTagStack)-1]
			}

		case html.SelfClosingTagToken:
			if needIndent && !inRawTag {
				buf.WriteString(strings.Repeat(indent, indentLevel))
			}
			buf.WriteString(raw)
			if !inRawTag {
				buf.WriteByte('\n')
			}
			needIndent = true
			prevWasText = false

		case html.TextToken:
			text := raw
			if inRawTag {
				// Preserve whitespace in raw tags
				buf.WriteString(text)
				needIndent = false
			} else {
				// Trim and collapse whitespace for normal text
				trimmed := strings.TrimSpace(text)
				// Also collapse multiple spaces within the text
				trimmed = collapseSpaces(trimmed)
				if trimmed != "" {
					if prevWasText {
						// Add space between consecutive text nodes
						buf.WriteByte(' ')
					} else if needIndent {
						buf.WriteString(strings.Repeat(indent, indentLevel))
					}
					buf.WriteString(trimmed)
					buf.WriteByte('\n')
					needIndent = true
					prevWasText = false
				}
			}
		}
	}

	return buf.String(), nil
}

// getTagName extracts the tag name from the tokenizer.
func getTagName(tokenizer *html.Tokenizer) string {
	name, _ := tokenizer.TagName()
	return string(name)
}

// isPreformatted checks if a tag should preserve whitespace.
// This includes pre, textarea, script, and style tags where formatting
// would break the content.
func isPreformatted(tagName string) bool {
	return tagName == "pre" ||
		tagName == "textarea" ||
		tagName == "script" ||
		tagName == "style"
}

// isVoidElement checks if a tag is a void element (no closing tag in HTML5).
// These elements cannot have children and don't need/have closing tags.
func isVoidElement(tagName string) bool {
	switch tagName {
	case "area", "base", "br", "col", "embed", "hr", "img", "input",
		"link", "meta", "param", "source", "track", "wbr":
		return true
	}
	return false
}

// collapseSpaces collapses multiple consecutive spaces into a single space.
func collapseSpaces(s string) string {
	var result strings.Builder
	prevWasSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if !prevWasSpace {
				result.WriteByte(' ')
				prevWasSpace = true
			}
		} else {
			result.WriteRune(r)
			prevWasSpace = false
		}
	}
	return result.String()
}
