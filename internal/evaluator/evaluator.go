// Package evaluator implements the in-browser operation runner:
// short-lived CDP sessions opened directly against the backend port,
// bypassing the proxy so that the coordinator's own
// traffic never perturbs the connection counts a downstream client
// observes on the stable proxy port. Each exported operation opens a
// session, performs a bounded round trip, and closes it.
package evaluator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/browsercoordinator/bcoord/internal/browser"
	"github.com/browsercoordinator/bcoord/internal/cdp"
	"github.com/browsercoordinator/bcoord/internal/htmlformat"
)

// DefaultEvalTimeout bounds an in-browser evaluation when the caller
// supplies none.
var DefaultEvalTimeout = 30 * time.Second

// ErrNoPageTarget is returned when the backend has no page-type target
// to operate on.
var ErrNoPageTarget = errors.New("evaluator: no page target available")

// ErrElementNotFound is returned by Screenshot when a selector-based
// clip is requested but the element does not exist.
var ErrElementNotFound = errors.New("evaluator: element not found")

// OriginMismatchError reports a fetch whose resolved origin differs
// from the one requested, per the OriginMismatch error kind.
type OriginMismatchError struct {
	Requested string
	Actual    string
}

func (e *OriginMismatchError) Error() string {
	return fmt.Sprintf("fetch origin mismatch: requested %s but landed on %s (the target likely redirected cross-origin; request the final origin directly)", e.Requested, e.Actual)
}

// Evaluator opens CDP sessions against a single backend port.
type Evaluator struct {
	host string
	port int
}

// New constructs an Evaluator targeting the given backend port.
func New(port int) *Evaluator {
	return &Evaluator{host: "localhost", port: port}
}

// session is one short-lived page-scoped CDP connection.
type session struct {
	client *cdp.Client
}

// openPageSession connects directly to the WebSocket endpoint of the
// page target FindPageTarget picks (the first non-blank page, else the
// first page).
func (e *Evaluator) openPageSession(ctx context.Context) (*session, error) {
	targets, err := browser.FetchTargets(ctx, e.host, e.port)
	if err != nil {
		return nil, fmt.Errorf("evaluator: fetch targets: %w", err)
	}
	target := browser.FindPageTarget(targets)
	if target == nil {
		return nil, ErrNoPageTarget
	}

	client, err := cdp.Dial(ctx, target.WebSocketURL)
	if err != nil {
		return nil, fmt.Errorf("evaluator: dial target: %w", err)
	}
	return &session{client: client}, nil
}

func (s *session) Close() { s.client.Close() }

// evaluate runs expression in the page and unmarshals the JSON result
// into out (if non-nil).
func (s *session) evaluate(ctx context.Context, expression string, out any) error {
	raw, err := s.client.SendContext(ctx, "Runtime.evaluate", map[string]any{
		"expression":    expression,
		"returnByValue": true,
		"awaitPromise":  true,
	})
	if err != nil {
		return fmt.Errorf("evaluator: evaluate: %w", err)
	}

	var result struct {
		Result struct {
			Value json.RawMessage `json:"value"`
		} `json:"result"`
		ExceptionDetails *struct {
			Text string `json:"text"`
		} `json:"exceptionDetails"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return fmt.Errorf("evaluator: parse evaluate result: %w", err)
	}
	if result.ExceptionDetails != nil {
		return fmt.Errorf("evaluator: script threw: %s", result.ExceptionDetails.Text)
	}
	if out == nil || result.Result.Value == nil {
		return nil
	}
	if err := json.Unmarshal(result.Result.Value, out); err != nil {
		return fmt.Errorf("evaluator: unmarshal result value: %w", err)
	}
	return nil
}

// Navigate issues Page.navigate for url in the current page and returns
// once the browser answers that command; it does not wait for the page
// to finish loading.
func (e *Evaluator) Navigate(ctx context.Context, url string) error {
	sess, err := e.openPageSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	_, err = sess.client.SendContext(ctx, "Page.navigate", map[string]string{"url": url})
	if err != nil {
		return fmt.Errorf("evaluator: navigate: %w", err)
	}
	return nil
}

// GetDOM returns the rendered HTML of selector (or the whole document
// when selector is empty), truncated to htmlformat.MaxDOMLength.
func (e *Evaluator) GetDOM(ctx context.Context, selector string, depth int) (string, error) {
	sess, err := e.openPageSession(ctx)
	if err != nil {
		return "", err
	}
	defer sess.Close()

	expr := domExpression(selector)
	var html string
	if err := sess.evaluate(ctx, expr, &html); err != nil {
		return "", err
	}

	formatted, err := htmlformat.Format(html, depth)
	if err != nil {
		formatted = html
	}
	return htmlformat.Truncate(formatted), nil
}

// domExpression builds a Runtime.evaluate expression returning the
// outerHTML of selector, or document.documentElement.outerHTML when
// selector is empty. The browser always serializes the full subtree;
// depth limiting happens afterwards in htmlformat.Format, which walks
// the already-fetched markup and collapses anything past the requested
// nesting level. Doing it there instead of in-page keeps this
// expression simple and means depth never affects what the browser
// itself has to compute.
func domExpression(selector string) string {
	if selector == "" {
		return "document.documentElement.outerHTML"
	}
	sel, _ := json.Marshal(selector)
	return fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		return el ? el.outerHTML : "";
	})()`, string(sel))
}

// ElementRecord describes a selected element, the payload produced by
// the select-element operation's picker expression.
type ElementRecord struct {
	Selector    string `json:"selector"`
	TagName     string `json:"tagName"`
	ID          string `json:"id,omitempty"`
	ClassName   string `json:"className,omitempty"`
	TextPreview string `json:"textPreview,omitempty"`
}

// elementPickerExpression returns a promise-valued expression that
// resolves with a JSON-encoded ElementRecord on the next user click,
// or rejects if none arrives before timeout.
func elementPickerExpression(timeout time.Duration) string {
	ms := timeout.Milliseconds()
	return fmt.Sprintf(`new Promise((resolve, reject) => {
		const timer = setTimeout(() => {
			document.removeEventListener('click', onClick, true);
			reject(new Error('timed out waiting for element selection'));
		}, %d);
		function describe(el) {
			let selector = el.tagName.toLowerCase();
			if (el.id) selector += '#' + el.id;
			else if (el.className && typeof el.className === 'string') {
				selector += '.' + el.className.trim().split(/\s+/).join('.');
			}
			return JSON.stringify({
				selector: selector,
				tagName: el.tagName.toLowerCase(),
				id: el.id || '',
				className: (el.className && typeof el.className === 'string') ? el.className : '',
				textPreview: (el.textContent || '').trim().slice(0, 120),
			});
		}
		function onClick(ev) {
			ev.preventDefault();
			ev.stopPropagation();
			clearTimeout(timer);
			document.removeEventListener('click', onClick, true);
			resolve(describe(ev.target));
		}
		document.addEventListener('click', onClick, true);
	})`, ms)
}

// SelectElement waits up to timeout for the user to click an element
// in the page and returns a description of it.
func (e *Evaluator) SelectElement(ctx context.Context, timeout time.Duration) (ElementRecord, error) {
	sess, err := e.openPageSession(ctx)
	if err != nil {
		return ElementRecord{}, err
	}
	defer sess.Close()

	var raw string
	if err := sess.evaluate(ctx, elementPickerExpression(timeout), &raw); err != nil {
		return ElementRecord{}, err
	}

	var rec ElementRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return ElementRecord{}, fmt.Errorf("evaluator: parse element record: %w", err)
	}
	return rec, nil
}
