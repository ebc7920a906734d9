package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/browsercoordinator/bcoord/internal/browser"
	"github.com/browsercoordinator/bcoord/internal/cdp"
)

// DefaultFetchTimeout bounds the whole Fetch call (tab setup,
// navigation to the target's origin, and the fetch itself) when the
// caller supplies none.
var DefaultFetchTimeout = 30 * time.Second

// FetchRequest describes an in-page fetch() call to perform from a
// transient background tab, preserving cookies for the target origin.
type FetchRequest struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    string
	Timeout time.Duration
}

// Fetch opens a short-lived background tab, navigates it to req.URL's
// origin, verifies the origin actually reached matches the one
// requested (guarding against a cross-origin redirect silently
// changing where the fetch would run), performs the fetch with
// credentials included, and returns the response body as text; the
// status and headers are not returned. The transient tab is always
// closed on exit.
func (e *Evaluator) Fetch(ctx context.Context, req FetchRequest) (string, error) {
	target, err := url.Parse(req.URL)
	if err != nil {
		return "", fmt.Errorf("evaluator: parse fetch url: %w", err)
	}
	requestedOrigin := target.Scheme + "://" + target.Host

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	browserClient, targetID, err := e.openTransientTarget(ctx)
	if err != nil {
		return "", err
	}
	// Deferred calls run last-in first-out: the tab is closed while the
	// browser connection is still open, then the connection is closed.
	defer browserClient.Close()
	defer closeTarget(context.Background(), browserClient, targetID)

	sessionID, err := attachFlat(ctx, browserClient, targetID)
	if err != nil {
		return "", err
	}

	actualOrigin, err := e.navigateAndVerifyOrigin(ctx, browserClient, sessionID, requestedOrigin)
	if err != nil {
		return "", err
	}
	if actualOrigin != requestedOrigin {
		return "", &OriginMismatchError{Requested: requestedOrigin, Actual: actualOrigin}
	}

	return e.runFetch(ctx, browserClient, sessionID, req)
}

func (e *Evaluator) openTransientTarget(ctx context.Context) (*cdp.Client, string, error) {
	version, err := browser.FetchVersion(ctx, e.host, e.port)
	if err != nil {
		return nil, "", fmt.Errorf("evaluator: fetch version: %w", err)
	}

	client, err := cdp.Dial(ctx, version.WebSocketURL)
	if err != nil {
		return nil, "", fmt.Errorf("evaluator: dial browser endpoint: %w", err)
	}

	// Created blank, not already pointed at the requested origin: the
	// navigation that's actually being timed and verified happens
	// afterwards in navigateAndVerifyOrigin, once Page.frameNavigated
	// has a subscribed listener waiting for it. Creating the target
	// already mid-navigation would race that subscription.
	raw, err := client.SendContext(ctx, "Target.createTarget", map[string]any{
		"url":       "about:blank",
		"newWindow": false,
	})
	if err != nil {
		client.Close()
		return nil, "", fmt.Errorf("evaluator: create target: %w", err)
	}

	var created struct {
		TargetID string `json:"targetId"`
	}
	if err := json.Unmarshal(raw, &created); err != nil {
		client.Close()
		return nil, "", fmt.Errorf("evaluator: parse created target: %w", err)
	}

	return client, created.TargetID, nil
}

func attachFlat(ctx context.Context, client *cdp.Client, targetID string) (string, error) {
	raw, err := client.SendContext(ctx, "Target.attachToTarget", map[string]any{
		"targetId": targetID,
		"flatten":  true,
	})
	if err != nil {
		return "", fmt.Errorf("evaluator: attach to target: %w", err)
	}

	var attached struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(raw, &attached); err != nil {
		return "", fmt.Errorf("evaluator: parse attach result: %w", err)
	}
	return attached.SessionID, nil
}

// navigateAndVerifyOrigin enables the Page domain, subscribes to
// Page.frameNavigated before issuing the navigation so the event can't
// be missed by a race between navigating and subscribing, then
// navigates to requestedOrigin and waits for the top frame to report
// where it actually landed. The wait is bounded by ctx, which already
// carries Fetch's full timeout (the caller-supplied req.Timeout, or
// DefaultFetchTimeout) rather than a fixed fraction of it: a redirect
// chain or a slow origin should get to use the whole budget the caller
// asked for, not an arbitrary few seconds carved out of it.
func (e *Evaluator) navigateAndVerifyOrigin(ctx context.Context, client *cdp.Client, sessionID, requestedOrigin string) (string, error) {
	if _, err := client.SendSession(ctx, sessionID, "Page.enable", nil); err != nil {
		return "", fmt.Errorf("evaluator: enable page domain: %w", err)
	}

	navigated := make(chan string, 1)
	client.Subscribe("Page.frameNavigated", func(evt cdp.Event) {
		if evt.SessionID != "" && evt.SessionID != sessionID {
			return
		}
		if navigatedURL, ok := evt.FrameNavigatedURL(); ok {
			select {
			case navigated <- navigatedURL:
			default:
			}
		}
	})

	if _, err := client.SendSession(ctx, sessionID, "Page.navigate", map[string]any{"url": requestedOrigin}); err != nil {
		return "", fmt.Errorf("evaluator: navigate transient tab: %w", err)
	}

	select {
	case navigatedURL := <-navigated:
		parsed, err := url.Parse(navigatedURL)
		if err != nil {
			return "", fmt.Errorf("evaluator: parse navigated url: %w", err)
		}
		return parsed.Scheme + "://" + parsed.Host, nil
	case <-ctx.Done():
		return "", fmt.Errorf("evaluator: timed out waiting for top-frame navigation: %w", ctx.Err())
	}
}

func (e *Evaluator) runFetch(ctx context.Context, client *cdp.Client, sessionID string, req FetchRequest) (string, error) {
	method := req.Method
	if method == "" {
		method = "GET"
	}
	script := fetchScript(req.URL, method, req.Headers, req.Body)

	raw, err := client.SendSession(ctx, sessionID, "Runtime.evaluate", map[string]any{
		"expression":    script,
		"returnByValue": true,
		"awaitPromise":  true,
	})
	if err != nil {
		return "", fmt.Errorf("evaluator: fetch evaluate: %w", err)
	}

	var result struct {
		Result struct {
			Value string `json:"value"`
		} `json:"result"`
		ExceptionDetails *struct {
			Text string `json:"text"`
		} `json:"exceptionDetails"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("evaluator: parse fetch result: %w", err)
	}
	if result.ExceptionDetails != nil {
		return "", fmt.Errorf("evaluator: fetch script failed: %s", result.ExceptionDetails.Text)
	}
	return result.Result.Value, nil
}

// fetchScript builds a script that performs the fetch with
// credentials included and resolves with the body as text. Every
// dynamic value is safely JSON-embedded rather than concatenated.
func fetchScript(rawURL, method string, headers map[string]string, body string) string {
	u, _ := json.Marshal(rawURL)
	m, _ := json.Marshal(method)
	h, _ := json.Marshal(headers)
	b, _ := json.Marshal(body)

	return fmt.Sprintf(`fetch(%s, {
		method: %s,
		headers: %s,
		body: %s === "" ? undefined : %s,
		credentials: "include",
	}).then(r => r.text())`, string(u), string(m), string(h), string(b), string(b))
}

func closeTarget(ctx context.Context, client *cdp.Client, targetID string) {
	client.SendContext(ctx, "Target.closeTarget", map[string]any{"targetId": targetID})
}
