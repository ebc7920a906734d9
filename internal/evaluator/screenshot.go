package evaluator

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ScreenshotOptions controls how a screenshot is clipped and saved.
// Precedence when more than one clip source is given: Clip > Selector
// > FullPage > viewport (the default when none apply).
type ScreenshotOptions struct {
	Selector  string
	Clip      *ClipRect
	FullPage  bool
	Format    string // "png" or "jpeg"; defaults to "png"
	OutputDir string // defaults to the workspace-stable screenshots directory
}

// ClipRect is an explicit capture rectangle in CSS pixels.
type ClipRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Scale  float64 `json:"scale"`
}

// ScreenshotResult is the outcome of a successful capture.
type ScreenshotResult struct {
	Path  string
	Image []byte
}

// boundingBoxExpression returns an expression resolving to the
// bounding rect of selector, or null if it is not present in the DOM.
func boundingBoxExpression(selector string) string {
	sel, _ := json.Marshal(selector)
	return fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) return null;
		const r = el.getBoundingClientRect();
		return JSON.stringify({x: r.x, y: r.y, width: r.width, height: r.height, scale: 1});
	})()`, string(sel))
}

// Screenshot captures the page (or a clipped region of it) via the
// backend's CDP endpoint and saves the result under a workspace-stable
// path: <tmp>/browser-coordinator/screenshots/<hash(cwd)>/screenshot-<iso>.<ext>.
func (e *Evaluator) Screenshot(ctx context.Context, opts ScreenshotOptions) (ScreenshotResult, error) {
	sess, err := e.openPageSession(ctx)
	if err != nil {
		return ScreenshotResult{}, err
	}
	defer sess.Close()

	format := opts.Format
	if format == "" {
		format = "png"
	}

	params := map[string]any{"format": format}

	clip, err := resolveClip(ctx, sess, opts)
	if err != nil {
		return ScreenshotResult{}, err
	}
	if clip != nil {
		params["clip"] = clip
	}
	if opts.FullPage && clip == nil {
		params["captureBeyondViewport"] = true
	}

	raw, err := sess.client.SendContext(ctx, "Page.captureScreenshot", params)
	if err != nil {
		return ScreenshotResult{}, fmt.Errorf("evaluator: capture screenshot: %w", err)
	}

	var result struct {
		Data string `json:"data"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return ScreenshotResult{}, fmt.Errorf("evaluator: parse screenshot result: %w", err)
	}

	image, err := base64.StdEncoding.DecodeString(result.Data)
	if err != nil {
		return ScreenshotResult{}, fmt.Errorf("evaluator: decode screenshot data: %w", err)
	}

	path, err := saveScreenshot(image, format, opts.OutputDir)
	if err != nil {
		return ScreenshotResult{}, err
	}

	return ScreenshotResult{Path: path, Image: image}, nil
}

// resolveClip computes the capture rectangle according to clip
// precedence: explicit Clip wins, then Selector, then nil (full page or
// viewport, decided by the caller via FullPage).
func resolveClip(ctx context.Context, sess *session, opts ScreenshotOptions) (*ClipRect, error) {
	if opts.Clip != nil {
		return opts.Clip, nil
	}
	if opts.Selector == "" {
		return nil, nil
	}

	var raw string
	if err := sess.evaluate(ctx, boundingBoxExpression(opts.Selector), &raw); err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, fmt.Errorf("%w: selector %q matched no element", ErrElementNotFound, opts.Selector)
	}

	var rect ClipRect
	if err := json.Unmarshal([]byte(raw), &rect); err != nil {
		return nil, fmt.Errorf("evaluator: parse bounding box: %w", err)
	}
	if rect.Scale == 0 {
		rect.Scale = 1
	}
	return &rect, nil
}

func saveScreenshot(image []byte, format, outputDir string) (string, error) {
	ext := "png"
	if format == "jpeg" {
		ext = "jpg"
	}

	dir := outputDir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("evaluator: getwd: %w", err)
		}
		sum := sha256.Sum256([]byte(cwd))
		h := hex.EncodeToString(sum[:])[:8]
		dir = filepath.Join(os.TempDir(), "browser-coordinator", "screenshots", h)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("evaluator: mkdir screenshot dir: %w", err)
	}

	name := fmt.Sprintf("screenshot-%s.%s", time.Now().UTC().Format("20060102T150405.000000000Z"), ext)
	path := filepath.Join(dir, name)

	if err := os.WriteFile(path, image, 0o644); err != nil {
		return "", fmt.Errorf("evaluator: write screenshot: %w", err)
	}
	return path, nil
}
