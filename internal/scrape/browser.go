// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scrape

import (
	"context"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"
)

// defaultBrowserTimeout bounds a browser fetch when no HTTP timeout is set.
const defaultBrowserTimeout = 30 * time.Second

// BrowserFetcher renders pages in headless Chrome so script-built content is
// present in the returned HTML.
type BrowserFetcher struct {
	ChromePath string
	Timeout    time.Duration
}

// Fetch implements Fetcher.
func (f *BrowserFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = defaultBrowserTimeout
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	}
	if path := f.chromePath(); path != "" {
		opts = append(opts, chromedp.ExecPath(path))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(timeoutCtx, append(chromedp.DefaultExecAllocatorOptions[:], opts...)...)
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	var page string
	if err := chromedp.Run(taskCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &page, chromedp.ByQuery),
	); err != nil {
		return nil, err
	}
	return []byte(page), nil
}

// chromePath returns the configured binary or the first one found on PATH.
// Empty lets chromedp apply its own lookup.
func (f *BrowserFetcher) chromePath() string {
	if f.ChromePath != "" {
		return f.ChromePath
	}
	if p := os.Getenv("CHROME_PATH"); p != "" {
		return p
	}
	for _, name := range []string{"chromium", "chromium-browser", "google-chrome", "google-chrome-stable"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	return ""
}
