package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/dtnitsch/placeshelf/models"
)

// DefaultLaunchTimeout bounds how long a browser start may take.
const DefaultLaunchTimeout = 30 * time.Second

// DefaultUserAgent is a desktop Chrome user agent string.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ChromeLauncher returns a LaunchFunc that starts Chrome through chromedp.
// Production hosts are constrained containers, so the sandbox and shared
// memory are disabled and the binary path is taken from configuration.
func ChromeLauncher(env string, cfg models.BrowserConfig) LaunchFunc {
	return func() (Handle, error) {
		opts := allocatorOptions(env, cfg)
		allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
		browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

		timeout := cfg.LaunchTimeout
		if timeout <= 0 {
			timeout = DefaultLaunchTimeout
		}

		started := make(chan error, 1)
		go func() { started <- chromedp.Run(browserCtx) }()

		select {
		case err := <-started:
			if err != nil {
				cancelBrowser()
				cancelAlloc()
				return nil, fmt.Errorf("failed to start chrome: %w", err)
			}
		case <-time.After(timeout):
			cancelBrowser()
			cancelAlloc()
			return nil, fmt.Errorf("chrome did not start within %s", timeout)
		}

		return &chromeHandle{
			ctx:           browserCtx,
			cancelBrowser: cancelBrowser,
			cancelAlloc:   cancelAlloc,
		}, nil
	}
}

func allocatorOptions(env string, cfg models.BrowserConfig) []chromedp.ExecAllocatorOption {
	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.UserAgent(ua),
		chromedp.WindowSize(1366, 900),
	)

	if env == models.EnvProduction {
		opts = append(opts,
			chromedp.NoSandbox,
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.DisableGPU,
		)
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}

type chromeHandle struct {
	ctx           context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
}

func (h *chromeHandle) Connected() bool {
	return h.ctx.Err() == nil
}

// NewPage opens a new tab in the running browser.
func (h *chromeHandle) NewPage() (context.Context, context.CancelFunc) {
	return chromedp.NewContext(h.ctx)
}

func (h *chromeHandle) Close() error {
	err := chromedp.Cancel(h.ctx)
	h.cancelBrowser()
	h.cancelAlloc()
	if err != nil && err != context.Canceled {
		return fmt.Errorf("failed to close chrome: %w", err)
	}
	return nil
}
