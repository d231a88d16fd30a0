// Package capture renders pages in a headless Chrome and returns viewport
// screenshots for visual comparison.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"

	"github.com/amosWeiskopf/phishsmith/pkg/visual"
)

// ErrClosed is returned by Capture after Close.
var ErrClosed = errors.New("browser closed")

// Screenshot is a decoded page rendering plus its encoded PNG bytes.
type Screenshot struct {
	URL        string
	Image      image.Image
	PNG        []byte
	CapturedAt time.Time
}

// Capturer renders a URL and returns its screenshot.
type Capturer interface {
	Capture(ctx context.Context, pageURL string) (Screenshot, error)
}

// Error records a failed capture step.
type Error struct {
	URL string
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("capture %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Options configures the browser session.
type Options struct {
	Timeout      time.Duration
	SettleDelay  time.Duration
	WindowWidth  int
	WindowHeight int
	UserAgent    string
	Headless     bool
}

// DefaultOptions returns a 1920x1080 headless session.
func DefaultOptions() Options {
	return Options{
		Timeout:      30 * time.Second,
		SettleDelay:  2 * time.Second,
		WindowWidth:  1920,
		WindowHeight: 1080,
		Headless:     true,
	}
}

// Browser is a Capturer backed by a single Chrome process. Each capture
// opens its own tab, so Capture is safe for concurrent use.
type Browser struct {
	opts Options

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	// launch starts Chrome on browserCtx; tabs opened afterwards share it.
	launch    func(context.Context) error
	startOnce sync.Once
	startErr  error

	mu     sync.Mutex
	closed bool
}

// NewBrowser starts the Chrome allocator. The browser itself is launched
// lazily by the first Capture.
func NewBrowser(ctx context.Context, opts Options) *Browser {
	defaults := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	if opts.WindowWidth <= 0 || opts.WindowHeight <= 0 {
		opts.WindowWidth, opts.WindowHeight = defaults.WindowWidth, defaults.WindowHeight
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	return &Browser{
		opts:          opts,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		launch:        func(ctx context.Context) error { return chromedp.Run(ctx) },
	}
}

// start launches the shared Chrome process once.
func (b *Browser) start() error {
	b.startOnce.Do(func() {
		b.startErr = b.launch(b.browserCtx)
	})
	return b.startErr
}

// Capture navigates to pageURL, waits for the body and the settle delay, and
// takes a viewport screenshot.
func (b *Browser) Capture(ctx context.Context, pageURL string) (Screenshot, error) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return Screenshot{}, &Error{URL: pageURL, Op: "start", Err: ErrClosed}
	}
	if err := b.start(); err != nil {
		return Screenshot{}, &Error{URL: pageURL, Op: "start", Err: err}
	}

	tabCtx, cancelTab := chromedp.NewContext(b.browserCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.opts.Timeout)
	defer cancelTimeout()

	// Propagate caller cancellation into the tab.
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("url", pageURL).Msg("capturing screenshot")

	var buf []byte
	err := chromedp.Run(tabCtx,
		emulation.SetDeviceMetricsOverride(int64(b.opts.WindowWidth), int64(b.opts.WindowHeight), 1, false),
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(b.opts.SettleDelay),
		chromedp.CaptureScreenshot(&buf),
	)
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return Screenshot{}, &Error{URL: pageURL, Op: "render", Err: err}
	}

	img, err := visual.Decode(buf)
	if err != nil {
		return Screenshot{}, &Error{URL: pageURL, Op: "decode", Err: err}
	}

	logger.Debug().Str("url", pageURL).Int("bytes", len(buf)).Msg("screenshot captured")
	return Screenshot{URL: pageURL, Image: img, PNG: buf, CapturedAt: time.Now()}, nil
}

// Close shuts the browser down. It is safe to call more than once.
func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.browserCancel()
	b.allocCancel()
}
