// Package browser handles the lifecycle of the driven browser process. One
// Manager owns the exec allocator; page sessions (tabs) derive from it.
package browser

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Options configure the browser process at launch.
type Options struct {
	// Headless runs the browser without a visible UI.
	Headless bool
	// WindowWidth and WindowHeight size the browser window.
	WindowWidth  int
	WindowHeight int
	// IgnoreTLSErrors skips certificate validation.
	IgnoreTLSErrors bool
	// Args are extra command-line flags, "name" or "name=value".
	Args []string
	// StartupTimeout bounds the responsiveness probe after launch.
	StartupTimeout time.Duration
	// UserAgent overrides the browser's default UA string when non-empty.
	UserAgent string
}

// Manager owns the headless browser process and hands out tab contexts.
type Manager struct {
	logger *zap.Logger
	opts   Options

	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc
}

// NewManager launches the browser process and verifies it responds.
func NewManager(ctx context.Context, logger *zap.Logger, opts Options) (*Manager, error) {
	if opts.WindowWidth == 0 {
		opts.WindowWidth = 1920
	}
	if opts.WindowHeight == 0 {
		opts.WindowHeight = 1080
	}
	if opts.StartupTimeout == 0 {
		opts.StartupTimeout = 30 * time.Second
	}

	m := &Manager{
		logger: logger.Named("browser"),
		opts:   opts,
	}
	if err := m.launch(ctx); err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	return m, nil
}

// launch prepares allocator options and starts the browser process.
func (m *Manager) launch(ctx context.Context) error {
	m.logger.Info("Initializing browser allocator",
		zap.Bool("headless", m.opts.Headless))

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, m.allocatorOptions()...)
	m.allocatorCtx = allocCtx
	m.allocatorCancel = cancel

	// Probe with a throwaway tab to confirm the process is alive before any
	// real work is scheduled against it.
	probeCtx, cancelProbe := context.WithTimeout(allocCtx, m.opts.StartupTimeout)
	probeCtx, cancelTab := chromedp.NewContext(probeCtx)
	defer cancelTab()
	defer cancelProbe()

	if err := chromedp.Run(probeCtx, chromedp.Navigate("about:blank")); err != nil {
		m.allocatorCancel()
		return fmt.Errorf("browser failed to start or respond: %w", err)
	}

	m.logger.Info("Browser launched and responsive")
	return nil
}

// allocatorOptions assembles the launch flags, dropping the automation
// banner so the target site renders its normal UI.
func (m *Manager) allocatorOptions() []chromedp.ExecAllocatorOption {
	var opts []chromedp.ExecAllocatorOption
	opts = append(opts, chromedp.DefaultExecAllocatorOptions[:]...)
	// Flags are stored in a map and boolean-false flags are omitted from the
	// command line, so this overrides the default and drops the flag.
	opts = append(opts, chromedp.Flag("enable-automation", false))

	opts = append(opts,
		chromedp.Flag("headless", m.opts.Headless),
		chromedp.Flag("disable-gpu", m.opts.Headless),
		chromedp.Flag("ignore-certificate-errors", m.opts.IgnoreTLSErrors),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-extensions", true),
		chromedp.WindowSize(m.opts.WindowWidth, m.opts.WindowHeight),
	)
	if m.opts.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(m.opts.UserAgent))
	}

	for _, arg := range m.opts.Args {
		parts := strings.SplitN(arg, "=", 2)
		name := strings.TrimPrefix(parts[0], "--")
		if len(parts) == 2 {
			opts = append(opts, chromedp.Flag(name, parts[1]))
		} else {
			opts = append(opts, chromedp.Flag(name, true))
		}
	}

	// Containers on Linux need the sandbox relaxed.
	if runtime.GOOS == "linux" {
		opts = append(opts,
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)
	}
	return opts
}

// NewSession opens a fresh tab derived from the allocator. The returned
// cancel closes the tab; Shutdown closes the whole process.
func (m *Manager) NewSession(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if m.allocatorCtx == nil {
		return nil, nil, fmt.Errorf("browser manager not launched")
	}
	tabCtx, cancel := chromedp.NewContext(m.allocatorCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			m.logger.Sugar().Debugf(format, args...)
		}))

	// Materialize the tab now so callers get launch errors here, not on
	// their first action.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("opening browser tab: %w", err)
	}

	// Keep the caller's cancellation without tying tab lifetime to ctx.
	stop := context.AfterFunc(ctx, cancel)
	return tabCtx, func() { stop(); cancel() }, nil
}

// Shutdown terminates the browser process.
func (m *Manager) Shutdown() {
	if m.allocatorCancel != nil {
		m.logger.Info("Shutting down browser process")
		m.allocatorCancel()
		<-m.allocatorCtx.Done()
	}
}
