// Package browser manages headless Chrome processes and the tabs
// opened against them, serialized through a ViewportArbiter so many
// concurrent crawl workers never collide over the one foreground
// viewport a real browser exposes.
package browser

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/strobi/cookie-notice-scanner/internal/arbiter"
)

const healthCheckTimeout = 5 * time.Second

// Instance is one headless Chrome process. Many tabs may be open
// against it concurrently (spec.md §2: "one long-lived connection…
// parallelizable across tabs"), so Instance itself is never checked
// out exclusively — activeTabs tracks load for Status reporting and
// for MaybeRestart's open-tab check, and restartMu only serializes the
// restart decision itself.
type Instance struct {
	id              int
	config          Config
	logger          *zap.Logger
	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	status          atomic.Int32
	tabsServed      atomic.Int64
	activeTabs      atomic.Int32
	createdAt       atomic.Int64
	mu              sync.RWMutex // protects context fields only
	restartMu       sync.Mutex   // serializes restart attempts only
}

// New starts a new Chrome instance with the given ID.
func New(id int, cfg Config, logger *zap.Logger) (*Instance, error) {
	instance := &Instance{
		id:     id,
		config: cfg,
		logger: logger,
	}
	instance.status.Store(int32(StatusIdle))

	allocCtx, allocCancel, browserCtx, browserCancel, err := instance.createBrowser()
	if err != nil {
		return nil, err
	}

	instance.createdAt.Store(time.Now().UnixNano())
	instance.allocatorCtx = allocCtx
	instance.allocatorCancel = allocCancel
	instance.browserCtx = browserCtx
	instance.browserCancel = browserCancel

	logger.Info("chrome instance started",
		zap.Int("id", id),
		zap.Bool("headless", cfg.Headless),
	)

	return instance, nil
}

func buildAllocatorOptions(cfg Config) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("metrics-recording-only", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("safebrowsing-disable-auto-update", true),
		chromedp.WindowSize(DesktopWidth, DesktopHeight),
		chromedp.Flag("disk-cache-dir", "/dev/null"),
		chromedp.Flag("disk-cache-size", "1"),
	)

	if cfg.Headless {
		opts = append(opts, chromedp.Headless)
	}
	opts = append(opts, chromedp.DisableGPU)

	if cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if cfg.ExecutablePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecutablePath))
	}

	return opts
}

// ID returns the instance identifier.
func (i *Instance) ID() int { return i.id }

// Status returns the current instance status.
func (i *Instance) Status() Status { return Status(i.status.Load()) }

// SetStatus sets the current instance status.
func (i *Instance) SetStatus(s Status) { i.status.Store(int32(s)) }

// TabsServed returns the number of tabs opened since the last restart.
func (i *Instance) TabsServed() int64 { return i.tabsServed.Load() }

func (i *Instance) incrementTabsServed() { i.tabsServed.Add(1) }

// ActiveTabs returns the number of pages currently checked out against
// this instance.
func (i *Instance) ActiveTabs() int32 { return i.activeTabs.Load() }

// acquireTab records one more page checked out against this instance,
// marking it Busy on the 0-to-1 transition.
func (i *Instance) acquireTab() {
	if i.activeTabs.Add(1) == 1 {
		i.SetStatus(StatusBusy)
	}
}

// releaseTab is acquireTab's inverse, marking the instance Idle again
// once its last checked-out page returns.
func (i *Instance) releaseTab() {
	if i.activeTabs.Add(-1) == 0 {
		i.SetStatus(StatusIdle)
	}
}

// EnsureAlive restarts the instance if its health check fails.
// Concurrent callers serialize on restartMu so a shared instance with
// several workers acquiring it at once never attempts the restart
// twice; a caller that loses the race just re-checks once the winner
// is done.
func (i *Instance) EnsureAlive() error {
	if i.IsAlive() {
		return nil
	}
	i.restartMu.Lock()
	defer i.restartMu.Unlock()
	if i.IsAlive() {
		return nil
	}
	return i.Restart()
}

// MaybeRestart performs a policy restart (tab count or age) if one is
// due, logging rather than failing if the restart attempt itself
// errors — an existing, still-usable browser is preferable to
// aborting the page over a missed restart. Serialized the same way as
// EnsureAlive. Skipped while other pages still have tabs open against
// this instance, since Restart tears down the browser context those
// tabs depend on; the policy restart is retried next time this
// instance is acquired while idle.
func (i *Instance) MaybeRestart(logger *zap.Logger) {
	if !i.ShouldRestart() || i.ActiveTabs() > 0 {
		return
	}
	i.restartMu.Lock()
	defer i.restartMu.Unlock()
	if !i.ShouldRestart() || i.ActiveTabs() > 0 {
		return
	}
	if err := i.Restart(); err != nil {
		logger.Warn("policy restart failed, continuing with existing instance",
			zap.Int("instance_id", i.id), zap.Error(err))
		return
	}
	logger.Debug("policy restart completed", zap.Int("instance_id", i.id))
}

// CreatedAt returns the time the current browser process was started.
func (i *Instance) CreatedAt() time.Time { return time.Unix(0, i.createdAt.Load()) }

func (i *Instance) resetCounters() {
	i.tabsServed.Store(0)
	i.createdAt.Store(time.Now().UnixNano())
}

// NewTab opens a tab against this instance's browser process. Creation
// is serialized through arb's tab-creation handshake (acquire N,
// acquire M, release N, create tab, release M) so it can cut ahead of
// a queued foreground session instead of waiting behind it.
func (i *Instance) NewTab(arb *arbiter.ViewportArbiter) (context.Context, context.CancelFunc) {
	release := arb.EnterTabCreate()
	defer release()

	i.mu.RLock()
	browserCtx := i.browserCtx
	i.mu.RUnlock()

	ctx, cancel := chromedp.NewContext(browserCtx)
	i.incrementTabsServed()
	return ctx, cancel
}

// CloseTab tears down a tab context under the same handshake NewTab
// used, so close and create never interleave with each other either.
func (i *Instance) CloseTab(arb *arbiter.ViewportArbiter, cancel context.CancelFunc) {
	release := arb.EnterTabCreate()
	defer release()
	cancel()
}

// IsAlive checks if the browser is responsive using a CDP health check.
func (i *Instance) IsAlive() bool {
	status := i.Status()
	if status == StatusDead || status == StatusClosed {
		return false
	}

	i.mu.RLock()
	browserCtx := i.browserCtx
	i.mu.RUnlock()

	if browserCtx == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
			_, _, _, _, _, err := cdpbrowser.GetVersion().Do(ctx)
			return err
		}))
	}()

	select {
	case err := <-done:
		return err == nil
	case <-ctx.Done():
		return false
	}
}

// Close shuts down the Chrome instance.
func (i *Instance) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.Status() == StatusClosed {
		return nil
	}
	i.SetStatus(StatusClosed)

	if i.browserCancel != nil {
		i.browserCancel()
	}
	if i.allocatorCancel != nil {
		i.allocatorCancel()
	}

	i.logger.Info("chrome instance closed", zap.Int("id", i.id))
	return nil
}

// ShouldRestart reports whether restart policy (tab count or age) is due.
func (i *Instance) ShouldRestart() bool {
	if i.config.RestartAfterCount > 0 && i.TabsServed() >= int64(i.config.RestartAfterCount) {
		return true
	}
	if i.config.RestartAfterTime > 0 && time.Since(i.CreatedAt()) >= i.config.RestartAfterTime {
		return true
	}
	return false
}

// Restart restarts the Chrome browser process using make-before-break:
// the new browser must come up before the old one is torn down, so a
// failed restart leaves the existing, still-usable browser in place.
func (i *Instance) Restart() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.SetStatus(StatusRestarting)

	newAllocCtx, newAllocCancel, newBrowserCtx, newBrowserCancel, err := i.createBrowser()
	if err != nil {
		i.SetStatus(StatusIdle)
		i.logger.Warn("restart failed, continuing with existing browser",
			zap.Int("id", i.id),
			zap.Error(err),
		)
		return fmt.Errorf("failed to restart chrome: %w", err)
	}

	if i.browserCancel != nil {
		i.browserCancel()
	}
	if i.allocatorCancel != nil {
		i.allocatorCancel()
	}

	i.allocatorCtx = newAllocCtx
	i.allocatorCancel = newAllocCancel
	i.browserCtx = newBrowserCtx
	i.browserCancel = newBrowserCancel

	i.resetCounters()

	if err := i.warmup(); err != nil {
		i.logger.Warn("warmup failed during restart",
			zap.Int("id", i.id),
			zap.Error(err),
		)
	}

	i.SetStatus(StatusIdle)
	i.logger.Info("chrome instance restarted", zap.Int("id", i.id))
	return nil
}

// Terminate forcefully and permanently shuts down the instance.
func (i *Instance) Terminate() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.SetStatus(StatusDead)

	if i.browserCancel != nil {
		i.browserCancel()
	}
	if i.allocatorCancel != nil {
		i.allocatorCancel()
	}

	i.logger.Info("chrome instance terminated", zap.Int("id", i.id))
	return nil
}

func (i *Instance) createBrowser() (
	allocCtx context.Context,
	allocCancel context.CancelFunc,
	browserCtx context.Context,
	browserCancel context.CancelFunc,
	err error,
) {
	opts := buildAllocatorOptions(i.config)

	allocCtx, allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)

	browserCtx, browserCancel = chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			i.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)

	if err = chromedp.Run(browserCtx, chromedp.Navigate("about:blank")); err != nil {
		allocCancel()
		return nil, nil, nil, nil, fmt.Errorf("failed to start chrome: %w", err)
	}

	return allocCtx, allocCancel, browserCtx, browserCancel, nil
}

func (i *Instance) warmup() error {
	if i.config.WarmupURL == "" {
		return nil
	}

	timeout := i.config.Timeout
	if timeout == 0 {
		timeout = 25 * time.Second
	}

	ctx, cancel := context.WithTimeout(i.browserCtx, timeout)
	defer cancel()

	tabCtx, tabCancel := chromedp.NewContext(ctx)
	defer tabCancel()

	if err := chromedp.Run(tabCtx, chromedp.Navigate(i.config.WarmupURL)); err != nil {
		return fmt.Errorf("warmup navigation failed: %w", err)
	}
	return nil
}
