// Package pagesession implements the per-page browser-tab lifecycle:
// registering CDP event listeners in the exact order spec.md §4.1
// requires, navigating with a bounded wait for the load event, and
// tearing the tab down unconditionally on the way out.
package pagesession

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/overlay"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/strobi/cookie-notice-scanner/internal/apperrors"
	"github.com/strobi/cookie-notice-scanner/internal/model"
)

const (
	navigateTimeout  = 15 * time.Second
	loadWaitCeiling  = 30 * time.Second
	loadPollInterval = 100 * time.Millisecond
	postLoadIdle     = 5 * time.Second
)

// Session owns one open tab's event collection and lifecycle.
type Session struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger

	mu               sync.Mutex
	loaded           bool
	primaryRequestID string
	primaryLatched   sync.Once
}

// Open navigates tabCtx to rawURL, following spec.md §4.1's seven-step
// sequence: listeners first, then domain enables, permission denial,
// bounded navigation, bounded load-wait, a fixed idle sleep, and
// finally a document-root fetch. Any failure along the way is
// recorded onto pr and returned; Close must still be called by the
// caller (deferred) regardless of the returned error.
func Open(tabCtx context.Context, rawURL string, pr *model.PageResult, logger *zap.Logger) (*Session, cdp.NodeID, error) {
	ctx, cancel := context.WithCancel(tabCtx)
	s := &Session{ctx: ctx, cancel: cancel, logger: logger}

	s.registerListeners(pr)

	if err := chromedp.Run(ctx,
		network.Enable(),
		page.Enable(),
		dom.Enable(),
		runtime.Enable(),
		overlay.Enable(),
	); err != nil {
		wrapped := apperrors.CallMethod(err)
		pr.SetFailed(wrapped.Message, wrapped)
		return s, 0, wrapped
	}

	if err := s.denyNotifications(rawURL); err != nil {
		s.logger.Warn("permission denial failed", zap.Error(err))
	}

	if err := s.navigate(rawURL); err != nil {
		wrapped := wrapNavigateError(err)
		pr.SetFailed(wrapped.Message, wrapped)
		return s, 0, wrapped
	}

	s.waitForLoad(pr)

	time.Sleep(postLoadIdle)

	root, err := s.documentRoot()
	if err != nil {
		wrapped := apperrors.CallMethod(err)
		pr.SetFailed(wrapped.Message, wrapped)
		return s, 0, wrapped
	}

	return s, root, nil
}

// registerListeners wires network/page event handling onto pr, in the
// order spec.md §4.1 step 1 requires: request, response, loading
// failure, then the page-load lifecycle event.
func (s *Session) registerListeners(pr *model.PageResult) {
	chromedp.ListenTarget(s.ctx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			pr.AddRequest(e.Request.URL)
			s.primaryLatched.Do(func() {
				s.mu.Lock()
				s.primaryRequestID = string(e.RequestID)
				s.mu.Unlock()
			})

		case *network.EventResponseReceived:
			headers := make(map[string]string, len(e.Response.Headers))
			for k, v := range e.Response.Headers {
				headers[k] = fmt.Sprintf("%v", v)
			}
			pr.AddResponse(e.Response.URL, int(e.Response.Status), e.Response.MimeType, headers)

			if s.isPrimaryRequest(string(e.RequestID)) && e.Response.Status >= 400 {
				wrapped := apperrors.HTTPStatus(int(e.Response.Status))
				pr.SetFailed(wrapped.Message, wrapped)
			}

		case *network.EventLoadingFailed:
			if s.isPrimaryRequest(string(e.RequestID)) {
				wrapped := apperrors.LoadingFailed(e.ErrorText)
				pr.SetFailed(wrapped.Message, wrapped)
			}

		case *page.EventLifecycleEvent:
			if e.Name == "load" {
				s.mu.Lock()
				s.loaded = true
				s.mu.Unlock()
			}
		}
	})
}

func (s *Session) isPrimaryRequest(requestID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.primaryRequestID != "" && s.primaryRequestID == requestID
}

// denyNotifications matches spec.md §4.1 step 2: deny the
// notifications permission for both the bare hostname and its www.
// variant so a page can't pop a native permission prompt mid-crawl.
func (s *Session) denyNotifications(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	host := u.Hostname()

	origins := []string{
		fmt.Sprintf("https://%s", host),
		fmt.Sprintf("https://www.%s", host),
	}
	for _, origin := range origins {
		err := chromedp.Run(s.ctx, browser.SetPermission(&browser.PermissionDescriptor{Name: "notifications"}, browser.PermissionSettingDenied).WithOrigin(origin))
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) navigate(rawURL string) error {
	navCtx, cancel := context.WithTimeout(s.ctx, navigateTimeout)
	defer cancel()
	return chromedp.Run(navCtx, page.Navigate(rawURL))
}

// wrapNavigateError distinguishes spec.md §7's Timeout kind (the wire
// call exceeded its budget) from CallMethod (the browser rejected the
// call outright, e.g. a detached frame) — navigate's own deadline is
// the only thing that should produce a Timeout; every other error
// navigate can return is the browser refusing the call.
func wrapNavigateError(err error) *apperrors.AppError {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Timeout(err)
	}
	return apperrors.CallMethod(err)
}

// waitForLoad polls the load flag every 100ms up to a 30s ceiling; if
// the ceiling is hit, StoppedWaiting is recorded but detection still
// proceeds against whatever DOM state exists (spec.md §4.1 step 4).
func (s *Session) waitForLoad(pr *model.PageResult) {
	deadline := time.Now().Add(loadWaitCeiling)
	ticker := time.NewTicker(loadPollInterval)
	defer ticker.Stop()

	for {
		s.mu.Lock()
		loaded := s.loaded
		s.mu.Unlock()
		if loaded {
			return
		}
		if time.Now().After(deadline) {
			pr.SetStoppedWaiting("load event")
			return
		}
		<-ticker.C
	}
}

func (s *Session) documentRoot() (cdp.NodeID, error) {
	var root cdp.NodeID
	err := chromedp.Run(s.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		doc, err := dom.GetDocument().Do(ctx)
		if err != nil {
			return err
		}
		root = doc.NodeID
		return nil
	}))
	return root, err
}

// Context exposes the session's tab context for the detector pass.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Close tears the tab's listener context down unconditionally, per
// spec.md §4.1 step 7. It's always safe to call, including when Open
// returned an error.
func (s *Session) Close() {
	s.cancel()
}
