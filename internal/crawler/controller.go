// Package crawler runs a bounded worker pool over a ranked hostname
// list, opening one page session per host, running the notice
// detector against it, and printing each page's outcome as it
// completes.
package crawler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/strobi/cookie-notice-scanner/internal/arbiter"
	"github.com/strobi/cookie-notice-scanner/internal/browser"
	"github.com/strobi/cookie-notice-scanner/internal/detector"
	"github.com/strobi/cookie-notice-scanner/internal/hostlist"
	"github.com/strobi/cookie-notice-scanner/internal/metrics"
	"github.com/strobi/cookie-notice-scanner/internal/model"
	"github.com/strobi/cookie-notice-scanner/internal/pagesession"
	"github.com/strobi/cookie-notice-scanner/internal/screenshot"
	"github.com/strobi/cookie-notice-scanner/internal/security"
)

// Controller owns the worker pool that drives a crawl from start to
// finish. No cross-worker cancellation: one page's failure never
// stops the others (spec.md §5).
type Controller struct {
	Pool        *browser.Pool
	Arbiter     *arbiter.ViewportArbiter
	Detector    *detector.Detector
	Sink        screenshot.Sink
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
	WorkerCount int
}

// Run processes every entry in hosts with Controller.WorkerCount
// concurrent workers (default 10) and returns the completed
// PageResults in arrival order — not input order, since slower pages
// may finish after faster ones submitted later.
func (c *Controller) Run(ctx context.Context, hosts []hostlist.Entry) []*model.PageResult {
	workers := c.WorkerCount
	if workers <= 0 {
		workers = 10
	}

	jobs := make(chan hostlist.Entry)
	results := make(chan *model.PageResult)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for entry := range jobs {
				results <- c.processOne(ctx, entry)
			}
		}()
	}

	go func() {
		for _, h := range hosts {
			jobs <- h
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var out []*model.PageResult
	for pr := range results {
		fmt.Println(pr.Summary())
		out = append(out, pr)
	}
	return out
}

// processOne creates the PageResult shell before any browser
// interaction (spec.md §3's invariant — a URL-parse failure never
// opens a tab), validates the target isn't a private-network address,
// then drives one page through open → detect → flush, closing the
// session and the tab on return.
func (c *Controller) processOne(ctx context.Context, entry hostlist.Entry) *model.PageResult {
	start := time.Now()
	pr := model.New(entry.Rank, entry.URL)

	if failed, _, _ := pr.Failed(); failed {
		c.recordOutcome(pr, start)
		return pr
	}

	if err := security.ValidateURL(entry.URL); err != nil {
		pr.SetFailed(fmt.Sprintf("target rejected: %v", err), err)
		c.recordOutcome(pr, start)
		return pr
	}

	if c.Metrics != nil {
		c.Metrics.IncActiveWorkers()
		defer c.Metrics.DecActiveWorkers()
	}

	inst, err := c.Pool.Acquire()
	if err != nil {
		pr.SetFailed(fmt.Sprintf("no browser available: %v", err), err)
		c.recordOutcome(pr, start)
		return pr
	}
	defer c.Pool.Release(inst)

	tabCtx, tabCancel := inst.NewTab(c.Arbiter)
	defer inst.CloseTab(c.Arbiter, tabCancel)

	sess, root, err := pagesession.Open(tabCtx, entry.URL, pr, c.Logger)
	defer sess.Close()
	if err == nil {
		if detErr := c.Detector.Detect(sess.Context(), pr, root); detErr != nil {
			c.Logger.Warn("detection pass failed", zap.String("hostname", pr.Hostname), zap.Error(detErr))
		}
	}

	c.flushScreenshots(pr)
	c.recordOutcome(pr, start)
	return pr
}

func (c *Controller) recordOutcome(pr *model.PageResult, start time.Time) {
	if c.Metrics == nil {
		return
	}
	outcome := "completed"
	if f, _, _ := pr.Failed(); f {
		outcome = "failed"
	} else if sk, _ := pr.Skipped(); sk {
		outcome = "skipped"
	} else if sw, _ := pr.StoppedWaiting(); sw {
		outcome = "stopped_waiting"
	}
	c.Metrics.RecordPage(outcome, time.Since(start).Seconds())
	c.Metrics.RecordCookies(len(pr.Cookies("all")))
}

// flushScreenshots writes every screenshot a page accumulated to the
// configured Sink, labeled by hostname.
func (c *Controller) flushScreenshots(pr *model.PageResult) {
	if c.Sink == nil {
		return
	}
	for _, shot := range pr.Screenshots() {
		if err := c.Sink.Write(pr.Hostname, shot.Label, shot.Data); err != nil {
			c.Logger.Warn("failed to write screenshot",
				zap.String("hostname", pr.Hostname), zap.String("label", shot.Label), zap.Error(err))
		}
	}
}
