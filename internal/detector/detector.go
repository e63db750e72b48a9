// Package detector implements the cookie-consent-notice detection
// pipeline: three independent candidate-finding strategies (curated
// CSS selectors, fixed-position promotion, full-width promotion) over
// a text-seeded DOM search, a shared visibility predicate, and the
// screenshot/cookie capture pass that follows.
package detector

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"go.uber.org/zap"

	"github.com/strobi/cookie-notice-scanner/internal/arbiter"
	"github.com/strobi/cookie-notice-scanner/internal/model"
	"github.com/strobi/cookie-notice-scanner/internal/rules"
)

// strategyName identifies which of the three candidate-finding
// strategies produced a given node, used both for screenshot labels
// and for deciding whether the visibility filter applies.
type strategyName string

const (
	strategyRules           strategyName = "rules"
	strategyFixedParent     strategyName = "fixed-parent"
	strategyFullWidthParent strategyName = "full-width-parent"
)

// ScreenshotTaker captures the original viewport and, per candidate
// node, a highlighted variant. It's an interface so detector tests
// don't need a live Chrome tab to exercise the pipeline's control
// flow.
type ScreenshotTaker interface {
	CaptureOriginal(ctx context.Context) ([]byte, error)
	CaptureHighlighted(ctx context.Context, nodeID cdp.NodeID, label string) ([]byte, error)
}

// Detector runs the full detection pipeline for one already-opened
// page against its PageResult.
type Detector struct {
	oracle *rules.Oracle
	lang   LanguageOracle
	arb    *arbiter.ViewportArbiter
	shots  ScreenshotTaker
	log    *zap.Logger
}

// New builds a Detector. shots may be nil, which disables the
// screenshot pass entirely (useful for tests and for the language/CMP
// probes alone); cookies and candidate discovery still run.
func New(oracle *rules.Oracle, lang LanguageOracle, arb *arbiter.ViewportArbiter, shots ScreenshotTaker, log *zap.Logger) *Detector {
	return &Detector{oracle: oracle, lang: lang, arb: arb, shots: shots, log: log}
}

// candidate pairs a discovered node with the strategy that found it.
type candidate struct {
	strategy strategyName
	node     cdp.NodeID
}

// Detect runs the pipeline described in spec.md §4.3 against the page
// already open in ctx, recording every observation onto pr. root is
// the document root NodeID returned by PageSession.Open.
func (d *Detector) Detect(ctx context.Context, pr *model.PageResult, root cdp.NodeID) error {
	if !d.probeLanguage(ctx, pr) {
		return nil
	}
	d.probeCMP(ctx, pr)

	var all []candidate

	ruleCandidates, err := d.strategyRules(ctx, root, pr.Hostname)
	if err != nil {
		d.log.Warn("strategy rules failed", zap.String("hostname", pr.Hostname), zap.Error(err))
	}
	all = append(all, ruleCandidates...)

	seeds, err := textSeedSearch(ctx, "cookie")
	if err != nil {
		d.log.Warn("text seed search failed", zap.String("hostname", pr.Hostname), zap.Error(err))
		seeds = nil
	}

	promoted := make([]cdp.NodeID, 0, len(seeds))
	for _, seed := range seeds {
		p, err := promoteInlineToBlock(ctx, seed)
		if err != nil {
			continue // node detached mid-promotion; drop this seed
		}
		promoted = append(promoted, p)
	}

	fixedCandidates, err := d.strategyFixedParent(ctx, promoted)
	if err != nil {
		d.log.Warn("strategy fixed-parent failed", zap.String("hostname", pr.Hostname), zap.Error(err))
	}
	all = append(all, fixedCandidates...)

	fullWidthCandidates, err := d.strategyFullWidthParent(ctx, promoted)
	if err != nil {
		d.log.Warn("strategy full-width-parent failed", zap.String("hostname", pr.Hostname), zap.Error(err))
	}
	all = append(all, fullWidthCandidates...)

	visible := d.filterVisible(ctx, all)

	if d.shots != nil {
		if err := d.capture(ctx, pr, visible); err != nil {
			d.log.Warn("screenshot pass failed", zap.String("hostname", pr.Hostname), zap.Error(err))
		}
	}

	d.captureCookies(ctx, pr)
	return nil
}

// probeLanguage runs the language probe and, for an unsupported
// language, marks the page Skipped and reports false so Detect
// returns early (spec.md §4.3 step 1 / §8 scenario 5).
func (d *Detector) probeLanguage(ctx context.Context, pr *model.PageResult) bool {
	remote, err := evaluateExpression(ctx, scriptInnerText)
	if err != nil {
		d.log.Warn("language probe evaluate failed", zap.String("hostname", pr.Hostname), zap.Error(err))
		return true // can't tell; proceed rather than wrongly skip
	}

	var text string
	if err := json.Unmarshal(remote.Value, &text); err != nil {
		d.log.Warn("language probe decode failed", zap.String("hostname", pr.Hostname), zap.Error(err))
		return true
	}
	code, ok := d.lang.Detect(text)
	if !ok {
		return true
	}
	pr.SetLanguage(code)
	if !SupportedLanguages[code] {
		pr.SetSkipped(fmt.Sprintf("unimplemented language `%s`", code))
		return false
	}
	return true
}

func (d *Detector) probeCMP(ctx context.Context, pr *model.PageResult) {
	remote, err := evaluateExpression(ctx, scriptCMPDefined)
	if err != nil {
		d.log.Warn("cmp probe failed", zap.String("hostname", pr.Hostname), zap.Error(err))
		return
	}
	pr.SetCMPDefined(string(remote.Value) == "true")
}

// strategyRules implements §4.3 step 3: not filtered by visibility.
func (d *Detector) strategyRules(ctx context.Context, root cdp.NodeID, hostname string) ([]candidate, error) {
	selectors := d.oracle.Applicable(hostname)
	var out []candidate
	for _, sel := range selectors {
		ids, err := querySelectorAll(ctx, root, sel)
		if err != nil {
			return out, err
		}
		for _, id := range ids {
			out = append(out, candidate{strategy: strategyRules, node: id})
		}
	}
	return out, nil
}

func (d *Detector) strategyFixedParent(ctx context.Context, seeds []cdp.NodeID) ([]candidate, error) {
	frameID, err := rootFrameID(ctx)
	if err != nil {
		return nil, err
	}
	var out []candidate
	for _, seed := range seeds {
		res, err := findFixedParent(ctx, seed, frameID)
		if err != nil {
			continue // node detached; skip this seed
		}
		if res.HasFixedParent {
			out = append(out, candidate{strategy: strategyFixedParent, node: res.FixedParent})
		}
	}
	return out, nil
}

func (d *Detector) strategyFullWidthParent(ctx context.Context, seeds []cdp.NodeID) ([]candidate, error) {
	var out []candidate
	for _, seed := range seeds {
		res, err := findFullWidthParent(ctx, seed)
		if err != nil {
			continue
		}
		if res.Found {
			out = append(out, candidate{strategy: strategyFullWidthParent, node: res.NodeID})
		}
	}
	return out, nil
}

// filterVisible applies the visibility predicate to candidates from
// strategies B and C, leaving strategy A candidates untouched, per
// spec.md §4.3 step 7.
func (d *Detector) filterVisible(ctx context.Context, all []candidate) []candidate {
	if err := ensureVisibilityScriptDefined(ctx); err != nil {
		d.log.Warn("visibility script definition failed", zap.Error(err))
		return all
	}

	out := make([]candidate, 0, len(all))
	for _, c := range all {
		if c.strategy == strategyRules {
			out = append(out, c)
			continue
		}
		res, err := isNodeVisible(ctx, c.node)
		if err != nil {
			continue
		}
		if res.Visible {
			out = append(out, candidate{strategy: c.strategy, node: res.NodeID})
		}
	}
	return out
}

// capture runs the screenshot pass under the foreground-tab arbiter:
// one "original" shot, then one highlighted shot per visible
// candidate, labeled "{strategy}-{index}" in strategy order
// (rules, fixed-parent, full-width-parent), per spec.md §4.3 step 8.
func (d *Detector) capture(ctx context.Context, pr *model.PageResult, visible []candidate) error {
	release := d.arb.EnterForeground()
	defer release()

	original, err := d.shots.CaptureOriginal(ctx)
	if err != nil {
		return err
	}
	pr.AddScreenshot("original", original)

	counts := map[strategyName]int{}
	for _, c := range visible {
		idx := counts[c.strategy]
		counts[c.strategy] = idx + 1
		label := fmt.Sprintf("%s-%d", c.strategy, idx)

		png, err := d.shots.CaptureHighlighted(ctx, c.node, label)
		if err != nil {
			d.log.Warn("highlighted capture failed", zap.String("label", label), zap.Error(err))
			continue
		}
		pr.AddScreenshot(label, png)
	}
	return nil
}

// captureCookies stores the cookie jar and attempts to clear it,
// logging (not failing) if cookies survive the deletion-pass ceiling.
func (d *Detector) captureCookies(ctx context.Context, pr *model.PageResult) {
	cookies, err := collectAllCookies(ctx)
	if err != nil {
		d.log.Warn("cookie collection failed", zap.String("hostname", pr.Hostname), zap.Error(err))
		return
	}
	pr.SetCookies("all", cookies)

	passes, residue, err := clearAllCookies(ctx)
	if err != nil {
		d.log.Warn("cookie deletion failed", zap.String("hostname", pr.Hostname), zap.Error(err))
		return
	}
	if residue {
		d.log.Warn("cookies remained after deletion ceiling",
			zap.String("hostname", pr.Hostname), zap.Int("passes", passes))
	}
}
