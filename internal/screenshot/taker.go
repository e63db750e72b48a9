package screenshot

import (
	"context"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/overlay"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Highlight fill colors, spec.md §4.4: content / padding / margin box
// overlays drawn by DOM.highlightNode (here via Overlay.highlightNode).
var (
	contentColor = &cdp.RGBA{R: 152, G: 196, B: 234, A: 0.5}
	paddingColor = &cdp.RGBA{R: 184, G: 226, B: 183, A: 0.5}
	marginColor  = &cdp.RGBA{R: 253, G: 201, B: 148, A: 0.5}
)

// Taker captures screenshots of the page currently open in ctx. It
// implements detector.ScreenshotTaker; label is accepted but unused
// here since the detector attaches it when storing the bytes onto
// PageResult — Taker only deals in pixels.
type Taker struct{}

// NewTaker builds a Taker. It holds no state; every call takes the
// page's current viewport and node geometry fresh.
func NewTaker() *Taker {
	return &Taker{}
}

// CaptureOriginal screenshots the full layout viewport at scale 1,
// with no overlay.
func (t *Taker) CaptureOriginal(ctx context.Context) ([]byte, error) {
	var png []byte
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		metrics, err := page.GetLayoutMetrics().Do(ctx)
		if err != nil {
			return err
		}
		lv := metrics.LayoutViewport
		clip := &page.Viewport{
			X:      float64(lv.PageX),
			Y:      float64(lv.PageY),
			Width:  float64(lv.ClientWidth),
			Height: float64(lv.ClientHeight),
			Scale:  1,
		}
		data, err := page.CaptureScreenshot().WithClip(clip).Do(ctx)
		if err != nil {
			return err
		}
		png = data
		return nil
	}))
	return png, err
}

// CaptureHighlighted draws the content/padding/margin box overlay on
// nodeID, captures the viewport, then removes the overlay. label is
// accepted to satisfy detector.ScreenshotTaker but isn't used for
// anything here; the caller attaches it to the returned bytes.
func (t *Taker) CaptureHighlighted(ctx context.Context, nodeID cdp.NodeID, label string) ([]byte, error) {
	highlightCfg := &overlay.HighlightConfig{
		ContentColor: contentColor,
		PaddingColor: paddingColor,
		MarginColor:  marginColor,
	}

	if err := chromedp.Run(ctx, overlay.HighlightNode(highlightCfg).WithNodeID(nodeID)); err != nil {
		return nil, err
	}
	defer chromedp.Run(ctx, overlay.HideHighlight())

	return t.CaptureOriginal(ctx)
}
