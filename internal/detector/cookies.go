package detector

import (
	"context"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/strobi/cookie-notice-scanner/internal/model"
)

// maxCookieDeletionPasses bounds the delete-and-recheck loop so a site
// that keeps re-planting cookies via a service worker or reload can't
// wedge the worker forever.
const maxCookieDeletionPasses = 16

// collectAllCookies reads every cookie visible to the tab via
// Network.getAllCookies, translated into model.Cookie.
func collectAllCookies(ctx context.Context) ([]model.Cookie, error) {
	var raw []*network.Cookie
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := network.GetAllCookies().Do(ctx)
		if err != nil {
			return err
		}
		raw = cookies
		return nil
	}))
	if err != nil {
		return nil, err
	}

	out := make([]model.Cookie, len(raw))
	for i, c := range raw {
		out[i] = model.Cookie{
			Name:     c.Name,
			Domain:   c.Domain,
			Path:     c.Path,
			Value:    c.Value,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		}
	}
	return out, nil
}

// clearAllCookies deletes every cookie visible to the tab one at a
// time via Network.deleteCookies(name, domain, path), re-listing and
// repeating up to maxCookieDeletionPasses times in case a page
// actively replants cookies between passes — matching
// _delete_all_cookies in the original implementation exactly.
// Network.clearBrowserCookies is deliberately not used here: it wipes
// every cookie in the whole browser, not just this tab's, which would
// blow away cookies belonging to any other page concurrently open on
// the same shared instance (spec.md §2's parallelizable-across-tabs
// model). It returns the number of passes actually taken and whether
// cookies still remained when the ceiling was hit, so the caller can
// log a non-fatal warning rather than fail the page over leftover
// cookies.
func clearAllCookies(ctx context.Context) (passes int, residue bool, err error) {
	for passes = 1; passes <= maxCookieDeletionPasses; passes++ {
		remaining, cerr := collectAllCookies(ctx)
		if cerr != nil {
			return passes, false, cerr
		}
		if len(remaining) == 0 {
			return passes, false, nil
		}
		for _, c := range remaining {
			del := network.DeleteCookies(c.Name).WithDomain(c.Domain).WithPath(c.Path)
			if err = chromedp.Run(ctx, del); err != nil {
				return passes, false, err
			}
		}
	}
	return maxCookieDeletionPasses, true, nil
}
