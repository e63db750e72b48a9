package detector

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
)

// querySelectorAll runs DOM.querySelectorAll rooted at root.
func querySelectorAll(ctx context.Context, root cdp.NodeID, selector string) ([]cdp.NodeID, error) {
	var ids []cdp.NodeID
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		found, err := dom.QuerySelectorAll(root, selector).Do(ctx)
		if err != nil {
			return err
		}
		ids = found
		return nil
	}))
	return ids, err
}

// textSeedSearch performs the case-insensitive text search for
// candidate notice elements, with script execution suspended for the
// duration so the DOM doesn't shift mid-search, and drops any
// <script>/<style> hits the XPath incidentally picked up.
func textSeedSearch(ctx context.Context, searchString string) ([]cdp.NodeID, error) {
	lowered := strings.ToLower(searchString)
	query := fmt.Sprintf(xpathTextSeedTemplate, lowered)

	if err := chromedp.Run(ctx, emulation.SetScriptExecutionDisabled(true)); err != nil {
		return nil, err
	}
	defer chromedp.Run(ctx, emulation.SetScriptExecutionDisabled(false))

	var nodeIDs []cdp.NodeID
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		searchID, resultCount, err := dom.PerformSearch(query).Do(ctx)
		if err != nil {
			return err
		}
		defer dom.DiscardSearchResults(searchID).Do(ctx)

		if resultCount == 0 {
			return nil
		}
		ids, err := dom.GetSearchResults(searchID, 0, resultCount).Do(ctx)
		if err != nil {
			return err
		}
		nodeIDs = ids
		return nil
	}))
	if err != nil {
		return nil, err
	}

	filtered := nodeIDs[:0]
	for _, id := range nodeIDs {
		name, err := describeNodeName(ctx, id)
		if err != nil {
			continue // detached between search and describe; skip
		}
		if !isScriptOrStyleNode(name) {
			filtered = append(filtered, id)
		}
	}
	return filtered, nil
}

// documentRoot returns the root NodeID of the current document.
func documentRoot(ctx context.Context) (cdp.NodeID, error) {
	var root cdp.NodeID
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		doc, err := dom.GetDocument().Do(ctx)
		if err != nil {
			return err
		}
		root = doc.NodeID
		return nil
	}))
	return root, err
}
