package detector

import (
	"context"

	"github.com/chromedp/cdproto/cdp"
)

// ensureVisibilityScriptDefined evaluates the isVisible function
// declaration in the tab behind ctx so later CallFunctionOn invocations
// can reference it recursively, mirroring the prototype's one-time
// `Runtime.evaluate(expression=js_function)` before any node check. It
// is called once per filterVisible pass, so every page defines the
// function in its own tab.
func ensureVisibilityScriptDefined(ctx context.Context) error {
	return evaluateDefinition(ctx, scriptIsVisible)
}

// VisibilityResult reports whether a node (or one of its descendants,
// if the node itself isn't directly visible) is visible, and which
// node the caller should actually treat as the visible candidate.
type VisibilityResult struct {
	Visible bool
	NodeID  cdp.NodeID
}

// isNodeVisible evaluates the visibility predicate against a node.
// The script itself recurses into child nodes when the element isn't
// directly visible (e.g. a zero-size fixed container with a visible
// child), so a false result here means nothing under the node is
// visible either.
func isNodeVisible(ctx context.Context, nodeID cdp.NodeID) (VisibilityResult, error) {
	objID, err := resolveObjectID(ctx, nodeID)
	if err != nil {
		return VisibilityResult{}, err
	}

	remote, err := callFunctionOnObject(ctx, scriptIsVisible, objID)
	if err != nil {
		return VisibilityResult{}, err
	}

	if remote.Type == "boolean" {
		return VisibilityResult{Visible: false}, nil
	}

	resultNodeID, err := nodeIDForObjectID(ctx, string(remote.ObjectID))
	if err != nil {
		return VisibilityResult{}, err
	}
	return VisibilityResult{Visible: true, NodeID: resultNodeID}, nil
}
