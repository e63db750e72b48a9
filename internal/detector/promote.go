package detector

import (
	"context"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// inlineElements is the static inline-tag short-circuit list: nodes
// with one of these tag names are known inline elements without a
// getComputedStyle round trip, matching the original implementation's
// fixed list exactly.
var inlineElements = map[string]bool{
	"a": true, "abbr": true, "acronym": true, "b": true, "bdo": true,
	"big": true, "br": true, "button": true, "cite": true, "code": true,
	"dfn": true, "em": true, "i": true, "img": true, "input": true,
	"kbd": true, "label": true, "map": true, "object": true, "output": true,
	"q": true, "samp": true, "script": true, "select": true, "small": true,
	"span": true, "strong": true, "sub": true, "sup": true, "textarea": true,
	"time": true, "tt": true, "var": true,
}

func isScriptOrStyleNode(name string) bool {
	return name == "script" || name == "style"
}

func isHTMLNode(name string) bool {
	return name == "html"
}

// resolveObjectID resolves a NodeID to the RemoteObjectID needed for
// runtime.CallFunctionOn.
func resolveObjectID(ctx context.Context, nodeID cdp.NodeID) (string, error) {
	obj, err := dom.ResolveNode().WithNodeID(nodeID).Do(ctx)
	if err != nil {
		return "", err
	}
	return string(obj.ObjectID), nil
}

// nodeIDForObjectID is the reverse of resolveObjectID.
func nodeIDForObjectID(ctx context.Context, objectID string) (cdp.NodeID, error) {
	return dom.RequestNode(stringObjectID(objectID)).Do(ctx)
}

// stringObjectID is a small conversion helper kept separate so the
// cdp.RemoteObjectID cast site is visible in one place.
func stringObjectID(id string) dom.RemoteObjectID {
	return dom.RemoteObjectID(id)
}

func describeNodeName(ctx context.Context, nodeID cdp.NodeID) (string, error) {
	n, err := dom.DescribeNode().WithNodeID(nodeID).Do(ctx)
	if err != nil {
		return "", err
	}
	return lowerNodeName(n.NodeName), nil
}

func lowerNodeName(name string) string {
	out := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

// promoteInlineToBlock returns node, or its nearest block-level
// ancestor if node is an inline element, matching
// find_parent_block_element: a static tag-name check is tried first,
// and only nodes that fail it pay for a getComputedStyle round trip.
func promoteInlineToBlock(ctx context.Context, nodeID cdp.NodeID) (cdp.NodeID, error) {
	name, err := describeNodeName(ctx, nodeID)
	if err != nil {
		return 0, err
	}
	if !inlineElements[name] {
		return nodeID, nil
	}

	objID, err := resolveObjectID(ctx, nodeID)
	if err != nil {
		return 0, err
	}

	var resultObjID string
	err = chromedp.Run(ctx, callFunctionOnNode(scriptFindClosestBlockElement, objID, &resultObjID))
	if err != nil {
		return 0, err
	}
	return nodeIDForObjectID(ctx, resultObjID)
}

// FullWidthParentResult reports the widest stable ancestor found by
// findFullWidthParent, if it spans the full document body width.
type FullWidthParentResult struct {
	Found  bool
	NodeID cdp.NodeID
}

// findFullWidthParent implements find_full_width_parent: walk up
// while the parent isn't significantly taller than the current
// element, then report whether the element reached is at least as
// wide as the document body. The script returns a bare `false` when
// no such ancestor exists, and an element handle otherwise, so the
// two cases are told apart by the RemoteObject's reported type.
func findFullWidthParent(ctx context.Context, nodeID cdp.NodeID) (FullWidthParentResult, error) {
	objID, err := resolveObjectID(ctx, nodeID)
	if err != nil {
		return FullWidthParentResult{}, err
	}

	remote, err := callFunctionOnObject(ctx, scriptFindFullWidthParent, objID)
	if err != nil {
		return FullWidthParentResult{}, err
	}

	if remote.Type == "boolean" {
		return FullWidthParentResult{Found: false}, nil
	}

	resultNodeID, err := nodeIDForObjectID(ctx, string(remote.ObjectID))
	if err != nil {
		return FullWidthParentResult{}, err
	}
	return FullWidthParentResult{Found: true, NodeID: resultNodeID}, nil
}

// FixedParentResult reports whether a fixed-position ancestor (or, if
// the walk reaches the document's <html> node inside an iframe, the
// frame's owner element) exists for a candidate node.
type FixedParentResult struct {
	HasFixedParent bool
	FixedParent    cdp.NodeID
}

// findFixedParent implements find_fixed_parent: walk up until a
// position:fixed ancestor is found, or the walk reaches <html>. If it
// reaches the root document's <html>, there is no fixed parent; if it
// reaches an embedded frame's <html>, the frame's owner element in the
// parent document is treated as the fixed parent.
func findFixedParent(ctx context.Context, nodeID cdp.NodeID, rootFrameID string) (FixedParentResult, error) {
	objID, err := resolveObjectID(ctx, nodeID)
	if err != nil {
		return FixedParentResult{}, err
	}

	var resultObjID string
	if err := chromedp.Run(ctx, callFunctionOnNode(scriptFindFixedParent, objID, &resultObjID)); err != nil {
		return FixedParentResult{}, err
	}

	resultNodeID, err := nodeIDForObjectID(ctx, resultObjID)
	if err != nil {
		return FixedParentResult{}, err
	}

	name, err := describeNodeName(ctx, resultNodeID)
	if err != nil {
		return FixedParentResult{}, err
	}
	if !isHTMLNode(name) {
		return FixedParentResult{HasFixedParent: true, FixedParent: resultNodeID}, nil
	}

	n, err := dom.DescribeNode().WithNodeID(resultNodeID).Do(ctx)
	if err != nil {
		return FixedParentResult{}, err
	}
	if string(n.FrameID) == rootFrameID {
		return FixedParentResult{HasFixedParent: false}, nil
	}

	owner, err := dom.GetFrameOwner(n.FrameID).Do(ctx)
	if err != nil {
		return FixedParentResult{}, err
	}
	return FixedParentResult{HasFixedParent: true, FixedParent: owner}, nil
}

// rootFrameID reads the top-level frame ID for the current tab.
func rootFrameID(ctx context.Context) (string, error) {
	tree, err := page.GetFrameTree().Do(ctx)
	if err != nil {
		return "", err
	}
	return string(tree.Frame.ID), nil
}
