package detector

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// callFunctionOnObject evaluates a named function declaration against
// an already-resolved RemoteObjectID, passing objectID as `this` the
// way the ported scripts expect (each declares `if (!elem) elem =
// this;`). It mirrors the prototype's
// `Runtime.callFunctionOn(functionDeclaration=..., objectId=...,
// silent=True)` call exactly, including silent mode so a thrown
// exception surfaces as an error rather than aborting the tab.
func callFunctionOnObject(ctx context.Context, functionDeclaration, objectID string) (*runtime.RemoteObject, error) {
	var remote *runtime.RemoteObject
	action := chromedp.ActionFunc(func(ctx context.Context) error {
		obj, exc, err := runtime.CallFunctionOn(functionDeclaration).
			WithObjectID(runtime.RemoteObjectID(objectID)).
			WithSilent(true).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return fmt.Errorf("detector: exception evaluating script: %s", exc.Text)
		}
		remote = obj
		return nil
	})
	if err := chromedp.Run(ctx, action); err != nil {
		return nil, err
	}
	return remote, nil
}

// callFunctionOnNode is the node-centric convenience wrapper used by
// promote.go; it returns the RemoteObjectID of the result for callers
// that expect an element to always come back (findClosestBlockElement,
// findFixedParent never return a primitive).
func callFunctionOnNode(functionDeclaration string, objectID string, out *string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		remote, err := callFunctionOnObject(ctx, functionDeclaration, objectID)
		if err != nil {
			return err
		}
		*out = string(remote.ObjectID)
		return nil
	})
}

// evaluateDefinition loads a self-referential function declaration
// into the page's JS context via a bare runtime.Evaluate, the way the
// prototype pre-registers `isVisible` before invoking it recursively
// through CallFunctionOn.
func evaluateDefinition(ctx context.Context, expression string) error {
	return chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, exc, err := runtime.Evaluate(expression).Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return fmt.Errorf("detector: exception defining script: %s", exc.Text)
		}
		return nil
	}))
}

// evaluateExpression runs a bare expression and returns its RemoteObject.
func evaluateExpression(ctx context.Context, expression string) (*runtime.RemoteObject, error) {
	var remote *runtime.RemoteObject
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, exc, err := runtime.Evaluate(expression).Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return fmt.Errorf("detector: exception evaluating expression: %s", exc.Text)
		}
		remote = obj
		return nil
	}))
	return remote, err
}
