package detector

// These scripts are evaluated in the page's JavaScript context via
// runtime.CallFunctionOn against a resolved RemoteObjectID. Their
// bodies are carried over unchanged from the detection logic this
// package ports, down to variable names and arithmetic, since the
// geometry thresholds they encode are load-bearing.

// scriptFindClosestBlockElement walks up from an inline element to
// its nearest block ancestor, returning the element itself if it is
// already a block element.
const scriptFindClosestBlockElement = `
function findClosestBlockElement(elem) {
    function isInlineElement(elem) {
        const style = getComputedStyle(elem);
        return style.display == 'inline';
    }

    if (!elem) elem = this;
    while(elem && elem !== document && isInlineElement(elem)) {
        elem = elem.parentNode;
    }
    return elem;
}`

// scriptFindFixedParent walks up the tree looking for a
// position:fixed ancestor, stopping at the <html> element if none is
// found.
const scriptFindFixedParent = `
function findFixedParent(elem) {
    if (!elem) elem = this;
    while(elem && elem.parentNode !== document) {
        let style = getComputedStyle(elem);
        if (style.position === 'fixed') {
            return elem;
        }
        elem = elem.parentNode;
    }
    return elem; // html node
}`

// scriptFindFullWidthParent walks up the tree as long as each parent
// is not significantly higher than the current element (accounting
// for its own padding/border/margin), then reports whether the
// resulting element spans at least the full width of the document
// body.
const scriptFindFullWidthParent = `
function findFullWidthParent(elem) {
    function getWidth(elem) {
        const style = getComputedStyle(elem);
        if (style.boxSizing == 'content-box') {
            return parseInt(style.width) +
                parseInt(style.paddingLeft) + parseInt(style.paddingRight) +
                parseInt(style.borderLeftWidth) + parseInt(style.borderRightWidth) +
                parseInt(style.marginLeft) + parseInt(style.marginRight);
        } else {
            return parseInt(style.width) + parseInt(style.marginLeft) + parseInt(style.marginRight);
        }
    }

    function getHeight(elem) {
        const style = getComputedStyle(elem);
        if (style.boxSizing == 'content-box') {
            return parseInt(style.height) +
                parseInt(style.paddingTop) + parseInt(style.paddingBottom) +
                parseInt(style.borderTopWidth) + parseInt(style.borderBottomWidth) +
                parseInt(style.marginTop) + parseInt(style.marginBottom);
        } else {
            return parseInt(style.height) + parseInt(style.marginTop) + parseInt(style.marginBottom);
        }
    }

    function getHorizontalSpacing(elem) {
        const style = getComputedStyle(elem);
        return parseInt(style.paddingLeft) + parseInt(style.paddingRight) +
            parseInt(style.borderLeftWidth) + parseInt(style.borderRightWidth) +
            parseInt(style.marginLeft) + parseInt(style.marginRight);
    }

    function getVerticalSpacing(elem) {
        const style = getComputedStyle(elem);
        return parseInt(style.paddingTop) + parseInt(style.paddingBottom) +
            parseInt(style.borderTopWidth) + parseInt(style.borderBottomWidth) +
            parseInt(style.marginTop) + parseInt(style.marginBottom);
    }

    function getHeightDiff(outerElem, innerElem) {
        return getHeight(outerElem) - getHeight(innerElem);
    }

    function isParentHigherThanItsSpacing(outerElem, innerElem) {
        let allowedIncrease = Math.max(0.25*getHeight(innerElem), 20);
        return getHeightDiff(outerElem, innerElem) > (getVerticalSpacing(outerElem) + allowedIncrease);
    }

    if (!elem) elem = this;
    while(elem && elem !== document) {
        parent = elem.parentNode;
        if (isParentHigherThanItsSpacing(parent, elem)) {
            break;
        }
        elem = parent;
    }

    if (parseInt(getComputedStyle(document.body).width) <= getWidth(elem)) {
        return elem;
    } else {
        return false;
    }
}`

// scriptIsVisible implements the visibility predicate: hard
// invisibility rules short-circuit to false, near-zero-size elements
// fall through to a hit-test and then a recursive check of their
// children, since a zero-size fixed container with visible children
// still counts as visible.
const scriptIsVisible = `
function isVisible(elem) {
    if (!elem) elem = this;
    let visible = true;
    if (!(elem instanceof Element)) return false;
    const style = getComputedStyle(elem);

    if (style.display === 'none') return false;
    if (style.opacity < 0.1) return false;
    if (style.visibility !== 'visible') return false;

    if (elem.offsetWidth + elem.offsetHeight + elem.getBoundingClientRect().height +
        elem.getBoundingClientRect().width === 0) {
        visible = false;
    }
    if (elem.offsetWidth === 0 || elem.offsetHeight === 0) {
        visible = false;
    }
    const elemCenter = {
        x: elem.getBoundingClientRect().left + elem.offsetWidth / 2,
        y: elem.getBoundingClientRect().top + elem.offsetHeight / 2
    };
    if (elemCenter.x < 0) visible = false;
    if (elemCenter.x > (document.documentElement.clientWidth || window.innerWidth)) visible = false;
    if (elemCenter.y < 0) visible = false;
    if (elemCenter.y > (document.documentElement.clientHeight || window.innerHeight)) visible = false;

    if (visible === true) {
        let pointContainer = document.elementFromPoint(elemCenter.x, elemCenter.y);
        do {
            if (pointContainer === elem) return elem;
            if (!pointContainer) break;
        } while (pointContainer = pointContainer.parentNode);
    }

    if (!visible) {
        let childrenCount = elem.childNodes.length;
        for (var i = 0; i < childrenCount; i++) {
            let isChildVisible = isVisible(elem.childNodes[i]);
            if (isChildVisible) {
                return isChildVisible;
            }
        }
    }

    return false;
}`

// scriptInnerText reads the page's visible text for language detection.
const scriptInnerText = `document.body.innerText`

// scriptCMPDefined checks for the presence of a consent-management
// platform global.
const scriptCMPDefined = `typeof window.__cmp !== 'undefined'`

// xpathTextSeedTemplate is the case-insensitive text search used to discover
// candidate notice elements: any text node under <body> containing
// the search string, promoted to its parent element (a text node
// itself cannot be highlighted or measured).
const xpathTextSeedTemplate = `//body//*/text()[contains(translate(., 'ABCDEFGHIJKLMNOPQRSTUVWXYZ', 'abcdefghijklmnopqrstuvwxyz'), '%s')]/parent::*`
