// Package model holds the per-page record produced by a crawl and its
// constituent data types, per spec.md §3.
package model

import (
	"fmt"
	"net/url"
	"sync"
)

// RequestRecord is one observed outgoing request.
type RequestRecord struct {
	URL string
}

// ResponseRecord is one observed response.
type ResponseRecord struct {
	URL      string
	Status   int
	MimeType string
	Headers  map[string]string
}

// Cookie mirrors the fields CDP's Network.getAllCookies returns.
type Cookie struct {
	Name     string
	Domain   string
	Path     string
	Value    string
	Expires  float64
	HTTPOnly bool
	Secure   bool
	SameSite string
}

// screenshotEntry preserves insertion order alongside the label→bytes map.
type screenshotEntry struct {
	Label string
	Data  []byte
}

// PageResult is the sole sink for everything learned about one page.
// It is safe for concurrent use: the owning worker goroutine mutates
// outcome/semantic fields while CDP event callbacks append to
// Requests/Responses from a separate goroutine (spec.md §5).
type PageResult struct {
	mu sync.Mutex

	Rank     int
	URL      string
	Hostname string

	failed       bool
	failedReason string
	failedCause  error

	skipped       bool
	skippedReason string

	stoppedWaiting       bool
	stoppedWaitingReason string

	requests  []RequestRecord
	responses []ResponseRecord
	cookies   map[string][]Cookie
	shots     []screenshotEntry

	language   string
	cmpDefined bool
}

// New creates a PageResult shell for a ranked URL. If the URL fails to
// parse, the page is marked failed immediately and Hostname stays
// empty, per spec.md §3's invariant ("hostname is non-null iff url
// parses; otherwise the page is marked failed before opening a tab").
func New(rank int, rawURL string) *PageResult {
	pr := &PageResult{
		Rank:    rank,
		URL:     rawURL,
		cookies: make(map[string][]Cookie),
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		pr.SetFailed(fmt.Sprintf("invalid url `%s`", rawURL), err)
		return pr
	}
	pr.Hostname = u.Hostname()
	return pr
}

// SetFailed marks the page as failed. Safe to call more than once;
// the first call wins, matching the prototype's terminal semantics.
func (p *PageResult) SetFailed(reason string, cause error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failed {
		return
	}
	p.failed = true
	p.failedReason = reason
	p.failedCause = cause
}

// SetSkipped marks the page as skipped (e.g. unsupported language).
func (p *PageResult) SetSkipped(reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.skipped {
		return
	}
	p.skipped = true
	p.skippedReason = reason
}

// SetStoppedWaiting records that the load-wait ceiling was hit.
// Detection still proceeds afterward, so this never forecloses later
// writes the way SetFailed/SetSkipped logically should.
func (p *PageResult) SetStoppedWaiting(reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stoppedWaiting = true
	p.stoppedWaitingReason = reason
}

// Failed reports whether the page is in a terminal failed state.
func (p *PageResult) Failed() (bool, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failed, p.failedReason, p.failedCause
}

// Skipped reports whether the page was skipped.
func (p *PageResult) Skipped() (bool, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.skipped, p.skippedReason
}

// StoppedWaiting reports whether the load-wait ceiling was hit.
func (p *PageResult) StoppedWaiting() (bool, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stoppedWaiting, p.stoppedWaitingReason
}

// AddRequest appends one observed outgoing request, in order.
func (p *PageResult) AddRequest(reqURL string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, RequestRecord{URL: reqURL})
}

// AddResponse appends one observed response, in order.
func (p *PageResult) AddResponse(reqURL string, status int, mimeType string, headers map[string]string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = append(p.responses, ResponseRecord{
		URL:      reqURL,
		Status:   status,
		MimeType: mimeType,
		Headers:  headers,
	})
}

// Requests returns a copy of the recorded requests, in order.
func (p *PageResult) Requests() []RequestRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]RequestRecord, len(p.requests))
	copy(out, p.requests)
	return out
}

// Responses returns a copy of the recorded responses, in order.
func (p *PageResult) Responses() []ResponseRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ResponseRecord, len(p.responses))
	copy(out, p.responses)
	return out
}

// SetCookies stores the cookie jar under a label (e.g. "all").
func (p *PageResult) SetCookies(label string, cookies []Cookie) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cookies[label] = cookies
}

// Cookies returns the cookies stored under a label.
func (p *PageResult) Cookies(label string) []Cookie {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cookies[label]
}

// AddScreenshot stores PNG bytes under a label, preserving insertion
// order (spec.md §3: "insertion order preserved; label encodes
// strategy + index").
func (p *PageResult) AddScreenshot(label string, png []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shots = append(p.shots, screenshotEntry{Label: label, Data: png})
}

// Screenshots returns labels in insertion order alongside their bytes.
func (p *PageResult) Screenshots() []struct {
	Label string
	Data  []byte
} {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]struct {
		Label string
		Data  []byte
	}, len(p.shots))
	for i, e := range p.shots {
		out[i] = struct {
			Label string
			Data  []byte
		}{e.Label, e.Data}
	}
	return out
}

// SetLanguage stores the detected ISO language code.
func (p *PageResult) SetLanguage(lang string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.language = lang
}

// Language returns the detected ISO language code, or "" if unset.
func (p *PageResult) Language() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.language
}

// SetCMPDefined records whether window.__cmp is defined.
func (p *PageResult) SetCMPDefined(defined bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cmpDefined = defined
}

// CMPDefined reports whether window.__cmp was found on the page.
func (p *PageResult) CMPDefined() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cmpDefined
}

// Summary renders the one-line outcome CrawlController prints per
// page, matching spec.md §4.5: "rank, URL, and whichever of
// stoppedWaiting / failed / skipped applies".
func (p *PageResult) Summary() string {
	line := fmt.Sprintf("#%d: %s", p.Rank, p.URL)
	if sw, reason := p.StoppedWaiting(); sw {
		line += fmt.Sprintf("\n-> stopped waiting for %s", reason)
	}
	if f, reason, _ := p.Failed(); f {
		line += fmt.Sprintf("\n-> failed: %s", reason)
	}
	if sk, reason := p.Skipped(); sk {
		line += fmt.Sprintf("\n-> skipped: %s", reason)
	}
	return line
}
