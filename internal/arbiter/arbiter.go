// Package arbiter serializes access to the single foreground tab and
// to tab creation across many concurrent crawl workers.
package arbiter

import "sync"

// ViewportArbiter is the triple lock of spec.md §5/§9: L serializes
// whole foreground sessions end-to-end, N is the short-lived "I am
// next" baton that lets a tab-creation request cut in line ahead of
// a queued foreground session, and M is the actual resource mutex
// guarding the one real browser window both kinds of access share.
//
// Fields are exported and the zero value is ready to use, matching
// spec.md's design note that this is plain state passed explicitly to
// every worker, never a package global.
type ViewportArbiter struct {
	L sync.Mutex
	M sync.Mutex
	N sync.Mutex
}

// EnterForeground blocks until the caller holds exclusive use of the
// foreground tab — the full sequence a detection pass or screenshot
// needs — and returns a release func. Holding L for the whole
// duration keeps other foreground sessions out; briefly taking N
// before M lets a pending EnterTabCreate jump the queue instead of
// waiting behind whichever foreground session is already serialized
// on L.
func (v *ViewportArbiter) EnterForeground() func() {
	v.L.Lock()
	v.N.Lock()
	v.M.Lock()
	v.N.Unlock()
	return func() {
		v.M.Unlock()
		v.L.Unlock()
	}
}

// EnterTabCreate blocks until the caller holds the resource mutex for
// just long enough to create or close a tab, without waiting behind a
// queued foreground session the way a second EnterForeground caller
// would. Only M is held across the caller's critical section; L is
// never touched here, which is what lets tab creation cut ahead.
func (v *ViewportArbiter) EnterTabCreate() func() {
	v.N.Lock()
	v.M.Lock()
	v.N.Unlock()
	return func() {
		v.M.Unlock()
	}
}
