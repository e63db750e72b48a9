package model

import (
	"errors"
	"testing"
)

func TestNew_ValidURL(t *testing.T) {
	pr := New(3, "https://example.com/path")
	if pr.Hostname != "example.com" {
		t.Errorf("Hostname = %q, want %q", pr.Hostname, "example.com")
	}
	if failed, _, _ := pr.Failed(); failed {
		t.Error("expected a valid URL to not be marked failed")
	}
	if pr.Rank != 3 {
		t.Errorf("Rank = %d, want 3", pr.Rank)
	}
}

func TestNew_InvalidURL(t *testing.T) {
	pr := New(1, "::not a url::")
	if pr.Hostname != "" {
		t.Errorf("Hostname = %q, want empty for invalid URL", pr.Hostname)
	}
	failed, reason, _ := pr.Failed()
	if !failed {
		t.Fatal("expected an unparseable URL to be marked failed")
	}
	if reason == "" {
		t.Error("expected a non-empty failure reason")
	}
}

func TestSetFailed_FirstWins(t *testing.T) {
	pr := New(1, "https://example.com")
	cause1 := errors.New("first")
	cause2 := errors.New("second")
	pr.SetFailed("timeout", cause1)
	pr.SetFailed("other", cause2)

	_, reason, cause := pr.Failed()
	if reason != "timeout" || cause != cause1 {
		t.Errorf("got reason=%q cause=%v, want first call to win", reason, cause)
	}
}

func TestRequestsResponses_OrderPreserved(t *testing.T) {
	pr := New(1, "https://example.com")
	pr.AddRequest("https://example.com/a")
	pr.AddRequest("https://example.com/b")
	pr.AddResponse("https://example.com/a", 200, "text/html", map[string]string{"x": "y"})

	reqs := pr.Requests()
	if len(reqs) != 2 || reqs[0].URL != "https://example.com/a" || reqs[1].URL != "https://example.com/b" {
		t.Errorf("unexpected request order: %+v", reqs)
	}
	resps := pr.Responses()
	if len(resps) != 1 || resps[0].Status != 200 {
		t.Errorf("unexpected responses: %+v", resps)
	}
}

func TestScreenshots_InsertionOrder(t *testing.T) {
	pr := New(1, "https://example.com")
	pr.AddScreenshot("rules-0", []byte("a"))
	pr.AddScreenshot("text-fixed-0", []byte("b"))
	pr.AddScreenshot("text-fixed-1", []byte("c"))

	shots := pr.Screenshots()
	if len(shots) != 3 {
		t.Fatalf("len(shots) = %d, want 3", len(shots))
	}
	wantLabels := []string{"rules-0", "text-fixed-0", "text-fixed-1"}
	for i, w := range wantLabels {
		if shots[i].Label != w {
			t.Errorf("shots[%d].Label = %q, want %q", i, shots[i].Label, w)
		}
	}
}

func TestCookies_ByLabel(t *testing.T) {
	pr := New(1, "https://example.com")
	pr.SetCookies("before", []Cookie{{Name: "a", Domain: "example.com"}})
	pr.SetCookies("after", []Cookie{{Name: "a"}, {Name: "b"}})

	if len(pr.Cookies("before")) != 1 {
		t.Error("expected one cookie in \"before\"")
	}
	if len(pr.Cookies("after")) != 2 {
		t.Error("expected two cookies in \"after\"")
	}
	if len(pr.Cookies("missing")) != 0 {
		t.Error("expected empty slice for unknown label")
	}
}

func TestSummary_CombinesOutcomeFlags(t *testing.T) {
	pr := New(7, "https://example.com")
	pr.SetStoppedWaiting("network idle")
	pr.SetSkipped("unsupported language `ja`")

	s := pr.Summary()
	if !contains(s, "#7: https://example.com") {
		t.Errorf("Summary() missing rank/url: %q", s)
	}
	if !contains(s, "stopped waiting") {
		t.Errorf("Summary() missing stoppedWaiting note: %q", s)
	}
	if !contains(s, "skipped") {
		t.Errorf("Summary() missing skipped note: %q", s)
	}
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && (func() bool {
		for i := 0; i+len(needle) <= len(haystack); i++ {
			if haystack[i:i+len(needle)] == needle {
				return true
			}
		}
		return false
	})()
}
