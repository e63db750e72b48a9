package detector

import (
	"testing"

	"go.uber.org/zap"

	"github.com/strobi/cookie-notice-scanner/internal/model"
)

type fakeLanguageOracle struct {
	code string
	ok   bool
}

func (f fakeLanguageOracle) Detect(text string) (string, bool) {
	return f.code, f.ok
}

func TestProbeLanguage_UnsupportedLanguageSkips(t *testing.T) {
	d := &Detector{lang: fakeLanguageOracle{code: "ja", ok: true}, log: zap.NewNop()}
	pr := model.New(1, "https://example.com")

	// probeLanguage itself makes a CDP call to read body text, which
	// this test can't perform without a live tab; exercise the
	// post-detect decision directly instead.
	pr.SetLanguage("ja")
	if SupportedLanguages["ja"] {
		t.Fatalf("expected japanese to be unsupported")
	}
	pr.SetSkipped("unimplemented language `ja`")

	skipped, reason := pr.Skipped()
	if !skipped {
		t.Fatalf("expected page to be marked skipped")
	}
	if reason != "unimplemented language `ja`" {
		t.Fatalf("unexpected skip reason: %q", reason)
	}
}

func TestSupportedLanguages(t *testing.T) {
	if !SupportedLanguages["en"] || !SupportedLanguages["de"] {
		t.Fatalf("expected en and de to be supported")
	}
	if SupportedLanguages["fr"] {
		t.Fatalf("expected fr to be unsupported")
	}
}

func TestFilterVisible_RulesCandidatesNeverFiltered(t *testing.T) {
	// Strategy A (rules) candidates bypass the visibility predicate
	// entirely (spec.md §4.3 step 7): filterVisible appends them before
	// it would call isNodeVisible. filterVisible itself needs a live tab
	// (it first defines the isVisible script), so this test does not
	// call it; it only checks that the fixture below holds strategyRules
	// entries exclusively.
	all := []candidate{
		{strategy: strategyRules, node: 1},
		{strategy: strategyRules, node: 2},
	}
	for _, c := range all {
		if c.strategy != strategyRules {
			t.Fatalf("test setup invariant broken")
		}
	}
}

func TestStrategyLabels(t *testing.T) {
	cases := []struct {
		strategy strategyName
		want     string
	}{
		{strategyRules, "rules"},
		{strategyFixedParent, "fixed-parent"},
		{strategyFullWidthParent, "full-width-parent"},
	}
	for _, c := range cases {
		if string(c.strategy) != c.want {
			t.Fatalf("strategy label mismatch: got %q want %q", c.strategy, c.want)
		}
	}
}

func TestInlineElements_ScriptTagIsInline(t *testing.T) {
	// script is part of the static inline tag list; text-seed hits on
	// <script> elements never reach promotion, since textSeedSearch
	// drops script/style hits first.
	if !inlineElements["script"] {
		t.Fatalf("expected script to be in the inline short-circuit list")
	}
	if inlineElements["div"] {
		t.Fatalf("div should not be treated as inline")
	}
}
