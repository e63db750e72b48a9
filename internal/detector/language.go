package detector

import (
	"github.com/pemistahl/lingua-go"
)

// LanguageOracle classifies page text into an ISO 639-1 language
// code. It's an interface so tests can inject a fake without paying
// for lingua-go's language-model data.
type LanguageOracle interface {
	Detect(text string) (code string, ok bool)
}

// linguaOracle wraps github.com/pemistahl/lingua-go, built over every
// language lingua-go knows rather than only the two this crawler acts
// on (English, German), so a genuinely different language is
// classified correctly rather than forced into one of the two
// supported codes.
type linguaOracle struct {
	detector lingua.LanguageDetector
}

// NewLinguaOracle builds a LanguageOracle backed by lingua-go.
func NewLinguaOracle() LanguageOracle {
	detector := lingua.NewLanguageDetectorBuilder().
		FromAllLanguages().
		WithPreloadedLanguageModels().
		Build()
	return &linguaOracle{detector: detector}
}

func (o *linguaOracle) Detect(text string) (string, bool) {
	lang, exists := o.detector.DetectLanguageOf(text)
	if !exists {
		return "", false
	}
	return isoCode(lang), true
}

func isoCode(lang lingua.Language) string {
	iso := lang.IsoCode639_1()
	return iso.String()
}

// SupportedLanguages is the set of ISO 639-1 codes the detection
// pipeline actually implements behavior for.
var SupportedLanguages = map[string]bool{
	"en": true,
	"de": true,
}
