package extractor

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
)

// Lingua detects languages with lingua-go. The detector loads its models on
// first use.
type Lingua struct {
	once     sync.Once
	detector lingua.LanguageDetector
	build    func() lingua.LanguageDetector
}

// NewLingua returns a detector over all languages lingua knows.
func NewLingua() *Lingua {
	return &Lingua{build: func() lingua.LanguageDetector {
		return lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			WithMinimumRelativeDistance(0.1).
			Build()
	}}
}

// NewLinguaFor restricts detection to langs, which is much cheaper.
func NewLinguaFor(langs ...lingua.Language) *Lingua {
	return &Lingua{build: func() lingua.LanguageDetector {
		return lingua.NewLanguageDetectorBuilder().FromLanguages(langs...).Build()
	}}
}

// Detect returns the lowercase ISO 639-1 code of text's language.
func (l *Lingua) Detect(text string) (string, bool) {
	l.once.Do(func() { l.detector = l.build() })
	lang, ok := l.detector.DetectLanguageOf(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), true
}
