// Package lang describes the narration languages: their canonical BCP 47
// tags, spoken step labels, default speech rates and text normalization.
package lang

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Language is a two-letter narration language code.
type Language string

// Supported languages.
const (
	English   Language = "en"
	Tamil     Language = "ta"
	Hindi     Language = "hi"
	Malayalam Language = "ml"
)

// ErrUnsupported is returned by Parse for languages outside the supported set.
var ErrUnsupported = errors.New("unsupported language")

// All lists the supported languages in display order.
var All = []Language{English, Tamil, Hindi, Malayalam}

type profile struct {
	tag   string
	label string
	name  string
	rate  float64
}

// The audience is in India, so English resolves to the Indian regional tag.
var profiles = map[Language]profile{
	English:   {tag: "en-IN", label: "Step %d", name: "English", rate: 1.0},
	Tamil:     {tag: "ta-IN", label: "படி %d", name: "தமிழ்", rate: 0.85},
	Hindi:     {tag: "hi-IN", label: "चरण %d", name: "हिन्दी", rate: 1.0},
	Malayalam: {tag: "ml-IN", label: "ഘട്ടം %d", name: "മലയാളം", rate: 1.0},
}

// Parse accepts a bare code ("ta") or any BCP 47 tag ("ta-IN", "en_US") and
// returns the matching Language.
func Parse(s string) (Language, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrUnsupported)
	}
	tag, err := language.Parse(strings.ReplaceAll(s, "_", "-"))
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrUnsupported, s, err)
	}
	base, _ := tag.Base()
	l := Language(base.String())
	if _, ok := profiles[l]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupported, s)
	}
	return l, nil
}

// Valid reports whether l is a supported language.
func (l Language) Valid() bool {
	_, ok := profiles[l]
	return ok
}

// Tag returns the canonical BCP 47 tag, e.g. "ta-IN".
func (l Language) Tag() string {
	if p, ok := profiles[l]; ok {
		return p.tag
	}
	return string(l)
}

// Primary returns the primary subtag of the canonical tag.
func (l Language) Primary() string {
	return PrimarySubtag(l.Tag())
}

// StepLabel returns the spoken ordinal label for the 1-based step n.
func (l Language) StepLabel(n int) string {
	p, ok := profiles[l]
	if !ok {
		p = profiles[English]
	}
	return fmt.Sprintf(p.label, n)
}

// Rate is the default speech rate, 1.0 being the synthesizer's normal pace.
func (l Language) Rate() float64 {
	if p, ok := profiles[l]; ok {
		return p.rate
	}
	return 1.0
}

// Name is the language's own name for itself.
func (l Language) Name() string {
	if p, ok := profiles[l]; ok {
		return p.name
	}
	return string(l)
}

func (l Language) String() string {
	return string(l)
}

// Next cycles through All, used by the language toggle.
func (l Language) Next() Language {
	for i, c := range All {
		if c == l {
			return All[(i+1)%len(All)]
		}
	}
	return English
}

// NormalizeTag lowercases a tag and uses '-' as the subtag separator so
// platform spellings like "en_US" compare equal to "en-us".
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(tag), "_", "-"))
}

// PrimarySubtag returns the language part of a tag ("ta" for "ta-IN").
func PrimarySubtag(tag string) string {
	tag = NormalizeTag(tag)
	if i := strings.IndexByte(tag, '-'); i >= 0 {
		return tag[:i]
	}
	return tag
}
