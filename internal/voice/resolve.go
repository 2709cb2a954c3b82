// Package voice selects a synthesis voice for a narration language and keeps
// the catalog of voices the platform currently offers.
package voice

import (
	"strings"

	"github.com/dgnsrekt/narrator/internal/lang"
)

// Candidate is one synthesis voice offered by a platform or remote engine.
type Candidate struct {
	ID      string `yaml:"id"`
	Tag     string `yaml:"tag"`
	Name    string `yaml:"name,omitempty"`
	Default bool   `yaml:"default,omitempty"`
}

func (c Candidate) String() string {
	if c.Name != "" {
		return c.Name + " (" + c.Tag + ")"
	}
	return c.ID + " (" + c.Tag + ")"
}

// Tier identifies which step of the fallback chain produced a match.
type Tier int

const (
	TierNone Tier = iota
	TierExact
	TierPrimary
	TierRegionalEnglish
	TierAnyEnglish
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierPrimary:
		return "primary-subtag"
	case TierRegionalEnglish:
		return "en-IN"
	case TierAnyEnglish:
		return "any-english"
	default:
		return "none"
	}
}

const regionalEnglish = "en-in"

// Resolve picks the best voice for l, or reports false when the caller should
// let the synthesizer use its own default.
func Resolve(l lang.Language, available []Candidate) (Candidate, bool) {
	c, tier := ResolveTier(l, available)
	return c, tier != TierNone
}

// ResolveTier is Resolve that also reports the matching tier. Tiers are
// tried in order and the first non-empty one wins; inside a tier a voice
// flagged Default beats the others, then input order decides.
func ResolveTier(l lang.Language, available []Candidate) (Candidate, Tier) {
	canonical := lang.NormalizeTag(l.Tag())
	primary := lang.PrimarySubtag(canonical)

	tiers := []struct {
		tier  Tier
		match func(tag string) bool
	}{
		{TierExact, func(tag string) bool { return tag == canonical }},
		{TierPrimary, func(tag string) bool { return lang.PrimarySubtag(tag) == primary }},
		{TierRegionalEnglish, func(tag string) bool { return l == lang.English && tag == regionalEnglish }},
		{TierAnyEnglish, func(tag string) bool { return strings.HasPrefix(tag, "en") }},
	}

	for _, t := range tiers {
		if c, ok := pick(available, t.match); ok {
			return c, t.tier
		}
	}
	return Candidate{}, TierNone
}

func pick(available []Candidate, match func(string) bool) (Candidate, bool) {
	var (
		first Candidate
		found bool
	)
	for _, c := range available {
		if !match(lang.NormalizeTag(c.Tag)) {
			continue
		}
		if c.Default {
			return c, true
		}
		if !found {
			first, found = c, true
		}
	}
	return first, found
}

// Find looks a voice up by ID.
func Find(id string, available []Candidate) (Candidate, bool) {
	if id == "" {
		return Candidate{}, false
	}
	for _, c := range available {
		if c.ID == id {
			return c, true
		}
	}
	return Candidate{}, false
}
