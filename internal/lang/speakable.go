package lang

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

var tamilDigits = [10]string{
	"பூஜ்யம்", "ஒன்று", "இரண்டு", "மூன்று", "நான்கு",
	"ஐந்து", "ஆறு", "ஏழு", "எட்டு", "ஒன்பது",
}

// Speakable prepares text for a synthesizer: NFC normalization, collapsed
// whitespace and, for Tamil, ASCII digits spelled out one word per digit.
// Tamil voices commonly read Latin digits in English otherwise.
func Speakable(text string, l Language) string {
	text = norm.NFC.String(text)
	if l == Tamil {
		text = spellDigits(text, tamilDigits)
	}
	return strings.Join(strings.Fields(text), " ")
}

func spellDigits(text string, words [10]string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r >= '0' && r <= '9' {
			b.WriteByte(' ')
			b.WriteString(words[r-'0'])
			b.WriteByte(' ')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
