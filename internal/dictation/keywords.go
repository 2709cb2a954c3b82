package dictation

import (
	"strings"
	"unicode"
)

// Ingredient words in Tamil, Malayalam and Hindi, matched anywhere in the
// text so inflected forms such as தக்காளியை still match.
var toEnglish = strings.NewReplacer(
	"தக்காளி", "tomato",
	"முட்டை", "egg",
	"வெங்காயம்", "onion",
	"உருளைக்கிழங்கு", "potato",
	"കോഴി", "chicken",
	"മുട്ട", "egg",
	"प्याज", "onion",
	"अंडा", "egg",
	"आलू", "potato",
)

// ToEnglishKeywords lowercases text and replaces known ingredient words with
// their English names, so a dictated query can be searched in English.
func ToEnglishKeywords(text string) string {
	return toEnglish.Replace(strings.ToLower(text))
}

var tamilPhonetic = map[string]string{
	"tomato":  "தக்காளி",
	"onion":   "வெங்காயம்",
	"potato":  "உருளைக்கிழங்கு",
	"egg":     "முட்டை",
	"chicken": "கோழி",
	"oil":     "எண்ணெய்",
	"salt":    "உப்பு",
	"rice":    "அரிசி",
	"water":   "தண்ணீர்",
	"curry":   "கறி",
	"fry":     "வறுக்கவும்",
	"boil":    "காய்ச்சவும்",
}

// ToTamilPhonetic lowercases text and replaces whole English cooking words
// with their Tamil equivalents. Words inside longer words ("price") are left
// alone.
func ToTamilPhonetic(text string) string {
	text = strings.ToLower(text)

	var b strings.Builder
	b.Grow(len(text))
	start := -1
	flush := func(end int) {
		word := text[start:end]
		if ta, ok := tamilPhonetic[word]; ok {
			word = ta
		}
		b.WriteString(word)
		start = -1
	}
	for i, r := range text {
		if unicode.IsLetter(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			flush(i)
		}
		b.WriteRune(r)
	}
	if start >= 0 {
		flush(len(text))
	}
	return b.String()
}
