package lang

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Language
		wantErr bool
	}{
		{"en", English, false},
		{"ta", Tamil, false},
		{"ta-IN", Tamil, false},
		{"en_US", English, false},
		{"HI", Hindi, false},
		{"ml-IN", Malayalam, false},
		{"fr", "", true},
		{"", "", true},
		{"not a tag", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupported) {
					t.Errorf("Parse(%q) error = %v, want ErrUnsupported", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLanguageProfile(t *testing.T) {
	tests := []struct {
		lang    Language
		tag     string
		primary string
		label   string
		rate    float64
	}{
		{English, "en-IN", "en", "Step 3", 1.0},
		{Tamil, "ta-IN", "ta", "படி 3", 0.85},
		{Hindi, "hi-IN", "hi", "चरण 3", 1.0},
		{Malayalam, "ml-IN", "ml", "ഘട്ടം 3", 1.0},
	}

	for _, tt := range tests {
		t.Run(string(tt.lang), func(t *testing.T) {
			if got := tt.lang.Tag(); got != tt.tag {
				t.Errorf("Tag() = %q, want %q", got, tt.tag)
			}
			if got := tt.lang.Primary(); got != tt.primary {
				t.Errorf("Primary() = %q, want %q", got, tt.primary)
			}
			if got := tt.lang.StepLabel(3); got != tt.label {
				t.Errorf("StepLabel(3) = %q, want %q", got, tt.label)
			}
			if got := tt.lang.Rate(); got != tt.rate {
				t.Errorf("Rate() = %v, want %v", got, tt.rate)
			}
		})
	}
}

func TestNext(t *testing.T) {
	seen := map[Language]bool{}
	l := English
	for range All {
		seen[l] = true
		l = l.Next()
	}
	if l != English {
		t.Errorf("Next() did not cycle back to English, got %v", l)
	}
	if len(seen) != len(All) {
		t.Errorf("Next() visited %d languages, want %d", len(seen), len(All))
	}
}

func TestPrimarySubtag(t *testing.T) {
	tests := map[string]string{
		"ta-IN": "ta",
		"en_US": "en",
		"EN":    "en",
		" ml ":  "ml",
		"":      "",
	}
	for in, want := range tests {
		if got := PrimarySubtag(in); got != want {
			t.Errorf("PrimarySubtag(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSpeakable(t *testing.T) {
	tests := []struct {
		name string
		text string
		lang Language
		want string
	}{
		{"collapses whitespace", "Add   salt\n\tand stir", English, "Add salt and stir"},
		{"english digits untouched", "Boil 2 cups", English, "Boil 2 cups"},
		{"tamil digits spelled", "2 கப்", Tamil, "இரண்டு கப்"},
		{"tamil multi digit", "10 நிமிடம்", Tamil, "ஒன்று பூஜ்யம் நிமிடம்"},
		{"empty", "   ", Tamil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Speakable(tt.text, tt.lang); got != tt.want {
				t.Errorf("Speakable() = %q, want %q", got, tt.want)
			}
		})
	}
}
