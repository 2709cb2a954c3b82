package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRemoveFrontmatter(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"none", "Boil water\n", "Boil water\n"},
		{"yaml", "---\ntitle: Rice\n---\nBoil water\n", "Boil water\n"},
		{"not at start", "Boil water\n---\nx\n---\n", "Boil water\n---\nx\n---\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := string(RemoveFrontmatter([]byte(tc.in))); got != tc.want {
				t.Errorf("RemoveFrontmatter() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	t.Setenv("NARRATOR_TEST_DIR", "voices")

	if got, want := ExpandPath("~/narrator/$NARRATOR_TEST_DIR"), filepath.Join(home, "narrator", "voices"); got != want {
		t.Errorf("ExpandPath() = %q, want %q", got, want)
	}
}

func TestLanguageVariant(t *testing.T) {
	tests := map[string]string{
		"recipe.md":        "recipe.ta.md",
		"/tmp/steps.txt":   "/tmp/steps.ta.txt",
		"dir/instructions": "dir/instructions.ta",
	}
	for in, want := range tests {
		if got := LanguageVariant(in, "ta"); got != want {
			t.Errorf("LanguageVariant(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsMarkdownFile(t *testing.T) {
	if !IsMarkdownFile("README.MD") || IsMarkdownFile("steps.txt") {
		t.Error("IsMarkdownFile() misclassified")
	}
}
