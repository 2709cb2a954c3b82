package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrator/internal/lang"
	"github.com/dgnsrekt/narrator/utils"
)

// document is the content handed to the narrator. A file may have
// translations next to it, named with a language suffix (recipe.ta.md);
// languages without one narrate the file itself.
type document struct {
	title    string
	path     string
	markdown bool
	text     string
}

func openDocument(path string) (*document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("unable to get absolute path: %w", err)
	}
	st, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("unable to open file: %w", err)
	}
	if st.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return &document{
		title:    filepath.Base(abs),
		path:     abs,
		markdown: utils.IsMarkdownFile(abs),
	}, nil
}

func readDocument(r io.Reader) (*document, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to read from reader: %w", err)
	}
	return &document{title: "stdin", text: string(utils.RemoveFrontmatter(b))}, nil
}

// content implements ui.ContentFunc. Files are read on every call so edits
// show up on the next language change.
func (d *document) content(_ context.Context, l lang.Language) (string, error) {
	if d.path == "" {
		return d.text, nil
	}

	path := utils.LanguageVariant(d.path, string(l))
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		path = d.path
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("unable to read %s: %w", filepath.Base(path), err)
	}
	log.Debug("content loaded", "path", path, "language", l)
	return string(utils.RemoveFrontmatter(b)), nil
}
