// Package artifact finds mail files on disk and loads them with their identity.
package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/roach88/swgmerchant/internal/mail"
)

// DefaultExtension is the mail file extension matched when none is configured.
const DefaultExtension = ".mail"

// ErrUnreadable marks an artifact that could not be opened or read.
var ErrUnreadable = errors.New("unreadable artifact")

// Options controls Locate.
type Options struct {
	// Extensions matched case-insensitively, with or without the leading dot.
	// Empty means DefaultExtension.
	Extensions []string
	// Flat disables descending into subdirectories.
	Flat bool
}

// Artifact is one loaded mail file.
type Artifact struct {
	Path    string // absolute
	MailID  string // first non-empty line, "" if none
	MTime   int64  // unix seconds
	Content string // decoded text, invalid UTF-8 dropped
}

// Locate resolves target into a sorted list of absolute artifact paths.
//
// A file with a matching extension yields itself. A directory yields every
// matching file below it (or directly in it when Flat is set). Anything else,
// including a missing path, yields an empty list and no error.
func Locate(target string, opts Options) ([]string, error) {
	abs, err := filepath.Abs(target)
	if err != nil {
		return nil, fmt.Errorf("locate %s: %w", target, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return []string{}, nil
	}

	exts := normalizeExtensions(opts.Extensions)
	if info.Mode().IsRegular() {
		if matches(abs, exts) {
			return []string{abs}, nil
		}
		return []string{}, nil
	}
	if !info.IsDir() {
		return []string{}, nil
	}

	var paths []string
	if opts.Flat {
		paths, err = listFlat(abs, exts)
	} else {
		paths, err = listRecursive(abs, exts)
	}
	if err != nil {
		return nil, fmt.Errorf("locate %s: %w", target, err)
	}
	sort.Strings(paths)
	return paths, nil
}

func listFlat(dir string, exts []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	paths := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if matches(p, exts) {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

func listRecursive(root string, exts []string) ([]string, error) {
	paths := []string{}
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			// Unreadable subtrees are skipped.
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if matches(p, exts) {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

func normalizeExtensions(exts []string) []string {
	if len(exts) == 0 {
		return []string{DefaultExtension}
	}
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	if len(out) == 0 {
		return []string{DefaultExtension}
	}
	return out
}

func matches(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// Load reads an artifact and extracts its identity.
// Errors wrap ErrUnreadable.
func Load(path string) (Artifact, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("%w: %s: %w", ErrUnreadable, path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("%w: %s: %w", ErrUnreadable, path, err)
	}
	content := strings.ToValidUTF8(string(data), "")
	return Artifact{
		Path:    path,
		MailID:  mail.MailID(content),
		MTime:   info.ModTime().Unix(),
		Content: content,
	}, nil
}
