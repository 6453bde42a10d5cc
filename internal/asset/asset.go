// Package asset fingerprints layer source directories.
//
// The fingerprint changes whenever a packaged file or the packaging recipe
// changes, and is used as the object key of the uploaded bundle.
package asset

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Fingerprint hashes the regular files under root whose relative path matches
// none of excludes. Salt is mixed in first so two recipes over the same
// directory hash differently.
func Fingerprint(root string, excludes []string, salt string) (string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return "", fmt.Errorf("asset source %s: %w", root, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("asset source %s: not a directory", root)
	}

	files, err := Files(root, excludes)
	if err != nil {
		return "", err
	}

	h := sha256.New()
	writeField(h, salt)
	for _, rel := range files {
		writeField(h, rel)
		if err := hashFile(h, filepath.Join(root, filepath.FromSlash(rel))); err != nil {
			return "", err
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Files lists the slash-separated relative paths of the files Fingerprint
// would hash, sorted.
func Files(root string, excludes []string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if Excluded(rel, excludes) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking asset source %s: %w", root, err)
	}

	sort.Strings(files)
	return files, nil
}

// Excluded reports whether rel, or any directory above it, matches one of the
// patterns. Matching follows the CDK glob ignore mode: a pattern without a
// slash matches the base name at any depth, a pattern with a slash is anchored
// at the source root, and "**" crosses directories.
func Excluded(rel string, patterns []string) bool {
	for p := rel; p != "." && p != "/" && p != ""; p = path.Dir(p) {
		for _, pattern := range patterns {
			target := p
			if !strings.Contains(pattern, "/") {
				target = path.Base(p)
			}
			if ok, _ := doublestar.Match(pattern, target); ok {
				return true
			}
		}
	}
	return false
}

func hashFile(h io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	_, _ = h.Write([]byte{0})
	return nil
}

func writeField(h io.Writer, s string) {
	_, _ = io.WriteString(h, s)
	_, _ = h.Write([]byte{0})
}
