// Package ident normalizes Notion page identifiers and URLs.
// Page IDs appear in the wild as 32 hex characters, as dashed UUIDs, and
// embedded in share URLs; the canonical form everywhere in this tool is the
// dashed lowercase UUID.
package ident

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var idPattern = regexp.MustCompile(`(?i)([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}|[0-9a-f]{32})`)

// Normalize converts a 32-hex or dashed page ID to canonical dashed
// lowercase form.
func Normalize(id string) (string, error) {
	id = strings.TrimSpace(id)
	compact := strings.ToLower(strings.ReplaceAll(id, "-", ""))
	if len(compact) != 32 {
		return "", fmt.Errorf("invalid page ID %q", id)
	}
	u, err := uuid.Parse(compact)
	if err != nil {
		return "", fmt.Errorf("invalid page ID %q: %w", id, err)
	}
	return u.String(), nil
}

// Compact returns the 32-hex form of a page ID, as used in share URLs.
func Compact(id string) string {
	return strings.ToLower(strings.ReplaceAll(id, "-", ""))
}

// FromURL extracts the first page ID found anywhere in the given URL or
// string and returns it in canonical dashed form. Returns an error when no
// ID is present.
func FromURL(url string) (string, error) {
	m := idPattern.FindString(url)
	if m == "" {
		return "", fmt.Errorf("no page ID found in %q", url)
	}
	return Normalize(m)
}

// PageURL builds the canonical share URL for a page ID.
func PageURL(id string) string {
	return "https://www.notion.so/" + Compact(id)
}

// IsValid reports whether id is a well-formed page ID in either form.
func IsValid(id string) bool {
	_, err := Normalize(id)
	return err == nil
}

// RelPath computes the slash-separated path of target relative to root.
// Notion sync keys are always forward-slash paths regardless of platform.
func RelPath(root, target string) (string, error) {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return "", fmt.Errorf("computing relative path for %s: %w", target, err)
	}
	return filepath.ToSlash(rel), nil
}
