package util

import (
	"net/url"
	"path"
	"strings"
	"unicode/utf8"
)

// Truncate cuts s to at most max runes.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}

	runes := []rune(s)
	return string(runes[:max])
}

// FilenameFromURL returns the last path segment of a media URL, or "media"
// when the URL has none.
func FilenameFromURL(rawURL string) string {
	const fallback = "media"

	u, err := url.Parse(rawURL)
	if err != nil {
		// Not a parseable URL, fall back to plain splitting
		trimmed := strings.SplitN(rawURL, "?", 2)[0]
		parts := strings.Split(trimmed, "/")
		if name := parts[len(parts)-1]; name != "" {
			return name
		}
		return fallback
	}

	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return fallback
	}

	return name
}

// JoinNonEmpty joins the non-empty elements of parts with sep.
func JoinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
