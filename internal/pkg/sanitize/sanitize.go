// Package sanitize strips markup from user-supplied labels before they are
// relayed to other clients.
package sanitize

import (
	"html"
	"path"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// maxPasses bounds how many layers of entity encoding Text peels off.
const maxPasses = 8

// Text removes all HTML from s and returns plain, trimmed text.
// Entities are decoded so "Tom & Jerry" survives unchanged, and markup that
// only appears after decoding is stripped as well.
func Text(s string) string {
	for range maxPasses {
		next := html.UnescapeString(strictPolicy.Sanitize(s))
		if next == s {
			return strings.TrimSpace(s)
		}
		s = next
	}

	// Still changing: keep the escaped form so no markup can survive.
	return strings.TrimSpace(strictPolicy.Sanitize(s))
}

// FileName reduces a client-supplied file name to its last path element
// without markup. Both slash styles are treated as separators.
func FileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	base := path.Base(name)
	if base == "." || base == "/" {
		return ""
	}
	return Text(base)
}
