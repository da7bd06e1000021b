// Package sanitize cleans user-supplied text before it is stored.
package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strict = bluemonday.StrictPolicy()
	ugc    = bluemonday.UGCPolicy()
)

// Text strips all markup and surrounding whitespace. Used for titles, tags
// and notes.
func Text(s string) string {
	return strings.TrimSpace(strict.Sanitize(s))
}

// RichText keeps safe formatting markup and drops scripts, handlers and the like.
func RichText(s string) string {
	return strings.TrimSpace(ugc.Sanitize(s))
}
