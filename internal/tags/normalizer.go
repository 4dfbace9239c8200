// Package tags converts between the free-text tag field on the post form
// and the canonical tag rows in storage.
package tags

import (
	"strings"

	"github.com/mwielgus/scribe/internal/models"
)

// LookupFunc resolves a lowercased tag title to an already-persisted tag.
// It is supplied by the storage layer and only sees saved rows.
type LookupFunc func(title string) (*models.Tag, bool)

// Serialize joins the tag titles with ", " in input order. An empty list
// yields an empty string.
func Serialize(ts []models.Tag) string {
	if len(ts) == 0 {
		return ""
	}
	titles := make([]string, len(ts))
	for i, t := range ts {
		titles[i] = t.Title
	}
	return strings.Join(titles, ", ")
}

// Parse splits text on commas, trims each segment and drops empty ones.
// Each remaining segment is matched case-insensitively against persisted
// titles via lookup; a hit reuses the stored tag, a miss yields a new
// unsaved Tag keeping the segment's original casing.
//
// lookup never sees tags constructed earlier in the same call, so two
// differently-cased duplicates in one input (e.g. "Go, go") each produce
// a fresh Tag and collide on the title uniqueness constraint when saved.
// That matches the behavior of the form layer this replaces; callers must
// treat the constraint error as a validation failure.
func Parse(text string, lookup LookupFunc) []models.Tag {
	segments := strings.Split(text, ",")
	out := make([]models.Tag, 0, len(segments))

	for _, seg := range segments {
		title := strings.TrimSpace(seg)
		if title == "" {
			continue
		}
		if existing, ok := lookup(strings.ToLower(title)); ok {
			out = append(out, *existing)
			continue
		}
		out = append(out, models.Tag{Title: title})
	}
	return out
}
