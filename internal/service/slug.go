package service

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/rs/xid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Slugify lowercases title, folds accented letters to ASCII and collapses
// every run of other characters into a single "-", trimmed at both ends.
// The result only contains [a-z0-9-].
//
//	"Sample Title"          → "sample-title"
//	"  How to: Go, fast!  " → "how-to-go-fast"
//	"Café Übung"            → "cafe-ubung"
func Slugify(title string) string {
	folded, _, err := transform.String(asciiFold(), strings.ToLower(title))
	if err != nil {
		folded = strings.ToLower(title)
	}

	var b strings.Builder
	b.Grow(len(folded))

	dash := false
	for _, r := range folded {
		if ('a' <= r && r <= 'z') || ('0' <= r && r <= '9') {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return b.String()
}

// asciiFold strips combining marks after canonical decomposition, so "é"
// becomes "e". Letters without an ASCII base (CJK, "ß") are left as is and
// dropped by Slugify. A Transformer is stateful, hence one per call.
func asciiFold() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// maxSlugAttempts bounds the numeric suffix search before falling back to
// a random suffix.
const maxSlugAttempts = 50

type slugChecker interface {
	SlugTaken(ctx context.Context, slug, excludeID string) (bool, error)
}

// uniqueSlug returns base, or base-2, base-3, … for the first candidate not
// owned by an article other than excludeID. The UNIQUE index on slug still
// guards against two requests racing for the same candidate.
func uniqueSlug(ctx context.Context, repo slugChecker, title, excludeID string) (string, error) {
	base := Slugify(title)
	if base == "" {
		base = "article"
	}

	for i := 1; i <= maxSlugAttempts; i++ {
		candidate := base
		if i > 1 {
			candidate = fmt.Sprintf("%s-%d", base, i)
		}

		taken, err := repo.SlugTaken(ctx, candidate, excludeID)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return base + "-" + xid.New().String(), nil
}
