// Package fingerprint derives deterministic content digests used as
// deduplication keys for business concepts.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/cases"

	"github.com/hatchline/opportunity-cli/internal/model"
)

// separator joins the normalized components before digesting. Fixed so the
// same content always produces the same digest.
const separator = "|"

var folder = cases.Fold()

// Generate returns the semantic fingerprint for a submission: a SHA-256
// digest over its normalized title, body, and category, rendered as
// lower-hex. Missing fields normalize to empty strings; all-empty input
// yields the digest of the bare separators, not an error.
func Generate(sub model.Submission) string {
	parts := []string{
		normalize(sub.Title),
		normalize(sub.Body),
		normalize(sub.Category),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, separator)))
	return hex.EncodeToString(sum[:])
}

// normalize trims surrounding whitespace and case-folds the text. Unicode
// case folding via x/text handles scripts where strings.ToLower is lossy.
func normalize(s string) string {
	return folder.String(strings.TrimSpace(s))
}
