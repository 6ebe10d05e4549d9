// -----------------------------------------------------------------------
// Confirmation parsing - token extraction from the DMV result page
// -----------------------------------------------------------------------

package automation

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ConfirmationMatcher extracts a confirmation token from result-page text.
// The heuristic is pluggable because the third-party form owns the page
// layout and has changed it before.
type ConfirmationMatcher func(pageText string) (string, bool)

// defaultConfirmationPattern matches the literal word "Number" followed by
// an alphanumeric/hyphen token, e.g. "Confirmation Number: AB-123".
var defaultConfirmationPattern = regexp.MustCompile(`\bNumber\b[:#]?\s*([A-Za-z0-9][A-Za-z0-9-]*)`)

// MatchConfirmationNumber is the default matcher
func MatchConfirmationNumber(pageText string) (string, bool) {
	m := defaultConfirmationPattern.FindStringSubmatch(pageText)
	if len(m) < 2 {
		return "", false
	}
	return m[1], true
}

// PatternMatcher builds a matcher from a custom pattern with one capture
// group, for use when the form contract changes ahead of a release.
func PatternMatcher(pattern string) (ConfirmationMatcher, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid confirmation pattern: %w", err)
	}
	return func(pageText string) (string, bool) {
		m := re.FindStringSubmatch(pageText)
		if len(m) < 2 {
			return "", false
		}
		return m[1], true
	}, nil
}

// PlaceholderConfirmation synthesizes the fallback token recorded when the
// result page carries no recognizable confirmation number. The job is still
// recorded as submitted: a placeholder is reconcilable by hand, while a
// resubmission to a government system risks a duplicate filing.
func PlaceholderConfirmation(now time.Time) string {
	return fmt.Sprintf("UNKNOWN-%d", now.UnixMilli())
}

// ExtractText flattens an HTML fragment to normalized visible text
func ExtractText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	doc.Find("script, style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}
