package advisory

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/couchcryptid/city-risk-service/internal/domain"
)

// ErrValidation reports generated text that does not look like advisories.
var ErrValidation = errors.New("advisory validation failed")

// minBulletLines is the fewest bullet lines an accepted generation may have.
const minBulletLines = 2

// minHeadingWords separates bare headings ("Water Conservation:") from content
// lines that happen to end with a colon.
const minHeadingWords = 5

var (
	leakMarkers  = []string{"example input", "example output"}
	metaPrefixes = []string{"example:", "note:", "here are", "sure", "output:", "status:"}
	metaKeywords = []string{"bullet", "bullets", "line", "lines", "format", "example", "instruction"}
	numbered     = regexp.MustCompile(`^\d+\.`)
)

// Clean extracts at most three candidate advisory lines from raw generated
// text. Lines are trimmed; blank lines, meta-commentary, and bare headings are
// dropped. Collection stops at the first line that echoes the prompt's worked
// example.
func Clean(text string) []string {
	var out []string
	for _, raw := range strings.FieldsFunc(text, isLineBreak) {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		if containsAny(lower, leakMarkers) {
			break
		}
		if hasAnyPrefix(lower, metaPrefixes) {
			continue
		}
		if strings.HasSuffix(line, ":") && len(strings.Fields(line)) < minHeadingWords {
			continue
		}
		out = append(out, line)
		if len(out) == domain.MaxAdvisoryLines {
			break
		}
	}
	return out
}

// isLineBreak matches every line boundary a generator may emit, including a
// bare carriage return and the Unicode line and paragraph separators.
func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', '\x1c', '\x1d', '\x1e', '\u0085', '\u2028', '\u2029':
		return true
	}
	return false
}

// IsBullet reports whether a line carries a list marker: "-", "•", or "N.".
func IsBullet(line string) bool {
	return strings.HasPrefix(line, "-") || strings.HasPrefix(line, "•") || numbered.MatchString(line)
}

// Validate accepts cleaned lines with at least two bullets, none of which talk
// about the output format itself.
func Validate(lines []string) error {
	var bullets []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if IsBullet(line) {
			bullets = append(bullets, line)
		}
	}
	if len(bullets) < minBulletLines {
		return fmt.Errorf("%w: %d bullet lines, need %d", ErrValidation, len(bullets), minBulletLines)
	}
	for _, b := range bullets {
		if kw, ok := firstContained(strings.ToLower(b), metaKeywords); ok {
			return fmt.Errorf("%w: meta keyword %q in %q", ErrValidation, kw, b)
		}
	}
	return nil
}

func containsAny(s string, subs []string) bool {
	_, ok := firstContained(s, subs)
	return ok
}

func firstContained(s string, subs []string) (string, bool) {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return sub, true
		}
	}
	return "", false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
