package usecase

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"image-captioner/internal/domain"
)

const (
	captionDirective    = "Generate a descriptive caption for this image based on the following labels: "
	creativityDirective = ". Be creative and detailed."
)

var imageSuffixes = []string{".png", ".jpg", ".jpeg"}

// decodeKey undoes S3's form-style key encoding: "+" is a space and %XX is a byte.
func decodeKey(raw string) (string, error) {
	key, err := url.QueryUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("usecase: decode object key %q: %w", raw, err)
	}
	if !utf8.ValidString(key) {
		return "", fmt.Errorf("usecase: decoded object key %q is not valid UTF-8", raw)
	}
	return key, nil
}

func isImageKey(key string) bool {
	lower := strings.ToLower(key)
	for _, suffix := range imageSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

func buildCaptionPrompt(labels []domain.Label) string {
	return captionDirective + formatLabels(labels) + creativityDirective
}

// formatLabels renders labels as a list of (name, confidence) pairs, e.g.
// [('Cat', 98.2), ('Sofa', 81.0)].
func formatLabels(labels []domain.Label) string {
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, "("+quoteLabel(l.Name)+", "+formatConfidence(l.Confidence)+")")
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// formatConfidence prints the shortest decimal form and always keeps a
// fractional part, so 81 renders as "81.0".
func formatConfidence(c float32) string {
	s := strconv.FormatFloat(float64(c), 'f', -1, 32)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

// quoteLabel single-quotes name, switching to double quotes when the name
// holds a single quote but no double quote.
func quoteLabel(name string) string {
	q := byte('\'')
	if strings.ContainsRune(name, '\'') && !strings.ContainsRune(name, '"') {
		q = '"'
	}

	var b strings.Builder
	b.WriteByte(q)
	for _, r := range name {
		switch {
		case r == '\\':
			b.WriteString(`\\`)
		case r == rune(q):
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte(q)
	return b.String()
}
