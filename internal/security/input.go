// Package security provides the hardening primitives used at the edges of
// the system: input normalization for operator-supplied values, signed
// action tokens for mutating operations, and an outbound transport that
// refuses to dial internal networks.
package security

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// InputKind selects the normalization applied by SecureInput.
type InputKind string

const (
	InputInt  InputKind = "int"
	InputURL  InputKind = "url"
	InputText InputKind = "text"
)

var (
	validate = validator.New()

	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	octetPattern      = regexp.MustCompile(`%[a-fA-F0-9]{2}`)
)

// SecureInput normalizes a raw value according to kind. Values that cannot
// be made safe become the empty string ("0" for InputInt). Unknown kinds are
// treated as InputText.
func SecureInput(value string, kind InputKind) string {
	switch kind {
	case InputInt:
		return strconv.FormatInt(AbsInt(value), 10)
	case InputURL:
		return sanitizeURL(value)
	default:
		return sanitizeText(value)
	}
}

// SecureInputs applies SecureInput to every element.
func SecureInputs(values []string, kind InputKind) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = SecureInput(v, kind)
	}
	return out
}

// AbsInt parses the leading integer of s and returns its absolute value.
// Leading whitespace is skipped; parsing stops at the first non-digit.
// Strings without a leading integer yield 0. Values beyond int64 saturate.
func AbsInt(s string) int64 {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	if s != "" && (s[0] == '-' || s[0] == '+') {
		s = s[1:]
	}

	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}

	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		// Only range errors are possible here.
		return int64(^uint64(0) >> 1)
	}
	return n
}

func sanitizeURL(value string) string {
	v := strings.TrimSpace(value)
	if err := validate.Var(v, "required,url"); err != nil {
		return ""
	}
	u, err := url.Parse(v)
	if err != nil {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return v
	default:
		return ""
	}
}

func sanitizeText(value string) string {
	v := strings.ToValidUTF8(value, "")
	v = tagPattern.ReplaceAllString(v, "")
	v = octetPattern.ReplaceAllString(v, "")
	v = whitespacePattern.ReplaceAllString(v, " ")
	return strings.TrimSpace(v)
}
