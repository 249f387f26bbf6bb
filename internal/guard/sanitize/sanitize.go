// Package sanitize cleans untrusted input before validation. Sanitization
// transforms input to a safe form; it never rejects. Rejection is the metadata
// validator's job, and the two are applied in that order as independent
// defenses.
package sanitize

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"

	"trustforge/internal/trust"
	dErrors "trustforge/pkg/domainerrors"
)

var (
	htmlTagRe     = regexp.MustCompile(`<[^>]*>`)
	controlCharRe = regexp.MustCompile(`[\x00-\x1F\x7F]`)
)

// entityPrefixes are the encodings String itself produces. An ampersand that
// begins one of these is left alone so that re-sanitizing already-sanitized
// text never double-encodes.
var entityPrefixes = []string{"&amp;", "&lt;", "&gt;", "&quot;", "&#x27;", "&#x2F;"}

// String runs the cleansing pipeline: strip HTML tags, strip control
// characters (null bytes included), entity-encode the reserved set
// & < > " ' /, then trim surrounding whitespace.
//
// String is idempotent: String(String(x)) == String(x) for all x. Callers rely
// on this to re-sanitize defensively at every boundary.
func String(s string) string {
	s = htmlTagRe.ReplaceAllString(s, "")
	s = controlCharRe.ReplaceAllString(s, "")
	s = encodeReserved(s)
	return strings.TrimSpace(s)
}

func encodeReserved(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '&':
			if startsEntity(s[i:]) {
				b.WriteByte(c)
			} else {
				b.WriteString("&amp;")
			}
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&#x27;")
		case '/':
			b.WriteString("&#x2F;")
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func startsEntity(s string) bool {
	for _, prefix := range entityPrefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

// URL accepts only absolute http/https URLs, re-serialized through the
// parser. Anything that fails to parse or uses another scheme collapses to
// the empty string. This is a whitelist, not a blacklist.
func URL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	return u.String()
}

// Metadata sanitizes every free-text field of a candidate credential and
// recurses into the optional nested metadata. Enum fields are corrected to a
// safe fallback when malformed; the opaque proof hash is left untouched for
// the validator to judge.
func Metadata(candidate trust.CredentialMetadata) trust.CredentialMetadata {
	out := candidate
	out.Name = String(candidate.Name)
	out.Description = String(candidate.Description)
	out.Issuer = String(candidate.Issuer)
	out.Timestamp = strings.TrimSpace(candidate.Timestamp)

	if !out.Type.IsValid() {
		out.Type = ""
	}
	if !out.Visibility.IsValid() {
		out.Visibility = trust.VisibilityPublic
	}

	if candidate.Metadata != nil {
		nested := *candidate.Metadata
		nested.VerificationURL = URL(nested.VerificationURL)
		nested.Notes = String(nested.Notes)
		out.Metadata = &nested
	}
	return out
}

// JSON parses a JSON document and deep-sanitizes every string leaf and every
// object key. Malformed input is the one place in the guard that fails with
// an error instead of a result value; the caller must handle it.
func JSON(input string) (any, error) {
	var doc any
	if err := json.Unmarshal([]byte(input), &doc); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "malformed JSON input")
	}
	return sanitizeValue(doc), nil
}

func sanitizeValue(v any) any {
	switch val := v.(type) {
	case string:
		return String(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[String(k)] = sanitizeValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = sanitizeValue(inner)
		}
		return out
	default:
		return v
	}
}
