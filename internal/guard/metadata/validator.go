// Package metadata validates candidate credential metadata against the fixed
// submission schema. Validation rejects; it never repairs. All violations are
// collected so the caller can surface one consolidated error list.
package metadata

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"trustforge/internal/trust"
)

const (
	maxNameLength        = 100
	maxDescriptionLength = 500
	proofHashLength      = 64
)

var (
	// nameAllowedRe restricts name and issuer to letters, digits, space, and a
	// fixed punctuation set. The set deliberately includes the characters the
	// sanitizer's entity encodings are built from (& # ; x and digits), so a
	// sanitized value never fails on its own encoding.
	nameAllowedRe = regexp.MustCompile(`^[a-zA-Z0-9 .,'&();/+#:-]+$`)

	timestampRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}Z$`)
	proofHashRe = regexp.MustCompile(`^[a-f0-9]{64}$`)
)

// FieldError reports one schema violation on one field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result aggregates every violation found in a candidate.
type Result struct {
	Valid  bool         `json:"valid"`
	Errors []FieldError `json:"errors,omitempty"`
}

// Message flattens field errors into one human-readable line.
func (r Result) Message() string {
	parts := make([]string, 0, len(r.Errors))
	for _, fieldErr := range r.Errors {
		parts = append(parts, fieldErr.Field+": "+fieldErr.Message)
	}
	return strings.Join(parts, "; ")
}

// Validator checks candidate credential metadata. Stateless and safe for
// concurrent use.
type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// Validate checks structure and content of a would-be credential. It reports
// every failing field, not just the first.
func (v *Validator) Validate(candidate trust.CredentialMetadata) Result {
	var errs []FieldError
	add := func(field, message string) {
		errs = append(errs, FieldError{Field: field, Message: message})
	}

	if !candidate.Type.IsValid() {
		add("credential_type", "must be one of skill, review, payment, certification")
	}

	validateText(&errs, "name", candidate.Name, maxNameLength, true)
	validateText(&errs, "issuer", candidate.Issuer, maxNameLength, true)
	validateText(&errs, "description", candidate.Description, maxDescriptionLength, false)

	if candidate.Rating != nil {
		if r := *candidate.Rating; r < 0 || r > 5 {
			add("rating", "must be between 0 and 5")
		}
	}

	if !timestampRe.MatchString(candidate.Timestamp) {
		add("timestamp", "must be ISO-8601 UTC with millisecond precision, e.g. 2024-01-02T15:04:05.000Z")
	} else if _, err := time.Parse(trust.TimestampLayout, candidate.Timestamp); err != nil {
		add("timestamp", "is not a real instant")
	}

	if !candidate.Visibility.IsValid() {
		add("visibility", "must be public or private")
	}

	if candidate.ProofHash != "" && !proofHashRe.MatchString(candidate.ProofHash) {
		add("proof_hash", fmt.Sprintf("must be exactly %d lowercase hex characters", proofHashLength))
	}

	if candidate.Metadata != nil && candidate.Metadata.VerificationURL != "" {
		if !isValidURL(candidate.Metadata.VerificationURL) {
			add("metadata.verification_url", "must be a valid URL")
		}
	}

	return Result{Valid: len(errs) == 0, Errors: errs}
}

func validateText(errs *[]FieldError, field, value string, maxLen int, restricted bool) {
	if value == "" {
		*errs = append(*errs, FieldError{Field: field, Message: "must not be empty"})
		return
	}
	if utf8.RuneCountInString(value) > maxLen {
		*errs = append(*errs, FieldError{Field: field, Message: fmt.Sprintf("must be at most %d characters", maxLen)})
	}
	if restricted && !nameAllowedRe.MatchString(value) {
		*errs = append(*errs, FieldError{Field: field, Message: "contains disallowed characters"})
	}
}

func isValidURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}
