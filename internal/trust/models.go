// Package trust computes reputation scores over credential sets. Everything in
// this package is pure domain logic: no I/O, no persistence, no side effects
// beyond an optional diagnostic log line.
package trust

// TimestampLayout is the wire format for credential timestamps: ISO-8601 UTC
// with millisecond precision. Credentials arrive from the ledger with this
// exact shape and the metadata validator enforces it on the write path.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// CredentialType is the closed set of attestation kinds.
type CredentialType string

const (
	TypeSkill         CredentialType = "skill"
	TypeReview        CredentialType = "review"
	TypePayment       CredentialType = "payment"
	TypeCertification CredentialType = "certification"
)

// IsValid checks if the credential type is one of the supported enum values.
func (t CredentialType) IsValid() bool {
	switch t {
	case TypeSkill, TypeReview, TypePayment, TypeCertification:
		return true
	}
	return false
}

// Visibility controls whether a credential appears in public views.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

func (v Visibility) IsValid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// ExtraMetadata is the optional free-form tail of a credential record.
type ExtraMetadata struct {
	VerificationURL string `json:"verification_url,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

// CredentialMetadata is a candidate credential as submitted by a holder: a
// Credential minus the server-assigned ID and owner. This is the shape the
// sanitizer cleans and the metadata validator accepts or rejects.
type CredentialMetadata struct {
	Type        CredentialType `json:"credential_type"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Issuer      string         `json:"issuer"`
	Rating      *float64       `json:"rating,omitempty"`
	Timestamp   string         `json:"timestamp"`
	Visibility  Visibility     `json:"visibility"`
	ProofHash   string         `json:"proof_hash,omitempty"`
	Metadata    *ExtraMetadata `json:"metadata,omitempty"`
}

// Credential is one attestation about a holder, as fetched from the ledger.
// By the time a credential reaches this package it has already passed schema
// validation; the one defect scoring still tolerates is a malformed timestamp.
type Credential struct {
	ID    string `json:"id"`
	Owner string `json:"owner"`
	CredentialMetadata
}

// Tier is an ordered reputation band derived from the total score.
type Tier string

const (
	TierBronze   Tier = "Bronze"
	TierSilver   Tier = "Silver"
	TierGold     Tier = "Gold"
	TierPlatinum Tier = "Platinum"
)

// TierFor maps a total score onto its band. The four bands partition [0,100].
func TierFor(total int) Tier {
	switch {
	case total <= 25:
		return TierBronze
	case total <= 50:
		return TierSilver
	case total <= 75:
		return TierGold
	default:
		return TierPlatinum
	}
}

// Breakdown carries the per-factor components, each rounded to two decimals
// for display. The total is computed from the unrounded components, so the
// rounded fields must never be re-summed.
type Breakdown struct {
	ReviewScore  float64 `json:"review_score"`
	SkillScore   float64 `json:"skill_score"`
	PaymentScore float64 `json:"payment_score"`
}

// Diagnostics surfaces recoveries the calculator made instead of failing.
type Diagnostics struct {
	// TimestampFallbacks counts credentials whose timestamp did not parse and
	// was substituted with the evaluation time.
	TimestampFallbacks int `json:"timestamp_fallbacks,omitempty"`
}

// TrustScore is a derived, recomputable view over a credential set. It has no
// identity of its own and is never persisted by this engine.
type TrustScore struct {
	Total       int         `json:"total"`
	Tier        Tier        `json:"tier"`
	Breakdown   Breakdown   `json:"breakdown"`
	Diagnostics Diagnostics `json:"diagnostics,omitempty"`
}
