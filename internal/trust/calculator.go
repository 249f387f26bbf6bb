package trust

import (
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Factor weights. The three components are bounded to 100 before weighting,
// so the weighted sum cannot exceed 100.
const (
	reviewWeight  = 0.60
	skillWeight   = 0.30
	paymentWeight = 0.10

	skillPoints         = 5
	certificationPoints = 10

	// Payment volume is normalized against $1000 buckets worth 10 points each.
	paymentVolumeUnit    = 1000.0
	paymentPointsPerUnit = 10.0

	maxRating = 5.0
)

// Recency discounts for payment credentials.
const (
	recencyRecent = 1.0 // within 6 months
	recencyMid    = 0.7 // within 12 months
	recencyOld    = 0.5
)

// defaultPaymentVolume is assumed when no monetary amount can be extracted
// from a payment credential's text. Interim heuristic until payment volume
// becomes a structured field.
const defaultPaymentVolume = 100.0

var (
	dollarAmountRe = regexp.MustCompile(`\$\s?(\d+(?:,\d{3})*(?:\.\d+)?)`)
	usdAmountRe    = regexp.MustCompile(`(?i)(\d+(?:,\d{3})*(?:\.\d+)?)\s*(?:USD|dollars?)`)
)

// Calculator derives trust scores from credential sets. The zero value is not
// usable; construct with New.
type Calculator struct {
	logger *slog.Logger
	now    func() time.Time
}

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Calculator) {
		c.logger = logger
	}
}

// WithClock injects the evaluation time source, used by recency discounts and
// by the malformed-timestamp fallback. Tests pin this to a fixed instant.
func WithClock(now func() time.Time) Option {
	return func(c *Calculator) {
		c.now = now
	}
}

func New(opts ...Option) *Calculator {
	c := &Calculator{
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Score computes the trust score for a credential set. It is total: every
// input, including the empty set, yields a well-formed score in [0,100].
func (c *Calculator) Score(credentials []Credential) TrustScore {
	now := c.now().UTC()

	var diags Diagnostics
	review := c.reviewScore(credentials)
	skill := c.skillScore(credentials)
	payment := c.paymentScore(credentials, now, &diags)

	total := int(math.Round(review + skill + payment))

	return TrustScore{
		Total: total,
		Tier:  TierFor(total),
		Breakdown: Breakdown{
			ReviewScore:  round2(review),
			SkillScore:   round2(skill),
			PaymentScore: round2(payment),
		},
		Diagnostics: diags,
	}
}

// reviewScore is the mean rating across review credentials, normalized to 100
// and weighted. Reviews without a rating are skipped.
func (c *Calculator) reviewScore(credentials []Credential) float64 {
	var sum float64
	var n int
	for _, cred := range credentials {
		if cred.Type != TypeReview || cred.Rating == nil {
			continue
		}
		sum += *cred.Rating
		n++
	}
	if n == 0 {
		return 0
	}
	mean := sum / float64(n)
	return (mean / maxRating) * 100 * reviewWeight
}

// skillScore awards flat points per skill and certification, capped at 100
// before the weight applies.
func (c *Calculator) skillScore(credentials []Credential) float64 {
	var points int
	for _, cred := range credentials {
		switch cred.Type {
		case TypeSkill:
			points += skillPoints
		case TypeCertification:
			points += certificationPoints
		}
	}
	return math.Min(100, float64(points)) * skillWeight
}

// paymentScore sums recency-discounted payment volumes, normalizes against
// the volume unit, caps at 100, and weights.
func (c *Calculator) paymentScore(credentials []Credential, now time.Time, diags *Diagnostics) float64 {
	var weightedVolume float64
	for _, cred := range credentials {
		if cred.Type != TypePayment {
			continue
		}
		volume := extractPaymentVolume(cred.Name + " " + cred.Description)
		weightedVolume += volume * c.recencyFactor(cred, now, diags)
	}
	if weightedVolume == 0 {
		return 0
	}
	raw := (weightedVolume / paymentVolumeUnit) * paymentPointsPerUnit
	return math.Min(100, raw) * paymentWeight
}

// recencyFactor discounts older payments. A timestamp that does not parse is
// substituted with the evaluation time, which makes the credential count as
// fully recent; the substitution is logged and surfaced in Diagnostics rather
// than swallowed.
func (c *Calculator) recencyFactor(cred Credential, now time.Time, diags *Diagnostics) float64 {
	ts, err := time.Parse(TimestampLayout, cred.Timestamp)
	if err != nil {
		diags.TimestampFallbacks++
		if c.logger != nil {
			c.logger.Warn("credential timestamp did not parse, substituting evaluation time",
				"credential_id", cred.ID,
				"timestamp", cred.Timestamp,
			)
		}
		ts = now
	}
	switch {
	case !ts.Before(now.AddDate(0, -6, 0)):
		return recencyRecent
	case !ts.Before(now.AddDate(0, -12, 0)):
		return recencyMid
	default:
		return recencyOld
	}
}

// extractPaymentVolume scans free text for a monetary amount: a $-prefixed
// number first, then a number suffixed with USD/dollars, else the flat
// default. Thousands separators are tolerated.
func extractPaymentVolume(text string) float64 {
	if m := dollarAmountRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64); err == nil {
			return v
		}
	}
	if m := usdAmountRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64); err == nil {
			return v
		}
	}
	return defaultPaymentVolume
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
