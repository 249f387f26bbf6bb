package trust

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type CalculatorSuite struct {
	suite.Suite
	calc *Calculator
	now  time.Time
}

func TestCalculatorSuite(t *testing.T) {
	suite.Run(t, new(CalculatorSuite))
}

func (s *CalculatorSuite) SetupTest() {
	s.now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	s.calc = New(WithClock(func() time.Time { return s.now }))
}

func (s *CalculatorSuite) timestamp(monthsAgo int) string {
	return s.now.AddDate(0, -monthsAgo, 0).Format(TimestampLayout)
}

func (s *CalculatorSuite) review(rating float64) Credential {
	return Credential{
		ID: "rev", CredentialMetadata: CredentialMetadata{
			Type:      TypeReview,
			Rating:    &rating,
			Timestamp: s.timestamp(1),
		},
	}
}

func (s *CalculatorSuite) ofType(t CredentialType, name, description string, monthsAgo int) Credential {
	return Credential{
		ID: "cred", CredentialMetadata: CredentialMetadata{
			Type:        t,
			Name:        name,
			Description: description,
			Timestamp:   s.timestamp(monthsAgo),
		},
	}
}

func (s *CalculatorSuite) TestEmptySet() {
	score := s.calc.Score(nil)
	s.Equal(0, score.Total)
	s.Equal(TierBronze, score.Tier)
	s.Equal(Breakdown{}, score.Breakdown)
}

func (s *CalculatorSuite) TestSingleFiveStarReview() {
	score := s.calc.Score([]Credential{s.review(5)})
	s.Equal(60, score.Total)
	s.Equal(TierGold, score.Tier)
	s.InDelta(60.0, score.Breakdown.ReviewScore, 0.001)
}

func (s *CalculatorSuite) TestReviewMeanIgnoresMissingRatings() {
	noRating := Credential{CredentialMetadata: CredentialMetadata{Type: TypeReview, Timestamp: s.timestamp(1)}}
	score := s.calc.Score([]Credential{s.review(4), s.review(2), noRating})
	// mean 3.0 -> 3/5*100*0.6 = 36
	s.InDelta(36.0, score.Breakdown.ReviewScore, 0.001)
	s.Equal(36, score.Total)
}

func (s *CalculatorSuite) TestSkillAndCertificationPoints() {
	var creds []Credential
	for range 5 {
		creds = append(creds, s.ofType(TypeSkill, "Go", "", 1))
	}
	for range 2 {
		creds = append(creds, s.ofType(TypeCertification, "CKA", "", 1))
	}
	score := s.calc.Score(creds)
	// 5*5 + 2*10 = 45 points, under the cap -> 45*0.3 = 13.5
	s.InDelta(13.5, score.Breakdown.SkillScore, 0.001)
	s.Equal(14, score.Total)
	s.Equal(TierBronze, score.Tier)
}

func (s *CalculatorSuite) TestSkillPointsCappedBeforeWeight() {
	var creds []Credential
	for range 30 {
		creds = append(creds, s.ofType(TypeCertification, "cert", "", 1))
	}
	score := s.calc.Score(creds)
	s.InDelta(30.0, score.Breakdown.SkillScore, 0.001)
}

func (s *CalculatorSuite) TestPaymentVolumeExtraction() {
	cases := []struct {
		name, text string
		volume     float64
	}{
		{"dollar sign", "Invoice paid $2500 for backend work", 2500},
		{"dollar with separators", "Received $1,250.50 milestone", 1250.50},
		{"usd suffix", "Paid 800 USD on completion", 800},
		{"dollars word", "milestone of 300 dollars", 300},
		{"no amount", "final milestone cleared", 100},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.InDelta(tc.volume, extractPaymentVolume(tc.text), 0.001)
		})
	}
}

func (s *CalculatorSuite) TestPaymentRecencyDiscount() {
	cases := []struct {
		monthsAgo int
		factor    float64
	}{
		{1, 1.0},
		{5, 1.0},
		{9, 0.7},
		{24, 0.5},
	}
	for _, tc := range cases {
		s.Run(fmt.Sprintf("%d months old", tc.monthsAgo), func() {
			cred := s.ofType(TypePayment, "Paid $1000", "", tc.monthsAgo)
			score := s.calc.Score([]Credential{cred})
			// $1000 -> 10 raw points * factor * 0.10 weight
			s.InDelta(tc.factor*1.0, score.Breakdown.PaymentScore, 0.001)
		})
	}
}

func (s *CalculatorSuite) TestPaymentScoreCapped() {
	cred := s.ofType(TypePayment, "Enterprise contract $50000", "", 1)
	score := s.calc.Score([]Credential{cred})
	s.InDelta(10.0, score.Breakdown.PaymentScore, 0.001)
}

func (s *CalculatorSuite) TestMalformedTimestampFallsBackToNow() {
	cred := s.ofType(TypePayment, "Paid $1000", "", 1)
	cred.Timestamp = "not-a-timestamp"
	score := s.calc.Score([]Credential{cred})
	// Substituted evaluation time counts as fully recent.
	s.InDelta(1.0, score.Breakdown.PaymentScore, 0.001)
	s.Equal(1, score.Diagnostics.TimestampFallbacks)
}

func (s *CalculatorSuite) TestTotalStaysInRange() {
	var creds []Credential
	for range 50 {
		creds = append(creds, s.review(5))
		creds = append(creds, s.ofType(TypeSkill, "skill", "", 1))
		creds = append(creds, s.ofType(TypeCertification, "cert", "", 1))
		creds = append(creds, s.ofType(TypePayment, "Paid $9999", "big project", 1))
	}
	score := s.calc.Score(creds)
	s.GreaterOrEqual(score.Total, 0)
	s.LessOrEqual(score.Total, 100)
	s.Equal(TierPlatinum, score.Tier)
}

func TestTierForPartitionsFullRange(t *testing.T) {
	expected := map[Tier][2]int{
		TierBronze:   {0, 25},
		TierSilver:   {26, 50},
		TierGold:     {51, 75},
		TierPlatinum: {76, 100},
	}
	for total := 0; total <= 100; total++ {
		tier := TierFor(total)
		bounds, ok := expected[tier]
		if !ok {
			t.Fatalf("total %d mapped to unknown tier %q", total, tier)
		}
		if total < bounds[0] || total > bounds[1] {
			t.Fatalf("total %d mapped to %q, outside [%d,%d]", total, tier, bounds[0], bounds[1])
		}
	}
}
