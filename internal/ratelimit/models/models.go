// Package models holds the rate limiting domain types shared across the
// limiter's service, stores, and transport.
package models

import (
	"fmt"
	"time"
)

// Submission limits: dual-granularity sliding windows.
const (
	MinuteLimit  = 10
	HourLimit    = 100
	MinuteWindow = time.Minute
	HourWindow   = time.Hour

	// WarningRatio is the fraction of a ceiling at which a soft warning is
	// issued, before the subject is actually blocked.
	WarningRatio = 0.8
)

// KeyPrefix namespaces limiter state in the backing store.
const KeyPrefix = "ratelimit:submission:"

// StateKey builds the store key for a subject.
func StateKey(subject string) string {
	return KeyPrefix + subject
}

// State is the persisted limiter state for one subject: the ordered action
// timestamps inside each window. Mutated only by Record; Check reads and
// prunes.
type State struct {
	MinuteTimestamps []time.Time `json:"minute_timestamps"`
	HourTimestamps   []time.Time `json:"hour_timestamps"`
}

// Prune drops timestamps that have left their window. Both lists stay ordered
// because appends are always of the current time.
func (s *State) Prune(now time.Time) {
	s.MinuteTimestamps = pruneBefore(s.MinuteTimestamps, now.Add(-MinuteWindow))
	s.HourTimestamps = pruneBefore(s.HourTimestamps, now.Add(-HourWindow))
}

func pruneBefore(timestamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for ; i < len(timestamps); i++ {
		if timestamps[i].After(cutoff) {
			break
		}
	}
	return timestamps[i:]
}

// Result is the verdict of a rate limit check.
type Result struct {
	Allowed     bool `json:"allowed"`
	MinuteCount int  `json:"minute_count"`
	HourCount   int  `json:"hour_count"`
	// RetryAt is set on denial: the earliest moment the violated window will
	// have freed a slot.
	RetryAt *time.Time `json:"retry_at,omitempty"`
}

// WarningMessage returns a soft warning once either counter reaches the
// warning ratio of its ceiling. The second return is false when no warning
// applies. Warnings alert a subject before they are blocked; they never block.
func WarningMessage(minuteCount, hourCount int) (string, bool) {
	switch {
	case float64(minuteCount) >= WarningRatio*MinuteLimit:
		return fmt.Sprintf("approaching the per-minute submission limit (%d of %d used)", minuteCount, MinuteLimit), true
	case float64(hourCount) >= WarningRatio*HourLimit:
		return fmt.Sprintf("approaching the hourly submission limit (%d of %d used)", hourCount, HourLimit), true
	}
	return "", false
}
