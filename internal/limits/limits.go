// Package limits enforces the absolute credential-count ceiling per holder.
// The ceiling mirrors the on-chain bound, so a submission that would pass here
// but exceed it on chain cannot occur.
package limits

import "fmt"

const (
	// MaxCredentials is the hard per-holder ceiling.
	MaxCredentials = 500

	// warningRatio is the fraction of the ceiling at which a soft warning is
	// issued.
	warningRatio = 0.9
)

// Result is the verdict of a credential-count check.
type Result struct {
	Allowed bool   `json:"allowed"`
	Current int    `json:"current"`
	Limit   int    `json:"limit"`
	Warning string `json:"warning,omitempty"`
}

// CheckCredentialLimit hard-denies once the holder has reached the ceiling and
// warns once they are within ten percent of it.
func CheckCredentialLimit(currentCount int) Result {
	return check(currentCount, currentCount)
}

// CheckBatchLimit applies the same policy to the count after a batch import,
// so a multi-credential import cannot silently overshoot the ceiling.
func CheckBatchLimit(currentCount, batchSize int) Result {
	return check(currentCount, currentCount+batchSize)
}

func check(currentCount, effectiveCount int) Result {
	result := Result{
		Current: currentCount,
		Limit:   MaxCredentials,
	}
	if effectiveCount > MaxCredentials || currentCount >= MaxCredentials {
		return result
	}
	result.Allowed = true
	if float64(effectiveCount) >= warningRatio*MaxCredentials {
		result.Warning = fmt.Sprintf("approaching the credential limit (%d of %d used)", effectiveCount, MaxCredentials)
	}
	return result
}
