// Package trends filters topic candidates before they reach content
// generation. Both guards are pure and side-effect-free so they can run
// as a cheap pre-filter ahead of any LLM call.
package trends

import (
	"fmt"
	"time"
)

// DefaultMaxAgeDays is the recency window applied when the caller does
// not override it.
const DefaultMaxAgeDays = 7

// Verdict is the outcome of a guard check. Rejections always carry a
// reason so the orchestrator never discards a candidate silently.
type Verdict struct {
	IsValid bool   `json:"is_valid"`
	Reason  string `json:"reason,omitempty"`
}

// ValidateRecency rejects candidates whose source material is older than
// maxAgeDays. A nil timestamp is treated as valid: staleness cannot be
// proven, so it is not penalized. maxAgeDays <= 0 falls back to the
// default window.
func ValidateRecency(publishedAt *time.Time, maxAgeDays int) Verdict {
	return validateRecencyAt(publishedAt, maxAgeDays, time.Now())
}

func validateRecencyAt(publishedAt *time.Time, maxAgeDays int, now time.Time) Verdict {
	if publishedAt == nil {
		return Verdict{IsValid: true}
	}
	if maxAgeDays <= 0 {
		maxAgeDays = DefaultMaxAgeDays
	}
	age := now.Sub(*publishedAt)
	if age > time.Duration(maxAgeDays)*24*time.Hour {
		days := int(age.Hours() / 24)
		return Verdict{
			IsValid: false,
			Reason:  fmt.Sprintf("source is %d days old, exceeds %d-day recency window", days, maxAgeDays),
		}
	}
	return Verdict{IsValid: true}
}
