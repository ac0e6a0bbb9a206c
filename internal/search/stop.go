package search

import (
	"fmt"
	"time"
)

// StopPolicy decides, once per search iteration, whether the loop ends.
// It returns a human-readable reason when it does.
type StopPolicy interface {
	ShouldStop(s Stats) (reason string, stop bool)
}

// MaxGenerated stops after n candidates have been generated.
type MaxGenerated uint64

func (n MaxGenerated) ShouldStop(s Stats) (string, bool) {
	if s.Generated >= uint64(n) {
		return fmt.Sprintf("generated %d candidates", n), true
	}
	return "", false
}

// MaxFitted stops after n candidates have been fitted successfully.
type MaxFitted uint64

func (n MaxFitted) ShouldStop(s Stats) (string, bool) {
	if s.Fitted >= uint64(n) {
		return fmt.Sprintf("fitted %d candidates", n), true
	}
	return "", false
}

// MaxDuration stops once the search has been running for d.
type MaxDuration time.Duration

func (d MaxDuration) ShouldStop(s Stats) (string, bool) {
	if s.Elapsed >= time.Duration(d) {
		return fmt.Sprintf("ran for %s", time.Duration(d)), true
	}
	return "", false
}

// StopPolicies builds the policies for the non-zero limits.
func StopPolicies(maxGenerated, maxFitted uint64, maxDuration time.Duration) []StopPolicy {
	var policies []StopPolicy
	if maxGenerated > 0 {
		policies = append(policies, MaxGenerated(maxGenerated))
	}
	if maxFitted > 0 {
		policies = append(policies, MaxFitted(maxFitted))
	}
	if maxDuration > 0 {
		policies = append(policies, MaxDuration(maxDuration))
	}
	return policies
}
