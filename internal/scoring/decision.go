package scoring

// Decide maps a clamped score to a decision using w's thresholds.
func Decide(score int, w Weights) Decision {
	switch {
	case score >= w.AcceptThreshold:
		return Accept
	case score < w.DeclineThreshold:
		return Decline
	default:
		return Review
	}
}

// Nudge upgrades a borderline DECLINE to REVIEW when the intake is missing
// a field that could move the case: the date of birth, the incident date or
// the estimated value. Any other decision passes through.
func Nudge(d Decision, score int, w Weights, missingInfo bool) Decision {
	if d != Decline || !missingInfo {
		return d
	}
	if score >= w.ReviewNudgeMin && score < w.ReviewNudgeMax {
		return Review
	}
	return d
}
