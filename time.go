package auth

import "time"

// RecentLoginWindow is how long a reauthentication counts as recent.
const RecentLoginWindow = 5 * time.Minute

// IsWithinThresholdPeriod checks if t is after now minus the duration
// expressed by pattern, e.g. "5m".
func IsWithinThresholdPeriod(t time.Time, pattern string) (bool, error) {
	duration, err := time.ParseDuration(pattern)
	if err != nil {
		return false, err
	}
	return IsWithinWindow(t, duration, time.Now()), nil
}

// IsOutsideThresholdPeriod is the negation of IsWithinThresholdPeriod
func IsOutsideThresholdPeriod(t time.Time, pattern string) (bool, error) {
	valid, err := IsWithinThresholdPeriod(t, pattern)
	if err != nil {
		return false, err
	}

	return !valid, nil
}

// IsWithinWindow reports whether t falls inside the window ending at now.
// A zero t is never within the window.
func IsWithinWindow(t time.Time, window time.Duration, now time.Time) bool {
	if t.IsZero() {
		return false
	}
	return t.After(now.Add(-window))
}
