package app

import "time"

// BackoffPolicy computes the delay before a job's next attempt.
// attempt is the number of attempts already made (>= 1).
type BackoffPolicy interface {
	Delay(attempt int) time.Duration
}

// FixedBackoff retries after a constant interval.
type FixedBackoff struct {
	Interval time.Duration
}

func (b FixedBackoff) Delay(int) time.Duration {
	return b.Interval
}

// ExponentialBackoff doubles the delay on each attempt, starting at Base and
// capped at Max (when Max > 0).
type ExponentialBackoff struct {
	Base time.Duration
	Max  time.Duration
}

func (b ExponentialBackoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := b.Base
	for i := 1; i < attempt; i++ {
		d *= 2
		if b.Max > 0 && d >= b.Max {
			return b.Max
		}
	}
	if b.Max > 0 && d > b.Max {
		return b.Max
	}
	return d
}
