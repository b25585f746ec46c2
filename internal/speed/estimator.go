package speed

import "time"

// MetersPerSecondToKMH converts m/s to km/h.
const MetersPerSecondToKMH = 3.6

// DefaultDistance is the distance between the two road strips in meters.
const DefaultDistance = 0.5

// Calculate converts a distance (meters) covered in seconds into km/h.
// Non-positive durations yield 0.
func Calculate(distance, seconds float64) float64 {
	if seconds > 0 {
		return distance / seconds * MetersPerSecondToKMH
	}
	return 0
}

// TimerState holds the time of the last crossing event.
//
// The zero value is Idle. After the first crossing it is Armed and stays
// Armed, unless an Estimator with a MaxInterval expires the baseline.
// It is owned by the processing loop and is not safe for concurrent use.
type TimerState struct {
	last  time.Time
	armed bool
}

// LastCrossing returns the baseline timestamp and whether one is set.
func (s *TimerState) LastCrossing() (time.Time, bool) {
	return s.last, s.armed
}

// Armed reports whether a baseline crossing has been recorded.
func (s *TimerState) Armed() bool {
	return s.armed
}

// Reset returns the state to Idle.
func (s *TimerState) Reset() {
	*s = TimerState{}
}

// Reading is the result of pairing two consecutive crossings.
type Reading struct {
	KMH      float64
	Interval time.Duration
}

// Estimator converts the interval between consecutive crossings into a speed.
type Estimator struct {
	// Distance is the real-world distance between the strips in meters.
	Distance float64

	// MaxInterval discards a baseline older than this instead of pairing it
	// with the new crossing. Zero keeps baselines forever.
	MaxInterval time.Duration
}

// OnCrossing records a crossing at now.
//
// With no baseline it only arms the state. Otherwise it returns the speed
// for the interval since the baseline; a non-positive interval yields a
// speed of 0 rather than an error. A baseline older than MaxInterval is
// dropped and no speed is returned. In every case the baseline becomes now.
func (e Estimator) OnCrossing(now time.Time, state *TimerState) (Reading, bool) {
	last, armed := state.LastCrossing()
	state.last = now
	state.armed = true

	if !armed {
		return Reading{}, false
	}

	interval := now.Sub(last)
	if e.MaxInterval > 0 && interval > e.MaxInterval {
		return Reading{}, false
	}

	return Reading{
		KMH:      Calculate(e.Distance, interval.Seconds()),
		Interval: interval,
	}, true
}
