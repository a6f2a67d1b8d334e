package kinematics

import "time"

// Config tunes the wheel simulation. Angles are degrees, velocities degrees/second.
type Config struct {
	TargetTotal    time.Duration // desired time from impulse to rest
	MinBrake       time.Duration // shortest planned braking phase
	Friction       float64       // constant free-spin deceleration
	Drag           float64       // velocity-proportional free-spin deceleration, 1/s
	ImpulseMin     float64
	ImpulseMax     float64
	MinTurns       int // extra full turns considered while braking
	MaxTurns       int
	MinVelocity    float64 // admissible braking start velocity band
	MaxVelocity    float64
	MaxStep        time.Duration // clamp on a single free-spin integration step
	CancelDuration time.Duration // default stop time for CancelAndStop
	MinCancel      time.Duration
	ReducedMotion  bool // plan braking over MinBrake instead of TargetTotal
}

func DefaultConfig() Config {
	return Config{
		TargetTotal:    20 * time.Second,
		MinBrake:       4 * time.Second,
		Friction:       24,
		Drag:           0.085,
		ImpulseMin:     2200,
		ImpulseMax:     2800,
		MinTurns:       6,
		MaxTurns:       30,
		MinVelocity:    300,
		MaxVelocity:    4800,
		MaxStep:        50 * time.Millisecond,
		CancelDuration: time.Second,
		MinCancel:      50 * time.Millisecond,
	}
}

func (c Config) targetTotal() time.Duration {
	if c.ReducedMotion {
		return c.MinBrake
	}
	return c.TargetTotal
}
