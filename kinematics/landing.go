package kinematics

import (
	"math"

	"github.com/Ashenafi-pixel/lixi-wheel-server/prize"
)

const (
	// LandingMargin keeps the pointer this far inside a segment's edges.
	LandingMargin = 0.4
	maxJitter     = 8.0
	jitterShare   = 0.25
)

// LandingAngle picks the wheel angle to stop on inside seg: the center plus a
// random offset of up to min(sweep/4, 8°), clamped inside the margins. With
// reducedMotion the exact center is returned.
func LandingAngle(seg prize.Segment, src prize.Source, reducedMotion bool) float64 {
	if reducedMotion {
		return seg.CenterAngle
	}
	if src == nil {
		src = prize.SecureSource{}
	}
	variance := math.Min(seg.Sweep*jitterShare, maxJitter)
	offset := (src.Float64()*2 - 1) * variance
	return ClampToSegment(seg.CenterAngle+offset, seg)
}

// ClampToSegment clamps angle into [start+margin, end-margin]. Non-finite input
// and segments narrower than twice the margin yield the center.
func ClampToSegment(angle float64, seg prize.Segment) float64 {
	lo, hi := seg.StartAngle+LandingMargin, seg.EndAngle-LandingMargin
	if math.IsNaN(angle) || math.IsInf(angle, 0) || lo > hi {
		return seg.CenterAngle
	}
	return clamp(angle, lo, hi)
}

// RestingRotation is the normalized rotation that puts landing under the pointer.
func RestingRotation(landing float64) float64 {
	return normalize(360 - normalize(landing))
}

// PointerAngle is the wheel angle under the pointer at the given rotation.
func PointerAngle(rotation float64) float64 {
	return normalize(360 - normalize(rotation))
}

// SegmentUnderPointer returns the segment the pointer indicates at rotation.
func SegmentUnderPointer(segs []prize.Segment, rotation float64) (prize.Segment, bool) {
	a := PointerAngle(rotation)
	for _, s := range segs {
		if a >= s.StartAngle && a < s.EndAngle {
			return s, true
		}
	}
	return prize.Segment{}, false
}
