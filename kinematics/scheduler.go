package kinematics

import (
	"sort"
	"sync"
	"time"
)

type FrameID uint64

// Scheduler delivers frame callbacks. A callback runs at most once, never from
// inside RequestFrame, and never after CancelFrame returns for a frame that has
// not started.
type Scheduler interface {
	Now() time.Duration
	RequestFrame(fn func(now time.Duration)) FrameID
	CancelFrame(id FrameID)
}

// TimerScheduler fires frames on a fixed interval using time.AfterFunc.
type TimerScheduler struct {
	mu       sync.Mutex
	origin   time.Time
	interval time.Duration
	next     FrameID
	timers   map[FrameID]*time.Timer
}

// NewTimerScheduler returns a scheduler ticking every interval (16ms when zero).
func NewTimerScheduler(interval time.Duration) *TimerScheduler {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	return &TimerScheduler{
		origin:   time.Now(),
		interval: interval,
		timers:   make(map[FrameID]*time.Timer),
	}
}

func (s *TimerScheduler) Now() time.Duration { return time.Since(s.origin) }

func (s *TimerScheduler) RequestFrame(fn func(now time.Duration)) FrameID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	id := s.next
	s.timers[id] = time.AfterFunc(s.interval, func() {
		s.mu.Lock()
		_, live := s.timers[id]
		delete(s.timers, id)
		s.mu.Unlock()
		if live {
			fn(s.Now())
		}
	})
	return id
}

func (s *TimerScheduler) CancelFrame(id FrameID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
}

// Pending returns the number of frames requested and not yet fired or cancelled.
func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// ManualScheduler is driven explicitly with Advance; for tests and offline rendering.
type ManualScheduler struct {
	mu      sync.Mutex
	now     time.Duration
	next    FrameID
	pending map[FrameID]func(time.Duration)
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{pending: make(map[FrameID]func(time.Duration))}
}

func (s *ManualScheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *ManualScheduler) RequestFrame(fn func(now time.Duration)) FrameID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.pending[s.next] = fn
	return s.next
}

func (s *ManualScheduler) CancelFrame(id FrameID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
}

func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Advance moves the clock by d and runs the frames that were pending before the
// call, in request order. Frames requested by those callbacks wait for the next Advance.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.now += d
	now := s.now
	ids := make([]FrameID, 0, len(s.pending))
	for id := range s.pending {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		s.mu.Lock()
		fn, ok := s.pending[id]
		delete(s.pending, id)
		s.mu.Unlock()
		if ok {
			fn(now)
		}
	}
}

// RunUntil advances in steps of frame until cond holds or limit elapses. It
// reports whether cond was met.
func (s *ManualScheduler) RunUntil(frame, limit time.Duration, cond func() bool) bool {
	for elapsed := time.Duration(0); elapsed <= limit; elapsed += frame {
		if cond() {
			return true
		}
		s.Advance(frame)
	}
	return cond()
}
