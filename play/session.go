// Package play runs one player's lucky money session: register, then a single
// spin whose wheel animation lands on the prize the server allocated.
package play

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/logger"

	"github.com/Ashenafi-pixel/lixi-wheel-server/client"
	"github.com/Ashenafi-pixel/lixi-wheel-server/kinematics"
	"github.com/Ashenafi-pixel/lixi-wheel-server/prize"
)

const (
	alreadySpunStop = 1200 * time.Millisecond
	errorStop       = 900 * time.Millisecond
)

var (
	ErrNotRegistered = errors.New("play: no registered participant")
	ErrAlreadySpun   = errors.New("play: participant has already spun")
	ErrBusy          = errors.New("play: wheel is still spinning")
	ErrUnknownPrize  = errors.New("play: prize is not on this wheel")
	// ErrPhoneAlreadyUsed matches *PhoneUsedError.
	ErrPhoneAlreadyUsed = errors.New("play: phone number already used")
)

// PhoneUsedError reports a registration for a phone whose owner already spun.
type PhoneUsedError struct {
	Name  string
	Prize *client.Prize
}

func (e *PhoneUsedError) Error() string {
	return fmt.Sprintf("play: phone number already used by %s, who has received their lucky money", e.Name)
}

func (e *PhoneUsedError) Is(target error) bool { return target == ErrPhoneAlreadyUsed }

// API is the part of the HTTP client a session needs.
type API interface {
	Register(ctx context.Context, name, phone string) (*client.Registration, error)
	Spin(ctx context.Context, participantID string) (*client.SpinResult, error)
}

// Outcome is delivered once the wheel has come to rest.
type Outcome struct {
	Prize        client.Prize
	Existing     bool // the participant had spun before; the stored result was replayed
	Rotation     float64
	UnderPointer prize.Segment
}

type Session struct {
	api     API
	catalog *prize.Catalog
	engine  *kinematics.Engine
	src     prize.Source
	reduced bool

	mu          sync.Mutex
	participant *client.Registration
	hasSpun     bool
	spinning    bool
	rest        chan kinematics.State
}

type Option func(*sessionOptions)

type sessionOptions struct {
	engine   []kinematics.Option
	src      prize.Source
	reduced  bool
	onUpdate func(kinematics.State)
}

// WithEngineOptions passes options through to the kinematics engine.
func WithEngineOptions(opts ...kinematics.Option) Option {
	return func(o *sessionOptions) { o.engine = append(o.engine, opts...) }
}

// WithSource sets the random source for landing jitter and the spin impulse.
func WithSource(src prize.Source) Option {
	return func(o *sessionOptions) { o.src = src }
}

// WithReducedMotion lands on segment centers and shortens the animation.
func WithReducedMotion() Option {
	return func(o *sessionOptions) { o.reduced = true }
}

// WithFrames receives the wheel state after every frame, for rendering.
func WithFrames(fn func(kinematics.State)) Option {
	return func(o *sessionOptions) { o.onUpdate = fn }
}

func NewSession(api API, catalog *prize.Catalog, sched kinematics.Scheduler, opts ...Option) *Session {
	var o sessionOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.src == nil {
		o.src = prize.SecureSource{}
	}
	s := &Session{
		api:     api,
		catalog: catalog,
		src:     o.src,
		reduced: o.reduced,
		rest:    make(chan kinematics.State, 1),
	}
	engineOpts := []kinematics.Option{kinematics.WithSource(o.src)}
	engineOpts = append(engineOpts, o.engine...)
	engineOpts = append(engineOpts, kinematics.OnComplete(s.atRest))
	if o.onUpdate != nil {
		engineOpts = append(engineOpts, kinematics.OnUpdate(o.onUpdate))
	}
	s.engine = kinematics.New(sched, engineOpts...)
	s.engine.SetReducedMotion(o.reduced)
	return s
}

func (s *Session) atRest(st kinematics.State) {
	select {
	case s.rest <- st:
	default:
	}
}

func (s *Session) Engine() *kinematics.Engine { return s.engine }

func (s *Session) Participant() *client.Registration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.participant
}

// Register signs a player in. A phone whose owner already spun is refused with
// a *PhoneUsedError; any other registration resets the wheel for a fresh spin.
func (s *Session) Register(ctx context.Context, name, phone string) (*client.Registration, error) {
	reg, err := s.api.Register(ctx, name, phone)
	if err != nil {
		return nil, err
	}
	if reg.IsExistingPhone && reg.HasSpun {
		return nil, &PhoneUsedError{Name: reg.Name, Prize: reg.ExistingPrize}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.spinning {
		return nil, ErrBusy
	}
	s.participant = reg
	s.hasSpun = false
	s.engine.Reset(0)
	s.drainLocked()
	return reg, nil
}

func (s *Session) drainLocked() {
	select {
	case <-s.rest:
	default:
	}
}

// Spin starts the wheel, asks the server for the prize while it turns, and
// returns once the wheel rests on the result. On a request error the wheel is
// stopped anywhere and the error returned.
func (s *Session) Spin(ctx context.Context) (*Outcome, error) {
	s.mu.Lock()
	switch {
	case s.participant == nil:
		s.mu.Unlock()
		return nil, ErrNotRegistered
	case s.hasSpun:
		s.mu.Unlock()
		return nil, ErrAlreadySpun
	case s.spinning || s.engine.IsAnimating():
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.spinning = true
	participantID := s.participant.ParticipantID
	s.drainLocked()
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.spinning = false
		s.mu.Unlock()
	}()

	s.engine.StartSpin()
	res, err := s.api.Spin(ctx, participantID)
	if err != nil {
		logger.Warningf("play: spin request failed: %v", err)
		s.engine.CancelAndStop(errorStop)
		if _, werr := s.waitForRest(ctx); werr != nil {
			return nil, werr
		}
		return nil, err
	}

	seg, ok := s.catalog.SegmentFor(res.Prize.Label)
	landing := 0.0
	if ok {
		landing = kinematics.LandingAngle(seg, s.src, s.reduced)
	}
	switch {
	case !ok:
		s.engine.CancelAndStop(errorStop)
		if _, werr := s.waitForRest(ctx); werr != nil {
			return nil, werr
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownPrize, res.Prize.Label)
	case res.AlreadySpun():
		s.engine.StopAt(landing, alreadySpunStop)
	default:
		s.engine.ResolveTo(landing)
	}

	st, err := s.waitForRest(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.hasSpun = true
	s.mu.Unlock()

	out := &Outcome{Prize: res.Prize, Existing: res.AlreadySpun(), Rotation: st.Angle}
	out.UnderPointer, _ = kinematics.SegmentUnderPointer(s.catalog.Segments(), st.Angle)
	return out, nil
}

// waitForRest blocks until the engine completes its braking trajectory. If ctx
// ends first the wheel is stopped quickly and ctx.Err returned.
func (s *Session) waitForRest(ctx context.Context) (kinematics.State, error) {
	select {
	case st := <-s.rest:
		return st, nil
	case <-ctx.Done():
		s.engine.CancelAndStop(s.engine.Config().MinCancel)
		return kinematics.State{}, ctx.Err()
	}
}
