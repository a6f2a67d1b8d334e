// Package kinematics animates the prize wheel: a free spin while the result is
// unknown, then a constant-deceleration braking trajectory that comes to rest
// exactly on a requested angle.
//
// Rotation is clockwise and the pointer sits at wheel angle 0, so a wheel at
// rotation r shows the wheel angle (360 - r) mod 360 under the pointer.
package kinematics

import (
	"math"
	"sync"
	"time"

	"github.com/Ashenafi-pixel/lixi-wheel-server/prize"
)

type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseFree    Phase = "free"
	PhaseBraking Phase = "braking"
)

type State struct {
	Angle    float64 // absolute rotation, unbounded
	Velocity float64
	Phase    Phase
}

// brakePlan is a closed-form constant-deceleration trajectory:
// θ(t) = theta0 + omega0·t + ½·alpha·t², ω(t) = omega0 + alpha·t, alpha = -omega0/duration.
type brakePlan struct {
	start    time.Duration
	duration float64 // seconds
	theta0   float64
	omega0   float64
	alpha    float64
	target   float64
	turns    int
}

func (p *brakePlan) at(elapsed float64) (angle, omega float64) {
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > p.duration {
		elapsed = p.duration
	}
	angle = p.theta0 + p.omega0*elapsed + 0.5*p.alpha*elapsed*elapsed
	omega = math.Max(0, p.omega0+p.alpha*elapsed)
	return angle, omega
}

// Engine owns one wheel's angle and velocity. Methods are safe to call from
// any goroutine; callbacks run without the engine lock held.
type Engine struct {
	mu    sync.Mutex
	cfg   Config
	sched Scheduler
	src   prize.Source

	angle     float64
	omega     float64
	phase     Phase
	lastTick  time.Duration
	spinStart time.Duration
	plan      *brakePlan

	frame     FrameID
	scheduled bool
	gen       uint64

	onUpdate   func(State)
	onComplete func(State)
}

type Option func(*Engine)

func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithSource sets the random source for the initial impulse.
func WithSource(src prize.Source) Option {
	return func(e *Engine) { e.src = src }
}

// OnUpdate registers fn to receive the state after every simulated frame.
func OnUpdate(fn func(State)) Option {
	return func(e *Engine) { e.onUpdate = fn }
}

// OnComplete registers fn to run once each time a braking trajectory reaches rest.
func OnComplete(fn func(State)) Option {
	return func(e *Engine) { e.onComplete = fn }
}

func New(sched Scheduler, opts ...Option) *Engine {
	e := &Engine{
		cfg:   DefaultConfig(),
		sched: sched,
		src:   prize.SecureSource{},
		phase: PhaseIdle,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

func (e *Engine) SetReducedMotion(on bool) {
	e.mu.Lock()
	e.cfg.ReducedMotion = on
	e.mu.Unlock()
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{Angle: e.angle, Velocity: e.omega, Phase: e.phase}
}

func (e *Engine) IsAnimating() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase != PhaseIdle
}

// StartSpin enters the free phase with a random impulse. It runs until ResolveTo,
// CancelAndStop or Reset is called.
func (e *Engine) StartSpin() {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.sched.Now()
	e.syncLocked(now)
	e.spinStart = now
	e.plan = nil
	e.phase = PhaseFree
	e.omega = e.cfg.ImpulseMin + e.src.Float64()*(e.cfg.ImpulseMax-e.cfg.ImpulseMin)
	e.lastTick = now
	e.rescheduleLocked()
}

// ResolveTo brakes so the wheel rests with landing (a wheel angle, degrees) under
// the pointer. Called from idle it first starts a minimum-impulse spin.
func (e *Engine) ResolveTo(landing float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.sched.Now()
	if e.phase == PhaseIdle {
		e.spinStart = now
		e.phase = PhaseFree
		e.omega = e.cfg.ImpulseMin
		e.lastTick = now
	} else {
		e.syncLocked(now)
	}
	p := planBraking(e.cfg, e.angle, e.omega, now-e.spinStart, landing)
	p.start = now
	e.plan = &p
	e.omega = p.omega0
	e.phase = PhaseBraking
	e.rescheduleLocked()
}

// CancelAndStop brakes to rest over d (CancelDuration when d <= 0) at whatever
// angle that yields. Callable from any phase.
func (e *Engine) CancelAndStop(d time.Duration) {
	if d <= 0 {
		d = e.Config().CancelDuration
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if d < e.cfg.MinCancel {
		d = e.cfg.MinCancel
	}
	now := e.sched.Now()
	e.syncLocked(now)
	secs := d.Seconds()
	omega := math.Max(0, e.omega)
	alpha := 0.0
	if omega > 0 {
		alpha = -omega / secs
	}
	e.plan = &brakePlan{
		start:    now,
		duration: secs,
		theta0:   e.angle,
		omega0:   omega,
		alpha:    alpha,
		target:   e.angle + 0.5*omega*secs,
	}
	e.phase = PhaseBraking
	e.rescheduleLocked()
}

// StopAt brakes over roughly d so the wheel rests with landing under the
// pointer. It is the early stop for a result known in advance: the turn count
// is the one whose stopping distance best matches the current velocity over d.
func (e *Engine) StopAt(landing float64, d time.Duration) {
	if d <= 0 {
		d = e.Config().CancelDuration
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if d < e.cfg.MinCancel {
		d = e.cfg.MinCancel
	}
	now := e.sched.Now()
	e.syncLocked(now)
	p := planStop(e.angle, e.omega, d.Seconds(), landing)
	p.start = now
	e.plan = &p
	e.omega = p.omega0
	e.phase = PhaseBraking
	e.rescheduleLocked()
}

// planStop keeps omega when the resulting duration stays within [d/2, 2d];
// otherwise it brakes over exactly d from whatever start velocity that needs.
func planStop(angle, omega, d, landing float64) brakePlan {
	if math.IsNaN(landing) || math.IsInf(landing, 0) {
		landing = 0
	}
	base := normalize(360 - landing - normalize(angle))
	ideal := math.Max(0, omega) * d / 2
	turns := 0
	if ideal > base {
		turns = int(math.Round((ideal - base) / 360))
	}
	distance := base + float64(turns)*360

	omega0, duration := 0.0, d
	if distance > 0 {
		if omega > 0 {
			duration = 2 * distance / omega
		}
		if omega > 0 && duration >= d/2 && duration <= 2*d {
			omega0 = omega
		} else {
			duration = d
			omega0 = 2 * distance / d
		}
	}
	alpha := 0.0
	if omega0 > 0 {
		alpha = -omega0 / duration
	}
	return brakePlan{
		duration: duration,
		theta0:   angle,
		omega0:   omega0,
		alpha:    alpha,
		target:   angle + distance,
		turns:    turns,
	}
}

// Reset stops any animation and leaves the wheel idle at angle (0 if not finite).
func (e *Engine) Reset(angle float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelFrameLocked()
	if math.IsNaN(angle) || math.IsInf(angle, 0) {
		angle = 0
	}
	e.angle = angle
	e.omega = 0
	e.phase = PhaseIdle
	e.spinStart = 0
	e.plan = nil
}

// syncLocked brings angle and velocity up to now without changing phase.
func (e *Engine) syncLocked(now time.Duration) {
	switch e.phase {
	case PhaseFree:
		e.stepFreeLocked(now)
	case PhaseBraking:
		if e.plan != nil {
			e.angle, e.omega = e.plan.at((now - e.plan.start).Seconds())
		}
	}
}

func (e *Engine) stepFreeLocked(now time.Duration) {
	dt := now - e.lastTick
	if dt < 0 {
		dt = 0
	}
	if dt > e.cfg.MaxStep {
		dt = e.cfg.MaxStep
	}
	e.lastTick = now
	secs := dt.Seconds()
	alpha := -(e.cfg.Friction + e.cfg.Drag*e.omega)
	e.omega = math.Max(0, e.omega+alpha*secs)
	e.angle += e.omega * secs
}

func (e *Engine) cancelFrameLocked() {
	if e.scheduled {
		e.sched.CancelFrame(e.frame)
		e.scheduled = false
	}
	e.gen++
}

// rescheduleLocked drops any pending frame and requests a fresh one.
func (e *Engine) rescheduleLocked() {
	e.cancelFrameLocked()
	e.requestLocked()
}

func (e *Engine) requestLocked() {
	gen := e.gen
	e.scheduled = true
	e.frame = e.sched.RequestFrame(func(now time.Duration) { e.tick(gen, now) })
}

func (e *Engine) tick(gen uint64, now time.Duration) {
	e.mu.Lock()
	if gen != e.gen || !e.scheduled {
		e.mu.Unlock()
		return
	}
	e.scheduled = false

	var done bool
	switch e.phase {
	case PhaseFree:
		e.stepFreeLocked(now)
		e.requestLocked()
	case PhaseBraking:
		if e.plan == nil {
			e.phase = PhaseIdle
			break
		}
		elapsed := (now - e.plan.start).Seconds()
		if elapsed >= e.plan.duration {
			e.angle = e.plan.target
			e.omega = 0
			e.phase = PhaseIdle
			e.plan = nil
			e.gen++
			done = true
			break
		}
		e.angle, e.omega = e.plan.at(elapsed)
		e.requestLocked()
	}
	st := State{Angle: e.angle, Velocity: e.omega, Phase: e.phase}
	onUpdate, onComplete := e.onUpdate, e.onComplete
	e.mu.Unlock()

	if onUpdate != nil {
		onUpdate(st)
	}
	if done && onComplete != nil {
		onComplete(st)
	}
}

// planBraking chooses a constant-deceleration trajectory from (angle, omega)
// that rests at a rotation ≡ 360 - landing (mod 360). sinceStart is the time
// already spent spinning.
//
// The turn count k follows the velocity-matching rule: with the planned
// duration T, pick the k whose required start velocity 2·D_k/T is admissible
// and closest to omega. When omega itself is admissible the trajectory keeps
// it and stretches the duration to 2·D_k/omega instead, which is the duration
// closest to T among the candidates, so the handoff has no velocity jump.
func planBraking(cfg Config, angle, omega float64, sinceStart time.Duration, landing float64) brakePlan {
	if math.IsNaN(landing) || math.IsInf(landing, 0) {
		landing = 0
	}
	remaining := cfg.targetTotal() - sinceStart
	if remaining < cfg.MinBrake {
		remaining = cfg.MinBrake
	}
	planned := remaining.Seconds()
	ref := math.Max(omega, cfg.MinVelocity)

	base := normalize(360 - landing - normalize(angle))

	turns, distance, required := -1, 0.0, 0.0
	best := math.Inf(1)
	for k := cfg.MinTurns; k <= cfg.MaxTurns; k++ {
		d := base + float64(k)*360
		w := 2 * d / planned
		if w < cfg.MinVelocity || w > cfg.MaxVelocity {
			continue
		}
		if score := math.Abs(w - ref); score < best {
			best, turns, distance, required = score, k, d, w
		}
	}

	var omega0, duration float64
	switch {
	case turns < 0:
		// Nothing admissible: minimum turns at a clamped velocity, duration
		// adjusted so the trajectory still ends on the target.
		turns = cfg.MinTurns
		distance = base + float64(turns)*360
		omega0 = clamp(2*distance/planned, cfg.MinVelocity, cfg.MaxVelocity)
		duration = 2 * distance / omega0
	case omega >= cfg.MinVelocity && omega <= cfg.MaxVelocity && 2*distance/omega >= cfg.MinBrake.Seconds():
		omega0 = omega
		duration = 2 * distance / omega
	default:
		omega0 = required
		duration = planned
	}

	return brakePlan{
		duration: duration,
		theta0:   angle,
		omega0:   omega0,
		alpha:    -omega0 / duration,
		target:   angle + distance,
		turns:    turns,
	}
}

func normalize(deg float64) float64 {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0
	}
	r := math.Mod(deg, 360)
	if r < 0 {
		r += 360
	}
	if r >= 360 {
		r = 0
	}
	return r
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
