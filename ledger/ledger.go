// Package ledger allocates at most one prize per participant. Uniqueness is
// enforced by the Store; the ledger turns a rejected duplicate insert into the
// idempotent "already exists" result instead of an error.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/logger"
	"github.com/google/uuid"

	"github.com/Ashenafi-pixel/lixi-wheel-server/phone"
	"github.com/Ashenafi-pixel/lixi-wheel-server/prize"
)

var (
	// ErrNotFound is returned when a participant or allocation does not exist.
	ErrNotFound = errors.New("ledger: not found")
	// ErrDuplicate is returned by a Store when an insert violates a uniqueness constraint.
	ErrDuplicate = errors.New("ledger: duplicate")
	// ErrInvalidPhone is returned by Register for numbers that do not normalize to a local number.
	ErrInvalidPhone = errors.New("ledger: invalid phone")
)

// Status of an allocation request.
type Status string

const (
	StatusOK          Status = "ok"
	StatusAlreadySpun Status = "already_spun"
)

type Participant struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Phone           string    `json:"phone"`
	NormalizedPhone string    `json:"normalizedPhone"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Allocation binds one participant to the one prize they drew. Never mutated.
type Allocation struct {
	ID            string      `json:"id"`
	ParticipantID string      `json:"participantId"`
	PrizeLabel    prize.Label `json:"prizeLabel"`
	PrizeAmount   int64       `json:"prizeAmount"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// Entry is one row of the reporting view: a participant and their allocation, if any.
type Entry struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Phone       string      `json:"phone"`
	PrizeLabel  prize.Label `json:"prizeLabel,omitempty"`
	PrizeAmount int64       `json:"prizeAmount,omitempty"`
	SpunAt      *time.Time  `json:"spunAt,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// LastActivity is the spin time if present, else the registration time.
func (e Entry) LastActivity() time.Time {
	if e.SpunAt != nil {
		return *e.SpunAt
	}
	return e.CreatedAt
}

// Store persists participants and allocations. Implementations must reject a
// second participant with the same NormalizedPhone and a second allocation for
// the same ParticipantID with ErrDuplicate, atomically, so concurrent callers
// across processes sharing the store see exactly one winner. Lookups that find
// nothing return ErrNotFound.
type Store interface {
	FindParticipantByID(ctx context.Context, id string) (*Participant, error)
	FindParticipantByPhone(ctx context.Context, normalizedPhone string) (*Participant, error)
	InsertParticipant(ctx context.Context, p *Participant) error
	FindAllocation(ctx context.Context, participantID string) (*Allocation, error)
	InsertAllocation(ctx context.Context, a *Allocation) error
	// ListEntries returns every participant ordered by LastActivity, most recent first.
	ListEntries(ctx context.Context) ([]Entry, error)
}

type RegisterResult struct {
	Participant     *Participant
	Allocation      *Allocation // nil until the participant has spun
	IsExistingPhone bool
}

func (r RegisterResult) HasSpun() bool { return r.Allocation != nil }

type AllocateResult struct {
	Status     Status
	Allocation *Allocation
}

// Ledger is safe for concurrent use; it holds no mutable state of its own.
type Ledger struct {
	store   Store
	catalog *prize.Catalog
	src     prize.Source
	now     func() time.Time
	newID   func() string
}

type Option func(*Ledger)

// WithSource sets the random source used for prize draws.
func WithSource(src prize.Source) Option {
	return func(l *Ledger) { l.src = src }
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func New(store Store, catalog *prize.Catalog, opts ...Option) *Ledger {
	l := &Ledger{
		store:   store,
		catalog: catalog,
		src:     prize.SecureSource{},
		now:     func() time.Time { return time.Now().UTC() },
		newID:   func() string { return uuid.New().String() },
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *Ledger) Catalog() *prize.Catalog { return l.catalog }

// Register creates the participant for the normalized phone or returns the
// existing one. Retrying or double-submitting is safe.
func (l *Ledger) Register(ctx context.Context, name, rawPhone string) (RegisterResult, error) {
	normalized := phone.Normalize(rawPhone)
	if !phone.Valid(normalized) {
		return RegisterResult{}, ErrInvalidPhone
	}

	existing, err := l.store.FindParticipantByPhone(ctx, normalized)
	switch {
	case err == nil:
		return l.existingParticipant(ctx, existing)
	case !errors.Is(err, ErrNotFound):
		return RegisterResult{}, fmt.Errorf("find participant by phone: %w", err)
	}

	p := &Participant{
		ID:              l.newID(),
		Name:            strings.TrimSpace(name),
		Phone:           strings.TrimSpace(rawPhone),
		NormalizedPhone: normalized,
		CreatedAt:       l.now(),
	}
	err = l.store.InsertParticipant(ctx, p)
	switch {
	case err == nil:
		logger.Infof("ledger: registered participant %s phone=%s", p.ID, phone.Mask(normalized))
		return RegisterResult{Participant: p}, nil
	case errors.Is(err, ErrDuplicate):
		// Lost the race to a concurrent registration for the same phone.
		existing, err := l.store.FindParticipantByPhone(ctx, normalized)
		if err != nil {
			return RegisterResult{}, fmt.Errorf("re-read participant after duplicate: %w", err)
		}
		return l.existingParticipant(ctx, existing)
	default:
		return RegisterResult{}, fmt.Errorf("insert participant: %w", err)
	}
}

func (l *Ledger) existingParticipant(ctx context.Context, p *Participant) (RegisterResult, error) {
	a, err := l.findAllocation(ctx, p.ID)
	if err != nil {
		return RegisterResult{}, err
	}
	return RegisterResult{Participant: p, Allocation: a, IsExistingPhone: true}, nil
}

// findAllocation returns nil, nil when the participant has not spun.
func (l *Ledger) findAllocation(ctx context.Context, participantID string) (*Allocation, error) {
	a, err := l.store.FindAllocation(ctx, participantID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find allocation: %w", err)
	}
	return a, nil
}

// Allocate returns the participant's prize, drawing and persisting one on the
// first call. Later calls, including ones racing the first, return StatusAlreadySpun
// with the same allocation. Unknown participants fail with ErrNotFound.
func (l *Ledger) Allocate(ctx context.Context, participantID string) (AllocateResult, error) {
	if _, err := l.store.FindParticipantByID(ctx, participantID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return AllocateResult{}, fmt.Errorf("participant %s: %w", participantID, ErrNotFound)
		}
		return AllocateResult{}, fmt.Errorf("find participant: %w", err)
	}

	existing, err := l.findAllocation(ctx, participantID)
	if err != nil {
		return AllocateResult{}, err
	}
	if existing != nil {
		return AllocateResult{Status: StatusAlreadySpun, Allocation: existing}, nil
	}

	tier := l.catalog.Draw(l.src)
	a := &Allocation{
		ID:            l.newID(),
		ParticipantID: participantID,
		PrizeLabel:    tier.Label,
		PrizeAmount:   tier.Amount,
		CreatedAt:     l.now(),
	}
	err = l.store.InsertAllocation(ctx, a)
	switch {
	case err == nil:
		logger.Infof("ledger: allocated %s to participant %s", a.PrizeLabel, participantID)
		return AllocateResult{Status: StatusOK, Allocation: a}, nil
	case errors.Is(err, ErrDuplicate):
		winner, err := l.findAllocation(ctx, participantID)
		if err != nil {
			return AllocateResult{}, err
		}
		if winner == nil {
			return AllocateResult{}, fmt.Errorf("allocation for %s vanished after duplicate insert", participantID)
		}
		logger.Infof("ledger: concurrent spin for participant %s resolved to existing %s", participantID, winner.PrizeLabel)
		return AllocateResult{Status: StatusAlreadySpun, Allocation: winner}, nil
	default:
		return AllocateResult{}, fmt.Errorf("insert allocation: %w", err)
	}
}

func (l *Ledger) ListEntries(ctx context.Context) ([]Entry, error) {
	entries, err := l.store.ListEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}
