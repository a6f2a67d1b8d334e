// Package store provides ledger.Store implementations: Postgres for shared,
// multi-process deployments and File for single-process local runs.
package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Ashenafi-pixel/lixi-wheel-server/ledger"
	"github.com/Ashenafi-pixel/lixi-wheel-server/prize"
)

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS participants (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	phone            TEXT NOT NULL,
	normalized_phone TEXT NOT NULL UNIQUE,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS spins (
	id             TEXT PRIMARY KEY,
	participant_id TEXT NOT NULL UNIQUE REFERENCES participants(id),
	prize_label    TEXT NOT NULL,
	prize_amount   BIGINT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_participants_created_at ON participants(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_spins_created_at ON spins(created_at DESC);
`

// Postgres stores participants and spins in two tables whose UNIQUE
// constraints serialize concurrent inserts across server processes.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Migrate creates the tables if they do not exist.
func (s *Postgres) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func (s *Postgres) scanParticipant(row *sql.Row) (*ledger.Participant, error) {
	var p ledger.Participant
	err := row.Scan(&p.ID, &p.Name, &p.Phone, &p.NormalizedPhone, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

func (s *Postgres) FindParticipantByID(ctx context.Context, id string) (*ledger.Participant, error) {
	return s.scanParticipant(s.db.QueryRowContext(ctx,
		`SELECT id, name, phone, normalized_phone, created_at FROM participants WHERE id = $1`, id))
}

func (s *Postgres) FindParticipantByPhone(ctx context.Context, normalized string) (*ledger.Participant, error) {
	return s.scanParticipant(s.db.QueryRowContext(ctx,
		`SELECT id, name, phone, normalized_phone, created_at FROM participants WHERE normalized_phone = $1`, normalized))
}

func (s *Postgres) InsertParticipant(ctx context.Context, p *ledger.Participant) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO participants (id, name, phone, normalized_phone, created_at) VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.Name, p.Phone, p.NormalizedPhone, p.CreatedAt)
	if isUniqueViolation(err) {
		return ledger.ErrDuplicate
	}
	return err
}

func (s *Postgres) FindAllocation(ctx context.Context, participantID string) (*ledger.Allocation, error) {
	var a ledger.Allocation
	var label string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, participant_id, prize_label, prize_amount, created_at FROM spins WHERE participant_id = $1`,
		participantID).Scan(&a.ID, &a.ParticipantID, &label, &a.PrizeAmount, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.PrizeLabel = prize.Label(label)
	a.CreatedAt = a.CreatedAt.UTC()
	return &a, nil
}

func (s *Postgres) InsertAllocation(ctx context.Context, a *ledger.Allocation) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO spins (id, participant_id, prize_label, prize_amount, created_at) VALUES ($1, $2, $3, $4, $5)`,
		a.ID, a.ParticipantID, string(a.PrizeLabel), a.PrizeAmount, a.CreatedAt)
	if isUniqueViolation(err) {
		return ledger.ErrDuplicate
	}
	return err
}

func (s *Postgres) ListEntries(ctx context.Context) ([]ledger.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.phone, p.created_at, s.prize_label, s.prize_amount, s.created_at
		FROM participants p
		LEFT JOIN spins s ON s.participant_id = p.id
		ORDER BY COALESCE(s.created_at, p.created_at) DESC, p.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Entry
	for rows.Next() {
		var (
			e      ledger.Entry
			label  sql.NullString
			amount sql.NullInt64
			spunAt sql.NullTime
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.Phone, &e.CreatedAt, &label, &amount, &spunAt); err != nil {
			return nil, err
		}
		e.CreatedAt = e.CreatedAt.UTC()
		if label.Valid {
			e.PrizeLabel = prize.Label(label.String)
			e.PrizeAmount = amount.Int64
		}
		if spunAt.Valid {
			t := spunAt.Time.UTC()
			e.SpunAt = &t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Ping reports whether the database is reachable.
func (s *Postgres) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.db.PingContext(ctx)
}
