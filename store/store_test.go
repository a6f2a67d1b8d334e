package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	lixi "github.com/Ashenafi-pixel/lixi-wheel-server"
	"github.com/Ashenafi-pixel/lixi-wheel-server/ledger"
	"github.com/Ashenafi-pixel/lixi-wheel-server/prize"
)

// uniquePhone keeps reruns against a shared database from colliding.
func uniquePhone(prefix string) string {
	return fmt.Sprintf("%s%08d", prefix, time.Now().UnixNano()%100_000_000)
}

// exerciseStore runs the ledger.Store contract against s.
func exerciseStore(t *testing.T, s ledger.Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 1, 20, 8, 0, 0, 0, time.UTC)
	phoneA, phoneB := uniquePhone("09"), uniquePhone("08")

	a := &ledger.Participant{ID: uuid.New().String(), Name: "An", Phone: phoneA, NormalizedPhone: phoneA, CreatedAt: base}
	if err := s.InsertParticipant(ctx, a); err != nil {
		t.Fatalf("insert participant: %v", err)
	}
	dup := &ledger.Participant{ID: uuid.New().String(), Name: "Other", Phone: phoneA, NormalizedPhone: phoneA, CreatedAt: base}
	if err := s.InsertParticipant(ctx, dup); !errors.Is(err, ledger.ErrDuplicate) {
		t.Fatalf("duplicate phone: got %v want ErrDuplicate", err)
	}

	got, err := s.FindParticipantByPhone(ctx, phoneA)
	if err != nil || got.ID != a.ID || got.Name != "An" {
		t.Fatalf("find by phone: %+v, %v", got, err)
	}
	if _, err := s.FindParticipantByID(ctx, uuid.New().String()); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("unknown id: got %v want ErrNotFound", err)
	}
	if _, err := s.FindAllocation(ctx, a.ID); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("no allocation yet: got %v want ErrNotFound", err)
	}

	b := &ledger.Participant{ID: uuid.New().String(), Name: "Binh", Phone: phoneB, NormalizedPhone: phoneB, CreatedAt: base.Add(time.Minute)}
	if err := s.InsertParticipant(ctx, b); err != nil {
		t.Fatalf("insert participant b: %v", err)
	}

	alloc := &ledger.Allocation{ID: uuid.New().String(), ParticipantID: a.ID, PrizeLabel: prize.Label20K, PrizeAmount: 20000, CreatedAt: base.Add(2 * time.Minute)}
	if err := s.InsertAllocation(ctx, alloc); err != nil {
		t.Fatalf("insert allocation: %v", err)
	}
	second := &ledger.Allocation{ID: uuid.New().String(), ParticipantID: a.ID, PrizeLabel: prize.Label5K, PrizeAmount: 5000, CreatedAt: base.Add(3 * time.Minute)}
	if err := s.InsertAllocation(ctx, second); !errors.Is(err, ledger.ErrDuplicate) {
		t.Fatalf("second allocation: got %v want ErrDuplicate", err)
	}
	stored, err := s.FindAllocation(ctx, a.ID)
	if err != nil || stored.ID != alloc.ID || stored.PrizeLabel != prize.Label20K || stored.PrizeAmount != 20000 {
		t.Fatalf("find allocation: %+v, %v", stored, err)
	}

	entries, err := s.ListEntries(ctx)
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	var ia, ib = -1, -1
	for i, e := range entries {
		switch e.ID {
		case a.ID:
			ia = i
			if e.SpunAt == nil || e.PrizeLabel != prize.Label20K {
				t.Errorf("entry a missing spin: %+v", e)
			}
		case b.ID:
			ib = i
			if e.SpunAt != nil || e.PrizeLabel != "" {
				t.Errorf("entry b should have no spin: %+v", e)
			}
		}
	}
	if ia < 0 || ib < 0 {
		t.Fatalf("entries missing participants: %+v", entries)
	}
	if ia > ib {
		t.Errorf("participant with the latest spin should come first (a=%d b=%d)", ia, ib)
	}
}

func TestFile_Contract(t *testing.T) {
	s, err := NewFile(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	exerciseStore(t, s)
}

func TestFile_ReloadsFromDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	s, err := NewFile(dir)
	if err != nil {
		t.Fatal(err)
	}
	p := &ledger.Participant{ID: "p1", Name: "An", Phone: "0912345678", NormalizedPhone: "0912345678", CreatedAt: time.Now().UTC()}
	if err := s.InsertParticipant(ctx, p); err != nil {
		t.Fatal(err)
	}
	if err := s.InsertAllocation(ctx, &ledger.Allocation{ID: "a1", ParticipantID: "p1", PrizeLabel: prize.Label50K, PrizeAmount: 50000, CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewFile(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := reopened.InsertParticipant(ctx, &ledger.Participant{ID: "p2", NormalizedPhone: "0912345678"}); !errors.Is(err, ledger.ErrDuplicate) {
		t.Fatalf("reloaded store should keep phone uniqueness, got %v", err)
	}
	a, err := reopened.FindAllocation(ctx, "p1")
	if err != nil || a.PrizeLabel != prize.Label50K {
		t.Fatalf("reloaded allocation: %+v, %v", a, err)
	}
}

func TestFile_ConcurrentAllocationInserts(t *testing.T) {
	ctx := context.Background()
	s, err := NewFile(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.InsertParticipant(ctx, &ledger.Participant{ID: "p1", NormalizedPhone: "0912345678"}); err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.InsertAllocation(ctx, &ledger.Allocation{ID: uuid.New().String(), ParticipantID: "p1", PrizeLabel: prize.Label5K, PrizeAmount: 5000})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			} else if !errors.Is(err, ledger.ErrDuplicate) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("got %d successful inserts want 1", wins)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	wrapped := fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23505"})
	if !isUniqueViolation(wrapped) {
		t.Error("wrapped 23505 should be a unique violation")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Error("foreign key violation is not a unique violation")
	}
	if isUniqueViolation(errors.New("boom")) || isUniqueViolation(nil) {
		t.Error("plain errors are not unique violations")
	}
}

// TestPostgres_Contract runs against a real database when LIXI_TEST_DATABASE_URL is set.
func TestPostgres_Contract(t *testing.T) {
	dsn := os.Getenv("LIXI_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("LIXI_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := lixi.OpenDB(ctx, dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	s := NewPostgres(db)
	if err := s.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Ping(ctx); err != nil {
		t.Fatal(err)
	}
	exerciseStore(t, s)
}
