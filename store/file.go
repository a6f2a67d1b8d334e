package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/logger"

	"github.com/Ashenafi-pixel/lixi-wheel-server/ledger"
)

// File keeps participants and allocations in memory and persists them to
// participants.json and allocations.json under the data dir. Uniqueness is
// enforced under a single mutex, so it is only safe for one process.
type File struct {
	mu           sync.Mutex
	dataDir      string
	participants map[string]*ledger.Participant
	byPhone      map[string]string
	allocations  map[string]*ledger.Allocation
}

func NewFile(dataDir string) (*File, error) {
	if dataDir == "" {
		dataDir = "data"
	}
	f := &File{
		dataDir:      dataDir,
		participants: make(map[string]*ledger.Participant),
		byPhone:      make(map[string]string),
		allocations:  make(map[string]*ledger.Allocation),
	}
	if err := f.load(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) participantsPath() string { return filepath.Join(f.dataDir, "participants.json") }
func (f *File) allocationsPath() string  { return filepath.Join(f.dataDir, "allocations.json") }

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, v)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (f *File) load() error {
	var ps []*ledger.Participant
	if err := readJSON(f.participantsPath(), &ps); err != nil {
		return err
	}
	for _, p := range ps {
		if p == nil || p.ID == "" {
			continue
		}
		f.participants[p.ID] = p
		f.byPhone[p.NormalizedPhone] = p.ID
	}
	var as []*ledger.Allocation
	if err := readJSON(f.allocationsPath(), &as); err != nil {
		return err
	}
	for _, a := range as {
		if a == nil || a.ParticipantID == "" {
			continue
		}
		f.allocations[a.ParticipantID] = a
	}
	logger.Infof("store: loaded %d participants, %d allocations from %s", len(f.participants), len(f.allocations), f.dataDir)
	return nil
}

func (f *File) saveParticipants() error {
	list := make([]*ledger.Participant, 0, len(f.participants))
	for _, p := range f.participants {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return writeJSON(f.participantsPath(), list)
}

func (f *File) saveAllocations() error {
	list := make([]*ledger.Allocation, 0, len(f.allocations))
	for _, a := range f.allocations {
		list = append(list, a)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return writeJSON(f.allocationsPath(), list)
}

func (f *File) FindParticipantByID(_ context.Context, id string) (*ledger.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.participants[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *File) FindParticipantByPhone(_ context.Context, normalized string) (*ledger.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byPhone[normalized]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	cp := *f.participants[id]
	return &cp, nil
}

func (f *File) InsertParticipant(_ context.Context, p *ledger.Participant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byPhone[p.NormalizedPhone]; ok {
		return ledger.ErrDuplicate
	}
	if _, ok := f.participants[p.ID]; ok {
		return ledger.ErrDuplicate
	}
	cp := *p
	f.participants[p.ID] = &cp
	f.byPhone[p.NormalizedPhone] = p.ID
	if err := f.saveParticipants(); err != nil {
		delete(f.participants, p.ID)
		delete(f.byPhone, p.NormalizedPhone)
		return err
	}
	return nil
}

func (f *File) FindAllocation(_ context.Context, participantID string) (*ledger.Allocation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.allocations[participantID]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *File) InsertAllocation(_ context.Context, a *ledger.Allocation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.allocations[a.ParticipantID]; ok {
		return ledger.ErrDuplicate
	}
	cp := *a
	f.allocations[a.ParticipantID] = &cp
	if err := f.saveAllocations(); err != nil {
		delete(f.allocations, a.ParticipantID)
		return err
	}
	return nil
}

func (f *File) ListEntries(_ context.Context) ([]ledger.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ledger.Entry, 0, len(f.participants))
	for _, p := range f.participants {
		e := ledger.Entry{ID: p.ID, Name: p.Name, Phone: p.Phone, CreatedAt: p.CreatedAt}
		if a, ok := f.allocations[p.ID]; ok {
			spunAt := a.CreatedAt
			e.PrizeLabel = a.PrizeLabel
			e.PrizeAmount = a.PrizeAmount
			e.SpunAt = &spunAt
		}
		out = append(out, e)
	}
	sortEntries(out)
	return out, nil
}

// sortEntries orders by last activity, newest first; ties break on id for stable output.
func sortEntries(entries []ledger.Entry) {
	sort.Slice(entries, func(i, j int) bool {
		ai, aj := entries[i].LastActivity(), entries[j].LastActivity()
		if !ai.Equal(aj) {
			return ai.After(aj)
		}
		return entries[i].ID < entries[j].ID
	})
}
