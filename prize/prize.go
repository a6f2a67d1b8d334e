package prize

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
)

// Label identifies a prize tier on the wheel.
type Label string

const (
	Label5K   Label = "5K"
	Label10K  Label = "10K"
	Label20K  Label = "20K"
	Label50K  Label = "50K"
	Label100K Label = "100K"
)

// Tier is one discrete prize outcome with a relative draw weight.
type Tier struct {
	Label     Label  `json:"label" toml:"label"`
	Amount    int64  `json:"amount" toml:"amount"`
	Weight    int64  `json:"weight" toml:"weight"`
	Color     string `json:"color,omitempty" toml:"color"`
	TextColor string `json:"textColor,omitempty" toml:"text_color"`
}

// Segment is the angular wedge of the wheel assigned to one tier. Angles are in degrees.
type Segment struct {
	Tier
	StartAngle  float64 `json:"startAngle"`
	EndAngle    float64 `json:"endAngle"`
	CenterAngle float64 `json:"centerAngle"`
	Sweep       float64 `json:"sweep"`
}

var (
	ErrEmptyCatalog   = errors.New("prize: catalog has no tiers")
	ErrInvalidWeight  = errors.New("prize: tier weight must be positive")
	ErrInvalidAmount  = errors.New("prize: tier amount must be positive")
	ErrDuplicateLabel = errors.New("prize: duplicate tier label")
)

// Catalog is the ordered, immutable set of tiers. Build it with NewCatalog or DefaultCatalog.
type Catalog struct {
	tiers []Tier
	total int64
}

var defaultTiers = []Tier{
	{Label: Label5K, Amount: 5000, Weight: 45, Color: "#de1f26", TextColor: "#fff8d6"},
	{Label: Label10K, Amount: 10000, Weight: 28, Color: "#f57c0d", TextColor: "#fff8d6"},
	{Label: Label20K, Amount: 20000, Weight: 16, Color: "#f3bb33", TextColor: "#6d1501"},
	{Label: Label50K, Amount: 50000, Weight: 8, Color: "#0d8f7a", TextColor: "#fff8d6"},
	{Label: Label100K, Amount: 100000, Weight: 3, Color: "#005f73", TextColor: "#fff8d6"},
}

// DefaultCatalog returns the five-tier lucky money catalog (total weight 100).
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(defaultTiers)
	if err != nil {
		panic(err)
	}
	return c
}

// NewCatalog validates tiers and returns a catalog that keeps their order.
func NewCatalog(tiers []Tier) (*Catalog, error) {
	if len(tiers) == 0 {
		return nil, ErrEmptyCatalog
	}
	seen := make(map[Label]bool, len(tiers))
	var total int64
	for _, t := range tiers {
		if t.Weight <= 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidWeight, t.Label)
		}
		if t.Amount <= 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, t.Label)
		}
		if seen[t.Label] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateLabel, t.Label)
		}
		seen[t.Label] = true
		total += t.Weight
	}
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	return &Catalog{tiers: out, total: total}, nil
}

// Tiers returns a copy of the tiers in catalog order.
func (c *Catalog) Tiers() []Tier {
	out := make([]Tier, len(c.tiers))
	copy(out, c.tiers)
	return out
}

func (c *Catalog) TotalWeight() int64 { return c.total }

// Lookup returns the tier with the given label.
func (c *Catalog) Lookup(label Label) (Tier, bool) {
	for _, t := range c.tiers {
		if t.Label == label {
			return t, true
		}
	}
	return Tier{}, false
}

// Matches reports whether (label, amount) names a real tier of this catalog.
func (c *Catalog) Matches(label Label, amount int64) bool {
	t, ok := c.Lookup(label)
	return ok && t.Amount == amount
}

// Segments partitions [0, 360) proportionally to weight, in catalog order starting at 0.
// The last segment ends at exactly 360.
func (c *Catalog) Segments() []Segment {
	out := make([]Segment, 0, len(c.tiers))
	current := 0.0
	var cum int64
	for i, t := range c.tiers {
		cum += t.Weight
		end := float64(cum) / float64(c.total) * 360
		if i == len(c.tiers)-1 {
			end = 360
		}
		sweep := end - current
		out = append(out, Segment{
			Tier:        t,
			StartAngle:  current,
			EndAngle:    end,
			CenterAngle: current + sweep/2,
			Sweep:       sweep,
		})
		current = end
	}
	return out
}

// SegmentFor returns the segment of the tier with the given label.
func (c *Catalog) SegmentFor(label Label) (Segment, bool) {
	for _, s := range c.Segments() {
		if s.Label == label {
			return s, true
		}
	}
	return Segment{}, false
}

// Pick maps r in [0, 1) onto the cumulative weights. Values at or past the end
// (rounding, or r >= 1) fall back to the last tier.
func (c *Catalog) Pick(r float64) Tier {
	point := r * float64(c.total)
	var cum int64
	for _, t := range c.tiers {
		cum += t.Weight
		if point < float64(cum) {
			return t
		}
	}
	return c.tiers[len(c.tiers)-1]
}

// Source yields uniform values in [0, 1).
type Source interface {
	Float64() float64
}

// Draw picks a tier using src, or a CSPRNG source when src is nil.
func (c *Catalog) Draw(src Source) Tier {
	if src == nil {
		src = SecureSource{}
	}
	return c.Pick(src.Float64())
}

// SecureSource draws from crypto/rand.
type SecureSource struct{}

func (SecureSource) Float64() float64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0
	}
	// 53 random bits scaled into [0, 1).
	return float64(binary.BigEndian.Uint64(b[:])>>11) / (1 << 53)
}

// FixedSource always returns the same value. Useful for deterministic draws.
type FixedSource float64

func (f FixedSource) Float64() float64 { return float64(f) }
