package prize

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestNewCatalog_Invalid(t *testing.T) {
	if _, err := NewCatalog(nil); !errors.Is(err, ErrEmptyCatalog) {
		t.Fatalf("empty catalog: got %v", err)
	}
	if _, err := NewCatalog([]Tier{{Label: "A", Amount: 1, Weight: 0}}); !errors.Is(err, ErrInvalidWeight) {
		t.Fatalf("zero weight: got %v", err)
	}
	if _, err := NewCatalog([]Tier{{Label: "A", Amount: 0, Weight: 1}}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero amount: got %v", err)
	}
	dup := []Tier{{Label: "A", Amount: 1, Weight: 1}, {Label: "A", Amount: 2, Weight: 1}}
	if _, err := NewCatalog(dup); !errors.Is(err, ErrDuplicateLabel) {
		t.Fatalf("duplicate label: got %v", err)
	}
}

func TestSegments_DefaultCatalog(t *testing.T) {
	segs := DefaultCatalog().Segments()
	want := []struct {
		label Label
		sweep float64
	}{
		{Label5K, 162}, {Label10K, 100.8}, {Label20K, 57.6}, {Label50K, 28.8}, {Label100K, 10.8},
	}
	if len(segs) != len(want) {
		t.Fatalf("got %d segments want %d", len(segs), len(want))
	}
	if segs[0].StartAngle != 0 {
		t.Errorf("first segment starts at %v want 0", segs[0].StartAngle)
	}
	for i, w := range want {
		s := segs[i]
		if s.Label != w.label {
			t.Errorf("segment %d label %q want %q", i, s.Label, w.label)
		}
		if math.Abs(s.Sweep-w.sweep) > 1e-9 {
			t.Errorf("segment %s sweep %v want %v", s.Label, s.Sweep, w.sweep)
		}
		if math.Abs(s.CenterAngle-(s.StartAngle+s.Sweep/2)) > 1e-9 {
			t.Errorf("segment %s center %v not midpoint", s.Label, s.CenterAngle)
		}
	}
}

func TestSegments_ContiguousCoverage(t *testing.T) {
	catalogs := [][]int64{
		{1},
		{1, 1, 1},
		{7, 3, 11, 13},
		{1, 1000, 1},
		{45, 28, 16, 8, 3},
	}
	for _, weights := range catalogs {
		tiers := make([]Tier, len(weights))
		for i, w := range weights {
			tiers[i] = Tier{Label: Label(rune('A' + i)), Amount: 1, Weight: w}
		}
		c, err := NewCatalog(tiers)
		if err != nil {
			t.Fatal(err)
		}
		segs := c.Segments()
		sum := 0.0
		prevEnd := 0.0
		for i, s := range segs {
			if s.StartAngle != prevEnd {
				t.Errorf("weights %v: segment %d starts at %v, previous ended at %v", weights, i, s.StartAngle, prevEnd)
			}
			if s.EndAngle <= s.StartAngle {
				t.Errorf("weights %v: segment %d has empty sweep", weights, i)
			}
			sum += s.Sweep
			prevEnd = s.EndAngle
		}
		if math.Abs(sum-360) > 1e-9 {
			t.Errorf("weights %v: sweeps sum to %v", weights, sum)
		}
		if prevEnd != 360 {
			t.Errorf("weights %v: last segment ends at %v", weights, prevEnd)
		}
	}
}

func TestPick_IntervalFractions(t *testing.T) {
	c := DefaultCatalog()
	const steps = 100_000
	count := map[Label]int{}
	for i := 0; i < steps; i++ {
		count[c.Pick(float64(i)/steps).Label]++
	}
	for _, tier := range c.Tiers() {
		got := float64(count[tier.Label]) / steps
		want := float64(tier.Weight) / float64(c.TotalWeight())
		if math.Abs(got-want) > 1e-4 {
			t.Errorf("%s fraction %.5f want %.5f", tier.Label, got, want)
		}
	}
}

func TestPick_Boundaries(t *testing.T) {
	c := DefaultCatalog()
	if got := c.Pick(0).Label; got != Label5K {
		t.Errorf("Pick(0) = %s want 5K", got)
	}
	if got := c.Pick(0.4499).Label; got != Label5K {
		t.Errorf("Pick(0.4499) = %s want 5K", got)
	}
	if got := c.Pick(0.45).Label; got != Label10K {
		t.Errorf("Pick(0.45) = %s want 10K", got)
	}
	if got := c.Pick(math.Nextafter(1, 0)).Label; got != Label100K {
		t.Errorf("Pick(1-ε) = %s want 100K", got)
	}
	// Out-of-range input falls back to the last tier instead of failing.
	if got := c.Pick(1).Label; got != Label100K {
		t.Errorf("Pick(1) = %s want 100K", got)
	}
}

func TestDraw_FixedSource(t *testing.T) {
	c := DefaultCatalog()
	for i := 0; i < 10; i++ {
		if got := c.Draw(FixedSource(0.99)).Label; got != Label100K {
			t.Fatalf("Draw(0.99) = %s want 100K", got)
		}
	}
}

func TestDraw_SecureDistribution(t *testing.T) {
	c := DefaultCatalog()
	const rounds = 100_000
	count := map[Label]int{}
	for i := 0; i < rounds; i++ {
		count[c.Draw(nil).Label]++
	}
	if p := float64(count[Label5K]) / rounds; p < 0.43 || p > 0.47 {
		t.Errorf("5K proportion %.4f want ~0.45", p)
	}
	if p := float64(count[Label100K]) / rounds; p < 0.02 || p > 0.04 {
		t.Errorf("100K proportion %.4f want ~0.03", p)
	}
}

func TestSecureSource_Range(t *testing.T) {
	var s SecureSource
	for i := 0; i < 10_000; i++ {
		v := s.Float64()
		if v < 0 || v >= 1 {
			t.Fatalf("Float64() = %v out of [0,1)", v)
		}
	}
}

func TestMatches(t *testing.T) {
	c := DefaultCatalog()
	if !c.Matches(Label20K, 20000) {
		t.Error("20K/20000 should match")
	}
	if c.Matches(Label20K, 5000) {
		t.Error("20K/5000 should not match")
	}
	if c.Matches("1M", 1000000) {
		t.Error("unknown label should not match")
	}
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()

	c, err := LoadCatalog(filepath.Join(dir, "missing.json"))
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Tiers()) != 5 {
		t.Errorf("missing file should load defaults, got %d tiers", len(c.Tiers()))
	}

	custom, err := NewCatalog([]Tier{
		{Label: "A", Amount: 100, Weight: 3},
		{Label: "B", Amount: 200, Weight: 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "catalog", "prizes.json")
	if err := SaveCatalog(path, custom); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadCatalog(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.TotalWeight() != 4 {
		t.Errorf("total weight %d want 4", loaded.TotalWeight())
	}
	if seg, ok := loaded.SegmentFor("B"); !ok || seg.StartAngle != 270 {
		t.Errorf("segment B = %+v, %v", seg, ok)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"tiers":[{"label":"X","amount":1,"weight":-1}]}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCatalog(bad); !errors.Is(err, ErrInvalidWeight) {
		t.Errorf("negative weight: got %v", err)
	}
}

func TestLoadCatalog_TOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prizes.toml")
	src := `
[[tiers]]
label = "5K"
amount = 5000
weight = 3
color = "#f5c542"

[[tiers]]
label = "100K"
amount = 100000
weight = 1
text_color = "#ffffff"
`
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatal(err)
	}
	if !c.Matches(Label100K, 100000) || c.TotalWeight() != 4 {
		t.Fatalf("unexpected catalog: %+v", c.Tiers())
	}
	if tier, _ := c.Lookup(Label5K); tier.Color != "#f5c542" {
		t.Errorf("color = %q", tier.Color)
	}
	if tier, _ := c.Lookup(Label100K); tier.TextColor != "#ffffff" {
		t.Errorf("text color = %q", tier.TextColor)
	}

	out := filepath.Join(dir, "copy.toml")
	if err := SaveCatalog(out, c); err != nil {
		t.Fatal(err)
	}
	again, err := LoadCatalog(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(again.Tiers()) != 2 || again.TotalWeight() != 4 {
		t.Errorf("saved TOML reloaded as %+v", again.Tiers())
	}
}
