package prize

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// catalogFile is the on-disk catalog format.
type catalogFile struct {
	Tiers []Tier `json:"tiers" toml:"tiers"`
}

// LoadCatalog reads a catalog from a JSON file, or TOML when the name ends in
// .toml. A missing file yields the default catalog.
// The tier set is fixed once loaded; the process must restart to pick up changes.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultCatalog(), nil
		}
		return nil, err
	}
	var f catalogFile
	if isTOML(path) {
		err = toml.Unmarshal(data, &f)
	} else {
		err = json.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, fmt.Errorf("prize: parse %s: %w", path, err)
	}
	return NewCatalog(f.Tiers)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// SaveCatalog writes the catalog in the format LoadCatalog reads back for path.
func SaveCatalog(path string, c *Catalog) error {
	f := catalogFile{Tiers: c.Tiers()}
	var data []byte
	if isTOML(path) {
		var b strings.Builder
		if err := toml.NewEncoder(&b).Encode(f); err != nil {
			return err
		}
		data = []byte(b.String())
	} else {
		var err error
		if data, err = json.MarshalIndent(f, "", "  "); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
