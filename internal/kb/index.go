package kb

import (
	"encoding/json"
	"fmt"
	"os"
)

// Facility is one entry of the facility catalog
type Facility struct {
	Tipologia   string   `json:"tipologia"`
	Comune      string   `json:"comune"`
	Nome        string   `json:"nome"`
	TipoAccesso string   `json:"tipo_accesso"`
	Contatti    Contatti `json:"contatti"`
}

// Contatti holds facility contact details
type Contatti struct {
	Telefono string `json:"telefono"`
}

type catalog struct {
	Facilities []Facility `json:"facilities"`
}

// Index is the facility catalog grouped by tipologia. Built once at
// startup, read-only afterwards and safe for concurrent use.
type Index struct {
	byType map[string][]Facility
	total  int
}

// Load reads the JSON catalog at path and builds the index
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	var c catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}

	return NewIndex(c.Facilities), nil
}

// LoadOrEmpty builds the index from path, degrading to an empty index when
// the catalog is missing or malformed. The returned error carries the cause
// for a one-time operator warning; routing still works, specialized
// searches just never match.
func LoadOrEmpty(path string) (*Index, error) {
	idx, err := Load(path)
	if err != nil {
		return NewIndex(nil), err
	}
	return idx, nil
}

// NewIndex builds an index from an in-memory facility list
func NewIndex(facilities []Facility) *Index {
	byType := make(map[string][]Facility)
	for _, f := range facilities {
		tipologia := f.Tipologia
		if tipologia == "" {
			tipologia = "Unknown"
		}
		byType[tipologia] = append(byType[tipologia], f)
	}
	return &Index{byType: byType, total: len(facilities)}
}

// ByType returns the facilities of a tipologia, in catalog order
func (i *Index) ByType(tipologia string) []Facility {
	return i.byType[tipologia]
}

// Len returns the total number of facilities in the index
func (i *Index) Len() int {
	return i.total
}

// Types returns the distinct tipologie present in the catalog
func (i *Index) Types() []string {
	types := make([]string, 0, len(i.byType))
	for t := range i.byType {
		types = append(types, t)
	}
	return types
}
