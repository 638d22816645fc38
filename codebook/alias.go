package codebook

import (
	"encoding/json"
	"fmt"
	"os"
)

// AliasTable maps every known alias (primaries included) to its canonical
// primary identifier.
type AliasTable map[string]string

type aliasEntry struct {
	Primary string   `json:"primary"`
	Aliases []string `json:"aliases"`
}

// LoadAliasTable reads an alias mapping file: a JSON array of
// {primary, aliases} entries. Each primary maps to itself.
func LoadAliasTable(path string) (AliasTable, error) {
	if path == "" {
		return nil, fmt.Errorf("LoadAliasTable: path is empty")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadAliasTable: read file: %w", err)
	}

	var entries []aliasEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("LoadAliasTable: unmarshal %s: %w", path, err)
	}

	table := make(AliasTable)
	for _, e := range entries {
		if e.Primary == "" {
			continue
		}
		table[e.Primary] = e.Primary
		for _, a := range e.Aliases {
			if a != "" {
				table[a] = e.Primary
			}
		}
	}
	return table, nil
}

// Canonicalize maps name through the table; unknown names pass through
// unchanged. A nil table is valid and maps everything to itself.
func (t AliasTable) Canonicalize(name string) string {
	if canonical, ok := t[name]; ok {
		return canonical
	}
	return name
}

// PairKey identifies a conversation by its two canonical participants,
// order-independent: A is always the lexically smaller name.
type PairKey struct {
	A string
	B string
}

// NewPairKey builds the unordered pair key for two participants.
func NewPairKey(u1, u2 string) PairKey {
	if u2 < u1 {
		u1, u2 = u2, u1
	}
	return PairKey{A: u1, B: u2}
}
