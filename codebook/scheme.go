package codebook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// Category is one annotation control attached to every turn. It is either a
// simple dropdown (Options) or a dependent one (Groups): a primary dropdown
// over the group names whose selection reveals a detail dropdown, plus an
// "Other" choice with a free-text input.
type Category struct {
	Name       string
	Label      string
	ButtonText string
	CSVColumn  string

	// Exactly one of Options / Groups is set; validated at load time.
	Options    []string
	Groups     map[string][]string
	GroupOrder []string
}

// Dependent reports whether the category uses the dependent two-level layout.
func (c Category) Dependent() bool {
	return len(c.Groups) > 0
}

// Scheme is the ordered list of annotation categories rendered under each
// turn and exported to CSV.
type Scheme struct {
	Categories []Category
}

// LoadScheme reads a scheme file, JSON or TOML by extension, fills defaults
// and validates it. The scheme is checked once here; renderers can rely on
// its shape.
func LoadScheme(path string) (Scheme, error) {
	if path == "" {
		return Scheme{}, errors.New("LoadScheme: path is empty")
	}

	var (
		s   Scheme
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		s, err = loadSchemeTOML(path)
	default:
		s, err = loadSchemeJSON(path)
	}
	if err != nil {
		return Scheme{}, err
	}

	s.applyDefaults()
	if err := s.Validate(); err != nil {
		return Scheme{}, fmt.Errorf("LoadScheme: %s: %w", path, err)
	}
	return s, nil
}

type jsonCategory struct {
	Name       string          `json:"name"`
	Label      string          `json:"label"`
	Options    json.RawMessage `json:"options"`
	ButtonText string          `json:"button_text"`
	CSVColumn  string          `json:"csv_column"`
}

func loadSchemeJSON(path string) (Scheme, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Scheme{}, fmt.Errorf("loadSchemeJSON: read file: %w", err)
	}

	var raws []jsonCategory
	if err := json.Unmarshal(b, &raws); err != nil {
		return Scheme{}, fmt.Errorf("loadSchemeJSON: unmarshal %s: %w", path, err)
	}

	var s Scheme
	for i, raw := range raws {
		c := Category{
			Name:       raw.Name,
			Label:      raw.Label,
			ButtonText: raw.ButtonText,
			CSVColumn:  raw.CSVColumn,
		}

		trimmed := bytes.TrimSpace(raw.Options)
		switch {
		case len(trimmed) == 0:
			return Scheme{}, fmt.Errorf("loadSchemeJSON: category %d (%s): missing options", i, raw.Name)
		case trimmed[0] == '[':
			if err := json.Unmarshal(trimmed, &c.Options); err != nil {
				return Scheme{}, fmt.Errorf("loadSchemeJSON: category %d (%s): options array: %w", i, raw.Name, err)
			}
		case trimmed[0] == '{':
			groups, order, err := decodeOrderedGroups(trimmed)
			if err != nil {
				return Scheme{}, fmt.Errorf("loadSchemeJSON: category %d (%s): options object: %w", i, raw.Name, err)
			}
			c.Groups = groups
			c.GroupOrder = order
		default:
			return Scheme{}, fmt.Errorf("loadSchemeJSON: category %d (%s): options must be an array or an object", i, raw.Name)
		}

		s.Categories = append(s.Categories, c)
	}
	return s, nil
}

// decodeOrderedGroups decodes a JSON object of string arrays while keeping
// the key order of the document, which fixes the primary-dropdown order.
func decodeOrderedGroups(raw []byte) (map[string][]string, []string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("expected object, got %v", tok)
	}

	groups := make(map[string][]string)
	var order []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("expected string key, got %T", keyTok)
		}

		var vals []string
		if err := dec.Decode(&vals); err != nil {
			return nil, nil, fmt.Errorf("group %q: %w", key, err)
		}
		if _, dup := groups[key]; !dup {
			order = append(order, key)
		}
		groups[key] = vals
	}

	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return groups, order, nil
}

type tomlScheme struct {
	Category []tomlCategory `toml:"category"`
}

type tomlCategory struct {
	Name       string              `toml:"name"`
	Label      string              `toml:"label"`
	Options    []string            `toml:"options"`
	Groups     map[string][]string `toml:"groups"`
	ButtonText string              `toml:"button_text"`
	CSVColumn  string              `toml:"csv_column"`
}

func loadSchemeTOML(path string) (Scheme, error) {
	var raw tomlScheme
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Scheme{}, fmt.Errorf("loadSchemeTOML: parse %s: %w", path, err)
	}

	orders := groupOrdersFromMeta(meta, len(raw.Category))

	var s Scheme
	for i, rc := range raw.Category {
		c := Category{
			Name:       rc.Name,
			Label:      rc.Label,
			Options:    rc.Options,
			Groups:     rc.Groups,
			ButtonText: rc.ButtonText,
			CSVColumn:  rc.CSVColumn,
		}
		if len(c.Groups) > 0 {
			c.GroupOrder = orders[i]
			if len(c.GroupOrder) != len(c.Groups) {
				// Document order could not be recovered; fall back to a
				// stable sorted order.
				c.GroupOrder = sortedGroupNames(c.Groups)
			}
		}
		s.Categories = append(s.Categories, c)
	}
	return s, nil
}

// groupOrdersFromMeta recovers the document order of group names from TOML
// metadata. Keys arrive in order of appearance; each [[category]] header
// contributes a bare "category" key, and each group a
// "category.groups.<name>" key under the current element.
func groupOrdersFromMeta(meta toml.MetaData, n int) [][]string {
	orders := make([][]string, n)
	idx := -1
	for _, key := range meta.Keys() {
		parts := []string(key)
		if len(parts) == 1 && parts[0] == "category" {
			idx++
			continue
		}
		if len(parts) == 3 && parts[0] == "category" && parts[1] == "groups" && idx >= 0 && idx < n {
			orders[idx] = append(orders[idx], parts[2])
		}
	}
	return orders
}

func sortedGroupNames(groups map[string][]string) []string {
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Scheme) applyDefaults() {
	for i := range s.Categories {
		c := &s.Categories[i]
		if c.ButtonText == "" {
			c.ButtonText = "Add " + c.Label
		}
		if c.CSVColumn == "" {
			c.CSVColumn = c.Label
		}
	}
}

// Validate checks the scheme shape once, so rendering never has to infer a
// category's kind from its value types.
func (s Scheme) Validate() error {
	if len(s.Categories) == 0 {
		return errors.New("scheme has no categories")
	}
	for i, c := range s.Categories {
		if c.Name == "" {
			return fmt.Errorf("category %d: missing name", i)
		}
		if c.Label == "" {
			return fmt.Errorf("category %d (%s): missing label", i, c.Name)
		}
		if len(c.Options) == 0 && len(c.Groups) == 0 {
			return fmt.Errorf("category %d (%s): needs options or groups", i, c.Name)
		}
		if len(c.Options) > 0 && len(c.Groups) > 0 {
			return fmt.Errorf("category %d (%s): options and groups are mutually exclusive", i, c.Name)
		}
		for _, opt := range c.Options {
			if strings.TrimSpace(opt) == "" {
				return fmt.Errorf("category %d (%s): empty option", i, c.Name)
			}
		}
		for name, details := range c.Groups {
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("category %d (%s): empty group name", i, c.Name)
			}
			if len(details) == 0 {
				return fmt.Errorf("category %d (%s): group %q has no detail options", i, c.Name, name)
			}
		}
	}
	return nil
}

// CSVHeader builds the export header: the given prefix columns followed by
// one column per category, plus a "<column>_Detailed" column for dependent
// categories.
func (s Scheme) CSVHeader(prefix []string) []string {
	header := append([]string(nil), prefix...)
	for _, c := range s.Categories {
		header = append(header, c.CSVColumn)
		if c.Dependent() {
			header = append(header, c.CSVColumn+"_Detailed")
		}
	}
	return header
}

// SampleScheme returns the built-in demo scheme: a dependent Intention
// category and a simple Tone category.
func SampleScheme() Scheme {
	s := Scheme{Categories: []Category{
		{
			Name:  "intention",
			Label: "Intention",
			Groups: map[string][]string{
				"Personal": {
					"Sharing info",
					"Asking question",
					"Social invitation",
				},
				"Work": {
					"Task assignment",
					"Status update",
					"Meeting coordination",
				},
			},
			GroupOrder: []string{"Personal", "Work"},
		},
		{
			Name:    "tone",
			Label:   "Tone",
			Options: []string{"Happy", "Sad", "Urgent", "Casual", "Formal"},
		},
	}}
	s.applyDefaults()
	return s
}
