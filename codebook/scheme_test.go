package codebook

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeSchemeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoadScheme_JSON(t *testing.T) {
	t.Parallel()

	path := writeSchemeFile(t, "scheme.json", `[
		{
			"name": "intention",
			"label": "Intention",
			"options": {
				"Work": ["Task assignment", "Status update"],
				"Personal": ["Sharing info"]
			}
		},
		{
			"name": "tone",
			"label": "Tone",
			"options": ["Happy", "Sad"],
			"button_text": "More tone",
			"csv_column": "ToneCode"
		}
	]`)

	s, err := LoadScheme(path)
	if err != nil {
		t.Fatalf("LoadScheme: %v", err)
	}
	if len(s.Categories) != 2 {
		t.Fatalf("len(Categories)=%d, want 2", len(s.Categories))
	}

	intention := s.Categories[0]
	if !intention.Dependent() {
		t.Fatalf("intention should be dependent")
	}
	// Document order, not alphabetical.
	if !reflect.DeepEqual(intention.GroupOrder, []string{"Work", "Personal"}) {
		t.Fatalf("GroupOrder=%v, want [Work Personal]", intention.GroupOrder)
	}
	if intention.ButtonText != "Add Intention" || intention.CSVColumn != "Intention" {
		t.Fatalf("intention defaults: button=%q csv=%q", intention.ButtonText, intention.CSVColumn)
	}

	tone := s.Categories[1]
	if tone.Dependent() {
		t.Fatalf("tone should be simple")
	}
	if tone.ButtonText != "More tone" || tone.CSVColumn != "ToneCode" {
		t.Fatalf("tone overrides: button=%q csv=%q", tone.ButtonText, tone.CSVColumn)
	}
}

func TestLoadScheme_TOML(t *testing.T) {
	t.Parallel()

	path := writeSchemeFile(t, "scheme.toml", `
[[category]]
name = "intention"
label = "Intention"

[category.groups]
Work = ["Task assignment"]
Personal = ["Sharing info"]

[[category]]
name = "tone"
label = "Tone"
options = ["Happy", "Sad"]
`)

	s, err := LoadScheme(path)
	if err != nil {
		t.Fatalf("LoadScheme: %v", err)
	}
	if len(s.Categories) != 2 {
		t.Fatalf("len(Categories)=%d, want 2", len(s.Categories))
	}

	intention := s.Categories[0]
	if !intention.Dependent() {
		t.Fatalf("intention should be dependent")
	}
	if !reflect.DeepEqual(intention.GroupOrder, []string{"Work", "Personal"}) {
		t.Fatalf("GroupOrder=%v, want [Work Personal]", intention.GroupOrder)
	}
	if !reflect.DeepEqual(intention.Groups["Work"], []string{"Task assignment"}) {
		t.Fatalf("Groups[Work]=%v", intention.Groups["Work"])
	}
	if s.Categories[1].Dependent() {
		t.Fatalf("tone should be simple")
	}
}

func TestLoadScheme_ValidationErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		content string
	}{
		{"empty", `[]`},
		{"no-label", `[{"name": "x", "options": ["a"]}]`},
		{"no-options", `[{"name": "x", "label": "X", "options": []}]`},
		{"empty-option", `[{"name": "x", "label": "X", "options": [" "]}]`},
		{"empty-group", `[{"name": "x", "label": "X", "options": {"G": []}}]`},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			path := writeSchemeFile(t, "scheme.json", tc.content)
			if _, err := LoadScheme(path); err == nil {
				t.Fatalf("LoadScheme accepted %s", tc.name)
			}
		})
	}
}

func TestValidate_OptionsAndGroupsExclusive(t *testing.T) {
	t.Parallel()

	s := Scheme{Categories: []Category{{
		Name:    "x",
		Label:   "X",
		Options: []string{"a"},
		Groups:  map[string][]string{"G": {"d"}},
	}}}
	if err := s.Validate(); err == nil {
		t.Fatalf("Validate allowed options and groups together")
	}
}

func TestCSVHeader(t *testing.T) {
	t.Parallel()

	s := SampleScheme()
	got := s.CSVHeader([]string{"Unit", "Turn"})
	want := []string{"Unit", "Turn", "Intention", "Intention_Detailed", "Tone"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("CSVHeader=%v, want %v", got, want)
	}

	got = s.CSVHeader([]string{"Turn", "Sender"})
	if got[0] != "Turn" || got[1] != "Sender" {
		t.Fatalf("group header prefix=%v", got[:2])
	}
}

func TestSampleScheme_Valid(t *testing.T) {
	t.Parallel()

	s := SampleScheme()
	if err := s.Validate(); err != nil {
		t.Fatalf("SampleScheme invalid: %v", err)
	}
	if !s.Categories[0].Dependent() || s.Categories[1].Dependent() {
		t.Fatalf("sample categories have wrong kinds")
	}
}
