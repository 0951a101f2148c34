package rips

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLookupMatchesSubstringCaseInsensitive(t *testing.T) {
	maps := DefaultCodeMaps()

	if got := lookup(maps.AttentionTypes, "URGENCIAS ADULTOS"); got != "02" {
		t.Fatalf("expected urgencias mapped to 02, got %q", got)
	}
	if got := lookup(maps.AttentionTypes, "Consulta Externa General"); got != "01" {
		t.Fatalf("expected consulta externa mapped to 01, got %q", got)
	}
	if got := lookup(maps.ServicePurposes, "CONSULTA DE CONTROL O SEGUIMIENTO"); got != "02" {
		t.Fatalf("expected control mapped to 02, got %q", got)
	}
	if got := lookup(maps.AttentionTypes, "odontologia"); got != "" {
		t.Fatalf("expected empty code for unmapped text, got %q", got)
	}
	if got := lookup(maps.AttentionTypes, ""); got != "" {
		t.Fatalf("expected empty code for empty input, got %q", got)
	}
}

func TestLookupPrefersLongerEntriesListedFirst(t *testing.T) {
	maps := DefaultCodeMaps()
	// "consulta externa" must win over the bare "consulta" entry.
	if got := lookup(maps.AttentionTypes, "consulta externa"); got != "01" {
		t.Fatalf("unexpected code %q", got)
	}
}

func TestLoadCodeMapsEmptyPathReturnsDefaults(t *testing.T) {
	maps, err := LoadCodeMaps("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(maps.AttentionTypes) == 0 || len(maps.ServicePurposes) == 0 {
		t.Fatal("expected default tables")
	}
}

func TestLoadCodeMapsOverridesFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "maps.yaml")
	content := []byte(`attention_types:
  - match: telemedicina
    code: "09"
service_purposes:
  - match: promocion
    code: "05"
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	maps, err := LoadCodeMaps(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := lookup(maps.AttentionTypes, "TELEMEDICINA"); got != "09" {
		t.Fatalf("expected override applied, got %q", got)
	}
	if got := lookup(maps.ServicePurposes, "actividad de promocion"); got != "05" {
		t.Fatalf("expected override applied, got %q", got)
	}
}

func TestLoadCodeMapsMissingFileFails(t *testing.T) {
	if _, err := LoadCodeMaps(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
