package rips

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// CodeMapping maps a lowercase category fragment to a regulatory code. The
// tables are ordered slices, not maps: lookup precedence must stay auditable
// and deterministic.
type CodeMapping struct {
	Match string `yaml:"match"`
	Code  string `yaml:"code"`
}

// CodeMaps holds the substring lookup tables used to derive attention-type
// and service-purpose codes from free-text category names.
type CodeMaps struct {
	AttentionTypes  []CodeMapping `yaml:"attention_types"`
	ServicePurposes []CodeMapping `yaml:"service_purposes"`
}

// DefaultCodeMaps returns the provider's built-in tables. More specific
// fragments come first so "consulta externa" never resolves through the bare
// "consulta" entry.
func DefaultCodeMaps() CodeMaps {
	return CodeMaps{
		AttentionTypes: []CodeMapping{
			{Match: "urgencias", Code: "02"},
			{Match: "consulta externa", Code: "01"},
			{Match: "consulta", Code: "01"},
			{Match: "hospitalización", Code: "04"},
			{Match: "hospitalizacion", Code: "04"},
			{Match: "vacunacion", Code: "13"},
		},
		ServicePurposes: []CodeMapping{
			{Match: "consulta de primera vez", Code: "01"},
			{Match: "consulta de control", Code: "02"},
			{Match: "programa pf", Code: "03"},
			{Match: "detección", Code: "04"},
			{Match: "deteccion", Code: "04"},
			{Match: "consulta de urgencias", Code: "10"},
			{Match: "no aplica", Code: "14"},
			{Match: "vacunacion", Code: "14"},
			{Match: "terapia", Code: "07"},
		},
	}
}

// LoadCodeMaps reads override tables from a YAML file. Sections left empty in
// the file keep the built-in defaults.
func LoadCodeMaps(path string) (CodeMaps, error) {
	maps := DefaultCodeMaps()
	if path == "" {
		return maps, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return CodeMaps{}, fmt.Errorf("read code maps: %w", err)
	}
	var loaded CodeMaps
	if err := yaml.Unmarshal(raw, &loaded); err != nil {
		return CodeMaps{}, fmt.Errorf("parse code maps yaml: %w", err)
	}
	if len(loaded.AttentionTypes) > 0 {
		maps.AttentionTypes = loaded.AttentionTypes
	}
	if len(loaded.ServicePurposes) > 0 {
		maps.ServicePurposes = loaded.ServicePurposes
	}
	return maps, nil
}

// lookup performs the case-insensitive substring match. No match yields an
// empty code; these are optional regulatory fields.
func lookup(table []CodeMapping, raw string) string {
	if raw == "" {
		return ""
	}
	normalized := strings.ToLower(raw)
	for _, entry := range table {
		if strings.Contains(normalized, entry.Match) {
			return entry.Code
		}
	}
	return ""
}
