package testsupport

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formbind/internal/scenario"
)

// LoadScenario reads a scenario fixture, failing the test on error.
func LoadScenario(t *testing.T, path string) *scenario.Scenario {
	t.Helper()

	sc, err := scenario.LoadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	return sc
}

// ScenarioFiles lists the *.scenario.yaml and *.scenario.json fixtures in
// dir, sorted.
func ScenarioFiles(t *testing.T, dir string) []string {
	t.Helper()

	var out []string
	for _, pattern := range []string{"*.scenario.yaml", "*.scenario.yml", "*.scenario.json"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			t.Fatalf("glob %s: %v", pattern, err)
		}
		out = append(out, matches...)
	}
	sort.Strings(out)
	if len(out) == 0 {
		t.Fatalf("no scenario fixtures in %s", dir)
	}
	return out
}

// WriteGolden writes value as indented JSON when UPDATE_GOLDENS is set and
// reports whether it did, so the caller can skip the comparison.
func WriteGolden(t *testing.T, path string, value any) bool {
	t.Helper()

	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, append(payload, '\n'), 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// CompareGolden decodes the JSON golden at path into a fresh value of the
// same shape as got (via a JSON round trip of got) and returns a cmp diff.
func CompareGolden(t *testing.T, path string, got any) string {
	t.Helper()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	var want any
	if err := json.Unmarshal(raw, &want); err != nil {
		t.Fatalf("unmarshal golden %s: %v", path, err)
	}
	encoded, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	var normalised any
	if err := json.Unmarshal(encoded, &normalised); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	return cmp.Diff(want, normalised)
}
