package extract

import (
	"strings"
	"testing"
)

func TestBuildPrompt(t *testing.T) {
	excerpts := "[a.pdf p3] Scope 1 emissions rose 12%."
	p := BuildPrompt("Acme", excerpts)

	for _, want := range []string{
		"company Acme",
		NullResult("Acme"),
		"between 3 and 8 real signals",
		"climate_energy",
		"controversy",
		"cost_of_capital",
		">5y",
		`"company": "Acme"`,
	} {
		if !strings.Contains(p, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
	if !strings.HasSuffix(p, "EXCERPTS:\n"+excerpts) {
		t.Fatalf("prompt should end with the excerpts block, got tail %q", p[len(p)-80:])
	}
}

func TestNullResultParses(t *testing.T) {
	m, ok := ParseResponse(NullResult(`Quote "Co"`))
	if !ok {
		t.Fatal("null sentinel must be valid JSON")
	}
	if m["company"] != `Quote "Co"` {
		t.Fatalf("company = %v", m["company"])
	}
}
