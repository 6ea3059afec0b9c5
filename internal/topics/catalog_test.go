package topics

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleCatalog = `
topics:
  - id: climate_energy
    name: Climate & Energy
    keywords: [emissions, scope 1, renewable]
  - id: privacy_security
    name: Privacy & Security
    keywords: [privacy, breach]
`

func TestParsePreservesOrderAndLookup(t *testing.T) {
	c, err := Parse([]byte(sampleCatalog))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	list := c.Topics()
	if len(list) != 2 || list[0].ID != "climate_energy" || list[1].ID != "privacy_security" {
		t.Fatalf("unexpected topics: %+v", list)
	}
	if got := list[0].Keywords; len(got) != 3 || got[1] != "scope 1" {
		t.Fatalf("unexpected keywords: %v", got)
	}
	if _, ok := c.Lookup("privacy_security"); !ok {
		t.Fatal("expected lookup hit")
	}
	if got := c.DisplayName("climate_energy"); got != "Climate & Energy" {
		t.Fatalf("DisplayName = %q", got)
	}
	if got := c.DisplayName("water"); got != "water" {
		t.Fatalf("unknown topic should reuse id, got %q", got)
	}
}

func TestParseRejectsMissingID(t *testing.T) {
	if _, err := Parse([]byte("topics:\n  - name: nameless\n")); err == nil {
		t.Fatal("expected error for topic without id")
	}
}

func TestLoadMissingFileReturnsEmptyCatalog(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c.Topics()) != 0 {
		t.Fatalf("expected empty catalog, got %d topics", len(c.Topics()))
	}
	if c.DisplayName("x") != "x" {
		t.Fatal("expected raw id as display name")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topics.yaml")
	if err := os.WriteFile(path, []byte(sampleCatalog), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c.Topics()) != 2 {
		t.Fatalf("expected 2 topics, got %d", len(c.Topics()))
	}
}
