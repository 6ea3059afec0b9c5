package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joelkehle/esg-scorecard/internal/esg"
)

const (
	rawSuffix     = "_raw.txt"
	invalidSuffix = "_invalid.txt"
	jsonSuffix    = ".json"

	// ManifestFile is written next to the company artifacts after each run.
	ManifestFile = "_manifest.json"
)

// Artifacts writes the per-company outputs of an extraction run into one directory.
type Artifacts struct {
	Dir string
}

func NewArtifacts(dir string) (*Artifacts, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create signals dir: %w", err)
	}
	return &Artifacts{Dir: dir}, nil
}

func (a *Artifacts) JSONPath(company string) string {
	return filepath.Join(a.Dir, fileStem(company)+jsonSuffix)
}

func (a *Artifacts) RawPath(company string) string {
	return filepath.Join(a.Dir, fileStem(company)+rawSuffix)
}

func (a *Artifacts) InvalidPath(company string) string {
	return filepath.Join(a.Dir, fileStem(company)+invalidSuffix)
}

// Clear removes the artifacts a previous run left for company.
func (a *Artifacts) Clear(company string) error {
	for _, p := range []string{a.JSONPath(company), a.RawPath(company), a.InvalidPath(company)} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (a *Artifacts) WriteExtraction(ext esg.CompanyExtraction, company string) error {
	if ext.Signals == nil {
		ext.Signals = []map[string]any{}
	}
	blob, err := json.MarshalIndent(ext, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(a.JSONPath(company), blob)
}

func (a *Artifacts) WriteRaw(company, text string) error {
	return writeFileAtomic(a.RawPath(company), []byte(text))
}

func (a *Artifacts) WriteInvalid(company, text string) error {
	return writeFileAtomic(a.InvalidPath(company), []byte(text))
}

func (a *Artifacts) WriteManifest(m Manifest) error {
	blob, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(a.Dir, ManifestFile), blob)
}

// LoadManifest reads the manifest of the last run in dir.
func LoadManifest(dir string) (Manifest, error) {
	blob, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return Manifest{}, err
	}
	var m Manifest
	if err := json.Unmarshal(blob, &m); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

func writeFileAtomic(path string, blob []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// fileStem keeps company names usable as file names.
func fileStem(company string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", "\x00", "_")
	stem := r.Replace(strings.TrimSpace(company))
	if stem == "" || stem == "." || stem == ".." {
		stem = "_unnamed"
	}
	return stem
}
