package topics

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joelkehle/esg-scorecard/internal/esg"
	"gopkg.in/yaml.v3"
)

// Catalog holds the topic definitions for one run. It is read-only after Load.
type Catalog struct {
	topics []esg.Topic
	byID   map[string]esg.Topic
}

type catalogFile struct {
	Topics []esg.Topic `yaml:"topics"`
}

// Load reads a YAML catalog. A missing file yields an empty catalog so that
// scorecards can still be produced with raw topic ids as display names.
func Load(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(nil), nil
		}
		return nil, fmt.Errorf("read topic catalog: %w", err)
	}
	return Parse(b)
}

func Parse(b []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("decode topic catalog: %w", err)
	}
	for i, t := range f.Topics {
		if strings.TrimSpace(t.ID) == "" {
			return nil, fmt.Errorf("topic %d: id is required", i)
		}
	}
	return New(f.Topics), nil
}

func New(list []esg.Topic) *Catalog {
	c := &Catalog{topics: append([]esg.Topic(nil), list...), byID: map[string]esg.Topic{}}
	for _, t := range c.topics {
		if _, dup := c.byID[t.ID]; !dup {
			c.byID[t.ID] = t
		}
	}
	return c
}

// Topics returns the topics in catalog order.
func (c *Catalog) Topics() []esg.Topic {
	if c == nil {
		return nil
	}
	return append([]esg.Topic(nil), c.topics...)
}

func (c *Catalog) Lookup(id string) (esg.Topic, bool) {
	if c == nil {
		return esg.Topic{}, false
	}
	t, ok := c.byID[id]
	return t, ok
}

// DisplayName falls back to the raw id for unknown topics or topics without a name.
func (c *Catalog) DisplayName(id string) string {
	if t, ok := c.Lookup(id); ok && t.Name != "" {
		return t.Name
	}
	return id
}
