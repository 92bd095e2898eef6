// Package pricing loads the per-model token price table used to cost usage
// rows. A Table is read once at startup and never modified afterwards.
package pricing

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pario-ai/apicost/pkg/models"
	"gopkg.in/yaml.v3"
)

// FileName is the pricing file looked up next to the apicost executable.
const FileName = "model_pricing.json"

// ErrInvalidPricing is returned when a pricing source is malformed.
var ErrInvalidPricing = errors.New("invalid pricing")

// Rates is one entry of the pricing file. All rates are USD per 1M tokens.
type Rates struct {
	Input      *float64 `json:"input" yaml:"input" jsonschema:"minimum=0,description=USD per 1M uncached input tokens"`
	CacheWrite *float64 `json:"cache_write" yaml:"cache_write" jsonschema:"minimum=0,description=USD per 1M cache write tokens"`
	CacheRead  *float64 `json:"cache_read" yaml:"cache_read" jsonschema:"minimum=0,description=USD per 1M cache read tokens"`
	Output     *float64 `json:"output" yaml:"output" jsonschema:"minimum=0,description=USD per 1M output tokens"`
}

// File is the on-disk shape of a pricing source: model name to rates.
type File map[string]Rates

// Table is an immutable model-name to pricing lookup.
type Table struct {
	entries map[string]models.ModelPricing
}

// New builds a Table from explicit entries.
func New(entries []models.ModelPricing) (*Table, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no models defined", ErrInvalidPricing)
	}
	m := make(map[string]models.ModelPricing, len(entries))
	for _, e := range entries {
		if e.Model == "" {
			return nil, fmt.Errorf("%w: empty model name", ErrInvalidPricing)
		}
		if _, dup := m[e.Model]; dup {
			return nil, fmt.Errorf("%w: duplicate model %q", ErrInvalidPricing, e.Model)
		}
		for name, v := range map[string]float64{
			"input":       e.Input,
			"cache_write": e.CacheWrite,
			"cache_read":  e.CacheRead,
			"output":      e.Output,
		} {
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return nil, fmt.Errorf("%w: model %q has bad %s rate %v", ErrInvalidPricing, e.Model, name, v)
			}
		}
		m[e.Model] = e
	}
	return &Table{entries: m}, nil
}

// Load reads a pricing file. Files ending in .yaml or .yml are parsed as
// YAML, everything else as JSON.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pricing: %w", err)
	}

	var f File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	default:
		err = json.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, fmt.Errorf("parse pricing %s: %w", path, errors.Join(ErrInvalidPricing, err))
	}

	entries, err := f.entries()
	if err != nil {
		return nil, fmt.Errorf("pricing %s: %w", path, err)
	}
	return New(entries)
}

func (f File) entries() ([]models.ModelPricing, error) {
	out := make([]models.ModelPricing, 0, len(f))
	for name, r := range f {
		if r.Input == nil || r.CacheWrite == nil || r.CacheRead == nil || r.Output == nil {
			return nil, fmt.Errorf("%w: model %q must define input, cache_write, cache_read and output", ErrInvalidPricing, name)
		}
		out = append(out, models.ModelPricing{
			Model:      name,
			Input:      *r.Input,
			CacheWrite: *r.CacheWrite,
			CacheRead:  *r.CacheRead,
			Output:     *r.Output,
		})
	}
	return out, nil
}

// DefaultPath returns the location of FileName beside the running executable.
func DefaultPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), FileName), nil
}

// Lookup returns the pricing for a model.
func (t *Table) Lookup(model string) (models.ModelPricing, bool) {
	p, ok := t.entries[model]
	return p, ok
}

// Len returns the number of priced models.
func (t *Table) Len() int {
	return len(t.entries)
}

// Models returns the priced model names in lexical order.
func (t *Table) Models() []string {
	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Entries returns all pricing entries ordered by model name.
func (t *Table) Entries() []models.ModelPricing {
	names := t.Models()
	out := make([]models.ModelPricing, 0, len(names))
	for _, name := range names {
		out = append(out, t.entries[name])
	}
	return out
}
