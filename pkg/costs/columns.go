package costs

import (
	"errors"
	"fmt"
	"slices"
)

// Column names in a usage export.
const (
	ColModel      = "Model"
	ColKind       = "Kind"
	ColCacheWrite = "Input (w/ Cache Write)"
	ColInput      = "Input (w/o Cache Write)"
	ColCacheRead  = "Cache Read"
	ColOutput     = "Output Tokens"
	ColCost       = "API_COST"
)

// ErrMissingColumn is returned when a required column is absent from the header.
var ErrMissingColumn = errors.New("missing required column")

// Columns holds the header positions Calculate reads from.
type Columns struct {
	Model      int
	Kind       int
	CacheWrite int
	Input      int
	CacheRead  int
	Output     int
}

// ResolveColumns looks up every column Calculate needs. It runs once per
// file so that a missing column fails before any row is costed.
func ResolveColumns(header []string) (Columns, error) {
	var cols Columns
	for _, c := range []struct {
		name string
		dst  *int
	}{
		{ColModel, &cols.Model},
		{ColKind, &cols.Kind},
		{ColCacheWrite, &cols.CacheWrite},
		{ColInput, &cols.Input},
		{ColCacheRead, &cols.CacheRead},
		{ColOutput, &cols.Output},
	} {
		idx := slices.Index(header, c.name)
		if idx < 0 {
			return Columns{}, fmt.Errorf("%w: %q", ErrMissingColumn, c.name)
		}
		*c.dst = idx
	}
	return cols, nil
}
