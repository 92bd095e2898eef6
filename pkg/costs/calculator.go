package costs

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pario-ai/apicost/pkg/models"
	"github.com/pario-ai/apicost/pkg/pricing"
)

const tokensPerMillion = 1_000_000.0

// Kind markers for rows that were never billed.
var freeKindMarkers = []string{"No Charge", "Errored"}

// ParseTokens converts a token-count cell to a number. Empty, non-numeric,
// non-finite and negative values all yield 0. A single underscore between
// two digits is accepted as a separator, as in "1_000".
func ParseTokens(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(stripDigitSeparators(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// stripDigitSeparators removes underscores that sit between two digits. A
// string with any other underscore is returned unchanged so that it fails to
// parse.
func stripDigitSeparators(s string) string {
	if !strings.Contains(s, "_") {
		return s
	}
	isDigit := func(b byte) bool { return b >= '0' && b <= '9' }
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '_' {
			b.WriteByte(s[i])
			continue
		}
		if i == 0 || i == len(s)-1 || !isDigit(s[i-1]) || !isDigit(s[i+1]) {
			return s
		}
	}
	return b.String()
}

// IsFreeKind reports whether a Kind value marks the row as not charged.
func IsFreeKind(kind string) bool {
	for _, m := range freeKindMarkers {
		if strings.Contains(kind, m) {
			return true
		}
	}
	return false
}

// Usage extracts the four token categories from a row.
func Usage(row []string, cols Columns) models.TokenUsage {
	return models.TokenUsage{
		CacheWrite: ParseTokens(Cell(row, cols.CacheWrite)),
		Input:      ParseTokens(Cell(row, cols.Input)),
		CacheRead:  ParseTokens(Cell(row, cols.CacheRead)),
		Output:     ParseTokens(Cell(row, cols.Output)),
	}
}

// Cost prices a token usage without rounding.
func Cost(u models.TokenUsage, p models.ModelPricing) float64 {
	cacheWrite := (u.CacheWrite / tokensPerMillion) * p.CacheWrite
	input := (u.Input / tokensPerMillion) * p.Input
	cacheRead := (u.CacheRead / tokensPerMillion) * p.CacheRead
	output := (u.Output / tokensPerMillion) * p.Output
	return cacheWrite + input + cacheRead + output
}

// Calculate returns the cost of one usage row rounded to 6 decimal places.
func Calculate(row []string, cols Columns, table *pricing.Table) float64 {
	if IsFreeKind(Cell(row, cols.Kind)) {
		return 0
	}
	p, ok := table.Lookup(Cell(row, cols.Model))
	if !ok {
		return 0
	}
	return Round6(Cost(Usage(row, cols), p))
}

// Round6 rounds v to 6 decimal places using the decimal expansion of v,
// with ties going to even.
func Round6(v float64) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 6, 64), 64)
	return r
}

// FormatCurrency renders v with a leading dollar sign and fixed decimals.
func FormatCurrency(v float64, places int) string {
	return fmt.Sprintf("$%.*f", places, v)
}

// Cell returns row[i], or "" when the row is too short.
func Cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
