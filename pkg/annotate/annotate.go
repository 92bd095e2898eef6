// Package annotate adds an API_COST column to a usage export and totals the
// charges per model.
package annotate

import (
	"fmt"
	"io"
	"sort"

	"go.uber.org/zap"

	"github.com/pario-ai/apicost/pkg/costs"
	"github.com/pario-ai/apicost/pkg/models"
	"github.com/pario-ai/apicost/pkg/pricing"
	"github.com/pario-ai/apicost/pkg/usagecsv"
)

// CostPlaces is the number of decimals written to the API_COST column.
const CostPlaces = 6

// SummaryPlaces is the number of decimals used in the printed summary.
const SummaryPlaces = 2

// Annotator costs usage files against a fixed pricing table.
type Annotator struct {
	pricing *pricing.Table
	logger  *zap.Logger
}

// New creates an Annotator. A nil logger discards diagnostics.
func New(table *pricing.Table, logger *zap.Logger) *Annotator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Annotator{pricing: table, logger: logger}
}

// Run reads the file at path, writes the cost of every row into its
// API_COST column and replaces the file. The whole file is read before
// anything is written; on error the file is left untouched.
func (a *Annotator) Run(path string) (models.RunSummary, error) {
	tbl, err := usagecsv.Read(path)
	if err != nil {
		return models.RunSummary{}, err
	}

	results, err := a.Annotate(tbl)
	if err != nil {
		return models.RunSummary{}, fmt.Errorf("%s: %w", path, err)
	}

	if err := usagecsv.Write(path, tbl); err != nil {
		return models.RunSummary{}, err
	}

	summary := Summarize(results)
	summary.File = path
	a.logger.Info("annotated usage file",
		zap.String("file", path),
		zap.Int("rows", summary.Rows),
		zap.Int("models", len(summary.Models)),
		zap.Float64("total", summary.Total),
	)
	return summary, nil
}

// Annotate computes every row's cost and stores it in tbl's API_COST column,
// appending the column when absent. Results are in row order.
func (a *Annotator) Annotate(tbl *usagecsv.Table) ([]models.RowCost, error) {
	cols, err := costs.ResolveColumns(tbl.Header)
	if err != nil {
		return nil, err
	}

	results := make([]models.RowCost, len(tbl.Rows))
	unknown := make(map[string]int)
	free := 0
	for i, row := range tbl.Rows {
		r := models.RowCost{
			Model: costs.Cell(row, cols.Model),
			Kind:  costs.Cell(row, cols.Kind),
		}
		if costs.IsFreeKind(r.Kind) {
			free++
		} else if _, ok := a.pricing.Lookup(r.Model); !ok {
			unknown[r.Model]++
		}
		r.Cost = costs.Calculate(row, cols, a.pricing)
		results[i] = r
	}
	a.logSkipped(free, unknown)

	idx := tbl.EnsureColumn(costs.ColCost)
	for i, r := range results {
		tbl.SetCell(i, idx, costs.FormatCurrency(r.Cost, CostPlaces))
	}
	return results, nil
}

func (a *Annotator) logSkipped(free int, unknown map[string]int) {
	if free > 0 {
		a.logger.Debug("rows not charged", zap.Int("rows", free))
	}
	names := make([]string, 0, len(unknown))
	for name := range unknown {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		a.logger.Debug("model not in pricing table, costed at zero",
			zap.String("model", name),
			zap.Int("rows", unknown[name]),
		)
	}
}

// Summarize totals row costs overall and per model. Models are ordered by
// descending cost; ties keep the order in which the model first appeared.
func Summarize(results []models.RowCost) models.RunSummary {
	s := models.RunSummary{Rows: len(results)}
	pos := make(map[string]int)
	for _, r := range results {
		s.Total += r.Cost
		i, ok := pos[r.Model]
		if !ok {
			i = len(s.Models)
			pos[r.Model] = i
			s.Models = append(s.Models, models.ModelCost{Model: r.Model})
		}
		s.Models[i].Rows++
		s.Models[i].Cost += r.Cost
	}
	sort.SliceStable(s.Models, func(i, j int) bool {
		return s.Models[i].Cost > s.Models[j].Cost
	})
	return s
}

// FormatSummary writes the human-readable totals.
func FormatSummary(w io.Writer, s models.RunSummary) error {
	if _, err := fmt.Fprintf(w, "Total API Cost: %s\n", costs.FormatCurrency(s.Total, SummaryPlaces)); err != nil {
		return err
	}
	if _, err := fmt.Fprint(w, "\nCost breakdown by model:\n"); err != nil {
		return err
	}
	for _, m := range s.Models {
		if _, err := fmt.Fprintf(w, "  %s: %s\n", m.Model, costs.FormatCurrency(m.Cost, SummaryPlaces)); err != nil {
			return err
		}
	}
	return nil
}
