package annotate

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pario-ai/apicost/pkg/costs"
	"github.com/pario-ai/apicost/pkg/models"
	"github.com/pario-ai/apicost/pkg/pricing"
	"github.com/pario-ai/apicost/pkg/usagecsv"
)

const usageHeader = "Date,Kind,Model,Max Mode,Input (w/ Cache Write),Input (w/o Cache Write),Cache Read,Output Tokens,Total Tokens\n"

func newAnnotator(t *testing.T, logger *zap.Logger) *Annotator {
	t.Helper()
	tbl, err := pricing.New([]models.ModelPricing{
		{Model: "gpt-x", Input: 1.0, CacheWrite: 0.5, CacheRead: 0.1, Output: 2.0},
		{Model: "claude-4-sonnet", Input: 3.0, CacheWrite: 3.75, CacheRead: 0.3, Output: 15.0},
	})
	require.NoError(t, err)
	return New(tbl, logger)
}

func writeUsage(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "usage.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunAppendsCostColumn(t *testing.T) {
	path := writeUsage(t, usageHeader+
		"2025-10-01,Included,gpt-x,No,1000000,0,0,500000,1500000\n"+
		"2025-10-01,\"Errored, No Charge\",gpt-x,No,1000000,1000000,0,0,2000000\n"+
		"2025-10-02,Included,claude-4-sonnet,No,0,1000000,0,0,1000000\n"+
		"2025-10-02,Included,mystery,No,5,5,5,5,20\n")

	summary, err := newAnnotator(t, nil).Run(path)
	require.NoError(t, err)

	assert.Equal(t, path, summary.File)
	assert.Equal(t, 4, summary.Rows)
	assert.InDelta(t, 4.5, summary.Total, 1e-9)
	require.Len(t, summary.Models, 3)
	assert.Equal(t, models.ModelCost{Model: "claude-4-sonnet", Rows: 1, Cost: 3.0}, summary.Models[0])
	assert.Equal(t, "gpt-x", summary.Models[1].Model)
	assert.InDelta(t, 1.5, summary.Models[1].Cost, 1e-9)
	assert.Equal(t, 2, summary.Models[1].Rows)
	assert.Equal(t, models.ModelCost{Model: "mystery", Rows: 1}, summary.Models[2])

	tbl, err := usagecsv.Read(path)
	require.NoError(t, err)
	require.Len(t, tbl.Header, 10)
	assert.Equal(t, costs.ColCost, tbl.Header[9])
	require.Len(t, tbl.Rows, 4)
	want := []string{"$1.500000", "$0.000000", "$3.000000", "$0.000000"}
	for i, row := range tbl.Rows {
		require.Len(t, row, 10)
		assert.Equal(t, want[i], row[9], "row %d", i)
	}
	assert.Equal(t, "Errored, No Charge", tbl.Rows[1][1])
}

func TestRunIsIdempotent(t *testing.T) {
	path := writeUsage(t, usageHeader+
		"2025-10-01,Included,gpt-x,No,1234,5678,91011,1213,0\n"+
		"2025-10-01,Included,claude-4-sonnet,No,10,20,30,40,100\n")
	a := newAnnotator(t, nil)

	first, err := a.Run(path)
	require.NoError(t, err)
	afterFirst, err := os.ReadFile(path)
	require.NoError(t, err)

	second, err := a.Run(path)
	require.NoError(t, err)
	afterSecond, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, first.Total, second.Total)
	assert.Equal(t, string(afterFirst), string(afterSecond))
	assert.Equal(t, 1, strings.Count(strings.SplitN(string(afterSecond), "\n", 2)[0], costs.ColCost))
}

func TestRunOverwritesExistingCostColumn(t *testing.T) {
	path := writeUsage(t, "Model,API_COST,Kind,Input (w/ Cache Write),Input (w/o Cache Write),Cache Read,Output Tokens\n"+
		"gpt-x,$99.000000,Included,0,1000000,0,0\n"+
		"gpt-x\n")

	_, err := newAnnotator(t, nil).Run(path)
	require.NoError(t, err)

	tbl, err := usagecsv.Read(path)
	require.NoError(t, err)
	assert.Len(t, tbl.Header, 7)
	assert.Equal(t, "$1.000000", tbl.Rows[0][1])
	assert.Equal(t, []string{"gpt-x", "$0.000000", "", "", "", "", ""}, tbl.Rows[1])
}

func TestRunShortRowsReachHeaderWidth(t *testing.T) {
	path := writeUsage(t, "Model,API_COST,Kind,Input (w/ Cache Write),Input (w/o Cache Write),Cache Read,Output Tokens\n"+
		"gpt-x\n"+
		"gpt-x,,Included\n")

	_, err := newAnnotator(t, nil).Run(path)
	require.NoError(t, err)

	tbl, err := usagecsv.Read(path)
	require.NoError(t, err)
	for i, row := range tbl.Rows {
		assert.GreaterOrEqual(t, len(row), len(tbl.Header), "row %d", i)
		assert.Equal(t, "$0.000000", row[1], "row %d", i)
	}
}

func TestRunPadsShortRows(t *testing.T) {
	path := writeUsage(t, usageHeader+"2025-10-01,Included,gpt-x,No,1000000\n")

	summary, err := newAnnotator(t, nil).Run(path)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, summary.Total, 1e-9)

	tbl, err := usagecsv.Read(path)
	require.NoError(t, err)
	require.Len(t, tbl.Rows[0], 10)
	assert.Equal(t, []string{"", "", "", ""}, tbl.Rows[0][5:9])
	assert.Equal(t, "$0.500000", tbl.Rows[0][9])
}

func TestRunHeaderOnly(t *testing.T) {
	path := writeUsage(t, usageHeader)

	summary, err := newAnnotator(t, nil).Run(path)
	require.NoError(t, err)
	assert.Zero(t, summary.Rows)
	assert.Zero(t, summary.Total)
	assert.Empty(t, summary.Models)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSuffix(usageHeader, "\n")+",API_COST\n", string(data))
}

func TestRunMissingModelColumnLeavesFile(t *testing.T) {
	content := "Kind,Input (w/ Cache Write)\nIncluded,100\n"
	path := writeUsage(t, content)

	_, err := newAnnotator(t, nil).Run(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, costs.ErrMissingColumn))
	assert.Contains(t, err.Error(), `"Model"`)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestRunMissingTokenColumn(t *testing.T) {
	path := writeUsage(t, "Model,Kind,Input (w/ Cache Write),Cache Read,Output Tokens\ngpt-x,Included,1,1,1\n")

	_, err := newAnnotator(t, nil).Run(path)
	require.ErrorIs(t, err, costs.ErrMissingColumn)
	assert.Contains(t, err.Error(), costs.ColInput)
}

func TestRunBadFile(t *testing.T) {
	a := newAnnotator(t, nil)

	_, err := a.Run(filepath.Join(t.TempDir(), "missing.csv"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = a.Run(writeUsage(t, ""))
	require.ErrorIs(t, err, usagecsv.ErrEmptyTable)

	content := usageHeader + "2025-10-01,\"Included,gpt-x\n"
	path := writeUsage(t, content)
	_, err = a.Run(path)
	require.Error(t, err)
	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, content, string(data))
}

func TestRunLogsUnknownModels(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	path := writeUsage(t, usageHeader+
		"2025-10-01,Included,mystery,No,1,1,1,1,4\n"+
		"2025-10-01,Included,mystery,No,1,1,1,1,4\n"+
		"2025-10-01,Errored,other,No,1,1,1,1,4\n")

	_, err := newAnnotator(t, zap.New(core)).Run(path)
	require.NoError(t, err)

	unknown := logs.FilterMessage("model not in pricing table, costed at zero").All()
	require.Len(t, unknown, 1)
	assert.Equal(t, "mystery", unknown[0].ContextMap()["model"])
	assert.EqualValues(t, 2, unknown[0].ContextMap()["rows"])

	free := logs.FilterMessage("rows not charged").All()
	require.Len(t, free, 1)
	assert.EqualValues(t, 1, free[0].ContextMap()["rows"])
}

func TestSummarize(t *testing.T) {
	results := []models.RowCost{
		{Model: "a", Cost: 0.1},
		{Model: "b", Cost: 0.2},
		{Model: "c", Cost: 0.3},
		{Model: "a", Cost: 0.1},
		{Model: "d", Cost: 0},
		{Model: "e", Cost: 0},
	}
	s := Summarize(results)

	assert.Equal(t, 6, s.Rows)
	names := make([]string, len(s.Models))
	var sum float64
	for i, m := range s.Models {
		names[i] = m.Model
		sum += m.Cost
	}
	assert.Equal(t, []string{"c", "a", "b", "d", "e"}, names)
	assert.InDelta(t, s.Total, sum, 1e-6*float64(len(results)))
}

func TestFormatSummary(t *testing.T) {
	var buf bytes.Buffer
	err := FormatSummary(&buf, models.RunSummary{
		Total: 12.345678,
		Models: []models.ModelCost{
			{Model: "claude-4-opus", Cost: 10.004},
			{Model: "gpt-x", Cost: 2.341678},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Total API Cost: $12.35\n"+
		"\n"+
		"Cost breakdown by model:\n"+
		"  claude-4-opus: $10.00\n"+
		"  gpt-x: $2.34\n", buf.String())
}
