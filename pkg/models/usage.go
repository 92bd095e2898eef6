package models

import "time"

// TokenUsage holds the four billed token categories of one usage row.
type TokenUsage struct {
	CacheWrite float64 `json:"cache_write"`
	Input      float64 `json:"input"`
	CacheRead  float64 `json:"cache_read"`
	Output     float64 `json:"output"`
}

// RowCost is the computed charge for a single usage row.
type RowCost struct {
	Model string  `json:"model"`
	Kind  string  `json:"kind"`
	Cost  float64 `json:"cost"`
}

// ModelCost aggregates cost for one model within a run.
type ModelCost struct {
	Model string  `json:"model"`
	Rows  int     `json:"rows"`
	Cost  float64 `json:"cost"`
}

// RunSummary is the outcome of annotating one usage file.
type RunSummary struct {
	File   string      `json:"file"`
	Rows   int         `json:"rows"`
	Total  float64     `json:"total"`
	Models []ModelCost `json:"models"`
}

// RunRecord is a RunSummary persisted in the run history.
type RunRecord struct {
	ID        string      `json:"id"`
	File      string      `json:"file"`
	Rows      int         `json:"rows"`
	Total     float64     `json:"total"`
	Models    []ModelCost `json:"models,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}
