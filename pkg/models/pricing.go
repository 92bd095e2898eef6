package models

// ModelPricing defines per-1M token costs for a model.
type ModelPricing struct {
	Model      string  `json:"model" yaml:"model"`
	Input      float64 `json:"input" yaml:"input"`
	CacheWrite float64 `json:"cache_write" yaml:"cache_write"`
	CacheRead  float64 `json:"cache_read" yaml:"cache_read"`
	Output     float64 `json:"output" yaml:"output"`
}
