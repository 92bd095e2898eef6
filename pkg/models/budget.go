package models

// BudgetAll is the policy model that matches the grand total of a run.
const BudgetAll = "*"

// BudgetPolicy defines a maximum cost for a single run, either for one model
// or for the whole file when Model is "*".
type BudgetPolicy struct {
	Model   string  `json:"model" yaml:"model"`
	MaxCost float64 `json:"max_cost" yaml:"max_cost"`
}

// BudgetStatus shows a run's spend against a policy.
type BudgetStatus struct {
	Policy    BudgetPolicy `json:"policy"`
	Spent     float64      `json:"spent"`
	Remaining float64      `json:"remaining"`
	Exceeded  bool         `json:"exceeded"`
}
