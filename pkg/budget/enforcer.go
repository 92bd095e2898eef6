package budget

import (
	"errors"
	"fmt"

	"github.com/pario-ai/apicost/pkg/models"
)

// ErrBudgetExceeded is returned when a run's cost reaches a policy ceiling.
var ErrBudgetExceeded = errors.New("budget exceeded")

// Enforcer checks a run's cost against budget policies.
type Enforcer struct {
	policies []models.BudgetPolicy
}

// New creates an Enforcer with the given policies.
func New(policies []models.BudgetPolicy) *Enforcer {
	return &Enforcer{policies: policies}
}

// Check returns ErrBudgetExceeded, naming the first policy hit, if the run
// has reached any ceiling.
func (e *Enforcer) Check(summary models.RunSummary) error {
	for _, s := range e.Status(summary) {
		if s.Exceeded {
			return fmt.Errorf("%w: %s spent $%.2f of $%.2f",
				ErrBudgetExceeded, policyName(s.Policy), s.Spent, s.Policy.MaxCost)
		}
	}
	return nil
}

// Status returns the spend for every policy, in policy order.
func (e *Enforcer) Status(summary models.RunSummary) []models.BudgetStatus {
	statuses := make([]models.BudgetStatus, 0, len(e.policies))
	for _, p := range e.policies {
		spent := spentFor(p, summary)
		remaining := p.MaxCost - spent
		if remaining < 0 {
			remaining = 0
		}
		statuses = append(statuses, models.BudgetStatus{
			Policy:    p,
			Spent:     spent,
			Remaining: remaining,
			Exceeded:  spent >= p.MaxCost,
		})
	}
	return statuses
}

func spentFor(p models.BudgetPolicy, summary models.RunSummary) float64 {
	if p.Model == "" || p.Model == models.BudgetAll {
		return summary.Total
	}
	for _, m := range summary.Models {
		if m.Model == p.Model {
			return m.Cost
		}
	}
	return 0
}

func policyName(p models.BudgetPolicy) string {
	if p.Model == "" || p.Model == models.BudgetAll {
		return "total"
	}
	return "model " + p.Model
}
