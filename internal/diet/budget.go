package diet

import (
	"fmt"
	"time"
)

// BudgetStatus summarizes the weekly budget against spending over the
// trailing seven days.
type BudgetStatus struct {
	Budget      float64 `json:"budget"`
	Spent       float64 `json:"spent"`
	Remaining   float64 `json:"remaining"`
	PercentUsed float64 `json:"percent_used"`
	OverBudget  bool    `json:"over_budget"`
}

// GetBudget returns the weekly budget, or the default when none was saved.
func (s *Service) GetBudget() (float64, error) {
	budget, ok, err := s.db.GetBudget()
	if err != nil {
		return 0, fmt.Errorf("getting budget: %w", err)
	}
	if !ok {
		return defaultWeeklyBudget, nil
	}
	return budget, nil
}

// SetBudget persists a new weekly budget. The budget must be positive.
func (s *Service) SetBudget(budget float64) error {
	if budget <= 0 {
		return fmt.Errorf("budget must be positive")
	}
	if err := s.db.SaveBudget(budget); err != nil {
		return fmt.Errorf("saving budget: %w", err)
	}
	return nil
}

// BudgetStatus computes spending over the trailing seven days against the
// weekly budget. Items with unparsable dates are skipped.
func (s *Service) BudgetStatus() (*BudgetStatus, error) {
	budget, err := s.GetBudget()
	if err != nil {
		return nil, err
	}

	items, err := s.db.ListItems()
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}

	weekAgo := s.timeSource.Now().AddDate(0, 0, -7)
	var spent float64
	for _, item := range items {
		date, err := time.Parse("2006-01-02", item.Date)
		if err != nil {
			continue
		}
		if !date.Before(weekAgo.Truncate(24 * time.Hour)) {
			spent += item.Price
		}
	}

	percent := spent / budget * 100
	if percent > 100 {
		percent = 100
	}

	return &BudgetStatus{
		Budget:      budget,
		Spent:       spent,
		Remaining:   budget - spent,
		PercentUsed: percent,
		OverBudget:  spent > budget,
	}, nil
}
