package diet

import (
	"fmt"
	"time"

	"github.com/zombor/diet-tracker/internal/nutrition"
)

// NutrientProgress compares one nutrient's intake for a day against its
// daily target.
type NutrientProgress struct {
	Name    string  `json:"name"`
	Current float64 `json:"current"`
	Target  float64 `json:"target"`
	Unit    string  `json:"unit"`
	Status  string  `json:"status"` // low, good, high
}

// DailyProgress is a single day's intake summary against the targets.
type DailyProgress struct {
	Date     string             `json:"date"`
	Meals    int                `json:"meals"`
	Calories float64            `json:"calories"`
	Macros   []NutrientProgress `json:"macros"`
	Micros   []NutrientProgress `json:"micros"`
}

// nutrientStatus flags intake below half the target as low and above 130%
// as high.
func nutrientStatus(current, target float64) string {
	if target <= 0 {
		return "good"
	}
	ratio := current / target
	if ratio < 0.5 {
		return "low"
	}
	if ratio > 1.3 {
		return "high"
	}
	return "good"
}

func progressRow(name string, current, target float64, unit string) NutrientProgress {
	return NutrientProgress{
		Name:    name,
		Current: current,
		Target:  target,
		Unit:    unit,
		Status:  nutrientStatus(current, target),
	}
}

// DailyProgress totals the items logged on a calendar date and compares
// them against the daily targets. An empty date means today.
func (s *Service) DailyProgress(date string) (*DailyProgress, error) {
	if date == "" {
		date = s.today()
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, fmt.Errorf("date must be YYYY-MM-DD")
	}

	targets, err := s.GetTargets()
	if err != nil {
		return nil, err
	}

	items, err := s.db.ListItems()
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}

	var totalMacros nutrition.Macros
	var totalMicros nutrition.Micros
	meals := 0
	for _, item := range items {
		if item.Date != date {
			continue
		}
		meals++
		totalMacros.Protein += item.Macros.Protein
		totalMacros.Carbs += item.Macros.Carbs
		totalMacros.Fiber += item.Macros.Fiber
		totalMacros.Fat += item.Macros.Fat
		totalMicros.VitaminB12 += item.Micros.VitaminB12
		totalMicros.VitaminD += item.Micros.VitaminD
		totalMicros.Omega3 += item.Micros.Omega3
		totalMicros.Iron += item.Micros.Iron
		totalMicros.Zinc += item.Micros.Zinc
		totalMicros.Iodine += item.Micros.Iodine
	}

	return &DailyProgress{
		Date:     date,
		Meals:    meals,
		Calories: nutrition.Calories(totalMacros),
		Macros: []NutrientProgress{
			progressRow("Protein", totalMacros.Protein, targets.Macros.Protein, "g"),
			progressRow("Carbs", totalMacros.Carbs, targets.Macros.Carbs, "g"),
			progressRow("Fiber", totalMacros.Fiber, targets.Macros.Fiber, "g"),
			progressRow("Fat", totalMacros.Fat, targets.Macros.Fat, "g"),
		},
		Micros: []NutrientProgress{
			progressRow("Vitamin B12", totalMicros.VitaminB12, targets.Micros.VitaminB12, "mcg"),
			progressRow("Vitamin D", totalMicros.VitaminD, targets.Micros.VitaminD, "mcg"),
			progressRow("Omega-3", totalMicros.Omega3, targets.Micros.Omega3, "g"),
			progressRow("Iron", totalMicros.Iron, targets.Micros.Iron, "mg"),
			progressRow("Zinc", totalMicros.Zinc, targets.Micros.Zinc, "mg"),
			progressRow("Iodine", totalMicros.Iodine, targets.Micros.Iodine, "mcg"),
		},
	}, nil
}
