package diet

import (
	"time"

	"github.com/zombor/diet-tracker/internal/nutrition"
)

// FoodItem is a finalized nutrition ledger entry. Every macro and micro key
// is always present; missing source data is represented as 0, never as an
// absent field. Items are immutable after creation except for deletion.
type FoodItem struct {
	ID     string           `json:"id"`
	Date   string           `json:"date"` // ISO 8601 YYYY-MM-DD
	Name   string           `json:"name"`
	Price  float64          `json:"price"`
	Macros nutrition.Macros `json:"macros"`
	Micros nutrition.Micros `json:"micros"`
}

// Notification is an in-app message shown in the alerts panel.
type Notification struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	Type    string    `json:"type"` // info, success, warning, budget, ...
	Date    time.Time `json:"date"`
	Read    bool      `json:"read"`
}
