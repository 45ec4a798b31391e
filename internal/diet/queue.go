package diet

import (
	"errors"
	"strconv"
	"sync"

	"github.com/zombor/diet-tracker/internal/nutrition"
	"github.com/zombor/diet-tracker/internal/scanning"
)

// ErrNoSuchCandidate is returned when a queue operation addresses an index
// that holds no pending candidate.
var ErrNoSuchCandidate = errors.New("no such candidate")

// ReviewQueue holds extracted candidates awaiting human review. Each
// candidate is pending until approved (converted to a FoodItem) or
// dismissed (dropped); both transitions are terminal. Candidates are
// addressed by index; dismissal by name survives for the legacy review UI
// but cannot tell two same-named candidates apart.
type ReviewQueue struct {
	mu      sync.Mutex
	pending []scanning.Candidate
}

// NewReviewQueue creates an empty review queue.
func NewReviewQueue() *ReviewQueue {
	return &ReviewQueue{}
}

// Replace discards all pending candidates and loads the given set. Called
// when a new scan completes.
func (q *ReviewQueue) Replace(candidates []scanning.Candidate) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append([]scanning.Candidate(nil), candidates...)
}

// Pending returns a copy of the pending candidates in queue order.
func (q *ReviewQueue) Pending() []scanning.Candidate {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]scanning.Candidate{}, q.pending...)
}

// Len returns the number of pending candidates.
func (q *ReviewQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Approve finalizes the candidate at index and removes it from the queue.
// The returned item carries the full zero-filled nutrient key sets and the
// given date when the candidate has none. The ID is assigned by the caller.
func (q *ReviewQueue) Approve(index int, today string) (FoodItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if index < 0 || index >= len(q.pending) {
		return FoodItem{}, ErrNoSuchCandidate
	}
	item := finalize(q.pending[index], today)
	q.pending = append(q.pending[:index], q.pending[index+1:]...)
	return item, nil
}

// ApproveAll finalizes every pending candidate in queue order and clears
// the queue. N pending candidates yield exactly N items.
func (q *ReviewQueue) ApproveAll(today string) []FoodItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := make([]FoodItem, 0, len(q.pending))
	for _, candidate := range q.pending {
		items = append(items, finalize(candidate, today))
	}
	q.pending = nil
	return items
}

// Dismiss removes the candidate at index without emitting anything.
func (q *ReviewQueue) Dismiss(index int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if index < 0 || index >= len(q.pending) {
		return ErrNoSuchCandidate
	}
	q.pending = append(q.pending[:index], q.pending[index+1:]...)
	return nil
}

// DismissByName removes the first pending candidate with the given name and
// reports whether one was found. Two candidates sharing a name are not
// distinguishable here; prefer Dismiss.
func (q *ReviewQueue) DismissByName(name string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, candidate := range q.pending {
		if candidate.Name == name {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return true
		}
	}
	return false
}

// Edit mutates one field of a pending candidate in place. Numeric fields
// parse leniently: input that is not a number means "unspecified" and
// becomes 0 rather than corrupting the record. Valid fields are "name",
// "price", "macros.<key>" and "micros.<key>".
func (q *ReviewQueue) Edit(index int, field, value string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if index < 0 || index >= len(q.pending) {
		return ErrNoSuchCandidate
	}
	candidate := &q.pending[index]

	if field == "name" {
		candidate.Name = value
		return nil
	}

	number, err := strconv.ParseFloat(value, 64)
	if err != nil {
		number = 0
	}

	switch field {
	case "price":
		candidate.Price = number
	case "macros.protein", "macros.carbs", "macros.fiber", "macros.fat":
		macros := nutrition.FillMacros(candidate.Macros)
		switch field {
		case "macros.protein":
			macros.Protein = number
		case "macros.carbs":
			macros.Carbs = number
		case "macros.fiber":
			macros.Fiber = number
		case "macros.fat":
			macros.Fat = number
		}
		candidate.Macros = &macros
	case "micros.vitaminB12", "micros.vitaminD", "micros.omega3", "micros.iron", "micros.zinc", "micros.iodine":
		micros := nutrition.FillMicros(candidate.Micros)
		switch field {
		case "micros.vitaminB12":
			micros.VitaminB12 = number
		case "micros.vitaminD":
			micros.VitaminD = number
		case "micros.omega3":
			micros.Omega3 = number
		case "micros.iron":
			micros.Iron = number
		case "micros.zinc":
			micros.Zinc = number
		case "micros.iodine":
			micros.Iodine = number
		}
		candidate.Micros = &micros
	default:
		return errors.New("unknown field: " + field)
	}
	return nil
}

// finalize converts a candidate into a FoodItem without an ID. The nutrient
// zero-fill runs even for candidates the normalizer already filled, so
// approval never emits an item with absent nutrient keys.
func finalize(candidate scanning.Candidate, today string) FoodItem {
	date := candidate.Date
	if date == "" {
		date = today
	}
	return FoodItem{
		Date:   date,
		Name:   candidate.Name,
		Price:  candidate.Price,
		Macros: nutrition.FillMacros(candidate.Macros),
		Micros: nutrition.FillMicros(candidate.Micros),
	}
}
