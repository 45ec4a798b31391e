package nutrition

// Macros holds macronutrient amounts in grams.
type Macros struct {
	Protein float64 `json:"protein"`
	Carbs   float64 `json:"carbs"`
	Fiber   float64 `json:"fiber"`
	Fat     float64 `json:"fat"`
}

// Micros holds micronutrient amounts. Units vary per nutrient:
// vitaminB12 mcg, vitaminD mcg, omega3 g, iron mg, zinc mg, iodine mcg.
type Micros struct {
	VitaminB12 float64 `json:"vitaminB12"`
	VitaminD   float64 `json:"vitaminD"`
	Omega3     float64 `json:"omega3"`
	Iron       float64 `json:"iron"`
	Zinc       float64 `json:"zinc"`
	Iodine     float64 `json:"iodine"`
}

// Targets is a per-day set of recommended intake values.
type Targets struct {
	Macros Macros `json:"macros"`
	Micros Micros `json:"micros"`
}

// DefaultTargets returns the recommended daily intake used until the user
// saves their own targets.
func DefaultTargets() Targets {
	return Targets{
		Macros: Macros{Protein: 50, Carbs: 300, Fiber: 25, Fat: 65},
		Micros: Micros{VitaminB12: 2.4, VitaminD: 15, Omega3: 1.6, Iron: 18, Zinc: 11, Iodine: 150},
	}
}

// FillMacros applies the zero-fill policy: a missing macro block becomes a
// fully keyed block with every value 0. This is the single place where
// "absent means zero" is defined; both the response normalizer and review
// approval go through it.
func FillMacros(m *Macros) Macros {
	if m == nil {
		return Macros{}
	}
	return *m
}

// FillMicros applies the zero-fill policy to a micro block. See FillMacros.
func FillMicros(m *Micros) Micros {
	if m == nil {
		return Micros{}
	}
	return *m
}

// Calories estimates energy from macros using the 4/4/9 rule.
func Calories(m Macros) float64 {
	return 4*m.Protein + 4*m.Carbs + 9*m.Fat
}
