package models

// Mode is the lifecycle state of a cooking session.
type Mode int

const (
	ModeIdle Mode = iota
	ModePlanned
	ModeCooking
	ModeComplete
)

// String returns a human-readable mode.
func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModePlanned:
		return "planned"
	case ModeCooking:
		return "cooking"
	case ModeComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// MarshalText encodes the mode as its name.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Ingredient is a single extracted ingredient. Quantity is free text ("500g", "1/2 cup").
type Ingredient struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
	Emoji    string `json:"emoji"`
}

// RecipeStep is one instruction of a plan. Completed is the only field that
// changes after extraction and only the cooking session sets it.
type RecipeStep struct {
	StepNumber      int    `json:"step_number"`
	Instruction     string `json:"instruction"`
	DurationMinutes *int   `json:"duration_minutes"`
	Tips            string `json:"tips,omitempty"`
	Completed       bool   `json:"completed"`
}

// RecipePlan is the steppable representation of a recipe.
// CurrentStepIndex == len(Steps) means the recipe is complete.
type RecipePlan struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Servings         string       `json:"servings"`
	PrepTime         string       `json:"prep_time"`
	CookTime         string       `json:"cook_time"`
	Ingredients      []Ingredient `json:"ingredients"`
	Steps            []RecipeStep `json:"steps"`
	CurrentStepIndex int          `json:"current_step_index"`
}

// Clone returns a deep copy, safe to hand to another goroutine.
func (p *RecipePlan) Clone() *RecipePlan {
	if p == nil {
		return nil
	}
	out := *p
	out.Ingredients = append([]Ingredient(nil), p.Ingredients...)
	out.Steps = make([]RecipeStep, len(p.Steps))
	for i, s := range p.Steps {
		if s.DurationMinutes != nil {
			d := *s.DurationMinutes
			s.DurationMinutes = &d
		}
		out.Steps[i] = s
	}
	return &out
}

// CurrentStep returns the step under the cursor, or nil when complete.
func (p *RecipePlan) CurrentStep() *RecipeStep {
	if p == nil || p.CurrentStepIndex < 0 || p.CurrentStepIndex >= len(p.Steps) {
		return nil
	}
	return &p.Steps[p.CurrentStepIndex]
}
