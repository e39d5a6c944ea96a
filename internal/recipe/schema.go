// Package recipe turns retrieved cookbook text into a validated RecipePlan.
package recipe

import (
	"encoding/json"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/invopop/jsonschema"
)

// IngredientSchema is the wire shape of one extracted ingredient.
type IngredientSchema struct {
	Name     string `json:"name" jsonschema_description:"Clean name of the ingredient"`
	Quantity string `json:"quantity" jsonschema_description:"Quantity and unit (e.g. '2', '500g', '1/2 cup')"`
	Emoji    string `json:"emoji" jsonschema_description:"A single relevant emoji for this ingredient"`
}

// Validate implements validation.Validatable.
func (i IngredientSchema) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Name, validation.Required),
	)
}

// StepSchema is the wire shape of one extracted step.
type StepSchema struct {
	StepNumber      int    `json:"step_number" jsonschema_description:"Step number in sequence"`
	Instruction     string `json:"instruction" jsonschema_description:"The cooking instruction for this step"`
	DurationMinutes *int   `json:"duration_minutes,omitempty" jsonschema_description:"Time in minutes if applicable"`
	Tips            string `json:"tips,omitempty" jsonschema_description:"Helpful tips for this step"`
}

// Validate implements validation.Validatable.
func (s StepSchema) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Instruction, validation.Required),
		validation.Field(&s.DurationMinutes, validation.Min(0)),
	)
}

// Schema is the structure the extraction capability must produce.
type Schema struct {
	Name        string             `json:"name" jsonschema_description:"Name of the recipe"`
	Servings    string             `json:"servings" jsonschema_description:"Number of servings (e.g. '4 servings')"`
	PrepTime    string             `json:"prep_time" jsonschema_description:"Preparation time (e.g. '15 mins')"`
	CookTime    string             `json:"cook_time" jsonschema_description:"Cooking time (e.g. '30 mins')"`
	Ingredients []IngredientSchema `json:"ingredients" jsonschema_description:"List of structured ingredients"`
	Steps       []StepSchema       `json:"steps" jsonschema_description:"Step-by-step cooking instructions"`
}

// Validate implements validation.Validatable. Nested ingredients and steps
// are validated through their own Validate methods.
func (s Schema) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Name, validation.Required),
		validation.Field(&s.Ingredients),
		validation.Field(&s.Steps),
	)
}

var (
	schemaOnce sync.Once
	schemaJSON json.RawMessage
)

// JSONSchema returns the JSON Schema for Schema, reflected once.
func JSONSchema() json.RawMessage {
	schemaOnce.Do(func() {
		r := &jsonschema.Reflector{DoNotReference: true}
		s := r.Reflect(&Schema{})
		s.Version = ""
		b, err := json.Marshal(s)
		if err != nil {
			panic("recipe: marshal schema: " + err.Error())
		}
		schemaJSON = b
	})
	return schemaJSON
}
