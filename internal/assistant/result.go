package assistant

import (
	"github.com/starford/souschef/internal/apperr"
	"github.com/starford/souschef/internal/cooking"
	"github.com/starford/souschef/internal/index"
	"github.com/starford/souschef/internal/models"
)

// Result is the outcome of one assistant operation, shaped for a tool
// response. Found is explicit so callers never parse Message text.
type Result struct {
	Success bool   `json:"success"`
	Found   bool   `json:"found"`
	Kind    string `json:"error_kind,omitempty"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// SearchData accompanies cookbook searches.
type SearchData struct {
	HasCookbook bool           `json:"has_cookbook"`
	Query       string         `json:"query"`
	Content     string         `json:"cookbook_content,omitempty"`
	Sources     []models.Chunk `json:"sources,omitempty"`
}

// PlanData accompanies a generated plan.
type PlanData struct {
	RecipeName string             `json:"recipe_name"`
	StepsCount int                `json:"steps_count"`
	Plan       *models.RecipePlan `json:"plan"`
}

// StepData accompanies navigation.
type StepData struct {
	Mode        models.Mode `json:"mode"`
	StepIndex   int         `json:"step_index"`
	StepNumber  int         `json:"step_number,omitempty"`
	Instruction string      `json:"instruction,omitempty"`
	Tips        string      `json:"tips,omitempty"`
	TotalSteps  int         `json:"total_steps"`
	Complete    bool        `json:"complete"`
}

// TimerData accompanies a started timer.
type TimerData struct {
	Timer models.Timer `json:"timer"`
}

// ShoppingData accompanies shopping-list changes.
type ShoppingData struct {
	Added   []string              `json:"added,omitempty"`
	Removed []string              `json:"removed,omitempty"`
	Items   []models.ShoppingItem `json:"items"`
}

// StatusData is the full assistant state.
type StatusData struct {
	Index    index.Status          `json:"index"`
	Session  cooking.Snapshot      `json:"session"`
	Shopping []models.ShoppingItem `json:"shopping_list"`
}

func ok(msg string, data any) Result {
	return Result{Success: true, Found: true, Message: msg, Data: data}
}

func fail(err error) Result {
	return Result{Kind: apperr.KindOf(err).String(), Message: apperr.Reason(err)}
}

func stepData(o cooking.Outcome) StepData {
	d := StepData{Mode: o.Mode, StepIndex: o.Index, TotalSteps: o.Total, Complete: o.Complete}
	if o.Step != nil {
		d.StepNumber = o.Step.StepNumber
		d.Instruction = o.Step.Instruction
		d.Tips = o.Step.Tips
	}
	return d
}
