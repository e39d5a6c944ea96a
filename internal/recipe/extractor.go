package recipe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/souschef/internal/apperr"
	"github.com/starford/souschef/internal/llm"
	"github.com/starford/souschef/internal/models"
)

const systemPrompt = "You extract structured recipes from cookbook text. Answer only with JSON matching the schema."

const promptTemplate = `Extract the recipe from the following cookbook content.

User wants to make: %s

Cookbook content:
%s

Strict guidelines for extraction:
1. Ingredients: extract each actual ingredient with its exact quantity and unit.
   Clean up noisy text and assign a relevant emoji to each ingredient.
2. Steps: extract clear, sequential cooking instructions.
3. Estimations: estimate prep_time and cook_time if not explicitly stated.

Extract the recipe with all ingredients and step-by-step instructions.`

// Extractor converts raw text into a RecipePlan using an llm.Extractor.
type Extractor struct {
	capability llm.Extractor
	logger     *slog.Logger
}

// NewExtractor creates an Extractor.
func NewExtractor(capability llm.Extractor, logger *slog.Logger) *Extractor {
	return &Extractor{capability: capability, logger: logger}
}

// Extract asks the capability for a structured plan for target from rawText,
// then validates and normalizes it. Steps are renumbered from 1 and start
// uncompleted. Every failure is an *apperr.Error of KindExtraction.
func (x *Extractor) Extract(ctx context.Context, rawText, target string) (*models.RecipePlan, error) {
	const op = "recipe.extract"

	out, err := x.capability.Extract(ctx, llm.ExtractRequest{
		System:     systemPrompt,
		Prompt:     fmt.Sprintf(promptTemplate, target, rawText),
		SchemaName: "recipe_plan",
		Schema:     JSONSchema(),
	})
	if err != nil {
		x.logger.Warn("recipe: capability failed", slog.String("target", target), slog.String("error", err.Error()))
		return nil, apperr.New(apperr.KindExtraction, op, err, "the recipe service is unavailable")
	}

	parsed, err := Decode(out)
	if err != nil {
		x.logger.Warn("recipe: malformed response", slog.String("target", target), slog.String("error", err.Error()))
		return nil, apperr.New(apperr.KindExtraction, op, err, "could not read the recipe structure")
	}
	if parsed.Name == "" {
		parsed.Name = strings.TrimSpace(target)
	}
	if len(parsed.Steps) == 0 {
		return nil, apperr.New(apperr.KindExtraction, op, apperr.ErrNoStructure, "")
	}
	if err := parsed.Validate(); err != nil {
		return nil, apperr.New(apperr.KindExtraction, op, err, "the recipe was incomplete: "+err.Error())
	}
	return ToPlan(parsed), nil
}

// Decode parses the capability output, tolerating a Markdown code fence
// around the JSON, and trims every text field.
func Decode(raw []byte) (*Schema, error) {
	raw = bytes.TrimSpace(raw)
	if bytes.HasPrefix(raw, []byte("```")) {
		raw = bytes.TrimPrefix(raw, []byte("```json"))
		raw = bytes.TrimPrefix(raw, []byte("```"))
		raw = bytes.TrimSuffix(bytes.TrimSpace(raw), []byte("```"))
	}
	var s Schema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("recipe: decode: %w", err)
	}
	s.Name = strings.TrimSpace(s.Name)
	s.Servings = strings.TrimSpace(s.Servings)
	s.PrepTime = strings.TrimSpace(s.PrepTime)
	s.CookTime = strings.TrimSpace(s.CookTime)
	for i := range s.Ingredients {
		ing := &s.Ingredients[i]
		ing.Name = strings.TrimSpace(ing.Name)
		ing.Quantity = strings.TrimSpace(ing.Quantity)
		ing.Emoji = strings.TrimSpace(ing.Emoji)
	}
	for i := range s.Steps {
		s.Steps[i].Instruction = strings.TrimSpace(s.Steps[i].Instruction)
		s.Steps[i].Tips = strings.TrimSpace(s.Steps[i].Tips)
	}
	return &s, nil
}

// ToPlan converts a validated Schema into a fresh plan: steps are ordered by
// their upstream number (ties keep response order), renumbered from 1, and
// marked uncompleted.
func ToPlan(s *Schema) *models.RecipePlan {
	steps := make([]StepSchema, len(s.Steps))
	copy(steps, s.Steps)
	sortSteps(steps)

	plan := &models.RecipePlan{
		ID:          uuid.NewString(),
		Name:        s.Name,
		Servings:    s.Servings,
		PrepTime:    s.PrepTime,
		CookTime:    s.CookTime,
		Ingredients: make([]models.Ingredient, len(s.Ingredients)),
		Steps:       make([]models.RecipeStep, len(steps)),
	}
	for i, ing := range s.Ingredients {
		plan.Ingredients[i] = models.Ingredient{Name: ing.Name, Quantity: ing.Quantity, Emoji: ing.Emoji}
	}
	for i, st := range steps {
		plan.Steps[i] = models.RecipeStep{
			StepNumber:      i + 1,
			Instruction:     st.Instruction,
			DurationMinutes: st.DurationMinutes,
			Tips:            st.Tips,
		}
	}
	return plan
}

// sortSteps orders steps by step number when every step carries a positive
// one; otherwise response order is kept.
func sortSteps(steps []StepSchema) {
	for _, s := range steps {
		if s.StepNumber <= 0 {
			return
		}
	}
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].StepNumber < steps[j].StepNumber })
}
