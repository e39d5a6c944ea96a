// Package cooking implements the cooking session state machine: one active
// plan, a cursor into its steps, and the navigation rules shared by voice
// commands and display clicks.
package cooking

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/souschef/internal/apperr"
	"github.com/starford/souschef/internal/events"
	"github.com/starford/souschef/internal/models"
	"github.com/starford/souschef/internal/retrieval"
)

// PlanTopK is how many chunks are retrieved as extraction context.
const PlanTopK = 5

// Retriever finds cookbook text for a recipe query.
type Retriever interface {
	Query(ctx context.Context, question string, topK int) (models.QueryResult, error)
}

// PlanExtractor turns retrieved text into a plan. *recipe.Extractor implements it.
type PlanExtractor interface {
	Extract(ctx context.Context, rawText, target string) (*models.RecipePlan, error)
}

// CommandKind enumerates navigation commands.
type CommandKind int

const (
	Advance CommandKind = iota
	Retreat
	GoTo
)

// String returns the command name.
func (k CommandKind) String() string {
	switch k {
	case Advance:
		return "advance"
	case Retreat:
		return "retreat"
	case GoTo:
		return "go_to"
	default:
		return "unknown"
	}
}

// Command is a navigation request. Index is used by GoTo only.
type Command struct {
	Kind  CommandKind
	Index int
}

// Outcome describes the session after a transition.
type Outcome struct {
	Mode     models.Mode
	Index    int
	Total    int
	Step     *models.RecipeStep // step under the cursor, nil when complete
	Complete bool
	Changed  bool // false when a GoTo targeted the current step
}

// Snapshot is a read-only copy of the session.
type Snapshot struct {
	Mode models.Mode        `json:"mode"`
	Plan *models.RecipePlan `json:"plan,omitempty"`
}

// Session holds the active plan and cursor. All navigation goes through
// Apply under one mutex, and each transition's notification is emitted
// before Apply returns. Network-bound plan generation runs outside the lock.
type Session struct {
	retriever Retriever
	extractor PlanExtractor
	emitter   events.Emitter
	logger    *slog.Logger

	mu   sync.Mutex
	plan *models.RecipePlan
	mode models.Mode
}

// NewSession creates an idle session.
func NewSession(retriever Retriever, extractor PlanExtractor, emitter events.Emitter, logger *slog.Logger) *Session {
	return &Session{retriever: retriever, extractor: extractor, emitter: emitter, logger: logger}
}

// Snapshot returns a copy of the current mode and plan.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Mode: s.mode, Plan: s.plan.Clone()}
}

// GeneratePlan retrieves and extracts a plan for query and installs it,
// replacing any previous plan. On failure the session is unchanged.
func (s *Session) GeneratePlan(ctx context.Context, query string) (*models.RecipePlan, error) {
	const op = "cooking.generate_plan"

	res, err := s.retriever.Query(ctx, query, PlanTopK)
	if err != nil {
		return nil, err
	}
	if !res.Available {
		return nil, apperr.New(apperr.KindUnavailable, op, apperr.ErrIndexAbsent, "Please upload a cookbook first!")
	}
	if !res.Found() {
		return nil, apperr.New(apperr.KindNotFound, op, apperr.ErrNotFound,
			fmt.Sprintf("I couldn't find a recipe for %s in your cookbook.", query))
	}

	s.emitter.RecipePlanStatus(events.PlanStarted, query)
	plan, err := s.extractor.Extract(ctx, retrieval.Format(res), query)
	if err != nil {
		s.emitter.RecipePlanStatus(events.PlanFailed, query)
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.plan = plan
	s.mode = models.ModePlanned
	s.logger.Info("cooking: plan installed",
		slog.String("plan_id", plan.ID),
		slog.String("name", plan.Name),
		slog.Int("steps", len(plan.Steps)))
	s.emitter.RecipePlan(plan)
	return plan.Clone(), nil
}

// StartCooking moves a planned session into cooking at the first step.
func (s *Session) StartCooking() (Outcome, error) {
	const op = "cooking.start"

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.mode {
	case models.ModeCooking:
		return s.outcome(false), apperr.New(apperr.KindInvalidTransition, op, apperr.ErrAlreadyCooking, "We're already cooking!")
	case models.ModePlanned:
	default:
		return s.outcome(false), apperr.New(apperr.KindInvalidTransition, op, apperr.ErrNoPlanActive,
			"We need to pick a recipe first. What do you want to cook?")
	}
	if len(s.plan.Steps) == 0 {
		return s.outcome(false), apperr.New(apperr.KindInvalidTransition, op, apperr.ErrNoStructure, "")
	}

	s.plan.CurrentStepIndex = 0
	s.mode = models.ModeCooking
	s.emitter.CookingModeStart()
	return s.outcome(true), nil
}

// Apply runs one navigation command.
func (s *Session) Apply(cmd Command) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(cmd)
}

func (s *Session) apply(cmd Command) (Outcome, error) {
	op := "cooking." + cmd.Kind.String()
	if s.mode != models.ModeCooking {
		reason := "We're not in cooking mode yet."
		if s.mode == models.ModeComplete {
			reason = "The recipe is already complete."
		}
		return s.outcome(false), apperr.New(apperr.KindInvalidTransition, op, apperr.ErrNotCooking, reason)
	}

	switch cmd.Kind {
	case Advance:
		return s.advance(), nil
	case Retreat:
		return s.retreat(op)
	case GoTo:
		return s.goTo(op, cmd.Index)
	default:
		return s.outcome(false), apperr.New(apperr.KindInvalidInput, op, nil, "unknown navigation command")
	}
}

// Advance marks the current step done and moves to the next one.
func (s *Session) Advance() (Outcome, error) { return s.Apply(Command{Kind: Advance}) }

// Retreat moves back one step without un-marking anything.
func (s *Session) Retreat() (Outcome, error) { return s.Apply(Command{Kind: Retreat}) }

// GoTo moves the cursor to index.
func (s *Session) GoTo(index int) (Outcome, error) { return s.Apply(Command{Kind: GoTo, Index: index}) }

// HandleUIStep reconciles a display navigation event. The display reports
// the index it has already moved to; stepIndex < 0 means it sent none.
// A click that matches a single step in its direction is the same
// transition as the voice command. A click whose index is not past the
// cursor in its direction is an echo of a voice command that already moved
// the cursor: the cursor stays put and the display is re-synced. Anything
// else is a jump.
func (s *Session) HandleUIStep(action string, stepIndex int) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var dir CommandKind
	switch action {
	case "next":
		dir = Advance
	case "previous", "prev":
		dir = Retreat
	default:
		return s.outcome(false), apperr.New(apperr.KindInvalidInput, "cooking.ui_step", nil,
			fmt.Sprintf("unknown step action %q", action))
	}
	if stepIndex < 0 || s.plan == nil {
		return s.apply(Command{Kind: dir})
	}

	cur := s.plan.CurrentStepIndex
	switch {
	case dir == Advance && stepIndex == cur+1:
		return s.apply(Command{Kind: Advance})
	case dir == Retreat && stepIndex == cur-1:
		return s.apply(Command{Kind: Retreat})
	case dir == Advance && stepIndex <= cur, dir == Retreat && stepIndex >= cur:
		return s.apply(Command{Kind: GoTo, Index: cur})
	default:
		return s.apply(Command{Kind: GoTo, Index: stepIndex})
	}
}

func (s *Session) advance() Outcome {
	p := s.plan
	p.Steps[p.CurrentStepIndex].Completed = true
	p.CurrentStepIndex++
	if p.CurrentStepIndex == len(p.Steps) {
		s.mode = models.ModeComplete
		s.logger.Info("cooking: complete", slog.String("plan_id", p.ID))
		s.emitter.CookingModeComplete()
		return s.outcome(true)
	}
	s.emitter.StepUpdate(p.CurrentStepIndex)
	return s.outcome(true)
}

func (s *Session) retreat(op string) (Outcome, error) {
	p := s.plan
	if p.CurrentStepIndex == 0 {
		return s.outcome(false), apperr.New(apperr.KindInvalidTransition, op, apperr.ErrAtFirstStep, "We're already at the first step.")
	}
	p.CurrentStepIndex--
	s.emitter.StepUpdate(p.CurrentStepIndex)
	return s.outcome(true), nil
}

func (s *Session) goTo(op string, index int) (Outcome, error) {
	p := s.plan
	if index < 0 || index >= len(p.Steps) {
		return s.outcome(false), apperr.New(apperr.KindInvalidTransition, op, apperr.ErrStepOutOfRange,
			fmt.Sprintf("There is no step %d; this recipe has %d steps.", index+1, len(p.Steps)))
	}
	changed := index != p.CurrentStepIndex
	for i := p.CurrentStepIndex; i < index; i++ {
		p.Steps[i].Completed = true
	}
	p.CurrentStepIndex = index
	s.emitter.StepUpdate(index)
	return s.outcome(changed), nil
}

// outcome describes the session; callers hold mu.
func (s *Session) outcome(changed bool) Outcome {
	o := Outcome{Mode: s.mode, Changed: changed, Complete: s.mode == models.ModeComplete}
	if s.plan == nil {
		return o
	}
	o.Index = s.plan.CurrentStepIndex
	o.Total = len(s.plan.Steps)
	if st := s.plan.CurrentStep(); st != nil {
		cp := *st
		if st.DurationMinutes != nil {
			d := *st.DurationMinutes
			cp.DurationMinutes = &d
		}
		o.Step = &cp
	}
	return o
}
