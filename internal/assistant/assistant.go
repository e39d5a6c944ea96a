// Package assistant composes the index, retrieval, cooking session, and
// kitchen tools into the operations exposed to the voice pipeline and the
// HTTP API. Every operation returns a Result; failures never escape as
// errors so a failed tool call leaves the conversation running.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/souschef/internal/apperr"
	"github.com/starford/souschef/internal/cooking"
	"github.com/starford/souschef/internal/events"
	"github.com/starford/souschef/internal/index"
	"github.com/starford/souschef/internal/kitchen"
	"github.com/starford/souschef/internal/retrieval"
)

// Reply instructions sent after a background cookbook reload.
const (
	reloadAckInstructions  = "You just received a new cookbook or recipe document from the user. Acknowledge it warmly and naturally, say you have it loaded, and ask what they would like to know about it. Keep it brief and conversational."
	reloadFailInstructions = "There was an issue loading the cookbook. Apologize briefly and suggest they try again, staying friendly and helpful."
)

// turnKeywords gate automatic retrieval on a finished user turn.
var turnKeywords = []string{
	"recipe", "cook", "make", "prepare", "ingredient", "how to",
	"what is", "technique", "temperature", "time", "bake", "fry",
	"roast", "grill", "steam", "boil", "chapter", "book", "says",
}

// Deps are the components an Assistant is composed of.
type Deps struct {
	Index    *index.Manager
	Engine   *retrieval.Engine
	Session  *cooking.Session
	Timers   *kitchen.Timers
	Shopping *kitchen.ShoppingList
	Emitter  events.Emitter
	Replier  events.Replier
	Logger   *slog.Logger
	TopK     int
}

// Assistant is the composition root for session operations.
type Assistant struct {
	index    *index.Manager
	engine   *retrieval.Engine
	session  *cooking.Session
	timers   *kitchen.Timers
	shopping *kitchen.ShoppingList
	emitter  events.Emitter
	replier  events.Replier
	logger   *slog.Logger
	topK     int
}

// New creates an Assistant.
func New(d Deps) *Assistant {
	if d.TopK <= 0 {
		d.TopK = retrieval.DefaultTopK
	}
	return &Assistant{
		index:    d.Index,
		engine:   d.Engine,
		session:  d.Session,
		timers:   d.Timers,
		shopping: d.Shopping,
		emitter:  d.Emitter,
		replier:  d.Replier,
		logger:   d.Logger,
		topK:     d.TopK,
	}
}

// Session exposes the cooking session for read-only callers.
func (a *Assistant) Session() *cooking.Session { return a.session }

// Index exposes the index manager.
func (a *Assistant) Index() *index.Manager { return a.index }

// SearchCookbook looks up query in the indexed cookbook.
func (a *Assistant) SearchCookbook(ctx context.Context, query string) Result {
	return a.search(ctx, query, query,
		"No cookbook has been uploaded yet. I can still help with general cooking knowledge!",
		fmt.Sprintf("I couldn't find information about '%s' in your cookbook, but I can help with my general cooking knowledge.", query))
}

// SearchRecipes looks for recipes using the given comma-separated ingredients.
func (a *Assistant) SearchRecipes(ctx context.Context, ingredients string) Result {
	return a.search(ctx, "recipes using "+ingredients, ingredients,
		"I don't have my cookbook available right now. But I can still suggest recipes from my general knowledge!",
		fmt.Sprintf("I couldn't find specific recipes with %s in my cookbook, but I can suggest some ideas from my general knowledge.", ingredients))
}

func (a *Assistant) search(ctx context.Context, query, label, absentMsg, missMsg string) Result {
	res, err := a.engine.Query(ctx, query, a.topK)
	if err != nil {
		return fail(err)
	}
	if !res.Available {
		return Result{Kind: apperr.KindUnavailable.String(), Message: absentMsg, Data: SearchData{Query: label}}
	}
	if !res.Found() {
		return Result{Success: true, Message: missMsg, Data: SearchData{HasCookbook: true, Query: label}}
	}
	return ok("Found relevant information in your cookbook.", SearchData{
		HasCookbook: true,
		Query:       label,
		Content:     retrieval.Format(res),
		Sources:     res.Chunks,
	})
}

// ReloadCookbook rebuilds the index and waits for the outcome.
func (a *Assistant) ReloadCookbook(ctx context.Context) Result {
	st, err := a.index.Rebuild(ctx)
	a.emitter.IndexStatus(a.index.Status())
	if err != nil {
		return fail(err)
	}
	return ok(st.Message, st)
}

// ReloadCookbookAsync starts a rebuild in the background and returns at
// once. The outcome is reported through CookbookReloaded.
func (a *Assistant) ReloadCookbookAsync(ctx context.Context) Result {
	a.index.RebuildAsync(context.WithoutCancel(ctx), a.CookbookReloaded)
	return Result{Success: true, Message: "Reloading the cookbook."}
}

// CookbookReloaded publishes the index status after a background rebuild
// and asks the voice pipeline to acknowledge or apologize. A rebuild
// superseded by a newer request stays silent; the newer one reports. So
// does a clear, which leaves nothing to acknowledge.
func (a *Assistant) CookbookReloaded(st index.Status, err error) {
	a.emitter.IndexStatus(a.index.Status())
	ctx := context.Background()
	switch {
	case errors.Is(err, apperr.ErrSuperseded):
	case err != nil:
		a.logger.Warn("assistant: cookbook reload failed", slog.String("error", err.Error()))
		a.replier.Reply(ctx, reloadFailInstructions)
	case !st.Available:
		a.logger.Info("assistant: cookbook cleared")
	default:
		a.logger.Info("assistant: cookbook reloaded", slog.String("message", st.Message))
		a.replier.Reply(ctx, reloadAckInstructions)
	}
}

// ClearCookbook drops the index. With deleteDocuments the uploaded
// documents are removed from the store as well.
func (a *Assistant) ClearCookbook(ctx context.Context, deleteDocuments bool) Result {
	removed := 0
	if deleteDocuments {
		n, err := a.index.Store().DeleteAll()
		removed = n
		if err != nil {
			return fail(apperr.New(apperr.KindInternal, "assistant.clear_cookbook", err, "could not delete the uploaded documents"))
		}
	}
	st, err := a.index.Clear(ctx)
	a.emitter.IndexStatus(st)
	if err != nil {
		return fail(err)
	}
	msg := st.Message
	if deleteDocuments {
		msg = fmt.Sprintf("%s, %d documents deleted", msg, removed)
	}
	return ok(msg, st)
}

// GeneratePlan finds and structures a recipe, replacing the active plan.
func (a *Assistant) GeneratePlan(ctx context.Context, query string) Result {
	plan, err := a.session.GeneratePlan(ctx, query)
	if err != nil {
		r := fail(err)
		if apperr.KindOf(err) == apperr.KindExtraction {
			r.Message = "I found some info, but I couldn't extract a clear recipe structure from it."
		}
		return r
	}
	return ok(
		fmt.Sprintf("I've found the recipe for %s. It has %d steps. Shall we start cooking?", plan.Name, len(plan.Steps)),
		PlanData{RecipeName: plan.Name, StepsCount: len(plan.Steps), Plan: plan},
	)
}

// StartCooking enters cooking mode at step 1.
func (a *Assistant) StartCooking(_ context.Context) Result {
	out, err := a.session.StartCooking()
	if err != nil {
		return fail(err)
	}
	return ok(fmt.Sprintf("Great! Let's get started. Step 1: %s", out.Step.Instruction), stepData(out))
}

// NextStep advances the cursor.
func (a *Assistant) NextStep(_ context.Context) Result {
	return a.navigate(a.session.Advance())
}

// PreviousStep moves the cursor back.
func (a *Assistant) PreviousStep(_ context.Context) Result {
	out, err := a.session.Retreat()
	if err != nil {
		return fail(err)
	}
	return ok(fmt.Sprintf("Back to Step %d: %s", out.Step.StepNumber, out.Step.Instruction), stepData(out))
}

// GoToStep jumps to a 1-based step number.
func (a *Assistant) GoToStep(_ context.Context, stepNumber int) Result {
	return a.navigate(a.session.GoTo(stepNumber - 1))
}

func (a *Assistant) navigate(out cooking.Outcome, err error) Result {
	if err != nil {
		return fail(err)
	}
	if out.Complete {
		return ok("That was the last step! Enjoy your meal!", stepData(out))
	}
	msg := fmt.Sprintf("Step %d: %s", out.Step.StepNumber, out.Step.Instruction)
	if out.Step.Tips != "" {
		msg += " Tip: " + out.Step.Tips
	}
	return ok(msg, stepData(out))
}

// UIEvent is a navigation or selection event from the display.
type UIEvent struct {
	Type      string `json:"type"`
	Action    string `json:"action,omitempty"`
	StepIndex *int   `json:"step_index,omitempty"`
	Title     string `json:"title,omitempty"`
}

// HandleUIEvent routes a display event into the session. A recipe picked on
// screen is announced through the voice pipeline.
func (a *Assistant) HandleUIEvent(ctx context.Context, ev UIEvent) Result {
	switch ev.Type {
	case "ui_step_change":
		idx := -1
		if ev.StepIndex != nil {
			idx = *ev.StepIndex
		}
		return a.navigate(a.session.HandleUIStep(ev.Action, idx))
	case "request_recipe":
		if strings.TrimSpace(ev.Title) == "" {
			return fail(apperr.New(apperr.KindInvalidInput, "assistant.ui_event", nil, "request_recipe needs a title"))
		}
		r := a.GeneratePlan(ctx, ev.Title)
		a.replier.Reply(ctx, "The user picked a recipe on screen. Tell them, briefly: "+r.Message)
		return r
	default:
		return fail(apperr.New(apperr.KindInvalidInput, "assistant.ui_event", nil, fmt.Sprintf("unknown ui event %q", ev.Type)))
	}
}

// SetTimer starts a display timer.
func (a *Assistant) SetTimer(_ context.Context, minutes int, label string) Result {
	t := a.timers.Start(minutes, label)
	plural := "s"
	if t.Minutes == 1 {
		plural = ""
	}
	msg := fmt.Sprintf("Timer set for %d minute%s", t.Minutes, plural)
	if t.Label != kitchen.DefaultLabel {
		msg += ": " + t.Label
	}
	return ok(msg, TimerData{Timer: t})
}

// ClearTimers cancels every display timer.
func (a *Assistant) ClearTimers(_ context.Context) Result {
	a.timers.ClearAll()
	return ok("All timers cleared!", nil)
}

// AddToShoppingList adds "name|category|emoji|quantity" items.
func (a *Assistant) AddToShoppingList(_ context.Context, items string) Result {
	parsed := kitchen.ParseItems(items)
	if len(parsed) == 0 {
		return fail(apperr.New(apperr.KindInvalidInput, "assistant.shopping_add", nil, "No items to add."))
	}
	added := a.shopping.Add(parsed)
	data := ShoppingData{Added: added, Items: a.shopping.Items()}
	if len(added) == 0 {
		return ok("Updated quantities for existing items!", data)
	}
	return ok(fmt.Sprintf("Added %s to your shopping list!", strings.Join(added, ", ")), data)
}

// RemoveFromShoppingList removes comma-separated item names.
func (a *Assistant) RemoveFromShoppingList(_ context.Context, items string) Result {
	removed := a.shopping.Remove(strings.Split(items, ","))
	data := ShoppingData{Removed: removed, Items: a.shopping.Items()}
	if len(removed) == 0 {
		return Result{Kind: apperr.KindNotFound.String(), Message: "Those items weren't on your list.", Data: data}
	}
	return ok(fmt.Sprintf("Removed %s from your shopping list.", strings.Join(removed, ", ")), data)
}

// ClearShoppingList empties the shopping list.
func (a *Assistant) ClearShoppingList(_ context.Context) Result {
	a.shopping.Clear()
	return ok("Shopping list cleared!", ShoppingData{Items: a.shopping.Items()})
}

// AugmentTurn returns cookbook context for a finished user utterance when
// it looks like a cooking question and the cookbook has something relevant.
func (a *Assistant) AugmentTurn(ctx context.Context, utterance string) (string, bool) {
	if !a.index.IsAvailable() || !mentionsCooking(utterance) {
		return "", false
	}
	res, err := a.engine.Query(ctx, utterance, a.topK)
	if err != nil {
		a.logger.Warn("assistant: turn retrieval failed", slog.String("error", err.Error()))
		return "", false
	}
	if !res.Found() {
		return "", false
	}
	return "[Retrieved from cookbook]: " + retrieval.Format(res), true
}

func mentionsCooking(text string) bool {
	lower := strings.ToLower(text)
	for _, k := range turnKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// Status reports the index, session, and shopping list.
func (a *Assistant) Status(_ context.Context) Result {
	return ok("", StatusData{
		Index:    a.index.Status(),
		Session:  a.session.Snapshot(),
		Shopping: a.shopping.Items(),
	})
}
