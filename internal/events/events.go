// Package events serializes session state changes to the external display.
//
// Delivery is fire-and-forget: emitting never fails and never blocks on the
// display. Every event is a self-contained snapshot or delta, so a display
// that sees one twice stays correct.
package events

import (
	"context"
	"log/slog"

	"github.com/starford/souschef/internal/index"
	"github.com/starford/souschef/internal/models"
)

// Emitter publishes display notifications.
type Emitter interface {
	TimerStart(t models.Timer)
	TimerClearAll()
	ShoppingListUpdate(items []models.ShoppingItem)
	ShoppingListClear()
	RecipePlan(plan *models.RecipePlan)
	RecipePlanStatus(status, query string)
	CookingModeStart()
	CookingModeComplete()
	StepUpdate(index int)
	IndexStatus(st index.Status)
}

// Replier asks the conversational pipeline to say something. The core
// never inspects the outcome.
type Replier interface {
	Reply(ctx context.Context, instructions string)
}

// Plan status values for RecipePlanStatus.
const (
	PlanStarted = "started"
	PlanFailed  = "failed"
)

// Event is one serialized notification. Name is "type.action", or just
// "type" for events without an action.
type Event struct {
	Name    string
	Payload map[string]any
	Retain  string
	Forget  []string
}

// Sink transports events to the display.
type Sink interface {
	Send(e Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

// Send calls f.
func (f SinkFunc) Send(e Event) { f(e) }

// Retained slots. A display that connects late receives the latest event of
// each slot.
const (
	slotPlan     = "recipe_plan"
	slotMode     = "cooking_mode"
	slotStep     = "step"
	slotShopping = "shopping_list"
	slotIndex    = "index"
)

// Display implements Emitter and Replier on top of a Sink.
type Display struct {
	sink   Sink
	logger *slog.Logger
}

var (
	_ Emitter = (*Display)(nil)
	_ Replier = (*Display)(nil)
)

// NewDisplay creates a Display writing to sink.
func NewDisplay(sink Sink, logger *slog.Logger) *Display {
	return &Display{sink: sink, logger: logger}
}

func (d *Display) emit(typ, action string, fields map[string]any, retain string, forget ...string) {
	payload := map[string]any{"type": typ}
	name := typ
	if action != "" {
		payload["action"] = action
		name = typ + "." + action
	}
	for k, v := range fields {
		payload[k] = v
	}
	d.logger.Debug("events: emit", slog.String("event", name))
	d.sink.Send(Event{Name: name, Payload: payload, Retain: retain, Forget: forget})
}

// TimerStart implements Emitter.
func (d *Display) TimerStart(t models.Timer) {
	d.emit("timer", "start", map[string]any{
		"id":      t.ID,
		"minutes": t.Minutes,
		"seconds": t.Seconds,
		"label":   t.Label,
	}, "")
}

// TimerClearAll implements Emitter.
func (d *Display) TimerClearAll() {
	d.emit("timer", "clear_all", nil, "")
}

// ShoppingListUpdate implements Emitter.
func (d *Display) ShoppingListUpdate(items []models.ShoppingItem) {
	cp := append([]models.ShoppingItem{}, items...)
	d.emit("shopping_list", "update", map[string]any{"items": cp}, slotShopping)
}

// ShoppingListClear implements Emitter.
func (d *Display) ShoppingListClear() {
	d.emit("shopping_list", "clear", map[string]any{"items": []models.ShoppingItem{}}, "", slotShopping)
}

// planView adds the title field the display keys its header on.
type planView struct {
	*models.RecipePlan
	Title string `json:"title"`
}

// RecipePlan implements Emitter. A new plan invalidates any cooking state
// held for late subscribers.
func (d *Display) RecipePlan(plan *models.RecipePlan) {
	cp := plan.Clone()
	d.emit("recipe_plan", "", map[string]any{"plan": planView{RecipePlan: cp, Title: cp.Name}}, slotPlan, slotMode, slotStep)
}

// RecipePlanStatus implements Emitter.
func (d *Display) RecipePlanStatus(status, query string) {
	d.emit("recipe_plan_status", "", map[string]any{"status": status, "query": query}, "")
}

// CookingModeStart implements Emitter.
func (d *Display) CookingModeStart() {
	d.emit("cooking_mode", "start", nil, slotMode, slotStep)
}

// CookingModeComplete implements Emitter.
func (d *Display) CookingModeComplete() {
	d.emit("cooking_mode", "complete", nil, slotMode, slotStep)
}

// StepUpdate implements Emitter.
func (d *Display) StepUpdate(index int) {
	d.emit("step_update", "", map[string]any{"step_index": index}, slotStep)
}

// IndexStatus implements Emitter.
func (d *Display) IndexStatus(st index.Status) {
	d.emit("index", "status", map[string]any{"status": st}, slotIndex)
}

// Reply implements Replier by publishing a reply request for the voice
// pipeline, which subscribes to the same channel.
func (d *Display) Reply(_ context.Context, instructions string) {
	d.emit("reply", "request", map[string]any{"instructions": instructions}, "")
}
