// Package kitchen holds the small cooking utilities the assistant drives on
// the display: countdown timers and the shopping list.
package kitchen

import (
	"github.com/google/uuid"

	"github.com/starford/souschef/internal/events"
	"github.com/starford/souschef/internal/models"
)

// Timer limits in minutes.
const (
	MinTimerMinutes = 1
	MaxTimerMinutes = 120
	DefaultLabel    = "Timer"
)

// Timers starts and clears display timers. The display runs the countdown.
type Timers struct {
	emitter events.Emitter
}

// NewTimers creates Timers.
func NewTimers(emitter events.Emitter) *Timers {
	return &Timers{emitter: emitter}
}

// Start clamps minutes to [1, 120], defaults the label, and emits timer.start.
func (t *Timers) Start(minutes int, label string) models.Timer {
	minutes = max(MinTimerMinutes, min(MaxTimerMinutes, minutes))
	if label == "" {
		label = DefaultLabel
	}
	timer := models.Timer{
		ID:      "timer-" + uuid.NewString(),
		Minutes: minutes,
		Seconds: minutes * 60,
		Label:   label,
	}
	t.emitter.TimerStart(timer)
	return timer
}

// ClearAll emits timer.clear_all.
func (t *Timers) ClearAll() {
	t.emitter.TimerClearAll()
}
