package kitchen

import (
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/starford/souschef/internal/events"
	"github.com/starford/souschef/internal/models"
)

// Defaults for fields missing from an item entry.
const (
	DefaultCategory = "Other"
	DefaultEmoji    = "🛒"
)

// ShoppingList is the session's shopping list. Every change publishes the
// full list.
type ShoppingList struct {
	emitter events.Emitter

	mu    sync.Mutex
	items []models.ShoppingItem
}

// NewShoppingList creates an empty list.
func NewShoppingList(emitter events.Emitter) *ShoppingList {
	return &ShoppingList{emitter: emitter}
}

// ParseItems parses "name|category|emoji|quantity" entries separated by
// commas. Missing fields take defaults; an unparseable quantity is 1.
func ParseItems(raw string) []models.ShoppingItem {
	var out []models.ShoppingItem
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, "|")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		item := models.ShoppingItem{Name: parts[0], Category: DefaultCategory, Emoji: DefaultEmoji, Quantity: 1}
		if item.Name == "" {
			continue
		}
		if len(parts) > 1 && parts[1] != "" {
			item.Category = parts[1]
		}
		if len(parts) > 2 && parts[2] != "" {
			item.Emoji = parts[2]
		}
		if len(parts) > 3 {
			if q, err := strconv.Atoi(parts[3]); err == nil && q > 0 {
				item.Quantity = q
			}
		}
		out = append(out, item)
	}
	return out
}

// Add merges items into the list. Names match case-insensitively; a match
// adds to the existing quantity. It returns the names that were new.
func (l *ShoppingList) Add(items []models.ShoppingItem) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var added []string
	for _, it := range items {
		if i := l.find(it.Name); i >= 0 {
			l.items[i].Quantity += it.Quantity
			continue
		}
		it.ID = "item-" + uuid.NewString()
		l.items = append(l.items, it)
		added = append(added, it.Name)
	}
	l.emitter.ShoppingListUpdate(l.items)
	return added
}

// Remove deletes the named items and returns the names actually removed.
func (l *ShoppingList) Remove(names []string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var removed []string
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if i := l.find(n); i >= 0 {
			removed = append(removed, l.items[i].Name)
			l.items = append(l.items[:i], l.items[i+1:]...)
		}
	}
	l.emitter.ShoppingListUpdate(l.items)
	return removed
}

// Clear empties the list.
func (l *ShoppingList) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = nil
	l.emitter.ShoppingListClear()
}

// Items returns a copy of the list.
func (l *ShoppingList) Items() []models.ShoppingItem {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.ShoppingItem{}, l.items...)
}

func (l *ShoppingList) find(name string) int {
	for i, it := range l.items {
		if strings.EqualFold(it.Name, name) {
			return i
		}
	}
	return -1
}
