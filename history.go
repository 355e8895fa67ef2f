package whiteboard

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// History is the most-recent-first list of results produced during this
// session. It outlives the nodes that produced them.
type History struct {
	items []HistoryItem
	now   func() time.Time
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{now: time.Now}
}

// Record prepends urls, keeping their relative order.
func (h *History) Record(urls ...string) []HistoryItem {
	if len(urls) == 0 {
		return nil
	}
	at := h.now()
	added := make([]HistoryItem, len(urls))
	for i, u := range urls {
		added[i] = HistoryItem{ID: uuid.NewString(), URL: u, CreatedAt: at}
	}
	h.items = append(slices.Clone(added), h.items...)
	return added
}

// Items returns a copy of the history, newest first.
func (h *History) Items() []HistoryItem {
	return slices.Clone(h.items)
}

// Item looks up one entry by id.
func (h *History) Item(id string) (HistoryItem, bool) {
	for _, it := range h.items {
		if it.ID == id {
			return it, true
		}
	}
	return HistoryItem{}, false
}
