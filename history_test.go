package whiteboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory_Record(t *testing.T) {
	h := NewHistory()
	assert.Nil(t, h.Record())

	h.Record("a1", "a2")
	added := h.Record("b1", "b2")
	require.Len(t, added, 2)

	var urls []string
	for _, it := range h.Items() {
		urls = append(urls, it.URL)
	}
	assert.Equal(t, []string{"b1", "b2", "a1", "a2"}, urls)

	it, ok := h.Item(added[1].ID)
	require.True(t, ok)
	assert.Equal(t, "b2", it.URL)

	_, ok = h.Item("missing")
	assert.False(t, ok)
}
