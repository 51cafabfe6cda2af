package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddExchangeEvictsOldest(t *testing.T) {
	m := NewManager(2)
	id := m.Create()

	m.AddExchange(id, "q1", "a1")
	m.AddExchange(id, "q2", "a2")
	m.AddExchange(id, "q3", "a3")

	history := m.FormatHistory(id)
	assert.NotContains(t, history, "q1")
	assert.Contains(t, history, "q2")
	assert.Contains(t, history, "q3")
}

func TestFormatHistoryChronological(t *testing.T) {
	m := NewManager(5)
	id := m.Create()
	m.AddExchange(id, "first question", "first answer")
	m.AddExchange(id, "second question", "second answer")

	want := "User: first question\nAssistant: first answer\n" +
		"User: second question\nAssistant: second answer"
	assert.Equal(t, want, m.FormatHistory(id))
}

func TestFormatHistoryEmpty(t *testing.T) {
	m := NewManager(2)
	assert.Equal(t, "", m.FormatHistory(m.Create()))
	// Unknown ids start empty rather than erroring.
	assert.Equal(t, "", m.FormatHistory("never-seen"))
}

func TestClear(t *testing.T) {
	m := NewManager(2)
	id := m.Create()
	m.AddExchange(id, "q", "a")

	m.Clear(id)
	assert.Equal(t, "", m.FormatHistory(id))

	// Clearing twice is fine.
	m.Clear(id)
}

func TestCreateReturnsUniqueIDs(t *testing.T) {
	m := NewManager(2)
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id := m.Create()
		require.False(t, seen[id])
		seen[id] = true
	}
}

func TestConcurrentSessionsDoNotInterleave(t *testing.T) {
	m := NewManager(100)
	ids := []string{m.Create(), m.Create(), m.Create()}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				m.AddExchange(id, fmt.Sprintf("%s-q%d", id, i), "a")
			}
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		history := m.FormatHistory(id)
		for _, other := range ids {
			if other == id {
				continue
			}
			assert.NotContains(t, history, other+"-q")
		}
	}
}
