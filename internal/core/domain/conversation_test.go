package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConversationMemorySize(t *testing.T) {
	m := ConversationMemory{
		Summary: "resumen",
		Turns: []ConversationTurn{
			{Question: "hola", Answer: "buenas"},
		},
	}

	assert.Equal(t, len("resumen")+len("hola")+len("buenas"), m.Size())
}

func TestConversationMemoryAppend(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var m ConversationMemory
	m.Append("q1", "a1", now)
	m.Append("q2", "a2", now.Add(time.Minute))

	assert.Len(t, m.Turns, 2)
	assert.Equal(t, "q2", m.Turns[1].Question)
	assert.Equal(t, now.Add(time.Minute), m.UpdatedAt)
}

func TestCacheUsageTouch(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	u := CacheUsage{CreatedAt: now, LastUsedAt: now}
	u.Touch(now.Add(time.Hour))
	u.Touch(now.Add(2 * time.Hour))

	assert.Equal(t, 2, u.HitCount)
	assert.Equal(t, now.Add(2*time.Hour), u.LastUsedAt)
	assert.Equal(t, now, u.CreatedAt)
}
