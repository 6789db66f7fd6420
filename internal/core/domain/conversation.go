package domain

import "time"

// HistoryEntry is one answered question, appended to the history log
// whenever the completion provider was actually invoked.
type HistoryEntry struct {
	// ID is the unique identifier for the entry.
	ID string

	// RequesterID identifies who asked.
	RequesterID string

	// Question is the question text.
	Question string

	// Answer is the generated answer text.
	Answer string

	// CreatedAt is when the answer was produced.
	CreatedAt time.Time
}

// ConversationTurn is one question/answer exchange in a rolling memory.
type ConversationTurn struct {
	Question string
	Answer   string
}

// ConversationMemory is the short rolling memory kept per requester so the
// completion stage can be given recent context. Once the turn list grows
// past a size threshold it is collapsed into Summary by a secondary
// lightweight summarisation call.
type ConversationMemory struct {
	// RequesterID identifies the owner of this memory.
	RequesterID string

	// Summary is the compressed older history (may be empty).
	Summary string

	// Turns are the most recent exchanges, oldest first.
	Turns []ConversationTurn

	// UpdatedAt is when the memory last changed.
	UpdatedAt time.Time
}

// Size returns the total character size of the memory, the quantity
// compared against the summarisation threshold.
func (m *ConversationMemory) Size() int {
	size := len(m.Summary)
	for _, t := range m.Turns {
		size += len(t.Question) + len(t.Answer)
	}
	return size
}

// Append records one exchange.
func (m *ConversationMemory) Append(question, answer string, now time.Time) {
	m.Turns = append(m.Turns, ConversationTurn{Question: question, Answer: answer})
	m.UpdatedAt = now
}
