package live

import (
	"strings"
	"sync"
)

// ConversationItem is one entry in the session's conversation history. Items
// are append-only; the only removal paths are TruncateAt and an explicit
// ClearConversation.
type ConversationItem struct {
	ID   string `json:"id,omitempty"`
	Type string `json:"type"` // "message", "function_call", "function_call_output"

	// message fields
	Role    string        `json:"role,omitempty"`
	Content []ItemContent `json:"content,omitempty"`

	// function_call / function_call_output fields
	CallID    string `json:"call_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
	Output    string `json:"output,omitempty"`
}

// ItemContent is one content part of a message item.
type ItemContent struct {
	Type string `json:"type"` // "input_text", "text", "input_audio"
	Text string `json:"text,omitempty"`
}

// itemStore holds conversation items in arrival order.
type itemStore struct {
	mu    sync.Mutex
	items []ConversationItem
}

// Append adds an item at the end.
func (s *itemStore) Append(item ConversationItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, item)
}

// Adopt resolves a server acknowledgment against a locally-created item.
// Items created client-side carry no id until the server echoes them back;
// the echo replaces the earliest matching pending item in place, so one turn
// never yields two history entries. Returns whether a pending item was
// adopted.
func (s *itemStore) Adopt(ack ConversationItem) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == "" && pendingMatches(s.items[i], ack) {
			s.items[i] = ack
			return true
		}
	}
	return false
}

func pendingMatches(local, ack ConversationItem) bool {
	if local.Type != ack.Type {
		return false
	}
	if local.Type == "function_call_output" {
		return local.CallID == ack.CallID
	}
	return local.Role == ack.Role && itemText(local) == itemText(ack)
}

func itemText(item ConversationItem) string {
	var b strings.Builder
	for _, c := range item.Content {
		b.WriteString(c.Text)
	}
	return b.String()
}

// Items returns a copy of the history in order.
func (s *itemStore) Items() []ConversationItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ConversationItem, len(s.items))
	copy(out, s.items)
	return out
}

// TruncateAt removes the item with the given id and everything after it.
// Items before the truncation point keep their relative order. Returns
// whether the id was found.
func (s *itemStore) TruncateAt(itemID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, item := range s.items {
		if item.ID == itemID {
			s.items = s.items[:i]
			return true
		}
	}
	return false
}

// Clear drops the whole history.
func (s *itemStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}

// Len returns the current item count.
func (s *itemStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
