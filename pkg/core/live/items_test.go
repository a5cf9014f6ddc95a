package live

import "testing"

func messageItem(id, text string) ConversationItem {
	return ConversationItem{
		ID:      id,
		Type:    "message",
		Role:    "user",
		Content: []ItemContent{{Type: "input_text", Text: text}},
	}
}

func TestItemStoreTruncateAt(t *testing.T) {
	var s itemStore
	s.Append(messageItem("item_1", "first"))
	s.Append(messageItem("item_2", "second"))
	s.Append(messageItem("item_3", "third"))

	// Removal is inclusive of the target and everything after it.
	if !s.TruncateAt("item_2") {
		t.Fatal("TruncateAt should report the id was found")
	}

	items := s.Items()
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	if items[0].ID != "item_1" {
		t.Errorf("surviving item = %s, want item_1", items[0].ID)
	}
}

func TestItemStoreTruncateAtUnknownID(t *testing.T) {
	var s itemStore
	s.Append(messageItem("item_1", "first"))

	if s.TruncateAt("nope") {
		t.Error("TruncateAt should report an unknown id")
	}
	if s.Len() != 1 {
		t.Errorf("history modified on a miss: Len = %d", s.Len())
	}
}

func TestItemStoreItemsIsACopy(t *testing.T) {
	var s itemStore
	s.Append(messageItem("item_1", "first"))

	items := s.Items()
	items[0].ID = "mutated"

	if s.Items()[0].ID != "item_1" {
		t.Error("caller mutation leaked into the store")
	}
}

func TestItemStoreClear(t *testing.T) {
	var s itemStore
	s.Append(messageItem("item_1", "first"))
	s.Clear()
	if s.Len() != 0 {
		t.Errorf("Len = %d after Clear, want 0", s.Len())
	}
}
