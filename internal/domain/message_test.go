package domain

import (
	"reflect"
	"testing"
)

func TestReactions_AddIsIdempotent(t *testing.T) {
	var r Reactions

	r = r.Add("👍", "bob")
	r = r.Add("👍", "bob")
	r = r.Add("👍", "alice")

	if got := r["👍"]; !reflect.DeepEqual(got, []string{"bob", "alice"}) {
		t.Fatalf("reactions = %v, want [bob alice]", got)
	}
}

func TestReactions_RemoveDropsEmptySet(t *testing.T) {
	r := Reactions{}
	r = r.Add("👍", "bob")
	r = r.Remove("👍", "bob")

	if _, ok := r["👍"]; ok {
		t.Fatalf("emptied emoji key should be deleted, got %v", r)
	}

	// removing again or from an unknown emoji is a no-op
	r = r.Remove("👍", "bob")
	r = r.Remove("🎉", "alice")
}

func TestMessage_MarkSeenBy(t *testing.T) {
	m := Message{Username: "bob", SeenBy: []string{}}

	if !m.MarkSeenBy("alice") {
		t.Fatal("first view by alice should be recorded")
	}
	if m.MarkSeenBy("alice") {
		t.Fatal("second view by alice should be a no-op")
	}
	if m.MarkSeenBy("bob") {
		t.Fatal("the author must never enter seenBy")
	}
	if !reflect.DeepEqual(m.SeenBy, []string{"alice"}) {
		t.Fatalf("seenBy = %v, want [alice]", m.SeenBy)
	}
}
