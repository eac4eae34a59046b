package activity

import (
	"testing"

	"github.com/parley-chat/session-service/internal/domain"
)

func TestLog_AppendAndRecent(t *testing.T) {
	l := NewLog()

	l.Append(domain.ActivityEntry{Type: domain.ActivityJoin, Username: "alice", Room: "general"})
	l.Append(domain.ActivityEntry{Type: domain.ActivityMessage, Username: "alice", Room: "general", Content: "hi"})
	l.Append(domain.ActivityEntry{Type: domain.ActivityJoin, Username: "bob", Room: "random"})

	got := l.Recent("general", 0)
	if len(got) != 2 {
		t.Fatalf("Recent(general) returned %d entries, want 2", len(got))
	}
	if got[0].Type != domain.ActivityJoin || got[1].Type != domain.ActivityMessage {
		t.Fatalf("entries out of append order: %+v", got)
	}
	if got[0].Time.IsZero() {
		t.Fatal("Append should stamp the entry time")
	}

	if got := l.Recent("random", 0); len(got) != 1 || got[0].Username != "bob" {
		t.Fatalf("Recent(random) = %+v, want bob's join", got)
	}
}

func TestLog_RecentLimit(t *testing.T) {
	l := NewLog()
	for i := 0; i < 5; i++ {
		l.Append(domain.ActivityEntry{Type: domain.ActivityMessage, Username: "alice", Room: "general"})
	}
	l.Append(domain.ActivityEntry{Type: domain.ActivityLeave, Username: "alice", Room: "general"})

	got := l.Recent("general", 2)
	if len(got) != 2 {
		t.Fatalf("Recent with limit returned %d entries, want 2", len(got))
	}
	if got[1].Type != domain.ActivityLeave {
		t.Fatalf("limit should keep the latest entries, got %+v", got)
	}
}

func TestLog_RecentCopies(t *testing.T) {
	l := NewLog()
	l.Append(domain.ActivityEntry{Type: domain.ActivityJoin, Username: "alice", Room: "general"})

	got := l.Recent("general", 0)
	got[0].Username = "mallory"

	if l.Recent("general", 0)[0].Username != "alice" {
		t.Fatal("mutating the returned slice must not touch the log")
	}
}
