package presence

import (
	"reflect"
	"sync"
	"testing"
)

func TestRegistry_JoinLeave(t *testing.T) {
	tests := []struct {
		name string
		ops  func(r *Registry)
		room string
		want []string
	}{
		{
			name: "single join",
			ops: func(r *Registry) {
				r.Join("general", "alice")
			},
			room: "general",
			want: []string{"alice"},
		},
		{
			name: "join is idempotent",
			ops: func(r *Registry) {
				r.Join("general", "alice")
				r.Join("general", "alice")
			},
			room: "general",
			want: []string{"alice"},
		},
		{
			name: "leave removes",
			ops: func(r *Registry) {
				r.Join("general", "alice")
				r.Join("general", "bob")
				r.Leave("general", "alice")
			},
			room: "general",
			want: []string{"bob"},
		},
		{
			name: "leave of absent user is a no-op",
			ops: func(r *Registry) {
				r.Join("general", "alice")
				r.Leave("general", "bob")
			},
			room: "general",
			want: []string{"alice"},
		},
		{
			name: "rooms are independent",
			ops: func(r *Registry) {
				r.Join("general", "alice")
				r.Join("random", "bob")
				r.Leave("random", "bob")
			},
			room: "general",
			want: []string{"alice"},
		},
		{
			name: "rejoin after leave",
			ops: func(r *Registry) {
				r.Join("general", "alice")
				r.Leave("general", "alice")
				r.Join("general", "alice")
			},
			room: "general",
			want: []string{"alice"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			tt.ops(r)

			got := r.Online(tt.room)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Online(%q) = %v, want %v", tt.room, got, tt.want)
			}
		})
	}
}

func TestRegistry_JoinReturnsUpdatedSet(t *testing.T) {
	r := NewRegistry()

	got := r.Join("general", "alice")
	if !reflect.DeepEqual(got, []string{"alice"}) {
		t.Fatalf("Join returned %v, want [alice]", got)
	}

	got = r.Join("general", "bob")
	if !reflect.DeepEqual(got, []string{"alice", "bob"}) {
		t.Fatalf("Join returned %v, want [alice bob]", got)
	}

	got = r.Leave("general", "alice")
	if !reflect.DeepEqual(got, []string{"bob"}) {
		t.Fatalf("Leave returned %v, want [bob]", got)
	}
}

func TestRegistry_EmptyRoom(t *testing.T) {
	r := NewRegistry()

	if got := r.Online("nowhere"); len(got) != 0 {
		t.Fatalf("Online of unknown room = %v, want empty", got)
	}
	if got := r.Leave("nowhere", "alice"); len(got) != 0 {
		t.Fatalf("Leave on unknown room = %v, want empty", got)
	}
}

func TestRegistry_ConcurrentTransitions(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	users := []string{"alice", "bob", "carol", "dave"}
	for _, u := range users {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				r.Join("general", u)
			}
		}(u)
	}
	wg.Wait()

	// a concurrent join of another user must never be lost to a leave
	wg.Add(2)
	go func() {
		defer wg.Done()
		r.Leave("general", "dave")
	}()
	go func() {
		defer wg.Done()
		r.Join("general", "erin")
	}()
	wg.Wait()

	got := r.Online("general")
	want := []string{"alice", "bob", "carol", "erin"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Online = %v, want %v", got, want)
	}
}
