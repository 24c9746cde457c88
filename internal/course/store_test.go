package course

import (
	"testing"
	"time"
)

func TestMemoryStoreCRUD(t *testing.T) {
	store := NewMemoryStore(0)

	if _, ok := store.Get("u1"); ok {
		t.Error("empty store should miss")
	}

	s := NewSession("u1", "go", Curriculum{Raw: "plan"})
	if err := store.Put(s); err != nil {
		t.Fatal(err)
	}

	got, ok := store.Get("u1")
	if !ok {
		t.Fatal("session not found after Put")
	}
	if got.Topic != "go" || got.State != StateLearning {
		t.Errorf("got session %+v", got)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("Put should stamp UpdatedAt")
	}

	if err := store.Delete("u1"); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.Get("u1"); ok {
		t.Error("session survives Delete")
	}
}

func TestMemoryStoreTTL(t *testing.T) {
	store := NewMemoryStore(20 * time.Millisecond)

	if err := store.Put(NewSession("u1", "go", Curriculum{})); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.Get("u1"); !ok {
		t.Fatal("fresh session should be present")
	}

	time.Sleep(40 * time.Millisecond)
	if _, ok := store.Get("u1"); ok {
		t.Error("expired session returned")
	}
	if got := store.All(); len(got) != 0 {
		t.Errorf("All returned %d expired sessions", len(got))
	}
}

func TestMemoryStoreAll(t *testing.T) {
	store := NewMemoryStore(0)
	for _, id := range []string{"a", "b", "c"} {
		if err := store.Put(NewSession(id, "go", Curriculum{})); err != nil {
			t.Fatal(err)
		}
	}
	if got := store.All(); len(got) != 3 {
		t.Errorf("All returned %d sessions, want 3", len(got))
	}
}
