package history

import (
	"fmt"
	"sync"
	"testing"

	"medichat/internal/models"
)

func turnPair(i int) []models.Turn {
	return []models.Turn{
		{Role: models.RoleUser, Content: fmt.Sprintf("q%d", i)},
		{Role: models.RoleAssistant, Content: fmt.Sprintf("a%d", i)},
	}
}

func TestGetCreatesEmptySession(t *testing.T) {
	store := NewStore()
	if turns := store.Get("s1"); len(turns) != 0 {
		t.Fatalf("expected empty history, got %d turns", len(turns))
	}
	if store.Len("s1") != 0 {
		t.Fatalf("expected zero length")
	}
}

func TestWindowInvariant(t *testing.T) {
	const max = 10
	store := NewStore()

	for n := 1; n <= 8; n++ {
		store.AppendAndTrim("s1", turnPair(n), max)
		want := 2 * n
		if want > max {
			want = max
		}
		if got := store.Len("s1"); got != want {
			t.Fatalf("after %d pairs: len = %d, want %d", n, got, want)
		}
	}

	// Oldest turns dropped first, order preserved.
	turns := store.Get("s1")
	if turns[0].Content != "q4" || turns[1].Content != "a4" {
		t.Fatalf("unexpected window head: %+v", turns[:2])
	}
	if turns[len(turns)-1].Content != "a8" {
		t.Fatalf("unexpected window tail: %+v", turns[len(turns)-1])
	}
}

func TestGetReturnsCopy(t *testing.T) {
	store := NewStore()
	store.AppendAndTrim("s1", turnPair(1), 10)
	turns := store.Get("s1")
	turns[0].Content = "mutated"
	if store.Get("s1")[0].Content != "q1" {
		t.Fatalf("caller mutation leaked into store")
	}
}

func TestClearAll(t *testing.T) {
	store := NewStore()
	store.AppendAndTrim("s1", turnPair(1), 10)
	store.AppendAndTrim("s2", turnPair(2), 10)
	store.ClearAll()
	if store.Len("s1") != 0 || store.Len("s2") != 0 {
		t.Fatalf("sessions survived ClearAll")
	}
}

// Concurrent append-and-trim on one session must not lose updates or exceed
// the window.
func TestConcurrentAppendAndTrim(t *testing.T) {
	const max = 10
	store := NewStore()

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				store.AppendAndTrim("shared", turnPair(g*100+i), max)
			}
		}(g)
	}
	wg.Wait()

	if got := store.Len("shared"); got != max {
		t.Fatalf("len = %d, want %d", got, max)
	}
	// Each pair must have survived intact (user then assistant).
	turns := store.Get("shared")
	for i := 0; i < len(turns); i += 2 {
		if turns[i].Role != models.RoleUser || turns[i+1].Role != models.RoleAssistant {
			t.Fatalf("interleaved pair at %d: %+v", i, turns[i:i+2])
		}
	}
}
