package hallpass

import "testing"

func TestChunks(t *testing.T) {
	ids := []int{1, 2, 3, 4, 5, 6, 7}

	got := chunks(ids, 3)
	if len(got) != 3 {
		t.Fatalf("expected 3 windows, got %d", len(got))
	}
	if len(got[0]) != 3 || len(got[1]) != 3 || len(got[2]) != 1 {
		t.Errorf("unexpected window sizes: %d/%d/%d", len(got[0]), len(got[1]), len(got[2]))
	}

	total := 0
	for _, w := range got {
		total += len(w)
	}
	if total != len(ids) {
		t.Errorf("windows cover %d elements, want %d", total, len(ids))
	}
}

func TestChunksExactMultiple(t *testing.T) {
	got := chunks([]string{"a", "b", "c", "d"}, 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(got))
	}
	if len(got[1]) != 2 {
		t.Errorf("expected last window of 2, got %d", len(got[1]))
	}
}

func TestChunksEmptyAndOversized(t *testing.T) {
	if got := chunks([]int(nil), 10); got != nil {
		t.Errorf("expected nil for empty input, got %v", got)
	}
	got := chunks([]int{1, 2}, 100)
	if len(got) != 1 || len(got[0]) != 2 {
		t.Errorf("expected one window of 2, got %v", got)
	}
}
