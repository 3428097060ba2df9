package cluster

import (
	"math/rand"
	"strconv"
	"testing"
	"time"
)

type stamped struct {
	id string
	at time.Time
}

func atOf(s stamped) time.Time { return s.at }

var base = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func hours(id string, h float64) stamped {
	return stamped{id: id, at: base.Add(time.Duration(h * float64(time.Hour)))}
}

func ids(groups [][]stamped) [][]string {
	out := make([][]string, len(groups))
	for i, g := range groups {
		for _, s := range g {
			out[i] = append(out[i], s.id)
		}
	}
	return out
}

func TestByGap(t *testing.T) {
	tests := []struct {
		name   string
		items  []stamped
		maxGap time.Duration
		want   [][]string
	}{
		{
			name:   "empty",
			items:  nil,
			maxGap: time.Hour,
			want:   [][]string{},
		},
		{
			name:   "single item",
			items:  []stamped{hours("a", 0)},
			maxGap: time.Hour,
			want:   [][]string{{"a"}},
		},
		{
			name:   "two events a day apart",
			items:  []stamped{hours("a", 0), hours("b", 2), hours("c", 30), hours("d", 31)},
			maxGap: 24 * time.Hour,
			want:   [][]string{{"a", "b"}, {"c", "d"}},
		},
		{
			name:   "unsorted input",
			items:  []stamped{hours("d", 31), hours("b", 2), hours("c", 30), hours("a", 0)},
			maxGap: 24 * time.Hour,
			want:   [][]string{{"a", "b"}, {"c", "d"}},
		},
		{
			name:   "chained gaps span past maxGap",
			items:  []stamped{hours("a", 0), hours("b", 5), hours("c", 10), hours("d", 15)},
			maxGap: 6 * time.Hour,
			want:   [][]string{{"a", "b", "c", "d"}},
		},
		{
			name:   "gap equal to maxGap stays in group",
			items:  []stamped{hours("a", 0), hours("b", 6), hours("c", 12.5)},
			maxGap: 6 * time.Hour,
			want:   [][]string{{"a", "b"}, {"c"}},
		},
		{
			name:   "equal timestamps keep input order",
			items:  []stamped{hours("x", 1), hours("y", 1), hours("z", 1)},
			maxGap: 0,
			want:   [][]string{{"x", "y", "z"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(ByGap(tt.items, atOf, tt.maxGap))
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d groups, got %d: %v", len(tt.want), len(got), got)
			}
			for i := range tt.want {
				if len(got[i]) != len(tt.want[i]) {
					t.Fatalf("group %d: expected %v, got %v", i, tt.want[i], got[i])
				}
				for j := range tt.want[i] {
					if got[i][j] != tt.want[i][j] {
						t.Errorf("group %d item %d: expected %s, got %s", i, j, tt.want[i][j], got[i][j])
					}
				}
			}
		})
	}
}

func TestByGapDoesNotMutateInput(t *testing.T) {
	items := []stamped{hours("b", 3), hours("a", 1)}
	ByGap(items, atOf, time.Hour)
	if items[0].id != "b" || items[1].id != "a" {
		t.Fatalf("input reordered: %v", items)
	}
}

func TestByGapPartitionProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	maxGap := 36 * time.Hour

	for round := 0; round < 50; round++ {
		n := rng.Intn(200)
		items := make([]stamped, n)
		seen := make(map[string]bool, n)
		for i := range items {
			id := strconv.Itoa(i)
			items[i] = hours(id, rng.Float64()*24*60)
			seen[id] = false
		}

		groups := ByGap(items, atOf, maxGap)

		total := 0
		for gi, g := range groups {
			if len(g) == 0 {
				t.Fatalf("round %d: group %d is empty", round, gi)
			}
			for i, s := range g {
				if seen[s.id] {
					t.Fatalf("round %d: item %s appears twice", round, s.id)
				}
				seen[s.id] = true
				total++
				if i > 0 {
					gap := s.at.Sub(g[i-1].at)
					if gap < 0 {
						t.Fatalf("round %d: group %d not sorted", round, gi)
					}
					if gap > maxGap {
						t.Fatalf("round %d: gap %s inside group exceeds %s", round, gap, maxGap)
					}
				}
			}
			if gi > 0 {
				prev := groups[gi-1]
				if gap := g[0].at.Sub(prev[len(prev)-1].at); gap <= maxGap {
					t.Fatalf("round %d: gap %s between groups %d and %d does not exceed %s", round, gap, gi-1, gi, maxGap)
				}
			}
		}
		if total != n {
			t.Fatalf("round %d: expected %d items across groups, got %d", round, n, total)
		}
	}
}
