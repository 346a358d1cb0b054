package ordinal

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/kirana/pkg/store"
)

func dense(n int) []Entry {
	out := make([]Entry, n)
	for i := range out {
		out[i] = Entry{ID: fmt.Sprintf("e%d", i+1), Order: i + 1}
	}
	return out
}

func orders(entries []Entry) []int {
	out := make([]int, len(entries))
	for i, e := range entries {
		out[i] = e.Order
	}
	sort.Ints(out)
	return out
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// assertNoDuplicates replays writes and checks no two ranked entries
// ever share an order.
func assertNoDuplicates(t *testing.T, entries []Entry, writes []Write) {
	t.Helper()
	cur := append([]Entry(nil), entries...)
	for _, w := range writes {
		cur = Apply(cur, []Write{w})
		seen := map[int]string{}
		for _, e := range cur {
			if e.Order == parked {
				continue
			}
			if other, ok := seen[e.Order]; ok {
				t.Fatalf("after %+v: %s and %s share order %d", w, other, e.ID, e.Order)
			}
			seen[e.Order] = e.ID
		}
	}
}

func TestInsertKeepsOrdersDense(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for n := 0; n <= 12; n++ {
		entries := dense(n)
		rng.Shuffle(len(entries), func(i, j int) { entries[i], entries[j] = entries[j], entries[i] })
		for k := 1; k <= n+1; k++ {
			writes, err := PlanInsert(entries, k)
			require.NoError(t, err)
			assertNoDuplicates(t, entries, writes)

			after := append(Apply(entries, writes), Entry{ID: "new", Order: k})
			assert.Equal(t, seq(n+1), orders(after), "n=%d k=%d", n, k)
		}
	}
}

func TestInsertBannerAtTwo(t *testing.T) {
	banners := []Entry{{"b1", 1}, {"b2", 2}, {"b3", 3}}
	writes, err := PlanInsert(banners, 2)
	require.NoError(t, err)

	after := Apply(banners, writes)
	assert.Equal(t, []Entry{{"b1", 1}, {"b2", 3}, {"b3", 4}}, after)
	assert.Equal(t, []int{1, 2, 3, 4}, orders(append(after, Entry{"new", 2})))
}

func TestInsertRejectsOutOfRange(t *testing.T) {
	_, err := PlanInsert(dense(3), 0)
	assert.ErrorIs(t, err, ErrInvalidPosition)
	_, err = PlanInsert(dense(3), 5)
	assert.ErrorIs(t, err, ErrInvalidPosition)
}

func TestMoveRoundTrip(t *testing.T) {
	for n := 1; n <= 9; n++ {
		entries := dense(n)
		for _, e := range entries {
			for p := 1; p <= n; p++ {
				there, err := PlanMove(entries, e.ID, p)
				require.NoError(t, err)
				assertNoDuplicates(t, entries, there)
				moved := Apply(entries, there)
				assert.Equal(t, seq(n), orders(moved))

				back, err := PlanMove(moved, e.ID, e.Order)
				require.NoError(t, err)
				assert.Equal(t, entries, Apply(moved, back), "n=%d id=%s p=%d", n, e.ID, p)
			}
		}
	}
}

func TestMoveShiftsRange(t *testing.T) {
	entries := dense(5)

	writes, err := PlanMove(entries, "e4", 2)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{"e1", 1}, {"e2", 3}, {"e3", 4}, {"e4", 2}, {"e5", 5}}, Apply(entries, writes))

	writes, err = PlanMove(entries, "e2", 4)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{"e1", 1}, {"e2", 4}, {"e3", 2}, {"e4", 3}, {"e5", 5}}, Apply(entries, writes))
}

func TestMoveClampsAndRejects(t *testing.T) {
	entries := dense(3)

	writes, err := PlanMove(entries, "e1", 10)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{"e1", 3}, {"e2", 1}, {"e3", 2}}, Apply(entries, writes))

	_, err = PlanMove(entries, "e1", 0)
	assert.ErrorIs(t, err, ErrInvalidPosition)

	_, err = PlanMove(entries, "missing", 1)
	assert.ErrorIs(t, err, store.ErrNotFound)

	writes, err = PlanMove(entries, "e2", 2)
	require.NoError(t, err)
	assert.Empty(t, writes)
}

func TestSwap(t *testing.T) {
	entries := dense(3)
	writes, err := PlanSwap(entries, "e1", "e2")
	require.NoError(t, err)
	assertNoDuplicates(t, entries, writes)
	assert.Equal(t, []Entry{{"e1", 2}, {"e2", 1}, {"e3", 3}}, Apply(entries, writes))
}

func TestNextOrder(t *testing.T) {
	assert.Equal(t, 1, NextOrder(nil))
	assert.Equal(t, 4, NextOrder([]Entry{{ID: "a", Order: 1}, {ID: "c", Order: 3}}))
}

func TestCompactClosesGaps(t *testing.T) {
	entries := []Entry{{"a", 2}, {"b", 5}, {"c", 9}}
	writes := PlanCompact(entries)
	assertNoDuplicates(t, entries, writes)
	assert.Equal(t, []Entry{{"a", 1}, {"b", 2}, {"c", 3}}, Apply(entries, writes))

	assert.Empty(t, PlanCompact(dense(4)))
}
