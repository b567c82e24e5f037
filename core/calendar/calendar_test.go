package calendar

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func ext(id, title, day string) Entry {
	return Entry{ID: id, Title: title, Start: date(day), End: date(day), AllDay: true}
}

func seqReconciler(m Matcher) *Reconciler {
	r := NewReconciler(m)
	n := 0
	r.newID = func() string {
		n++
		return fmt.Sprintf("owned-%d", n)
	}
	return r
}

func TestNormalize(t *testing.T) {
	var raws []RawEvent
	require.NoError(t, json.Unmarshal([]byte(`[
		{"id": "g1", "summary": "CSE 101 Lecture", "start": {"dateTime": "2024-04-02T10:00:00-07:00"}, "end": {"dateTime": "2024-04-02T11:20:00-07:00"}},
		{"id": "g2", "summary": "  ", "start": {"date": "2024-04-03"}, "end": {"date": "2024-04-04"}},
		{"id": "l1", "title": "Study group", "start": "2024-04-05T18:00:00Z", "end": "2024-04-05T17:00:00Z"},
		{"title": "No end", "start": "2024-04-06"},
		{"id": "bad", "summary": "Broken", "start": {}}
	]`), &raws))

	want := []struct {
		id     string
		title  string
		day    string
		allDay bool
	}{
		{id: "g1", title: "CSE 101 Lecture", day: "2024-04-02", allDay: false},
		{id: "g2", title: "No title", day: "2024-04-03", allDay: true},
		{id: "l1", title: "Study group", day: "2024-04-05", allDay: false},
		{id: "", title: "No end", day: "2024-04-06", allDay: true},
	}
	for i, w := range want {
		t.Run(w.title, func(t *testing.T) {
			e, err := Normalize(raws[i])
			require.NoError(t, err)
			if w.id != "" {
				assert.Equal(t, w.id, e.ID)
			} else {
				assert.Regexp(t, `^local_[0-9a-f]{32}$`, e.ID)
			}
			assert.Equal(t, w.title, e.Title)
			assert.Equal(t, w.day, e.Day())
			assert.Equal(t, w.allDay, e.AllDay)
			assert.False(t, e.End.Before(e.Start))
			assert.False(t, e.IsPriority)
		})
	}

	_, err := Normalize(raws[4])
	assert.Error(t, err)
}

func TestAssignmentKey(t *testing.T) {
	assert.Equal(t, "cse 101 final project_2024-04-02", AssignmentKey("  CSE 101: Final   Project! ", "2024-04-02"))
	assert.Equal(t, "_", AssignmentKey("", ""))
}

func TestFuzzyMatcher(t *testing.T) {
	tests := []struct {
		a, e string
		want bool
	}{
		{a: "CSE 101 Final Project", e: "CSE 101 Lecture", want: true},
		{a: "CSE 101 Final Project", e: "CSE101 Final", want: true},
		{a: "cse101", e: "CSE 101 Discussion", want: true},
		{a: "MATH 10A HW", e: "math 10a", want: true},
		{a: "Essay", e: "Dentist", want: false},
		{a: "A B", e: "A C", want: false}, // single-character words never match
		{a: "", e: "anything", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.a+" vs "+tt.e, func(t *testing.T) {
			assert.Equal(t, tt.want, FuzzyMatcher{}.Match(tt.a, tt.e))
		})
	}
}

func TestSimilarityMatcher(t *testing.T) {
	m := SimilarityMatcher{Threshold: 0.8}
	assert.True(t, m.Match("CSE 101 Final", "cse 101 final!"))
	assert.False(t, m.Match("CSE 101 Final Project", "CSE 101 Lecture"))
	assert.False(t, m.Match("", "x"))

	either := AnyMatcher{m, MatcherFunc(func(a, e string) bool { return e == "always" })}
	assert.True(t, either.Match("foo", "always"))
	assert.False(t, either.Match("foo", "bar"))
}

func TestReconcile_RetiresDuplicatesBeforeEmitting(t *testing.T) {
	snap := Snapshot{
		External: []Entry{
			ext("g1", "CSE 101 Lecture", "2024-04-02"),
			ext("g2", "CSE101 Final", "2024-04-02"),
			ext("g3", "CSE 101 Lecture", "2024-04-03"), // other day
			ext("g4", "Dentist", "2024-04-02"),
		},
	}
	plan := seqReconciler(nil).Reconcile(snap, []Scored{
		{Title: "CSE 101 Final Project", DueDate: "2024-04-02", Score: 0.4, Strength: 8},
	})

	kinds := make([]string, 0, len(plan.Ops))
	for _, op := range plan.Ops {
		kinds = append(kinds, string(op.Kind)+":"+op.Entry.ID)
	}
	assert.Equal(t, []string{"hide:g1", "hide:g2", "create:owned-1"}, kinds)
	assert.Equal(t, []string{"g1", "g2"}, plan.Retired)

	require.Len(t, plan.Owned, 1)
	owned := plan.Owned[0]
	assert.Equal(t, "cse 101 final project_2024-04-02", owned.AssignmentKey)
	assert.Equal(t, "CSE 101 Final Project (Priority: 0.40)", owned.Title)
	assert.True(t, owned.IsPriority)
	assert.True(t, owned.AllDay)
	assert.Equal(t, 0.4, *owned.Priority)
	assert.Equal(t, 8.0, *owned.ConfidenceWeight)

	// the external snapshot is never mutated
	assert.Equal(t, "CSE 101 Lecture", snap.External[0].Title)
	assert.Len(t, snap.External, 4)

	visible := Merge(Snapshot{Owned: plan.Owned, External: snap.External, Retired: plan.Retired})
	ids := make([]string, 0, len(visible))
	for _, e := range visible {
		ids = append(ids, e.ID)
	}
	assert.ElementsMatch(t, []string{"owned-1", "g3", "g4"}, ids)
}

func TestReconcile_Idempotent(t *testing.T) {
	r := seqReconciler(nil)
	scored := []Scored{
		{Title: "MATH 10A HW", DueDate: "2024-04-10", Score: 0.4, Strength: 8},
		{Title: "Essay", DueDate: "2024-04-12", Score: 0.9, Strength: 3},
		{Title: "No date", DueDate: "", Score: 0.1, Strength: 5},
	}
	first := r.Reconcile(Snapshot{}, scored)
	second := r.Reconcile(Snapshot{Owned: first.Owned, Retired: first.Retired}, scored)

	perKey := make(map[string]int)
	for _, e := range second.Owned {
		perKey[e.AssignmentKey]++
	}
	assert.Equal(t, map[string]int{"math 10a hw_2024-04-10": 1, "essay_2024-04-12": 1}, perKey)

	// each create is preceded by the delete of the entry it replaces
	var kinds []OpKind
	for _, op := range second.Ops {
		kinds = append(kinds, op.Kind)
	}
	assert.Equal(t, []OpKind{OpDelete, OpCreate, OpDelete, OpCreate}, kinds)
	assert.Equal(t, first.Owned[0].ID, second.Ops[0].Entry.ID)
}

func TestReconcile_SameKeyTwiceInOneBatch(t *testing.T) {
	plan := seqReconciler(nil).Reconcile(Snapshot{}, []Scored{
		{Title: "Lab", DueDate: "2024-04-10", Score: 0.1},
		{Title: "lab!", DueDate: "2024-04-10", Score: 0.7},
	})
	require.Len(t, plan.Owned, 1)
	assert.Equal(t, "lab! (Priority: 0.70)", plan.Owned[0].Title)
}

func TestReconcile_PluggableMatcher(t *testing.T) {
	snap := Snapshot{External: []Entry{ext("g1", "CSE 101 Lecture", "2024-04-02")}}
	never := MatcherFunc(func(string, string) bool { return false })
	plan := seqReconciler(never).Reconcile(snap, []Scored{{Title: "CSE 101 Final Project", DueDate: "2024-04-02"}})
	assert.Empty(t, plan.Retired)
}

func TestRemove(t *testing.T) {
	owned := []Entry{
		{ID: "o1", AssignmentKey: "a_2024-04-02", IsPriority: true},
		{ID: "o2", AssignmentKey: "b_2024-04-02", IsPriority: true},
	}
	kept, ops := Remove(owned, "a_2024-04-02", "deleted")
	require.Len(t, ops, 1)
	assert.Equal(t, "o1", ops[0].Entry.ID)
	if diff := cmp.Diff(owned[1:], kept); diff != "" {
		t.Errorf("Remove() mismatch (-want +got):\n%s", diff)
	}

	kept, ops = Remove(kept, "missing", "deleted")
	assert.Empty(t, ops)
	assert.Len(t, kept, 1)

	assert.Len(t, RemoveAll(owned, "reset"), 2)
}
