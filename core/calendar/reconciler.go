package calendar

import (
	"context"
	"sort"
	"time"

	"github.com/kyleyee20/aevum/core"
)

type OpKind string

const (
	OpDelete OpKind = "delete" // drop an owned entry
	OpHide   OpKind = "hide"   // retire an external duplicate; the external entry itself is untouched
	OpCreate OpKind = "create" // emit an owned entry
)

type (
	Op struct {
		Kind   OpKind `json:"kind"`
		Entry  Entry  `json:"entry"`
		Reason string `json:"reason,omitempty"`
	}

	// Scored is an assignment that just came back from the oracle.
	Scored struct {
		Title       string
		DueDate     string
		Score       float64
		Strength    float64
		Recommended string
	}

	// Snapshot is the calendar state a reconciliation starts from.
	Snapshot struct {
		Owned    []Entry  `json:"owned"`
		External []Entry  `json:"external"`
		Retired  []string `json:"retired"` // ids of external entries retired as duplicates
	}

	// Plan is the outcome of a reconciliation: the ordered ops to replay on a Sink, and the
	// resulting owned and retired sets.
	Plan struct {
		Ops     []Op
		Owned   []Entry
		Retired []string
	}

	// Provider fetches the external calendar of the signed-in student.
	Provider interface {
		Events(ctx context.Context, credential string) ([]RawEvent, error)
	}

	// Sink mirrors owned entries into an outer calendar. Ops arrive in plan order.
	Sink interface {
		Apply(ctx context.Context, credential string, ops []Op) error
	}

	// Reconciler replaces owned entries of freshly scored assignments and retires their external
	// duplicates.
	Reconciler struct {
		matcher Matcher
		newID   func() string
	}
)

func NewReconciler(m Matcher) *Reconciler {
	if m == nil {
		m = FuzzyMatcher{}
	}
	return &Reconciler{matcher: m, newID: NewID}
}

// Reconcile processes scored in order. For each one with a valid due date it deletes the owned
// entry with the same assignment key, hides every external entry of the same day whose title
// matches, then creates exactly one new owned entry. All deletes and hides of an assignment
// precede its create in Plan.Ops.
func (r *Reconciler) Reconcile(snap Snapshot, scored []Scored) Plan {
	plan := Plan{
		Owned:   append([]Entry(nil), snap.Owned...),
		Retired: append([]string(nil), snap.Retired...),
	}
	retired := make(map[string]bool, len(snap.Retired))
	for _, id := range snap.Retired {
		retired[id] = true
	}

	for _, s := range scored {
		due, err := core.ParseDate(s.DueDate)
		if err != nil {
			continue
		}
		key := AssignmentKey(s.Title, s.DueDate)

		var ops []Op
		plan.Owned, ops = Remove(plan.Owned, key, "replaced")
		plan.Ops = append(plan.Ops, ops...)

		day := core.FormatDate(due)
		for _, ext := range snap.External {
			if ext.IsPriority || retired[ext.ID] || ext.Day() != day {
				continue
			}
			if r.matcher.Match(s.Title, ext.Title) {
				retired[ext.ID] = true
				plan.Retired = append(plan.Retired, ext.ID)
				plan.Ops = append(plan.Ops, Op{Kind: OpHide, Entry: ext, Reason: "duplicate of " + key})
			}
		}

		entry := r.owned(s, key, due)
		plan.Owned = append(plan.Owned, entry)
		plan.Ops = append(plan.Ops, Op{Kind: OpCreate, Entry: entry})
	}
	return plan
}

func (r *Reconciler) owned(s Scored, key string, due time.Time) Entry {
	score, strength := s.Score, s.Strength
	return Entry{
		ID:               r.newID(),
		AssignmentKey:    key,
		Title:            OwnedTitle(s.Title, s.Score),
		Start:            due,
		End:              due,
		AllDay:           true,
		Priority:         &score,
		ConfidenceWeight: &strength,
		Recommended:      s.Recommended,
		IsPriority:       true,
	}
}

// Remove drops every owned entry carrying key and returns one delete op per dropped entry.
// External entries are never touched.
func Remove(owned []Entry, key, reason string) ([]Entry, []Op) {
	var ops []Op
	kept := make([]Entry, 0, len(owned))
	for _, e := range owned {
		if e.IsPriority && e.AssignmentKey == key {
			ops = append(ops, Op{Kind: OpDelete, Entry: e, Reason: reason})
			continue
		}
		kept = append(kept, e)
	}
	return kept, ops
}

// RemoveAll drops every owned entry.
func RemoveAll(owned []Entry, reason string) []Op {
	ops := make([]Op, 0, len(owned))
	for _, e := range owned {
		ops = append(ops, Op{Kind: OpDelete, Entry: e, Reason: reason})
	}
	return ops
}

// Merge returns the visible calendar: owned entries plus external entries that were not retired,
// ordered by start.
func Merge(snap Snapshot) []Entry {
	retired := make(map[string]bool, len(snap.Retired))
	for _, id := range snap.Retired {
		retired[id] = true
	}
	out := make([]Entry, 0, len(snap.Owned)+len(snap.External))
	out = append(out, snap.Owned...)
	for _, e := range snap.External {
		if !retired[e.ID] {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}
