package assignment

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/kyleyee20/aevum/core"
	"github.com/kyleyee20/aevum/core/calendar"
	"github.com/kyleyee20/aevum/core/course"
	"github.com/kyleyee20/aevum/core/oracle"
)

// DefaultMaxCompletedAge is how many days completed assignments are kept.
const DefaultMaxCompletedAge = 30

var (
	ErrNotFound          = errors.Wrap(core.ErrNotFound, "assignment")
	ErrCompletedNotFound = errors.Wrap(core.ErrNotFound, "completed assignment")
)

type (
	// State is everything the engine persists about assignments.
	State struct {
		Active    []Assignment
		Completed []Completed
		Calendar  calendar.Snapshot
		Sort      SortOrder
		// Dismissed holds ids of external entries whose imported assignment was deleted, so
		// later imports leave them alone.
		Dismissed []string
	}

	// Env is what a transition may depend on besides the state itself.
	Env struct {
		Today      time.Time
		Resolver   *course.Resolver
		Vocabulary course.Vocabulary
		Reconciler *calendar.Reconciler
		NewID      func() string
	}

	// Action is one state transition.
	Action interface {
		apply(s *State, env Env) (Outcome, error)
	}

	// Outcome reports what a transition did beyond changing the state.
	Outcome struct {
		Ops        []calendar.Op // calendar ops to mirror, in order
		Assignment *Assignment   // the assignment created or changed
		Completed  *Completed
		Discarded  int // stale oracle results dropped
		Imported   int
		Pruned     int
	}

	Add struct{ New NewAssignment }

	EditAction struct {
		ID   string
		Edit Edit
	}

	Delete struct{ ID string }

	Complete struct{ ID string }

	Undo struct{ CompletedID string }

	// Score applies an oracle result. Rows whose assignment is gone, or whose title or due
	// date changed since the batch was encoded, are discarded.
	Score struct{ Result oracle.Result }

	PruneOverdue struct{}

	PruneCompleted struct{ MaxAgeDays int }

	// Import replaces the external calendar snapshot and adds an assignment for every external
	// entry that names a course of the vocabulary. Owned entries echoed back by the calendar,
	// past entries and dismissed entries never become assignments.
	Import struct{ Entries []calendar.Entry }

	// Reresolve refreshes every weight that was not manually overridden.
	Reresolve struct{}

	ResetAll struct{}

	SetSort struct{ Order SortOrder }
)

// Reduce applies a to a copy of s. s itself is left untouched.
func Reduce(s State, a Action, env Env) (State, Outcome, error) {
	if env.NewID == nil {
		env.NewID = uuid.NewString
	}
	if env.Today.IsZero() {
		env.Today = core.Today()
	}
	if env.Reconciler == nil {
		env.Reconciler = calendar.NewReconciler(nil)
	}
	next := s.clone()
	out, err := a.apply(&next, env)
	if err != nil {
		return s, Outcome{}, err
	}
	return next, out, nil
}

func (s State) clone() State {
	c := State{
		Active:    append([]Assignment(nil), s.Active...),
		Completed: append([]Completed(nil), s.Completed...),
		Calendar: calendar.Snapshot{
			Owned:    append([]calendar.Entry(nil), s.Calendar.Owned...),
			External: append([]calendar.Entry(nil), s.Calendar.External...),
			Retired:  append([]string(nil), s.Calendar.Retired...),
		},
		Sort:      s.Sort,
		Dismissed: append([]string(nil), s.Dismissed...),
	}
	return c
}

func (s *State) indexOf(id string) int {
	for i, a := range s.Active {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// known reports whether an active or completed assignment already has key or was imported
// from the external entry origin.
func (s *State) known(key, origin string) bool {
	for _, a := range s.Active {
		if a.Key() == key || (origin != "" && a.Origin == origin) {
			return true
		}
	}
	for _, c := range s.Completed {
		if c.Key() == key || (origin != "" && c.Origin == origin) {
			return true
		}
	}
	return false
}

func (s *State) dismiss(origin string) {
	if origin == "" {
		return
	}
	for _, id := range s.Dismissed {
		if id == origin {
			return
		}
	}
	s.Dismissed = append(s.Dismissed, origin)
}

// dropOwned removes the owned entry of key, if any.
func (s *State) dropOwned(key, reason string) []calendar.Op {
	var ops []calendar.Op
	s.Calendar.Owned, ops = calendar.Remove(s.Calendar.Owned, key, reason)
	return ops
}

func (act Add) apply(s *State, env Env) (Outcome, error) {
	if err := core.ValidateStruct(act.New); err != nil {
		return Outcome{}, err
	}
	a := Assignment{
		ID:      env.NewID(),
		Title:   core.CleanString(act.New.Title),
		DueDate: core.CleanString(act.New.DueDate),
	}
	if a.DueDate == "" {
		a.DueDate = core.FormatDate(env.Today)
	}
	if act.New.Strength != nil {
		a.Strength = *act.New.Strength
		a.ManualOverride = true
	} else {
		a.Strength = course.DefaultStrength
		a.resolve(env.Resolver)
	}
	s.Active = append(s.Active, a)
	return Outcome{Assignment: &a}, nil
}

func (act EditAction) apply(s *State, env Env) (Outcome, error) {
	if err := core.ValidateStruct(act.Edit); err != nil {
		return Outcome{}, err
	}
	i := s.indexOf(act.ID)
	if i < 0 {
		return Outcome{}, ErrNotFound
	}
	a := s.Active[i]
	oldKey := a.Key()

	titleChanged := false
	if act.Edit.Title != nil {
		if title := core.CleanString(*act.Edit.Title); title != a.Title {
			a.Title = title
			titleChanged = true
		}
	}
	if act.Edit.DueDate != nil {
		a.DueDate = core.CleanString(*act.Edit.DueDate)
	}
	switch {
	case act.Edit.ResetStrength:
		a.ManualOverride = false
		a.resolve(env.Resolver)
	case act.Edit.Strength != nil:
		a.Strength = *act.Edit.Strength
		a.ManualOverride = true
	case titleChanged:
		a.resolve(env.Resolver)
	}
	s.Active[i] = a

	out := Outcome{Assignment: &a}
	if a.Key() != oldKey {
		out.Ops = s.dropOwned(oldKey, "edited")
	}
	return out, nil
}

func (act Delete) apply(s *State, _ Env) (Outcome, error) {
	i := s.indexOf(act.ID)
	if i < 0 {
		return Outcome{}, ErrNotFound
	}
	a := s.Active[i]
	s.Active = append(s.Active[:i], s.Active[i+1:]...)
	s.dismiss(a.Origin)
	return Outcome{Ops: s.dropOwned(a.Key(), "deleted")}, nil
}

func (act Complete) apply(s *State, env Env) (Outcome, error) {
	i := s.indexOf(act.ID)
	if i < 0 {
		return Outcome{}, ErrNotFound
	}
	a := s.Active[i]
	c := Completed{
		Assignment:  a,
		CompletedAt: core.FormatDate(env.Today),
		Recommended: a.Recommend(env.Today),
	}
	s.Active = append(s.Active[:i], s.Active[i+1:]...)
	s.Completed = append(s.Completed, c)
	return Outcome{Ops: s.dropOwned(a.Key(), "completed"), Completed: &c}, nil
}

func (act Undo) apply(s *State, env Env) (Outcome, error) {
	for i, c := range s.Completed {
		if c.ID != act.CompletedID {
			continue
		}
		a := Assignment{
			ID:       env.NewID(),
			Title:    c.Title,
			DueDate:  c.DueDate,
			Strength: course.DefaultStrength,
			Origin:   c.Origin,
		}
		s.Completed = append(s.Completed[:i], s.Completed[i+1:]...)
		s.Active = append(s.Active, a)
		return Outcome{Assignment: &a}, nil
	}
	return Outcome{}, ErrCompletedNotFound
}

func (act Score) apply(s *State, env Env) (Outcome, error) {
	var (
		out    Outcome
		scored []calendar.Scored
	)
	b := act.Result.Batch
	for row, id := range b.IDs {
		i := s.indexOf(id)
		if i < 0 || row >= len(b.Keys) || row >= len(act.Result.Scores) || s.Active[i].Key() != b.Keys[row] {
			out.Discarded++
			continue
		}
		score := act.Result.Scores[row]
		a := &s.Active[i]
		a.Score = &score
		if !a.HasValidDue() {
			continue
		}
		scored = append(scored, calendar.Scored{
			Title:       a.Title,
			DueDate:     a.DueDate,
			Score:       score,
			Strength:    a.Strength,
			Recommended: a.Recommend(env.Today).String(),
		})
	}

	plan := env.Reconciler.Reconcile(s.Calendar, scored)
	s.Calendar.Owned = plan.Owned
	s.Calendar.Retired = plan.Retired
	out.Ops = plan.Ops
	return out, nil
}

func (PruneOverdue) apply(s *State, env Env) (Outcome, error) {
	var out Outcome
	kept := s.Active[:0]
	for _, a := range s.Active {
		due, err := core.ParseDate(a.DueDate)
		if err == nil && due.Before(env.Today) {
			out.Ops = append(out.Ops, s.dropOwned(a.Key(), "overdue")...)
			out.Pruned++
			continue
		}
		kept = append(kept, a)
	}
	s.Active = kept
	return out, nil
}

func (act PruneCompleted) apply(s *State, env Env) (Outcome, error) {
	maxAge := act.MaxAgeDays
	if maxAge <= 0 {
		maxAge = DefaultMaxCompletedAge
	}
	var out Outcome
	kept := s.Completed[:0]
	for _, c := range s.Completed {
		at, err := core.ParseDate(c.CompletedAt)
		if err == nil && core.DaysBetween(at, env.Today) > maxAge {
			out.Pruned++
			continue
		}
		kept = append(kept, c)
	}
	s.Completed = kept
	return out, nil
}

func (act Import) apply(s *State, env Env) (Outcome, error) {
	owned := make(map[string]bool, len(s.Calendar.Owned))
	for _, e := range s.Calendar.Owned {
		owned[e.ID] = true
	}
	external := make([]calendar.Entry, 0, len(act.Entries))
	ids := make(map[string]bool, len(act.Entries))
	for _, e := range act.Entries {
		if e.IsPriority || owned[e.ID] {
			continue
		}
		external = append(external, e)
		ids[e.ID] = true
	}

	// forget retirements and dismissals of entries the calendar no longer has
	s.Calendar.Retired = keepListed(s.Calendar.Retired, ids)
	s.Dismissed = keepListed(s.Dismissed, ids)
	s.Calendar.External = external

	dismissed := make(map[string]bool, len(s.Dismissed))
	for _, id := range s.Dismissed {
		dismissed[id] = true
	}
	todayStr := core.FormatDate(env.Today)

	var out Outcome
	for _, e := range external {
		if dismissed[e.ID] || e.Day() < todayStr {
			continue
		}
		if _, ok := env.Vocabulary.MatchCompact(e.Title); !ok {
			continue
		}
		a := Assignment{ID: env.NewID(), Title: e.Title, DueDate: e.Day(), Strength: course.DefaultStrength, Origin: e.ID}
		if s.known(a.Key(), a.Origin) {
			continue
		}
		a.resolve(env.Resolver)
		s.Active = append(s.Active, a)
		out.Imported++
	}
	return out, nil
}

func keepListed(ids []string, listed map[string]bool) []string {
	kept := ids[:0]
	for _, id := range ids {
		if listed[id] {
			kept = append(kept, id)
		}
	}
	return kept
}

func (Reresolve) apply(s *State, env Env) (Outcome, error) {
	for i := range s.Active {
		s.Active[i].resolve(env.Resolver)
	}
	return Outcome{}, nil
}

func (ResetAll) apply(s *State, _ Env) (Outcome, error) {
	out := Outcome{Ops: calendar.RemoveAll(s.Calendar.Owned, "reset")}
	s.Active = []Assignment{}
	s.Calendar.Owned = []calendar.Entry{}
	s.Dismissed = []string{}
	return out, nil
}

func (act SetSort) apply(s *State, _ Env) (Outcome, error) {
	if !act.Order.Valid() {
		return Outcome{}, core.NewValidationError(
			core.ErrInvalidSortOrder,
			core.FieldError{Field: "sortOrder", Error: "must be one of recommendedDueDate, dueDate, priorityScore"},
		)
	}
	s.Sort = act.Order
	return Outcome{}, nil
}
