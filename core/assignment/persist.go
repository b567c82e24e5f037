package assignment

import (
	"github.com/kyleyee20/aevum/core"
	"github.com/kyleyee20/aevum/core/calendar"
)

// loadState reads every collection of State. A corrupt collection is logged and read as empty.
func loadState(tx core.RecordTx, log core.Logger) (State, error) {
	var (
		s   State
		err error
	)
	if s.Active, err = core.LoadRecord[[]Assignment](tx, core.KeyAssignments, log); err != nil {
		return State{}, err
	}
	if s.Completed, err = core.LoadRecord[[]Completed](tx, core.KeyCompleted, log); err != nil {
		return State{}, err
	}
	if s.Calendar.Owned, err = core.LoadRecord[[]calendar.Entry](tx, core.KeyOwnedEntries, log); err != nil {
		return State{}, err
	}
	if s.Calendar.External, err = core.LoadRecord[[]calendar.Entry](tx, core.KeyExternalEntries, log); err != nil {
		return State{}, err
	}
	if s.Calendar.Retired, err = core.LoadRecord[[]string](tx, core.KeyRetiredEntries, log); err != nil {
		return State{}, err
	}
	if s.Dismissed, err = core.LoadRecord[[]string](tx, core.KeyDismissed, log); err != nil {
		return State{}, err
	}
	order, err := core.LoadString(tx, core.KeySortOrder)
	if err != nil {
		return State{}, err
	}
	s.Sort = SortOrder(order)
	if !s.Sort.Valid() {
		s.Sort = ByRecommended
	}
	return s, nil
}

// saveState writes every collection of s back.
func saveState(tx core.RecordTx, s State) error {
	records := []struct {
		key string
		val interface{}
	}{
		{core.KeyAssignments, nonNil(s.Active)},
		{core.KeyCompleted, nonNil(s.Completed)},
		{core.KeyOwnedEntries, nonNil(s.Calendar.Owned)},
		{core.KeyExternalEntries, nonNil(s.Calendar.External)},
		{core.KeyRetiredEntries, nonNil(s.Calendar.Retired)},
		{core.KeyDismissed, nonNil(s.Dismissed)},
	}
	for _, r := range records {
		if err := core.SaveRecord(tx, r.key, r.val); err != nil {
			return err
		}
	}
	return core.SaveString(tx, core.KeySortOrder, string(s.Sort))
}

// nonNil keeps empty collections serialized as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
