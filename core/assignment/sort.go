package assignment

import (
	"sort"
	"time"

	"github.com/kyleyee20/aevum/core"
)

// Sort orders views by order. Ties keep their insertion order; views without a valid date sort
// last for the date orders, and unscored views count as 0 for ByPriority.
func Sort(views []View, order SortOrder) {
	var less func(a, b View) bool
	switch order {
	case ByDueDate:
		less = func(a, b View) bool { return dateLess(parse(a.DueDate), parse(b.DueDate)) }
	case ByPriority:
		less = func(a, b View) bool { return a.PriorityScore() > b.PriorityScore() }
	default:
		less = func(a, b View) bool {
			return dateLess(recommended(a), recommended(b))
		}
	}
	sort.SliceStable(views, func(i, j int) bool { return less(views[i], views[j]) })
}

func parse(s string) *time.Time {
	t, err := core.ParseDate(s)
	if err != nil {
		return nil
	}
	return &t
}

func recommended(v View) *time.Time {
	if !v.Recommended.OK {
		return nil
	}
	return &v.Recommended.Date
}

func dateLess(a, b *time.Time) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	}
	return a.Before(*b)
}
