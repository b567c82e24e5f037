package assignment

import (
	"time"

	"github.com/kyleyee20/aevum/core"
	"github.com/kyleyee20/aevum/core/calendar"
	"github.com/kyleyee20/aevum/core/course"
	"github.com/kyleyee20/aevum/core/recommend"
)

type SortOrder string

const (
	ByRecommended SortOrder = "recommendedDueDate"
	ByDueDate     SortOrder = "dueDate"
	ByPriority    SortOrder = "priorityScore"
)

var SortOrders = []SortOrder{ByRecommended, ByDueDate, ByPriority}

type (
	// Assignment is an active, student-tracked task. DueDate may be empty or invalid while the
	// student is still editing it.
	Assignment struct {
		ID             string   `json:"id"`
		Title          string   `json:"title"`
		DueDate        string   `json:"dueDate"`
		Strength       float64  `json:"strengthWeight"`
		ManualOverride bool     `json:"manualOverride"`
		Score          *float64 `json:"priorityScore,omitempty"`
		Origin         string   `json:"origin,omitempty"` // id of the external entry it was imported from
	}

	// Completed is a snapshot of an assignment taken when it was completed.
	Completed struct {
		Assignment
		CompletedAt string                   `json:"completedAt"`
		Recommended recommend.Recommendation `json:"recommendedDate"`
	}

	// View is an assignment as listed to the student.
	View struct {
		Assignment
		Recommended recommend.Recommendation `json:"recommendedDate"`
	}

	NewAssignment struct {
		Title    string   `json:"title" validate:"max=200"`
		DueDate  string   `json:"dueDate" validate:"isodate"`
		Strength *float64 `json:"strengthWeight" validate:"omitempty,min=0,max=10"`
	}

	// Edit changes the fields that are set. Setting Strength marks the weight as manually
	// overridden; ResetStrength clears the override and resolves the weight again.
	Edit struct {
		Title         *string  `json:"title" validate:"omitempty,max=200"`
		DueDate       *string  `json:"dueDate" validate:"omitempty,isodate"`
		Strength      *float64 `json:"strengthWeight" validate:"omitempty,min=0,max=10"`
		ResetStrength bool     `json:"resetStrength"`
	}
)

func (s SortOrder) Valid() bool {
	for _, o := range SortOrders {
		if s == o {
			return true
		}
	}
	return false
}

// Key is the composite key of the assignment's owned calendar entry.
func (a Assignment) Key() string {
	return calendar.AssignmentKey(a.Title, a.DueDate)
}

func (a Assignment) HasValidDue() bool {
	return core.IsValidDate(a.DueDate)
}

// PriorityScore is the last oracle score, 0 when never scored.
func (a Assignment) PriorityScore() float64 {
	if a.Score == nil {
		return 0
	}
	return *a.Score
}

func (a Assignment) Recommend(today time.Time) recommend.Recommendation {
	return recommend.Recommend(a.PriorityScore(), a.DueDate, a.Strength, today)
}

func (a Assignment) View(today time.Time) View {
	return View{Assignment: a, Recommended: a.Recommend(today)}
}

// resolve refreshes the weight from r unless the student overrode it. It reports whether the
// weight changed.
func (a *Assignment) resolve(r *course.Resolver) bool {
	if a.ManualOverride || r == nil {
		return false
	}
	s := r.Resolve(a.Title)
	if s == a.Strength {
		return false
	}
	a.Strength = s
	return true
}
