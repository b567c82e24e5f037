package course

import (
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/kyleyee20/aevum/core"
)

// Strength weights run from 0 (strong) to 10 (weak). Fractional weights are kept as given.
const (
	MinStrength     float64 = 0
	MaxStrength     float64 = 10
	DefaultStrength float64 = 5
)

type (
	// Profile is a student-authored subject label with a self-assessed strength
	// (0 = strong, 10 = weak).
	Profile struct {
		ID       string `json:"id"`
		Category string `json:"category"`
		Strength float64 `json:"strength"`
		Notes    string  `json:"notes"`
	}

	NewProfile struct {
		Category string  `json:"category" validate:"notblank,max=100"`
		Strength float64 `json:"strength" validate:"min=0,max=10"`
		Notes    string  `json:"notes" validate:"max=500"`
	}

	UpdateProfile struct {
		Strength *float64 `json:"strength" validate:"omitempty,min=0,max=10"`
		Notes    *string  `json:"notes" validate:"omitempty,max=500"`
	}

	// Department groups the course codes of one department of an institution.
	Department struct {
		Name    string   `json:"name"`
		Courses []string `json:"courses"`
	}

	// Vocabulary is an institution's ordered department list. An empty Vocabulary is valid.
	Vocabulary []Department

	// TableRow is one row of an institution's category-then-items course table. A non-blank
	// Category starts a new department; a non-blank Item is a course code of the current one.
	TableRow struct {
		Category string `json:"Table 1"`
		Item     string `json:"Unnamed: 1"`
	}
)

func (np NewProfile) Profile() Profile {
	return Profile{
		ID:       uuid.NewString(),
		Category: core.CleanString(np.Category),
		Strength: np.Strength,
		Notes:    core.CleanString(np.Notes),
	}
}

// Apply returns a copy of p with the fields set in up.
func (up UpdateProfile) Apply(p Profile) Profile {
	if up.Strength != nil {
		p.Strength = *up.Strength
	}
	if up.Notes != nil {
		p.Notes = *up.Notes
	}
	return p
}

// ClampStrength forces s into [MinStrength, MaxStrength].
func ClampStrength(s float64) float64 {
	switch {
	case math.IsNaN(s):
		return DefaultStrength
	case s < MinStrength:
		return MinStrength
	case s > MaxStrength:
		return MaxStrength
	}
	return s
}

// FoldTable folds a category-then-items table into a Vocabulary, keeping department and course
// order. Items that appear before any category are dropped.
func FoldTable(rows []TableRow) Vocabulary {
	vocab := make(Vocabulary, 0)
	index := make(map[string]int)
	current := -1
	for _, row := range rows {
		if cat := strings.TrimSpace(row.Category); cat != "" {
			idx, ok := index[cat]
			if !ok {
				idx = len(vocab)
				index[cat] = idx
				vocab = append(vocab, Department{Name: cat})
			}
			current = idx
		}
		item := strings.TrimSpace(row.Item)
		if item == "" || current < 0 {
			continue
		}
		vocab[current].Courses = append(vocab[current].Courses, item)
	}
	return vocab
}

// DepartmentIndex returns the 1-based position of the department owning a course code equal
// to title once both are normalized; 0 means unknown.
func (v Vocabulary) DepartmentIndex(title string) int {
	clean := core.NormalizeTitle(title)
	if clean == "" {
		return 0
	}
	for i, dept := range v {
		for _, code := range dept.Courses {
			if core.NormalizeTitle(code) == clean {
				return i + 1
			}
		}
	}
	return 0
}

// MatchCompact reports whether the compact form of title contains, or is contained by, the
// compact form of any course code. It returns the first matching code.
func (v Vocabulary) MatchCompact(title string) (string, bool) {
	compact := core.CompactTitle(title)
	for _, dept := range v {
		for _, code := range dept.Courses {
			if core.ContainsEither(compact, core.CompactTitle(code)) {
				return code, true
			}
		}
	}
	return "", false
}

func (v Vocabulary) CourseCount() int {
	var n int
	for _, dept := range v {
		n += len(dept.Courses)
	}
	return n
}
