package course

import (
	"strings"
)

// Resolver maps an assignment title to a strength weight from the student's profiles and the
// selected institution's vocabulary. It holds no mutable state: identical inputs always resolve
// to the same weight.
type Resolver struct {
	profiles []Profile
	vocab    Vocabulary
}

func NewResolver(profiles []Profile, vocab Vocabulary) *Resolver {
	return &Resolver{profiles: profiles, vocab: vocab}
}

// Resolve returns, in priority order:
//  1. the strength of the first profile whose category appears in title;
//  2. the strength of the profile named after the first department owning a course code that
//     appears in title (or that title appears in);
//  3. DefaultStrength.
func (r *Resolver) Resolve(title string) float64 {
	t := normalize(title)
	if t == "" {
		return DefaultStrength
	}

	for _, p := range r.profiles {
		if cat := normalize(p.Category); cat != "" && strings.Contains(t, cat) {
			return ClampStrength(p.Strength)
		}
	}

	for _, dept := range r.vocab {
		if !dept.mentions(t) {
			continue
		}
		if p, ok := r.profileFor(dept.Name); ok {
			return ClampStrength(p.Strength)
		}
	}
	return DefaultStrength
}

func (r *Resolver) profileFor(department string) (Profile, bool) {
	name := normalize(department)
	for _, p := range r.profiles {
		if normalize(p.Category) == name {
			return p, true
		}
	}
	return Profile{}, false
}

func (d Department) mentions(title string) bool {
	for _, code := range d.Courses {
		c := normalize(code)
		if c != "" && (strings.Contains(title, c) || strings.Contains(c, title)) {
			return true
		}
	}
	return false
}

// normalize lowers s and collapses its whitespace.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
