package course

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	testProfiles = []Profile{
		{ID: "1", Category: "Math", Strength: 8},
		{ID: "2", Category: "Computer Science and Engineering", Strength: 2},
		{ID: "3", Category: "  Writing ", Strength: 6},
		{ID: "4", Category: "", Strength: 0},
	}
	testVocab = Vocabulary{
		{Name: "Computer Science and Engineering", Courses: []string{"CSE 11", "CSE 101"}},
		{Name: "Physics", Courses: []string{"PHYS 2A"}},
		{Name: "Chemistry", Courses: []string{"CHEM 6A"}},
	}
)

func TestResolver_Resolve(t *testing.T) {
	r := NewResolver(testProfiles, testVocab)

	tests := []struct {
		name  string
		title string
		want  float64
	}{
		{name: "empty title", title: "   ", want: DefaultStrength},
		{name: "direct category match", title: "MATH 10A HW", want: 8},
		{name: "direct match ignores case and spacing", title: "  essay   WRITING draft", want: 6},
		{name: "vocabulary department match", title: "CSE 101 Final Project", want: 2},
		{name: "title contained in a course code", title: "cse", want: 2},
		{name: "department without profile", title: "PHYS 2A Lab", want: DefaultStrength},
		{name: "no match", title: "Dentist appointment", want: DefaultStrength},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve(tt.title))
		})
	}
}

func TestResolver_FirstProfileWins(t *testing.T) {
	r := NewResolver([]Profile{
		{ID: "a", Category: "cse", Strength: 9},
		{ID: "b", Category: "cse 101", Strength: 1},
	}, nil)
	assert.Equal(t, 9.0, r.Resolve("CSE 101 midterm"))
}

func TestResolver_ClampsOutOfRangeStrength(t *testing.T) {
	r := NewResolver([]Profile{{ID: "a", Category: "bio", Strength: 42}}, nil)
	assert.Equal(t, MaxStrength, r.Resolve("bio quiz"))
}

func TestResolver_Idempotent(t *testing.T) {
	r := NewResolver(testProfiles, testVocab)
	titles := []string{"MATH 10A HW", "CSE 101 Final Project", "PHYS 2A Lab", "", "random"}
	for _, title := range titles {
		first := r.Resolve(title)
		for i := 0; i < 5; i++ {
			if got := r.Resolve(title); got != first {
				t.Fatalf("Resolve(%q) = %v on call %d, want %v", title, got, i+2, first)
			}
		}
	}
}

func TestFoldTable(t *testing.T) {
	rows := []TableRow{
		{Item: "ORPHAN 1"},
		{Category: "Computer Science and Engineering", Item: "CSE 11"},
		{Item: "CSE 101"},
		{Item: "   "},
		{Category: " Physics "},
		{Item: "PHYS 2A"},
		{Category: "Computer Science and Engineering", Item: "CSE 130"},
	}
	want := Vocabulary{
		{Name: "Computer Science and Engineering", Courses: []string{"CSE 11", "CSE 101", "CSE 130"}},
		{Name: "Physics", Courses: []string{"PHYS 2A"}},
	}
	assert.Equal(t, want, FoldTable(rows))
	assert.Equal(t, 4, FoldTable(rows).CourseCount())
	assert.Empty(t, FoldTable(nil))
}

func TestVocabulary_DepartmentIndex(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  int
	}{
		{name: "first department", title: "cse 11", want: 1},
		{name: "punctuation glues words together", title: "PHYS-2A!", want: 0},
		{name: "normalized equality", title: "  CHEM   6A ", want: 3},
		{name: "partial title is unknown", title: "CSE 101 Final Project", want: 0},
		{name: "empty", title: "", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, testVocab.DepartmentIndex(tt.title))
		})
	}
}

func TestVocabulary_MatchCompact(t *testing.T) {
	code, ok := testVocab.MatchCompact("CSE101 Final")
	assert.True(t, ok)
	assert.Equal(t, "CSE 101", code)

	_, ok = testVocab.MatchCompact("Team standup")
	assert.False(t, ok)
}
