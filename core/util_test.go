package core_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kyleyee20/aevum/core"
)

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  CSE 101: Final-Project ", "cse 101 finalproject"},
		{"MATH\t10A   HW", "math 10a hw"},
		{"!!!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, core.NormalizeTitle(tt.in))
		})
	}
}

func TestCompactTitle(t *testing.T) {
	assert.Equal(t, "cse101lecture", core.CompactTitle("CSE 101 - Lecture"))
	assert.Equal(t, "", core.CompactTitle(" .. "))
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"cse", "101", "final"}, core.Tokens("CSE 101 a Final"))
	assert.Empty(t, core.Tokens("a b c"))
}

func TestContainsEither(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"a in b", "cse101", "cse101final", true},
		{"b in a", "cse101final", "final", true},
		{"disjoint", "math", "art", false},
		{"empty never matches", "", "art", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, core.ContainsEither(tt.a, tt.b))
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "2026-03-10", want: "2026-03-10"},
		{in: " 2026-03-10 ", want: "2026-03-10"},
		{in: "2026-03-10T23:30:00Z", want: "2026-03-10"},
		{in: "", wantErr: true},
		{in: "03/10/2026", wantErr: true},
		{in: "2026-02-30", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := core.ParseDate(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, core.ErrInvalidDate)
				assert.False(t, core.IsValidDate(tt.in))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, core.FormatDate(got))
		})
	}
}

func TestDaysBetween(t *testing.T) {
	from := time.Date(2026, 3, 10, 22, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, core.DaysBetween(from, from.Add(time.Hour)))
	assert.Equal(t, 10, core.DaysBetween(from, from.AddDate(0, 0, 10)))
	assert.Equal(t, -2, core.DaysBetween(from, from.AddDate(0, 0, -2)))
}

func TestToday(t *testing.T) {
	core.NowFunc = func() time.Time { return time.Date(2026, 3, 10, 18, 45, 0, 0, time.UTC) }
	defer func() { core.NowFunc = time.Now }()

	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), core.Today())
}
