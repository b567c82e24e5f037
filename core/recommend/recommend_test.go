package recommend

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleyee20/aevum/core"
)

var today = time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

func day(offset int) string {
	return core.FormatDate(today.AddDate(0, 0, offset))
}

func TestRecommend(t *testing.T) {
	tests := []struct {
		name     string
		score    float64
		due      string
		strength float64
		want     string
	}{
		// boost 0.2, eff 0.34, maxAdj 5, adj 1.7 -> 2 days early
		{name: "math 10a example", score: 0.4, due: day(10), strength: 8, want: day(8)},
		{name: "max everything", score: 1, due: day(10), strength: 0, want: day(5)},
		{name: "capped at 14 days", score: 1, due: day(60), strength: 0, want: day(46)},
		{name: "zero score strong subject", score: 0, due: day(10), strength: 10, want: day(10)},
		{name: "score clamped above", score: 7, due: day(10), strength: 10, want: day(6)},
		{name: "score clamped below", score: -3, due: day(10), strength: 10, want: day(10)},
		{name: "NaN score counts as zero", score: math.NaN(), due: day(10), strength: 10, want: day(10)},
		{name: "strength above 10 gives no boost", score: 0, due: day(10), strength: 12, want: day(10)},
		{name: "due today", score: 1, due: day(0), strength: 0, want: day(0)},
		{name: "due tomorrow", score: 1, due: day(1), strength: 0, want: day(0)},
		{name: "past due stays put", score: 1, due: day(-3), strength: 0, want: day(-3)},
		{name: "invalid date", score: 0.5, due: "", strength: 5, want: "Invalid Date"},
		{name: "garbage date", score: 0.5, due: "soon", strength: 5, want: "Invalid Date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Recommend(tt.score, tt.due, tt.strength, today).String())
		})
	}
}

func TestRecommend_WithinRange(t *testing.T) {
	scores := []float64{-1, 0, 0.01, 0.25, 0.5, 0.77, 1, 2}
	for offset := 0; offset <= 90; offset++ {
		due, _ := core.ParseDate(day(offset))
		for _, score := range scores {
			for strength := 0; strength <= 10; strength++ {
				rec := Recommend(score, day(offset), float64(strength), today)
				require.True(t, rec.OK)
				if rec.Date.Before(today) || rec.Date.After(due) {
					t.Fatalf("Recommend(%v, %s, %d) = %s, outside [%s, %s]",
						score, day(offset), strength, rec, day(0), day(offset))
				}
			}
		}
	}
}

func TestRecommendation_JSON(t *testing.T) {
	data, err := json.Marshal(Recommend(0.4, day(10), 8, today))
	require.NoError(t, err)
	assert.Equal(t, `"`+day(8)+`"`, string(data))

	data, err = json.Marshal(Recommendation{})
	require.NoError(t, err)
	assert.Equal(t, `"Invalid Date"`, string(data))

	var rec Recommendation
	require.NoError(t, json.Unmarshal([]byte(`"`+day(3)+`"`), &rec))
	assert.True(t, rec.OK)
	assert.Equal(t, day(3), rec.String())

	require.NoError(t, json.Unmarshal([]byte(`"Invalid Date"`), &rec))
	assert.False(t, rec.OK)
}
