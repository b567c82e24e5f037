package recommend

import (
	"encoding/json"
	"math"
	"time"

	"github.com/kyleyee20/aevum/core"
)

const (
	// MaxAdjustmentDays caps how far a date is ever pulled forward.
	MaxAdjustmentDays = 14.0

	scoreWeight      = 0.7
	confidenceWeight = 0.3

	invalidDate = "Invalid Date"

	// absorbs float noise so that e.g. 2.0000000000000004 days rounds to 2
	epsilon = 1e-9
)

// Recommendation is a recommended working date. OK is false when the due date was invalid.
type Recommendation struct {
	Date time.Time
	OK   bool
}

func (r Recommendation) String() string {
	if !r.OK {
		return invalidDate
	}
	return core.FormatDate(r.Date)
}

func (r Recommendation) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Recommendation) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t, err := core.ParseDate(s)
	*r = Recommendation{Date: t, OK: err == nil}
	return nil
}

// Adjustment returns how many (fractional) days to pull a due date forward, given the days left
// until it.
func Adjustment(score float64, diffDays int, strength float64) float64 {
	maxAdj := math.Max(0, math.Min(MaxAdjustmentDays, float64(diffDays)*0.5))
	boost := math.Max(0, (10-strength)/10)
	eff := scoreWeight*clampScore(score) + confidenceWeight*boost
	return eff * maxAdj
}

// Recommend pulls dueDate forward by Adjustment, rounded up to whole days, and clamps the result
// to [today, dueDate]. A due date already in the past is returned unchanged.
func Recommend(score float64, dueDate string, strength float64, today time.Time) Recommendation {
	due, err := core.ParseDate(dueDate)
	if err != nil {
		return Recommendation{}
	}
	today = core.DateOf(today)
	if due.Before(today) {
		return Recommendation{Date: due, OK: true}
	}

	adj := Adjustment(score, core.DaysBetween(today, due), strength)
	rec := due.AddDate(0, 0, -int(math.Ceil(adj-epsilon)))
	if rec.Before(today) {
		rec = today
	}
	return Recommendation{Date: rec, OK: true}
}

// ForToday is Recommend relative to core.Today().
func ForToday(score float64, dueDate string, strength float64) Recommendation {
	return Recommend(score, dueDate, strength, core.Today())
}

func clampScore(s float64) float64 {
	if math.IsNaN(s) {
		return 0
	}
	return math.Min(1, math.Max(0, s))
}
