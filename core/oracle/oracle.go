package oracle

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"

	"github.com/kyleyee20/aevum/core"
	"github.com/kyleyee20/aevum/core/course"
)

type (
	// Input is the part of an assignment the oracle sees.
	Input struct {
		ID       string
		Key      string // composite key at encode time
		Title    string
		DueDate  string
		Strength float64
	}

	// Batch is one encoded oracle call. Every slice is index-aligned with IDs.
	Batch struct {
		IDs            []string  `json:"-"`
		Keys           []string  `json:"-"`
		TitleIndex     []int64   `json:"titleIndex"`
		DueOffset      []float64 `json:"dueOffset"`
		StrengthWeight []float64 `json:"strengthWeight"`
	}

	// Result pairs a batch with its decoded scores.
	Result struct {
		Batch  Batch
		Scores []float64
	}

	// Oracle is the black-box scoring function: one raw score per batch row.
	// A row the oracle could not score should come back as NaN.
	Oracle interface {
		Score(ctx context.Context, batch Batch) ([]float64, error)
	}

	// Func adapts a plain function into an Oracle.
	Func func(ctx context.Context, batch Batch) ([]float64, error)

	// Adapter calls the oracle with at most one invocation in flight.
	Adapter struct {
		oracle  Oracle
		sem     *semaphore.Weighted
		timeout time.Duration
	}
)

func (f Func) Score(ctx context.Context, batch Batch) ([]float64, error) { return f(ctx, batch) }

func (b Batch) Len() int { return len(b.IDs) }

// Encode converts inputs into one oracle batch relative to today. Due offsets are normalized by
// the largest day distance of the batch, so a batch must always be encoded as a whole.
func Encode(inputs []Input, vocab course.Vocabulary, today time.Time) Batch {
	n := len(inputs)
	b := Batch{
		IDs:            make([]string, n),
		Keys:           make([]string, n),
		TitleIndex:     make([]int64, n),
		DueOffset:      make([]float64, n),
		StrengthWeight: make([]float64, n),
	}

	diffs := make([]int, n)
	valid := make([]bool, n)
	var maxDiff int
	for i, in := range inputs {
		due, err := core.ParseDate(in.DueDate)
		if err != nil {
			continue
		}
		valid[i] = true
		diffs[i] = core.DaysBetween(today, due)
		if diffs[i] > maxDiff {
			maxDiff = diffs[i]
		}
	}
	denom := float64(maxDiff)
	if denom < 1 {
		denom = 1
	}

	for i, in := range inputs {
		b.IDs[i] = in.ID
		b.Keys[i] = in.Key
		b.TitleIndex[i] = int64(vocab.DepartmentIndex(in.Title))
		if valid[i] {
			b.DueOffset[i] = math.Max(0, float64(diffs[i])/denom)
		}
		b.StrengthWeight[i] = in.Strength
	}
	return b
}

// Decode replaces every non-finite score with 0. A response whose length differs from the batch
// cannot be aligned and is rejected as a whole.
func Decode(raw []float64, n int) ([]float64, error) {
	if len(raw) != n {
		return nil, errors.Wrapf(core.ErrOracleUnavailable, "oracle returned %d scores for %d assignments", len(raw), n)
	}
	scores := make([]float64, n)
	for i, s := range raw {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			continue
		}
		scores[i] = s
	}
	return scores, nil
}

func NewAdapter(o Oracle, timeout time.Duration) *Adapter {
	return &Adapter{oracle: o, sem: semaphore.NewWeighted(1), timeout: timeout}
}

// Score runs one oracle call for batch. It returns core.ErrScoringInProgress while another call
// is outstanding and wraps every oracle failure in core.ErrOracleUnavailable.
func (a *Adapter) Score(ctx context.Context, batch Batch) (Result, error) {
	if !a.sem.TryAcquire(1) {
		return Result{}, core.ErrScoringInProgress
	}
	defer a.sem.Release(1)

	if batch.Len() == 0 {
		return Result{Batch: batch, Scores: []float64{}}, nil
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	raw, err := a.oracle.Score(ctx, batch)
	if err != nil {
		return Result{}, errors.Wrap(core.ErrOracleUnavailable, err.Error())
	}
	scores, err := Decode(raw, batch.Len())
	if err != nil {
		return Result{}, err
	}
	return Result{Batch: batch, Scores: scores}, nil
}
