package oraclesvc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/kyleyee20/aevum/core/oracle"
)

const maxResponseSize = 1 << 20

type (
	// HTTPOracle posts batches to a scoring endpoint serving the priority model.
	HTTPOracle struct {
		url    string
		client *http.Client
	}

	request struct {
		Titles          []int64   `json:"titles"`
		DueDates        []float64 `json:"due_dates"`
		StrengthWeights []float64 `json:"strength_weights"`
	}

	response struct {
		PriorityScore []json.RawMessage `json:"priority_score"`
	}
)

var _ oracle.Oracle = (*HTTPOracle)(nil)

func NewHTTPOracle(url string, timeout time.Duration) *HTTPOracle {
	return &HTTPOracle{url: url, client: &http.Client{Timeout: timeout}}
}

func (o *HTTPOracle) Score(ctx context.Context, batch oracle.Batch) ([]float64, error) {
	body, err := json.Marshal(request{
		Titles:          batch.TitleIndex,
		DueDates:        batch.DueOffset,
		StrengthWeights: batch.StrengthWeight,
	})
	if err != nil {
		return nil, errors.Wrap(err, "encoding batch")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := o.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "calling oracle")
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseSize))
	if err != nil {
		return nil, errors.Wrap(err, "reading response")
	}
	if res.StatusCode >= http.StatusBadRequest {
		return nil, errors.Errorf("status: %d - body: %s", res.StatusCode, bytes.TrimSpace(data))
	}
	return parseScores(data)
}

// parseScores accepts either a bare array or {"priority_score": [...]}. Values that are not
// numbers come back as NaN so the adapter can zero them.
func parseScores(data []byte) ([]float64, error) {
	data = bytes.TrimSpace(data)
	var raw []json.RawMessage
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, errors.Wrap(err, "decoding scores")
		}
	} else {
		var res response
		if err := json.Unmarshal(data, &res); err != nil {
			return nil, errors.Wrap(err, "decoding scores")
		}
		if res.PriorityScore == nil {
			return nil, errors.New("response has no priority_score")
		}
		raw = res.PriorityScore
	}

	scores := make([]float64, len(raw))
	for i, r := range raw {
		r = unwrapSingleton(r)
		if err := json.Unmarshal(r, &scores[i]); err != nil {
			scores[i] = math.NaN()
		}
	}
	return scores, nil
}

// unwrapSingleton turns [x] into x. Models exported with a trailing output dimension return one.
func unwrapSingleton(r json.RawMessage) json.RawMessage {
	var inner []json.RawMessage
	if err := json.Unmarshal(r, &inner); err == nil && len(inner) == 1 {
		return inner[0]
	}
	return r
}
