package calendar

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/kyleyee20/aevum/core"
)

const untitled = "No title"

type (
	// Entry is one calendar item. Owned entries (IsPriority) are produced from scored assignments;
	// all others come from the external calendar and are never mutated.
	Entry struct {
		ID               string    `json:"id"`
		AssignmentKey    string    `json:"assignmentId,omitempty"`
		Title            string    `json:"title"`
		Start            time.Time `json:"start"`
		End              time.Time `json:"end"`
		AllDay           bool      `json:"allDay"`
		Priority         *float64  `json:"priority,omitempty"`
		ConfidenceWeight *float64  `json:"confidenceWeight,omitempty"`
		Recommended      string    `json:"recommended,omitempty"`
		IsPriority       bool      `json:"isPriority"`
	}

	// EventTime accepts both a bare timestamp and the provider-native {dateTime|date} object.
	EventTime struct {
		DateTime string `json:"dateTime,omitempty"`
		Date     string `json:"date,omitempty"`
	}

	// RawEvent is an event as supplied by the external calendar: either the direct
	// title/start/end shape or the provider-native summary/start/end shape.
	RawEvent struct {
		ID            string    `json:"id"`
		Title         string    `json:"title,omitempty"`
		Summary       string    `json:"summary,omitempty"`
		Start         EventTime `json:"start"`
		End           EventTime `json:"end"`
		AllDay        bool      `json:"allDay,omitempty"`
		IsPriority    bool      `json:"isPriority,omitempty"`    // tagged by the provider as written by Sink
		AssignmentKey string    `json:"assignmentId,omitempty"` // set with IsPriority
	}
)

func (et *EventTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*et = EventTime{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*et = EventTime{DateTime: s}
		return nil
	}
	type plain EventTime
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*et = EventTime(p)
	return nil
}

// Time resolves et. Date-only values are all-day.
func (et EventTime) Time() (t time.Time, allDay bool, err error) {
	if s := strings.TrimSpace(et.DateTime); s != "" {
		if t, err = time.Parse(time.RFC3339, s); err == nil {
			return t, false, nil
		}
		if t, err = core.ParseDate(s); err == nil {
			return t, true, nil
		}
		return time.Time{}, false, err
	}
	t, err = core.ParseDate(et.Date)
	return t, err == nil, err
}

// Normalize converts a raw event into an Entry. Events without a usable start are rejected; a
// missing end falls back to the start. Events tagged as owned stay owned.
func Normalize(raw RawEvent) (Entry, error) {
	start, allDay, err := raw.Start.Time()
	if err != nil {
		return Entry{}, errors.Wrapf(err, "event %q: start", raw.ID)
	}
	end, _, err := raw.End.Time()
	if err != nil || end.Before(start) {
		end = start
	}

	title := strings.TrimSpace(raw.Title)
	if title == "" {
		title = strings.TrimSpace(raw.Summary)
	}
	if title == "" {
		title = untitled
	}

	id := strings.TrimSpace(raw.ID)
	if id == "" {
		id = "local_" + NewID()
	}
	return Entry{
		ID:            id,
		Title:         title,
		Start:         start,
		End:           end,
		AllDay:        allDay || raw.AllDay,
		AssignmentKey: strings.TrimSpace(raw.AssignmentKey),
		IsPriority:    raw.IsPriority,
	}, nil
}

// NewID returns a fresh entry id made only of characters every calendar provider accepts.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Day is the calendar date the entry starts on.
func (e Entry) Day() string {
	return core.FormatDate(e.Start)
}

// OwnedTitle is the title of an owned entry carrying score.
func OwnedTitle(title string, score float64) string {
	return fmt.Sprintf("%s (Priority: %.2f)", strings.TrimSpace(title), score)
}

// AssignmentKey identifies the owned entry of an assignment: its normalized title and due date.
func AssignmentKey(title, dueDate string) string {
	return core.NormalizeTitle(title) + "_" + strings.TrimSpace(dueDate)
}
