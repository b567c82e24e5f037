package calendarsvc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/kyleyee20/aevum/core"
	"github.com/kyleyee20/aevum/core/calendar"
)

type fakeCalendar struct {
	mu       sync.Mutex
	events   []*gcal.Event
	inserted []*gcal.Event
	deleted  []string
	status   int
}

func (f *fakeCalendar) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"error": {"code": 401, "message": "invalid credentials"}}`))
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/calendar/v3/calendars/primary/events")
	switch {
	case r.Method == http.MethodGet && path == "":
		_ = json.NewEncoder(w).Encode(gcal.Events{Items: f.events})
	case r.Method == http.MethodPost && path == "":
		var ev gcal.Event
		_ = json.NewDecoder(r.Body).Decode(&ev)
		f.inserted = append(f.inserted, &ev)
		_ = json.NewEncoder(w).Encode(ev)
	case r.Method == http.MethodDelete:
		id := strings.TrimPrefix(path, "/")
		if id == "gone" {
			w.WriteHeader(http.StatusGone)
			_, _ = w.Write([]byte(`{"error": {"code": 410, "message": "deleted"}}`))
			return
		}
		f.deleted = append(f.deleted, id)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newGoogle(t *testing.T, fake *fakeCalendar) *Google {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return NewGoogle("", nil, option.WithHTTPClient(srv.Client()), option.WithEndpoint(srv.URL+"/calendar/v3/"))
}

func TestGoogle_Events(t *testing.T) {
	fake := &fakeCalendar{events: []*gcal.Event{
		{Id: "a1", Summary: "MATH 10A HW", Start: &gcal.EventDateTime{Date: "2026-03-12"}, End: &gcal.EventDateTime{Date: "2026-03-13"}},
		{Id: "b2", Summary: "Lab", Start: &gcal.EventDateTime{DateTime: "2026-03-11T10:00:00Z"}, End: &gcal.EventDateTime{DateTime: "2026-03-11T11:00:00Z"}},
		{Id: "c3", Summary: "Cancelled", Status: "cancelled"},
	}}
	raws, err := newGoogle(t, fake).Events(context.Background(), "token")
	require.NoError(t, err)
	require.Len(t, raws, 2)

	assert.Equal(t, calendar.RawEvent{
		ID:      "a1",
		Summary: "MATH 10A HW",
		Start:   calendar.EventTime{Date: "2026-03-12"},
		End:     calendar.EventTime{Date: "2026-03-13"},
		AllDay:  true,
	}, raws[0])

	entry, err := calendar.Normalize(raws[1])
	require.NoError(t, err)
	assert.Equal(t, "Lab", entry.Title)
	assert.False(t, entry.AllDay)
	assert.Equal(t, "2026-03-11", entry.Day())
}

func TestGoogle_Events_MissingCredential(t *testing.T) {
	_, err := newGoogle(t, &fakeCalendar{}).Events(context.Background(), "")
	assert.ErrorIs(t, err, core.ErrMissingCredential)
}

func TestGoogle_Events_Unauthorized(t *testing.T) {
	_, err := newGoogle(t, &fakeCalendar{status: http.StatusUnauthorized}).Events(context.Background(), "expired")
	assert.ErrorIs(t, err, core.ErrMissingCredential)
}

func TestGoogle_Apply(t *testing.T) {
	score, strength := 0.4, 8.0
	due := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)
	ops := []calendar.Op{
		{Kind: calendar.OpDelete, Entry: calendar.Entry{ID: "old1", IsPriority: true}},
		{Kind: calendar.OpDelete, Entry: calendar.Entry{ID: "gone", IsPriority: true}},
		{Kind: calendar.OpHide, Entry: calendar.Entry{ID: "ext1"}},
		{Kind: calendar.OpCreate, Entry: calendar.Entry{
			ID:               "abc123",
			AssignmentKey:    calendar.AssignmentKey("MATH 10A HW", "2026-03-12"),
			Title:            calendar.OwnedTitle("MATH 10A HW", score),
			Start:            due,
			End:              due,
			AllDay:           true,
			Priority:         &score,
			ConfidenceWeight: &strength,
			Recommended:      "2026-03-11",
			IsPriority:       true,
		}},
	}

	fake := &fakeCalendar{}
	require.NoError(t, newGoogle(t, fake).Apply(context.Background(), "token", ops))

	assert.Equal(t, []string{"old1"}, fake.deleted)
	require.Len(t, fake.inserted, 1)
	ev := fake.inserted[0]
	assert.Equal(t, "abc123", ev.Id)
	assert.Equal(t, "MATH 10A HW (Priority: 0.40)", ev.Summary)
	assert.Equal(t, "2026-03-12", ev.Start.Date)
	assert.Equal(t, "2026-03-13", ev.End.Date)
	assert.Contains(t, ev.Description, "Recommended start: 2026-03-11")
	assert.Contains(t, ev.Description, "Strength: 8")
	require.NotNil(t, ev.ExtendedProperties)
	assert.Equal(t, map[string]string{"aevum": "owned", "assignmentId": ops[3].Entry.AssignmentKey}, ev.ExtendedProperties.Private)
}

func TestGoogle_WrittenEventsComeBackOwned(t *testing.T) {
	score, strength := 0.5, 2.5
	due := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)
	key := calendar.AssignmentKey("CSE 101 Final", "2026-03-12")
	created := calendar.Entry{
		ID:               "owned1",
		AssignmentKey:    key,
		Title:            calendar.OwnedTitle("CSE 101 Final", score),
		Start:            due,
		End:              due,
		AllDay:           true,
		Priority:         &score,
		ConfidenceWeight: &strength,
		IsPriority:       true,
	}

	fake := &fakeCalendar{}
	g := newGoogle(t, fake)
	require.NoError(t, g.Apply(context.Background(), "token", []calendar.Op{{Kind: calendar.OpCreate, Entry: created}}))
	assert.Contains(t, fake.inserted[0].Description, "Strength: 2.5")

	fake.events = append(fake.inserted, &gcal.Event{Id: "ext1", Summary: "CSE 101 Final", Start: &gcal.EventDateTime{Date: "2026-03-12"}})
	raws, err := g.Events(context.Background(), "token")
	require.NoError(t, err)
	require.Len(t, raws, 2)

	owned, err := calendar.Normalize(raws[0])
	require.NoError(t, err)
	assert.True(t, owned.IsPriority)
	assert.Equal(t, key, owned.AssignmentKey)
	assert.Equal(t, "owned1", owned.ID)

	external, err := calendar.Normalize(raws[1])
	require.NoError(t, err)
	assert.False(t, external.IsPriority)
	assert.Empty(t, external.AssignmentKey)
}

func TestGoogle_Apply_NoOps(t *testing.T) {
	// no client is built, so even a missing credential is fine
	assert.NoError(t, newGoogle(t, &fakeCalendar{}).Apply(context.Background(), "", nil))
}
