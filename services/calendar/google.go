package calendarsvc

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/kyleyee20/aevum/core"
	"github.com/kyleyee20/aevum/core/calendar"
)

const (
	PrimaryCalendar = "primary"

	// lookBehind bounds how far back imported events go.
	lookBehind = 30 * 24 * time.Hour

	// private extended properties tagging the events written by Apply
	ownerProperty = "aevum"
	ownerValue    = "owned"
	keyProperty   = "assignmentId"
)

// Google reads and writes a Google calendar with the student's access token.
// It is both the calendar.Provider and the calendar.Sink of the engine.
type Google struct {
	calendarID string
	opts       []option.ClientOption
	log        core.Logger
}

var (
	_ calendar.Provider = (*Google)(nil)
	_ calendar.Sink     = (*Google)(nil)
)

// NewGoogle targets calendarID ("primary" when empty). opts are appended to every client, e.g.
// option.WithEndpoint in tests.
func NewGoogle(calendarID string, log core.Logger, opts ...option.ClientOption) *Google {
	if calendarID == "" {
		calendarID = PrimaryCalendar
	}
	if log == nil {
		log = core.Discard
	}
	return &Google{calendarID: calendarID, opts: opts, log: log}
}

func (g *Google) client(ctx context.Context, credential string) (*gcal.Service, error) {
	if credential == "" {
		return nil, core.ErrMissingCredential
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: credential, TokenType: "Bearer"})
	opts := append([]option.ClientOption{option.WithTokenSource(ts)}, g.opts...)
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "creating calendar client")
	}
	return svc, nil
}

func (g *Google) Events(ctx context.Context, credential string) ([]calendar.RawEvent, error) {
	svc, err := g.client(ctx, credential)
	if err != nil {
		return nil, err
	}

	var raws []calendar.RawEvent
	call := svc.Events.List(g.calendarID).
		SingleEvents(true).
		OrderBy("startTime").
		TimeMin(core.NowFunc().Add(-lookBehind).Format(time.RFC3339))
	err = call.Pages(ctx, func(page *gcal.Events) error {
		for _, ev := range page.Items {
			if ev.Status == "cancelled" {
				continue
			}
			raws = append(raws, toRaw(ev))
		}
		return nil
	})
	if err != nil {
		return nil, wrapAPIError(err, "listing events")
	}
	return raws, nil
}

// Apply replays ops in order. Hide ops are not mirrored: external events stay as they are.
// Deleting an event that is already gone is not an error.
func (g *Google) Apply(ctx context.Context, credential string, ops []calendar.Op) error {
	if len(ops) == 0 {
		return nil
	}
	svc, err := g.client(ctx, credential)
	if err != nil {
		return err
	}

	for _, op := range ops {
		switch op.Kind {
		case calendar.OpDelete:
			err = svc.Events.Delete(g.calendarID, op.Entry.ID).Context(ctx).Do()
			if isGone(err) {
				g.log.Debug("owned event already gone", "id", op.Entry.ID)
				err = nil
			}
		case calendar.OpCreate:
			_, err = svc.Events.Insert(g.calendarID, toEvent(op.Entry)).Context(ctx).Do()
		default:
			continue
		}
		if err != nil {
			return wrapAPIError(err, fmt.Sprintf("%s event %s", op.Kind, op.Entry.ID))
		}
	}
	return nil
}

func toRaw(ev *gcal.Event) calendar.RawEvent {
	raw := calendar.RawEvent{ID: ev.Id, Summary: ev.Summary}
	if props := ev.ExtendedProperties; props != nil && props.Private[ownerProperty] == ownerValue {
		raw.IsPriority = true
		raw.AssignmentKey = props.Private[keyProperty]
	}
	if ev.Start != nil {
		raw.Start = calendar.EventTime{DateTime: ev.Start.DateTime, Date: ev.Start.Date}
		raw.AllDay = ev.Start.Date != ""
	}
	if ev.End != nil {
		raw.End = calendar.EventTime{DateTime: ev.End.DateTime, Date: ev.End.Date}
	}
	return raw
}

func toEvent(e calendar.Entry) *gcal.Event {
	ev := &gcal.Event{
		Id:      e.ID,
		Summary: e.Title,
		ExtendedProperties: &gcal.EventExtendedProperties{
			Private: map[string]string{ownerProperty: ownerValue, keyProperty: e.AssignmentKey},
		},
	}
	if e.AllDay {
		ev.Start = &gcal.EventDateTime{Date: core.FormatDate(e.Start)}
		// all-day end dates are exclusive
		ev.End = &gcal.EventDateTime{Date: core.FormatDate(e.End.AddDate(0, 0, 1))}
	} else {
		ev.Start = &gcal.EventDateTime{DateTime: e.Start.Format(time.RFC3339)}
		ev.End = &gcal.EventDateTime{DateTime: e.End.Format(time.RFC3339)}
	}

	var desc string
	if e.Priority != nil {
		desc += fmt.Sprintf("Priority: %.2f\n", *e.Priority)
	}
	if e.ConfidenceWeight != nil {
		desc += fmt.Sprintf("Strength: %g\n", *e.ConfidenceWeight)
	}
	if e.Recommended != "" {
		desc += "Recommended start: " + e.Recommended + "\n"
	}
	ev.Description = desc
	return ev
}

func isGone(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone
	}
	return false
}

func wrapAPIError(err error, msg string) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized {
		return errors.Wrap(core.ErrMissingCredential, msg)
	}
	return errors.Wrap(err, msg)
}
