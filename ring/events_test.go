package ring

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"
)

// history serves a fixed list of events, newest first, the way the vendor pages them.
type history struct {
	events   []Event
	requests []EventID
	stuck    bool
}

func (h *history) History(ctx context.Context, device Device, limit int, olderThan EventID) ([]Event, error) {
	h.requests = append(h.requests, olderThan)

	if len(h.requests) > 100 {
		return nil, fmt.Errorf("runaway pagination")
	}

	ix := 0
	if olderThan != "" && !h.stuck {
		for i, e := range h.events {
			if e.ID == olderThan {
				ix = i + 1
			}
		}
	}

	end := ix + limit
	if end > len(h.events) {
		end = len(h.events)
	}

	return h.events[ix:end], nil
}

func generate(N int, newest time.Time, step time.Duration) []Event {
	events := []Event{}
	for i := 0; i < N; i++ {
		events = append(events, Event{
			ID:        EventID(fmt.Sprintf("%d", 7000000000000000000+N-i)),
			CreatedAt: newest.Add(-time.Duration(i) * step),
			Kind:      "motion",
			Recording: Recording{Status: RecordingReady},
		})
	}

	return events
}

func ids(events []Event) []EventID {
	list := []EventID{}
	for _, e := range events {
		list = append(list, e.ID)
	}

	return list
}

func TestListEventsWindowIsStrict(t *testing.T) {
	end := time.Date(2024, time.May, 2, 11, 0, 0, 0, time.UTC)
	start := end.Add(-25 * time.Hour)

	h := history{
		events: generate(130, end, 30*time.Minute),
	}

	events, err := ListEvents(context.Background(), &h, Device{ID: 1}, start, end, 0)
	if err != nil {
		t.Fatalf("Unexpected error (%v)", err)
	}

	// newest event is at 'end' and the 51st is exactly at 'start': both excluded
	if len(events) != 49 {
		t.Errorf("Incorrect number of events - expected:%v, got:%v", 49, len(events))
	}

	for _, e := range events {
		if !e.CreatedAt.After(start) || !e.CreatedAt.Before(end) {
			t.Errorf("Event %v at %v is outside (%v, %v)", e.ID, e.CreatedAt, start, end)
		}
	}

	for i := 1; i < len(events); i++ {
		if !events[i].CreatedAt.Before(events[i-1].CreatedAt) {
			t.Errorf("Events not in reverse chronological order at %d", i)
		}
	}

	// paging: first page without a cursor, second from the last event of the first page
	expected := []EventID{"", h.events[49].ID}
	if !reflect.DeepEqual(h.requests, expected) {
		t.Errorf("Incorrect pagination\n   expected: %v\n   got:      %v\n", expected, h.requests)
	}
}

func TestListEventsSkipsEventsWithoutTimestamp(t *testing.T) {
	end := time.Date(2024, time.May, 2, 11, 0, 0, 0, time.UTC)
	start := end.Add(-2 * time.Hour)

	h := history{
		events: []Event{
			{ID: "5", CreatedAt: end.Add(-10 * time.Minute)},
			{ID: "4"},
			{ID: "3", CreatedAt: end.Add(-3 * time.Hour)},
		},
	}

	events, err := ListEvents(context.Background(), &h, Device{}, start, end, 0)
	if err != nil {
		t.Fatalf("Unexpected error (%v)", err)
	}

	if !reflect.DeepEqual(ids(events), []EventID{"5"}) {
		t.Errorf("Incorrect events - expected:%v, got:%v", []EventID{"5"}, ids(events))
	}
}

func TestListEventsWithLimit(t *testing.T) {
	end := time.Date(2024, time.May, 2, 11, 0, 0, 0, time.UTC)
	start := end.Add(-25 * time.Hour)

	h := history{
		events: generate(100, end.Add(-time.Minute), 10*time.Minute),
	}

	events, err := ListEvents(context.Background(), &h, Device{}, start, end, 5)
	if err != nil {
		t.Fatalf("Unexpected error (%v)", err)
	}

	if len(events) != 6 {
		t.Errorf("Expected early exit after limit+1 events, got %v events", len(events))
	}
}

func TestListEventsShortHistory(t *testing.T) {
	end := time.Date(2024, time.May, 2, 11, 0, 0, 0, time.UTC)
	start := end.Add(-25 * time.Hour)

	h := history{
		events: generate(3, end.Add(-time.Minute), time.Hour),
	}

	events, err := ListEvents(context.Background(), &h, Device{}, start, end, 0)
	if err != nil {
		t.Fatalf("Unexpected error (%v)", err)
	}

	if len(events) != 3 {
		t.Errorf("Incorrect number of events - expected:%v, got:%v", 3, len(events))
	}

	if len(h.requests) != 2 {
		t.Errorf("Expected paging to stop at the empty page, got %v requests", len(h.requests))
	}
}

func TestListEventsRepeatedCursor(t *testing.T) {
	end := time.Date(2024, time.May, 2, 11, 0, 0, 0, time.UTC)
	start := end.Add(-25 * time.Hour)

	h := history{
		events: generate(3, end.Add(-time.Minute), time.Hour),
		stuck:  true,
	}

	events, err := ListEvents(context.Background(), &h, Device{}, start, end, 0)
	if err != nil {
		t.Fatalf("Unexpected error (%v)", err)
	}

	if len(h.requests) != 2 {
		t.Errorf("Expected paging to stop when the cursor repeats, got %v requests", len(h.requests))
	}

	if len(events) != 3 {
		t.Errorf("Incorrect number of events - expected:%v, got:%v", 3, len(events))
	}

	ids := map[EventID]bool{}
	for _, e := range events {
		if ids[e.ID] {
			t.Errorf("Duplicate event %v", e.ID)
		}
		ids[e.ID] = true
	}
}

func TestListEventsError(t *testing.T) {
	h := failing{}

	if _, err := ListEvents(context.Background(), h, Device{}, time.Now().Add(-time.Hour), time.Now(), 0); err == nil {
		t.Errorf("Expected error, got nil")
	}
}

type failing struct{}

func (failing) History(ctx context.Context, device Device, limit int, olderThan EventID) ([]Event, error) {
	return nil, fmt.Errorf("503 Service Unavailable")
}
