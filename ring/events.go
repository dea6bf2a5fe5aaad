package ring

import (
	"context"
	"time"

	"github.com/leo-automation/leo-ring/log"
)

// PageSize is the number of events requested per history page.
const PageSize = 50

type Historian interface {
	History(ctx context.Context, device Device, limit int, olderThan EventID) ([]Event, error)
}

// ListEvents pages backwards through the device history from the most recent event
// until it reaches an event at or before start, returning the events strictly inside
// (start, end) in the order the vendor delivers them (newest first).
//
// If limit is positive, the search stops as soon as more than limit events have been
// collected. Paging also stops if the vendor returns an empty page or the cursor
// stops advancing, so a device with less history than the window cannot loop forever.
func ListEvents(ctx context.Context, h Historian, device Device, start, end time.Time, limit int) ([]Event, error) {
	events := []Event{}
	cursor := end
	var cursorID EventID

	used := map[EventID]bool{}
	seen := map[EventID]bool{}

	for cursor.After(start) {
		page, err := h.History(ctx, device, PageSize, cursorID)
		if err != nil {
			return nil, err
		}

		if len(page) == 0 {
			log.Named("ring").Debug().Int("events", len(events)).Msg("end of device history")
			break
		}

		for _, e := range page {
			if e.ID != "" {
				cursorID = e.ID
			}

			// pagination may reference pruned events without a timestamp
			if e.CreatedAt.IsZero() {
				continue
			}

			cursor = e.CreatedAt
			if e.CreatedAt.After(start) && e.CreatedAt.Before(end) && (e.ID == "" || !seen[e.ID]) {
				events = append(events, e)
				seen[e.ID] = true
			}

			if limit > 0 && len(events) > limit {
				return events, nil
			}
		}

		if cursorID == "" || used[cursorID] {
			log.Named("ring").Warn().Str("cursor", cursorID.String()).Time("at", cursor).Msg("history cursor is not advancing")
			break
		}

		used[cursorID] = true
	}

	return events, nil
}
