package ring

import (
	"bytes"
	"encoding/json"
	"time"

	// device timezones must resolve in minimal containers without a zoneinfo database
	_ "time/tzdata"
)

const (
	RecordingReady       = "ready"
	RecordingPending     = "pending"
	RecordingUnavailable = "unavailable"
)

// EventID is the vendor event identifier. The API delivers ids as (large) JSON
// numbers; they are kept as decimal strings so that nothing is lost to float64.
type EventID string

func (id *EventID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}

	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = EventID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}

	*id = EventID(n.String())

	return nil
}

func (id EventID) String() string {
	return string(id)
}

type Event struct {
	ID        EventID   `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Kind      string    `json:"kind"`
	Answered  *bool     `json:"answered"`
	Recording Recording `json:"recording"`
}

type Recording struct {
	Status string `json:"status"`
}

type event Event

// UnmarshalJSON decodes an event, treating an empty or null created_at as 'no timestamp'
// rather than failing the whole history page.
func (e *Event) UnmarshalJSON(b []byte) error {
	v := struct {
		*event
		CreatedAt json.RawMessage `json:"created_at"`
	}{
		event: (*event)(e),
	}

	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	e.CreatedAt = time.Time{}

	switch raw := bytes.TrimSpace(v.CreatedAt); {
	case len(raw) == 0, bytes.Equal(raw, []byte("null")), bytes.Equal(raw, []byte(`""`)):
		return nil

	default:
		return json.Unmarshal(raw, &e.CreatedAt)
	}
}

// Ready is true if the event recording can be downloaded.
func (e Event) Ready() bool {
	return e.Recording.Status == RecordingReady
}

type Device struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
	Kind        string `json:"kind"`
	TimeZone    string `json:"time_zone"`
}

// Location returns the device timezone, falling back to UTC if the device reports an
// unknown zone.
func (d Device) Location() *time.Location {
	if d.TimeZone != "" {
		if loc, err := time.LoadLocation(d.TimeZone); err == nil {
			return loc
		}
	}

	return time.UTC
}

type Devices struct {
	Doorbots           []Device `json:"doorbots"`
	AuthorizedDoorbots []Device `json:"authorized_doorbots"`
	StickupCams        []Device `json:"stickup_cams"`
	Chimes             []Device `json:"chimes"`
}

type recordingURL struct {
	URL string `json:"url"`
}
