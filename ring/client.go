// Package ring is a client for the doorbell vendor's REST API: device discovery,
// event history and recording download.
package ring

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/leo-automation/leo-ring/auth"
	errs "github.com/leo-automation/leo-ring/errors"
)

const DefaultBaseURL = "https://api.ring.com/clients_api"

type Client struct {
	api      *resty.Client
	download *resty.Client
	session  *auth.Session
}

type ClientConfig struct {
	BaseURL    string
	UserAgent  string
	HardwareID string
	Timeout    time.Duration
}

func NewClient(session *auth.Session, cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	api := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("hardware_id", cfg.HardwareID)

	api.OnBeforeRequest(func(_ *resty.Client, rq *resty.Request) error {
		if token := session.Token(); token != nil {
			rq.SetAuthToken(token.AccessToken)
		}
		return nil
	})

	// recording URLs are pre-signed and must not carry the bearer token
	download := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent)

	return &Client{
		api:      api,
		download: download,
		session:  session,
	}
}

// CreateSession registers this client as a device with the vendor, which some
// endpoints require before they answer.
func (c *Client) CreateSession(ctx context.Context, hardwareID string) error {
	body := map[string]any{
		"device": map[string]any{
			"hardware_id": hardwareID,
			"os":          "android",
			"metadata": map[string]any{
				"api_version": 11,
			},
		},
	}

	rs, err := c.api.R().SetContext(ctx).SetBody(body).Post("/session")
	if err != nil {
		return errs.Transport(err, "POST /session")
	}

	return check(rs, "POST /session")
}

func (c *Client) Devices(ctx context.Context) (*Devices, error) {
	devices := Devices{}
	if err := c.get(ctx, "/ring_devices", nil, &devices); err != nil {
		return nil, err
	}

	return &devices, nil
}

// Doorbell returns the first doorbell the account is authorised for.
func (c *Client) Doorbell(ctx context.Context) (Device, error) {
	devices, err := c.Devices(ctx)
	if err != nil {
		return Device{}, err
	}

	if len(devices.AuthorizedDoorbots) > 0 {
		return devices.AuthorizedDoorbots[0], nil
	}

	if len(devices.Doorbots) > 0 {
		return devices.Doorbots[0], nil
	}

	return Device{}, errs.New(errs.KindNotFound, "no doorbells authorised for this account")
}

// History returns up to limit events older than the olderThan event (or the most
// recent events if olderThan is empty), with timestamps in the device timezone.
func (c *Client) History(ctx context.Context, device Device, limit int, olderThan EventID) ([]Event, error) {
	query := map[string]string{
		"limit": strconv.Itoa(limit),
	}

	if olderThan != "" {
		query["older_than"] = olderThan.String()
	}

	events := []Event{}
	if err := c.get(ctx, fmt.Sprintf("/doorbots/%d/history", device.ID), query, &events); err != nil {
		return nil, err
	}

	loc := device.Location()
	for i := range events {
		if !events[i].CreatedAt.IsZero() {
			events[i].CreatedAt = events[i].CreatedAt.In(loc)
		}
	}

	return events, nil
}

// RecordingURL returns the pre-signed download URL for an event recording.
func (c *Client) RecordingURL(ctx context.Context, id EventID) (string, error) {
	var u recordingURL

	query := map[string]string{"disable_redirect": "true"}
	if err := c.get(ctx, fmt.Sprintf("/dings/%v/recording", id), query, &u); err != nil {
		return "", err
	}

	if u.URL == "" {
		return "", errs.New(errs.KindNotFound, "no recording URL for event %v", id)
	}

	return u.URL, nil
}

// DownloadRecording copies the event recording to w.
func (c *Client) DownloadRecording(ctx context.Context, id EventID, w io.Writer) (int64, error) {
	url, err := c.RecordingURL(ctx, id)
	if err != nil {
		return 0, err
	}

	rs, err := c.download.R().SetContext(ctx).SetDoNotParseResponse(true).Get(url)
	if err != nil {
		return 0, errs.Transport(err, "recording download")
	}

	body := rs.RawBody()
	defer body.Close()

	switch {
	case rs.StatusCode() == http.StatusNotFound:
		return 0, errs.New(errs.KindNotFound, "recording for event %v not found", id)

	case rs.IsError():
		return 0, fmt.Errorf("recording download for event %v failed (%v)", id, rs.Status())
	}

	N, err := io.Copy(w, body)
	if err != nil {
		return N, errs.Transport(err, "recording download")
	}

	return N, nil
}

func (c *Client) get(ctx context.Context, path string, query map[string]string, result any) error {
	rs, err := c.api.R().
		SetContext(ctx).
		SetQueryParams(query).
		SetResult(result).
		Get(path)

	if err != nil {
		return errs.Transport(err, "GET "+path)
	}

	return check(rs, "GET "+path)
}

func check(rs *resty.Response, op string) error {
	switch {
	case rs.StatusCode() == http.StatusUnauthorized:
		return errs.New(errs.KindAuthentication, "%v: %v", op, rs.Status())

	case rs.StatusCode() == http.StatusNotFound:
		return errs.New(errs.KindNotFound, "%v: %v", op, rs.Status())

	case rs.StatusCode() == http.StatusGatewayTimeout || rs.StatusCode() == http.StatusRequestTimeout:
		return errs.New(errs.KindTransientTimeout, "%v: %v", op, rs.Status())

	case rs.IsError():
		return fmt.Errorf("%v: %v", op, rs.Status())
	}

	return nil
}
