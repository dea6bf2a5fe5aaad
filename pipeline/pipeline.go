// Package pipeline archives recent doorbell recordings: it lists the events in the
// lookback window and, for each ready event, uploads the recording and records it in
// the monthly index.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/leo-automation/leo-ring/index"
	"github.com/leo-automation/leo-ring/log"
	"github.com/leo-automation/leo-ring/ring"
	"github.com/leo-automation/leo-ring/storage"
)

const (
	StatusUploaded = "uploaded"
	StatusSkipped  = "skipped"
	StatusNotReady = "Not Ready"
	StatusFailed   = "failed"
)

// Camera is the doorbell event source.
type Camera interface {
	ring.Historian
	DownloadRecording(ctx context.Context, id ring.EventID, w io.Writer) (int64, error)
}

type Options struct {
	Camera  Camera
	Device  ring.Device
	Store   storage.Store
	Mirror  index.Mirror
	Prefix  string
	History time.Duration
	Retry   RetryPolicy
	Metrics *Metrics
	TempDir string
	Now     func() time.Time
}

type Pipeline struct {
	camera  Camera
	device  ring.Device
	store   storage.Store
	mirror  index.Mirror
	prefix  string
	history time.Duration
	retry   RetryPolicy
	metrics *Metrics
	tempDir string
	now     func() time.Time
}

// Result is the outcome for one event. Status is the error text if the event failed.
type Result struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Status    string    `json:"status"`
	Err       error     `json:"-"`
}

func New(opts Options) *Pipeline {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	if opts.Retry.MaxAttempts < 1 {
		opts.Retry.MaxAttempts = 1
	}

	return &Pipeline{
		camera:  opts.Camera,
		device:  opts.Device,
		store:   opts.Store,
		mirror:  opts.Mirror,
		prefix:  opts.Prefix,
		history: opts.History,
		retry:   opts.Retry,
		metrics: opts.Metrics,
		tempDir: opts.TempDir,
		now:     opts.Now,
	}
}

// Run archives the events in the lookback window, newest first. A failed event is
// reported in its result and does not stop the run; only a failure to list the
// events fails the run as a whole.
func (p *Pipeline) Run(ctx context.Context) ([]Result, error) {
	started := time.Now()
	defer func() {
		p.metrics.run(time.Since(started))
	}()

	end := p.now().In(p.device.Location())
	start := end.Add(-p.history)

	events, err := ring.ListEvents(ctx, p.camera, p.device, start, end, 0)
	if err != nil {
		return nil, fmt.Errorf("error retrieving event history (%w)", err)
	}

	log.Infof("found %v events between %v and %v", len(events), start.Format(time.RFC3339), end.Format(time.RFC3339))

	results := make([]Result, 0, len(events))
	for _, e := range events {
		results = append(results, p.process(ctx, e))
	}

	return results, nil
}

func (p *Pipeline) process(ctx context.Context, e ring.Event) Result {
	log.Infof("processing event ID=%v, created at %v", e.ID, e.CreatedAt.Format(time.RFC3339))

	result := Result{
		ID:        e.ID.String(),
		CreatedAt: e.CreatedAt,
	}

	if !e.Ready() {
		log.Infof("event %v: recording %v", e.ID, e.Recording.Status)
		result.Status = StatusNotReady
		p.metrics.event("not_ready")

		return result
	}

	status, err := p.SaveWithRetry(ctx, e)
	if err != nil {
		log.Errorf("event %v: %v", e.ID, err)
		result.Status = err.Error()
		result.Err = err
		p.metrics.event(StatusFailed)

		return result
	}

	result.Status = status
	p.metrics.event(status)

	return result
}

// SaveWithRetry retries Save on transient timeouts.
func (p *Pipeline) SaveWithRetry(ctx context.Context, e ring.Event) (string, error) {
	var status string

	err := p.retry.Do(ctx, func() error {
		s, err := p.Save(ctx, e)
		if err == nil {
			status = s
		}

		return err
	}, func(attempt int, err error, wait time.Duration) {
		log.Warnf("event %v: attempt %v failed (%v), retrying in %v", e.ID, attempt, err, wait)
		p.metrics.retried()
	})

	return status, err
}

// Save archives a single event: the recording is uploaded unless the event is already
// in the month's index, after which the index is updated and persisted.
func (p *Pipeline) Save(ctx context.Context, e ring.Event) (string, error) {
	sheet := IndexPath(p.prefix, e.CreatedAt)

	table, err := index.OpenOrCreate(ctx, p.store, sheet)
	if err != nil {
		return "", err
	}

	defer table.Close()

	if table.Contains(e.ID.String()) {
		log.Infof("event %v already in %v", e.ID, sheet)
		return StatusSkipped, nil
	}

	item, err := p.upload(ctx, e)
	if err != nil {
		return "", err
	}

	row := index.Row{
		ID:       e.ID.String(),
		Date:     e.CreatedAt.Format("20060102"),
		Time:     e.CreatedAt.Format("15:04:05"),
		Kind:     e.Kind,
		Answered: e.Answered,
		Path:     item.Path(),
		URL:      item.WebURL,
	}

	if err := table.Append(row); err != nil {
		return "", err
	}

	if _, err := table.Persist(ctx, p.store, sheet, storage.Replace); err != nil {
		return "", err
	}

	if p.mirror != nil {
		if err := p.mirror.Append(ctx, row); err != nil {
			log.Warnf("event %v: %v", e.ID, err)
		}
	}

	return StatusUploaded, nil
}

// upload stages the recording in a temporary file so that the upload knows the size
// up front.
func (p *Pipeline) upload(ctx context.Context, e ring.Event) (*storage.Item, error) {
	tmp, err := os.CreateTemp(p.tempDir, "recording-*.mp4")
	if err != nil {
		return nil, err
	}

	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	N, err := p.camera.DownloadRecording(ctx, e.ID, tmp)
	if err != nil {
		return nil, err
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	dest := RecordingPath(p.prefix, e)
	item, err := p.store.Upload(ctx, tmp, N, dest, storage.Skip)
	if err != nil {
		return nil, err
	}

	log.Infof("event %v: uploaded %v (%v bytes)", e.ID, dest, N)
	p.metrics.uploaded(N)

	return item, nil
}
