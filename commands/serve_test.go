package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/leo-automation/leo-ring/pipeline"
)

type stub struct {
	results []pipeline.Result
	err     error
	calls   int
}

func (s *stub) invoke(ctx context.Context) ([]pipeline.Result, error) {
	s.calls++

	return s.results, s.err
}

func TestSaveRingVideo(t *testing.T) {
	created := time.Date(2024, time.March, 5, 14, 7, 9, 0, time.UTC)

	invoker := stub{
		results: []pipeline.Result{
			{ID: "42", CreatedAt: created, Status: pipeline.StatusUploaded},
		},
	}

	r := router(&invoker, nil)

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		rq := httptest.NewRequest(method, "/api/save-ring-video", nil)
		w := httptest.NewRecorder()

		r.ServeHTTP(w, rq)

		if w.Code != http.StatusOK {
			t.Fatalf("Incorrect %v status - expected:%v, got:%v", method, http.StatusOK, w.Code)
		}

		var reply struct {
			Processed []struct {
				ID        string `json:"id"`
				CreatedAt string `json:"created_at"`
				Status    string `json:"status"`
			} `json:"processed"`
		}

		if err := json.Unmarshal(w.Body.Bytes(), &reply); err != nil {
			t.Fatalf("Invalid JSON response (%v)\n%s", err, w.Body.String())
		}

		if len(reply.Processed) != 1 || reply.Processed[0].ID != "42" || reply.Processed[0].Status != "uploaded" {
			t.Errorf("Incorrect %v response\n%s", method, w.Body.String())
		}
	}

	if invoker.calls != 2 {
		t.Errorf("Incorrect number of invocations - expected:%v, got:%v", 2, invoker.calls)
	}
}

func TestSaveRingVideoBusy(t *testing.T) {
	r := router(&stub{err: errBusy}, nil)

	rq := httptest.NewRequest(http.MethodPost, "/api/save-ring-video", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, rq)

	if w.Code != http.StatusConflict {
		t.Errorf("Incorrect status - expected:%v, got:%v", http.StatusConflict, w.Code)
	}
}

func TestSaveRingVideoError(t *testing.T) {
	r := router(&stub{err: fmt.Errorf("qwerty")}, nil)

	rq := httptest.NewRequest(http.MethodPost, "/api/save-ring-video", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, rq)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Incorrect status - expected:%v, got:%v", http.StatusInternalServerError, w.Code)
	}

	if !strings.Contains(w.Body.String(), "qwerty") {
		t.Errorf("Incorrect error response - expected:%v, got:%v", "qwerty", w.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	r := router(&stub{}, nil)

	rq := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, rq)

	if w.Code != http.StatusOK || w.Body.String() != "ok\n" {
		t.Errorf("Incorrect healthz response - expected:%v %q, got:%v %q", http.StatusOK, "ok\n", w.Code, w.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	pipeline.NewMetrics(registry)

	r := router(&stub{}, registry)

	rq := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, rq)

	if w.Code != http.StatusOK {
		t.Fatalf("Incorrect status - expected:%v, got:%v", http.StatusOK, w.Code)
	}

	if !strings.Contains(w.Body.String(), "leo_ring_run_duration_seconds") {
		t.Errorf("Missing run duration metric\n%s", w.Body.String())
	}
}

func TestWriteJSONWithNoResults(t *testing.T) {
	var b bytes.Buffer

	if err := writeJSON(&b, nil); err != nil {
		t.Fatalf("Unexpected error (%v)", err)
	}

	var reply map[string][]any
	if err := json.Unmarshal(b.Bytes(), &reply); err != nil {
		t.Fatalf("Invalid JSON (%v)", err)
	}

	expected := map[string][]any{"processed": {}}
	if !reflect.DeepEqual(reply, expected) {
		t.Errorf("Incorrect JSON\n   expected:%v\n   got:     %v", expected, reply)
	}
}

func TestTriggerRejectsConcurrentRuns(t *testing.T) {
	tr := trigger{}
	tr.Lock()
	defer tr.Unlock()

	if _, err := tr.invoke(context.Background()); err != errBusy {
		t.Errorf("Incorrect error - expected:%v, got:%v", errBusy, err)
	}
}
