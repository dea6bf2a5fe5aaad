package pipeline

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"

	errs "github.com/leo-automation/leo-ring/errors"
)

func TestLinearBackoff(t *testing.T) {
	backoff := Linear(5 * time.Second)

	expected := []time.Duration{5 * time.Second, 10 * time.Second, 15 * time.Second}
	got := []time.Duration{backoff(1), backoff(2), backoff(3)}

	if !reflect.DeepEqual(got, expected) {
		t.Errorf("Incorrect backoff - expected:%v, got:%v", expected, got)
	}
}

func TestRetryPolicyWaits(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts: 4,
		Backoff:     func(n int) time.Duration { return time.Duration(n) * time.Millisecond },
		Retryable:   errs.IsTimeout,
	}

	waits := []time.Duration{}
	attempts := 0

	err := policy.Do(context.Background(), func() error {
		attempts++
		return errs.New(errs.KindTransientTimeout, "timeout")
	}, func(attempt int, err error, wait time.Duration) {
		waits = append(waits, wait)
	})

	if err == nil {
		t.Fatalf("Expected error after exhausting attempts")
	}

	if attempts != 4 {
		t.Errorf("Incorrect number of attempts - expected:%v, got:%v", 4, attempts)
	}

	expected := []time.Duration{1 * time.Millisecond, 2 * time.Millisecond, 3 * time.Millisecond}
	if !reflect.DeepEqual(waits, expected) {
		t.Errorf("Incorrect waits - expected:%v, got:%v", expected, waits)
	}
}

func TestRetryPolicySucceeds(t *testing.T) {
	attempts := 0
	err := DefaultRetryPolicy(10, 0).Do(context.Background(), func() error {
		if attempts++; attempts < 2 {
			return errs.New(errs.KindTransientTimeout, "timeout")
		}
		return nil
	}, nil)

	if err != nil || attempts != 2 {
		t.Errorf("Expected success on second attempt, got %v after %v attempts", err, attempts)
	}
}

func TestRetryPolicyPermanent(t *testing.T) {
	attempts := 0
	cause := fmt.Errorf("403 Forbidden")

	err := DefaultRetryPolicy(10, 0).Do(context.Background(), func() error {
		attempts++
		return cause
	}, nil)

	if err != cause || attempts != 1 {
		t.Errorf("Expected immediate failure with the underlying error, got %v after %v attempts", err, attempts)
	}
}

func TestRetryPolicyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	err := DefaultRetryPolicy(10, time.Hour).Do(ctx, func() error {
		attempts++
		cancel()
		return errs.New(errs.KindTransientTimeout, "timeout")
	}, nil)

	if err == nil || attempts != 1 {
		t.Errorf("Expected cancellation to stop retries, got %v after %v attempts", err, attempts)
	}
}
