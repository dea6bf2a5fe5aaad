package pipeline

import (
	"testing"
	"time"

	"github.com/leo-automation/leo-ring/ring"
)

func TestRecordingPath(t *testing.T) {
	ny, _ := time.LoadLocation("America/New_York")

	tests := []struct {
		prefix   string
		event    ring.Event
		expected string
	}{
		{"/Ring", ring.Event{CreatedAt: time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC), Kind: "motion"}, "/Ring/2024/20240501_10_00_00_motion.mp4"},
		{"/Ring/", ring.Event{CreatedAt: time.Date(2024, time.December, 31, 23, 59, 7, 0, time.UTC), Kind: "ding"}, "/Ring/2024/20241231_23_59_07_ding.mp4"},
		{"", ring.Event{CreatedAt: time.Date(2025, time.January, 2, 3, 4, 5, 0, time.UTC), Kind: "on_demand"}, "/2025/20250102_03_04_05_on_demand.mp4"},
		{"/Ring", ring.Event{CreatedAt: time.Date(2024, time.January, 1, 2, 30, 0, 0, time.UTC).In(ny), Kind: "motion"}, "/Ring/2023/20231231_21_30_00_motion.mp4"},
	}

	for _, test := range tests {
		if p := RecordingPath(test.prefix, test.event); p != test.expected {
			t.Errorf("Incorrect recording path - expected:%v, got:%v", test.expected, p)
		}
	}
}

func TestIndexPath(t *testing.T) {
	if p := IndexPath("/Ring", time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)); p != "/Ring/Sheets/202405.xlsx" {
		t.Errorf("Incorrect index path %v", p)
	}
}
