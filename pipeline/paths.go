package pipeline

import (
	"path"
	"time"

	"github.com/leo-automation/leo-ring/ring"
)

// RecordingPath is <prefix>/<YYYY>/<YYYYMMDD>_<HH>_<MM>_<SS>_<kind>.mp4, in the device
// timezone.
func RecordingPath(prefix string, e ring.Event) string {
	at := e.CreatedAt

	return path.Join("/", prefix, at.Format("2006"), at.Format("20060102_15_04_05")+"_"+e.Kind+".mp4")
}

// IndexPath is <prefix>/Sheets/<YYYYMM>.xlsx.
func IndexPath(prefix string, at time.Time) string {
	return path.Join("/", prefix, "Sheets", at.Format("200601")+".xlsx")
}
