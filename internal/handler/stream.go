package handler

import (
	"net/http"

	"intruderwatch/internal/service"
)

// FrameSnapshot exposes the newest published frame.
type FrameSnapshot interface {
	Latest() []byte
}

// SnapshotHandler serves the newest annotated frame as a single JPEG.
func SnapshotHandler(frames FrameSnapshot) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jpeg := frames.Latest()
		if jpeg == nil {
			writeError(w, http.StatusNotFound, "No frame available yet")
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Cache-Control", "no-cache")
		w.Write(jpeg)
	}
}

// StatsProvider reports processing counters.
type StatsProvider interface {
	Stats() service.Stats
}

// StatusHandler serves the manager counters as JSON.
func StatusHandler(stats StatsProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, stats.Stats())
	}
}
