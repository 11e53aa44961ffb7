// Package stream serves annotated frames as a multipart MJPEG stream.
package stream

import (
	"net/http"
	"sync"

	"intruderwatch/internal/dto"

	"github.com/hybridgroup/mjpeg"
)

// MJPEG fans JPEG frames out to every connected /video_feed client.
type MJPEG struct {
	stream *mjpeg.Stream
	latest []byte
	mu     sync.RWMutex
}

// NewMJPEG creates an empty stream.
func NewMJPEG() *MJPEG {
	return &MJPEG{stream: mjpeg.NewStream()}
}

// Publish pushes a frame to connected clients and keeps it as the snapshot.
func (m *MJPEG) Publish(jpeg []byte, _ []dto.Detection) {
	m.mu.Lock()
	m.latest = jpeg
	m.mu.Unlock()

	m.stream.UpdateJPEG(jpeg)
}

// Latest returns the most recently published frame, or nil.
func (m *MJPEG) Latest() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest
}

// ServeHTTP streams multipart/x-mixed-replace frames until the client leaves.
func (m *MJPEG) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.stream.ServeHTTP(w, r)
}
