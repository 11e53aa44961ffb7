// Package camera provides the frame sources the orchestrator reads from.
package camera

import (
	"strings"

	"intruderwatch/internal/config"
	"intruderwatch/internal/logger"

	"gocv.io/x/gocv"
)

const udpScheme = "udp://"

// Source produces BGR frames until it is closed or exhausted.
type Source interface {
	Open() error
	// Read fills frame with the next image and reports false once the
	// source is closed or no more frames can be read.
	Read(frame *gocv.Mat) bool
	Name() string
	Close() error
}

// New picks the source named by cfg.CameraSource: "udp://host:port" listens
// for JPEG datagrams, anything else is handed to OpenCV (device index,
// stream URL or video file).
func New(cfg *config.Config, logger *logger.Logger) Source {
	if addr, ok := strings.CutPrefix(cfg.CameraSource, udpScheme); ok {
		return NewUDPSource(addr, cfg.CameraName, logger)
	}
	return NewCapture(cfg.CameraSource, cfg.CameraName, logger)
}
