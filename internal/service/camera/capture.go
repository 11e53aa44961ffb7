package camera

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"intruderwatch/internal/logger"

	"gocv.io/x/gocv"
)

// closeTimeout bounds how long Close waits for a stalled Read to return.
var closeTimeout = 2 * time.Second

// Capture reads frames through an OpenCV VideoCapture.
type Capture struct {
	source string
	name   string
	vc     *gocv.VideoCapture
	closed atomic.Bool
	mu     sync.Mutex
	logger *logger.Logger
}

// NewCapture creates an unopened capture for a device index, URL or file.
func NewCapture(source, name string, logger *logger.Logger) *Capture {
	return &Capture{source: source, name: name, logger: logger}
}

// Open starts the capture device.
func (c *Capture) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.vc != nil {
		return nil
	}

	vc, err := gocv.OpenVideoCapture(c.source)
	if err != nil {
		return fmt.Errorf("failed to open camera %s: %w", c.source, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return fmt.Errorf("failed to open camera %s", c.source)
	}

	c.vc = vc
	c.closed.Store(false)
	c.logger.Info("Camera %s opened from %s", c.name, c.source)
	return nil
}

// Read grabs the next frame. An empty frame counts as a failed read.
func (c *Capture) Read(frame *gocv.Mat) bool {
	if c.closed.Load() {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() || c.vc == nil {
		return false
	}
	if ok := c.vc.Read(frame); !ok {
		return false
	}
	return !frame.Empty()
}

// Name returns the camera name used in captures.
func (c *Capture) Name() string {
	return c.name
}

// Close marks the capture closed and releases the device. If a Read is
// stuck on the source for longer than closeTimeout, the release finishes
// in the background and Close returns nil.
func (c *Capture) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		if c.vc == nil {
			done <- nil
			return
		}
		err := c.vc.Close()
		c.vc = nil
		done <- err
	}()

	select {
	case err := <-done:
		c.logger.Info("Camera %s released", c.name)
		return err
	case <-time.After(closeTimeout):
		c.logger.Warning("Camera %s read still blocked after %s, releasing in background", c.name, closeTimeout)
		return nil
	}
}
