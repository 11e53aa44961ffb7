package camera

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"sync"

	"intruderwatch/internal/logger"

	"gocv.io/x/gocv"
)

var (
	jpegHeader = []byte{0xFF, 0xD8}
	jpegFooter = []byte{0xFF, 0xD9}
)

// maxDatagram is the largest UDP payload accepted from a camera.
const maxDatagram = 65507

// assembler rebuilds JPEG frames split across datagrams, one buffer per sender.
type assembler struct {
	buffers map[string]*bytes.Buffer
}

func newAssembler() *assembler {
	return &assembler{buffers: make(map[string]*bytes.Buffer)}
}

// push appends a datagram from sender and returns a complete frame once the
// JPEG end marker arrives. A start marker discards any partial frame.
func (a *assembler) push(sender string, data []byte) []byte {
	buf, ok := a.buffers[sender]
	if !ok {
		buf = new(bytes.Buffer)
		a.buffers[sender] = buf
	}

	if bytes.HasPrefix(data, jpegHeader) {
		buf.Reset()
	}
	buf.Write(data)

	if !bytes.HasSuffix(data, jpegFooter) {
		return nil
	}
	if !bytes.HasPrefix(buf.Bytes(), jpegHeader) {
		buf.Reset()
		return nil
	}

	frame := make([]byte, buf.Len())
	copy(frame, buf.Bytes())
	buf.Reset()
	return frame
}

// UDPSource receives JPEG frames pushed by network cameras over UDP.
type UDPSource struct {
	addr   string
	name   string
	conn   *net.UDPConn
	frames chan []byte
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
	logger *logger.Logger
}

// NewUDPSource creates an unopened source listening on addr.
func NewUDPSource(addr, name string, logger *logger.Logger) *UDPSource {
	return &UDPSource{
		addr:   addr,
		name:   name,
		frames: make(chan []byte, 1),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Open binds the UDP socket and starts receiving.
func (s *UDPSource) Open() error {
	addr, err := net.ResolveUDPAddr("udp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP %s: %w", s.addr, err)
	}
	s.conn = conn

	s.logger.Info("UDP camera %s listening on %s", s.name, conn.LocalAddr())

	s.wg.Add(1)
	go s.receive()
	return nil
}

// Addr returns the bound local address, or nil before Open.
func (s *UDPSource) Addr() net.Addr {
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

func (s *UDPSource) receive() {
	defer s.wg.Done()

	asm := newAssembler()
	buffer := make([]byte, maxDatagram)

	for {
		n, remote, err := s.conn.ReadFromUDP(buffer)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Error("Error reading UDP packet: %v", err)
			continue
		}

		frame := asm.push(remote.IP.String(), buffer[:n])
		if frame == nil {
			continue
		}

		// Keep only the newest frame when the reader falls behind.
		select {
		case <-s.frames:
		default:
		}
		select {
		case s.frames <- frame:
		case <-s.done:
			return
		}
	}
}

// Read blocks until a decodable frame arrives or the source is closed.
func (s *UDPSource) Read(frame *gocv.Mat) bool {
	for {
		select {
		case <-s.done:
			return false
		case data := <-s.frames:
			mat, err := gocv.IMDecode(data, gocv.IMReadColor)
			if err != nil || mat.Empty() {
				mat.Close()
				s.logger.Warning("Dropping undecodable frame from %s: %v", s.name, err)
				continue
			}
			mat.CopyTo(frame)
			mat.Close()
			return true
		}
	}
}

// Name returns the camera name used in captures.
func (s *UDPSource) Name() string {
	return s.name
}

// Close stops receiving and unblocks Read.
func (s *UDPSource) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		if s.conn != nil {
			err = s.conn.Close()
			s.wg.Wait()
		}
		s.logger.Info("UDP camera %s closed", s.name)
	})
	return err
}
