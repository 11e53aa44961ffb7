package stream

import (
	"bufio"
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMJPEG_LatestFrame(t *testing.T) {
	m := NewMJPEG()

	if m.Latest() != nil {
		t.Error("Expected no frame before Publish")
	}

	m.Publish([]byte{0xFF, 0xD8, 1, 0xFF, 0xD9}, nil)
	m.Publish([]byte{0xFF, 0xD8, 2, 0xFF, 0xD9}, nil)

	if got := m.Latest(); !bytes.Equal(got, []byte{0xFF, 0xD8, 2, 0xFF, 0xD9}) {
		t.Errorf("Expected newest frame, got % x", got)
	}
}

func TestMJPEG_StreamsMultipart(t *testing.T) {
	m := NewMJPEG()

	// The handler only returns once a write fails, so frames keep flowing
	// until the server has shut down.
	frame := []byte{0xFF, 0xD8, 42, 0xFF, 0xD9}
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				m.Publish(frame, nil)
			}
		}
	}()

	server := httptest.NewServer(m)
	defer server.Close()

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "multipart/x-mixed-replace") {
		t.Fatalf("Unexpected content type %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	var seen []byte
	buf := make([]byte, 256)
	deadline := time.Now().Add(5 * time.Second)
	for !bytes.Contains(seen, frame) && time.Now().Before(deadline) {
		n, err := reader.Read(buf)
		seen = append(seen, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
	}

	if !bytes.Contains(seen, frame) {
		t.Error("Expected published frame in the multipart body")
	}
	if !bytes.Contains(seen, []byte("Content-Type: image/jpeg")) {
		t.Error("Expected a JPEG part header")
	}
}
