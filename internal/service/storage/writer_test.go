package storage

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"intruderwatch/internal/config"
	"intruderwatch/internal/dto"
	"intruderwatch/internal/logger"
	"intruderwatch/internal/repository/sqlite"
	"intruderwatch/internal/service/filter"

	"github.com/benbjohnson/clock"
	"github.com/disintegration/imaging"
	"github.com/google/go-cmp/cmp"
	"gocv.io/x/gocv"
)

// ========================================
// Helpers
// ========================================

var captureTime = time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		OutputDir:     filepath.Join(dir, "Filtered_Images"),
		CropDirectory: filepath.Join(dir, "crops"),
		LogDirectory:  filepath.Join(dir, "logs"),
		CameraName:    "cam0",
	}
}

func newTestWriter(t *testing.T, cfg *config.Config) *Writer {
	t.Helper()

	l := logger.NewLogger(cfg)
	t.Cleanup(l.Close)

	w := NewWriter(cfg, l, nil, nil, nil)
	mock := clock.NewMock()
	mock.Set(captureTime)
	w.SetClock(mock)
	return w
}

func newFrame(t *testing.T, rows, cols int) gocv.Mat {
	t.Helper()
	data := make([]byte, rows*cols*3)
	for i := range data {
		data[i] = byte(i % 251)
	}
	m, err := gocv.NewMatFromBytes(rows, cols, gocv.MatTypeCV8UC3, data)
	if err != nil {
		t.Fatalf("NewMatFromBytes failed: %v", err)
	}
	defer m.Close()
	return m.Clone()
}

func bankOutputs(t *testing.T, frame gocv.Mat) []filter.Output {
	t.Helper()
	bank, err := filter.NewBank(filter.DefaultParams())
	if err != nil {
		t.Fatalf("NewBank failed: %v", err)
	}
	outputs, err := bank.Run(frame)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return outputs
}

// ========================================
// Path Tests
// ========================================

func TestWriter_PathLayout(t *testing.T) {
	w := &Writer{root: "Filtered_Images"}

	tests := []struct {
		category filter.Category
		want     string
	}{
		{filter.Original, "Filtered_Images/Original/original_image_a.jpg"},
		{filter.Median, "Filtered_Images/Median_Filtered/median_filtered_image_a.jpg"},
		{filter.HighPass, "Filtered_Images/HPF/hpf_filtered_image_a.jpg"},
		{filter.Histogram, "Filtered_Images/Histogram_Equalized/histogram_equalized_image_a.jpg"},
		{filter.EdgeDetection, "Filtered_Images/Edge_Detected/edge_detected_image_a.jpg"},
		{filter.Sobel, "Filtered_Images/Sobel_Filtered/sobel_filtered_image_a.jpg"},
		{filter.UnsharpMask, "Filtered_Images/Unsharp_Masked/unsharp_masked_image_a.jpg"},
	}

	for _, tt := range tests {
		if got := w.Path(tt.category, "a.jpg"); got != filepath.FromSlash(tt.want) {
			t.Errorf("Path(%v) = %q, expected %q", tt.category, got, tt.want)
		}
	}
}

func TestWriter_CropPath(t *testing.T) {
	w := &Writer{cropDir: "crops"}

	got := w.CropPath("intruder", captureTime, 2)
	want := filepath.Join("crops", "intruder", "intruder_20240309_140507_2.jpg")
	if got != want {
		t.Errorf("CropPath = %q, expected %q", got, want)
	}
}

// ========================================
// Save Tests
// ========================================

func TestWriter_SaveAllWithSourceName(t *testing.T) {
	cfg := testConfig(t)
	w := newTestWriter(t, cfg)

	frame := newFrame(t, 24, 32)
	defer frame.Close()
	outputs := bankOutputs(t, frame)
	defer filter.CloseAll(outputs)

	capture, err := w.SaveAll(outputs, "/some/where/door.jpg", nil)
	if err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}

	if len(capture.Artifacts) != len(filter.Categories()) {
		t.Fatalf("Expected %d artifacts, got %d", len(filter.Categories()), len(capture.Artifacts))
	}
	for _, c := range filter.Categories() {
		path := w.Path(c, "door.jpg")
		info, err := os.Stat(path)
		if err != nil {
			t.Errorf("Expected %s to exist: %v", path, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("Expected %s to be non-empty", path)
		}
	}
	if capture.UUID == "" {
		t.Error("Expected capture UUID to be set")
	}
}

func TestWriter_SaveAllTimestamped(t *testing.T) {
	cfg := testConfig(t)
	w := newTestWriter(t, cfg)

	frame := newFrame(t, 16, 16)
	defer frame.Close()

	outputs := []filter.Output{{Category: filter.Original, Mat: frame.Clone()}}
	defer filter.CloseAll(outputs)

	capture, err := w.SaveAll(outputs, "", nil)
	if err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}

	want := filepath.Join(cfg.OutputDir, "Original", "original_image_20240309_140507.jpg")
	if capture.Artifacts[0].FilePath != want {
		t.Errorf("Expected %s, got %s", want, capture.Artifacts[0].FilePath)
	}
	if !capture.Timestamp.Equal(captureTime) {
		t.Errorf("Expected timestamp %v, got %v", captureTime, capture.Timestamp)
	}
}

func TestWriter_SaveSameNameOverwrites(t *testing.T) {
	cfg := testConfig(t)
	w := newTestWriter(t, cfg)

	frame := newFrame(t, 8, 8)
	defer frame.Close()

	for i := 0; i < 2; i++ {
		if _, err := w.Save(filter.Original, frame, "x.jpg"); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	entries, err := os.ReadDir(filepath.Join(cfg.OutputDir, "Original"))
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected a single file after rewriting the same name, got %d", len(entries))
	}
}

func TestWriter_SaveEmptyImage(t *testing.T) {
	w := newTestWriter(t, testConfig(t))

	empty := gocv.NewMat()
	defer empty.Close()

	if _, err := w.Save(filter.Median, empty, "x.jpg"); !errors.Is(err, filter.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestWriter_SaveAllIndexesCapture(t *testing.T) {
	cfg := testConfig(t)
	db, err := sqlite.New(filepath.Join(t.TempDir(), "captures.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	captures := sqlite.NewCaptureRepository(db)
	artifacts := sqlite.NewArtifactRepository(db)
	detections := sqlite.NewDetectionRepository(db)

	l := logger.NewLogger(cfg)
	defer l.Close()
	w := NewWriter(cfg, l, captures, artifacts, detections)

	frame := newFrame(t, 16, 16)
	defer frame.Close()
	outputs := []filter.Output{{Category: filter.Original, Mat: frame.Clone()}}
	defer filter.CloseAll(outputs)

	dets := []dto.Detection{{Label: "intruder", Confidence: 0.7, Box: image.Rect(1, 2, 10, 12)}}
	capture, err := w.SaveAll(outputs, "", dets)
	if err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}
	if capture.ID == 0 {
		t.Fatal("Expected capture to receive an ID")
	}

	stored, err := captures.GetByUUID(capture.UUID)
	if err != nil || stored == nil {
		t.Fatalf("Expected stored capture, got %v, %v", stored, err)
	}

	arts, err := artifacts.GetByCaptureID(capture.ID)
	if err != nil {
		t.Fatalf("GetByCaptureID failed: %v", err)
	}
	if len(arts) != 1 || arts[0].Category != "original" || arts[0].FileSize == 0 {
		t.Errorf("Unexpected artifacts: %+v", arts)
	}

	labels, err := detections.GetLabelsByCaptureID(capture.ID)
	if err != nil {
		t.Fatalf("GetLabelsByCaptureID failed: %v", err)
	}
	if diff := cmp.Diff([]string{"intruder"}, labels); diff != "" {
		t.Errorf("Labels mismatch (-want +got):\n%s", diff)
	}
}

func newIndexedWriter(t *testing.T, cfg *config.Config) (*Writer, *sqlite.DB) {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "captures.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	l := logger.NewLogger(cfg)
	t.Cleanup(l.Close)
	w := NewWriter(cfg, l, sqlite.NewCaptureRepository(db),
		sqlite.NewArtifactRepository(db), sqlite.NewDetectionRepository(db))
	return w, db
}

func TestWriter_CaptureAndDelete(t *testing.T) {
	cfg := testConfig(t)
	w, _ := newIndexedWriter(t, cfg)

	frame := newFrame(t, 16, 16)
	defer frame.Close()
	outputs := bankOutputs(t, frame)
	defer filter.CloseAll(outputs)

	saved, err := w.SaveAll(outputs, "frame.jpg", nil)
	if err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}

	loaded, err := w.Capture(saved.UUID)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if len(loaded.Artifacts) != len(filter.Categories()) {
		t.Fatalf("Expected %d artifacts, got %d", len(filter.Categories()), len(loaded.Artifacts))
	}

	if err := w.DeleteCapture(saved.UUID); err != nil {
		t.Fatalf("DeleteCapture failed: %v", err)
	}
	for _, a := range loaded.Artifacts {
		if _, err := os.Stat(a.FilePath); !os.IsNotExist(err) {
			t.Errorf("Expected %s to be removed, stat error %v", a.FilePath, err)
		}
	}
	if _, err := w.Capture(saved.UUID); !errors.Is(err, ErrNoCapture) {
		t.Errorf("Expected ErrNoCapture after delete, got %v", err)
	}
	if err := w.DeleteCapture(saved.UUID); !errors.Is(err, ErrNoCapture) {
		t.Errorf("Expected ErrNoCapture for a second delete, got %v", err)
	}
}

func TestWriter_CaptureWithoutIndex(t *testing.T) {
	w := newTestWriter(t, testConfig(t))

	if _, err := w.Capture("any"); !errors.Is(err, ErrNoIndex) {
		t.Errorf("Expected ErrNoIndex, got %v", err)
	}
}

func TestWriter_SaveAllKeepsCaptureWhenIndexFails(t *testing.T) {
	cfg := testConfig(t)
	w, db := newIndexedWriter(t, cfg)
	db.Close()

	frame := newFrame(t, 16, 16)
	defer frame.Close()
	outputs := []filter.Output{{Category: filter.Original, Mat: frame.Clone()}}
	defer filter.CloseAll(outputs)

	capture, err := w.SaveAll(outputs, "", nil)
	if err != nil {
		t.Fatalf("Expected files to count as saved despite the index error, got %v", err)
	}
	if capture.ID != 0 {
		t.Errorf("Expected no index ID, got %d", capture.ID)
	}
	if _, err := os.Stat(capture.Artifacts[0].FilePath); err != nil {
		t.Errorf("Expected artifact on disk: %v", err)
	}
}

// ========================================
// Crop Tests
// ========================================

func TestWriter_SaveCrops(t *testing.T) {
	cfg := testConfig(t)
	w := newTestWriter(t, cfg)

	frame := newFrame(t, 40, 60)
	defer frame.Close()

	dets := []dto.Detection{
		{Label: "intruder", Box: image.Rect(10, 5, 30, 25)},
		{Label: "intruder", Box: image.Rect(50, 30, 80, 60)}, // clipped to 10x10
		{Label: "user", Box: image.Rect(100, 100, 120, 120)},  // outside
	}

	paths, err := w.SaveCrops(frame, dets)
	if err != nil {
		t.Fatalf("SaveCrops failed: %v", err)
	}

	want := []string{
		w.CropPath("intruder", captureTime, 0),
		w.CropPath("intruder", captureTime, 1),
	}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Fatalf("Crop paths mismatch (-want +got):\n%s", diff)
	}

	sizes := []image.Point{{20, 20}, {10, 10}}
	for i, p := range paths {
		img, err := imaging.Open(p)
		if err != nil {
			t.Fatalf("Failed to open crop %s: %v", p, err)
		}
		if got := img.Bounds().Size(); got != sizes[i] {
			t.Errorf("Crop %d size %v, expected %v", i, got, sizes[i])
		}
	}

	if _, err := os.Stat(filepath.Join(cfg.CropDirectory, "user")); !os.IsNotExist(err) {
		t.Error("Expected no crop directory for a box outside the frame")
	}
}

func TestWriter_SaveCropsNoDetections(t *testing.T) {
	w := newTestWriter(t, testConfig(t))

	empty := gocv.NewMat()
	defer empty.Close()

	paths, err := w.SaveCrops(empty, nil)
	if err != nil || paths != nil {
		t.Errorf("Expected no-op, got %v, %v", paths, err)
	}
}

// ========================================
// Latest Tests
// ========================================

func TestWriter_LatestMissing(t *testing.T) {
	w := newTestWriter(t, testConfig(t))

	if _, err := w.Latest(filter.Sobel); !errors.Is(err, ErrNoArtifact) {
		t.Errorf("Expected ErrNoArtifact, got %v", err)
	}
	if _, err := w.LatestCrop("intruder"); !errors.Is(err, ErrNoArtifact) {
		t.Errorf("Expected ErrNoArtifact, got %v", err)
	}
}

func TestWriter_LatestPicksNewest(t *testing.T) {
	cfg := testConfig(t)
	w := newTestWriter(t, cfg)

	dir := filepath.Join(cfg.OutputDir, filter.Sobel.Dir())
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}

	files := []struct {
		name string
		mod  time.Time
	}{
		{"b.jpg", captureTime.Add(-time.Hour)},
		{"a.jpg", captureTime},
		{"c.txt", captureTime.Add(time.Hour)},
	}
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		if err := os.Chtimes(path, f.mod, f.mod); err != nil {
			t.Fatalf("Chtimes failed: %v", err)
		}
	}

	got, err := w.Latest(filter.Sobel)
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if want := filepath.Join(dir, "a.jpg"); got != want {
		t.Errorf("Latest = %q, expected %q", got, want)
	}
}

func TestWriter_Clear(t *testing.T) {
	cfg := testConfig(t)
	w := newTestWriter(t, cfg)

	frame := newFrame(t, 8, 8)
	defer frame.Close()
	if _, err := w.Save(filter.Original, frame, "x.jpg"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := w.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, err := w.Latest(filter.Original); !errors.Is(err, ErrNoArtifact) {
		t.Errorf("Expected ErrNoArtifact after Clear, got %v", err)
	}
}
