package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"intruderwatch/internal/config"
	"intruderwatch/internal/dto"
	"intruderwatch/internal/logger"
	"intruderwatch/internal/model"
	"intruderwatch/internal/repository"
	"intruderwatch/internal/service/filter"

	"github.com/benbjohnson/clock"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"gocv.io/x/gocv"
)

// TimestampLayout names artifacts written without a source file name.
const TimestampLayout = "20060102_150405"

var (
	// ErrNoArtifact is returned when a directory holds no image yet.
	ErrNoArtifact = errors.New("no artifact found")
	// ErrNoCapture is returned for an unknown capture UUID.
	ErrNoCapture = errors.New("capture not found")
	// ErrNoIndex is returned by index lookups when no repositories are attached.
	ErrNoIndex = errors.New("capture index not configured")
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
}

// Writer persists filter outputs and detection crops under deterministic paths
// and optionally indexes them in the capture database.
type Writer struct {
	root    string
	cropDir string
	camera  string
	clock   clock.Clock
	logger  *logger.Logger

	captureRepo   repository.CaptureRepository
	artifactRepo  repository.ArtifactRepository
	detectionRepo repository.DetectionRepository
}

// NewWriter creates a Writer rooted at cfg.OutputDir. Repositories may be nil.
func NewWriter(cfg *config.Config, logger *logger.Logger, captureRepo repository.CaptureRepository,
	artifactRepo repository.ArtifactRepository, detectionRepo repository.DetectionRepository) *Writer {
	return &Writer{
		root:          cfg.OutputDir,
		cropDir:       cfg.CropDirectory,
		camera:        cfg.CameraName,
		clock:         clock.New(),
		logger:        logger,
		captureRepo:   captureRepo,
		artifactRepo:  artifactRepo,
		detectionRepo: detectionRepo,
	}
}

// SetClock replaces the clock used for timestamps.
func (w *Writer) SetClock(c clock.Clock) {
	w.clock = c
}

// Path returns where an artifact of category c named name is stored.
func (w *Writer) Path(c filter.Category, name string) string {
	return filepath.Join(w.root, c.Dir(), c.Prefix()+"_"+name)
}

// Save writes img as the category's artifact and returns its path.
func (w *Writer) Save(c filter.Category, img gocv.Mat, name string) (string, error) {
	if img.Empty() {
		return "", fmt.Errorf("save %s: %w", c, filter.ErrInvalidInput)
	}
	if name == "" {
		return "", fmt.Errorf("save %s: empty file name", c)
	}

	dir := filepath.Join(w.root, c.Dir())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	path := w.Path(c, name)
	if ok := gocv.IMWrite(path, img); !ok {
		return "", fmt.Errorf("failed to write image %s", path)
	}
	return path, nil
}

// artifactName derives the per-capture file name from the source name or the clock.
func (w *Writer) artifactName(source string, now time.Time) string {
	if source != "" {
		return filepath.Base(source)
	}
	return now.Format(TimestampLayout) + ".jpg"
}

// SaveAll writes every output of one frame. With an empty source the files
// are named after the current time. When repositories are attached the
// capture, its artifacts and detections are indexed; an index failure is
// logged and the capture is still returned, its files being on disk.
func (w *Writer) SaveAll(outputs []filter.Output, source string, detections []dto.Detection) (*model.Capture, error) {
	now := w.clock.Now()
	name := w.artifactName(source, now)

	capture := &model.Capture{
		UUID:       uuid.NewString(),
		Camera:     w.camera,
		Timestamp:  now,
		Detections: toModelDetections(detections),
	}

	for _, out := range outputs {
		path, err := w.Save(out.Category, out.Mat, name)
		if err != nil {
			return nil, err
		}

		var size int64
		if info, err := os.Stat(path); err == nil {
			size = info.Size()
		}
		capture.Artifacts = append(capture.Artifacts, model.Artifact{
			Category: out.Category.String(),
			Filename: filepath.Base(path),
			FilePath: path,
			FileSize: size,
		})
	}

	if err := w.index(capture); err != nil {
		w.logger.Error("Capture %s written but not indexed: %v", capture.UUID, err)
	}
	return capture, nil
}

// Capture loads an indexed capture and its artifacts.
func (w *Writer) Capture(uuid string) (*model.Capture, error) {
	if w.captureRepo == nil || w.artifactRepo == nil {
		return nil, ErrNoIndex
	}

	capture, err := w.captureRepo.GetByUUID(uuid)
	if err != nil {
		return nil, err
	}
	if capture == nil {
		return nil, fmt.Errorf("%s: %w", uuid, ErrNoCapture)
	}

	artifacts, err := w.artifactRepo.GetByCaptureID(capture.ID)
	if err != nil {
		return nil, err
	}
	capture.Artifacts = artifacts
	return capture, nil
}

// DeleteCapture removes the artifact files of one capture and its index entry.
// Files already gone are ignored.
func (w *Writer) DeleteCapture(uuid string) error {
	capture, err := w.Capture(uuid)
	if err != nil {
		return err
	}

	for _, a := range capture.Artifacts {
		if err := os.Remove(a.FilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", a.FilePath, err)
		}
	}

	if err := w.captureRepo.Delete(capture.ID); err != nil {
		return err
	}

	w.logger.Info("Deleted capture %s (%d artifacts)", uuid, len(capture.Artifacts))
	return nil
}

func (w *Writer) index(capture *model.Capture) error {
	if w.captureRepo == nil {
		return nil
	}

	id, err := w.captureRepo.Insert(capture)
	if err != nil {
		return fmt.Errorf("failed to index capture: %w", err)
	}
	capture.ID = id

	for i := range capture.Artifacts {
		capture.Artifacts[i].CaptureID = id
	}
	for i := range capture.Detections {
		capture.Detections[i].CaptureID = id
	}

	if w.artifactRepo != nil && len(capture.Artifacts) > 0 {
		if err := w.artifactRepo.InsertBatch(capture.Artifacts); err != nil {
			return fmt.Errorf("failed to index artifacts: %w", err)
		}
	}
	if w.detectionRepo != nil && len(capture.Detections) > 0 {
		if err := w.detectionRepo.InsertBatch(capture.Detections); err != nil {
			return fmt.Errorf("failed to index detections: %w", err)
		}
	}
	return nil
}

func toModelDetections(detections []dto.Detection) []model.Detection {
	var out []model.Detection
	for _, d := range detections {
		out = append(out, model.Detection{
			Label:      d.Label,
			Confidence: d.Confidence,
			X1:         d.Box.Min.X,
			Y1:         d.Box.Min.Y,
			X2:         d.Box.Max.X,
			Y2:         d.Box.Max.Y,
		})
	}
	return out
}

// CropPath returns the path of the n-th crop of label taken at t.
func (w *Writer) CropPath(label string, t time.Time, n int) string {
	return filepath.Join(w.cropDir, label, fmt.Sprintf("%s_%s_%d.jpg", label, t.Format(TimestampLayout), n))
}

// SaveCrops stores the region of every detection box, clipped to the frame.
// Boxes entirely outside the frame are skipped.
func (w *Writer) SaveCrops(frame gocv.Mat, detections []dto.Detection) ([]string, error) {
	if len(detections) == 0 {
		return nil, nil
	}
	if frame.Empty() {
		return nil, fmt.Errorf("save crops: %w", filter.ErrInvalidInput)
	}

	img, err := frame.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame to image: %w", err)
	}

	now := w.clock.Now()
	var paths []string
	for i, d := range detections {
		box := d.Box.Intersect(img.Bounds())
		if box.Empty() {
			continue
		}

		path := w.CropPath(d.Label, now, i)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return paths, fmt.Errorf("failed to create crop directory: %w", err)
		}
		if err := imaging.Save(imaging.Crop(img, box), path); err != nil {
			return paths, fmt.Errorf("failed to save crop %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// Latest returns the newest artifact of category c.
func (w *Writer) Latest(c filter.Category) (string, error) {
	return newestImage(filepath.Join(w.root, c.Dir()))
}

// LatestCrop returns the newest crop saved for label.
func (w *Writer) LatestCrop(label string) (string, error) {
	return newestImage(filepath.Join(w.cropDir, label))
}

// newestImage picks the most recently modified image in dir; ties go to the
// lexically greatest name so timestamped files still order correctly.
func newestImage(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoArtifact
	}
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	type candidate struct {
		name string
		mod  time.Time
	}
	var files []candidate
	for _, e := range entries {
		if e.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, candidate{name: e.Name(), mod: info.ModTime()})
	}
	if len(files) == 0 {
		return "", ErrNoArtifact
	}

	sort.Slice(files, func(i, j int) bool {
		if !files[i].mod.Equal(files[j].mod) {
			return files[i].mod.After(files[j].mod)
		}
		return files[i].name > files[j].name
	})
	return filepath.Join(dir, files[0].name), nil
}

// Clear removes every stored artifact and crop and empties the index.
func (w *Writer) Clear() error {
	for _, dir := range []string{w.root, w.cropDir} {
		if dir == "" {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to remove %s: %w", dir, err)
		}
	}

	if w.captureRepo != nil {
		if err := w.captureRepo.DeleteAll(); err != nil {
			return fmt.Errorf("failed to clear capture index: %w", err)
		}
	}

	w.logger.Info("Cleared artifacts in %s and crops in %s", w.root, w.cropDir)
	return nil
}
