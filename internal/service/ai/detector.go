package ai

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"strings"
	"sync"

	"intruderwatch/internal/config"
	"intruderwatch/internal/dto"
	"intruderwatch/internal/logger"

	"gocv.io/x/gocv"
)

// InputSize is the square network input of the exported YOLOv8 model.
const InputSize = 640

// ErrNotLoaded is returned by Detect before Open succeeded.
var ErrNotLoaded = errors.New("detection network not initialized")

// DetectorService runs a YOLOv8 ONNX model through the OpenCV DNN module.
type DetectorService struct {
	net        gocv.Net
	loaded     bool
	labels     []string
	policy     *Policy
	modelPath  string
	labelsPath string
	confidence float64
	nms        float64
	mu         sync.Mutex
	logger     *logger.Logger
}

// NewDetectorService creates a detector. The network is loaded by Open.
func NewDetectorService(cfg *config.Config, logger *logger.Logger, policy *Policy) *DetectorService {
	return &DetectorService{
		policy:     policy,
		modelPath:  cfg.ModelPath,
		labelsPath: cfg.LabelsPath,
		confidence: cfg.ModelConfidence,
		nms:        cfg.NMSThreshold,
		logger:     logger,
	}
}

// Open loads the labels and the network and sets backend/target preferences.
func (s *DetectorService) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return nil
	}

	if _, err := os.Stat(s.modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", s.modelPath)
	}

	labels, err := LoadLabels(s.labelsPath)
	if err != nil {
		return fmt.Errorf("failed to load labels: %w", err)
	}

	net := gocv.ReadNetFromONNX(s.modelPath)
	if net.Empty() {
		return fmt.Errorf("failed to load network %s", s.modelPath)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return fmt.Errorf("failed to set preferable backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return fmt.Errorf("failed to set preferable target: %w", err)
	}

	s.net = net
	s.labels = labels
	s.loaded = true
	s.logger.Info("Detection network initialized with %d labels", len(labels))
	return nil
}

// Close releases the network.
func (s *DetectorService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return nil
	}
	s.loaded = false
	return s.net.Close()
}

// Policy returns the category policy used for annotation and triggering.
func (s *DetectorService) Policy() *Policy {
	return s.policy
}

// Detect runs the model on a BGR frame and returns boxes in frame coordinates.
func (s *DetectorService) Detect(frame gocv.Mat) ([]dto.Detection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return nil, ErrNotLoaded
	}
	if frame.Empty() {
		return nil, fmt.Errorf("detect: empty frame")
	}

	blob := gocv.BlobFromImage(frame, 1.0/255.0, image.Pt(InputSize, InputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	s.net.SetInput(blob, "")

	output := s.net.Forward("")
	defer output.Close()

	// [1, 4+classes, boxes]
	dims := output.Size()
	if len(dims) != 3 || dims[1] <= 4 {
		return nil, fmt.Errorf("unexpected output shape %v", dims)
	}

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read network output: %w", err)
	}

	scaleX := float64(frame.Cols()) / InputSize
	scaleY := float64(frame.Rows()) / InputSize
	candidates := s.parse(data, dims[1]-4, dims[2], scaleX, scaleY, image.Rect(0, 0, frame.Cols(), frame.Rows()))

	return NMS(candidates, s.nms), nil
}

// parse decodes a channel-major YOLOv8 head. Each box i has cx, cy, w, h at
// data[k*boxes+i] for k < 4 followed by one score per class.
func (s *DetectorService) parse(data []float32, classes, boxes int, scaleX, scaleY float64, bounds image.Rectangle) []dto.Detection {
	var out []dto.Detection
	for i := 0; i < boxes; i++ {
		best, score := -1, float32(0)
		for c := 0; c < classes; c++ {
			if v := data[(4+c)*boxes+i]; v > score {
				best, score = c, v
			}
		}
		if best < 0 || float64(score) < s.confidence {
			continue
		}

		cx := float64(data[i]) * scaleX
		cy := float64(data[boxes+i]) * scaleY
		w := float64(data[2*boxes+i]) * scaleX
		h := float64(data[3*boxes+i]) * scaleY

		box := image.Rect(
			int(math.Round(cx-w/2)), int(math.Round(cy-h/2)),
			int(math.Round(cx+w/2)), int(math.Round(cy+h/2)),
		).Intersect(bounds)
		if box.Empty() {
			continue
		}

		label := s.label(best)
		out = append(out, dto.Detection{
			Label:      label,
			Class:      best,
			Category:   s.policy.Classify(label).String(),
			Confidence: float64(score),
			Box:        box,
		})
	}
	return out
}

func (s *DetectorService) label(class int) string {
	if class >= 0 && class < len(s.labels) && s.labels[class] != "" {
		return s.labels[class]
	}
	return fmt.Sprintf("unknown_%d", class)
}

// LoadLabels reads one label per line. Blank lines keep their class index.
func LoadLabels(file string) ([]string, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	defer f.Close()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		labels = append(labels, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	return labels, nil
}
