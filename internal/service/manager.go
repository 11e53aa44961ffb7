package service

import (
	"sync/atomic"

	"intruderwatch/internal/dto"
	"intruderwatch/internal/logger"
	"intruderwatch/internal/model"
	"intruderwatch/internal/service/ai"
	"intruderwatch/internal/service/camera"
	"intruderwatch/internal/service/filter"

	"gocv.io/x/gocv"
)

// Classifier detects subjects in a frame and draws them.
type Classifier interface {
	Detect(frame gocv.Mat) ([]dto.Detection, error)
	Annotate(frame gocv.Mat, detections []dto.Detection) (gocv.Mat, error)
	Policy() *ai.Policy
}

// FilterBank produces every filtered variant of a frame.
type FilterBank interface {
	Run(frame gocv.Mat) ([]filter.Output, error)
}

// ArtifactWriter persists filter outputs and detection crops.
type ArtifactWriter interface {
	SaveAll(outputs []filter.Output, source string, detections []dto.Detection) (*model.Capture, error)
	SaveCrops(frame gocv.Mat, detections []dto.Detection) ([]string, error)
}

// Publisher receives every annotated frame as JPEG.
type Publisher interface {
	Publish(jpeg []byte, detections []dto.Detection)
}

// Stats counts what the manager has processed so far.
type Stats struct {
	Frames   int64 `json:"frames"`
	Flagged  int64 `json:"flagged"`
	Captures int64 `json:"captures"`
	Failures int64 `json:"failures"`
}

// Manager runs the per-frame loop: detect, annotate, filter and persist
// flagged frames, then publish the annotated frame to viewers.
type Manager struct {
	source     camera.Source
	classifier Classifier
	bank       FilterBank
	writer     ArtifactWriter
	publishers []Publisher
	logger     *logger.Logger

	detectorDown bool

	frames   atomic.Int64
	flagged  atomic.Int64
	captures atomic.Int64
	failures atomic.Int64
}

func NewManager(source camera.Source, classifier Classifier, bank FilterBank, writer ArtifactWriter,
	logger *logger.Logger, publishers ...Publisher) *Manager {
	return &Manager{
		source:     source,
		classifier: classifier,
		bank:       bank,
		writer:     writer,
		publishers: publishers,
		logger:     logger,
	}
}

// Run reads frames until the source reports no more. Each frame is handled
// to completion before the next one is read.
func (m *Manager) Run() {
	frame := gocv.NewMat()
	defer frame.Close()

	m.logger.Info("Manager started on camera %s", m.source.Name())
	for {
		if ok := m.source.Read(&frame); !ok {
			m.logger.Info("Frame source %s ended after %d frames", m.source.Name(), m.frames.Load())
			return
		}
		m.ProcessFrame(frame)
	}
}

// ProcessFrame handles one frame. Classification failures only skip
// detection; persistence failures only skip persistence.
func (m *Manager) ProcessFrame(frame gocv.Mat) {
	if frame.Empty() {
		m.logger.Warning("Skipping empty frame from %s", m.source.Name())
		return
	}
	m.frames.Add(1)

	detections, err := m.classifier.Detect(frame)
	if err != nil {
		if !m.detectorDown {
			m.logger.Warning("Detection unavailable, streaming unannotated frames: %v", err)
			m.detectorDown = true
		}
		detections = nil
	} else if m.detectorDown {
		m.logger.Info("Detection recovered")
		m.detectorDown = false
	}

	if actionable := m.classifier.Policy().Filter(detections); len(actionable) > 0 {
		m.flagged.Add(1)
		m.persist(frame, detections, actionable)
	}

	m.publish(frame, detections)
}

func (m *Manager) persist(frame gocv.Mat, detections, actionable []dto.Detection) {
	outputs, err := m.bank.Run(frame)
	if err != nil {
		m.failures.Add(1)
		m.logger.Error("Failed to filter flagged frame: %v", err)
		return
	}
	defer filter.CloseAll(outputs)

	capture, err := m.writer.SaveAll(outputs, "", detections)
	if err != nil {
		m.failures.Add(1)
		m.logger.Error("Failed to save flagged frame: %v", err)
		return
	}
	m.captures.Add(1)

	crops, err := m.writer.SaveCrops(frame, actionable)
	if err != nil {
		m.logger.Error("Failed to save detection crops: %v", err)
	}

	for _, d := range actionable {
		m.logger.Info("Flagged %s (%.2f) at %v", d.Label, d.Confidence, d.Box)
	}
	m.logger.Info("Capture %s saved: %d artifacts, %d crops", capture.UUID, len(capture.Artifacts), len(crops))
}

func (m *Manager) publish(frame gocv.Mat, detections []dto.Detection) {
	if len(m.publishers) == 0 {
		return
	}

	annotated, err := m.classifier.Annotate(frame, detections)
	if err != nil {
		m.logger.Error("Failed to annotate frame: %v", err)
		annotated = frame.Clone()
	}
	defer annotated.Close()

	jpeg, err := ai.EncodeJPEG(annotated)
	if err != nil {
		m.logger.Error("Failed to encode frame: %v", err)
		return
	}

	for _, p := range m.publishers {
		p.Publish(jpeg, detections)
	}
}

// Stats returns a snapshot of the processing counters.
func (m *Manager) Stats() Stats {
	return Stats{
		Frames:   m.frames.Load(),
		Flagged:  m.flagged.Load(),
		Captures: m.captures.Load(),
		Failures: m.failures.Load(),
	}
}
