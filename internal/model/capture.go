package model

import "time"

// Capture represents one flagged frame and everything persisted for it.
type Capture struct {
	ID        int64     `json:"id"`
	UUID      string    `json:"uuid"`
	Camera    string    `json:"camera"`
	Timestamp time.Time `json:"timestamp"`

	Artifacts  []Artifact  `json:"artifacts,omitempty"`
	Detections []Detection `json:"detections,omitempty"`
}

// Artifact is a single image file written for a capture.
type Artifact struct {
	ID        int64  `json:"id"`
	CaptureID int64  `json:"capture_id"`
	Category  string `json:"category"`
	Filename  string `json:"filename"`
	FilePath  string `json:"filepath"`
	FileSize  int64  `json:"filesize"`
}

// Detection is a detected subject stored alongside a capture.
type Detection struct {
	ID         int64   `json:"id"`
	CaptureID  int64   `json:"capture_id"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	X1         int     `json:"x1"`
	Y1         int     `json:"y1"`
	X2         int     `json:"x2"`
	Y2         int     `json:"y2"`
}

// CaptureFilter contains filtering options for querying captures.
type CaptureFilter struct {
	Camera    string
	Label     string
	StartDate time.Time
	EndDate   time.Time
	Limit     int
	Offset    int
}

// CaptureStats contains statistics about stored captures.
type CaptureStats struct {
	TotalCaptures  int            `json:"total_captures"`
	TotalSizeBytes int64          `json:"total_size_bytes"`
	PerCategory    map[string]int `json:"per_category"`
	LabelCounts    map[string]int `json:"label_counts"`
}
