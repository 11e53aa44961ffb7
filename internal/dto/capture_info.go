package dto

import (
	"encoding/json"
	"time"
)

// CaptureInfo describes one stored capture for the gallery.
type CaptureInfo struct {
	UUID      string            `json:"uuid"`
	Date      time.Time         `json:"date"`
	TimeOfDay time.Time         `json:"timeOfDay"`
	Camera    string            `json:"camera"`
	Labels    []string          `json:"labels"`
	Artifacts map[string]string `json:"artifacts"` // category -> file path
}

// MarshalJSON customizes JSON output for CaptureInfo to format date and time-of-day.
func (c CaptureInfo) MarshalJSON() ([]byte, error) {
	type Alias CaptureInfo
	return json.Marshal(&struct {
		Date      string `json:"date"`
		TimeOfDay string `json:"timeOfDay"`
		Alias
	}{
		Date:      c.Date.Format("02-01-2006"),
		TimeOfDay: c.TimeOfDay.Format("15:04:05"),
		Alias:     (Alias)(c),
	})
}
