package dto

import (
	"fmt"
	"image"
)

// Detection is one object reported by the detector for a single frame.
type Detection struct {
	Label      string          `json:"label"`
	Class      int             `json:"class"`
	Category   string          `json:"category"`
	Confidence float64         `json:"confidence"`
	Box        image.Rectangle `json:"box"`
}

// Caption is the text drawn next to the detection box.
func (d Detection) Caption() string {
	return fmt.Sprintf("%s (%.2f)", d.Label, d.Confidence)
}
