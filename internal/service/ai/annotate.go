package ai

import (
	"fmt"
	"image"

	"intruderwatch/internal/dto"

	"gocv.io/x/gocv"
)

// Annotate returns a copy of frame with every detection boxed and captioned
// in its policy colour.
func (s *DetectorService) Annotate(frame gocv.Mat, detections []dto.Detection) (gocv.Mat, error) {
	return Annotate(frame, detections, s.policy)
}

// Annotate draws detections onto a clone of frame.
func Annotate(frame gocv.Mat, detections []dto.Detection, policy *Policy) (gocv.Mat, error) {
	if frame.Empty() {
		return gocv.NewMat(), fmt.Errorf("annotate: empty frame")
	}

	mat := frame.Clone()
	for _, d := range detections {
		c := policy.Color(d)

		if err := gocv.Rectangle(&mat, d.Box, c, 2); err != nil {
			mat.Close()
			return gocv.NewMat(), fmt.Errorf("failed to draw rectangle: %w", err)
		}

		y := d.Box.Min.Y - 5
		if y < 10 {
			y = d.Box.Min.Y + 15
		}
		if err := gocv.PutText(&mat, d.Caption(), image.Pt(d.Box.Min.X, y), gocv.FontHersheySimplex, 0.5, c, 1); err != nil {
			mat.Close()
			return gocv.NewMat(), fmt.Errorf("failed to draw text: %w", err)
		}
	}
	return mat, nil
}

// EncodeJPEG encodes img and copies the bytes out of the native buffer.
func EncodeJPEG(img gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(".jpg", img)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}
