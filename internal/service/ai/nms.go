package ai

import (
	"image"
	"sort"

	"intruderwatch/internal/dto"
)

// IoU returns the intersection over union of two boxes.
func IoU(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	ia := area(inter)
	union := area(a) + area(b) - ia
	if union <= 0 {
		return 0
	}
	return ia / union
}

func area(r image.Rectangle) float64 {
	return float64(r.Dx()) * float64(r.Dy())
}

// NMS performs greedy per-class non-maximum suppression. Boxes are visited by
// descending confidence and any later box of the same class overlapping a
// kept one by more than threshold is dropped.
func NMS(detections []dto.Detection, threshold float64) []dto.Detection {
	order := make([]int, len(detections))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return detections[order[i]].Confidence > detections[order[j]].Confidence
	})

	suppressed := make([]bool, len(detections))
	var kept []dto.Detection
	for i, n := range order {
		if suppressed[n] {
			continue
		}
		kept = append(kept, detections[n])

		for _, m := range order[i+1:] {
			if suppressed[m] || detections[m].Class != detections[n].Class {
				continue
			}
			if IoU(detections[n].Box, detections[m].Box) > threshold {
				suppressed[m] = true
			}
		}
	}
	return kept
}
