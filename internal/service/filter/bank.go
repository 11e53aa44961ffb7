package filter

import (
	"fmt"

	"intruderwatch/internal/config"

	"gocv.io/x/gocv"
)

const (
	HighPassFrequency = "frequency"
	HighPassSpatial   = "spatial"
	EdgeAuto          = "auto"
	EdgeFixed         = "fixed"
)

// Params holds the tunables of every filter in the bank.
type Params struct {
	MedianKernel    int
	HighPassMode    string
	HighPassCutoff  float64
	EdgeMode        string
	CannyLow        float64
	CannyHigh       float64
	UnsharpSigma    float64
	UnsharpKernel   int
	UnsharpStrength float64
}

// DefaultParams returns the documented defaults.
func DefaultParams() Params {
	return Params{
		MedianKernel:    5,
		HighPassMode:    HighPassFrequency,
		HighPassCutoff:  50,
		EdgeMode:        EdgeAuto,
		CannyLow:        100,
		CannyHigh:       200,
		UnsharpSigma:    1.0,
		UnsharpKernel:   0,
		UnsharpStrength: 1.5,
	}
}

// ParamsFromConfig maps the configuration onto filter parameters.
func ParamsFromConfig(cfg *config.Config) Params {
	return Params{
		MedianKernel:    cfg.MedianKernel,
		HighPassMode:    cfg.HighPassMode,
		HighPassCutoff:  cfg.HighPassCutoff,
		EdgeMode:        cfg.EdgeMode,
		CannyLow:        cfg.CannyLow,
		CannyHigh:       cfg.CannyHigh,
		UnsharpSigma:    cfg.UnsharpSigma,
		UnsharpKernel:   cfg.UnsharpKernel,
		UnsharpStrength: cfg.UnsharpStrength,
	}
}

// Bank is the ordered set of filters run on every flagged frame.
type Bank struct {
	filters []Filter
}

// NewBank builds one filter per category from p.
func NewBank(p Params) (*Bank, error) {
	highPass := Filter{Category: HighPass, Input: Gray}
	switch p.HighPassMode {
	case HighPassFrequency, "":
		highPass.Name = "ideal high-pass"
		highPass.Apply = func(src gocv.Mat) (gocv.Mat, error) { return HighPassIdeal(src, p.HighPassCutoff) }
	case HighPassSpatial:
		highPass.Name = "laplacian high-pass"
		highPass.Apply = HighPassLaplacian
	default:
		return nil, fmt.Errorf("unknown high-pass mode %q: %w", p.HighPassMode, ErrInvalidParameter)
	}

	edge := Filter{Category: EdgeDetection, Input: Gray}
	switch p.EdgeMode {
	case EdgeAuto, "":
		edge.Name = "canny (otsu thresholds)"
		edge.Apply = CannyAuto
	case EdgeFixed:
		edge.Name = "canny"
		edge.Apply = func(src gocv.Mat) (gocv.Mat, error) { return Canny(src, p.CannyLow, p.CannyHigh) }
	default:
		return nil, fmt.Errorf("unknown edge mode %q: %w", p.EdgeMode, ErrInvalidParameter)
	}

	filters := []Filter{
		{
			Category: Median,
			Name:     "median",
			Input:    Gray,
			Apply:    func(src gocv.Mat) (gocv.Mat, error) { return Median(src, p.MedianKernel) },
		},
		highPass,
		{
			Category: Histogram,
			Name:     "histogram equalization",
			Input:    Color,
			Apply:    EqualizeHistogram,
		},
		edge,
		{
			Category: Sobel,
			Name:     "sobel",
			Input:    Gray,
			Apply:    Sobel,
		},
		{
			Category: UnsharpMask,
			Name:     "unsharp mask",
			Input:    Color,
			Apply: func(src gocv.Mat) (gocv.Mat, error) {
				return UnsharpMask(src, p.UnsharpSigma, p.UnsharpKernel, p.UnsharpStrength)
			},
		},
	}

	return &Bank{filters: filters}, nil
}

// Filters returns the configured filters in run order.
func (b *Bank) Filters() []Filter {
	return b.filters
}

// Run produces the original frame followed by every filter output.
// On error the outputs already produced are released.
func (b *Bank) Run(frame gocv.Mat) ([]Output, error) {
	if err := checkInput("bank", frame); err != nil {
		return nil, err
	}

	gray, err := ToGray(frame)
	if err != nil {
		return nil, err
	}
	defer gray.Close()

	outputs := make([]Output, 0, len(b.filters)+1)
	outputs = append(outputs, Output{Category: Original, Mat: frame.Clone()})

	for _, f := range b.filters {
		src := gray
		if f.Input == Color {
			src = frame
		}

		dst, err := f.Apply(src)
		if err != nil {
			dst.Close()
			CloseAll(outputs)
			return nil, fmt.Errorf("%s filter failed: %w", f.Name, err)
		}
		outputs = append(outputs, Output{Category: f.Category, Mat: dst})
	}

	return outputs, nil
}
