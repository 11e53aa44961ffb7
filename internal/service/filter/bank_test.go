package filter

import (
	"errors"
	"testing"

	"intruderwatch/internal/config"

	"github.com/google/go-cmp/cmp"
	"gocv.io/x/gocv"
)

func TestNewBank_DefaultSelection(t *testing.T) {
	bank, err := NewBank(DefaultParams())
	if err != nil {
		t.Fatalf("NewBank failed: %v", err)
	}

	var got []string
	for _, f := range bank.Filters() {
		got = append(got, f.Name)
	}
	want := []string{
		"median",
		"ideal high-pass",
		"histogram equalization",
		"canny (otsu thresholds)",
		"sobel",
		"unsharp mask",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Filter selection mismatch (-want +got):\n%s", diff)
	}
}

func TestNewBank_AlternateModes(t *testing.T) {
	p := DefaultParams()
	p.HighPassMode = HighPassSpatial
	p.EdgeMode = EdgeFixed

	bank, err := NewBank(p)
	if err != nil {
		t.Fatalf("NewBank failed: %v", err)
	}

	names := map[Category]string{}
	for _, f := range bank.Filters() {
		names[f.Category] = f.Name
	}
	if names[HighPass] != "laplacian high-pass" {
		t.Errorf("Expected laplacian high-pass, got %q", names[HighPass])
	}
	if names[EdgeDetection] != "canny" {
		t.Errorf("Expected fixed canny, got %q", names[EdgeDetection])
	}
}

func TestNewBank_UnknownMode(t *testing.T) {
	p := DefaultParams()
	p.HighPassMode = "butterworth"

	if _, err := NewBank(p); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("Expected ErrInvalidParameter, got %v", err)
	}

	p = DefaultParams()
	p.EdgeMode = "scharr"
	if _, err := NewBank(p); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("Expected ErrInvalidParameter, got %v", err)
	}
}

func TestBank_RunProducesEveryCategory(t *testing.T) {
	bank, err := NewBank(DefaultParams())
	if err != nil {
		t.Fatalf("NewBank failed: %v", err)
	}

	frame := newBGR(t, 48, 64, func(r, c int) (uint8, uint8, uint8) {
		return uint8(r * 5), uint8(c * 4), uint8((r + c) * 2)
	})
	defer frame.Close()

	outputs, err := bank.Run(frame)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	defer CloseAll(outputs)

	var got []Category
	for _, o := range outputs {
		got = append(got, o.Category)
		if o.Mat.Rows() != 48 || o.Mat.Cols() != 64 {
			t.Errorf("%v: output %dx%d, expected 48x64", o.Category, o.Mat.Rows(), o.Mat.Cols())
		}

		wantChannels := 1
		switch o.Category {
		case Original, Histogram, UnsharpMask:
			wantChannels = 3
		}
		if o.Mat.Channels() != wantChannels {
			t.Errorf("%v: expected %d channels, got %d", o.Category, wantChannels, o.Mat.Channels())
		}
	}

	if diff := cmp.Diff(Categories(), got); diff != "" {
		t.Errorf("Category order mismatch (-want +got):\n%s", diff)
	}
}

func TestBank_RunEmptyFrame(t *testing.T) {
	bank, err := NewBank(DefaultParams())
	if err != nil {
		t.Fatalf("NewBank failed: %v", err)
	}

	empty := gocv.NewMat()
	defer empty.Close()

	outputs, err := bank.Run(empty)
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
	if outputs != nil {
		t.Errorf("Expected no outputs, got %d", len(outputs))
	}
}

func TestBank_RunStopsOnFilterError(t *testing.T) {
	p := DefaultParams()
	p.MedianKernel = 4

	bank, err := NewBank(p)
	if err != nil {
		t.Fatalf("NewBank failed: %v", err)
	}

	frame := newBGR(t, 16, 16, func(r, c int) (uint8, uint8, uint8) { return 10, 20, 30 })
	defer frame.Close()

	if _, err := bank.Run(frame); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("Expected ErrInvalidParameter from the median stage, got %v", err)
	}
}

func TestParamsFromConfig(t *testing.T) {
	cfg := &config.Config{
		MedianKernel:    3,
		HighPassMode:    HighPassSpatial,
		HighPassCutoff:  20,
		EdgeMode:        EdgeFixed,
		CannyLow:        50,
		CannyHigh:       150,
		UnsharpSigma:    2,
		UnsharpKernel:   9,
		UnsharpStrength: 1,
	}

	want := Params{
		MedianKernel:    3,
		HighPassMode:    HighPassSpatial,
		HighPassCutoff:  20,
		EdgeMode:        EdgeFixed,
		CannyLow:        50,
		CannyHigh:       150,
		UnsharpSigma:    2,
		UnsharpKernel:   9,
		UnsharpStrength: 1,
	}
	if diff := cmp.Diff(want, ParamsFromConfig(cfg)); diff != "" {
		t.Errorf("Params mismatch (-want +got):\n%s", diff)
	}
}
