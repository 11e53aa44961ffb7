// Package filter implements the image filter bank applied to flagged frames.
//
// Every filter takes a gocv.Mat and returns a newly allocated gocv.Mat owned
// by the caller; the source Mat is never modified so the same frame can feed
// every filter and the annotated stream.
package filter

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

var (
	// ErrInvalidInput is returned when the source image is empty or could not be loaded.
	ErrInvalidInput = errors.New("invalid input image")
	// ErrInvalidParameter is returned for parameter values the filter cannot honour.
	ErrInvalidParameter = errors.New("invalid filter parameter")
)

// Category identifies a filter output and therefore its artifact directory.
type Category int

const (
	Original Category = iota
	Median
	HighPass
	Histogram
	EdgeDetection
	Sobel
	UnsharpMask
)

type categoryInfo struct {
	name   string
	slug   string
	dir    string
	prefix string
}

var categories = []categoryInfo{
	Original:      {"original", "original", "Original", "original_image"},
	Median:        {"median", "medianfiltered", "Median_Filtered", "median_filtered_image"},
	HighPass:      {"highpass", "highpass", "HPF", "hpf_filtered_image"},
	Histogram:     {"histogram", "histogram", "Histogram_Equalized", "histogram_equalized_image"},
	EdgeDetection: {"edgedetection", "edgedetection", "Edge_Detected", "edge_detected_image"},
	Sobel:         {"sobel", "sobelfiltered", "Sobel_Filtered", "sobel_filtered_image"},
	UnsharpMask:   {"unsharpmask", "unsharpmask", "Unsharp_Masked", "unsharp_masked_image"},
}

// Categories returns every artifact category in write order.
func Categories() []Category {
	return []Category{Original, Median, HighPass, Histogram, EdgeDetection, Sobel, UnsharpMask}
}

func (c Category) info() categoryInfo {
	if c < 0 || int(c) >= len(categories) {
		return categoryInfo{name: fmt.Sprintf("category%d", int(c))}
	}
	return categories[c]
}

func (c Category) String() string { return c.info().name }

// Slug is the name used in the /image/{slug} routes.
func (c Category) Slug() string { return c.info().slug }

// Dir is the artifact subdirectory for the category.
func (c Category) Dir() string { return c.info().dir }

// Prefix is prepended to every artifact file name of the category.
func (c Category) Prefix() string { return c.info().prefix }

// ParseCategory resolves a route slug or category name.
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories() {
		if c.Slug() == s || c.String() == s {
			return c, true
		}
	}
	return 0, false
}

// Shape is the image shape a filter accepts.
type Shape int

const (
	Gray Shape = iota
	Color
)

// Filter describes one stage of the bank.
type Filter struct {
	Category Category
	Name     string
	Input    Shape
	Apply    func(src gocv.Mat) (gocv.Mat, error)
}

// Output is a filtered image tagged with its category. The Mat is owned by the holder.
type Output struct {
	Category Category
	Mat      gocv.Mat
}

// Close releases the output Mat.
func (o *Output) Close() error {
	return o.Mat.Close()
}

// CloseAll releases every output.
func CloseAll(outputs []Output) {
	for i := range outputs {
		outputs[i].Close()
	}
}

func checkInput(name string, src gocv.Mat) error {
	if src.Empty() {
		return fmt.Errorf("%s: %w", name, ErrInvalidInput)
	}
	return nil
}
