package filter

import (
	"fmt"
	"math"
	"math/cmplx"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/dsp/fourier"
)

// MaxRadius is the largest distance from the zero-frequency component in a
// centred rows x cols spectrum.
func MaxRadius(rows, cols int) float64 {
	return math.Hypot(float64(rows/2), float64(cols/2))
}

// HighPassIdeal applies an ideal high-pass filter in the frequency domain.
// Coefficients closer than cutoff to the zero-frequency component are zeroed,
// the spectrum is inverse transformed and its magnitude saturated to 8 bits.
// A cutoff of 0 removes nothing.
func HighPassIdeal(src gocv.Mat, cutoff float64) (gocv.Mat, error) {
	if err := checkInput("highpass", src); err != nil {
		return gocv.NewMat(), err
	}
	if cutoff < 0 {
		return gocv.NewMat(), fmt.Errorf("highpass: cutoff %v: %w", cutoff, ErrInvalidParameter)
	}

	gray, err := ToGray(src)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer gray.Close()

	rows, cols := gray.Rows(), gray.Cols()
	pixels := gray.ToBytes()
	if len(pixels) != rows*cols {
		return gocv.NewMat(), fmt.Errorf("highpass: expected %d bytes of 8-bit data, got %d: %w",
			rows*cols, len(pixels), ErrInvalidInput)
	}

	spectrum := make([]complex128, rows*cols)
	for i, p := range pixels {
		spectrum[i] = complex(float64(p), 0)
	}

	fft2(spectrum, rows, cols, false)

	for r := 0; r < rows; r++ {
		dy := float64((r+rows/2)%rows - rows/2)
		for c := 0; c < cols; c++ {
			dx := float64((c+cols/2)%cols - cols/2)
			if math.Hypot(dy, dx) < cutoff {
				spectrum[r*cols+c] = 0
			}
		}
	}

	fft2(spectrum, rows, cols, true)

	scale := 1 / float64(rows*cols)
	out := make([]byte, rows*cols)
	for i, v := range spectrum {
		out[i] = saturate(cmplx.Abs(v) * scale)
	}

	tmp, err := gocv.NewMatFromBytes(rows, cols, gocv.MatTypeCV8U, out)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to build high-pass result: %w", err)
	}
	defer tmp.Close()
	return tmp.Clone(), nil
}

// fft2 transforms a row-major rows x cols grid in place. The inverse is unnormalized.
func fft2(data []complex128, rows, cols int, inverse bool) {
	rowFFT := fourier.NewCmplxFFT(cols)
	for r := 0; r < rows; r++ {
		line := data[r*cols : (r+1)*cols]
		if inverse {
			rowFFT.Sequence(line, line)
		} else {
			rowFFT.Coefficients(line, line)
		}
	}

	colFFT := fourier.NewCmplxFFT(rows)
	column := make([]complex128, rows)
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			column[r] = data[r*cols+c]
		}
		if inverse {
			colFFT.Sequence(column, column)
		} else {
			colFFT.Coefficients(column, column)
		}
		for r := 0; r < rows; r++ {
			data[r*cols+c] = column[r]
		}
	}
}

func saturate(v float64) uint8 {
	v = math.Round(v)
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}
