package filter

import (
	"errors"
	"math"
	"testing"
)

func TestHighPassIdeal_ZeroCutoffIsIdentity(t *testing.T) {
	src := newGray(t, 32, 48, gradient)
	defer src.Close()

	dst, err := HighPassIdeal(src, 0)
	if err != nil {
		t.Fatalf("HighPassIdeal failed: %v", err)
	}
	defer dst.Close()

	if d := maxAbsDiff(t, src, dst); d > 1 {
		t.Errorf("Expected identity with cutoff 0, max diff %d", d)
	}
}

func TestHighPassIdeal_MaxCutoffRemovesEverything(t *testing.T) {
	tests := []struct {
		name string
		fn   func(r, c int) uint8
	}{
		{"flat", flat},
		{"ramp", func(r, c int) uint8 { return uint8(2*c + r) }},
	}

	for _, tt := range tests {
		src := newGray(t, 32, 64, tt.fn)

		dst, err := HighPassIdeal(src, MaxRadius(32, 64))
		if err != nil {
			t.Fatalf("%s: HighPassIdeal failed: %v", tt.name, err)
		}
		if v := maxValue(dst); v > 1 {
			t.Errorf("%s: expected output near zero, max %d", tt.name, v)
		}

		dst.Close()
		src.Close()
	}
}

func TestHighPassIdeal_RemovesMeanOnly(t *testing.T) {
	src := newGray(t, 32, 32, flat)
	defer src.Close()

	// Any positive cutoff drops the DC term, which is all a flat image has.
	dst, err := HighPassIdeal(src, 0.5)
	if err != nil {
		t.Fatalf("HighPassIdeal failed: %v", err)
	}
	defer dst.Close()

	if v := maxValue(dst); v != 0 {
		t.Errorf("Expected a flat image to vanish, max %d", v)
	}
}

func TestHighPassIdeal_KeepsEdges(t *testing.T) {
	src := newGray(t, 48, 64, square)
	defer src.Close()

	dst, err := HighPassIdeal(src, 4)
	if err != nil {
		t.Fatalf("HighPassIdeal failed: %v", err)
	}
	defer dst.Close()

	edge := dst.GetUCharAt(12, 30)
	interior := dst.GetUCharAt(24, 32)
	if edge <= interior {
		t.Errorf("Expected the square border (%d) to respond more than its interior (%d)", edge, interior)
	}
}

func TestHighPassIdeal_NegativeCutoff(t *testing.T) {
	src := newGray(t, 8, 8, flat)
	defer src.Close()

	dst, err := HighPassIdeal(src, -1)
	if !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("Expected ErrInvalidParameter, got %v", err)
	}
	dst.Close()
}

func TestMaxRadius(t *testing.T) {
	if got, want := MaxRadius(32, 64), math.Hypot(16, 32); got != want {
		t.Errorf("MaxRadius(32, 64) = %v, expected %v", got, want)
	}
}

func TestFFT2_RoundTrip(t *testing.T) {
	rows, cols := 6, 10
	data := make([]complex128, rows*cols)
	for i := range data {
		data[i] = complex(float64(i%7), 0)
	}
	orig := append([]complex128(nil), data...)

	fft2(data, rows, cols, false)
	fft2(data, rows, cols, true)

	n := float64(rows * cols)
	for i := range data {
		if math.Abs(real(data[i])/n-real(orig[i])) > 1e-9 || math.Abs(imag(data[i])/n) > 1e-9 {
			t.Fatalf("Round trip mismatch at %d: %v vs %v", i, data[i]/complex(n, 0), orig[i])
		}
	}
}

func TestSaturate(t *testing.T) {
	tests := []struct {
		in   float64
		want uint8
	}{
		{-3, 0},
		{0.4, 0},
		{0.6, 1},
		{254.4, 254},
		{300, 255},
	}
	for _, tt := range tests {
		if got := saturate(tt.in); got != tt.want {
			t.Errorf("saturate(%v) = %d, expected %d", tt.in, got, tt.want)
		}
	}
}
