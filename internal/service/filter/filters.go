package filter

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ToGray returns a single channel copy of src.
func ToGray(src gocv.Mat) (gocv.Mat, error) {
	if err := checkInput("gray", src); err != nil {
		return gocv.NewMat(), err
	}

	switch src.Channels() {
	case 1:
		return src.Clone(), nil
	case 3, 4:
		code := gocv.ColorBGRToGray
		if src.Channels() == 4 {
			code = gocv.ColorBGRAToGray
		}
		dst := gocv.NewMat()
		if err := gocv.CvtColor(src, &dst, code); err != nil {
			dst.Close()
			return gocv.NewMat(), fmt.Errorf("failed to convert image to grayscale: %w", err)
		}
		return dst, nil
	default:
		return gocv.NewMat(), fmt.Errorf("gray: %d channels: %w", src.Channels(), ErrInvalidInput)
	}
}

// Median smooths noise with a rank filter. ksize must be odd; 1 returns a copy.
func Median(src gocv.Mat, ksize int) (gocv.Mat, error) {
	if err := checkInput("median", src); err != nil {
		return gocv.NewMat(), err
	}
	if ksize < 1 || ksize%2 == 0 {
		return gocv.NewMat(), fmt.Errorf("median: kernel size %d: %w", ksize, ErrInvalidParameter)
	}
	if ksize == 1 {
		return src.Clone(), nil
	}

	dst := gocv.NewMat()
	gocv.MedianBlur(src, &dst, ksize)
	return dst, nil
}

// HighPassLaplacian is the spatial high-pass: the Laplacian response rectified to 8 bits.
func HighPassLaplacian(src gocv.Mat) (gocv.Mat, error) {
	if err := checkInput("laplacian", src); err != nil {
		return gocv.NewMat(), err
	}

	lap := gocv.NewMat()
	defer lap.Close()
	gocv.Laplacian(src, &lap, gocv.MatTypeCV64F, 1, 1, 0, gocv.BorderDefault)

	dst := gocv.NewMat()
	gocv.ConvertScaleAbs(lap, &dst, 1, 0)
	return dst, nil
}

// EqualizeHistogram flattens the intensity histogram. Color input is
// equalized on the luma channel only so hues are preserved.
func EqualizeHistogram(src gocv.Mat) (gocv.Mat, error) {
	if err := checkInput("histogram", src); err != nil {
		return gocv.NewMat(), err
	}

	switch src.Channels() {
	case 1:
		dst := gocv.NewMat()
		gocv.EqualizeHist(src, &dst)
		return dst, nil
	case 3:
		yuv := gocv.NewMat()
		defer yuv.Close()
		if err := gocv.CvtColor(src, &yuv, gocv.ColorBGRToYUV); err != nil {
			return gocv.NewMat(), fmt.Errorf("failed to convert image to YUV: %w", err)
		}

		planes := gocv.Split(yuv)
		defer func() {
			for _, p := range planes {
				p.Close()
			}
		}()

		luma := gocv.NewMat()
		defer luma.Close()
		gocv.EqualizeHist(planes[0], &luma)
		luma.CopyTo(&planes[0])
		gocv.Merge(planes, &yuv)

		dst := gocv.NewMat()
		if err := gocv.CvtColor(yuv, &dst, gocv.ColorYUVToBGR); err != nil {
			dst.Close()
			return gocv.NewMat(), fmt.Errorf("failed to convert image to BGR: %w", err)
		}
		return dst, nil
	default:
		return gocv.NewMat(), fmt.Errorf("histogram: %d channels: %w", src.Channels(), ErrInvalidInput)
	}
}

// Canny detects edges with fixed hysteresis thresholds. The result is a binary {0,255} map.
func Canny(src gocv.Mat, low, high float64) (gocv.Mat, error) {
	if err := checkInput("canny", src); err != nil {
		return gocv.NewMat(), err
	}
	if low < 0 || high < low {
		return gocv.NewMat(), fmt.Errorf("canny: thresholds %v/%v: %w", low, high, ErrInvalidParameter)
	}

	dst := gocv.NewMat()
	gocv.Canny(src, &dst, float32(low), float32(high))
	return dst, nil
}

// OtsuThreshold returns the global Otsu threshold of src after a 3x3 Gaussian blur.
func OtsuThreshold(src gocv.Mat) (float64, error) {
	if err := checkInput("otsu", src); err != nil {
		return 0, err
	}

	blur := gocv.NewMat()
	defer blur.Close()
	gocv.GaussianBlur(src, &blur, image.Pt(3, 3), 0, 0, gocv.BorderDefault)

	binary := gocv.NewMat()
	defer binary.Close()
	t := gocv.Threshold(blur, &binary, 0, 255, gocv.ThresholdBinary+gocv.ThresholdOtsu)
	return float64(t), nil
}

// CannyAuto derives the hysteresis thresholds as 0.5x and 1.5x the Otsu threshold.
func CannyAuto(src gocv.Mat) (gocv.Mat, error) {
	t, err := OtsuThreshold(src)
	if err != nil {
		return gocv.NewMat(), err
	}
	return Canny(src, 0.5*t, 1.5*t)
}

// Sobel returns the gradient magnitude of the 3x3 horizontal and vertical derivatives.
func Sobel(src gocv.Mat) (gocv.Mat, error) {
	if err := checkInput("sobel", src); err != nil {
		return gocv.NewMat(), err
	}

	dx := gocv.NewMat()
	defer dx.Close()
	dy := gocv.NewMat()
	defer dy.Close()
	gocv.Sobel(src, &dx, gocv.MatTypeCV64F, 1, 0, 3, 1, 0, gocv.BorderDefault)
	gocv.Sobel(src, &dy, gocv.MatTypeCV64F, 0, 1, 3, 1, 0, gocv.BorderDefault)

	mag := gocv.NewMat()
	defer mag.Close()
	gocv.Magnitude(dx, dy, &mag)

	dst := gocv.NewMat()
	gocv.ConvertScaleAbs(mag, &dst, 1, 0)
	return dst, nil
}

// UnsharpMask sharpens src as (1+strength)*src - strength*blur(src).
// ksize 0 lets the kernel size follow from sigma.
func UnsharpMask(src gocv.Mat, sigma float64, ksize int, strength float64) (gocv.Mat, error) {
	if err := checkInput("unsharp", src); err != nil {
		return gocv.NewMat(), err
	}
	if ksize < 0 || (ksize > 0 && ksize%2 == 0) {
		return gocv.NewMat(), fmt.Errorf("unsharp: kernel size %d: %w", ksize, ErrInvalidParameter)
	}
	if ksize == 0 && sigma <= 0 {
		return gocv.NewMat(), fmt.Errorf("unsharp: sigma %v with derived kernel: %w", sigma, ErrInvalidParameter)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(src, &blurred, image.Pt(ksize, ksize), sigma, sigma, gocv.BorderDefault)

	dst := gocv.NewMat()
	gocv.AddWeighted(src, 1+strength, blurred, -strength, 0, &dst)
	return dst, nil
}
