package visual

import (
	"errors"
	"fmt"
	"image"
)

const (
	ssimWindow    = 7
	ssimK1        = 0.01
	ssimK2        = 0.03
	ssimDataRange = 255.0
)

// StructuralSimilarity computes the mean windowed SSIM between the luminance
// of candidate and reference. The reference is resampled to the candidate's
// dimensions, never the reverse. Negative indices are clamped to 0.
func StructuralSimilarity(candidate, reference image.Image) (float64, error) {
	if candidate == nil || reference == nil {
		return 0, errors.New("structural similarity: missing image")
	}
	cb := candidate.Bounds()
	if cb.Dx() < ssimWindow || cb.Dy() < ssimWindow {
		return 0, fmt.Errorf("structural similarity: %dx%d image is smaller than the %dx%d window",
			cb.Dx(), cb.Dy(), ssimWindow, ssimWindow)
	}
	if reference.Bounds().Empty() {
		return 0, errors.New("structural similarity: empty reference")
	}

	x := toGray(candidate)
	y := toGray(reference)
	if y.Rect.Size() != x.Rect.Size() {
		y = scaleGray(y, cb.Dx(), cb.Dy())
	}

	s := meanSSIM(x, y)
	if s < 0 {
		return 0, nil
	}
	return s, nil
}

// summedArea is an integral image over a w x h plane.
type summedArea struct {
	stride int
	sum    []float64
}

func newSummedArea(w, h int, value func(i int) float64) summedArea {
	stride := w + 1
	sum := make([]float64, stride*(h+1))
	for row := 0; row < h; row++ {
		acc := 0.0
		for col := 0; col < w; col++ {
			acc += value(row*w + col)
			sum[(row+1)*stride+col+1] = sum[row*stride+col+1] + acc
		}
	}
	return summedArea{stride: stride, sum: sum}
}

// window sums the n x n block whose top-left corner is (x0, y0).
func (s summedArea) window(x0, y0, n int) float64 {
	x1, y1 := x0+n, y0+n
	return s.sum[y1*s.stride+x1] - s.sum[y0*s.stride+x1] - s.sum[y1*s.stride+x0] + s.sum[y0*s.stride+x0]
}

// meanSSIM averages the SSIM map over every window lying fully inside the
// image, using sample covariance over a uniform window.
func meanSSIM(x, y *image.Gray) float64 {
	w, h := x.Rect.Dx(), x.Rect.Dy()
	px := func(i int) float64 { return float64(x.Pix[(i/w)*x.Stride+i%w]) }
	py := func(i int) float64 { return float64(y.Pix[(i/w)*y.Stride+i%w]) }

	sx := newSummedArea(w, h, px)
	sy := newSummedArea(w, h, py)
	sxx := newSummedArea(w, h, func(i int) float64 { v := px(i); return v * v })
	syy := newSummedArea(w, h, func(i int) float64 { v := py(i); return v * v })
	sxy := newSummedArea(w, h, func(i int) float64 { return px(i) * py(i) })

	n := float64(ssimWindow * ssimWindow)
	covNorm := n / (n - 1)
	c1 := (ssimK1 * ssimDataRange) * (ssimK1 * ssimDataRange)
	c2 := (ssimK2 * ssimDataRange) * (ssimK2 * ssimDataRange)

	total := 0.0
	count := 0
	for y0 := 0; y0+ssimWindow <= h; y0++ {
		for x0 := 0; x0+ssimWindow <= w; x0++ {
			mx := sx.window(x0, y0, ssimWindow) / n
			my := sy.window(x0, y0, ssimWindow) / n
			vx := covNorm * (sxx.window(x0, y0, ssimWindow)/n - mx*mx)
			vy := covNorm * (syy.window(x0, y0, ssimWindow)/n - my*my)
			vxy := covNorm * (sxy.window(x0, y0, ssimWindow)/n - mx*my)

			num := (2*mx*my + c1) * (2*vxy + c2)
			den := (mx*mx + my*my + c1) * (vx + vy + c2)
			total += num / den
			count++
		}
	}
	return total / float64(count)
}
