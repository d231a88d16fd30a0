package visual

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sync"
)

// FeatureExtractor maps an image to a fixed-length feature vector. Extract
// must be deterministic and safe for concurrent use.
type FeatureExtractor interface {
	Extract(img image.Image) ([]float64, error)
}

// InputSize is the square resolution every image is resampled to before
// feature extraction.
const InputSize = 224

const poolGrid = 4

// channelMeans are the per-channel RGB means subtracted before convolution.
var channelMeans = [3]float64{123.68, 116.779, 103.939}

type kernel [9]float64

var defaultKernels = []kernel{
	{1.0 / 9, 1.0 / 9, 1.0 / 9, 1.0 / 9, 1.0 / 9, 1.0 / 9, 1.0 / 9, 1.0 / 9, 1.0 / 9},
	{-1, 0, 1, -2, 0, 2, -1, 0, 1},
	{-1, -2, -1, 0, 0, 0, 1, 2, 1},
	{0, 1, 0, 1, -4, 1, 0, 1, 0},
	{2, 1, 0, 1, 0, -1, 0, -1, -2},
	{0, 1, 2, -1, 0, 1, -2, -1, 0},
}

// ConvExtractor is a fixed convolutional feature extractor. Each RGB channel
// is convolved with a bank of 3x3 kernels; positive and negative activations
// are average-pooled over a coarse grid, giving a non-negative vector that
// describes layout, color mass and edge orientation.
type ConvExtractor struct {
	kernels []kernel
	size    int
	grid    int
}

// NewConvExtractor returns the default extractor.
func NewConvExtractor() *ConvExtractor {
	return &ConvExtractor{kernels: defaultKernels, size: InputSize, grid: poolGrid}
}

// Dim is the length of every vector produced by Extract.
func (e *ConvExtractor) Dim() int {
	return len(channelMeans) * len(e.kernels) * e.grid * e.grid * 2
}

// Extract implements FeatureExtractor.
func (e *ConvExtractor) Extract(img image.Image) ([]float64, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, errors.New("extract features: empty image")
	}
	rgba := resizeRGBA(img, e.size, e.size)

	planes := make([][]float64, len(channelMeans))
	for c := range planes {
		planes[c] = make([]float64, e.size*e.size)
	}
	for y := 0; y < e.size; y++ {
		for x := 0; x < e.size; x++ {
			i := y*rgba.Stride + x*4
			for c := range planes {
				planes[c][y*e.size+x] = float64(rgba.Pix[i+c]) - channelMeans[c]
			}
		}
	}

	inner := e.size - 2
	cells := e.grid * e.grid
	features := make([]float64, 0, e.Dim())
	pos := make([]float64, cells)
	neg := make([]float64, cells)
	count := make([]float64, cells)

	for _, p := range planes {
		for _, k := range e.kernels {
			for i := range pos {
				pos[i], neg[i], count[i] = 0, 0, 0
			}
			for y := 1; y <= inner; y++ {
				row := (y - 1) * e.grid / inner
				for x := 1; x <= inner; x++ {
					r := convolve(p, e.size, x, y, k)
					cell := row*e.grid + (x-1)*e.grid/inner
					if r > 0 {
						pos[cell] += r
					} else {
						neg[cell] -= r
					}
					count[cell]++
				}
			}
			for i := 0; i < cells; i++ {
				features = append(features, pos[i]/count[i], neg[i]/count[i])
			}
		}
	}
	return features, nil
}

func convolve(p []float64, size, x, y int, k kernel) float64 {
	sum := 0.0
	for dy := -1; dy <= 1; dy++ {
		base := (y+dy)*size + x
		for dx := -1; dx <= 1; dx++ {
			sum += p[base+dx] * k[(dy+1)*3+dx+1]
		}
	}
	return sum
}

// LazyExtractor loads its underlying extractor on first use, exactly once
// per process. A load failure is sticky and reported by every Extract call.
type LazyExtractor struct {
	load func() (FeatureExtractor, error)

	once sync.Once
	ext  FeatureExtractor
	err  error
}

// Lazy wraps a loader in a LazyExtractor.
func Lazy(load func() (FeatureExtractor, error)) *LazyExtractor {
	return &LazyExtractor{load: load}
}

// DefaultExtractor returns a lazily initialized ConvExtractor.
func DefaultExtractor() *LazyExtractor {
	return Lazy(func() (FeatureExtractor, error) {
		return NewConvExtractor(), nil
	})
}

// Extract implements FeatureExtractor.
func (l *LazyExtractor) Extract(img image.Image) ([]float64, error) {
	l.once.Do(func() {
		l.ext, l.err = l.load()
		if l.err == nil && l.ext == nil {
			l.err = errors.New("loader returned no extractor")
		}
	})
	if l.err != nil {
		return nil, fmt.Errorf("load feature extractor: %w", l.err)
	}
	return l.ext.Extract(img)
}

// CosineSimilarity returns the cosine of the angle between a and b. A zero
// vector has no direction and yields 0.
func CosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("cosine similarity: length mismatch %d != %d", len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}
