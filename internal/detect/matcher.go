package detect

import (
	"image"
	"math"

	xdraw "golang.org/x/image/draw"

	"logowatch/internal/services"
)

// Options controls template matching behavior.
type Options struct {
	// Threshold is the confidence at or above which a frame counts as a
	// detection. Inclusive; range [0,1].
	Threshold float64
	// MultiScale slides the reference at several sizes between ScaleMin and
	// ScaleMax. The native size (scale 1.0) is always part of the sweep.
	MultiScale bool
	ScaleMin   float64
	ScaleMax   float64
	ScaleSteps int
}

// Result is the outcome of matching one frame against the reference logo.
type Result struct {
	Confidence float64
	Matched    bool
	// Location is the best-scoring window in frame coordinates. Set only
	// when Matched.
	Location *image.Rectangle
	// Scale is the reference scale of the best window. Set only when Matched.
	Scale float64
}

// Matcher holds the preloaded grayscale reference logo. It is safe for
// concurrent use: Match performs no I/O and mutates no matcher state.
type Matcher struct {
	ref  *image.Gray
	opts Options
}

// NewMatcher validates options and prepares the reference for matching.
func NewMatcher(reference image.Image, opts Options) (*Matcher, error) {
	if reference == nil || reference.Bounds().Dx() == 0 || reference.Bounds().Dy() == 0 {
		return nil, services.Wrap(services.ErrInvalidImage, "detect", "new matcher", "reference image is empty", nil)
	}
	if opts.Threshold < 0 || opts.Threshold > 1 {
		return nil, services.Wrap(services.ErrConfiguration, "detect", "new matcher", "threshold must be between 0 and 1", nil)
	}
	if opts.MultiScale {
		if opts.ScaleMin <= 0 || opts.ScaleMax < opts.ScaleMin || opts.ScaleSteps <= 0 {
			return nil, services.Wrap(services.ErrConfiguration, "detect", "new matcher", "invalid scale range", nil)
		}
	}
	return &Matcher{ref: toGray(reference), opts: opts}, nil
}

// Threshold returns the configured detection threshold.
func (m *Matcher) Threshold() float64 {
	return m.opts.Threshold
}

// Match slides the reference over the frame and returns the best normalized
// correlation score. Deterministic for identical inputs: the sweep order is
// fixed and ties keep the earlier window.
func (m *Matcher) Match(frame image.Image) (Result, error) {
	if frame == nil || frame.Bounds().Dx() == 0 || frame.Bounds().Dy() == 0 {
		return Result{}, services.Wrap(services.ErrInvalidImage, "detect", "match", "frame image is empty", nil)
	}

	frameGray := toGray(frame)
	ref := m.ref

	// A logo asset can be larger than a low-resolution frame; shrink it
	// proportionally until it fits before sweeping scales.
	if ref.Bounds().Dx() > frameGray.Bounds().Dx() || ref.Bounds().Dy() > frameGray.Bounds().Dy() {
		factor := math.Min(
			float64(frameGray.Bounds().Dx())/float64(ref.Bounds().Dx()),
			float64(frameGray.Bounds().Dy())/float64(ref.Bounds().Dy()),
		)
		w := int(float64(ref.Bounds().Dx()) * factor)
		h := int(float64(ref.Bounds().Dy()) * factor)
		if w < 1 {
			w = 1
		}
		if h < 1 {
			h = 1
		}
		ref = resizeGray(ref, w, h)
	}

	best := Result{Scale: 1.0}
	found := false
	for _, scale := range m.scales() {
		w := int(math.Round(float64(ref.Bounds().Dx()) * scale))
		h := int(math.Round(float64(ref.Bounds().Dy()) * scale))
		if w < 1 || h < 1 || w > frameGray.Bounds().Dx() || h > frameGray.Bounds().Dy() {
			continue
		}
		tmpl := ref
		if w != ref.Bounds().Dx() || h != ref.Bounds().Dy() {
			tmpl = resizeGray(ref, w, h)
		}
		score, x, y := correlate(frameGray, tmpl)
		if !found || score > best.Confidence {
			found = true
			rect := image.Rect(x, y, x+w, y+h)
			best = Result{Confidence: score, Location: &rect, Scale: scale}
		}
	}
	if !found {
		return Result{}, services.Wrap(services.ErrInvalidImage, "detect", "match", "frame smaller than reference at every scale", nil)
	}

	if best.Confidence < 0 {
		best.Confidence = 0
	}
	if best.Confidence > 1 {
		best.Confidence = 1
	}
	best.Matched = best.Confidence >= m.opts.Threshold
	if !best.Matched {
		best.Location = nil
		best.Scale = 0
	}
	return best, nil
}

func (m *Matcher) scales() []float64 {
	if !m.opts.MultiScale {
		return []float64{1.0}
	}
	steps := m.opts.ScaleSteps
	scales := make([]float64, 0, steps+1)
	if steps == 1 {
		scales = append(scales, m.opts.ScaleMin)
	} else {
		step := (m.opts.ScaleMax - m.opts.ScaleMin) / float64(steps-1)
		for i := 0; i < steps; i++ {
			scales = append(scales, m.opts.ScaleMin+float64(i)*step)
		}
	}
	for _, s := range scales {
		if math.Abs(s-1.0) < 1e-9 {
			return scales
		}
	}
	if 1.0 >= m.opts.ScaleMin && 1.0 <= m.opts.ScaleMax {
		scales = append(scales, 1.0)
	}
	return scales
}

// correlate computes zero-mean normalized cross-correlation of tmpl at every
// placement inside frame and returns the maximum score with its top-left
// position. Windows or templates with zero variance score 0.
func correlate(frame, tmpl *image.Gray) (float64, int, int) {
	fw, fh := frame.Bounds().Dx(), frame.Bounds().Dy()
	tw, th := tmpl.Bounds().Dx(), tmpl.Bounds().Dy()
	n := float64(tw * th)

	// Zero-mean template and its energy, computed once.
	tvals := make([]float64, tw*th)
	var tsum float64
	for y := 0; y < th; y++ {
		row := tmpl.Pix[y*tmpl.Stride : y*tmpl.Stride+tw]
		for x := 0; x < tw; x++ {
			v := float64(row[x])
			tvals[y*tw+x] = v
			tsum += v
		}
	}
	tmean := tsum / n
	var tEnergy float64
	for i := range tvals {
		tvals[i] -= tmean
		tEnergy += tvals[i] * tvals[i]
	}

	const eps = 1e-9
	bestScore := math.Inf(-1)
	bestX, bestY := 0, 0
	for y := 0; y <= fh-th; y++ {
		for x := 0; x <= fw-tw; x++ {
			var sumF, sumF2, dot float64
			for ty := 0; ty < th; ty++ {
				row := frame.Pix[(y+ty)*frame.Stride+x : (y+ty)*frame.Stride+x+tw]
				trow := tvals[ty*tw : ty*tw+tw]
				for tx := 0; tx < tw; tx++ {
					v := float64(row[tx])
					sumF += v
					sumF2 += v * v
					dot += v * trow[tx]
				}
			}
			fEnergy := sumF2 - sumF*sumF/n
			denom := math.Sqrt(fEnergy * tEnergy)
			var score float64
			if denom > eps {
				score = dot / denom
			}
			if score > bestScore {
				bestScore = score
				bestX, bestY = x, y
			}
		}
	}
	if math.IsInf(bestScore, -1) {
		return 0, 0, 0
	}
	return bestScore, bestX, bestY
}

func toGray(img image.Image) *image.Gray {
	if gray, ok := img.(*image.Gray); ok && gray.Bounds().Min == (image.Point{}) {
		return gray
	}
	bounds := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	xdraw.Draw(gray, gray.Bounds(), img, bounds.Min, xdraw.Src)
	return gray
}

func resizeGray(src *image.Gray, w, h int) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}
