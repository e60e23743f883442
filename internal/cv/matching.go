package cv

import (
	"image"
	"math"
)

// MatchResult is the outcome of matching one template against one frame
type MatchResult struct {
	Template   string
	Confidence float64 // [0,1], 1 = perfect correlation
	Position   image.Point
}

// Meets reports whether the result clears a confidence threshold
func (r MatchResult) Meets(threshold float64) bool {
	return r.Confidence >= threshold
}

// ToGray converts any image to single-channel luminance
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, img.At(x, y))
		}
	}
	return gray
}

// MatchTemplate computes normalized cross-correlation of the template over
// every valid alignment within the frame and returns the global maximum
// correlation and its location. Both images are compared as luminance.
//
// O(frame_pixels * template_pixels); acceptable because frames and template
// counts are small and the polling interval is tens of seconds.
func MatchTemplate(frame, template *image.Gray) (float64, image.Point) {
	fb := frame.Bounds()
	tb := template.Bounds()
	tw, th := tb.Dx(), tb.Dy()

	if tw > fb.Dx() || th > fb.Dy() || tw == 0 || th == 0 {
		return 0, image.Point{}
	}

	n := float64(tw * th)

	// Template statistics are alignment-invariant; compute once.
	var sumT, sumTT float64
	for ty := 0; ty < th; ty++ {
		row := template.Pix[ty*template.Stride : ty*template.Stride+tw]
		for _, p := range row {
			v := float64(p)
			sumT += v
			sumTT += v * v
		}
	}
	denT := math.Sqrt(sumTT - sumT*sumT/n)

	best := math.Inf(-1)
	bestLoc := image.Point{}

	maxY := fb.Dy() - th
	maxX := fb.Dx() - tw
	for y := 0; y <= maxY; y++ {
		for x := 0; x <= maxX; x++ {
			var sumF, sumFF, sumFT float64
			for ty := 0; ty < th; ty++ {
				fRow := frame.Pix[(y+ty)*frame.Stride+x : (y+ty)*frame.Stride+x+tw]
				tRow := template.Pix[ty*template.Stride : ty*template.Stride+tw]
				for i := 0; i < tw; i++ {
					f := float64(fRow[i])
					t := float64(tRow[i])
					sumF += f
					sumFF += f * f
					sumFT += f * t
				}
			}

			num := sumFT - sumF*sumT/n
			denF := math.Sqrt(sumFF - sumF*sumF/n)

			var corr float64
			switch {
			case denF == 0 && denT == 0:
				// Both regions flat: identical means count as perfect match
				if math.Abs(sumF/n-sumT/n) < 1e-9 {
					corr = 1
				}
			case denF == 0 || denT == 0:
				corr = 0
			default:
				corr = num / (denF * denT)
			}

			if corr > best {
				best = corr
				bestLoc = image.Point{X: x + fb.Min.X, Y: y + fb.Min.Y}
			}
		}
	}

	// Negative correlation carries no trigger signal; clamp into [0,1]
	if best < 0 {
		best = 0
	}
	if best > 1 {
		best = 1
	}

	return best, bestLoc
}
