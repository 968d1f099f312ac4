package detect

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	detectedColor    = color.RGBA{R: 0, G: 200, B: 0, A: 255}
	notDetectedColor = color.RGBA{R: 220, G: 40, B: 40, A: 255}
)

// Annotate renders a review copy of the frame: a bounding box and confidence
// label when the logo was found, a plain "not detected" banner otherwise.
// Presentation only; the match result is never altered.
func Annotate(frame image.Image, res Result) *image.RGBA {
	bounds := frame.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(out, out.Bounds(), frame, bounds.Min, draw.Src)

	if res.Matched && res.Location != nil {
		rect := *res.Location
		drawBorder(out, rect, detectedColor, 3)
		label := fmt.Sprintf("logo %.1f%%", res.Confidence*100)
		labelY := rect.Min.Y - 6
		if labelY < basicfont.Face7x13.Height {
			labelY = rect.Max.Y + basicfont.Face7x13.Height + 2
		}
		drawLabel(out, rect.Min.X, labelY, label, detectedColor)
		return out
	}

	drawLabel(out, 20, 30, fmt.Sprintf("logo not detected (%.1f%%)", res.Confidence*100), notDetectedColor)
	return out
}

func drawBorder(img *image.RGBA, rect image.Rectangle, c color.RGBA, thickness int) {
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return
	}
	for t := 0; t < thickness; t++ {
		top := rect.Min.Y + t
		bottom := rect.Max.Y - 1 - t
		for x := rect.Min.X; x < rect.Max.X; x++ {
			if top < rect.Max.Y {
				img.SetRGBA(x, top, c)
			}
			if bottom >= rect.Min.Y {
				img.SetRGBA(x, bottom, c)
			}
		}
		left := rect.Min.X + t
		right := rect.Max.X - 1 - t
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			if left < rect.Max.X {
				img.SetRGBA(left, y, c)
			}
			if right >= rect.Min.X {
				img.SetRGBA(right, y, c)
			}
		}
	}
}

func drawLabel(img *image.RGBA, x, y int, text string, c color.RGBA) {
	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	drawer.DrawString(text)
}
