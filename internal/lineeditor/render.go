package lineeditor

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"trafficwatch-cli/pkg/models"
)

var (
	fallbackFill = color.RGBA{R: 0x11, G: 0x18, B: 0x27, A: 0xff}
	pointFill    = color.RGBA{R: 0xfd, G: 0xe0, B: 0x47, A: 0xff}
	lineStroke   = color.RGBA{R: 0xef, G: 0x44, B: 0x44, A: 0xff}
	white        = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	black        = color.RGBA{A: 0xff}
)

const caption = "Click 2 points to set counting line (P1 then P2)."

// RenderPreview draws the editor state at the logical canvas resolution:
// the background frame (scaled) or a solid fallback fill, an
// instructional caption, each designated endpoint as a labelled circle,
// and the connecting line once both endpoints exist.
func (e *Editor) RenderPreview(background image.Image) *image.RGBA {
	canvas := image.NewRGBA(image.Rect(0, 0, e.CanvasW, e.CanvasH))

	if background != nil {
		xdraw.ApproxBiLinear.Scale(canvas, canvas.Bounds(), background, background.Bounds(), xdraw.Src, nil)
	} else {
		draw.Draw(canvas, canvas.Bounds(), image.NewUniform(fallbackFill), image.Point{}, draw.Src)
	}

	drawLabel(canvas, 16, 28, caption)

	if e.p1 != nil {
		drawEndpoint(canvas, *e.p1, "P1")
	}
	if e.p2 != nil {
		drawEndpoint(canvas, *e.p2, "P2")
	}
	if e.p1 != nil && e.p2 != nil {
		drawSegment(canvas, e.p1.X, e.p1.Y, e.p2.X, e.p2.Y, 2, lineStroke)
	}

	return canvas
}

func drawEndpoint(dst *image.RGBA, pt models.Point, label string) {
	// filled circle with an outlined border
	fillCircle(dst, pt.X, pt.Y, 8, black)
	fillCircle(dst, pt.X, pt.Y, 6, pointFill)

	drawLabel(dst, pt.X+10, pt.Y-10, fmt.Sprintf("%s (%d, %d)", label, pt.X, pt.Y))
}

func drawLabel(dst *image.RGBA, x, y int, text string) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(white),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func fillCircle(dst *image.RGBA, cx, cy, r int, c color.Color) {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				dst.Set(cx+dx, cy+dy, c)
			}
		}
	}
}

// drawSegment draws a straight line with the given brush radius.
func drawSegment(dst *image.RGBA, x0, y0, x1, y1, radius int, c color.Color) {
	steps := int(math.Hypot(float64(x1-x0), float64(y1-y0)))
	if steps == 0 {
		fillCircle(dst, x0, y0, radius, c)
		return
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		x := int(math.Round(float64(x0) + t*float64(x1-x0)))
		y := int(math.Round(float64(y0) + t*float64(y1-y0)))
		fillCircle(dst, x, y, radius, c)
	}
}
