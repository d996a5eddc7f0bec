package images

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sort"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Annotation is a box to draw onto a panorama, with its class and score.
type Annotation struct {
	Box   Rect
	Class int
	Score float32
}

// palette holds the box colors, assigned per distinct class in ascending
// class order.
var palette = []color.RGBA{
	{0, 255, 0, 255},
	{255, 200, 0, 255},
	{0, 0, 255, 255},
	{255, 0, 255, 255},
	{255, 128, 0, 255},
	{255, 165, 0, 255},
	{255, 0, 0, 255},
	{255, 0, 128, 255},
	{0, 255, 128, 255},
	{0, 255, 255, 255},
	{0, 128, 255, 255},
	{128, 0, 255, 255},
	{0, 128, 128, 255},
	{128, 255, 0, 255},
	{128, 0, 128, 255},
}

// Annotate draws every annotation onto a copy of the source image along with
// a class legend in the top-right corner. The source is left untouched.
//
// Arguments:
//   - src: The panorama to annotate.
//   - anns: The merged detections to draw.
//   - name: Resolves a class id to a display name; may be nil.
//
// Returns:
//   - *image.RGBA: The annotated copy.
func Annotate(src image.Image, anns []Annotation, name func(int) string) *image.RGBA {
	out := Clone(src)
	colors := classColors(anns)
	for _, a := range anns {
		c := colors[a.Class]
		DrawRect(out, a.Box, c, 2)
		label := fmt.Sprintf("%s:%.2f", className(name, a.Class), a.Score)
		ty := int(a.Box.Y1) - 4
		if ty < basicfont.Face7x13.Height {
			ty = int(a.Box.Y1) + basicfont.Face7x13.Height
		}
		drawText(out, int(a.Box.X1), ty, label, c)
	}
	drawLegend(out, colors, name)
	return out
}

// Clone copies an image into a zero-origin RGBA canvas.
func Clone(src image.Image) *image.RGBA {
	b := src.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), src, b.Min, draw.Src)
	return out
}

// DrawRect draws a rectangle outline of the given thickness, clipped to the
// image bounds.
func DrawRect(img *image.RGBA, r Rect, c color.RGBA, thickness int) {
	x1, y1 := int(r.X1), int(r.Y1)
	x2, y2 := int(r.X2), int(r.Y2)
	for t := 0; t < thickness; t++ {
		for x := x1; x <= x2; x++ {
			setClipped(img, x, y1+t, c)
			setClipped(img, x, y2-t, c)
		}
		for y := y1; y <= y2; y++ {
			setClipped(img, x1+t, y, c)
			setClipped(img, x2-t, y, c)
		}
	}
}

func classColors(anns []Annotation) map[int]color.RGBA {
	seen := map[int]bool{}
	for _, a := range anns {
		seen[a.Class] = true
	}
	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	colors := make(map[int]color.RGBA, len(ids))
	for i, id := range ids {
		colors[id] = palette[i%len(palette)]
	}
	return colors
}

func className(name func(int) string, class int) string {
	if name != nil {
		if n := name(class); n != "" {
			return n
		}
	}
	return fmt.Sprintf("%d", class)
}

func drawText(img *image.RGBA, x, y int, s string, c color.RGBA) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// drawLegend renders a swatch-and-name block in the top-right corner, one
// row per class present in the annotations.
func drawLegend(img *image.RGBA, colors map[int]color.RGBA, name func(int) string) {
	if len(colors) == 0 {
		return
	}
	ids := make([]int, 0, len(colors))
	for id := range colors {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	const (
		pad    = 8
		swatch = 16
		lineH  = 20
	)
	width := 0
	for _, id := range ids {
		w := 10 + swatch + 8 + font.MeasureString(basicfont.Face7x13, className(name, id)).Ceil()
		if w > width {
			width = w
		}
	}
	width += pad
	height := pad*2 + lineH*len(ids)

	bounds := img.Bounds()
	x0 := bounds.Dx() - width - pad
	if x0 < 0 {
		x0 = 0
	}
	y0 := pad

	bg := image.Rect(x0, y0, x0+width, y0+height)
	draw.Draw(img, bg, image.NewUniform(color.RGBA{255, 255, 255, 255}), image.Point{}, draw.Src)

	y := y0 + pad
	for _, id := range ids {
		c := colors[id]
		sw := image.Rect(x0+10, y, x0+10+swatch, y+swatch)
		draw.Draw(img, sw, image.NewUniform(c), image.Point{}, draw.Src)
		drawText(img, x0+10+swatch+8, y+swatch-3, className(name, id), color.RGBA{0, 0, 0, 255})
		y += lineH
	}
}

func setClipped(img *image.RGBA, x, y int, c color.RGBA) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.SetRGBA(x, y, c)
	}
}
