package captcha

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"math/rand/v2"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/layer-3/barong-iam/ports"
)

const dataURIPrefix = "data:image/png;base64,"

// Default image size in pixels
const (
	DefaultWidth  = 120
	DefaultHeight = 40
)

// PNGRenderer draws captcha codes as noisy PNG images
type PNGRenderer struct {
	width  int
	height int
	lines  int
	dots   int
}

// NewPNGRenderer creates a renderer; non-positive sizes fall back to the defaults
func NewPNGRenderer(width, height int) *PNGRenderer {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return &PNGRenderer{
		width:  width,
		height: height,
		lines:  5,
		dots:   width * height / 20,
	}
}

var _ ports.CaptchaRenderer = (*PNGRenderer)(nil)

// Render returns the code drawn as a base64 PNG data URI
func (r *PNGRenderer) Render(code string) (string, error) {
	if code == "" {
		return "", fmt.Errorf("empty captcha code")
	}

	img := image.NewRGBA(image.Rect(0, 0, r.width, r.height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{245, 245, 245, 255}), image.Point{}, draw.Src)

	r.drawNoiseLines(img)
	r.drawCode(img, code)
	r.drawNoiseDots(img)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode captcha image: %w", err)
	}
	return dataURIPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func (r *PNGRenderer) drawCode(img *image.RGBA, code string) {
	face := basicfont.Face7x13
	cell := r.width / (len(code) + 1)
	glyphH := r.height * 3 / 4
	glyphW := glyphH * face.Advance / face.Height
	if glyphW > cell {
		glyphW = cell
	}

	for i, ch := range []rune(code) {
		glyph := image.NewRGBA(image.Rect(0, 0, face.Advance, face.Height))
		d := &font.Drawer{
			Dst:  glyph,
			Src:  image.NewUniform(randomInk()),
			Face: face,
			Dot:  fixed.P(0, face.Ascent),
		}
		d.DrawString(string(ch))

		x := cell/2 + i*cell + rand.IntN(cell-glyphW+1)
		y := rand.IntN(r.height - glyphH + 1)
		dst := image.Rect(x, y, x+glyphW, y+glyphH)
		draw.CatmullRom.Scale(img, dst, glyph, glyph.Bounds(), draw.Over, nil)
	}
}

func (r *PNGRenderer) drawNoiseLines(img *image.RGBA) {
	for i := 0; i < r.lines; i++ {
		x0, y0 := rand.Float32()*float32(r.width), rand.Float32()*float32(r.height)
		x1, y1 := rand.Float32()*float32(r.width), rand.Float32()*float32(r.height)
		strokeLine(img, x0, y0, x1, y1, 1, randomNoise())
	}
}

func (r *PNGRenderer) drawNoiseDots(img *image.RGBA) {
	for i := 0; i < r.dots; i++ {
		img.Set(rand.IntN(r.width), rand.IntN(r.height), randomNoise())
	}
}

// strokeLine fills the quad of the given width around the segment
func strokeLine(img *image.RGBA, x0, y0, x1, y1, width float32, c color.Color) {
	dx, dy := x1-x0, y1-y0
	length := float32(math.Hypot(float64(dx), float64(dy)))
	if length == 0 {
		return
	}
	nx, ny := -dy/length*width/2, dx/length*width/2

	b := img.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	z.MoveTo(x0+nx, y0+ny)
	z.LineTo(x1+nx, y1+ny)
	z.LineTo(x1-nx, y1-ny)
	z.LineTo(x0-nx, y0-ny)
	z.ClosePath()
	z.Draw(img, b, image.NewUniform(c), image.Point{})
}

func randomInk() color.RGBA {
	return color.RGBA{uint8(rand.IntN(120)), uint8(rand.IntN(120)), uint8(rand.IntN(120)), 255}
}

func randomNoise() color.RGBA {
	return color.RGBA{uint8(100 + rand.IntN(130)), uint8(100 + rand.IntN(130)), uint8(100 + rand.IntN(130)), 255}
}
