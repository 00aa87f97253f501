package tui

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/image/draw"
)

const halfBlock = "▀"

// renderHalfBlocks draws img into at most cols x rows terminal cells. Each
// cell shows two vertically stacked pixels: the upper one as the foreground
// of a half block, the lower one as its background. The drawn area keeps
// the given width/height aspect ratio.
func renderHalfBlocks(img image.Image, cols, rows int, aspect float64) string {
	if img == nil || cols <= 0 || rows <= 0 || aspect <= 0 {
		return ""
	}

	w, h := fitPixels(cols, rows*2, aspect)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)

	var b strings.Builder
	for y := 0; y < h; y += 2 {
		if y > 0 {
			b.WriteByte('\n')
		}
		// Runs of identical cells share one styled segment.
		run := 0
		var top, bottom color.RGBA
		for x := 0; x < w; x++ {
			t, bt := dst.RGBAAt(x, y), dst.RGBAAt(x, y+1)
			if run > 0 && (t != top || bt != bottom) {
				b.WriteString(cellStyle(top, bottom).Render(strings.Repeat(halfBlock, run)))
				run = 0
			}
			top, bottom = t, bt
			run++
		}
		b.WriteString(cellStyle(top, bottom).Render(strings.Repeat(halfBlock, run)))
	}
	return b.String()
}

// fitPixels returns the largest size with the given aspect ratio that fits
// maxW x maxH. The height is even so every cell row has two pixels.
func fitPixels(maxW, maxH int, aspect float64) (int, int) {
	w := maxW
	h := int(math.Round(float64(w) / aspect))
	if h > maxH {
		h = maxH
		w = int(math.Round(float64(h) * aspect))
	}
	h -= h % 2
	return max(w, 1), max(h, 2)
}

func cellStyle(top, bottom color.RGBA) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(hexColor(top))).
		Background(lipgloss.Color(hexColor(bottom)))
}

func hexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
