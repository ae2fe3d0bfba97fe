package main

import (
	"fmt"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
)

const (
	exportScale   = 2.0 // pixels per graph unit
	exportNoteW   = 180.0
	exportNoteH   = 60.0
	exportPadding = 120.0
)

// exportStagePNG renders one stage of the graph to a PNG, sized to the
// bounding box of its notes rather than the viewport.
func exportStagePNG(g *Graph, stage int64, filename string) error {
	notes := g.VisibleNotes(stage)
	if len(notes) == 0 {
		return fmt.Errorf("nothing to export")
	}

	minX, minY := notes[0].X, notes[0].Y
	maxX, maxY := notes[0].X, notes[0].Y
	for _, n := range notes {
		if n.X < minX {
			minX = n.X
		}
		if n.Y < minY {
			minY = n.Y
		}
		if n.X > maxX {
			maxX = n.X
		}
		if n.Y > maxY {
			maxY = n.Y
		}
	}
	minX -= exportPadding
	minY -= exportPadding
	maxX += exportPadding
	maxY += exportPadding

	imageWidth := int((maxX - minX) * exportScale)
	imageHeight := int((maxY - minY) * exportScale)

	dc := gg.NewContext(imageWidth, imageHeight)
	dc.SetColor(color.White)
	dc.Clear()

	ttfFont, err := truetype.Parse(gomono.TTF)
	if err != nil {
		return fmt.Errorf("failed to parse font: %v", err)
	}
	titleFace := truetype.NewFace(ttfFont, &truetype.Options{
		Size:    16,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	subtitleFace := truetype.NewFace(ttfFont, &truetype.Options{
		Size:    12,
		DPI:     72,
		Hinting: font.HintingFull,
	})

	px := func(n *Note) (float64, float64) {
		return (n.X - minX) * exportScale, (n.Y - minY) * exportScale
	}

	// Links behind notes.
	dc.SetColor(color.Gray{Y: 140})
	dc.SetLineWidth(2)
	for _, k := range g.VisibleLinks(stage) {
		a, okA := g.Note(k.A)
		b, okB := g.Note(k.B)
		if !okA || !okB {
			continue
		}
		ax, ay := px(a)
		bx, by := px(b)
		dc.DrawLine(ax, ay, bx, by)
		dc.Stroke()
	}

	for _, n := range notes {
		cx, cy := px(n)
		x := cx - exportNoteW/2
		y := cy - exportNoteH/2

		dc.SetColor(color.White)
		dc.DrawRoundedRectangle(x, y, exportNoteW, exportNoteH, 8)
		dc.Fill()
		dc.SetColor(color.Black)
		dc.SetLineWidth(2)
		if n.ID == stage {
			dc.SetLineWidth(4)
		}
		dc.DrawRoundedRectangle(x, y, exportNoteW, exportNoteH, 8)
		dc.Stroke()

		dc.SetFontFace(titleFace)
		dc.DrawStringAnchored(truncateTo(firstLine(n.Title), 18), cx, cy-8, 0.5, 0.5)
		if n.Subtitle != "" {
			dc.SetFontFace(subtitleFace)
			dc.SetColor(color.Gray{Y: 90})
			dc.DrawStringAnchored(truncateTo(firstLine(n.Subtitle), 24), cx, cy+14, 0.5, 0.5)
			dc.SetColor(color.Black)
		}
	}

	return dc.SavePNG(filename)
}
