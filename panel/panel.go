// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package panel renders DHT22 results on any periph display.Drawer, such as
// an ssd1306 OLED or a Waveshare e-paper.
package panel

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/GermanBionicSystems/dht22/comfort"
	"github.com/GermanBionicSystems/dht22/dht22"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"periph.io/x/conn/v3/display"
)

// Displays shorter than this use the fixed 7x13 face.
const minTrueTypeHeight = 32

var (
	regularOnce sync.Once
	regular     *truetype.Font
	regularErr  error
)

// Lines returns the text shown for a result, top to bottom.
func Lines(r dht22.Result, m comfort.Metrics) []string {
	if !r.Ok() {
		return []string{"no data"}
	}
	c := comfort.FromTemperature(r.Reading.Temperature)
	first := fmt.Sprintf("%s %.1f%%", c, r.Reading.Percent())
	if r.Status == dht22.Stale {
		first += " (cached)"
	}
	return []string{
		first,
		"feels " + m.HeatIndex.String(),
		"dew " + m.DewPoint.Fahrenheit().String(),
	}
}

// Render draws the result over the whole display.
func Render(d display.Drawer, r dht22.Result, m comfort.Metrics) error {
	b := d.Bounds()
	if b.Empty() {
		return fmt.Errorf("panel: %s has no drawable area", d)
	}
	lines := Lines(r, m)
	face, err := faceFor(b.Dy(), len(lines))
	if err != nil {
		return err
	}
	dc := gg.NewContext(b.Dx(), b.Dy())
	dc.SetColor(color.White)
	dc.Clear()
	dc.SetColor(color.Black)
	dc.SetFontFace(face)
	lh := float64(b.Dy()) / float64(len(lines))
	for i, l := range lines {
		dc.DrawStringAnchored(l, 1, lh*(float64(i)+0.5), 0, 0.5)
	}
	return d.Draw(b, dc.Image(), image.Point{})
}

func faceFor(height, lines int) (font.Face, error) {
	if height < minTrueTypeHeight {
		return basicfont.Face7x13, nil
	}
	regularOnce.Do(func() {
		regular, regularErr = truetype.Parse(goregular.TTF)
	})
	if regularErr != nil {
		return nil, fmt.Errorf("panel: %w", regularErr)
	}
	// Leave a quarter of each line for spacing.
	size := 0.75 * float64(height) / float64(lines)
	return truetype.NewFace(regular, &truetype.Options{Size: size, DPI: 72}), nil
}
