// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package console prints DHT22 results to the terminal (stdout), one line
// per read, led by an ANSI colour block showing whether the reading is fresh,
// cached or missing.
package console

import (
	"bytes"
	"fmt"
	"image/color"
	"io"

	"github.com/GermanBionicSystems/dht22/comfort"
	"github.com/GermanBionicSystems/dht22/dht22"
	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
)

// Opts represents the options available for this printer.
type Opts struct {
	Palette *ansi256.Palette

	_ struct{}
}

// Printer writes results to a console.
type Printer struct {
	w       io.Writer
	palette ansi256.Palette

	buf bytes.Buffer
}

var statusColors = map[dht22.Status]color.NRGBA{
	dht22.Fresh:       {0x00, 0xc0, 0x00, 0xff},
	dht22.Stale:       {0xff, 0xa0, 0x00, 0xff},
	dht22.Unavailable: {0xd0, 0x00, 0x00, 0xff},
}

// New returns a Printer that writes to stdout. The Opts can be nil.
func New(opts *Opts) *Printer {
	return NewWriter(colorable.NewColorableStdout(), opts)
}

// NewWriter returns a Printer that writes to w. The Opts can be nil.
func NewWriter(w io.Writer, opts *Opts) *Printer {
	p := ansi256.Default
	if opts != nil && opts.Palette != nil {
		p = opts.Palette
	}
	return &Printer{w: w, palette: *p}
}

func (p *Printer) String() string {
	return "Console"
}

// Halt resets the terminal colours.
func (p *Printer) Halt() error {
	_, err := p.w.Write([]byte("\033[0m"))
	return err
}

// Print writes one line for r. m is ignored when r has no reading.
func (p *Printer) Print(r dht22.Result, m comfort.Metrics) error {
	// This code is designed to minimize the amount of memory allocated per call.
	p.buf.Reset()
	_, _ = io.WriteString(&p.buf, p.palette.Block(statusColors[r.Status]))
	_, _ = p.buf.WriteString("\033[0m ")
	if !r.Ok() {
		_, _ = p.buf.WriteString("Data not good, skipped\n")
	} else {
		label := "Temperature"
		if r.Status == dht22.Stale {
			label = "Cached Temp"
		}
		c := comfort.FromTemperature(r.Reading.Temperature)
		fmt.Fprintf(&p.buf, "%s: %-3.1f *C  (%-3.1f*F)  Humidity: %-3.1f%%  Feels Like: %-3.1f*F  Dew Point: %-3.1f*F\n",
			label, float64(c), float64(c.Fahrenheit()), r.Reading.Percent(),
			float64(m.HeatIndex), float64(m.DewPoint.Fahrenheit()))
	}
	_, err := p.buf.WriteTo(p.w)
	return err
}

var _ fmt.Stringer = &Printer{}
