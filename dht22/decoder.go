// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dht22

import (
	"periph.io/x/conn/v3/gpio"
)

// The first three transitions are the sensor's response (LOW 80µs, HIGH
// 80µs) and carry no data.
const responseTransitions = 3

type state uint8

const (
	awaitingEdge state = iota // line released, sensor has not answered yet
	countingHigh
	countingLow
	done
	failed
)

func (s state) String() string {
	switch s {
	case awaitingEdge:
		return "AwaitingEdge"
	case countingHigh:
		return "CountingHigh"
	case countingLow:
		return "CountingLow"
	case done:
		return "Done"
	case failed:
		return "Failed"
	default:
		return "unknown"
	}
}

// pulse is the interval that ended at a transition and the level the line
// moved to.
type pulse struct {
	width uint32
	level gpio.Level
}

// decoder turns (timestamp, level) samples into a Frame. It is fed by the
// sampling loop and holds no state across reads.
type decoder struct {
	threshold   uint32
	ceiling     uint32
	transitions int

	st    state
	level gpio.Level
	since uint32
	seen  int
	bits  int
	frame Frame
}

func newDecoder(opts *Opts) *decoder {
	return &decoder{
		threshold:   uint32(opts.BitThreshold.Microseconds()),
		ceiling:     uint32(opts.PulseCeiling.Microseconds()),
		transitions: opts.Transitions,
	}
}

// start arms the decoder at the instant the host released the line.
func (d *decoder) start(now uint32) {
	d.st = awaitingEdge
	d.level = gpio.High
	d.since = now
	d.seen = 0
	d.bits = 0
	d.frame = Frame{}
}

// step consumes one sample and returns the new state.
func (d *decoder) step(now uint32, l gpio.Level) state {
	if d.st == done || d.st == failed {
		return d.st
	}
	width := now - d.since
	if width >= d.ceiling {
		d.st = failed
		return d.st
	}
	if l == d.level {
		return d.st
	}
	d.edge(pulse{width: width, level: l})
	d.level = l
	d.since = now
	switch {
	case d.seen >= d.transitions:
		d.st = done
	case l == gpio.High:
		d.st = countingHigh
	default:
		d.st = countingLow
	}
	return d.st
}

// edge classifies a transition. Past the response, even transitions end the
// HIGH part of a bit and odd ones end the LOW lead-in of the next bit.
func (d *decoder) edge(p pulse) {
	i := d.seen
	d.seen++
	if i < responseTransitions || i%2 != 0 || d.bits >= FrameBits {
		return
	}
	b := &d.frame[d.bits/8]
	*b <<= 1
	if p.width > d.threshold {
		*b |= 1
	}
	d.bits++
}

// result returns the assembled frame once the decoder is done.
func (d *decoder) result() (Frame, error) {
	if d.st != done || d.bits < FrameBits {
		return Frame{}, &FrameIncompleteError{Transitions: d.seen, Bits: d.bits}
	}
	return d.frame, nil
}
