// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dht22

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// Direction is the data direction of the line.
type Direction uint8

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Output {
		return "Output"
	}
	return "Input"
}

// Line is the single digital line shared by the host and the sensor.
type Line interface {
	// SetDirection switches the line between driving and sampling.
	SetDirection(d Direction) error
	// Write drives the line. It is only valid as an Output.
	Write(l gpio.Level) error
	// Read samples the line.
	Read() gpio.Level
}

// Clock provides the timing primitives the protocol needs.
type Clock interface {
	// Sleep blocks for d. Implementations must honour microsecond durations.
	Sleep(d time.Duration)
	// Micros returns a free running microsecond counter. Differences are
	// computed with unsigned arithmetic so wrap-around is harmless.
	Micros() uint32
}

// PinLine returns a Line driving a periph GPIO pin. The sensor needs an
// external or internal pull-up, the input side enables the internal one.
func PinLine(p gpio.PinIO) Line {
	return &pinLine{p: p, level: gpio.High}
}

type pinLine struct {
	p     gpio.PinIO
	level gpio.Level
}

func (l *pinLine) SetDirection(d Direction) error {
	var err error
	if d == Output {
		err = l.p.Out(l.level)
	} else {
		err = l.p.In(gpio.PullUp, gpio.NoEdge)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", l.p, err)
	}
	return nil
}

func (l *pinLine) Write(level gpio.Level) error {
	l.level = level
	if err := l.p.Out(level); err != nil {
		return fmt.Errorf("%s: %w", l.p, err)
	}
	return nil
}

func (l *pinLine) Read() gpio.Level {
	return l.p.Read()
}

func (l *pinLine) String() string {
	return l.p.String()
}

// HostClock returns a Clock backed by the host monotonic clock.
//
// Sleeps shorter than a millisecond spin instead of calling time.Sleep; the
// scheduler cannot wake a goroutine with microsecond accuracy.
func HostClock() Clock {
	return &hostClock{start: time.Now()}
}

type hostClock struct {
	start time.Time
}

func (c *hostClock) Sleep(d time.Duration) {
	if d >= time.Millisecond {
		time.Sleep(d)
		return
	}
	for t := time.Now(); time.Since(t) < d; {
	}
}

func (c *hostClock) Micros() uint32 {
	return uint32(time.Since(c.start) / time.Microsecond)
}
