// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dht22

import (
	"errors"
	"runtime/debug"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
)

// segment is a level held by the sensor for width µs.
type segment struct {
	level gpio.Level
	width uint32
}

// waveform returns what the sensor sends for f, using zero and one as the
// HIGH width of each bit.
func waveform(f []byte, zero, one uint32) []segment {
	w := []segment{{gpio.High, 30}, {gpio.Low, 80}, {gpio.High, 80}}
	for _, b := range f {
		for i := 7; i >= 0; i-- {
			width := zero
			if b&(1<<uint(i)) != 0 {
				width = one
			}
			w = append(w, segment{gpio.Low, 50}, segment{gpio.High, width})
		}
	}
	return append(w, segment{gpio.Low, 50})
}

// fakeSensor is both the Line and the Clock. Each switch to input replays
// the next scripted waveform, then the line idles high.
type fakeSensor struct {
	now     uint32
	origin  uint32
	input   bool
	reads   [][]segment
	current []segment
	ops     []string
	sleeps  []time.Duration
	failOp  string
}

func (s *fakeSensor) Sleep(d time.Duration) {
	if d > time.Microsecond {
		s.sleeps = append(s.sleeps, d)
	}
	s.now += uint32(d / time.Microsecond)
}

func (s *fakeSensor) Micros() uint32 {
	return s.now
}

func (s *fakeSensor) SetDirection(d Direction) error {
	s.ops = append(s.ops, d.String())
	if s.failOp == d.String() {
		return errors.New("line busy")
	}
	s.input = d == Input
	if s.input {
		s.origin = s.now
		s.current = nil
		if len(s.reads) != 0 {
			s.current, s.reads = s.reads[0], s.reads[1:]
		}
	}
	return nil
}

func (s *fakeSensor) Write(l gpio.Level) error {
	s.ops = append(s.ops, l.String())
	if s.failOp == l.String() {
		return errors.New("line busy")
	}
	return nil
}

func (s *fakeSensor) Read() gpio.Level {
	if !s.input {
		return gpio.High
	}
	offset := s.now - s.origin
	for _, seg := range s.current {
		if offset < seg.width {
			return seg.level
		}
		offset -= seg.width
	}
	return gpio.High
}

func (s *fakeSensor) String() string {
	return "fake"
}

func newFake(t *testing.T, opts *Opts, reads ...[]segment) (*Dev, *fakeSensor) {
	s := &fakeSensor{reads: reads}
	d, err := NewLine(s, s, opts)
	if err != nil {
		t.Fatal(err)
	}
	return d, s
}

var (
	frame20C50 = []byte{0x01, 0xf4, 0x00, 0xc8, 0xbd}
	reading20C = Reading{Temperature: physic.ZeroCelsius + 20*physic.Celsius, Humidity: 50 * physic.PercentRH}
)

func TestRead(t *testing.T) {
	corrupt := []byte{0x01, 0xf4, 0x00, 0xc8, 0xbe}
	d, s := newFake(t, nil, waveform(frame20C50, 8, 24), waveform(corrupt, 8, 24))

	r, err := d.Read()
	if err != nil {
		t.Fatal(err)
	}
	if r.Status != Fresh || r.Cause != nil {
		t.Fatalf("expected Fresh, got %s (%v)", r, r.Cause)
	}
	if diff := cmp.Diff(r.Reading, reading20C); diff != "" {
		t.Errorf("Reading difference (-got +want):\n%s", diff)
	}
	if diff := cmp.Diff(s.ops, []string{"Output", "High", "Low", "High", "Input"}); diff != "" {
		t.Errorf("handshake difference (-got +want):\n%s", diff)
	}
	if diff := cmp.Diff(s.sleeps, []time.Duration{10 * time.Millisecond, 18 * time.Millisecond, 40 * time.Microsecond}); diff != "" {
		t.Errorf("handshake timing difference (-got +want):\n%s", diff)
	}

	r, err = d.Read()
	if err != nil {
		t.Fatal(err)
	}
	if r.Status != Stale {
		t.Fatalf("expected Stale, got %s", r)
	}
	if diff := cmp.Diff(r.Reading, reading20C); diff != "" {
		t.Errorf("stale Reading difference (-got +want):\n%s", diff)
	}
	var ce *ChecksumError
	if !errors.As(r.Cause, &ce) || ce.Got != 0xbe || ce.Want != 0xbd {
		t.Errorf("expected checksum cause, got %v", r.Cause)
	}
}

func TestRead_unavailable(t *testing.T) {
	d, _ := newFake(t, nil, waveform([]byte{0x01, 0xf4, 0x00, 0xc8, 0x00}, 8, 24))
	r, err := d.Read()
	if err != nil {
		t.Fatal(err)
	}
	if r.Status != Unavailable || r.Ok() {
		t.Fatalf("expected Unavailable, got %s", r)
	}
	if r.Reading != (Reading{}) {
		t.Errorf("unavailable result carries a reading: %s", r.Reading)
	}
	if _, ok := d.Last(); ok {
		t.Error("cache populated by a bad frame")
	}
}

func TestRead_incomplete(t *testing.T) {
	full := waveform(frame20C50, 8, 24)
	// The sensor goes quiet in the lead-in of the 21st bit.
	short := full[:3+2*20+1]
	d, _ := newFake(t, nil, short, full, short)

	r, err := d.Read()
	if err != nil {
		t.Fatal(err)
	}
	var fe *FrameIncompleteError
	if r.Status != Unavailable || !errors.As(r.Cause, &fe) {
		t.Fatalf("expected Unavailable with incomplete frame, got %s (%v)", r, r.Cause)
	}
	if fe.Bits != 20 {
		t.Errorf("expected 20 bits, got %d", fe.Bits)
	}

	if r, _ := d.Read(); r.Status != Fresh {
		t.Fatalf("expected Fresh, got %s (%v)", r, r.Cause)
	}
	r, _ = d.Read()
	if r.Status != Stale || !errors.As(r.Cause, &fe) {
		t.Fatalf("expected Stale with incomplete frame, got %s (%v)", r, r.Cause)
	}
	if diff := cmp.Diff(r.Reading, reading20C); diff != "" {
		t.Errorf("stale Reading difference (-got +want):\n%s", diff)
	}
}

func TestRead_silent(t *testing.T) {
	d, s := newFake(t, nil)
	start := s.now
	r, err := d.Read()
	if err != nil {
		t.Fatal(err)
	}
	if r.Status != Unavailable {
		t.Fatalf("expected Unavailable, got %s", r)
	}
	// Handshake plus one ceiling.
	if elapsed := s.now - start; elapsed > 28040+255+1 {
		t.Errorf("read of a silent line took %dµs", elapsed)
	}
}

func TestRead_datasheetTiming(t *testing.T) {
	opts := DefaultOpts
	opts.BitThreshold = 48 * time.Microsecond
	f := []byte{0x02, 0x8c, 0x80, 0x65, 0x73}
	d, _ := newFake(t, &opts, waveform(f, 27, 70))
	r, err := d.Read()
	if err != nil {
		t.Fatal(err)
	}
	want := Reading{
		Temperature: physic.ZeroCelsius - 101*(physic.Celsius/10),
		Humidity:    652 * physic.MilliRH,
	}
	if r.Status != Fresh {
		t.Fatalf("expected Fresh, got %s (%v)", r, r.Cause)
	}
	if diff := cmp.Diff(r.Reading, want); diff != "" {
		t.Errorf("Reading difference (-got +want):\n%s", diff)
	}
}

func TestRead_datasheetTimingDefaultOpts(t *testing.T) {
	// 27µs and 70µs are both above the default threshold.
	f := []byte{0x02, 0x8c, 0x80, 0x65, 0x73}
	d, _ := newFake(t, nil, waveform(f, 27, 70))
	r, err := d.Read()
	if err != nil {
		t.Fatal(err)
	}
	if r.Status != Unavailable {
		t.Fatalf("expected Unavailable, got %s", r)
	}
	var ce *ChecksumError
	if !errors.As(r.Cause, &ce) {
		t.Fatalf("expected *ChecksumError, got %v", r.Cause)
	}
	if ce.Got != 0xff || ce.Want != 0xfc {
		t.Fatalf("unexpected checksum %#02x, computed %#02x", ce.Got, ce.Want)
	}
}

// gatedSensor blocks in its wake-up sleep until released.
type gatedSensor struct {
	*fakeSensor
	entered chan struct{}
	release chan struct{}
}

func (g *gatedSensor) Sleep(d time.Duration) {
	if d == wakeHigh {
		g.entered <- struct{}{}
		<-g.release
	}
	g.fakeSensor.Sleep(d)
}

func newGated(t *testing.T) (*Dev, *gatedSensor) {
	g := &gatedSensor{
		fakeSensor: &fakeSensor{reads: [][]segment{waveform(frame20C50, 8, 24)}},
		entered:    make(chan struct{}, 1),
		release:    make(chan struct{}),
	}
	d, err := NewLine(g, g, nil)
	if err != nil {
		t.Fatal(err)
	}
	return d, g
}

func TestRead_concurrentDevices(t *testing.T) {
	prev := debug.SetGCPercent(100)
	defer debug.SetGCPercent(prev)

	a, ga := newGated(t)
	b, gb := newGated(t)
	results := make(chan Result, 2)
	read := func(d *Dev) {
		r, err := d.Read()
		if err != nil {
			t.Error(err)
		}
		results <- r
	}
	go read(a)
	<-ga.entered
	go read(b)
	bEntered := false
	select {
	case <-gb.entered:
		bEntered = true
		t.Error("second device started sampling while the first was sampling")
	case <-time.After(50 * time.Millisecond):
	}
	close(ga.release)
	if !bEntered {
		<-gb.entered
	}
	close(gb.release)
	for i := 0; i < 2; i++ {
		if r := <-results; r.Status != Fresh {
			t.Errorf("expected Fresh, got %s (%v)", r, r.Cause)
		}
	}
	if got := debug.SetGCPercent(100); got != 100 {
		t.Fatalf("GC percent left at %d", got)
	}
}

func TestRead_handshakeError(t *testing.T) {
	for _, op := range []string{"Output", "Low", "Input"} {
		t.Run(op, func(t *testing.T) {
			d, s := newFake(t, nil, waveform(frame20C50, 8, 24))
			s.failOp = op
			r, err := d.Read()
			var he *HandshakeError
			if !errors.As(err, &he) {
				t.Fatalf("expected HandshakeError, got %v", err)
			}
			if errors.Unwrap(err) == nil {
				t.Error("HandshakeError does not wrap its cause")
			}
			if r.Ok() {
				t.Errorf("unexpected result %s", r)
			}
		})
	}
}

func TestNewLine_invalid(t *testing.T) {
	s := &fakeSensor{}
	for _, opts := range []Opts{
		{BitThreshold: 0, PulseCeiling: 255 * time.Microsecond, Transitions: 84},
		{BitThreshold: 16 * time.Microsecond, PulseCeiling: 16 * time.Microsecond, Transitions: 84},
		{BitThreshold: 16 * time.Microsecond, PulseCeiling: 255 * time.Microsecond, Transitions: 82},
	} {
		if d, err := NewLine(s, s, &opts); d != nil || err == nil {
			t.Errorf("NewLine(%+v) accepted invalid options", opts)
		}
	}
}

func TestNew(t *testing.T) {
	if d, err := New(nil, nil); d != nil || err == nil {
		t.Fatal("New() accepted a nil pin")
	}
	p := &gpiotest.Pin{N: "GPIO27", Num: 27, L: gpio.Low}
	d, err := New(p, nil)
	if err != nil {
		t.Fatal(err)
	}
	if p.L != gpio.High {
		t.Error("line not released high")
	}
	if len(d.String()) == 0 {
		t.Error("invalid value for String()")
	}
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
}

func TestSense(t *testing.T) {
	d, _ := newFake(t, nil, waveform([]byte{0, 0, 0, 0, 1}, 8, 24), waveform(frame20C50, 8, 24))
	e := physic.Env{}
	if err := d.Sense(&e); !errors.Is(err, ErrNoReading) {
		t.Fatalf("expected ErrNoReading, got %v", err)
	}
	if err := d.Sense(&e); err != nil {
		t.Fatal(err)
	}
	if e.Temperature != reading20C.Temperature || e.Humidity != reading20C.Humidity {
		t.Errorf("unexpected %s %s", e.Temperature, e.Humidity)
	}

	d.Precision(&e)
	if 10*e.Temperature != physic.Celsius {
		t.Error("incorrect temperature precision value")
	}
	if e.Humidity != physic.MilliRH {
		t.Error("incorrect humidity precision")
	}
	if e.Pressure != 0 {
		t.Error("this device doesn't measure pressure")
	}
}

func TestSenseContinuous(t *testing.T) {
	d, _ := newFake(t, nil, waveform(frame20C50, 8, 24))
	if _, err := d.SenseContinuous(time.Second); err == nil {
		t.Error("SenseContinuous() accepted invalid reading interval")
	}
	ch, err := d.SenseContinuous(minSenseInterval)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.SenseContinuous(minSenseInterval); err == nil {
		t.Error("SenseContinuous() started twice")
	}
	e := <-ch
	if e.Temperature != reading20C.Temperature || e.Humidity != reading20C.Humidity {
		t.Errorf("unexpected %s %s", e.Temperature, e.Humidity)
	}
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	for range ch {
	}
}

func TestPinLine(t *testing.T) {
	p := &gpiotest.Pin{N: "GPIO27", Num: 27}
	l := PinLine(p)
	if err := l.SetDirection(Output); err != nil {
		t.Fatal(err)
	}
	if p.L != gpio.High {
		t.Error("output did not start high")
	}
	if err := l.Write(gpio.Low); err != nil {
		t.Fatal(err)
	}
	if l.Read() != gpio.Low {
		t.Error("expected Low")
	}
	if err := l.SetDirection(Input); err != nil {
		t.Fatal(err)
	}
	if p.P != gpio.PullUp {
		t.Errorf("expected pull-up, got %s", p.P)
	}
}

func TestHostClock(t *testing.T) {
	c := HostClock()
	start := c.Micros()
	c.Sleep(50 * time.Microsecond)
	if elapsed := c.Micros() - start; elapsed < 50 {
		t.Errorf("slept %dµs, expected at least 50", elapsed)
	}
}
